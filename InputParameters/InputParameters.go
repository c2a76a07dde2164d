package InputParameters

import (
	"fmt"
	"io"
	"os"

	"github.com/ghodss/yaml"

	"github.com/notargets/netgenplugin/types"
)

/*
NetgenParams is the meshing control record exchanged between the host platform
and the batch mesher. On disk it is an ordered sequence of newline terminated
scalars; the field order of the schema, not the names, defines the format.
*/
type NetgenParams struct {
	HasNetgenParam         bool           `json:"has_netgen_param"`
	MaxH                   float64        `json:"maxh"`
	MinH                   float64        `json:"minh"`
	SegmentsPerEdge        float64        `json:"segmentsperedge"`
	Grading                float64        `json:"grading"`
	CurvatureSafety        float64        `json:"curvaturesafety"`
	SecondOrder            int            `json:"secondorder"`
	Quad                   int            `json:"quad"`
	Optimize               bool           `json:"optimize"`
	Fineness               types.Fineness `json:"fineness"`
	UseLocalH              bool           `json:"uselocalh"`
	MergeSolids            bool           `json:"merge_solids"`
	ChordalError           float64        `json:"chordalError"`
	OptSteps2D             int            `json:"optsteps2d"`
	OptSteps3D             int            `json:"optsteps3d"`
	ElSizeWeight           float64        `json:"elsizeweight"`
	OptErrPow              int            `json:"opterrpow"`
	Delaunay               bool           `json:"delaunay"`
	CheckOverlap           bool           `json:"checkoverlap"`
	CheckChartBoundary     bool           `json:"checkchartboundary"`
	CloseEdgeFac           int            `json:"closeedgefac"`
	NbThreads              int            `json:"nbThreads"`
	HasLocalSize           bool           `json:"has_local_size"`
	MeshSizeFilename       string         `json:"meshsizefilename"`
	HasMaxElementVolumeHyp bool           `json:"has_maxelementvolume_hyp"`
	MaxElementVolume       float64        `json:"maxElementVolume"`
	HasLengthFromEdgesHyp  bool           `json:"has_LengthFromEdges_hyp"`

	// Provenance of the record, not serialized and ignored by Diff
	Format FormatTag     `json:"-"`
	Simple *SimpleParams `json:"-"`
}

// DefaultParams returns the kernel defaults for a Moderate fineness run
func DefaultParams() *NetgenParams {
	return &NetgenParams{
		HasNetgenParam:     false,
		MaxH:               1000,
		MinH:               0,
		SegmentsPerEdge:    1,
		Grading:            0.3,
		CurvatureSafety:    2,
		Optimize:           true,
		Fineness:           types.Fineness_Moderate,
		UseLocalH:          true,
		MergeSolids:        true,
		ChordalError:       -1,
		OptSteps2D:         3,
		OptSteps3D:         3,
		ElSizeWeight:       0.2,
		OptErrPow:          2,
		Delaunay:           true,
		CheckOverlap:       true,
		CheckChartBoundary: false,
		CloseEdgeFac:       2,
	}
}

// SelfTestParams is the user defined record used by the selftest round trip
func SelfTestParams() *NetgenParams {
	return &NetgenParams{
		HasNetgenParam:     true,
		MaxH:               34.64,
		MinH:               0.14,
		SegmentsPerEdge:    15,
		Grading:            0.2,
		CurvatureSafety:    1.5,
		Optimize:           true,
		Fineness:           types.Fineness_UserDefined,
		UseLocalH:          true,
		MergeSolids:        true,
		ChordalError:       -1,
		OptSteps2D:         3,
		OptSteps3D:         3,
		ElSizeWeight:       0.2,
		OptErrPow:          2,
		Delaunay:           true,
		CheckOverlap:       true,
		CheckChartBoundary: false,
		CloseEdgeFac:       2,
	}
}

func (p *NetgenParams) Parse(data []byte) error {
	return yaml.Unmarshal(data, p)
}

func (p *NetgenParams) ToYAML() ([]byte, error) {
	return yaml.Marshal(p)
}

// ReadYAML loads a hand written YAML parameter record
func ReadYAML(path string) (*NetgenParams, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p := DefaultParams()
	if err = p.Parse(data); err != nil {
		return nil, &types.FormatError{File: path, Err: err}
	}
	p.Format = Format_Hypothesis
	return p, nil
}

func (p *NetgenParams) Print() {
	p.Fprint(os.Stdout)
}

// Fprint writes one "name: value" line per field, in schema order
func (p *NetgenParams) Fprint(w io.Writer) {
	for _, f := range canonicalFields() {
		fmt.Fprintf(w, "%s: %s\n", f.Name, f.format(p))
	}
}

func (p *NetgenParams) Clone() *NetgenParams {
	c := *p
	if p.Simple != nil {
		s := *p.Simple
		c.Simple = &s
	}
	return &c
}
