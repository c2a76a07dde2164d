package InputParameters

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/notargets/netgenplugin/types"
)

type fieldKind uint8

const (
	kindBool fieldKind = iota
	kindInt
	kindFloat
	kindString
)

// paramField binds one on-disk line to a record field
type paramField struct {
	Name string
	Kind fieldKind
	ref  func(p *NetgenParams) interface{}
}

var allFields = []paramField{
	{"has_netgen_param", kindBool, func(p *NetgenParams) interface{} { return &p.HasNetgenParam }},
	{"maxh", kindFloat, func(p *NetgenParams) interface{} { return &p.MaxH }},
	{"minh", kindFloat, func(p *NetgenParams) interface{} { return &p.MinH }},
	{"segmentsperedge", kindFloat, func(p *NetgenParams) interface{} { return &p.SegmentsPerEdge }},
	{"grading", kindFloat, func(p *NetgenParams) interface{} { return &p.Grading }},
	{"curvaturesafety", kindFloat, func(p *NetgenParams) interface{} { return &p.CurvatureSafety }},
	{"secondorder", kindInt, func(p *NetgenParams) interface{} { return &p.SecondOrder }},
	{"quad", kindInt, func(p *NetgenParams) interface{} { return &p.Quad }},
	{"optimize", kindBool, func(p *NetgenParams) interface{} { return &p.Optimize }},
	{"fineness", kindInt, func(p *NetgenParams) interface{} { return (*int)(&p.Fineness) }},
	{"uselocalh", kindBool, func(p *NetgenParams) interface{} { return &p.UseLocalH }},
	{"merge_solids", kindBool, func(p *NetgenParams) interface{} { return &p.MergeSolids }},
	{"chordalError", kindFloat, func(p *NetgenParams) interface{} { return &p.ChordalError }},
	{"optsteps2d", kindInt, func(p *NetgenParams) interface{} { return &p.OptSteps2D }},
	{"optsteps3d", kindInt, func(p *NetgenParams) interface{} { return &p.OptSteps3D }},
	{"elsizeweight", kindFloat, func(p *NetgenParams) interface{} { return &p.ElSizeWeight }},
	{"opterrpow", kindInt, func(p *NetgenParams) interface{} { return &p.OptErrPow }},
	{"delaunay", kindBool, func(p *NetgenParams) interface{} { return &p.Delaunay }},
	{"checkoverlap", kindBool, func(p *NetgenParams) interface{} { return &p.CheckOverlap }},
	{"checkchartboundary", kindBool, func(p *NetgenParams) interface{} { return &p.CheckChartBoundary }},
	{"closeedgefac", kindInt, func(p *NetgenParams) interface{} { return &p.CloseEdgeFac }},
	{"nbThreads", kindInt, func(p *NetgenParams) interface{} { return &p.NbThreads }},
	{"has_local_size", kindBool, func(p *NetgenParams) interface{} { return &p.HasLocalSize }},
	{"meshsizefilename", kindString, func(p *NetgenParams) interface{} { return &p.MeshSizeFilename }},
	{"has_maxelementvolume_hyp", kindBool, func(p *NetgenParams) interface{} { return &p.HasMaxElementVolumeHyp }},
	{"maxElementVolume", kindFloat, func(p *NetgenParams) interface{} { return &p.MaxElementVolume }},
	{"has_LengthFromEdges_hyp", kindBool, func(p *NetgenParams) interface{} { return &p.HasLengthFromEdgesHyp }},
}

/*
Schema versions of the line record:
  - 1.0.0: 25 lines, no nbThreads and no has_LengthFromEdges_hyp
  - 1.1.0: 26 lines, adds has_LengthFromEdges_hyp as the last line
  - 2.0.0: 27 lines, adds nbThreads after closeedgefac (canonical)

Export always writes 2.0.0; older records are migrated on import with
nbThreads=0 (kernel default) and has_LengthFromEdges_hyp=false.
*/
type schema struct {
	Version *semver.Version
	Fields  []paramField
}

var (
	SchemaV1        = semver.MustParse("1.0.0")
	SchemaV1_1      = semver.MustParse("1.1.0")
	SchemaCanonical = semver.MustParse("2.0.0")
	schemas         []schema
)

func init() {
	without := func(names ...string) (fields []paramField) {
	next:
		for _, f := range allFields {
			for _, n := range names {
				if f.Name == n {
					continue next
				}
			}
			fields = append(fields, f)
		}
		return
	}
	schemas = []schema{
		{SchemaV1, without("nbThreads", "has_LengthFromEdges_hyp")},
		{SchemaV1_1, without("nbThreads")},
		{SchemaCanonical, allFields},
	}
}

func canonicalFields() []paramField { return allFields }

// SchemaVersionOf selects the schema of a record from its line count
func SchemaVersionOf(lineCount int) (*semver.Version, error) {
	s, err := schemaFor(lineCount)
	if err != nil {
		return nil, err
	}
	return s.Version, nil
}

func schemaFor(lineCount int) (schema, error) {
	for _, s := range schemas {
		if len(s.Fields) == lineCount {
			return s, nil
		}
	}
	return schema{}, fmt.Errorf("%d lines does not match any record schema (expected %d)",
		lineCount, len(allFields))
}

// IsLegacy reports whether v predates the canonical schema
func IsLegacy(v *semver.Version) bool {
	return v.LessThan(SchemaCanonical)
}

func (f paramField) format(p *NetgenParams) string {
	switch v := f.ref(p).(type) {
	case *bool:
		if *v {
			return "1"
		}
		return "0"
	case *int:
		return strconv.Itoa(*v)
	case *float64:
		return strconv.FormatFloat(*v, 'g', -1, 64)
	case *string:
		return *v
	}
	panic("unreachable field kind for " + f.Name)
}

func (f paramField) parse(p *NetgenParams, token string) error {
	if f.Kind == kindString {
		*(f.ref(p).(*string)) = token
		return nil
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("empty value")
	}
	switch v := f.ref(p).(type) {
	case *bool:
		i, err := strconv.Atoi(token)
		if err != nil {
			return fmt.Errorf("expected an integer flag, got %q", token)
		}
		*v = i != 0
	case *int:
		i, err := strconv.Atoi(token)
		if err != nil {
			return fmt.Errorf("expected an integer, got %q", token)
		}
		*v = i
	case *float64:
		d, err := strconv.ParseFloat(token, 64)
		if err != nil {
			return fmt.Errorf("expected a number, got %q", token)
		}
		*v = d
	}
	return nil
}

func (f paramField) equal(a, b *NetgenParams) bool {
	switch va := f.ref(a).(type) {
	case *bool:
		return *va == *(f.ref(b).(*bool))
	case *int:
		return *va == *(f.ref(b).(*int))
	case *float64:
		return *va == *(f.ref(b).(*float64))
	case *string:
		return *va == *(f.ref(b).(*string))
	}
	return false
}

func newFormatError(path string, line int, f paramField, err error) error {
	return &types.FormatError{File: path, Line: line, Field: f.Name, Err: err}
}
