package InputParameters

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/notargets/netgenplugin/types"
)

/*
FormatTag names the shape of a parameter file. Older tooling encodes it in
the file name ("simple2D", "maxarea", ...); DetectFormat keeps that convention
alive as a compatibility shim, new callers pass the tag explicitly.
*/
type FormatTag uint8

const (
	Format_Hypothesis FormatTag = iota
	Format_Simple2D
	Format_Simple3D
	Format_MaxArea
	Format_LengthFromEdges
)

var FormatTagNameMap = map[string]FormatTag{
	"hypothesis":      Format_Hypothesis,
	"simple2D":        Format_Simple2D,
	"simple3D":        Format_Simple3D,
	"maxarea":         Format_MaxArea,
	"lengthfromedges": Format_LengthFromEdges,
}

func (ft FormatTag) String() string {
	for name, tag := range FormatTagNameMap {
		if tag == ft {
			return name
		}
	}
	return "unknown"
}

func ParseFormatTag(name string) (FormatTag, bool) {
	ft, ok := FormatTagNameMap[name]
	return ft, ok
}

// SimpleParams is the reduced record of the "simple" hypotheses
type SimpleParams struct {
	NumberOfSegments int     `json:"numberOfSegments"`
	LocalLength      float64 `json:"localLength"`
	MaxElementArea   float64 `json:"maxElementArea"`
	MaxElementVolume float64 `json:"maxElementVolume"` // 3D only
	AllowQuadrangles bool    `json:"allowQuadrangles"`
}

func DetectFormat(path string) FormatTag {
	base := filepath.Base(path)
	switch {
	case strings.Contains(base, "simple2D"):
		return Format_Simple2D
	case strings.Contains(base, "simple3D"):
		return Format_Simple3D
	case strings.Contains(base, "maxarea"):
		return Format_MaxArea
	// both spellings are produced by existing writers
	case strings.Contains(base, "lengthfromedge"), strings.Contains(base, "lenghtfromedge"):
		return Format_LengthFromEdges
	}
	return Format_Hypothesis
}

// ImportAuto imports path using the file name convention to pick the format
func ImportAuto(path string) (*NetgenParams, error) {
	return ImportTagged(path, DetectFormat(path))
}

/*
ImportTagged imports path as the given format. Simple, max-area and
length-from-edges records never set HasNetgenParam; the fields they do not
carry keep the kernel defaults.
*/
func ImportTagged(path string, tag FormatTag) (*NetgenParams, error) {
	switch tag {
	case Format_Hypothesis:
		if ext := strings.ToLower(filepath.Ext(path)); ext == ".yaml" || ext == ".yml" {
			return ReadYAML(path)
		}
		return Import(path)
	case Format_Simple2D, Format_Simple3D:
		return importSimple(path, tag)
	case Format_MaxArea:
		return importMaxArea(path)
	case Format_LengthFromEdges:
		if _, err := os.Stat(path); err != nil {
			return nil, err
		}
		p := DefaultParams()
		p.HasLengthFromEdgesHyp = true
		p.Format = tag
		return p, nil
	}
	return nil, &types.FormatError{File: path, Field: "format", Err: errUnknownFormat}
}

var errUnknownFormat = errors.New("unknown parameter file format")

func importSimple(path string, tag FormatTag) (*NetgenParams, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var (
		sp     = &SimpleParams{}
		isVol  bool
		fields = []paramField{
			{"numberOfSegments", kindInt, func(*NetgenParams) interface{} { return &sp.NumberOfSegments }},
			{"localLength", kindFloat, func(*NetgenParams) interface{} { return &sp.LocalLength }},
			{"maxElementArea", kindFloat, func(*NetgenParams) interface{} { return &sp.MaxElementArea }},
		}
		quadField = paramField{"allowQuadrangles", kindBool,
			func(*NetgenParams) interface{} { return &sp.AllowQuadrangles }}
	)
	if tag == Format_Simple3D {
		isVol = true
		fields = append(fields, paramField{"maxElementVolume", kindFloat,
			func(*NetgenParams) interface{} { return &sp.MaxElementVolume }})
	}
	fields = append(fields, quadField)

	lines := splitLines(data)
	for i, f := range fields {
		if i >= len(lines) {
			return nil, newFormatError(path, i+1, f, errUnexpectedEOF)
		}
		if err = f.parse(nil, lines[i]); err != nil {
			return nil, newFormatError(path, i+1, f, err)
		}
	}

	p := DefaultParams()
	p.Format = tag
	p.Simple = sp
	if sp.AllowQuadrangles {
		p.Quad = 1
	}
	switch {
	case isVol && sp.MaxElementVolume > 0:
		p.HasMaxElementVolumeHyp = true
		p.MaxElementVolume = sp.MaxElementVolume
	case !isVol && sp.MaxElementArea > 0:
		// the 2D mesher reads the volume slot as a target area
		p.HasMaxElementVolumeHyp = true
		p.MaxElementVolume = sp.MaxElementArea
	}
	return p, nil
}

func importMaxArea(path string) (*NetgenParams, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var (
		lines   = splitLines(data)
		hasHyp  bool
		maxArea float64
		fields  = []paramField{
			{"has_hypothesis", kindBool, func(*NetgenParams) interface{} { return &hasHyp }},
			{"maxArea", kindFloat, func(*NetgenParams) interface{} { return &maxArea }},
		}
	)
	if len(lines) == 0 {
		return nil, newFormatError(path, 1, fields[0], errUnexpectedEOF)
	}
	if err = fields[0].parse(nil, lines[0]); err != nil {
		return nil, newFormatError(path, 1, fields[0], err)
	}
	p := DefaultParams()
	p.Format = Format_MaxArea
	if !hasHyp {
		return p, nil
	}
	if len(lines) < 2 {
		return nil, newFormatError(path, 2, fields[1], errUnexpectedEOF)
	}
	if err = fields[1].parse(nil, lines[1]); err != nil {
		return nil, newFormatError(path, 2, fields[1], err)
	}
	p.HasMaxElementVolumeHyp = true
	p.MaxElementVolume = maxArea
	return p, nil
}
