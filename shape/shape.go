package shape

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/ghodss/yaml"
	"gonum.org/v1/gonum/spatial/r3"
)

type Vertex struct {
	Tag int        `json:"tag"`
	X   [3]float64 `json:"x"`
}

type Edge struct {
	Tag         int    `json:"tag"`
	Vertices    [2]int `json:"vertices"`
	Degenerated bool   `json:"degenerated,omitempty"`
}

type Face struct {
	Tag   int   `json:"tag"`
	Edges []int `json:"edges"`
}

type Solid struct {
	Tag   int   `json:"tag"`
	Faces []int `json:"faces"`
}

/*
Shape is the CAD model the boundary mesh was built on. Only its topology
(vertex, edge, face and solid tags) and vertex positions are used: the mesher
needs the bounding box, the degenerated edges and a minimum feature size.
*/
type Shape struct {
	Name     string   `json:"name"`
	Vertices []Vertex `json:"vertices"`
	Edges    []Edge   `json:"edges,omitempty"`
	Faces    []Face   `json:"faces,omitempty"`
	Solids   []Solid  `json:"solids,omitempty"`
	// Box overrides the vertex bounding box when the file carries one
	Box *[2][3]float64 `json:"box,omitempty"`
}

// ImportShape reads a shape descriptor (.yaml, .yml, .json) or a STEP file (.step, .stp)
func ImportShape(path string) (*Shape, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml", ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		s := &Shape{}
		if err = yaml.Unmarshal(data, s); err != nil {
			return nil, fmt.Errorf("reading shape %s: %w", path, err)
		}
		if err = s.validate(); err != nil {
			return nil, fmt.Errorf("reading shape %s: %w", path, err)
		}
		return s, nil
	case ".step", ".stp":
		return ReadSTEP(path)
	}
	return nil, fmt.Errorf("unsupported shape format: %s", ext)
}

// ExportShape writes s as a YAML descriptor
func ExportShape(path string, s *Shape) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (s *Shape) validate() error {
	verts := make(map[int]bool, len(s.Vertices))
	for _, v := range s.Vertices {
		verts[v.Tag] = true
	}
	for _, e := range s.Edges {
		for _, vt := range e.Vertices {
			if !verts[vt] {
				return fmt.Errorf("edge %d references unknown vertex %d", e.Tag, vt)
			}
		}
	}
	return nil
}

func (s *Shape) vertex(tag int) (Vertex, bool) {
	for _, v := range s.Vertices {
		if v.Tag == tag {
			return v, true
		}
	}
	return Vertex{}, false
}

func (s *Shape) edge(tag int) (Edge, bool) {
	for _, e := range s.Edges {
		if e.Tag == tag {
			return e, true
		}
	}
	return Edge{}, false
}

// IsDegenerateEdge reports whether edge tag collapses to a single point
func (s *Shape) IsDegenerateEdge(tag int) bool {
	e, ok := s.edge(tag)
	return ok && e.Degenerated
}

// EdgeVertex returns the vertex a degenerated edge collapses to
func (s *Shape) EdgeVertex(tag int) (int, bool) {
	e, ok := s.edge(tag)
	if !ok {
		return 0, false
	}
	return e.Vertices[0], true
}

// BoundingBox of the shape, ok is false when the shape has no geometry
func (s *Shape) BoundingBox() (box r3.Box, ok bool) {
	if s.Box != nil {
		b := *s.Box
		return r3.Box{Min: r3.Vec{X: b[0][0], Y: b[0][1], Z: b[0][2]},
			Max: r3.Vec{X: b[1][0], Y: b[1][1], Z: b[1][2]}}, true
	}
	if len(s.Vertices) == 0 {
		return box, false
	}
	inf := math.Inf(1)
	box.Min = r3.Vec{X: inf, Y: inf, Z: inf}
	box.Max = r3.Vec{X: -inf, Y: -inf, Z: -inf}
	for _, v := range s.Vertices {
		p := toVec(v.X)
		box.Min = r3.Vec{X: math.Min(box.Min.X, p.X), Y: math.Min(box.Min.Y, p.Y), Z: math.Min(box.Min.Z, p.Z)}
		box.Max = r3.Vec{X: math.Max(box.Max.X, p.X), Y: math.Max(box.Max.Y, p.Y), Z: math.Max(box.Max.Z, p.Z)}
	}
	return box, true
}

// Diameter is the length of the bounding box diagonal
func (s *Shape) Diameter() float64 {
	box, ok := s.BoundingBox()
	if !ok {
		return 0
	}
	return r3.Norm(r3.Sub(box.Max, box.Min))
}

/*
DefaultMinSize is the minimal element size used when none is given: the
shortest non-degenerated edge, reduced to maxh/3 when that edge is longer
than maxh/2. Shapes without usable edges fall back to a thousandth of the
diameter.
*/
func (s *Shape) DefaultMinSize(maxh float64) float64 {
	minh := math.Inf(1)
	for _, e := range s.Edges {
		if e.Degenerated {
			continue
		}
		a, okA := s.vertex(e.Vertices[0])
		b, okB := s.vertex(e.Vertices[1])
		if !okA || !okB {
			continue
		}
		if d := r3.Norm(r3.Sub(toVec(a.X), toVec(b.X))); d > 0 {
			minh = math.Min(minh, d)
		}
	}
	if math.IsInf(minh, 1) {
		minh = 1e-3 * s.Diameter()
	}
	if minh > 0.5*maxh {
		minh = maxh / 3
	}
	return minh
}

func toVec(x [3]float64) r3.Vec {
	return r3.Vec{X: x[0], Y: x[1], Z: x[2]}
}
