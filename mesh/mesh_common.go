package mesh

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
)

// ElementType represents different element types
type ElementType int

const (
	Point ElementType = iota
	Line
	Triangle
	Quad
	Tet
	Hex
	Prism
	Pyramid
)

func (e ElementType) String() string {
	return [...]string{"Point", "Line", "Triangle", "Quad", "Tet", "Hex", "Prism", "Pyramid"}[e]
}

// GetNumNodes returns the number of corner nodes of the element type
func (e ElementType) GetNumNodes() int {
	return [...]int{1, 2, 3, 4, 4, 8, 6, 5}[e]
}

func (e ElementType) Dim() int {
	return [...]int{0, 1, 2, 2, 3, 3, 3, 3}[e]
}

// Node is a host mesh node. ShapeDim/ShapeTag classify it on the CAD model,
// ShapeDim is -1 when the node position is unknown.
type Node struct {
	ID       int64
	X        [3]float64
	ShapeDim int
	ShapeTag int
}

type Element struct {
	ID    int64
	Type  ElementType
	Nodes []int64
	Tags  []int // Physical tags first, geometric entity tag last
}

// EntityTag returns the geometric entity the element was meshed on, 0 if unknown
func (e *Element) EntityTag() int {
	if len(e.Tags) == 0 {
		return 0
	}
	return e.Tags[len(e.Tags)-1]
}

// Mesh is the host mesh: nodes and elements addressed by their host IDs,
// iterated in insertion order.
type Mesh struct {
	Name          string
	FormatVersion string
	IsBinary      bool
	DataSize      int

	nodes     []*Node
	nodeIndex map[int64]int
	elements  []*Element
	elemIndex map[int64]int
	maxNodeID int64
	maxElemID int64
}

// NewMesh creates an empty mesh
func NewMesh() *Mesh {
	return &Mesh{
		nodeIndex: make(map[int64]int),
		elemIndex: make(map[int64]int),
	}
}

// ReadMeshFile reads a mesh file based on extension
func ReadMeshFile(filename string) (*Mesh, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	switch ext {
	case ".msh":
		return ReadGmshAuto(filename)
	default:
		return nil, fmt.Errorf("unsupported mesh format: %s", ext)
	}
}

// WriteMeshFile writes a mesh file based on extension
func WriteMeshFile(filename string, m *Mesh) error {
	ext := strings.ToLower(filepath.Ext(filename))

	switch ext {
	case ".msh":
		return WriteGmsh22(filename, m)
	default:
		return fmt.Errorf("unsupported mesh format: %s", ext)
	}
}

// AddNodeWithID inserts a node with a caller chosen ID
func (m *Mesh) AddNodeWithID(id int64, x [3]float64, shapeDim, shapeTag int) (*Node, error) {
	if _, exists := m.nodeIndex[id]; exists {
		return nil, fmt.Errorf("duplicate node id %d", id)
	}
	n := &Node{ID: id, X: x, ShapeDim: shapeDim, ShapeTag: shapeTag}
	m.nodeIndex[id] = len(m.nodes)
	m.nodes = append(m.nodes, n)
	if id > m.maxNodeID {
		m.maxNodeID = id
	}
	return n, nil
}

// AddNode creates a node with the next free ID
func (m *Mesh) AddNode(x, y, z float64) *Node {
	n, _ := m.AddNodeWithID(m.maxNodeID+1, [3]float64{x, y, z}, -1, 0)
	return n
}

// AddElementWithID inserts an element, every node must already exist
func (m *Mesh) AddElementWithID(id int64, elemType ElementType, tags []int, nodeIDs []int64) (*Element, error) {
	if _, exists := m.elemIndex[id]; exists {
		return nil, fmt.Errorf("duplicate element id %d", id)
	}
	if len(nodeIDs) != elemType.GetNumNodes() {
		return nil, fmt.Errorf("element %d: %s needs %d nodes, got %d",
			id, elemType, elemType.GetNumNodes(), len(nodeIDs))
	}
	for _, nid := range nodeIDs {
		if _, ok := m.nodeIndex[nid]; !ok {
			return nil, fmt.Errorf("element %d references unknown node %d", id, nid)
		}
	}
	e := &Element{ID: id, Type: elemType, Nodes: append([]int64{}, nodeIDs...),
		Tags: append([]int{}, tags...)}
	m.elemIndex[id] = len(m.elements)
	m.elements = append(m.elements, e)
	if id > m.maxElemID {
		m.maxElemID = id
	}
	return e, nil
}

func (m *Mesh) addElement(elemType ElementType, nodeIDs ...int64) (*Element, error) {
	return m.AddElementWithID(m.maxElemID+1, elemType, nil, nodeIDs)
}

// AddFace creates a triangle on existing nodes
func (m *Mesh) AddFace(n1, n2, n3 int64) (*Element, error) {
	return m.addElement(Triangle, n1, n2, n3)
}

// AddVolume creates a tetrahedron on existing nodes
func (m *Mesh) AddVolume(n1, n2, n3, n4 int64) (*Element, error) {
	return m.addElement(Tet, n1, n2, n3, n4)
}

func (m *Mesh) Node(id int64) (*Node, bool) {
	i, ok := m.nodeIndex[id]
	if !ok {
		return nil, false
	}
	return m.nodes[i], true
}

func (m *Mesh) Element(id int64) (*Element, bool) {
	i, ok := m.elemIndex[id]
	if !ok {
		return nil, false
	}
	return m.elements[i], true
}

func (m *Mesh) Nodes() []*Node       { return m.nodes }
func (m *Mesh) Elements() []*Element { return m.elements }
func (m *Mesh) NumNodes() int        { return len(m.nodes) }
func (m *Mesh) NumElements() int     { return len(m.elements) }

// ElementsOfDim returns the elements of one topological dimension in insertion order
func (m *Mesh) ElementsOfDim(dim int) (elems []*Element) {
	for _, e := range m.elements {
		if e.Type.Dim() == dim {
			elems = append(elems, e)
		}
	}
	return
}

func (m *Mesh) NbQuadrangles() (nb int) {
	for _, e := range m.elements {
		if e.Type == Quad {
			nb++
		}
	}
	return
}

// BoundingBox of all nodes, ok is false for an empty mesh
func (m *Mesh) BoundingBox() (pMin, pMax [3]float64, ok bool) {
	if len(m.nodes) == 0 {
		return
	}
	for i := 0; i < 3; i++ {
		pMin[i], pMax[i] = math.Inf(1), math.Inf(-1)
	}
	for _, n := range m.nodes {
		for i := 0; i < 3; i++ {
			pMin[i] = math.Min(pMin[i], n.X[i])
			pMax[i] = math.Max(pMax[i], n.X[i])
		}
	}
	return pMin, pMax, true
}

// VertexNode returns the node classified on CAD vertex tag
func (m *Mesh) VertexNode(vertexTag int) (*Node, bool) {
	for _, n := range m.nodes {
		if n.ShapeDim == 0 && n.ShapeTag == vertexTag {
			return n, true
		}
	}
	return nil, false
}

/*
classifyNodes gives a shape position to nodes read without one, taking the
entity of the lowest dimension element that uses the node.
*/
func (m *Mesh) classifyNodes() {
	for dim := 0; dim <= 3; dim++ {
		for _, e := range m.elements {
			if e.Type.Dim() != dim || e.EntityTag() == 0 {
				continue
			}
			for _, nid := range e.Nodes {
				n := m.nodes[m.nodeIndex[nid]]
				if n.ShapeDim < 0 {
					n.ShapeDim, n.ShapeTag = dim, e.EntityTag()
				}
			}
		}
	}
}

// PrintStatistics prints mesh statistics
func (m *Mesh) PrintStatistics() {
	fmt.Printf("Mesh Statistics:\n")
	fmt.Printf("  Nodes: %d\n", m.NumNodes())
	fmt.Printf("  Elements: %d\n", m.NumElements())

	typeCounts := make(map[ElementType]int)
	for _, e := range m.elements {
		typeCounts[e.Type]++
	}
	fmt.Printf("  Element types:\n")
	for t := Point; t <= Pyramid; t++ {
		if count := typeCounts[t]; count > 0 {
			fmt.Printf("    %s: %d\n", t, count)
		}
	}
}
