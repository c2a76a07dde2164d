package feeder

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/netgenplugin/kernel"
	"github.com/notargets/netgenplugin/mesh"
	"github.com/notargets/netgenplugin/shape"
	"github.com/notargets/netgenplugin/types"
	"github.com/notargets/netgenplugin/utils"
)

// Stats counts what happened to the boundary elements of one feed
type Stats struct {
	Fed        int // elements added to the kernel mesh
	Skipped    int // elements absent from the inclusion map
	Degenerate int // elements collapsed by degenerated edge substitution
	SplitQuads int // quadrangles fed as two triangles
}

/*
Feeder copies the selected boundary elements of a host mesh into a kernel mesh.
Shape may be nil, then no degenerated edge substitution takes place.
SplitQuads accepts quadrangles in a 3D feed by cutting them along their first
diagonal, otherwise a quadrangle is a bad input element.
*/
type Feeder struct {
	Host       *mesh.Mesh
	Shape      *shape.Shape
	Inclusion  *Inclusion
	SplitQuads bool
}

// node resolves the node fed for a host node, substituting the vertex node for
// a node lying on a degenerated edge
func (f *Feeder) node(elemID, nodeID int64) (n *mesh.Node, substituted bool, err error) {
	var ok bool
	if n, ok = f.Host.Node(nodeID); !ok {
		return nil, false, &types.BadInputMeshError{ElementID: elemID, Reason: fmt.Sprintf("null node %d", nodeID)}
	}
	if utils.IsNan(n.X) {
		return nil, false, &types.BadInputMeshError{ElementID: elemID, Reason: fmt.Sprintf("node %d has NaN coordinates", nodeID)}
	}
	if f.Shape == nil || n.ShapeDim != 1 || !f.Shape.IsDegenerateEdge(n.ShapeTag) {
		return
	}
	vtag, _ := f.Shape.EdgeVertex(n.ShapeTag)
	var vn *mesh.Node
	if vn, ok = f.Host.VertexNode(vtag); !ok {
		return nil, false, &types.BadInputMeshError{ElementID: elemID,
			Reason: fmt.Sprintf("no node on vertex %d of degenerated edge %d", vtag, n.ShapeTag)}
	}
	return vn, true, nil
}

func (f *Feeder) inclusion() *Inclusion {
	if f.Inclusion == nil {
		return IncludeAll()
	}
	return f.Inclusion
}

func toVec(x [3]float64) r3.Vec { return r3.Vec{X: x[0], Y: x[1], Z: x[2]} }

/*
FeedTriangles adds the included 2D elements of the host mesh to km as surface
elements of face 1, in host order. A reversed element has its node order
inverted exactly: node i goes to slot 2-i. Kernel point indices are given on
first encounter, so the fed nodes are exactly 1..N.
*/
func (f *Feeder) FeedTriangles(km *kernel.Mesh) (nt *NodeTable, st Stats, err error) {
	var (
		in = f.inclusion()
	)
	nt = NewNodeTable()
	for _, el := range f.Host.ElementsOfDim(2) {
		if el == nil {
			return nil, st, &types.BadInputMeshError{Reason: "null element"}
		}
		included, reversed := in.Lookup(el.ID)
		if !included {
			st.Skipped++
			continue
		}
		var tris [][]int64
		switch {
		case el.Type == mesh.Triangle && len(el.Nodes) == 3:
			tris = [][]int64{el.Nodes}
		case el.Type == mesh.Quad && len(el.Nodes) == 4 && f.SplitQuads:
			tris = [][]int64{{el.Nodes[0], el.Nodes[1], el.Nodes[2]}, {el.Nodes[0], el.Nodes[2], el.Nodes[3]}}
			st.SplitQuads++
		default:
			return nil, st, &types.BadInputMeshError{ElementID: el.ID, Reason: "not a triangle element"}
		}
		for _, tri := range tris {
			var (
				p        [3]int
				hasDegen bool
			)
			for iN, id := range tri {
				n, subst, err := f.node(el.ID, id)
				if err != nil {
					return nil, st, err
				}
				hasDegen = hasDegen || subst
				k, isNew := nt.assign(n.ID)
				if isNew {
					km.AddPoint(toVec(n.X), kernel.FixedPoint)
				}
				if reversed {
					p[2-iN] = k
				} else {
					p[iN] = k
				}
			}
			if hasDegen && (p[0] == p[1] || p[0] == p[2] || p[1] == p[2]) {
				st.Degenerate++
				continue
			}
			km.AddSurfaceElement(kernel.SurfaceElement{P: p, FaceNr: 1})
			st.Fed++
		}
	}
	return
}

/*
FeedSegments adds the included 1D elements of the host mesh to km as boundary
segments of face faceNr, registering the face descriptor first. A reversed
segment has its two nodes swapped.
*/
func (f *Feeder) FeedSegments(km *kernel.Mesh, faceNr int) (nt *NodeTable, st Stats, err error) {
	var (
		in = f.inclusion()
	)
	nt = NewNodeTable()
	km.AddFaceDescriptor(kernel.FaceDescriptor{SurfNr: faceNr})
	for _, el := range f.Host.ElementsOfDim(1) {
		if el == nil {
			return nil, st, &types.BadInputMeshError{Reason: "null element"}
		}
		included, reversed := in.Lookup(el.ID)
		if !included {
			st.Skipped++
			continue
		}
		if len(el.Nodes) != 2 {
			return nil, st, &types.BadInputMeshError{ElementID: el.ID, Reason: "not a segment element"}
		}
		var (
			p        [2]int
			hasDegen bool
		)
		for iN, id := range el.Nodes {
			n, subst, err := f.node(el.ID, id)
			if err != nil {
				return nil, st, err
			}
			hasDegen = hasDegen || subst
			k, isNew := nt.assign(n.ID)
			if isNew {
				km.AddPoint(toVec(n.X), kernel.EdgePoint)
			}
			if reversed {
				p[1-iN] = k
			} else {
				p[iN] = k
			}
		}
		if hasDegen && p[0] == p[1] {
			st.Degenerate++
			continue
		}
		km.AddSegment(kernel.Segment{P: p, EdgeNr: km.NSeg() + 1, FaceNr: faceNr})
		st.Fed++
	}
	return
}
