package kernel

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

type PointType uint8

const (
	FixedPoint PointType = iota + 1
	EdgePoint
	SurfacePoint
	InnerPoint
)

type MeshPoint struct {
	X    r3.Vec
	Type PointType
}

type Segment struct {
	P      [2]int
	EdgeNr int
	FaceNr int
}

type SurfaceElement struct {
	P      [3]int
	FaceNr int
}

type VolumeElement struct {
	P      [4]int
	Domain int
}

type FaceDescriptor struct {
	SurfNr    int
	DomainIn  int
	DomainOut int
}

/*
Mesh is the kernel's native mesh. All point and element indices are 1-based:
index i refers to the i-th point added. Points fed from the boundary always
come first, the engine only appends.
*/
type Mesh struct {
	points          []MeshPoint
	segments        []Segment
	surfElems       []SurfaceElement
	volElems        []VolumeElement
	faceDescriptors []FaceDescriptor
	localH          *LocalH
	badElements     []int
}

func NewMesh() *Mesh {
	return &Mesh{}
}

func (m *Mesh) AddPoint(x r3.Vec, t PointType) int {
	m.points = append(m.points, MeshPoint{X: x, Type: t})
	return len(m.points)
}

func (m *Mesh) NP() int                  { return len(m.points) }
func (m *Mesh) Point(i int) MeshPoint    { return m.points[i-1] }
func (m *Mesh) SetPoint(i int, x r3.Vec) { m.points[i-1].X = x }

func (m *Mesh) checkPoints(idx ...int) {
	for _, i := range idx {
		if i < 1 || i > len(m.points) {
			panic(&NgException{Message: fmt.Sprintf("point index %d out of range 1..%d", i, len(m.points))})
		}
	}
}

func (m *Mesh) AddSegment(s Segment) int {
	m.checkPoints(s.P[:]...)
	m.segments = append(m.segments, s)
	return len(m.segments)
}

func (m *Mesh) NSeg() int                           { return len(m.segments) }
func (m *Mesh) Segment(i int) Segment               { return m.segments[i-1] }
func (m *Mesh) NSE() int                            { return len(m.surfElems) }
func (m *Mesh) SurfaceElement(i int) SurfaceElement { return m.surfElems[i-1] }
func (m *Mesh) NE() int                             { return len(m.volElems) }
func (m *Mesh) VolumeElement(i int) VolumeElement   { return m.volElems[i-1] }

func (m *Mesh) AddSurfaceElement(el SurfaceElement) int {
	m.checkPoints(el.P[:]...)
	m.surfElems = append(m.surfElems, el)
	return len(m.surfElems)
}

func (m *Mesh) AddVolumeElement(el VolumeElement) int {
	m.checkPoints(el.P[:]...)
	m.volElems = append(m.volElems, el)
	return len(m.volElems)
}

func (m *Mesh) AddFaceDescriptor(fd FaceDescriptor) int {
	m.faceDescriptors = append(m.faceDescriptors, fd)
	return len(m.faceDescriptors)
}

func (m *Mesh) FaceDescriptors() []FaceDescriptor { return m.faceDescriptors }

// Box is the bounding box of the mesh points, the zero box for an empty mesh
func (m *Mesh) Box() (box r3.Box) {
	for i, p := range m.points {
		if i == 0 {
			box.Min, box.Max = p.X, p.X
			continue
		}
		box.Min = r3.Vec{X: min(box.Min.X, p.X.X), Y: min(box.Min.Y, p.X.Y), Z: min(box.Min.Z, p.X.Z)}
		box.Max = r3.Vec{X: max(box.Max.X, p.X.X), Y: max(box.Max.Y, p.X.Y), Z: max(box.Max.Z, p.X.Z)}
	}
	return
}

// AverageH is the mean length of the boundary segments, 0 without segments
func (m *Mesh) AverageH() float64 {
	if len(m.segments) == 0 {
		return 0
	}
	var sum float64
	for _, s := range m.segments {
		sum += r3.Norm(r3.Sub(m.Point(s.P[1]).X, m.Point(s.P[0]).X))
	}
	return sum / float64(len(m.segments))
}

// DeleteMesh removes every point and element. The local size field survives.
func (m *Mesh) DeleteMesh() {
	m.points = m.points[:0]
	m.segments = m.segments[:0]
	m.surfElems = m.surfElems[:0]
	m.volElems = m.volElems[:0]
	m.faceDescriptors = m.faceDescriptors[:0]
	m.badElements = nil
}

// BadElements lists the element indices the last generation step rejected
func (m *Mesh) BadElements() []int { return m.badElements }

func (m *Mesh) setBadElements(bad []int) { m.badElements = bad }

func (m *Mesh) LocalH() *LocalH { return m.localH }

func (m *Mesh) HasLocalH() bool { return m.localH != nil }

// SetLocalH (re)creates the local size field over the box [pmin, pmax]
func (m *Mesh) SetLocalH(pmin, pmax r3.Vec, grading float64) {
	var globalH, minH float64
	if m.localH != nil {
		globalH, minH = m.localH.globalH, m.localH.minH
	}
	m.localH = NewLocalH(r3.Box{Min: pmin, Max: pmax}, grading)
	m.localH.SetGlobalH(globalH)
	m.localH.SetMinimalH(minH)
}

func (m *Mesh) ensureLocalH() *LocalH {
	if m.localH == nil {
		m.localH = NewLocalH(m.Box(), 0.3)
	}
	return m.localH
}

func (m *Mesh) SetGlobalH(h float64)  { m.ensureLocalH().SetGlobalH(h) }
func (m *Mesh) SetMinimalH(h float64) { m.ensureLocalH().SetMinimalH(h) }

func (m *Mesh) RestrictLocalH(p r3.Vec, h float64) { m.ensureLocalH().Restrict(p, h) }

// GetH is the target element size at p, +Inf without a size field
func (m *Mesh) GetH(p r3.Vec) float64 {
	if m.localH == nil {
		return inf
	}
	return m.localH.GetH(p)
}

// CalcLocalH restricts the size field to the size of the existing boundary elements
func (m *Mesh) CalcLocalH(grading float64) {
	if m.localH == nil {
		box := m.Box()
		m.localH = NewLocalH(box, grading)
	}
	m.localH.grading = grading
	for _, s := range m.segments {
		a, b := m.Point(s.P[0]).X, m.Point(s.P[1]).X
		m.localH.Restrict(r3.Scale(0.5, r3.Add(a, b)), r3.Norm(r3.Sub(b, a)))
	}
	for _, el := range m.surfElems {
		a, b, c := m.Point(el.P[0]).X, m.Point(el.P[1]).X, m.Point(el.P[2]).X
		h := max(r3.Norm(r3.Sub(b, a)), r3.Norm(r3.Sub(c, b)), r3.Norm(r3.Sub(a, c)))
		m.localH.Restrict(centroid(a, b, c), h)
	}
}

func centroid(pts ...r3.Vec) (c r3.Vec) {
	for _, p := range pts {
		c = r3.Add(c, p)
	}
	return r3.Scale(1/float64(len(pts)), c)
}
