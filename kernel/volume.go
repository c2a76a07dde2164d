package kernel

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/netgenplugin/types"
	"github.com/notargets/netgenplugin/utils"
)

const (
	maxVolumeRounds   = 12
	maxVolumeElements = 1 << 21
	regularTetFactor  = 0.11785113019775792 // 1/(6 sqrt(2)), volume of the unit edge regular tetrahedron
)

func tetVolume(a, b, c, d r3.Vec) float64 {
	return r3.Dot(r3.Sub(b, a), r3.Cross(r3.Sub(c, a), r3.Sub(d, a))) / 6
}

func (m *Mesh) tetPoints(el VolumeElement) (a, b, c, d r3.Vec) {
	return m.Point(el.P[0]).X, m.Point(el.P[1]).X, m.Point(el.P[2]).X, m.Point(el.P[3]).X
}

// freeEdges counts the edges of the surface mesh not shared by an even number of triangles
func freeEdges(m *Mesh) (n int) {
	count := make(map[types.EdgeKey]int)
	for i := 1; i <= m.NSE(); i++ {
		for _, ek := range types.NewFaceKey(m.SurfaceElement(i).P).Edges() {
			count[ek]++
		}
	}
	for _, c := range count {
		if c%2 != 0 {
			n++
		}
	}
	return
}

/*
meshVolume fills the closed surface mesh with tetrahedra: one tetrahedron per
boundary triangle joined to the volume centroid, then 1 to 4 centroid splits of
the tetrahedra larger than the local size. The boundary is never modified, so
the result conforms to the fed triangles. Inverted tetrahedra (a domain that
is not star shaped from its centroid) are reported as bad elements.
*/
func meshVolume(pc *PhaseContext) (err error) {
	var (
		m      = pc.Mesh
		facets = make([][3]int, m.NSE())
		vol    float64
		cen    r3.Vec
	)
	if m.NSE() == 0 {
		return
	}
	if n := freeEdges(m); n > 0 {
		return fmt.Errorf("surface mesh is not closed: %d free edges", n)
	}
	for i := range facets {
		facets[i] = m.SurfaceElement(i + 1).P
		a, b, c := m.Point(facets[i][0]).X, m.Point(facets[i][1]).X, m.Point(facets[i][2]).X
		v := r3.Dot(a, r3.Cross(b, c)) / 6
		vol += v
		cen = r3.Add(cen, r3.Scale(v/4, r3.Add(a, r3.Add(b, c))))
	}
	box := m.Box()
	if diag := r3.Norm(r3.Sub(box.Max, box.Min)); math.Abs(vol) <= utils.NODETOL*diag*diag*diag {
		return &GeometryFailure{TypeName: "DegenerateSolid", Message: "boundary encloses no volume"}
	}
	cen = r3.Scale(1/vol, cen)
	center := m.AddPoint(cen, InnerPoint)
	for _, f := range facets {
		if vol < 0 { // inward facing boundary
			f[1], f[2] = f[2], f[1]
		}
		m.AddVolumeElement(VolumeElement{P: [4]int{f[0], f[2], f[1], center}, Domain: 1})
	}
	if bad := badTets(m, pc.Config.NThreads); len(bad) > 0 {
		m.setBadElements(bad)
		return fmt.Errorf("%d of %d tetrahedra are inverted", len(bad), m.NE())
	}
	for round := 0; round < maxVolumeRounds; round++ {
		if pc.Status.Terminated() {
			return
		}
		if !refineVolume(pc) {
			break
		}
		pc.Status.SetPercent(100 * float64(round+1) / maxVolumeRounds)
	}
	pc.Status.SetPercent(100)
	return
}

func badTets(m *Mesh, nthreads int) []int {
	return utils.ParallelCollect(nthreads, m.NE(), func(k int) (int, bool) {
		return k + 1, tetVolume(m.tetPoints(m.volElems[k])) <= 0
	})
}

// refineVolume splits every tetrahedron larger than the local size, it returns false when none is
func refineVolume(pc *PhaseContext) bool {
	var (
		m     = pc.Mesh
		elems = m.volElems
	)
	split := utils.ParallelCollect(pc.Config.NThreads, len(elems), func(k int) (int, bool) {
		a, b, c, d := m.tetPoints(elems[k])
		h := targetH(pc, centroid(a, b, c, d))
		return k, !math.IsInf(h, 1) && tetVolume(a, b, c, d) > regularTetFactor*h*h*h
	})
	if len(split) == 0 || len(elems)+3*len(split) > maxVolumeElements {
		return false
	}
	var (
		out  = make([]VolumeElement, 0, len(elems)+3*len(split))
		next int
	)
	for k, el := range elems {
		if next < len(split) && split[next] == k {
			next++
			c := m.AddPoint(centroid(m.tetPoints(el)), InnerPoint)
			for i := 0; i < 4; i++ {
				child := el
				child.P[i] = c
				out = append(out, child)
			}
			continue
		}
		out = append(out, el)
	}
	m.volElems = out
	return true
}
