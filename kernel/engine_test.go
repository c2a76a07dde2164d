package kernel

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/netgenplugin/types"
)

var (
	cubeCorners = []r3.Vec{
		{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 1, Y: 1, Z: 0}, {X: 0, Y: 1, Z: 0},
		{X: 0, Y: 0, Z: 1}, {X: 1, Y: 0, Z: 1}, {X: 1, Y: 1, Z: 1}, {X: 0, Y: 1, Z: 1},
	}
	// outward facing, counter clockwise seen from outside
	cubeFacets = [][3]int{
		{1, 3, 2}, {1, 4, 3}, {5, 6, 7}, {5, 7, 8},
		{1, 2, 6}, {1, 6, 5}, {4, 8, 7}, {4, 7, 3},
		{1, 5, 8}, {1, 8, 4}, {2, 3, 7}, {2, 7, 6},
	}
)

func addCube(m *Mesh, flip bool) {
	for _, x := range cubeCorners {
		m.AddPoint(x, SurfacePoint)
	}
	for _, f := range cubeFacets {
		if flip {
			f[1], f[2] = f[2], f[1]
		}
		m.AddSurfaceElement(SurfaceElement{P: f, FaceNr: 1})
	}
}

// addSquare adds the boundary of [0,size]^2 at z=0 with n segments per side, counter clockwise
func addSquare(m *Mesh, size float64, n int) {
	addLoop(m, r3.Vec{}, size, n, false)
}

func addLoop(m *Mesh, origin r3.Vec, size float64, n int, clockwise bool) {
	var (
		first = m.NP() + 1
		dirs  = []r3.Vec{{X: 1}, {Y: 1}, {X: -1}, {Y: -1}}
		p     = origin
		h     = size / float64(n)
	)
	if clockwise {
		dirs = []r3.Vec{{Y: 1}, {X: 1}, {Y: -1}, {X: -1}}
	}
	for _, d := range dirs {
		for i := 0; i < n; i++ {
			m.AddPoint(p, EdgePoint)
			p = r3.Add(p, r3.Scale(h, d))
		}
	}
	total := 4 * n
	for i := 0; i < total; i++ {
		m.AddSegment(Segment{P: [2]int{first + i, first + (i+1)%total}, EdgeNr: m.NSeg() + 1, FaceNr: 1})
	}
}

func generate(t *testing.T, cfg KernelConfig, m *Mesh, start, end types.MeshingPhase) error {
	g := acquire(t, cfg, DefaultEngine{})
	defer g.Release()
	return g.GenerateMesh(context.Background(), nil, start, end, m)
}

func checkConforming(t *testing.T, m *Mesh) {
	faces := make(map[types.FaceKey]int)
	for i := 1; i <= m.NE(); i++ {
		p := m.VolumeElement(i).P
		for _, f := range [][3]int{{p[0], p[1], p[2]}, {p[0], p[1], p[3]}, {p[0], p[2], p[3]}, {p[1], p[2], p[3]}} {
			faces[types.NewFaceKey(f)]++
		}
	}
	boundary := make(map[types.FaceKey]bool)
	for i := 1; i <= m.NSE(); i++ {
		boundary[types.NewFaceKey(m.SurfaceElement(i).P)] = true
	}
	for fk, count := range faces {
		if boundary[fk] {
			assert.Equal(t, 1, count, "boundary facet %v", fk)
		} else {
			assert.Equal(t, 2, count, "interior facet %v", fk)
		}
	}
	for fk := range boundary {
		assert.Equal(t, 1, faces[fk])
	}
}

func TestMeshVolumeCube(t *testing.T) {
	for _, flip := range []bool{false, true} {
		for _, nthreads := range []int{1, 4} {
			m := NewMesh()
			addCube(m, flip)
			cfg := KernelConfig{MaxH: 0.5, OptSteps3D: 3, OptErrPow: 2, NThreads: nthreads}
			require.NoError(t, generate(t, cfg, m, types.Phase_MeshVolume, types.Phase_OptimizeVolume))
			assert.Greater(t, m.NE(), 12)
			for i, x := range cubeCorners {
				assert.Equal(t, x, m.Point(i+1).X)
			}
			for i := len(cubeCorners) + 1; i <= m.NP(); i++ {
				assert.Equal(t, InnerPoint, m.Point(i).Type)
			}
			var vol float64
			for i := 1; i <= m.NE(); i++ {
				v := tetVolume(m.tetPoints(m.VolumeElement(i)))
				assert.Greater(t, v, 0.)
				vol += v
			}
			assert.InDelta(t, 1., vol, 1.e-9)
			checkConforming(t, m)
			qs := m.Quality(3, nthreads)
			assert.Equal(t, m.NE(), qs.NumElements)
			assert.Equal(t, 0, qs.NumBad)
			assert.Greater(t, qs.MinQuality, 0.)
			assert.Empty(t, m.BadElements())
		}
	}
}

func TestMeshVolumeSizing(t *testing.T) {
	var counts []int
	for _, maxh := range []float64{2, 0.5, 0.25} {
		m := NewMesh()
		addCube(m, false)
		require.NoError(t, generate(t, KernelConfig{MaxH: maxh, NThreads: 2}, m, types.Phase_MeshVolume, types.Phase_MeshVolume))
		counts = append(counts, m.NE())
	}
	assert.Equal(t, 12, counts[0])
	assert.Less(t, counts[0], counts[1])
	assert.Less(t, counts[1], counts[2])
}

func TestMeshVolumeFailures(t *testing.T) {
	{ // open surface
		m := NewMesh()
		addCube(m, false)
		m.surfElems = m.surfElems[1:]
		err := generate(t, KernelConfig{MaxH: 1}, m, types.Phase_MeshVolume, types.Phase_MeshVolume)
		assert.Equal(t, types.Kind_GenerationFailed, types.KindOf(err))
		assert.Contains(t, err.Error(), "not closed")
	}
	{ // corner dented so deep that the centroid falls outside the solid
		m := NewMesh()
		addCube(m, false)
		m.SetPoint(7, r3.Vec{X: 0.2, Y: 0.2, Z: 0.2})
		err := generate(t, KernelConfig{MaxH: 10, NThreads: 3}, m, types.Phase_MeshVolume, types.Phase_MeshVolume)
		var mge *types.MeshGenerationError
		require.True(t, errors.As(err, &mge))
		assert.Equal(t, types.Kind_GenerationFailed, mge.Kind)
		assert.Equal(t, []int{3, 4, 7, 8, 11, 12}, mge.BadElements)
	}
	{ // no boundary at all
		m := NewMesh()
		require.NoError(t, generate(t, KernelConfig{MaxH: 1}, m, types.Phase_MeshVolume, types.Phase_OptimizeVolume))
		assert.Equal(t, 0, m.NE())
	}
}

func surfaceArea(t *testing.T, m *Mesh) (area float64) {
	for i := 1; i <= m.NSE(); i++ {
		p := m.SurfaceElement(i).P
		a, b, c := m.Point(p[0]).X, m.Point(p[1]).X, m.Point(p[2]).X
		n := r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
		assert.Greater(t, n.Z, 0., "element %d is not counter clockwise", i)
		area += 0.5 * n.Z
	}
	return
}

func TestMeshSurfaceSquare(t *testing.T) {
	for _, optimize := range []bool{false, true} {
		m := NewMesh()
		addSquare(m, 1, 4)
		var (
			nb  = m.NP()
			end = types.Phase_MeshSurface
		)
		if optimize {
			end = types.Phase_OptimizeSurface
		}
		cfg := KernelConfig{MaxH: 0.3, OptSteps2D: 3, OptErrPow: 2, NThreads: 2}
		require.NoError(t, generate(t, cfg, m, types.Phase_MeshSurface, end))
		assert.Greater(t, m.NSE(), 2)
		assert.Greater(t, m.NP(), nb)
		assert.InDelta(t, 1., surfaceArea(t, m), 1.e-9)
		for i := nb + 1; i <= m.NP(); i++ {
			x := m.Point(i).X
			assert.Equal(t, SurfacePoint, m.Point(i).Type)
			assert.InDelta(t, 0., x.Z, 1.e-12)
			assert.True(t, x.X > 0 && x.X < 1 && x.Y > 0 && x.Y < 1)
		}
		qs := m.Quality(2, 2)
		assert.Equal(t, 0, qs.NumBad)
		assert.Equal(t, 1, m.SurfaceElement(1).FaceNr)
	}
}

func TestConstrainedDelaunayWithoutHoles(t *testing.T) {
	pts := [][2]float64{{0, 0}, {2, 0}, {2, 1}, {0, 1}}
	segs := [][2]int32{{0, 1}, {1, 2}, {2, 3}, {3, 0}}
	seed := outsideSeed(pts)
	assert.True(t, seed[0] > 2 && seed[1] > 1)
	verts, tris := constrainedDelaunay(pts, segs, nil)
	require.Len(t, tris, 2)
	var area float64
	for _, tr := range tris {
		area += math.Abs(signedArea2D(verts[tr[0]], verts[tr[1]], verts[tr[2]]))
	}
	assert.InDelta(t, 2., area, 1.e-12)
}

func TestMeshSurfaceWithHole(t *testing.T) {
	m := NewMesh()
	addLoop(m, r3.Vec{}, 3, 3, false)
	addLoop(m, r3.Vec{X: 1, Y: 1}, 1, 1, true)
	require.NoError(t, generate(t, KernelConfig{MaxH: 0.8, NThreads: 1}, m, types.Phase_MeshSurface, types.Phase_MeshSurface))
	assert.InDelta(t, 8., surfaceArea(t, m), 1.e-9)
	for i := 1; i <= m.NSE(); i++ {
		p := m.SurfaceElement(i).P
		c := centroid(m.Point(p[0]).X, m.Point(p[1]).X, m.Point(p[2]).X)
		assert.False(t, c.X > 1 && c.X < 2 && c.Y > 1 && c.Y < 2, "element %d inside the hole", i)
	}
}

func TestMeshSurfaceTilted(t *testing.T) {
	m := NewMesh()
	addSquare(m, 2, 2)
	// rotate the square into the plane x = z
	for i := 1; i <= m.NP(); i++ {
		x := m.Point(i).X
		m.SetPoint(i, r3.Vec{X: x.X / math.Sqrt2, Y: x.Y, Z: x.X / math.Sqrt2})
	}
	require.NoError(t, generate(t, KernelConfig{MaxH: 0.5, NThreads: 1}, m, types.Phase_MeshSurface, types.Phase_MeshSurface))
	var area float64
	for i := 1; i <= m.NSE(); i++ {
		p := m.SurfaceElement(i).P
		a, b, c := m.Point(p[0]).X, m.Point(p[1]).X, m.Point(p[2]).X
		area += 0.5 * r3.Norm(r3.Cross(r3.Sub(b, a), r3.Sub(c, a)))
	}
	assert.InDelta(t, 4., area, 1.e-9)
	for i := 1; i <= m.NP(); i++ {
		x := m.Point(i).X
		assert.InDelta(t, x.X, x.Z, 1.e-9)
	}
}

func TestMeshSurfaceFailures(t *testing.T) {
	{ // collinear boundary
		m := NewMesh()
		for i := 0; i < 3; i++ {
			m.AddPoint(r3.Vec{X: float64(i)}, EdgePoint)
		}
		for _, s := range [][2]int{{1, 2}, {2, 3}, {3, 1}} {
			m.AddSegment(Segment{P: s, FaceNr: 1})
		}
		err := generate(t, KernelConfig{MaxH: 1}, m, types.Phase_MeshSurface, types.Phase_MeshSurface)
		var mge *types.MeshGenerationError
		require.True(t, errors.As(err, &mge))
		assert.Equal(t, types.Kind_GeometryException, mge.Kind)
		assert.Equal(t, "DegenerateFace", mge.TypeName)
	}
	{ // open boundary
		m := NewMesh()
		addSquare(m, 1, 1)
		m.segments = m.segments[:3]
		err := generate(t, KernelConfig{MaxH: 1}, m, types.Phase_MeshSurface, types.Phase_MeshSurface)
		assert.Equal(t, types.Kind_KernelException, types.KindOf(err))
	}
	{ // nothing to mesh
		m := NewMesh()
		require.NoError(t, generate(t, KernelConfig{MaxH: 1}, m, types.Phase_MeshSurface, types.Phase_OptimizeSurface))
		assert.Equal(t, 0, m.NSE())
	}
}

func TestAnalyse(t *testing.T) {
	m := NewMesh()
	addSquare(m, 1, 4)
	cfg := KernelConfig{MaxH: 0.6, MinH: 0.05, Grading: 0.3, UseLocalH: true, NThreads: 1}
	require.NoError(t, generate(t, cfg, m, types.Phase_Analyse, types.Phase_Analyse))
	require.True(t, m.HasLocalH())
	assert.Equal(t, 0.6, m.LocalH().GlobalH())
	assert.Equal(t, 0.05, m.LocalH().MinimalH())
	assert.InDelta(t, 0.25, m.GetH(r3.Vec{X: 0.375}), 1.e-12)
}
