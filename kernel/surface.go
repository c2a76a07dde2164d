package kernel

import (
	"fmt"
	"math"
	"sort"

	"github.com/pradeep-pyro/triangle"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/netgenplugin/utils"
)

const (
	maxRefineRounds  = 16
	maxPointsPerFace = 1 << 18
	areaPerSquaredH  = 0.8660254037844386 // target area A = sqrt(3)/2 h^2 for h = sqrt(2A/sqrt(3))
)

// plane is an orthonormal frame (U, V, N) anchored at Origin
type plane struct {
	Origin, U, V, N r3.Vec
}

func (pl plane) project(p r3.Vec) [2]float64 {
	d := r3.Sub(p, pl.Origin)
	return [2]float64{r3.Dot(d, pl.U), r3.Dot(d, pl.V)}
}

func (pl plane) lift(x [2]float64) r3.Vec {
	return r3.Add(pl.Origin, r3.Add(r3.Scale(x[0], pl.U), r3.Scale(x[1], pl.V)))
}

// fitPlane finds the least squares plane of pts from the eigenvectors of their covariance
func fitPlane(pts []r3.Vec) (pl plane, err error) {
	if len(pts) < 3 {
		return pl, &GeometryFailure{TypeName: "DegenerateFace", Message: fmt.Sprintf("%d boundary points", len(pts))}
	}
	pl.Origin = centroid(pts...)
	cov := mat.NewSymDense(3, nil)
	for _, p := range pts {
		d := r3.Sub(p, pl.Origin)
		x := []float64{d.X, d.Y, d.Z}
		for i := 0; i < 3; i++ {
			for j := i; j < 3; j++ {
				cov.SetSym(i, j, cov.At(i, j)+x[i]*x[j])
			}
		}
	}
	var es mat.EigenSym
	if !es.Factorize(cov, true) {
		return pl, &GeometryFailure{TypeName: "DegenerateFace", Message: "plane fit did not converge"}
	}
	vals := es.Values(nil) // ascending
	if vals[2] <= 0 || vals[1] <= utils.NODETOL*vals[2] {
		return pl, &GeometryFailure{TypeName: "DegenerateFace", Message: "boundary points are collinear"}
	}
	var ev mat.Dense
	es.VectorsTo(&ev)
	col := func(j int) r3.Vec { return r3.Vec{X: ev.At(0, j), Y: ev.At(1, j), Z: ev.At(2, j)} }
	pl.U, pl.V = r3.Unit(col(2)), r3.Unit(col(1))
	pl.N = r3.Cross(pl.U, pl.V)
	return
}

/*
constrainedDelaunay runs the CDT of pts with the given hole seeds. The triangle
wrapper cannot take an empty hole list, so a face without inner loops gets one
seed outside the bounding box of pts, where no triangle can contain it.
*/
func constrainedDelaunay(pts [][2]float64, segs [][2]int32, holes [][2]float64) ([][2]float64, [][3]int32) {
	if len(holes) == 0 {
		holes = [][2]float64{outsideSeed(pts)}
	}
	return triangle.ConstrainedDelaunay(pts, segs, holes)
}

func outsideSeed(pts [][2]float64) [2]float64 {
	var (
		lo = [2]float64{math.Inf(1), math.Inf(1)}
		hi = [2]float64{math.Inf(-1), math.Inf(-1)}
	)
	for _, p := range pts {
		for d := 0; d < 2; d++ {
			lo[d], hi[d] = math.Min(lo[d], p[d]), math.Max(hi[d], p[d])
		}
	}
	if len(pts) == 0 {
		return [2]float64{}
	}
	ext := math.Max(hi[0]-lo[0], hi[1]-lo[1]) + 1
	return [2]float64{hi[0] + ext, hi[1] + ext}
}

func signedArea2D(a, b, c [2]float64) float64 {
	return 0.5 * ((b[0]-a[0])*(c[1]-a[1]) - (c[0]-a[0])*(b[1]-a[1]))
}

// boundaryLoop is one connected component of the segments of a face
type boundaryLoop struct {
	segs [][2]int32
	area float64 // signed, positive when the loop runs counter clockwise
}

/*
meshSurface triangulates every face given by its boundary segments. Each face
is projected onto its best fit plane, triangulated with its boundary as
constraints and refined by centroid insertion until the triangles fit the
local size. Triangles are oriented like the outer boundary loop.
*/
func meshSurface(pc *PhaseContext) (err error) {
	var (
		m     = pc.Mesh
		faces = make(map[int][]int)
		order []int
	)
	for i := 1; i <= m.NSeg(); i++ {
		fnr := m.Segment(i).FaceNr
		if _, ok := faces[fnr]; !ok {
			order = append(order, fnr)
		}
		faces[fnr] = append(faces[fnr], i)
	}
	sort.Ints(order)
	for n, fnr := range order {
		if pc.Status.Terminated() {
			return
		}
		if err = meshFace(pc, fnr, faces[fnr]); err != nil {
			return
		}
		pc.Status.SetPercent(100 * float64(n+1) / float64(len(order)))
	}
	return
}

func meshFace(pc *PhaseContext, faceNr int, segIdx []int) (err error) {
	var (
		m       = pc.Mesh
		local   = make(map[int]int32) // kernel index -> face local index
		kernel  []int
		pts3    []r3.Vec
		segs    [][2]int32
		pl      plane
		holes   [][2]float64
		outer   boundaryLoop
		bndPts  [][2]float64
		pointID = make(map[[2]float64]int)
	)
	for _, si := range segIdx {
		s := m.Segment(si)
		var ls [2]int32
		for j, p := range s.P {
			li, ok := local[p]
			if !ok {
				li = int32(len(kernel))
				local[p] = li
				kernel = append(kernel, p)
				pts3 = append(pts3, m.Point(p).X)
			}
			ls[j] = li
		}
		if ls[0] != ls[1] {
			segs = append(segs, ls)
		}
	}
	if pl, err = fitPlane(pts3); err != nil {
		return
	}
	bndPts = make([][2]float64, len(pts3))
	for i, p := range pts3 {
		bndPts[i] = pl.project(p)
		pointID[bndPts[i]] = kernel[i]
	}
	loops, err := splitLoops(len(bndPts), segs, bndPts)
	if err != nil {
		return
	}
	outer = loops[0]
	for _, lp := range loops[1:] {
		if seed, ok := holeSeed(lp, bndPts); ok {
			holes = append(holes, seed)
		}
	}

	var (
		inserted [][2]float64
		verts    [][2]float64
		tris     [][3]int32
	)
	for round := 0; ; round++ {
		if pc.Status.Terminated() {
			return
		}
		all := append(append([][2]float64{}, bndPts...), inserted...)
		verts, tris = constrainedDelaunay(all, segs, holes)
		if round == maxRefineRounds || len(all) >= maxPointsPerFace {
			break
		}
		var split bool
		for _, t := range tris {
			a, b, c := verts[t[0]], verts[t[1]], verts[t[2]]
			cen := [2]float64{(a[0] + b[0] + c[0]) / 3, (a[1] + b[1] + c[1]) / 3}
			h := targetH(pc, pl.lift(cen))
			if math.IsInf(h, 1) {
				continue
			}
			if math.Abs(signedArea2D(a, b, c)) > areaPerSquaredH*h*h {
				inserted = append(inserted, cen)
				split = true
			}
		}
		if !split {
			break
		}
	}
	if len(tris) == 0 && len(segs) > 0 {
		return &NgException{Message: fmt.Sprintf("surface meshing of face %d produced no elements", faceNr)}
	}

	kidx := make([]int, len(verts))
	for i, v := range verts {
		id, ok := pointID[v]
		if !ok {
			id = m.AddPoint(pl.lift(v), SurfacePoint)
			pointID[v] = id
		}
		kidx[i] = id
	}
	for _, t := range tris {
		p := [3]int{kidx[t[0]], kidx[t[1]], kidx[t[2]]}
		if (signedArea2D(verts[t[0]], verts[t[1]], verts[t[2]]) > 0) != (outer.area > 0) {
			p[1], p[2] = p[2], p[1]
		}
		m.AddSurfaceElement(SurfaceElement{P: p, FaceNr: faceNr})
	}
	return
}

/*
splitLoops groups the segments into connected components, the outer loop
(largest enclosed area) first. Every point of a component must be shared by an
even number of segments, otherwise the boundary is open.
*/
func splitLoops(np int, segs [][2]int32, pts [][2]float64) (loops []boundaryLoop, err error) {
	var (
		parent = make([]int32, np)
		degree = make([]int, np)
	)
	for i := range parent {
		parent[i] = int32(i)
	}
	var find func(i int32) int32
	find = func(i int32) int32 {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	for _, s := range segs {
		degree[s[0]]++
		degree[s[1]]++
		parent[find(s[0])] = find(s[1])
	}
	for i, d := range degree {
		if d%2 != 0 {
			return nil, &NgException{Message: fmt.Sprintf("open boundary at point (%g, %g)", pts[i][0], pts[i][1])}
		}
	}
	var (
		byRoot = make(map[int32]int)
	)
	for _, s := range segs {
		r := find(s[0])
		li, ok := byRoot[r]
		if !ok {
			li = len(loops)
			byRoot[r] = li
			loops = append(loops, boundaryLoop{})
		}
		a, b := pts[s[0]], pts[s[1]]
		loops[li].segs = append(loops[li].segs, s)
		loops[li].area += 0.5 * (a[0]*b[1] - b[0]*a[1])
	}
	sort.SliceStable(loops, func(i, j int) bool {
		return math.Abs(loops[i].area) > math.Abs(loops[j].area)
	})
	return
}

// holeSeed finds a point just inside an inner loop
func holeSeed(lp boundaryLoop, pts [][2]float64) (seed [2]float64, ok bool) {
	sign := 1.
	if lp.area < 0 {
		sign = -1
	}
	for _, s := range lp.segs {
		a, b := pts[s[0]], pts[s[1]]
		dx, dy := b[0]-a[0], b[1]-a[1]
		l := math.Hypot(dx, dy)
		if l == 0 {
			continue
		}
		// left of a counter clockwise loop is inside
		eps := 1.e-3 * l
		seed = [2]float64{
			0.5*(a[0]+b[0]) - sign*eps*dy/l,
			0.5*(a[1]+b[1]) + sign*eps*dx/l,
		}
		if insideLoop(seed, lp, pts) {
			return seed, true
		}
	}
	return seed, false
}

// insideLoop is the even-odd rule over the loop segments
func insideLoop(p [2]float64, lp boundaryLoop, pts [][2]float64) (in bool) {
	for _, s := range lp.segs {
		a, b := pts[s[0]], pts[s[1]]
		if (a[1] > p[1]) != (b[1] > p[1]) {
			x := a[0] + (p[1]-a[1])*(b[0]-a[0])/(b[1]-a[1])
			if p[0] < x {
				in = !in
			}
		}
	}
	return
}
