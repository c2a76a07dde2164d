package kernel

import (
	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/netgenplugin/utils"
)

/*
smooth runs optsteps Laplacian smoothing passes over the points the engine
created: each point moves to the mean of its neighbours when that lowers the
summed error (1/quality)^opterrpow of its incident elements and inverts none.
Fed boundary points never move.
*/
func smooth(pc *PhaseContext, dim int) error {
	var (
		m       = pc.Mesh
		steps   = pc.Config.optSteps(dim)
		nel     = m.NSE()
		movable = SurfacePoint
		nodesOf = func(k int) []int { return m.surfElems[k].P[:] }
	)
	if dim == 3 {
		nel, movable = m.NE(), InnerPoint
		nodesOf = func(k int) []int { return m.volElems[k].P[:] }
	}
	if steps <= 0 || nel == 0 {
		return nil
	}
	var (
		np       = m.NP()
		adj      = sparse.NewDOK(np, np)
		incident = make([][]int, np+1)
		refs     = make([]r3.Vec, nel)
	)
	for k := 0; k < nel; k++ {
		p := nodesOf(k)
		for a := range p {
			incident[p[a]] = append(incident[p[a]], k)
			for b := a + 1; b < len(p); b++ {
				adj.Set(p[a]-1, p[b]-1, 1)
				adj.Set(p[b]-1, p[a]-1, 1)
			}
		}
		if dim == 2 {
			a, b, c := m.Point(p[0]).X, m.Point(p[1]).X, m.Point(p[2]).X
			refs[k] = r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
		}
	}
	var (
		raw      = adj.ToCSR().RawMatrix()
		errorPow = pc.Config.OptErrPow
	)
	if errorPow < 1 {
		errorPow = 1
	}
	localError := func(elems []int) (sum float64, valid bool) {
		for _, k := range elems {
			var q float64
			p := nodesOf(k)
			if dim == 2 {
				q = triQuality(m.Point(p[0]).X, m.Point(p[1]).X, m.Point(p[2]).X, refs[k])
			} else {
				q = tetQuality(m.Point(p[0]).X, m.Point(p[1]).X, m.Point(p[2]).X, m.Point(p[3]).X)
			}
			if q <= 0 {
				return 0, false
			}
			sum += utils.POW(1/q, errorPow)
		}
		return sum, true
	}
	for step := 0; step < steps; step++ {
		if pc.Status.Terminated() {
			return nil
		}
		for i := 1; i <= np; i++ {
			if m.Point(i).Type != movable {
				continue
			}
			nbrs := raw.Ind[raw.Indptr[i-1]:raw.Indptr[i]]
			if len(nbrs) == 0 {
				continue
			}
			var avg r3.Vec
			for _, j := range nbrs {
				avg = r3.Add(avg, m.Point(j+1).X)
			}
			avg = r3.Scale(1/float64(len(nbrs)), avg)
			old := m.Point(i).X
			before, _ := localError(incident[i])
			m.SetPoint(i, avg)
			if after, ok := localError(incident[i]); !ok || after > before {
				m.SetPoint(i, old)
			}
		}
		pc.Status.SetPercent(100 * float64(step+1) / float64(steps))
	}
	return nil
}
