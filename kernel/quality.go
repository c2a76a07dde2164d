package kernel

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/netgenplugin/utils"
)

// triQuality is 1 for an equilateral triangle, <= 0 when the triangle is flipped against ref
func triQuality(a, b, c, ref r3.Vec) float64 {
	var (
		n    = r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
		area = 0.5 * r3.Dot(n, r3.Unit(ref))
		l2   = r3.Norm2(r3.Sub(b, a)) + r3.Norm2(r3.Sub(c, b)) + r3.Norm2(r3.Sub(a, c))
	)
	if l2 == 0 {
		return 0
	}
	return 4 * math.Sqrt(3) * area / l2
}

// tetQuality is 1 for a regular tetrahedron, <= 0 when the tetrahedron is inverted
func tetQuality(a, b, c, d r3.Vec) float64 {
	var l2 float64
	pts := [4]r3.Vec{a, b, c, d}
	for i := 0; i < 4; i++ {
		for j := i + 1; j < 4; j++ {
			l2 += r3.Norm2(r3.Sub(pts[j], pts[i]))
		}
	}
	if l2 == 0 {
		return 0
	}
	lrms := math.Sqrt(l2 / 6)
	return 6 * math.Sqrt2 * tetVolume(a, b, c, d) / (lrms * lrms * lrms)
}

type QualityStats struct {
	NumElements int
	MinQuality  float64
	AvgQuality  float64
	NumBad      int // elements with quality <= 0
}

// Quality measures the volume elements (dim 3) or the surface elements (dim 2) over nthreads partitions
func (m *Mesh) Quality(dim, nthreads int) (qs QualityStats) {
	var (
		n       = m.NSE()
		quality func(k int) float64
	)
	if dim == 3 {
		n = m.NE()
		quality = func(k int) float64 { return tetQuality(m.tetPoints(m.volElems[k])) }
	} else {
		normal := r3.Vec{Z: 1}
		if n > 0 {
			var pts []r3.Vec
			for _, p := range m.points {
				pts = append(pts, p.X)
			}
			if pl, err := fitPlane(pts); err == nil {
				normal = pl.N
			}
		}
		quality = func(k int) float64 {
			p := m.surfElems[k].P
			a, b, c := m.Point(p[0]).X, m.Point(p[1]).X, m.Point(p[2]).X
			return triQuality(a, b, c, normal)
		}
	}
	qs.NumElements = n
	if n == 0 {
		return
	}
	var (
		vals = utils.ParallelCollect(nthreads, n, func(k int) (float64, bool) { return quality(k), true })
		sign = 1.
		sum  float64
	)
	for _, q := range vals {
		sum += q
	}
	if dim == 2 && sum < 0 { // plane normal opposite to the element orientation
		sign = -1
	}
	qs.MinQuality = math.Inf(1)
	for _, q := range vals {
		q *= sign
		qs.MinQuality = math.Min(qs.MinQuality, q)
		qs.AvgQuality += q
		if q <= 0 {
			qs.NumBad++
		}
	}
	qs.AvgQuality /= float64(n)
	return
}
