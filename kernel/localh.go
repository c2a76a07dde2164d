package kernel

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/netgenplugin/types"
)

var inf = math.Inf(1)

type restriction struct {
	p r3.Vec
	h float64
}

/*
LocalH is the local element size field. Each restriction (p, h) caps the size
at p to h and lets it grow linearly with slope grading away from p; the result
is clamped to [minH, globalH].
*/
type LocalH struct {
	box          r3.Box
	grading      float64
	globalH      float64
	minH         float64
	restrictions []restriction
}

func NewLocalH(box r3.Box, grading float64) *LocalH {
	return &LocalH{box: box, grading: grading, globalH: inf}
}

func (lh *LocalH) Box() r3.Box          { return lh.box }
func (lh *LocalH) Grading() float64     { return lh.grading }
func (lh *LocalH) GlobalH() float64     { return lh.globalH }
func (lh *LocalH) MinimalH() float64    { return lh.minH }
func (lh *LocalH) NumRestrictions() int { return len(lh.restrictions) }

// SetGlobalH sets the upper bound of the field, a non-positive h removes it
func (lh *LocalH) SetGlobalH(h float64) {
	if h <= 0 || math.IsNaN(h) {
		h = inf
	}
	lh.globalH = h
}

func (lh *LocalH) SetMinimalH(h float64) {
	lh.minH = math.Max(h, 0)
}

// Restrict caps the size at p to h. Restrictions already implied by the field are dropped.
func (lh *LocalH) Restrict(p r3.Vec, h float64) {
	if !(h > 0) || math.IsInf(h, 1) {
		return
	}
	if lh.rawH(p) <= h {
		return
	}
	lh.restrictions = append(lh.restrictions, restriction{p: p, h: h})
}

func (lh *LocalH) rawH(p r3.Vec) (h float64) {
	h = lh.globalH
	for _, r := range lh.restrictions {
		h = math.Min(h, r.h+lh.grading*r3.Norm(r3.Sub(p, r.p)))
	}
	return
}

func (lh *LocalH) GetH(p r3.Vec) float64 {
	return math.Max(lh.rawH(p), lh.minH)
}

/*
LoadLocalMeshSize reads a mesh size file and restricts the size field with it.
The file holds a point count followed by "x y z h" records, then an optional
line count followed by "x1 y1 z1 x2 y2 z2 h" records. Sizes along a line are
restricted at sample points spaced h apart. An empty filename is a no-op.
*/
func (m *Mesh) LoadLocalMeshSize(filename string) (err error) {
	if filename == "" {
		return
	}
	var file *os.File
	if file, err = os.Open(filename); err != nil {
		return &types.BadParametersError{Reason: "cannot read mesh size file", Err: err}
	}
	defer file.Close()
	if err = m.readLocalMeshSize(file); err != nil {
		return &types.BadParametersError{Reason: fmt.Sprintf("mesh size file %q", filename), Err: err}
	}
	return
}

func (m *Mesh) readLocalMeshSize(r io.Reader) (err error) {
	var (
		sc    = bufio.NewScanner(r)
		count int
		rec   []float64
	)
	sc.Split(bufio.ScanWords)
	readInt := func(what string) (n int, err error) {
		if !sc.Scan() {
			return 0, fmt.Errorf("missing %s", what)
		}
		if n, err = strconv.Atoi(sc.Text()); err != nil {
			return 0, fmt.Errorf("bad %s: %w", what, err)
		}
		if n < 0 {
			return 0, fmt.Errorf("negative %s %d", what, n)
		}
		return
	}
	readRecord := func(section string, i, width int) (vals []float64, err error) {
		vals = make([]float64, width)
		for j := range vals {
			if !sc.Scan() {
				return nil, fmt.Errorf("%s record %d is truncated", section, i+1)
			}
			if vals[j], err = strconv.ParseFloat(sc.Text(), 64); err != nil {
				return nil, fmt.Errorf("%s record %d: %w", section, i+1, err)
			}
		}
		return
	}
	if count, err = readInt("point count"); err != nil {
		return
	}
	for i := 0; i < count; i++ {
		if rec, err = readRecord("point", i, 4); err != nil {
			return
		}
		m.RestrictLocalH(r3.Vec{X: rec[0], Y: rec[1], Z: rec[2]}, rec[3])
	}
	if !sc.Scan() {
		return sc.Err()
	}
	if count, err = strconv.Atoi(sc.Text()); err != nil || count < 0 {
		return fmt.Errorf("bad line count %q", sc.Text())
	}
	for i := 0; i < count; i++ {
		if rec, err = readRecord("line", i, 7); err != nil {
			return
		}
		m.restrictAlongLine(r3.Vec{X: rec[0], Y: rec[1], Z: rec[2]}, r3.Vec{X: rec[3], Y: rec[4], Z: rec[5]}, rec[6])
	}
	return
}

func (m *Mesh) restrictAlongLine(p1, p2 r3.Vec, h float64) {
	if !(h > 0) {
		return
	}
	var (
		length = r3.Norm(r3.Sub(p2, p1))
		n      = int(math.Ceil(length/h)) + 1
	)
	for i := 0; i < n; i++ {
		t := 0.
		if n > 1 {
			t = float64(i) / float64(n-1)
		}
		m.RestrictLocalH(r3.Add(p1, r3.Scale(t, r3.Sub(p2, p1))), h)
	}
}
