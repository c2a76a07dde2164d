package sizing

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/netgenplugin/InputParameters"
	"github.com/notargets/netgenplugin/kernel"
	"github.com/notargets/netgenplugin/shape"
	"github.com/notargets/netgenplugin/types"
)

// Mode is the single sizing strategy of a run
type Mode uint8

const (
	Mode_Explicit Mode = iota
	Mode_VolumeDriven
	Mode_EdgeLengthDriven
	Mode_Default
)

func (m Mode) String() string {
	switch m {
	case Mode_Explicit:
		return "Explicit"
	case Mode_VolumeDriven:
		return "VolumeDriven"
	case Mode_EdgeLengthDriven:
		return "EdgeLengthDriven"
	case Mode_Default:
		return "Default"
	}
	return "Unknown"
}

/*
Select picks the sizing mode of a parameter record by priority: an explicit
hypothesis wins over a max element volume (area in 2D), which wins over the
length from edges hypothesis, which is only honoured in 2D.
*/
func Select(p *InputParameters.NetgenParams, dim int) Mode {
	switch {
	case p.HasNetgenParam:
		return Mode_Explicit
	case p.HasMaxElementVolumeHyp:
		return Mode_VolumeDriven
	case p.HasLengthFromEdgesHyp && dim == 2:
		return Mode_EdgeLengthDriven
	}
	return Mode_Default
}

// MaxHFromVolume is the edge length of a regular tetrahedron of volume v
func MaxHFromVolume(v float64) float64 {
	return math.Pow(72, 1./6) * math.Cbrt(v)
}

/*
MaxHFromArea is the maxh taken for a target element area a, sqrt(2a/sqrt(3)).
An equilateral triangle of that edge has area a/2.
*/
func MaxHFromArea(a float64) float64 {
	return math.Sqrt(2 * a / math.Sqrt(3))
}

// Plan records the sizing applied to a kernel mesh
type Plan struct {
	Mode      Mode
	MaxH      float64
	MinH      float64
	LocalSize bool   // a local size field was computed from the boundary
	SizeMap   string // mesh size file loaded into the field, empty if none
}

func diameter(box r3.Box) float64 { return r3.Norm(r3.Sub(box.Max, box.Min)) }

/*
defaultMinSize derives minh from the shape, or from the shortest boundary edge
of km when there is no shape, with the same reduction to maxh/3.
*/
func defaultMinSize(km *kernel.Mesh, sh *shape.Shape, maxh float64) float64 {
	if sh != nil && len(sh.Vertices) > 0 {
		return sh.DefaultMinSize(maxh)
	}
	minh := math.Inf(1)
	edge := func(a, b int) {
		if d := r3.Norm(r3.Sub(km.Point(a).X, km.Point(b).X)); d > 0 {
			minh = math.Min(minh, d)
		}
	}
	for i := 1; i <= km.NSeg(); i++ {
		s := km.Segment(i)
		edge(s.P[0], s.P[1])
	}
	for i := 1; i <= km.NSE(); i++ {
		el := km.SurfaceElement(i)
		for j := 0; j < 3; j++ {
			edge(el.P[j], el.P[(j+1)%3])
		}
	}
	if math.IsInf(minh, 1) {
		minh = 1e-3 * diameter(km.Box())
	}
	if maxh > 0 && minh > 0.5*maxh {
		minh = maxh / 3
	}
	return minh
}

func badSize(reason string) error {
	return &types.BadParametersError{Reason: reason}
}

/*
globalSizes computes (maxh, minh) of a run. defaultDivisor is 2 for half the
bounding box diagonal; the 2D run with a common local size field uses 3.
*/
func globalSizes(mode Mode, dim int, km *kernel.Mesh, p *InputParameters.NetgenParams,
	sh *shape.Shape, box r3.Box, defaultDivisor float64) (maxh, minh float64, err error) {
	switch mode {
	case Mode_Explicit:
		maxh = p.MaxH
	case Mode_VolumeDriven:
		if !(p.MaxElementVolume > 0) {
			return 0, 0, badSize("max element size must be positive")
		}
		if dim == 2 {
			maxh = MaxHFromArea(p.MaxElementVolume)
		} else {
			maxh = MaxHFromVolume(p.MaxElementVolume)
		}
	case Mode_EdgeLengthDriven:
		maxh = km.AverageH()
	default:
		maxh = diameter(box) / defaultDivisor
	}
	if mode == Mode_Explicit && p.MinH > 0 {
		minh = p.MinH
	} else {
		minh = defaultMinSize(km, sh, maxh)
	}
	return
}

func setSizes(g *kernel.Guard, maxh, minh float64) {
	g.UpdateConfig(func(cfg *kernel.KernelConfig) {
		cfg.MaxH, cfg.MinH = maxh, minh
	})
}

// loadSizeMap reads the mesh size file into the field of km when the record asks for it
func loadSizeMap(km *kernel.Mesh, p *InputParameters.NetgenParams, plan *Plan) error {
	if !p.HasNetgenParam || !p.HasLocalSize || p.MeshSizeFilename == "" {
		return nil
	}
	if err := km.LoadLocalMeshSize(p.MeshSizeFilename); err != nil {
		return err
	}
	plan.SizeMap = p.MeshSizeFilename
	return nil
}

/*
Apply3D programs the kernel sizes for a volume run on the fed surface km, then
computes the local size field of km from its boundary.
*/
func Apply3D(g *kernel.Guard, km *kernel.Mesh, p *InputParameters.NetgenParams, sh *shape.Shape) (plan Plan, err error) {
	var (
		box = (&kernel.Geometry{Shape: sh}).BoundingBox(km)
	)
	plan.Mode = Select(p, 3)
	if plan.MaxH, plan.MinH, err = globalSizes(plan.Mode, 3, km, p, sh, box, 2); err != nil {
		return
	}
	setSizes(g, plan.MaxH, plan.MinH)
	if plan.Mode == Mode_Explicit && p.HasLocalSize {
		km.SetLocalH(box.Min, box.Max, g.Config().Grading)
		if err = loadSizeMap(km, p, &plan); err != nil {
			return
		}
	}
	if err = g.CalcLocalH(km); err != nil {
		return
	}
	plan.LocalSize = true
	return
}

// commonLocalSize reports whether a 2D run computes one local size field shared by its attempts
func commonLocalSize(p *InputParameters.NetgenParams) bool {
	return !p.HasLengthFromEdgesHyp && !p.HasMaxElementVolumeHyp && p.UseLocalH
}

/*
Apply2D programs the kernel sizes for a surface run on the fed segments of
km. When the record allows it, a local size field is built on km from the
segment lengths and the mesh size file; Plan.LocalSize tells whether the first
attempt may use it.
*/
func Apply2D(g *kernel.Guard, km *kernel.Mesh, p *InputParameters.NetgenParams, sh *shape.Shape) (plan Plan, err error) {
	var (
		box     = (&kernel.Geometry{Shape: sh}).BoundingBox(km)
		common  = commonLocalSize(p)
		divisor = 2.
	)
	plan.Mode = Select(p, 2)
	if common {
		divisor = 3
	}
	if plan.MaxH, plan.MinH, err = globalSizes(plan.Mode, 2, km, p, sh, box, divisor); err != nil {
		return
	}
	setSizes(g, plan.MaxH, plan.MinH)
	if !common {
		return
	}
	cfg := g.Config()
	km.SetLocalH(box.Min, box.Max, cfg.Grading)
	km.SetGlobalH(plan.MaxH)
	km.SetMinimalH(plan.MinH)
	factor := float64(cfg.CloseEdgeFac)
	if factor <= 0 {
		factor = 2
	}
	for i := 1; i <= km.NSeg(); i++ {
		s := km.Segment(i)
		a, b := km.Point(s.P[0]).X, km.Point(s.P[1]).X
		km.RestrictLocalH(r3.Scale(0.5, r3.Add(a, b)), factor*r3.Norm(r3.Sub(b, a)))
	}
	if err = loadSizeMap(km, p, &plan); err != nil {
		return
	}
	plan.LocalSize = true
	return
}

/*
Reset2D gives km a from-scratch local size field for an attempt that does not
reuse the common one: only the global sizes and the size map, over the
bounding box grown by a tenth of its diameter.
*/
func Reset2D(g *kernel.Guard, km *kernel.Mesh, p *InputParameters.NetgenParams, sh *shape.Shape, plan *Plan) error {
	var (
		cfg  = g.Config()
		box  = (&kernel.Geometry{Shape: sh}).BoundingBox(km)
		grow = diameter(box) / 10
		d    = r3.Vec{X: grow, Y: grow, Z: grow}
	)
	km.SetLocalH(r3.Sub(box.Min, d), r3.Add(box.Max, d), cfg.Grading)
	km.SetGlobalH(cfg.MaxH)
	km.SetMinimalH(cfg.MinH)
	plan.LocalSize = false
	plan.SizeMap = ""
	return loadSizeMap(km, p, plan)
}
