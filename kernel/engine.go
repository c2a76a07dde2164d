package kernel

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/netgenplugin/shape"
	"github.com/notargets/netgenplugin/types"
)

// Geometry is what the kernel knows of the CAD shape being meshed
type Geometry struct {
	Shape  *shape.Shape // nil when meshing without a shape
	FaceNr int
}

// BoundingBox is the shape box, or the box of m when there is no shape
func (g *Geometry) BoundingBox(m *Mesh) r3.Box {
	if g != nil && g.Shape != nil {
		if box, ok := g.Shape.BoundingBox(); ok {
			return box
		}
	}
	return m.Box()
}

// PhaseContext carries everything an engine may touch while running one phase
type PhaseContext struct {
	Mesh     *Mesh
	Geometry *Geometry
	Config   *KernelConfig
	Status   *Status
}

/*
Engine implements the meshing phases. An engine reports failures by returning
an error or by panicking; *GeometryFailure and *NgException values are
classified as geometry and kernel exceptions, other errors as generation
failures and other panics as unknown exceptions. Long running phases poll
Status.Terminated and return early when it is set.
*/
type Engine interface {
	RunPhase(pc *PhaseContext, phase types.MeshingPhase) error
}

// DefaultEngine is the built-in planar surface and star-shaped volume mesher
type DefaultEngine struct{}

func (DefaultEngine) RunPhase(pc *PhaseContext, phase types.MeshingPhase) error {
	switch phase {
	case types.Phase_Analyse:
		return analyse(pc)
	case types.Phase_MeshSurface:
		return meshSurface(pc)
	case types.Phase_OptimizeSurface:
		return smooth(pc, 2)
	case types.Phase_MeshVolume:
		return meshVolume(pc)
	case types.Phase_OptimizeVolume:
		return smooth(pc, 3)
	}
	return fmt.Errorf("unknown meshing phase %d", phase)
}

func analyse(pc *PhaseContext) error {
	var (
		m   = pc.Mesh
		cfg = pc.Config
	)
	if !m.HasLocalH() {
		box := pc.Geometry.BoundingBox(m)
		m.SetLocalH(box.Min, box.Max, cfg.Grading)
	}
	m.SetGlobalH(cfg.MaxH)
	m.SetMinimalH(cfg.MinH)
	if cfg.UseLocalH {
		m.CalcLocalH(cfg.Grading)
	}
	return nil
}

// targetH is the element size wanted at p, bounded by the global maxh
func targetH(pc *PhaseContext, p r3.Vec) float64 {
	h := pc.Mesh.GetH(p)
	if pc.Config.MaxH > 0 && pc.Config.MaxH < h {
		h = pc.Config.MaxH
	}
	return h
}
