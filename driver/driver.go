package driver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/notargets/netgenplugin/InputParameters"
	"github.com/notargets/netgenplugin/feeder"
	"github.com/notargets/netgenplugin/kernel"
	"github.com/notargets/netgenplugin/logger"
	"github.com/notargets/netgenplugin/mesh"
	"github.com/notargets/netgenplugin/result"
	"github.com/notargets/netgenplugin/shape"
	"github.com/notargets/netgenplugin/sizing"
	"github.com/notargets/netgenplugin/types"
	"github.com/notargets/netgenplugin/utils"
)

// Status is the outcome class of a run
type Status uint8

const (
	Status_OK Status = iota
	Status_Cancelled
	Status_GenerationFailed
	Status_GeometryException
	Status_KernelException
	Status_UnknownException
	Status_BadInputMesh
	Status_BadParameters
	Status_Error
)

func (s Status) String() string {
	switch s {
	case Status_OK:
		return "OK"
	case Status_Cancelled:
		return "Cancelled"
	case Status_GenerationFailed:
		return "GenerationFailed"
	case Status_GeometryException:
		return "GeometryException"
	case Status_KernelException:
		return "KernelException"
	case Status_UnknownException:
		return "UnknownException"
	case Status_BadInputMesh:
		return "BadInputMesh"
	case Status_BadParameters:
		return "BadParameters"
	case Status_Error:
		return "Error"
	}
	return "Unknown"
}

// StatusOf classifies the error returned by Run
func StatusOf(err error) Status {
	var (
		bim *types.BadInputMeshError
		bp  *types.BadParametersError
	)
	switch {
	case err == nil:
		return Status_OK
	case errors.As(err, &bim):
		return Status_BadInputMesh
	case errors.As(err, &bp):
		return Status_BadParameters
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return Status_Cancelled
	}
	switch types.KindOf(err) {
	case types.Kind_Cancelled:
		return Status_Cancelled
	case types.Kind_GenerationFailed:
		return Status_GenerationFailed
	case types.Kind_GeometryException:
		return Status_GeometryException
	case types.Kind_KernelException:
		return Status_KernelException
	case types.Kind_UnknownException:
		return Status_UnknownException
	}
	return Status_Error
}

/*
Request is one meshing call. Mesh holds the boundary elements, Orientation
selects and orients them (nil includes all). Params nil runs with the kernel
defaults. Engine nil selects the built-in engine.
*/
type Request struct {
	Mesher        types.MesherType
	Mesh          *mesh.Mesh
	Shape         *shape.Shape
	Params        *InputParameters.NetgenParams
	Orientation   *feeder.Inclusion
	Observer      kernel.Observer
	Engine        kernel.Engine
	ViscousLayers bool
	RunID         string
}

type Outcome struct {
	RunID       string
	Status      Status
	Message     string
	Phase       types.MeshingPhase
	BadElements []int
	Attempts    int
	Sizing      sizing.Plan
	Feed        feeder.Stats
	Nodes       *feeder.NodeTable
	Delta       *result.Delta
	Quality     kernel.QualityStats
}

func (o *Outcome) OK() bool { return o.Status == Status_OK }

// PhaseBounds is the [start, end] phase interval of a run
func PhaseBounds(mesher types.MesherType, optimize bool) (start, end types.MeshingPhase) {
	if mesher == types.Mesher_NETGEN2D {
		start, end = types.Phase_MeshSurface, types.Phase_MeshSurface
		if optimize {
			end = types.Phase_OptimizeSurface
		}
		return
	}
	start, end = types.Phase_MeshVolume, types.Phase_MeshVolume
	if optimize {
		end = types.Phase_OptimizeVolume
	}
	return
}

type run struct {
	ctx context.Context
	req *Request
	p   *InputParameters.NetgenParams
	g   *kernel.Guard
	out *Outcome
	log *log.Logger
	id  string
}

/*
Run meshes the request under the kernel guard. The returned Outcome is never
nil; on failure its Status classifies the returned error, which is one of
*types.BadInputMeshError, *types.BadParametersError or
*types.MeshGenerationError, or the context error when the kernel could not be
acquired.
*/
func Run(ctx context.Context, req *Request) (out *Outcome, err error) {
	out = &Outcome{}
	defer func() {
		out.Status = StatusOf(err)
		if err != nil {
			out.Message = err.Error()
			var mge *types.MeshGenerationError
			if errors.As(err, &mge) {
				out.Phase = mge.Phase
				out.BadElements = mge.BadElements
			}
		}
	}()
	if req.Mesher.Dim() == 0 {
		return out, fmt.Errorf("unknown mesher %q", req.Mesher)
	}
	if req.Mesh == nil {
		return out, &types.BadInputMeshError{Reason: "no input mesh"}
	}
	r := &run{ctx: ctx, req: req, p: req.Params, out: out, id: req.RunID}
	if r.p == nil {
		r.p = InputParameters.DefaultParams()
	}
	if r.id == "" {
		r.id = uuid.NewString()
	}
	r.log = logger.WithRun(r.id)
	out.RunID = r.id
	if r.g, err = kernel.Acquire(ctx, kernel.NewKernelConfig(r.p), req.Engine); err != nil {
		return
	}
	defer r.g.Release()
	r.g.Status().Observe(req.Observer)
	if req.ViscousLayers {
		r.g.Status().SetPercent(3)
		r.log.Warn("viscous layers are not built by this mesher")
	}
	if req.Mesher == types.Mesher_NETGEN2D {
		err = r.run2D()
	} else {
		err = r.run3D()
	}
	if err != nil {
		r.logFailure(err)
	}
	return
}

func (r *run) feeder() *feeder.Feeder {
	return &feeder.Feeder{
		Host:      r.req.Mesh,
		Shape:     r.req.Shape,
		Inclusion: r.req.Orientation,
	}
}

func (r *run) run3D() (err error) {
	var (
		f  = r.feeder()
		km = r.g.NewMesh()
		nt *feeder.NodeTable
	)
	if r.req.Mesh.NbQuadrangles() > 0 {
		r.g.Status().SetPercent(6)
		f.SplitQuads = true
	}
	t0 := time.Now()
	if nt, r.out.Feed, err = f.FeedTriangles(km); err != nil {
		return
	}
	r.out.Nodes = nt
	logger.Timing("fill_in_ngmesh", time.Since(t0), "run", r.id, "faces", r.out.Feed.Fed, "nodes", nt.NbExisting())
	if r.out.Sizing, err = sizing.Apply3D(r.g, km, r.p, r.req.Shape); err != nil {
		return
	}
	r.log.Info("sizing", "mode", r.out.Sizing.Mode, "maxh", r.out.Sizing.MaxH, "minh", r.out.Sizing.MinH)
	start, end := PhaseBounds(types.Mesher_NETGEN3D, r.p.Optimize)
	t0 = time.Now()
	r.out.Attempts = 1
	err = r.g.GenerateMesh(r.ctx, &kernel.Geometry{Shape: r.req.Shape}, start, end, km)
	logger.Timing("netgen_compute", time.Since(t0), "run", r.id)
	if err != nil {
		return
	}
	r.finish(km, nt, 3)
	return
}

/*
run2D makes at most two attempts: the first reuses the local size field
computed on the fed segments when there is one, the second starts from a
fresh kernel mesh and a size field of the global sizes only.
*/
func (r *run) run2D() (err error) {
	const faceNr = 1
	var (
		f    = r.feeder()
		km   = r.g.NewMesh()
		nt   *feeder.NodeTable
		geom = &kernel.Geometry{Shape: r.req.Shape, FaceNr: faceNr}
	)
	t0 := time.Now()
	if nt, r.out.Feed, err = f.FeedSegments(km, faceNr); err != nil {
		return
	}
	logger.Timing("fill_in_ngmesh", time.Since(t0), "run", r.id, "segments", r.out.Feed.Fed, "nodes", nt.NbExisting())
	if r.out.Sizing, err = sizing.Apply2D(r.g, km, r.p, r.req.Shape); err != nil {
		return
	}
	r.log.Info("sizing", "mode", r.out.Sizing.Mode, "maxh", r.out.Sizing.MaxH, "minh", r.out.Sizing.MinH,
		"local_size", r.out.Sizing.LocalSize)
	start, end := PhaseBounds(types.Mesher_NETGEN2D, r.p.Optimize)
	useLocalSize := r.out.Sizing.LocalSize
	for attempt := 1; attempt <= 2; attempt++ {
		r.out.Attempts = attempt
		if attempt == 2 {
			km = r.g.NewMesh()
			if nt, r.out.Feed, err = f.FeedSegments(km, faceNr); err != nil {
				return
			}
		}
		if !useLocalSize {
			if err = sizing.Reset2D(r.g, km, r.p, r.req.Shape, &r.out.Sizing); err != nil {
				return
			}
		}
		t0 = time.Now()
		err = r.g.GenerateMesh(r.ctx, geom, start, end, km)
		logger.Timing("netgen_compute", time.Since(t0), "run", r.id, "attempt", attempt)
		if err == nil {
			break
		}
		if !useLocalSize || types.IsCancelled(err) {
			return
		}
		r.log.Warn("Need second run", "error", err)
		useLocalSize = false
	}
	r.out.Nodes = nt
	r.finish(km, nt, 2)
	return
}

func (r *run) finish(km *kernel.Mesh, nt *feeder.NodeTable, dim int) {
	r.out.Delta = result.FromKernel(km, nt, dim)
	nt.Extend(km.NP())
	r.out.Quality = km.Quality(dim, r.g.Config().NThreads)
	r.log.Info("mesh generated", "nodes", r.out.Delta.NbTotal, "new_nodes", r.out.Delta.NbNew(),
		"elements", r.out.Delta.NbElements(), "min_quality", r.out.Quality.MinQuality)
	r.log.Debug(utils.GetMemUsage())
}

func (r *run) logFailure(err error) {
	var mge *types.MeshGenerationError
	if !errors.As(err, &mge) {
		r.log.Error("meshing failed", "error", err)
		return
	}
	switch mge.Kind {
	case types.Kind_Cancelled:
		r.log.Warn("meshing cancelled", "task", mge.Task)
	case types.Kind_KernelException:
		r.log.Error("NgException at "+mge.Task, "what", mge.Message)
	case types.Kind_GenerationFailed:
		r.log.Error("Error in GenerateMesh at "+mge.Task, "message", mge.Message,
			"bad_elements", len(mge.BadElements))
	default:
		r.log.Error(mge.Error())
	}
}
