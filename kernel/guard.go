package kernel

import (
	"context"
	"errors"
	"fmt"

	"github.com/notargets/netgenplugin/types"
)

// GeometryFailure is raised by the geometry layer of an engine
type GeometryFailure struct {
	TypeName string
	Message  string
}

func (e *GeometryFailure) Error() string {
	if e.Message == "" {
		return e.TypeName
	}
	return e.TypeName + ": " + e.Message
}

// NgException is raised by the meshing layer of an engine
type NgException struct {
	Message string
}

func (e *NgException) Error() string { return e.Message }

// the kernel parameter block and meshes are single-owner: one Guard at a time
var kernelSlot = make(chan struct{}, 1)

// Multithread is the status block of the kernel, shared by all runs of the process
var Multithread = &Status{}

/*
Guard owns the kernel for one meshing run. It holds the process-wide kernel
slot from Acquire until Release, and is the only writer of the kernel
parameter block. All engine calls go through CalcLocalH and GenerateMesh,
which translate every engine failure into a *types.MeshGenerationError.
*/
type Guard struct {
	cfg      KernelConfig
	engine   Engine
	status   *Status
	meshes   []*Mesh
	released bool
}

// Acquire waits for the kernel slot, giving up when ctx is done
func Acquire(ctx context.Context, cfg KernelConfig, engine Engine) (g *Guard, err error) {
	if engine == nil {
		engine = DefaultEngine{}
	}
	select {
	case kernelSlot <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for the meshing kernel: %w", ctx.Err())
	}
	Multithread.Reset()
	g = &Guard{
		cfg:    cfg,
		engine: engine,
		status: Multithread,
	}
	return
}

// Release frees every kernel mesh and the kernel slot. It is safe to call more than once.
func (g *Guard) Release() {
	if g == nil || g.released {
		return
	}
	for _, m := range g.meshes {
		m.DeleteMesh()
		m.localH = nil
	}
	g.meshes = nil
	g.status.ClearObservers()
	g.released = true
	<-kernelSlot
}

// NewMesh allocates a kernel mesh owned by the guard
func (g *Guard) NewMesh() *Mesh {
	m := NewMesh()
	g.meshes = append(g.meshes, m)
	return m
}

func (g *Guard) Status() *Status { return g.status }

// Config returns a copy of the active parameter block
func (g *Guard) Config() KernelConfig { return g.cfg }

// UpdateConfig applies fn to the active parameter block
func (g *Guard) UpdateConfig(fn func(cfg *KernelConfig)) { fn(&g.cfg) }

// CalcLocalH attaches a local size field derived from the boundary elements of m
func (g *Guard) CalcLocalH(m *Mesh) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = classify(r, types.Phase_Analyse, true)
		}
	}()
	if !m.HasLocalH() {
		m.SetLocalH(m.Box().Min, m.Box().Max, g.cfg.Grading)
	}
	m.SetGlobalH(g.cfg.MaxH)
	m.SetMinimalH(g.cfg.MinH)
	m.CalcLocalH(g.cfg.Grading)
	return
}

/*
GenerateMesh runs the engine over the phases [start, end] on m. Cancellation of
ctx sets the terminate flag of the status block; a terminated run always
reports Kind_Cancelled, whatever the engine returned.
*/
func (g *Guard) GenerateMesh(ctx context.Context, geom *Geometry, start, end types.MeshingPhase, m *Mesh) (err error) {
	if ctx.Err() != nil {
		g.status.Cancel()
	}
	stop := context.AfterFunc(ctx, g.status.Cancel)
	defer stop()
	if geom == nil {
		geom = &Geometry{}
	}
	for phase := start; phase <= end; phase++ {
		if g.status.Terminated() {
			return cancelled(phase)
		}
		g.status.SetTask(phase.Task())
		if err = g.runPhase(geom, phase, m); err != nil {
			if g.status.Terminated() {
				return cancelled(phase)
			}
			var mge *types.MeshGenerationError
			if errors.As(err, &mge) && len(mge.BadElements) == 0 {
				mge.BadElements = m.BadElements()
			}
			return
		}
	}
	if g.status.Terminated() {
		return cancelled(end)
	}
	return
}

func (g *Guard) runPhase(geom *Geometry, phase types.MeshingPhase, m *Mesh) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = classify(r, phase, true)
		}
	}()
	pc := &PhaseContext{
		Mesh:     m,
		Geometry: geom,
		Config:   &g.cfg,
		Status:   g.status,
	}
	if err = g.engine.RunPhase(pc, phase); err != nil {
		return classify(err, phase, false)
	}
	return
}

func cancelled(phase types.MeshingPhase) error {
	return &types.MeshGenerationError{Kind: types.Kind_Cancelled, Phase: phase, Task: phase.Task()}
}

/*
classify converts a recovered panic value or a returned engine error into a
MeshGenerationError. Geometry and kernel failures keep their kind either way;
any other returned error is a generation failure, any other panic is unknown.
*/
func classify(v interface{}, phase types.MeshingPhase, panicked bool) error {
	var (
		mge = &types.MeshGenerationError{Phase: phase, Task: phase.Task()}
		gf  *GeometryFailure
		ng  *NgException
	)
	err, isErr := v.(error)
	switch {
	case isErr && errors.As(err, &mge):
		return mge
	case isErr && errors.As(err, &gf):
		mge.Kind, mge.TypeName, mge.Message = types.Kind_GeometryException, gf.TypeName, gf.Message
	case isErr && errors.As(err, &ng):
		mge.Kind, mge.Message = types.Kind_KernelException, ng.Message
	case isErr && !panicked:
		mge.Kind, mge.Message = types.Kind_GenerationFailed, err.Error()
	default:
		mge.Kind, mge.TypeName, mge.Message = types.Kind_UnknownException, fmt.Sprintf("%T", v), fmt.Sprint(v)
	}
	return mge
}
