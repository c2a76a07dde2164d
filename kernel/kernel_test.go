package kernel

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/notargets/netgenplugin/InputParameters"
	"github.com/notargets/netgenplugin/types"
)

type engineFunc func(pc *PhaseContext, phase types.MeshingPhase) error

func (f engineFunc) RunPhase(pc *PhaseContext, phase types.MeshingPhase) error { return f(pc, phase) }

func acquire(t *testing.T, cfg KernelConfig, engine Engine) *Guard {
	g, err := Acquire(context.Background(), cfg, engine)
	require.NoError(t, err)
	t.Cleanup(g.Release)
	return g
}

func TestKernelConfig(t *testing.T) {
	p := InputParameters.DefaultParams()
	p.NbThreads = 4
	p.MaxH, p.MinH = 12.5, 0.5
	p.MeshSizeFilename = "sizes.txt"
	cfg := NewKernelConfig(p)
	assert.Equal(t, 4, cfg.NThreads)
	assert.True(t, cfg.ParallelMeshing)
	assert.Equal(t, 12.5, cfg.MaxH)
	assert.Equal(t, 0.5, cfg.MinH)
	assert.Equal(t, p.Grading, cfg.Grading)
	assert.Equal(t, p.OptSteps3D, cfg.optSteps(3))
	assert.Equal(t, p.OptSteps2D, cfg.optSteps(2))
	assert.Equal(t, "sizes.txt", cfg.MeshSizeFilename)
	// knobs only a pluggable engine reads are still carried
	assert.Equal(t, p.SegmentsPerEdge, cfg.SegmentsPerEdge)
	assert.Equal(t, p.CurvatureSafety, cfg.CurvatureSafety)
	assert.Equal(t, p.SecondOrder, cfg.SecondOrder)
	assert.Equal(t, p.Quad, cfg.Quad)
	assert.Equal(t, p.MergeSolids, cfg.MergeSolids)
	assert.Equal(t, p.ElSizeWeight, cfg.ElSizeWeight)
	assert.Equal(t, p.Delaunay, cfg.Delaunay)
	assert.Equal(t, p.CheckOverlap, cfg.CheckOverlap)
	assert.Equal(t, p.CheckChartBoundary, cfg.CheckChartBoundary)

	p.NbThreads = 0
	cfg = NewKernelConfig(p)
	assert.Equal(t, runtime.NumCPU(), cfg.NThreads)

	t.Setenv(DisableMultithreadingEnv, "1")
	p.NbThreads = 8
	cfg = NewKernelConfig(p)
	assert.Equal(t, 1, cfg.NThreads)
	assert.False(t, cfg.ParallelMeshing)
}

func TestStatus(t *testing.T) {
	var (
		s     Status
		calls []float64
		tasks []string
	)
	s.Observe(func(task string, percent float64) {
		tasks = append(tasks, task)
		calls = append(calls, percent)
	})
	s.Observe(nil)
	s.SetTask("Volume meshing")
	s.SetPercent(10)
	s.SetPercent(10)
	s.SetPercent(55)
	assert.Equal(t, []float64{10, 55}, calls)
	assert.Equal(t, []string{"Volume meshing", "Volume meshing"}, tasks)
	assert.Equal(t, 55., s.Percent())
	assert.False(t, s.Terminated())
	s.Cancel()
	assert.True(t, s.Terminated())
	s.Reset()
	assert.False(t, s.Terminated())
	assert.Equal(t, "", s.Task())
	assert.Equal(t, 0., s.Percent())
	s.ClearObservers()
	s.SetPercent(70)
	assert.Len(t, calls, 2)
}

func TestLocalH(t *testing.T) {
	lh := NewLocalH(r3.Box{Max: r3.Vec{X: 10, Y: 10, Z: 10}}, 0.5)
	assert.True(t, lh.GetH(r3.Vec{}) > 1.e300)
	lh.SetGlobalH(4)
	lh.SetMinimalH(0.25)
	assert.Equal(t, 4., lh.GetH(r3.Vec{X: 5}))
	lh.Restrict(r3.Vec{}, 1)
	assert.Equal(t, 1, lh.NumRestrictions())
	assert.InDelta(t, 1., lh.GetH(r3.Vec{}), 1.e-12)
	assert.InDelta(t, 2., lh.GetH(r3.Vec{X: 2}), 1.e-12)
	assert.InDelta(t, 4., lh.GetH(r3.Vec{X: 9}), 1.e-12)
	// implied by the existing restriction, not stored
	lh.Restrict(r3.Vec{X: 1}, 3)
	assert.Equal(t, 1, lh.NumRestrictions())
	lh.Restrict(r3.Vec{}, 0.1)
	assert.Equal(t, 0.25, lh.GetH(r3.Vec{}))
	lh.Restrict(r3.Vec{}, -1)
	assert.Equal(t, 2, lh.NumRestrictions())
	lh.SetGlobalH(0)
	assert.True(t, lh.GlobalH() > 1.e300)
}

func TestLoadLocalMeshSize(t *testing.T) {
	dir := t.TempDir()
	write := func(name, text string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(text), 0644))
		return path
	}
	m := NewMesh()
	m.SetGlobalH(10)
	require.NoError(t, m.LoadLocalMeshSize(""))
	require.NoError(t, m.LoadLocalMeshSize(write("points.msz", "2\n0 0 0 0.5\n10 0 0 1.5\n")))
	assert.Equal(t, 2, m.LocalH().NumRestrictions())
	assert.InDelta(t, 0.5, m.GetH(r3.Vec{}), 1.e-12)
	assert.InDelta(t, 1.5, m.GetH(r3.Vec{X: 10}), 1.e-12)

	m = NewMesh()
	m.SetGlobalH(10)
	require.NoError(t, m.LoadLocalMeshSize(write("lines.msz", "0\n1\n0 0 0 4 0 0 1\n")))
	assert.Equal(t, 5, m.LocalH().NumRestrictions())
	assert.InDelta(t, 1., m.GetH(r3.Vec{X: 3}), 1.e-12)

	for name, text := range map[string]string{
		"empty.msz":     "",
		"short.msz":     "2\n0 0 0 0.5\n1 1\n",
		"nonnum.msz":    "1\n0 0 zero 0.5\n",
		"badcount.msz":  "x\n",
		"negative.msz":  "-1\n",
		"badlines.msz":  "0\nlines\n",
		"shortline.msz": "0\n1\n0 0 0 1 1 1\n",
	} {
		err := NewMesh().LoadLocalMeshSize(write(name, text))
		var bpe *types.BadParametersError
		assert.True(t, errors.As(err, &bpe), name)
	}
	err := NewMesh().LoadLocalMeshSize(filepath.Join(dir, "missing.msz"))
	var bpe *types.BadParametersError
	require.True(t, errors.As(err, &bpe))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestNativeMesh(t *testing.T) {
	m := NewMesh()
	assert.Equal(t, r3.Box{}, m.Box())
	assert.Equal(t, 0., m.AverageH())
	i1 := m.AddPoint(r3.Vec{X: -1}, EdgePoint)
	i2 := m.AddPoint(r3.Vec{X: 1, Y: 2, Z: 3}, EdgePoint)
	assert.Equal(t, 1, i1)
	assert.Equal(t, 2, i2)
	m.AddSegment(Segment{P: [2]int{1, 2}, EdgeNr: 1, FaceNr: 1})
	assert.InDelta(t, r3.Norm(r3.Vec{X: 2, Y: 2, Z: 3}), m.AverageH(), 1.e-12)
	assert.Equal(t, r3.Box{Min: r3.Vec{X: -1}, Max: r3.Vec{X: 1, Y: 2, Z: 3}}, m.Box())
	assert.Equal(t, 1, m.AddFaceDescriptor(FaceDescriptor{SurfNr: 1}))
	assert.Panics(t, func() { m.AddSegment(Segment{P: [2]int{1, 3}}) })
	assert.Panics(t, func() { m.AddSurfaceElement(SurfaceElement{P: [3]int{0, 1, 2}}) })

	m.SetGlobalH(2)
	m.DeleteMesh()
	assert.Equal(t, 0, m.NP())
	assert.Equal(t, 0, m.NSeg())
	assert.Empty(t, m.FaceDescriptors())
	assert.True(t, m.HasLocalH())
	assert.Equal(t, 2., m.GetH(r3.Vec{}))
}

func TestGuardExclusive(t *testing.T) {
	g1, err := Acquire(context.Background(), KernelConfig{}, nil)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = Acquire(ctx, KernelConfig{}, nil)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	done := make(chan *Guard)
	go func() {
		g2, err := Acquire(context.Background(), KernelConfig{}, nil)
		if err != nil {
			close(done)
			return
		}
		done <- g2
	}()
	g1.NewMesh().AddPoint(r3.Vec{}, FixedPoint)
	g1.Release()
	g1.Release()
	g2 := <-done
	require.NotNil(t, g2)
	g2.Release()
}

func TestGuardConfig(t *testing.T) {
	g := acquire(t, KernelConfig{MaxH: 1}, nil)
	g.UpdateConfig(func(cfg *KernelConfig) { cfg.MaxH = 3.634 })
	assert.Equal(t, 3.634, g.Config().MaxH)
	assert.Same(t, Multithread, g.Status())
}

func TestGenerateMeshClassification(t *testing.T) {
	run := func(engine Engine) error {
		g := acquire(t, KernelConfig{NThreads: 1}, engine)
		defer g.Release()
		return g.GenerateMesh(context.Background(), nil, types.Phase_MeshVolume, types.Phase_OptimizeVolume, g.NewMesh())
	}
	kindOf := func(err error) (mge *types.MeshGenerationError) {
		require.True(t, errors.As(err, &mge))
		return
	}
	{ // returned error
		err := run(engineFunc(func(pc *PhaseContext, phase types.MeshingPhase) error {
			if phase == types.Phase_OptimizeVolume {
				return errors.New("no convergence")
			}
			return nil
		}))
		mge := kindOf(err)
		assert.Equal(t, types.Kind_GenerationFailed, mge.Kind)
		assert.Equal(t, types.Phase_OptimizeVolume, mge.Phase)
		assert.Equal(t, "Error in mesh generation at Volume optimization: no convergence", err.Error())
		assert.False(t, types.IsCancelled(err))
	}
	{ // geometry failure
		err := run(engineFunc(func(pc *PhaseContext, phase types.MeshingPhase) error {
			panic(&GeometryFailure{TypeName: "Standard_OutOfRange", Message: "face index"})
		}))
		mge := kindOf(err)
		assert.Equal(t, types.Kind_GeometryException, mge.Kind)
		assert.Equal(t, "Standard_OutOfRange", mge.TypeName)
		assert.Equal(t, "Exception in mesh generation at Volume meshing: Standard_OutOfRange: face index", err.Error())
	}
	{ // kernel exception, returned or raised
		for _, raise := range []bool{true, false} {
			err := run(engineFunc(func(pc *PhaseContext, phase types.MeshingPhase) error {
				if raise {
					panic(&NgException{Message: "Stop meshing since surface mesh not consistent"})
				}
				return &NgException{Message: "Stop meshing since surface mesh not consistent"}
			}))
			mge := kindOf(err)
			assert.Equal(t, types.Kind_KernelException, mge.Kind)
			assert.Equal(t, "Stop meshing since surface mesh not consistent", mge.Message)
		}
	}
	{ // anything else
		err := run(engineFunc(func(pc *PhaseContext, phase types.MeshingPhase) error {
			var pts []int
			_ = pts[3]
			return nil
		}))
		assert.Equal(t, types.Kind_UnknownException, kindOf(err).Kind)
		err = run(engineFunc(func(pc *PhaseContext, phase types.MeshingPhase) error { panic("boom") }))
		mge := kindOf(err)
		assert.Equal(t, types.Kind_UnknownException, mge.Kind)
		assert.Equal(t, "string", mge.TypeName)
	}
	{ // bad elements are carried by the failure
		err := run(engineFunc(func(pc *PhaseContext, phase types.MeshingPhase) error {
			pc.Mesh.setBadElements([]int{2, 5})
			return errors.New("inverted elements")
		}))
		assert.Equal(t, []int{2, 5}, kindOf(err).BadElements)
		assert.Contains(t, err.Error(), "(2 bad elements)")
	}
	{ // cancellation wins over the engine result
		err := run(engineFunc(func(pc *PhaseContext, phase types.MeshingPhase) error {
			pc.Status.Cancel()
			return errors.New("interrupted")
		}))
		assert.True(t, types.IsCancelled(err))
		var phases []types.MeshingPhase
		err = run(engineFunc(func(pc *PhaseContext, phase types.MeshingPhase) error {
			phases = append(phases, phase)
			pc.Status.Cancel()
			return nil
		}))
		assert.True(t, types.IsCancelled(err))
		assert.Equal(t, []types.MeshingPhase{types.Phase_MeshVolume}, phases)
	}
	{ // a done context cancels before the first phase
		var called bool
		g := acquire(t, KernelConfig{}, engineFunc(func(pc *PhaseContext, phase types.MeshingPhase) error {
			called = true
			return nil
		}))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := g.GenerateMesh(ctx, nil, types.Phase_MeshVolume, types.Phase_MeshVolume, g.NewMesh())
		assert.True(t, types.IsCancelled(err))
		assert.False(t, called)
		g.Release()
	}
	{ // success
		var phases []types.MeshingPhase
		err := run(engineFunc(func(pc *PhaseContext, phase types.MeshingPhase) error {
			phases = append(phases, phase)
			assert.Equal(t, phase.Task(), pc.Status.Task())
			return nil
		}))
		assert.NoError(t, err)
		assert.Equal(t, []types.MeshingPhase{types.Phase_MeshVolume, types.Phase_OptimizeVolume}, phases)
	}
}

func TestCalcLocalH(t *testing.T) {
	g := acquire(t, KernelConfig{MaxH: 5, MinH: 0.01, Grading: 0.3}, nil)
	m := g.NewMesh()
	addSquare(m, 1, 4)
	require.NoError(t, g.CalcLocalH(m))
	require.True(t, m.HasLocalH())
	assert.Equal(t, 5., m.LocalH().GlobalH())
	assert.InDelta(t, 0.25, m.GetH(r3.Vec{X: 0.125}), 1.e-12)
	assert.True(t, m.GetH(r3.Vec{X: 0.5, Y: 0.5}) > 0.25)
}
