package kernel

import (
	"runtime"

	"github.com/spf13/viper"

	"github.com/notargets/netgenplugin/InputParameters"
)

// DisableMultithreadingEnv forces a single kernel thread when set to any non-empty value
const DisableMultithreadingEnv = "SALOME_NETGEN_DISABLE_MULTITHREADING"

/*
KernelConfig is the kernel's parameter block. Nothing in the kernel reads
process globals: a copy of this value is handed to the Guard at acquisition
and every engine phase receives it explicitly.

DefaultEngine does not read SegmentsPerEdge, CurvatureSafety, SecondOrder,
Quad, MergeSolids, ElSizeWeight, Delaunay, CheckOverlap, CheckChartBoundary or
ParallelMeshing; they are passed through for pluggable engines.
*/
type KernelConfig struct {
	MaxH               float64
	MinH               float64
	SegmentsPerEdge    float64
	Grading            float64
	CurvatureSafety    float64
	SecondOrder        int
	Quad               int
	UseLocalH          bool
	MergeSolids        bool
	OptSteps2D         int
	OptSteps3D         int
	ElSizeWeight       float64
	OptErrPow          int
	Delaunay           bool
	CheckOverlap       bool
	CheckChartBoundary bool
	MeshSizeFilename   string
	CloseEdgeFac       int
	NThreads           int
	ParallelMeshing    bool
}

// NewKernelConfig copies the meshing knobs of a parameter record into a kernel parameter block
func NewKernelConfig(p *InputParameters.NetgenParams) (cfg KernelConfig) {
	cfg = KernelConfig{
		MaxH:               p.MaxH,
		MinH:               p.MinH,
		SegmentsPerEdge:    p.SegmentsPerEdge,
		Grading:            p.Grading,
		CurvatureSafety:    p.CurvatureSafety,
		SecondOrder:        p.SecondOrder,
		Quad:               p.Quad,
		UseLocalH:          p.UseLocalH,
		MergeSolids:        p.MergeSolids,
		OptSteps2D:         p.OptSteps2D,
		OptSteps3D:         p.OptSteps3D,
		ElSizeWeight:       p.ElSizeWeight,
		OptErrPow:          p.OptErrPow,
		Delaunay:           p.Delaunay,
		CheckOverlap:       p.CheckOverlap,
		CheckChartBoundary: p.CheckChartBoundary,
		MeshSizeFilename:   p.MeshSizeFilename,
		CloseEdgeFac:       p.CloseEdgeFac,
		NThreads:           p.NbThreads,
	}
	if cfg.NThreads <= 0 {
		cfg.NThreads = runtime.NumCPU()
	}
	if multithreadingDisabled() {
		cfg.NThreads = 1
	}
	cfg.ParallelMeshing = cfg.NThreads > 1
	return
}

func multithreadingDisabled() bool {
	v := viper.New()
	if err := v.BindEnv("disable_multithreading", DisableMultithreadingEnv); err != nil {
		return false
	}
	return v.IsSet("disable_multithreading")
}

// optSteps is the number of smoothing passes configured for a mesh dimension
func (cfg *KernelConfig) optSteps(dim int) int {
	if dim == 2 {
		return cfg.OptSteps2D
	}
	return cfg.OptSteps3D
}
