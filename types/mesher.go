package types

type MesherType uint8

const (
	Mesher_None MesherType = iota
	Mesher_NETGEN3D
	Mesher_NETGEN2D
)

var MesherNameMap = map[string]MesherType{
	"NETGEN3D": Mesher_NETGEN3D,
	"NETGEN2D": Mesher_NETGEN2D,
}

func (m MesherType) String() string {
	switch m {
	case Mesher_NETGEN3D:
		return "NETGEN3D"
	case Mesher_NETGEN2D:
		return "NETGEN2D"
	}
	return "None"
}

// Dim is the dimension of the elements the mesher creates
func (m MesherType) Dim() int {
	switch m {
	case Mesher_NETGEN3D:
		return 3
	case Mesher_NETGEN2D:
		return 2
	}
	return 0
}

func NewMesherType(name string) (MesherType, bool) {
	m, ok := MesherNameMap[name]
	return m, ok
}

/*
MeshingPhase numbers the kernel pipeline stages. A generation call runs every
phase in the closed interval [start, end], in numerical order.
*/
type MeshingPhase uint8

const (
	Phase_Analyse MeshingPhase = iota + 1
	Phase_MeshSurface
	Phase_OptimizeSurface
	Phase_MeshVolume
	Phase_OptimizeVolume
)

func (p MeshingPhase) String() string {
	switch p {
	case Phase_Analyse:
		return "ANALYSE"
	case Phase_MeshSurface:
		return "MESH_SURFACE"
	case Phase_OptimizeSurface:
		return "OPTIMIZE_SURFACE"
	case Phase_MeshVolume:
		return "MESH_VOLUME"
	case Phase_OptimizeVolume:
		return "OPTIMIZE_VOLUME"
	}
	return "UNKNOWN_PHASE"
}

// Task is the human readable name reported while the phase runs
func (p MeshingPhase) Task() string {
	switch p {
	case Phase_Analyse:
		return "Analyse geometry"
	case Phase_MeshSurface:
		return "Surface meshing"
	case Phase_OptimizeSurface:
		return "Optimizing surface"
	case Phase_MeshVolume:
		return "Volume meshing"
	case Phase_OptimizeVolume:
		return "Volume optimization"
	}
	return ""
}

// Fineness is the coarse to fine preset stored in the parameter record
type Fineness int

const (
	Fineness_VeryCoarse Fineness = iota
	Fineness_Coarse
	Fineness_Moderate
	Fineness_Fine
	Fineness_VeryFine
	Fineness_UserDefined
)

func (f Fineness) String() string {
	if f < Fineness_VeryCoarse || f > Fineness_UserDefined {
		return "Invalid"
	}
	return [...]string{"VeryCoarse", "Coarse", "Moderate", "Fine", "VeryFine", "UserDefined"}[f]
}

// Preset returns the (grading, segmentsperedge, curvaturesafety) bundle a
// preset implies. UserDefined has none.
func (f Fineness) Preset() (grading, segmentsPerEdge, curvatureSafety float64, ok bool) {
	switch f {
	case Fineness_VeryCoarse:
		return 0.7, 0.3, 0.7, true
	case Fineness_Coarse:
		return 0.5, 0.5, 1.0, true
	case Fineness_Moderate:
		return 0.3, 1.0, 2.0, true
	case Fineness_Fine:
		return 0.2, 2.0, 3.0, true
	case Fineness_VeryFine:
		return 0.1, 3.0, 5.0, true
	}
	return 0, 0, 0, false
}
