package mesh

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper function to create temporary test files
func createTempMshFile(t *testing.T, content string) string {
	t.Helper()
	tmpFile := filepath.Join(t.TempDir(), "test.msh")
	if err := os.WriteFile(tmpFile, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	return tmpFile
}

const tetSurface22 = `$MeshFormat
2.2 0 8
$EndMeshFormat
$PhysicalNames
1
2 1 "skin"
$EndPhysicalNames
$Nodes
5
1 0 0 0
2 1 0 0
3 0 1 0
4 0 0 1
5 0.5 0 0
$EndNodes
$Elements
8
1 15 2 0 1 1
2 1 2 0 1 1 5
3 1 2 0 1 5 2
4 2 2 1 1 1 3 5
5 2 2 1 1 5 3 2
6 2 2 1 2 1 5 4
7 2 2 1 2 5 2 4
8 2 2 1 3 2 3 4
$EndElements
`

func TestReadGmsh22(t *testing.T) {
	m, err := ReadMeshFile(createTempMshFile(t, tetSurface22))
	require.NoError(t, err)
	assert.Equal(t, "2.2", m.FormatVersion)
	assert.Equal(t, 5, m.NumNodes())
	assert.Equal(t, 8, m.NumElements())
	assert.Len(t, m.ElementsOfDim(2), 5)
	assert.Len(t, m.ElementsOfDim(1), 2)

	e, ok := m.Element(6)
	require.True(t, ok)
	assert.Equal(t, Triangle, e.Type)
	assert.Equal(t, []int64{1, 5, 4}, e.Nodes)
	assert.Equal(t, 2, e.EntityTag())

	// node classification from the lowest dimension element
	n, _ := m.Node(1)
	assert.Equal(t, 0, n.ShapeDim)
	assert.Equal(t, 1, n.ShapeTag)
	n, _ = m.Node(5)
	assert.Equal(t, 1, n.ShapeDim)
	n, _ = m.Node(4)
	assert.Equal(t, 2, n.ShapeDim)
	v, ok := m.VertexNode(1)
	require.True(t, ok)
	assert.Equal(t, int64(1), v.ID)

	pMin, pMax, ok := m.BoundingBox()
	assert.True(t, ok)
	assert.Equal(t, [3]float64{0, 0, 0}, pMin)
	assert.Equal(t, [3]float64{1, 1, 1}, pMax)
}

func TestReadGmsh4(t *testing.T) {
	content := `$MeshFormat
4.1 0 8
$EndMeshFormat
$Entities
1 0 1 0
1 0 0 0 0
1 0 0 0 1 0 0 0 0
1 0 0 0 1 1 0 0 1 1
$EndEntities
$Nodes
2 3 1 3
0 1 0 1
1
0 0 0
1 7 0 2
2
3
1 0 0
0.5 0 0
$EndNodes
$Elements
1 2 1 2
1 7 1 2
10 1 3
11 3 2
$EndElements
`
	m, err := ReadGmshAuto(createTempMshFile(t, content))
	require.NoError(t, err)
	assert.Equal(t, "4.1", m.FormatVersion)
	assert.Equal(t, 3, m.NumNodes())
	n, ok := m.Node(3)
	require.True(t, ok)
	assert.Equal(t, [3]float64{0.5, 0, 0}, n.X)
	assert.Equal(t, 1, n.ShapeDim)
	assert.Equal(t, 7, n.ShapeTag)
	e, ok := m.Element(11)
	require.True(t, ok)
	assert.Equal(t, Line, e.Type)
	assert.Equal(t, 7, e.EntityTag())
}

func TestReadErrors(t *testing.T) {
	_, err := ReadMeshFile("mesh.med")
	assert.Error(t, err)
	_, err = ReadGmshAuto(createTempMshFile(t, "$Nodes\n0\n$EndNodes\n"))
	assert.Error(t, err)
	_, err = ReadGmsh22(createTempMshFile(t, "$MeshFormat\n2.2 0 8\n$EndMeshFormat\n$Nodes\n2\n1 0 0 0\n"))
	assert.Error(t, err)
	// element referencing a missing node
	_, err = ReadGmsh22(createTempMshFile(t,
		"$MeshFormat\n2.2 0 8\n$EndMeshFormat\n$Nodes\n1\n1 0 0 0\n$EndNodes\n$Elements\n1\n1 1 2 0 1 1 2\n$EndElements\n"))
	assert.Error(t, err)
}

func TestBuildAndWrite(t *testing.T) {
	m := NewUnitCubeBoundary(2)
	assert.Equal(t, 8, m.NumNodes())
	assert.Equal(t, 12, m.NumElements())
	assert.Equal(t, 0, m.NbQuadrangles())

	n := m.AddNode(1, 1, 1)
	assert.Equal(t, int64(9), n.ID)
	assert.Equal(t, -1, n.ShapeDim)
	tet, err := m.AddVolume(1, 2, 4, 9)
	require.NoError(t, err)
	assert.Equal(t, int64(13), tet.ID)
	_, err = m.AddVolume(1, 2, 4, 99)
	assert.Error(t, err)
	_, err = m.AddFace(1, 2, 99)
	assert.Error(t, err)
	_, err = m.AddNodeWithID(9, [3]float64{}, -1, 0)
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "out.msh")
	require.NoError(t, WriteMeshFile(path, m))
	back, err := ReadMeshFile(path)
	require.NoError(t, err)
	assert.Equal(t, m.NumNodes(), back.NumNodes())
	assert.Equal(t, m.NumElements(), back.NumElements())
	e, _ := back.Element(13)
	assert.Equal(t, Tet, e.Type)
	assert.Equal(t, []int64{1, 2, 4, 9}, e.Nodes)
	node, _ := back.Node(7)
	assert.Equal(t, [3]float64{2, 2, 2}, node.X)
	e, _ = back.Element(3)
	assert.Equal(t, 2, e.EntityTag())
}

func TestUnitSquareBoundary(t *testing.T) {
	m := NewUnitSquareBoundary(1, 2)
	assert.Equal(t, 8, m.NumNodes())
	segs := m.ElementsOfDim(1)
	require.Len(t, segs, 8)
	assert.Equal(t, []int64{8, 1}, segs[7].Nodes)
	assert.Equal(t, 4, segs[7].EntityTag())
	n, _ := m.Node(2)
	assert.Equal(t, [3]float64{0.5, 0, 0}, n.X)
	assert.Equal(t, 1, n.ShapeDim)
}
