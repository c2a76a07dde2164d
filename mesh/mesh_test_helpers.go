package mesh

// Boundary meshes of simple domains, shared by the tests of the mesher packages.

var unitCubeCorners = [8][3]float64{
	{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0},
	{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1},
}

// Triangles of the cube surface, counter-clockwise seen from outside, two per face
var unitCubeTriangles = [12][3]int64{
	{1, 3, 2}, {1, 4, 3}, // z=0
	{5, 6, 7}, {5, 7, 8}, // z=1
	{1, 2, 6}, {1, 6, 5}, // y=0
	{4, 8, 7}, {4, 7, 3}, // y=1
	{1, 5, 8}, {1, 8, 4}, // x=0
	{2, 3, 7}, {2, 7, 6}, // x=1
}

/*
NewUnitCubeBoundary returns the triangulated surface of the unit cube scaled
by size: nodes 1..8 sit on CAD vertices 1..8, triangles 1..12 have outward
normals and lie on CAD faces 1..6.
*/
func NewUnitCubeBoundary(size float64) *Mesh {
	m := NewMesh()
	m.Name = "cube"
	for i, c := range unitCubeCorners {
		_, _ = m.AddNodeWithID(int64(i+1), [3]float64{size * c[0], size * c[1], size * c[2]}, 0, i+1)
	}
	for i, tri := range unitCubeTriangles {
		_, _ = m.AddElementWithID(int64(i+1), Triangle, []int{i/2 + 1}, tri[:])
	}
	return m
}

/*
NewUnitSquareBoundary returns the boundary of the unit square in the z=0
plane scaled by size, split into n segments per side, counter-clockwise.
Corner nodes sit on CAD vertices, the other nodes on CAD edges 1..4.
*/
func NewUnitSquareBoundary(size float64, n int) *Mesh {
	m := NewMesh()
	m.Name = "square"
	corners := [4][2]float64{{0, 0}, {1, 0}, {1, 1}, {0, 1}}
	var id int64
	for side := 0; side < 4; side++ {
		a, b := corners[side], corners[(side+1)%4]
		for k := 0; k < n; k++ {
			t := float64(k) / float64(n)
			id++
			x := [3]float64{size * (a[0] + t*(b[0]-a[0])), size * (a[1] + t*(b[1]-a[1])), 0}
			if k == 0 {
				_, _ = m.AddNodeWithID(id, x, 0, side+1)
			} else {
				_, _ = m.AddNodeWithID(id, x, 1, side+1)
			}
		}
	}
	nbNodes := id
	for i := int64(1); i <= nbNodes; i++ {
		next := i%nbNodes + 1
		_, _ = m.AddElementWithID(i, Line, []int{int(i-1)/n + 1}, []int64{i, next})
	}
	return m
}
