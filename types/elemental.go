package types

import (
	"fmt"
	"math"
	"sort"
)

/*
EdgeKey stores the two point indices of an undirected kernel edge packed into
one uint64, lowest index first, so that [4,1] and [1,4] hash identically.
*/
type EdgeKey uint64

func NewEdgeKey(verts [2]int) (packed EdgeKey) {
	var (
		limit = math.MaxUint32
	)
	for _, vert := range verts {
		if vert < 0 || vert > limit {
			panic(fmt.Errorf("unable to pack two ints into a uint64, have %d and %d as inputs",
				verts[0], verts[1]))
		}
	}
	var i1, i2 int
	if verts[0] <= verts[1] {
		i1, i2 = verts[0], verts[1]
	} else {
		i1, i2 = verts[1], verts[0]
	}
	packed = EdgeKey(i1 + i2<<32)
	return
}

func (ek EdgeKey) GetVertices(rev bool) (verts [2]int) {
	var (
		enTmp EdgeKey
	)
	enTmp = ek >> 32
	verts[1] = int(enTmp)
	verts[0] = int(ek - enTmp*(1<<32))
	if rev {
		verts[0], verts[1] = verts[1], verts[0]
	}
	return
}

/*
FaceKey identifies an undirected triangular facet by its sorted point indices.
Two tetrahedra share a facet exactly when their FaceKeys are equal.
*/
type FaceKey [3]int

func NewFaceKey(verts [3]int) (fk FaceKey) {
	s := verts[:]
	sort.Ints(s)
	copy(fk[:], s)
	return
}

// Edges returns the three edge keys of the facet
func (fk FaceKey) Edges() [3]EdgeKey {
	return [3]EdgeKey{
		NewEdgeKey([2]int{fk[0], fk[1]}),
		NewEdgeKey([2]int{fk[1], fk[2]}),
		NewEdgeKey([2]int{fk[0], fk[2]}),
	}
}
