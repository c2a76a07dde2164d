package result

import (
	"fmt"

	"github.com/notargets/netgenplugin/mesh"
)

// InjectStats counts the host objects Inject created or gave up on
type InjectStats struct {
	NodesAdded     int
	ElementsAdded  int
	ElementsFailed int
	// NewNodeIDs[i] is the host ID given to kernel point NbExisting+1+i
	NewNodeIDs []int64
	// FirstError is the first discarded element failure
	FirstError error
}

/*
Inject adds the new nodes and elements of d to the host mesh m: tetrahedra
when d holds 4 nodes per element, triangles for 3. An element that cannot be
inserted is counted and discarded, the others still go in.
*/
func Inject(m *mesh.Mesh, d *Delta) (st InjectStats, err error) {
	if d.NodesPerElement != 3 && d.NodesPerElement != 4 {
		return st, fmt.Errorf("cannot inject elements of %d nodes", d.NodesPerElement)
	}
	for _, x := range d.NewCoords {
		n := m.AddNode(x[0], x[1], x[2])
		st.NewNodeIDs = append(st.NewNodeIDs, n.ID)
		st.NodesAdded++
	}
	hostID := func(k int32) (int64, error) {
		switch {
		case k >= 1 && int(k) <= d.NbExisting:
			return int64(d.ExistingIDs[k-1]), nil
		case int(k) > d.NbExisting && int(k) <= d.NbTotal:
			return st.NewNodeIDs[int(k)-d.NbExisting-1], nil
		}
		return 0, fmt.Errorf("kernel node %d out of range 1..%d", k, d.NbTotal)
	}
	for i, el := range d.Elements {
		var (
			ids  = make([]int64, len(el))
			ierr error
		)
		if len(el) != d.NodesPerElement {
			ierr = fmt.Errorf("%d nodes, want %d", len(el), d.NodesPerElement)
		}
		for j := 0; ierr == nil && j < len(el); j++ {
			ids[j], ierr = hostID(el[j])
		}
		if ierr == nil {
			if d.NodesPerElement == 4 {
				_, ierr = m.AddVolume(ids[0], ids[1], ids[2], ids[3])
			} else {
				_, ierr = m.AddFace(ids[0], ids[1], ids[2])
			}
		}
		if ierr != nil {
			st.ElementsFailed++
			if st.FirstError == nil {
				st.FirstError = fmt.Errorf("element %d of the delta: %w", i+1, ierr)
			}
			continue
		}
		st.ElementsAdded++
	}
	return
}
