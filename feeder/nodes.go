package feeder

/*
NodeTable maps host node IDs to kernel point indices and back. Kernel indices
1..N are given to host nodes in order of first appearance while feeding; the
points the kernel creates afterwards are N+1..M and get a host ID only once
they are injected into the host mesh.
*/
type NodeTable struct {
	toKernel   map[int64]int
	hostIDs    []int64 // kernel index k is hostIDs[k-1], 0 for a new node not yet injected
	nbExisting int
}

func NewNodeTable() *NodeTable {
	return &NodeTable{toKernel: make(map[int64]int)}
}

// assign returns the kernel index of hostID, allocating the next one on first encounter
func (nt *NodeTable) assign(hostID int64) (k int, isNew bool) {
	if k, ok := nt.toKernel[hostID]; ok {
		return k, false
	}
	nt.hostIDs = append(nt.hostIDs, hostID)
	k = len(nt.hostIDs)
	nt.toKernel[hostID] = k
	nt.nbExisting = k
	return k, true
}

func (nt *NodeTable) Index(hostID int64) (k int, ok bool) {
	k, ok = nt.toKernel[hostID]
	return
}

func (nt *NodeTable) HostID(k int) (id int64, ok bool) {
	if k < 1 || k > len(nt.hostIDs) || nt.hostIDs[k-1] == 0 {
		return 0, false
	}
	return nt.hostIDs[k-1], true
}

// NbExisting is N, the number of fed host nodes
func (nt *NodeTable) NbExisting() int { return nt.nbExisting }

// Len is M, the number of kernel points known to the table
func (nt *NodeTable) Len() int { return len(nt.hostIDs) }

// ExistingIDs returns the host IDs of kernel points 1..N in kernel order
func (nt *NodeTable) ExistingIDs() []int64 {
	return append([]int64(nil), nt.hostIDs[:nt.nbExisting]...)
}

// Extend records kernel points N+1..total as created by the kernel
func (nt *NodeTable) Extend(total int) {
	for len(nt.hostIDs) < total {
		nt.hostIDs = append(nt.hostIDs, 0)
	}
}

// Bind gives the created kernel point k its host ID after injection
func (nt *NodeTable) Bind(k int, hostID int64) {
	if k <= nt.nbExisting || k > len(nt.hostIDs) {
		return
	}
	nt.hostIDs[k-1] = hostID
	nt.toKernel[hostID] = k
}
