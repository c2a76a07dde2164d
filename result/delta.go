package result

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/notargets/netgenplugin/feeder"
	"github.com/notargets/netgenplugin/kernel"
	"github.com/notargets/netgenplugin/types"
)

/*
Delta is what one meshing run adds to the host mesh. Kernel indices 1..N are
the fed host nodes, listed in ExistingIDs; N+1..M are the new nodes whose
coordinates are NewCoords. Elements hold kernel indices.
*/
type Delta struct {
	NbExisting      int
	NbTotal         int
	ExistingIDs     []int32
	NewCoords       [][3]float64
	NodesPerElement int
	Elements        [][]int32
}

func (d *Delta) NbNew() int      { return d.NbTotal - d.NbExisting }
func (d *Delta) NbElements() int { return len(d.Elements) }

// FromKernel extracts the delta of km: tetrahedra for dim 3, triangles for dim 2
func FromKernel(km *kernel.Mesh, nt *feeder.NodeTable, dim int) (d *Delta) {
	d = &Delta{
		NbExisting: nt.NbExisting(),
		NbTotal:    km.NP(),
	}
	for _, id := range nt.ExistingIDs() {
		d.ExistingIDs = append(d.ExistingIDs, int32(id))
	}
	for k := d.NbExisting + 1; k <= d.NbTotal; k++ {
		p := km.Point(k).X
		d.NewCoords = append(d.NewCoords, [3]float64{p.X, p.Y, p.Z})
	}
	switch dim {
	case 3:
		d.NodesPerElement = 4
		for i := 1; i <= km.NE(); i++ {
			el := km.VolumeElement(i)
			d.Elements = append(d.Elements, []int32{int32(el.P[0]), int32(el.P[1]), int32(el.P[2]), int32(el.P[3])})
		}
	default:
		d.NodesPerElement = 3
		for i := 1; i <= km.NSE(); i++ {
			el := km.SurfaceElement(i)
			d.Elements = append(d.Elements, []int32{int32(el.P[0]), int32(el.P[1]), int32(el.P[2])})
		}
	}
	return
}

/*
Write serializes d in native little endian fixed width form:
int32 N, int32 M, N x int32 node ID, (M-N) x 3 float64, int32 nbElements,
nbElements x NodesPerElement x int32.
*/
func (d *Delta) Write(w io.Writer) (err error) {
	bw := bufio.NewWriter(w)
	put := func(v interface{}) {
		if err == nil {
			err = binary.Write(bw, binary.LittleEndian, v)
		}
	}
	put(int32(d.NbExisting))
	put(int32(d.NbTotal))
	put(d.ExistingIDs)
	put(d.NewCoords)
	put(int32(len(d.Elements)))
	for _, el := range d.Elements {
		put(el)
	}
	if err != nil {
		return
	}
	return bw.Flush()
}

/*
WriteFile writes d to path. Nothing is written for an empty path or when the
run created no element; written reports whether the file was produced.
*/
func (d *Delta) WriteFile(path string) (written bool, err error) {
	if path == "" || len(d.Elements) == 0 {
		return false, nil
	}
	var file *os.File
	if file, err = os.Create(path); err != nil {
		return
	}
	if err = d.Write(file); err != nil {
		file.Close()
		return
	}
	if err = file.Close(); err != nil {
		return
	}
	return true, nil
}

// Read parses a delta with k nodes per element
func Read(r io.Reader, k int) (d *Delta, err error) {
	var (
		br    = bufio.NewReader(r)
		field string
	)
	get := func(name string, v interface{}) {
		if err == nil {
			field = name
			err = binary.Read(br, binary.LittleEndian, v)
		}
	}
	var nbExisting, nbTotal, nbElements int32
	get("existing node count", &nbExisting)
	get("total node count", &nbTotal)
	if err != nil {
		return nil, formatError(field, err)
	}
	if nbExisting < 0 || nbTotal < nbExisting {
		return nil, formatError("total node count", fmt.Errorf("bad node counts %d, %d", nbExisting, nbTotal))
	}
	d = &Delta{
		NbExisting:      int(nbExisting),
		NbTotal:         int(nbTotal),
		NodesPerElement: k,
	}
	if d.ExistingIDs, err = readChunked[int32](br, d.NbExisting); err != nil {
		return nil, formatError("node ID", err)
	}
	if d.NewCoords, err = readChunked[[3]float64](br, d.NbTotal-d.NbExisting); err != nil {
		return nil, formatError("node coordinates", err)
	}
	get("element count", &nbElements)
	if err == nil && nbElements < 0 {
		err = fmt.Errorf("negative element count %d", nbElements)
	}
	if err != nil {
		return nil, formatError(field, err)
	}
	d.Elements = make([][]int32, 0, min(int(nbElements), readChunk))
	for i := 0; i < int(nbElements); i++ {
		el := make([]int32, k)
		get("element connectivity", el)
		if err != nil {
			return nil, formatError(field, err)
		}
		d.Elements = append(d.Elements, el)
	}
	return
}

// readChunk bounds what a header count can allocate ahead of the data backing it
const readChunk = 1 << 12

func readChunked[T any](r io.Reader, n int) (out []T, err error) {
	out = make([]T, 0, min(n, readChunk))
	for len(out) < n {
		buf := make([]T, min(n-len(out), readChunk))
		if err = binary.Read(r, binary.LittleEndian, buf); err != nil {
			return nil, err
		}
		out = append(out, buf...)
	}
	return
}

func ReadFile(path string, k int) (d *Delta, err error) {
	var file *os.File
	if file, err = os.Open(path); err != nil {
		return
	}
	defer file.Close()
	if d, err = Read(file, k); err != nil {
		if fe, ok := err.(*types.FormatError); ok {
			fe.File = path
		}
	}
	return
}

func formatError(field string, err error) error {
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return &types.FormatError{Field: field, Err: err}
}
