package mesh

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
)

// WriteGmsh22 writes m as an ASCII Gmsh 2.2 file, keeping host IDs
func WriteGmsh22(filename string, m *Mesh) (err error) {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()

	w := bufio.NewWriter(file)
	fmt.Fprintf(w, "$MeshFormat\n2.2 0 8\n$EndMeshFormat\n")

	fmt.Fprintf(w, "$Nodes\n%d\n", m.NumNodes())
	for _, n := range m.nodes {
		fmt.Fprintf(w, "%d %s %s %s\n", n.ID,
			strconv.FormatFloat(n.X[0], 'g', -1, 64),
			strconv.FormatFloat(n.X[1], 'g', -1, 64),
			strconv.FormatFloat(n.X[2], 'g', -1, 64))
	}
	fmt.Fprintf(w, "$EndNodes\n")

	fmt.Fprintf(w, "$Elements\n%d\n", m.NumElements())
	for _, e := range m.elements {
		var physical int
		if len(e.Tags) > 1 {
			physical = e.Tags[0]
		}
		fmt.Fprintf(w, "%d %d 2 %d %d", e.ID, gmshTypeOf(e.Type), physical, e.EntityTag())
		for _, nid := range e.Nodes {
			fmt.Fprintf(w, " %d", nid)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "$EndElements\n")
	return w.Flush()
}
