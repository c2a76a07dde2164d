package mesh

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

var gmshElementType = map[int]ElementType{
	1:  Line,
	2:  Triangle,
	3:  Quad,
	4:  Tet,
	5:  Hex,
	6:  Prism,
	7:  Pyramid,
	15: Point,
}

func gmshTypeOf(e ElementType) int {
	for gt, et := range gmshElementType {
		if et == e {
			return gt
		}
	}
	return 0
}

// ReadGmshAuto automatically detects the Gmsh format version and reads the file
func ReadGmshAuto(filename string) (*Mesh, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	scanner := bufio.NewScanner(file)
	var version string

	// Look for $MeshFormat section to determine version
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "$MeshFormat" {
			if scanner.Scan() {
				parts := strings.Fields(scanner.Text())
				if len(parts) > 0 {
					version = parts[0]
					break
				}
			}
		}
	}
	file.Close()

	switch {
	case strings.HasPrefix(version, "4."):
		return ReadGmsh4(filename)
	case strings.HasPrefix(version, "2."):
		return ReadGmsh22(filename)
	case version == "":
		return nil, fmt.Errorf("%s: no $MeshFormat section", filename)
	}
	return nil, fmt.Errorf("%s: unsupported Gmsh version %s", filename, version)
}

// ReadGmsh22 reads a Gmsh MSH file format version 2.2
func ReadGmsh22(filename string) (*Mesh, error) {
	return readGmsh(filename, readNodes22, readElements22)
}

// ReadGmsh4 reads an ASCII Gmsh MSH file format version 4.x
func ReadGmsh4(filename string) (*Mesh, error) {
	return readGmsh(filename, readNodes4, readElements4)
}

type sectionReader func(scanner *bufio.Scanner, msh *Mesh) error

func readGmsh(filename string, readNodes, readElements sectionReader) (*Mesh, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	msh := NewMesh()

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch line {
		case "$MeshFormat":
			if err = readMeshFormat(scanner, msh); err != nil {
				return nil, err
			}

		case "$Nodes":
			if err = readNodes(scanner, msh); err != nil {
				return nil, err
			}

		case "$Elements":
			if err = readElements(scanner, msh); err != nil {
				return nil, err
			}

		default:
			if strings.HasPrefix(line, "$") && !strings.HasPrefix(line, "$End") {
				// Skip sections the mesher does not use
				if err = skipSection(scanner, "$End"+line[1:]); err != nil {
					return nil, err
				}
			}
		}
	}

	if err = scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanner error: %v", err)
	}
	if msh.IsBinary {
		return nil, fmt.Errorf("%s: binary Gmsh files are not supported", filename)
	}

	msh.classifyNodes()
	return msh, nil
}

func readMeshFormat(scanner *bufio.Scanner, msh *Mesh) error {
	if !scanner.Scan() {
		return fmt.Errorf("unexpected EOF in MeshFormat")
	}

	parts := strings.Fields(scanner.Text())
	if len(parts) < 3 {
		return fmt.Errorf("invalid MeshFormat line")
	}

	msh.FormatVersion = parts[0]
	fileType, _ := strconv.Atoi(parts[1])
	msh.IsBinary = fileType == 1
	msh.DataSize, _ = strconv.Atoi(parts[2])

	return skipSection(scanner, "$EndMeshFormat")
}

func skipSection(scanner *bufio.Scanner, endMarker string) error {
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) == endMarker {
			return nil
		}
	}
	return fmt.Errorf("unexpected EOF looking for %s", endMarker)
}

func parseInts(fields []string) ([]int64, error) {
	vals := make([]int64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", f)
		}
		vals[i] = v
	}
	return vals, nil
}

func parseCoords(fields []string) (x [3]float64, err error) {
	if len(fields) < 3 {
		return x, fmt.Errorf("invalid node coordinates %v", fields)
	}
	for k := 0; k < 3; k++ {
		if x[k], err = strconv.ParseFloat(fields[k], 64); err != nil {
			return x, fmt.Errorf("invalid coordinate %q", fields[k])
		}
	}
	return
}

// readNodes22 reads nodes in v2.2 format
func readNodes22(scanner *bufio.Scanner, msh *Mesh) error {
	if !scanner.Scan() {
		return fmt.Errorf("unexpected EOF in Nodes")
	}

	numNodes, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	if err != nil {
		return fmt.Errorf("invalid node count: %v", err)
	}

	for i := 0; i < numNodes; i++ {
		if !scanner.Scan() {
			return fmt.Errorf("unexpected EOF reading nodes")
		}

		parts := strings.Fields(scanner.Text())
		if len(parts) < 4 {
			return fmt.Errorf("invalid node line: %s", scanner.Text())
		}

		nodeID, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid node id %q", parts[0])
		}
		x, err := parseCoords(parts[1:])
		if err != nil {
			return err
		}
		if _, err = msh.AddNodeWithID(nodeID, x, -1, 0); err != nil {
			return err
		}
	}

	return skipSection(scanner, "$EndNodes")
}

// readElements22 reads elements in v2.2 format
func readElements22(scanner *bufio.Scanner, msh *Mesh) error {
	if !scanner.Scan() {
		return fmt.Errorf("unexpected EOF in Elements")
	}

	numElements, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	if err != nil {
		return fmt.Errorf("invalid element count: %v", err)
	}

	for i := 0; i < numElements; i++ {
		if !scanner.Scan() {
			return fmt.Errorf("unexpected EOF reading elements")
		}

		vals, err := parseInts(strings.Fields(scanner.Text()))
		if err != nil {
			return err
		}
		if len(vals) < 3 {
			return fmt.Errorf("invalid element line")
		}

		elemID, gmshType, numTags := vals[0], int(vals[1]), int(vals[2])
		elemType, ok := gmshElementType[gmshType]
		if !ok {
			continue // higher order and exotic types are not used by the mesher
		}
		if len(vals) < 3+numTags+elemType.GetNumNodes() {
			return fmt.Errorf("element %d: expected %d nodes", elemID, elemType.GetNumNodes())
		}

		// physical tag, elementary entity tag; partition tags are dropped
		var tags []int
		for k := 0; k < numTags && k < 2; k++ {
			tags = append(tags, int(vals[3+k]))
		}
		nodeIDs := vals[3+numTags : 3+numTags+elemType.GetNumNodes()]

		if _, err = msh.AddElementWithID(elemID, elemType, tags, nodeIDs); err != nil {
			return err
		}
	}

	return skipSection(scanner, "$EndElements")
}

// readNodes4 reads nodes in v4 format, node blocks carry the CAD classification
func readNodes4(scanner *bufio.Scanner, msh *Mesh) error {
	if !scanner.Scan() {
		return fmt.Errorf("unexpected EOF in Nodes")
	}

	// Format: numEntityBlocks numNodes minNodeTag maxNodeTag
	header, err := parseInts(strings.Fields(scanner.Text()))
	if err != nil || len(header) < 4 {
		return fmt.Errorf("invalid Nodes header")
	}

	for i := 0; i < int(header[0]); i++ {
		// entityDim entityTag parametric numNodes
		if !scanner.Scan() {
			return fmt.Errorf("unexpected EOF in node entity block %d", i)
		}
		blockHeader, err := parseInts(strings.Fields(scanner.Text()))
		if err != nil || len(blockHeader) < 4 {
			return fmt.Errorf("invalid node block header")
		}
		entityDim, entityTag := int(blockHeader[0]), int(blockHeader[1])
		numNodesInBlock := int(blockHeader[3])

		nodeTags := make([]int64, numNodesInBlock)
		for j := 0; j < numNodesInBlock; j++ {
			if !scanner.Scan() {
				return fmt.Errorf("unexpected EOF reading node tags")
			}
			if nodeTags[j], err = strconv.ParseInt(strings.TrimSpace(scanner.Text()), 10, 64); err != nil {
				return fmt.Errorf("invalid node tag %q", scanner.Text())
			}
		}

		for j := 0; j < numNodesInBlock; j++ {
			if !scanner.Scan() {
				return fmt.Errorf("unexpected EOF reading node coordinates")
			}
			x, err := parseCoords(strings.Fields(scanner.Text()))
			if err != nil {
				return err
			}
			if _, err = msh.AddNodeWithID(nodeTags[j], x, entityDim, entityTag); err != nil {
				return err
			}
		}
	}

	return skipSection(scanner, "$EndNodes")
}

// readElements4 reads elements in v4 format
func readElements4(scanner *bufio.Scanner, msh *Mesh) error {
	if !scanner.Scan() {
		return fmt.Errorf("unexpected EOF in Elements")
	}

	// Format: numEntityBlocks numElements minElementTag maxElementTag
	header, err := parseInts(strings.Fields(scanner.Text()))
	if err != nil || len(header) < 4 {
		return fmt.Errorf("invalid Elements header")
	}

	for i := 0; i < int(header[0]); i++ {
		// entityDim entityTag elementType numElements
		if !scanner.Scan() {
			return fmt.Errorf("unexpected EOF in element entity block %d", i)
		}
		blockHeader, err := parseInts(strings.Fields(scanner.Text()))
		if err != nil || len(blockHeader) < 4 {
			return fmt.Errorf("invalid element block header")
		}
		entityTag, gmshType := int(blockHeader[1]), int(blockHeader[2])
		numElemsInBlock := int(blockHeader[3])

		elemType, ok := gmshElementType[gmshType]
		if !ok {
			for j := 0; j < numElemsInBlock; j++ {
				scanner.Scan()
			}
			continue
		}

		expectedNodes := elemType.GetNumNodes()
		for j := 0; j < numElemsInBlock; j++ {
			if !scanner.Scan() {
				return fmt.Errorf("unexpected EOF reading elements")
			}
			vals, err := parseInts(strings.Fields(scanner.Text()))
			if err != nil {
				return err
			}
			if len(vals) < 1+expectedNodes {
				return fmt.Errorf("invalid element line: expected at least %d fields, got %d",
					1+expectedNodes, len(vals))
			}
			if _, err = msh.AddElementWithID(vals[0], elemType, []int{entityTag},
				vals[1:1+expectedNodes]); err != nil {
				return err
			}
		}
	}

	return skipSection(scanner, "$EndElements")
}
