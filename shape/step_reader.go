package shape

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

type stepEntity struct {
	Type string
	Args string
}

var (
	stepEntityRE = regexp.MustCompile(`^#(\d+)\s*=\s*([A-Z0-9_]+)\s*\((.*)\)$`)
	stepRefRE    = regexp.MustCompile(`#(\d+)`)
	stepNumberRE = regexp.MustCompile(`[-+]?(\d+\.?\d*|\.\d+)([eE][-+]?\d+)?`)
)

/*
ReadSTEP extracts the B-rep topology of a STEP AP203/AP214 file: vertices
with their points, edge curves, advanced faces and closed shells. Curve and
surface geometry is not read.
*/
func ReadSTEP(path string) (*Shape, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text := string(data)
	start := strings.Index(text, "DATA;")
	if start < 0 {
		return nil, fmt.Errorf("%s: no DATA section", path)
	}
	text = text[start+len("DATA;"):]
	if end := strings.Index(text, "ENDSEC;"); end >= 0 {
		text = text[:end]
	}

	entities := make(map[int]stepEntity)
	for _, stmt := range strings.Split(text, ";") {
		stmt = strings.Join(strings.Fields(stmt), " ")
		m := stepEntityRE.FindStringSubmatch(stmt)
		if m == nil {
			continue
		}
		id, _ := strconv.Atoi(m[1])
		entities[id] = stepEntity{Type: m[2], Args: m[3]}
	}

	s := &Shape{Name: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))}
	ids := make([]int, 0, len(entities))
	for id := range entities {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	vertexTag := make(map[int]int)
	edgeTag := make(map[int]int)
	faceTag := make(map[int]int)
	for _, id := range ids {
		e := entities[id]
		if e.Type != "VERTEX_POINT" {
			continue
		}
		refs := stepRefs(e.Args)
		if len(refs) == 0 {
			return nil, fmt.Errorf("%s: VERTEX_POINT #%d has no point", path, id)
		}
		pt, ok := entities[refs[0]]
		if !ok || pt.Type != "CARTESIAN_POINT" {
			return nil, fmt.Errorf("%s: VERTEX_POINT #%d does not reference a CARTESIAN_POINT", path, id)
		}
		x, err := stepPoint(pt.Args)
		if err != nil {
			return nil, fmt.Errorf("%s: #%d: %w", path, refs[0], err)
		}
		vertexTag[id] = len(s.Vertices) + 1
		s.Vertices = append(s.Vertices, Vertex{Tag: vertexTag[id], X: x})
	}
	for _, id := range ids {
		e := entities[id]
		if e.Type != "EDGE_CURVE" {
			continue
		}
		refs := stepRefs(e.Args)
		if len(refs) < 2 {
			return nil, fmt.Errorf("%s: EDGE_CURVE #%d needs two vertices", path, id)
		}
		edgeTag[id] = len(s.Edges) + 1
		s.Edges = append(s.Edges, Edge{Tag: edgeTag[id],
			Vertices: [2]int{vertexTag[refs[0]], vertexTag[refs[1]]}})
	}
	for _, id := range ids {
		e := entities[id]
		if e.Type != "ADVANCED_FACE" {
			continue
		}
		faceTag[id] = len(s.Faces) + 1
		s.Faces = append(s.Faces, Face{Tag: faceTag[id],
			Edges: collectTags(entities, id, "EDGE_CURVE", edgeTag)})
	}
	for _, id := range ids {
		e := entities[id]
		if e.Type != "CLOSED_SHELL" {
			continue
		}
		s.Solids = append(s.Solids, Solid{Tag: len(s.Solids) + 1,
			Faces: collectTags(entities, id, "ADVANCED_FACE", faceTag)})
	}
	if len(s.Vertices) == 0 {
		return nil, fmt.Errorf("%s: no vertices found", path)
	}
	return s, nil
}

func stepRefs(args string) (refs []int) {
	for _, m := range stepRefRE.FindAllStringSubmatch(args, -1) {
		id, _ := strconv.Atoi(m[1])
		refs = append(refs, id)
	}
	return
}

func stepPoint(args string) (x [3]float64, err error) {
	open := strings.LastIndex(args, "(")
	if open < 0 {
		return x, fmt.Errorf("CARTESIAN_POINT without coordinates")
	}
	nums := stepNumberRE.FindAllString(args[open:], -1)
	if len(nums) < 2 {
		return x, fmt.Errorf("CARTESIAN_POINT needs at least two coordinates")
	}
	for i := 0; i < len(nums) && i < 3; i++ {
		if x[i], err = strconv.ParseFloat(nums[i], 64); err != nil {
			return
		}
	}
	return
}

// collectTags follows references from root down to entities of type target
func collectTags(entities map[int]stepEntity, root int, target string, tags map[int]int) (out []int) {
	seen := map[int]bool{root: true}
	queue := stepRefs(entities[root].Args)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if seen[id] {
			continue
		}
		seen[id] = true
		e, ok := entities[id]
		if !ok {
			continue
		}
		switch e.Type {
		case target:
			out = append(out, tags[id])
		case "FACE_OUTER_BOUND", "FACE_BOUND", "EDGE_LOOP", "ORIENTED_EDGE", "ADVANCED_FACE":
			queue = append(queue, stepRefs(e.Args)...)
		}
	}
	sort.Ints(out)
	return
}
