package driver

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/go-homedir"

	"github.com/notargets/netgenplugin/InputParameters"
	"github.com/notargets/netgenplugin/feeder"
	"github.com/notargets/netgenplugin/kernel"
	"github.com/notargets/netgenplugin/logger"
	"github.com/notargets/netgenplugin/mesh"
	"github.com/notargets/netgenplugin/result"
	"github.com/notargets/netgenplugin/shape"
	"github.com/notargets/netgenplugin/types"
)

// None is the command line token suppressing an optional file
const None = "NONE"

// Files names the side files of a batch run, in command line order
type Files struct {
	Mesher      types.MesherType
	InputMesh   string
	Shape       string
	Params      string
	Orientation string
	NewElements string
	OutputMesh  string
}

type Options struct {
	// FormatTag forces the parameter file format instead of the file name convention
	FormatTag *InputParameters.FormatTag
	// Threads > 0 overrides nbThreads of the parameter file
	Threads  int
	Observer kernel.Observer
	Engine   kernel.Engine
}

// expand maps the None token to "" and resolves a leading ~
func expand(path string) (string, error) {
	if path == None {
		return "", nil
	}
	return homedir.Expand(path)
}

func (f Files) expanded() (out Files, err error) {
	out = f
	for _, p := range []*string{&out.InputMesh, &out.Shape, &out.Params, &out.Orientation, &out.NewElements, &out.OutputMesh} {
		if *p, err = expand(*p); err != nil {
			return
		}
	}
	return
}

func timed(step string, runID string, fn func() error) error {
	t0 := time.Now()
	if err := fn(); err != nil {
		return err
	}
	logger.Timing(step, time.Since(t0), "run", runID)
	return nil
}

/*
RunFiles performs a batch run: it imports the boundary mesh, the shape and the
parameters, reads the element orientation file, meshes, writes the result
delta and, when an output mesh is named, adds the new elements to the host mesh
and exports it. Every I/O failure ends the run.
*/
func RunFiles(ctx context.Context, files Files, opts Options) (out *Outcome, err error) {
	var (
		runID = uuid.NewString()
		log   = logger.WithRun(runID)
		m     *mesh.Mesh
		sh    *shape.Shape
		p     *InputParameters.NetgenParams
		in    *feeder.Inclusion
	)
	out = &Outcome{RunID: runID}
	if files, err = files.expanded(); err != nil {
		return
	}
	if files.InputMesh == "" {
		return out, fmt.Errorf("an input mesh file is required")
	}
	log.Info("Meshing with "+files.Mesher.String(), "mesh", files.InputMesh)
	if err = timed("importMesh", runID, func() (err error) {
		m, err = mesh.ReadMeshFile(files.InputMesh)
		return
	}); err != nil {
		return out, fmt.Errorf("importMesh: %w", err)
	}
	if files.Shape == "" {
		log.Warn("no shape to mesh, sizes derive from the boundary mesh")
	} else if err = timed("importShape", runID, func() (err error) {
		sh, err = shape.ImportShape(files.Shape)
		return
	}); err != nil {
		return out, fmt.Errorf("importShape: %w", err)
	}
	if err = timed("import_netgen_param", runID, func() (err error) {
		switch {
		case files.Params == "":
			p = InputParameters.DefaultParams()
		case opts.FormatTag != nil:
			p, err = InputParameters.ImportTagged(files.Params, *opts.FormatTag)
		default:
			p, err = InputParameters.ImportAuto(files.Params)
		}
		return
	}); err != nil {
		return out, fmt.Errorf("import_netgen_param: %w", err)
	}
	if opts.Threads > 0 {
		p.NbThreads = opts.Threads
	}
	if in, err = feeder.ReadOrientationFile(files.Orientation); err != nil {
		return out, fmt.Errorf("element orientation: %w", err)
	}

	if out, err = Run(ctx, &Request{
		Mesher:      files.Mesher,
		Mesh:        m,
		Shape:       sh,
		Params:      p,
		Orientation: in,
		Observer:    opts.Observer,
		Engine:      opts.Engine,
		RunID:       runID,
	}); err != nil {
		log.Error("Meshing failed", "status", out.Status)
		return
	}

	if err = timed("write_new_elem", runID, func() (err error) {
		var written bool
		if written, err = out.Delta.WriteFile(files.NewElements); err == nil && !written && files.NewElements != "" {
			log.Warn("no element created, result file not written", "file", files.NewElements)
		}
		return
	}); err != nil {
		return out, fmt.Errorf("write_new_elem: %w", err)
	}
	if files.OutputMesh == "" {
		return
	}
	if err = timed("add_element_to_smesh", runID, func() error {
		st, err := result.Inject(m, out.Delta)
		if err != nil {
			return err
		}
		for i, id := range st.NewNodeIDs {
			out.Nodes.Bind(out.Delta.NbExisting+1+i, id)
		}
		if st.ElementsFailed > 0 {
			log.Warn("elements not added to the mesh", "count", st.ElementsFailed, "first", st.FirstError)
		}
		return nil
	}); err != nil {
		return out, fmt.Errorf("add_element_to_smesh: %w", err)
	}
	if err = timed("exportMesh", runID, func() error {
		return mesh.WriteMeshFile(files.OutputMesh, m)
	}); err != nil {
		return out, fmt.Errorf("exportMesh: %w", err)
	}
	return
}
