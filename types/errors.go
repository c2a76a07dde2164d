package types

import (
	"errors"
	"fmt"
)

// FormatError reports a malformed parameter or side file.
type FormatError struct {
	File  string
	Line  int    // 1-based line or record number, 0 when not applicable
	Field string // name of the field being read
	Err   error
}

func (e *FormatError) Error() string {
	var loc string
	switch {
	case e.Line > 0 && e.Field != "":
		loc = fmt.Sprintf(" line %d (%s)", e.Line, e.Field)
	case e.Line > 0:
		loc = fmt.Sprintf(" line %d", e.Line)
	case e.Field != "":
		loc = fmt.Sprintf(" (%s)", e.Field)
	}
	return fmt.Sprintf("format error in %q%s: %v", e.File, loc, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// BadInputMeshError reports a null or wrong-topology boundary element.
type BadInputMeshError struct {
	ElementID int64
	Reason    string
}

func (e *BadInputMeshError) Error() string {
	if e.ElementID == 0 {
		return "bad input mesh: " + e.Reason
	}
	return fmt.Sprintf("bad input mesh: element %d: %s", e.ElementID, e.Reason)
}

// BadParametersError reports a size map load failure or an invalid sizing combination.
type BadParametersError struct {
	Reason string
	Err    error
}

func (e *BadParametersError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("bad parameters: %s: %v", e.Reason, e.Err)
	}
	return "bad parameters: " + e.Reason
}

func (e *BadParametersError) Unwrap() error { return e.Err }

type ErrorKind uint8

const (
	Kind_None ErrorKind = iota
	Kind_Cancelled
	Kind_GenerationFailed
	Kind_GeometryException
	Kind_KernelException
	Kind_UnknownException
)

func (k ErrorKind) String() string {
	switch k {
	case Kind_Cancelled:
		return "Cancelled"
	case Kind_GenerationFailed:
		return "GenerationFailed"
	case Kind_GeometryException:
		return "GeometryException"
	case Kind_KernelException:
		return "KernelException"
	case Kind_UnknownException:
		return "UnknownException"
	}
	return "None"
}

/*
MeshGenerationError is the single error type produced at the kernel boundary.
Every failure raised inside the kernel is translated into one of the closed set
of kinds above, tagged with the phase that was running.
*/
type MeshGenerationError struct {
	Kind     ErrorKind
	Phase    MeshingPhase
	Task     string
	TypeName string // dynamic type of a geometry failure
	Message  string
	// BadElements holds kernel element indices reported as invalid, if any
	BadElements []int
}

func (e *MeshGenerationError) Error() string {
	var msg string
	switch e.Kind {
	case Kind_Cancelled:
		return "meshing cancelled"
	case Kind_GenerationFailed:
		msg = "Error in mesh generation"
	case Kind_GeometryException:
		msg = "Exception in mesh generation"
	case Kind_KernelException:
		msg = "NgException"
	default:
		msg = "Exception in mesh generation"
	}
	if e.Task != "" {
		msg += " at " + e.Task
	}
	if e.TypeName != "" {
		msg += ": " + e.TypeName
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if len(e.BadElements) > 0 {
		msg += fmt.Sprintf(" (%d bad elements)", len(e.BadElements))
	}
	return msg
}

// KindOf returns the generation error kind wrapped by err, Kind_None if err is not one.
func KindOf(err error) ErrorKind {
	var mge *MeshGenerationError
	if errors.As(err, &mge) {
		return mge.Kind
	}
	return Kind_None
}

func IsCancelled(err error) bool { return KindOf(err) == Kind_Cancelled }
