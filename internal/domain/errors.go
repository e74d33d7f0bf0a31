package domain

import (
	"errors"
	"fmt"
)

// FailureKind classifies why a pipeline stage failed. Earlier drafts of the
// analysis let every fault propagate uncaught; each stage now reports a
// distinct kind so callers can tell a missing file from a schema mismatch.
type FailureKind int

const (
	KindUnknown FailureKind = iota
	KindIO
	KindDecode
	KindCRS
	KindSchema
	KindEmptyResult
	KindRender
	KindExport
)

func (k FailureKind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindDecode:
		return "decode"
	case KindCRS:
		return "crs"
	case KindSchema:
		return "schema"
	case KindEmptyResult:
		return "empty-result"
	case KindRender:
		return "render"
	case KindExport:
		return "export"
	default:
		return "unknown"
	}
}

// StageError wraps a stage failure with the stage name and failure kind.
type StageError struct {
	Stage string
	Kind  FailureKind
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// NewStageError wraps err with stage and kind context.
func NewStageError(stage string, kind FailureKind, err error) *StageError {
	return &StageError{Stage: stage, Kind: kind, Err: err}
}

// KindOf returns the failure kind of err, or KindUnknown when err carries
// no StageError in its chain.
func KindOf(err error) FailureKind {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}
