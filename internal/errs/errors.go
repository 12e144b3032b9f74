// Package errs defines the error taxonomy shared across the trace pipeline.
//
// Every stage wraps a sentinel error in a context-carrying struct that
// implements Unwrap, so callers can classify failures with errors.Is/errors.As
// without parsing messages.
package errs

import (
	"errors"
	"fmt"
)

var (
	ErrIO                  = errors.New("io failure")
	ErrBadMagic            = errors.New("bad file magic")
	ErrUnknownKind         = errors.New("unknown record kind")
	ErrShortRead           = errors.New("short read")
	ErrTraceInconsistent   = errors.New("trace inconsistent")
	ErrCycleDetected       = errors.New("cycle detected")
	ErrPartialCommunication = errors.New("partial communication")
)

// PipelineError wraps a sentinel with stage-specific context.
type PipelineError struct {
	Kind error
	Msg  string
}

func (e *PipelineError) Error() string {
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *PipelineError) Unwrap() error { return e.Kind }

// IOErrorf builds an ErrIO-classified error.
func IOErrorf(format string, args ...any) error {
	return &PipelineError{Kind: ErrIO, Msg: fmt.Sprintf(format, args...)}
}

// BadMagicErrorf builds an ErrBadMagic-classified error.
func BadMagicErrorf(format string, args ...any) error {
	return &PipelineError{Kind: ErrBadMagic, Msg: fmt.Sprintf(format, args...)}
}

// UnknownKindErrorf builds an ErrUnknownKind-classified error.
func UnknownKindErrorf(format string, args ...any) error {
	return &PipelineError{Kind: ErrUnknownKind, Msg: fmt.Sprintf(format, args...)}
}

// ShortReadErrorf builds an ErrShortRead-classified error.
func ShortReadErrorf(format string, args ...any) error {
	return &PipelineError{Kind: ErrShortRead, Msg: fmt.Sprintf(format, args...)}
}

// TraceInconsistentError identifies the offending process/task/invariant.
type TraceInconsistentError struct {
	Pid       uint32
	Uid       uint32
	Invariant string
}

func (e *TraceInconsistentError) Error() string {
	return fmt.Sprintf("trace inconsistent: pid=%d uid=%d invariant=%q", e.Pid, e.Uid, e.Invariant)
}

func (e *TraceInconsistentError) Unwrap() error { return ErrTraceInconsistent }

// CycleDetectedError carries the cycle witness path.
type CycleDetectedError struct {
	Path []string
}

func (e *CycleDetectedError) Error() string {
	return fmt.Sprintf("cycle detected: %v", e.Path)
}

func (e *CycleDetectedError) Unwrap() error { return ErrCycleDetected }

// PartialCommunicationWarning is non-fatal; it is routed through the logger,
// never returned as a pipeline-aborting error.
type PartialCommunicationWarning struct {
	Msg string
}

func (w *PartialCommunicationWarning) Error() string { return w.Msg }

func (w *PartialCommunicationWarning) Unwrap() error { return ErrPartialCommunication }
