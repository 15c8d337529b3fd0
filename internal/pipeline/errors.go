package pipeline

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies pipeline errors.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindUnknownStepType
	KindExecutorFailure
	KindPropagation
	KindCancellation
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnknownStepType:
		return "unknown_step_type"
	case KindExecutorFailure:
		return "executor_failure"
	case KindPropagation:
		return "propagation"
	case KindCancellation:
		return "cancelled"
	}
	return "unknown"
}

var (
	ErrValidation      = errors.New("invalid pipeline")
	ErrUnknownStepType = errors.New("unknown step type")
	ErrExecutorFailure = errors.New("step failed")
	ErrPropagation     = errors.New("cannot propagate output")
	ErrCancelled       = errors.New("run cancelled")
)

var sentinels = map[Kind]error{
	KindValidation:      ErrValidation,
	KindUnknownStepType: ErrUnknownStepType,
	KindExecutorFailure: ErrExecutorFailure,
	KindPropagation:     ErrPropagation,
	KindCancellation:    ErrCancelled,
}

// Error is the error type produced by chain building and execution. Step names
// the offending step; Other names the second step of an incompatible pair.
type Error struct {
	Kind  Kind
	Step  string
	Other string
	Msg   string
	Err   error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = sentinels[e.Kind].Error()
	}
	switch {
	case e.Step != "" && e.Other != "":
		msg = fmt.Sprintf("steps %q -> %q: %s", e.Step, e.Other, msg)
	case e.Step != "":
		msg = fmt.Sprintf("step %q: %s", e.Step, msg)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	return sentinels[e.Kind] == target
}

func validationErr(step, other, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Step: step, Other: other, Msg: fmt.Sprintf(format, args...)}
}

// IsCancellation reports whether err stems from cancellation or a deadline,
// so callers can avoid reporting it as a fault.
func IsCancellation(err error) bool {
	return errors.Is(err, ErrCancelled) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// KindOf returns the Kind of err, or 0 when err is not a pipeline error.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return 0
}
