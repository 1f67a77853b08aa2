package runnable

import (
	"context"
	"errors"
	"fmt"
	"reflect"
)

// Definition errors returned by constructors.
var (
	ErrTooFewSteps  = errors.New("runnable: sequence needs at least two steps")
	ErrNoBranches   = errors.New("runnable: parallel needs at least one branch")
	ErrEmptyKey     = errors.New("runnable: parallel branch key is empty")
	ErrDuplicateKey = errors.New("runnable: duplicate parallel branch key")
	ErrNoCases      = errors.New("runnable: branch needs at least one case")
	ErrNoDefault    = errors.New("runnable: branch needs a default")
	ErrNilRunnable  = errors.New("runnable: nil runnable")
	ErrKeyNotFound  = errors.New("runnable: key not found")
)

// SequenceStepError reports the step at which a sequence aborted.
type SequenceStepError struct {
	Sequence string
	Index    int
	Step     string
	Err      error
}

func (e *SequenceStepError) Error() string {
	return fmt.Sprintf("sequence %q: step %d (%s): %v", e.Sequence, e.Index, e.Step, e.Err)
}

func (e *SequenceStepError) Unwrap() error { return e.Err }

// ErrorDetails exposes the failure context to errors.FromExecution.
func (e *SequenceStepError) ErrorDetails() map[string]any {
	return map[string]any{"sequence": e.Sequence, "step": e.Step, "step_index": e.Index}
}

// ParallelBranchError reports the branch that made a parallel fail.
type ParallelBranchError struct {
	Parallel string
	Branch   string
	Err      error
}

func (e *ParallelBranchError) Error() string {
	return fmt.Sprintf("parallel %q: branch %q: %v", e.Parallel, e.Branch, e.Err)
}

func (e *ParallelBranchError) Unwrap() error { return e.Err }

// ErrorDetails exposes the failure context to errors.FromExecution.
func (e *ParallelBranchError) ErrorDetails() map[string]any {
	return map[string]any{"parallel": e.Parallel, "branch": e.Branch}
}

// PredicateEvaluationError reports a branch condition that failed to evaluate.
type PredicateEvaluationError struct {
	Branch string
	Index  int
	Err    error
}

func (e *PredicateEvaluationError) Error() string {
	return fmt.Sprintf("branch %q: condition %d: %v", e.Branch, e.Index, e.Err)
}

func (e *PredicateEvaluationError) Unwrap() error { return e.Err }

// ErrorDetails exposes the failure context to errors.FromExecution.
func (e *PredicateEvaluationError) ErrorDetails() map[string]any {
	return map[string]any{"branch": e.Branch, "condition_index": e.Index}
}

// BatchElementError reports the batch element that made a batch fail.
type BatchElementError struct {
	Index int
	Err   error
}

func (e *BatchElementError) Error() string {
	return fmt.Sprintf("batch element %d: %v", e.Index, e.Err)
}

func (e *BatchElementError) Unwrap() error { return e.Err }

// ErrorDetails exposes the failure context to errors.FromExecution.
func (e *BatchElementError) ErrorDetails() map[string]any {
	return map[string]any{"element_index": e.Index}
}

// TypeError reports a value whose dynamic type does not match what an
// erased runnable expects.
type TypeError struct {
	Runnable string
	Position string // "input" or "output"
	Want     string
	Got      string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("runnable %q: %s type mismatch: want %s, got %s", e.Runnable, e.Position, e.Want, e.Got)
}

// ErrorDetails exposes the failure context to errors.FromExecution.
func (e *TypeError) ErrorDetails() map[string]any {
	return map[string]any{"runnable": e.Runnable, "want": e.Want, "got": e.Got}
}

func newTypeError(name, position string, got any, want reflect.Type) *TypeError {
	g := "nil"
	if got != nil {
		g = reflect.TypeOf(got).String()
	}
	return &TypeError{Runnable: name, Position: position, Want: want.String(), Got: g}
}

// firstFailure picks the error to report from a set of concurrent outcomes:
// the lowest index that failed on its own. Indices that only observed the
// group's own cancellation are skipped unless nothing else failed.
func firstFailure(errs []error, parent context.Context) int {
	fallback := -1
	for i, err := range errs {
		if err == nil {
			continue
		}
		if fallback < 0 {
			fallback = i
		}
		if parent.Err() == nil && errors.Is(err, context.Canceled) {
			continue
		}
		return i
	}
	return fallback
}
