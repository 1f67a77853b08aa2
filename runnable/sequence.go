package runnable

import (
	"context"
	"reflect"
)

const defaultSequenceName = "sequence"

// Sequence runs its steps in order, feeding each output to the next step.
type Sequence[I, O any] struct {
	name  string
	steps []Runnable[any, any]
}

// stepLister lets Then flatten a sequence regardless of its type arguments.
type stepLister interface {
	erasedSteps() []Runnable[any, any]
}

// Then composes first and second into a sequence. Nested sequences are
// flattened, so Then(Then(a, b), c) and Then(a, Then(b, c)) have the same
// steps.
func Then[A, B, C any](first Runnable[A, B], second Runnable[B, C]) *Sequence[A, C] {
	steps := append(flatten(first), flatten(second)...)
	return &Sequence[A, C]{name: defaultSequenceName, steps: steps}
}

// Then3 composes three runnables.
func Then3[A, B, C, D any](a Runnable[A, B], b Runnable[B, C], c Runnable[C, D]) *Sequence[A, D] {
	return Then(Then(a, b), c)
}

// NewSequence builds an untyped sequence from erased steps, as produced by
// Any. It needs at least two steps.
func NewSequence(name string, steps ...Runnable[any, any]) (*Sequence[any, any], error) {
	if len(steps) < 2 {
		return nil, ErrTooFewSteps
	}
	var flat []Runnable[any, any]
	for _, s := range steps {
		if s == nil {
			return nil, ErrNilRunnable
		}
		flat = append(flat, flatten[any, any](s)...)
	}
	if name == "" {
		name = defaultSequenceName
	}
	return &Sequence[any, any]{name: name, steps: flat}, nil
}

func flatten[I, O any](r Runnable[I, O]) []Runnable[any, any] {
	if sl, ok := any(r).(stepLister); ok {
		return sl.erasedSteps()
	}
	return []Runnable[any, any]{Any(r)}
}

func (s *Sequence[I, O]) erasedSteps() []Runnable[any, any] {
	out := make([]Runnable[any, any], len(s.steps))
	copy(out, s.steps)
	return out
}

// Name returns the sequence name.
func (s *Sequence[I, O]) Name() string { return s.name }

// WithName returns a copy of s reported under name.
func (s *Sequence[I, O]) WithName(name string) *Sequence[I, O] {
	return &Sequence[I, O]{name: name, steps: s.steps}
}

// Steps returns the step names in execution order.
func (s *Sequence[I, O]) Steps() []string {
	names := make([]string, len(s.steps))
	for i, st := range s.steps {
		names[i] = st.Name()
	}
	return names
}

// Len returns the number of steps.
func (s *Sequence[I, O]) Len() int { return len(s.steps) }

// Invoke runs each step on the previous step's output. The first failure
// stops the sequence and is returned as a *SequenceStepError.
func (s *Sequence[I, O]) Invoke(ctx context.Context, input I) (O, error) {
	var zero O
	var cur any = input
	for i, step := range s.steps {
		if err := ctx.Err(); err != nil {
			return zero, s.stepError(i, err)
		}
		out, err := step.Invoke(ctx, cur)
		if err != nil {
			return zero, s.stepError(i, err)
		}
		cur = out
	}
	out, ok := cast[O](cur)
	if !ok {
		last := len(s.steps) - 1
		return zero, s.stepError(last, newTypeError(s.steps[last].Name(), "output", cur, reflect.TypeFor[O]()))
	}
	return out, nil
}

func (s *Sequence[I, O]) stepError(i int, err error) error {
	return &SequenceStepError{Sequence: s.name, Index: i, Step: s.steps[i].Name(), Err: err}
}
