package runnable

import (
	"context"
	"runtime/debug"
)

const defaultBranchName = "branch"

// Condition decides whether a case applies. A returned error aborts the branch.
type Condition[I any] func(ctx context.Context, input I) (bool, error)

// Case pairs a condition with the runnable it selects.
type Case[I, O any] struct {
	cond Condition[I]
	r    Runnable[I, O]
}

// When builds a case from an infallible predicate.
func When[I, O any](pred func(I) bool, r Runnable[I, O]) Case[I, O] {
	var cond Condition[I]
	if pred != nil {
		cond = func(_ context.Context, in I) (bool, error) { return pred(in), nil }
	}
	return Case[I, O]{cond: cond, r: r}
}

// WhenE builds a case from a fallible condition.
func WhenE[I, O any](cond Condition[I], r Runnable[I, O]) Case[I, O] {
	return Case[I, O]{cond: cond, r: r}
}

// Branch runs the runnable of the first case whose condition holds, or the
// default when none does.
type Branch[I, O any] struct {
	name  string
	cases []Case[I, O]
	def   Runnable[I, O]
}

// NewBranch builds a branch. Cases are tried in the order given.
func NewBranch[I, O any](name string, def Runnable[I, O], cases ...Case[I, O]) (*Branch[I, O], error) {
	if def == nil {
		return nil, ErrNoDefault
	}
	if len(cases) == 0 {
		return nil, ErrNoCases
	}
	for _, c := range cases {
		if c.cond == nil || c.r == nil {
			return nil, ErrNilRunnable
		}
	}
	if name == "" {
		name = defaultBranchName
	}
	return &Branch[I, O]{name: name, cases: append([]Case[I, O](nil), cases...), def: def}, nil
}

// MustBranch is NewBranch that panics on an invalid definition.
func MustBranch[I, O any](name string, def Runnable[I, O], cases ...Case[I, O]) *Branch[I, O] {
	b, err := NewBranch(name, def, cases...)
	if err != nil {
		panic(err)
	}
	return b
}

// Name returns the branch name.
func (b *Branch[I, O]) Name() string { return b.name }

// WithName returns a copy of b reported under name.
func (b *Branch[I, O]) WithName(name string) *Branch[I, O] {
	cp := *b
	cp.name = name
	return &cp
}

// Route evaluates the conditions in order, each at most once, and returns
// the index of the first that holds, or -1 for the default.
func (b *Branch[I, O]) Route(ctx context.Context, input I) (int, error) {
	for i, c := range b.cases {
		ok, err := b.eval(ctx, c.cond, input)
		if err != nil {
			return 0, &PredicateEvaluationError{Branch: b.name, Index: i, Err: err}
		}
		if ok {
			return i, nil
		}
	}
	return -1, nil
}

// Invoke routes input and runs the selected runnable. Errors from the
// selected runnable are returned unchanged.
func (b *Branch[I, O]) Invoke(ctx context.Context, input I) (O, error) {
	idx, err := b.Route(ctx, input)
	if err != nil {
		var zero O
		return zero, err
	}
	if idx < 0 {
		return b.def.Invoke(ctx, input)
	}
	return b.cases[idx].r.Invoke(ctx, input)
}

func (b *Branch[I, O]) eval(ctx context.Context, cond Condition[I], input I) (ok bool, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &PanicError{Runnable: b.name, Value: v, Stack: debug.Stack()}
		}
	}()
	return cond(ctx, input)
}
