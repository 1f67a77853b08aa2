package runnable

import (
	"context"
	"reflect"
)

// Runnable is a named, reentrant unit of work.
type Runnable[I, O any] interface {
	Name() string
	Invoke(ctx context.Context, input I) (O, error)
}

// Func wraps a fallible function as a leaf runnable.
func Func[I, O any](name string, fn func(ctx context.Context, input I) (O, error)) Runnable[I, O] {
	return &funcRunnable[I, O]{name: name, fn: fn}
}

// Map wraps an infallible function as a leaf runnable.
func Map[I, O any](name string, fn func(input I) O) Runnable[I, O] {
	return &funcRunnable[I, O]{name: name, fn: func(_ context.Context, in I) (O, error) {
		return fn(in), nil
	}}
}

// Const returns a leaf that ignores its input and always yields v.
func Const[I, O any](name string, v O) Runnable[I, O] {
	return Map(name, func(I) O { return v })
}

// Passthrough returns its input unchanged.
func Passthrough[T any]() Runnable[T, T] {
	return &funcRunnable[T, T]{name: "passthrough", fn: func(_ context.Context, in T) (T, error) {
		return in, nil
	}}
}

type funcRunnable[I, O any] struct {
	name string
	fn   func(context.Context, I) (O, error)
}

func (f *funcRunnable[I, O]) Name() string { return f.name }

func (f *funcRunnable[I, O]) Invoke(ctx context.Context, input I) (O, error) {
	return f.fn(ctx, input)
}

// Named returns r reported under a different name.
func Named[I, O any](name string, r Runnable[I, O]) Runnable[I, O] {
	return &named[I, O]{name: name, Runnable: r}
}

type named[I, O any] struct {
	name string
	Runnable[I, O]
}

func (n *named[I, O]) Name() string { return n.name }

// Any erases the static types of r. Inputs of the wrong dynamic type fail
// with a *TypeError.
func Any[I, O any](r Runnable[I, O]) Runnable[any, any] {
	if e, ok := any(r).(Runnable[any, any]); ok {
		return e
	}
	if sl, ok := any(r).(stepLister); ok {
		return &Sequence[any, any]{name: r.Name(), steps: sl.erasedSteps()}
	}
	return &erased[I, O]{r: r}
}

type erased[I, O any] struct {
	r Runnable[I, O]
}

func (e *erased[I, O]) Name() string { return e.r.Name() }

func (e *erased[I, O]) Invoke(ctx context.Context, input any) (any, error) {
	in, ok := cast[I](input)
	if !ok {
		return nil, newTypeError(e.r.Name(), "input", input, reflect.TypeFor[I]())
	}
	return e.r.Invoke(ctx, in)
}

// Typed restores static types on an erased runnable. Outputs of the wrong
// dynamic type fail with a *TypeError.
func Typed[I, O any](r Runnable[any, any]) Runnable[I, O] {
	if t, ok := any(r).(Runnable[I, O]); ok {
		return t
	}
	if e, ok := r.(*erased[I, O]); ok {
		return e.r
	}
	return &typed[I, O]{r: r}
}

type typed[I, O any] struct {
	r Runnable[any, any]
}

func (t *typed[I, O]) Name() string { return t.r.Name() }

func (t *typed[I, O]) Invoke(ctx context.Context, input I) (O, error) {
	var zero O
	out, err := t.r.Invoke(ctx, input)
	if err != nil {
		return zero, err
	}
	v, ok := cast[O](out)
	if !ok {
		return zero, newTypeError(t.r.Name(), "output", out, reflect.TypeFor[O]())
	}
	return v, nil
}

// cast converts v to T. A nil v converts to the zero T only when T can hold nil.
func cast[T any](v any) (T, bool) {
	if t, ok := v.(T); ok {
		return t, true
	}
	var zero T
	if v == nil {
		switch reflect.TypeFor[T]().Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return zero, true
		}
	}
	return zero, false
}
