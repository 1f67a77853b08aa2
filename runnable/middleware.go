package runnable

import "context"

// Middleware wraps a runnable with cross-cutting behavior. The wrapped
// runnable keeps the inner runnable's name.
type Middleware[I, O any] func(Runnable[I, O]) Runnable[I, O]

// Chain composes middlewares into one. The first middleware is outermost:
// Chain(a, b, c)(r) is a(b(c(r))).
func Chain[I, O any](middlewares ...Middleware[I, O]) Middleware[I, O] {
	return func(inner Runnable[I, O]) Runnable[I, O] {
		for i := len(middlewares) - 1; i >= 0; i-- {
			inner = middlewares[i](inner)
		}
		return inner
	}
}

// Apply is shorthand for Chain(middlewares...)(r).
func Apply[I, O any](r Runnable[I, O], middlewares ...Middleware[I, O]) Runnable[I, O] {
	return Chain(middlewares...)(r)
}

// wrapped adapts an around-function into a runnable that keeps inner's name.
type wrapped[I, O any] struct {
	inner  Runnable[I, O]
	invoke func(ctx context.Context, input I) (O, error)
}

func (w *wrapped[I, O]) Name() string { return w.inner.Name() }

func (w *wrapped[I, O]) Invoke(ctx context.Context, input I) (O, error) {
	return w.invoke(ctx, input)
}

// Unwrap returns the runnable the middleware was applied to.
func (w *wrapped[I, O]) Unwrap() Runnable[I, O] { return w.inner }
