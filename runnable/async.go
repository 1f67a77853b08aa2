package runnable

import (
	"context"
)

// Future is the pending result of an asynchronous invocation.
type Future[O any] struct {
	done chan struct{}
	out  O
	err  error
}

// InvokeAsync starts r.Invoke on its own goroutine. The call observes ctx;
// its result equals what Invoke would have returned for the same input.
func InvokeAsync[I, O any](ctx context.Context, r Runnable[I, O], input I) *Future[O] {
	return goFuture(func() (O, error) { return safeInvoke(ctx, r, input) })
}

// BatchAsync starts Batch on its own goroutine.
func BatchAsync[I, O any](ctx context.Context, r Runnable[I, O], inputs []I, opts ...BatchOption) *Future[[]O] {
	return goFuture(func() ([]O, error) { return Batch(ctx, r, inputs, opts...) })
}

func goFuture[O any](fn func() (O, error)) *Future[O] {
	f := &Future[O]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.out, f.err = fn()
	}()
	return f
}

// Done is closed once the result is available.
func (f *Future[O]) Done() <-chan struct{} { return f.done }

// Await blocks until the result is available or ctx is done. Giving up on
// Await does not cancel the call itself; cancel the context passed to
// InvokeAsync for that.
func (f *Future[O]) Await(ctx context.Context) (O, error) {
	select {
	case <-f.done:
		return f.out, f.err
	case <-ctx.Done():
		var zero O
		return zero, ctx.Err()
	}
}
