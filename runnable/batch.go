package runnable

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// BatchOption configures Batch and BatchResults.
type BatchOption func(*batchOptions)

type batchOptions struct {
	concurrency int
}

func newBatchOptions(opts []BatchOption) batchOptions {
	o := batchOptions{concurrency: 1}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithMaxConcurrency lets up to n elements run at once. n <= 0 runs every
// element concurrently. Without it elements run one after another.
func WithMaxConcurrency(n int) BatchOption {
	return func(o *batchOptions) { o.concurrency = n }
}

// Batcher is implemented by runnables with a native batch path. Batch uses
// it instead of per-element Invoke.
type Batcher[I, O any] interface {
	Batch(ctx context.Context, inputs []I, opts ...BatchOption) ([]O, error)
}

// Batch invokes r on every input and returns the outputs in input order.
//
// The batch fails as a whole: the first failing element (by index, among
// those that did not merely observe the batch's cancellation) is returned
// as a *BatchElementError, remaining elements are cancelled, and no partial
// output is returned. Use BatchResults to keep per-element outcomes.
func Batch[I, O any](ctx context.Context, r Runnable[I, O], inputs []I, opts ...BatchOption) ([]O, error) {
	if b, ok := r.(Batcher[I, O]); ok {
		outs, err := b.Batch(ctx, inputs, opts...)
		if err != nil {
			return nil, err
		}
		if len(outs) != len(inputs) {
			return nil, fmt.Errorf("runnable %q: batch returned %d outputs for %d inputs", r.Name(), len(outs), len(inputs))
		}
		return outs, nil
	}

	o := newBatchOptions(opts)
	outs := make([]O, len(inputs))
	if len(inputs) == 0 {
		return outs, nil
	}

	if o.concurrency == 1 || len(inputs) == 1 {
		for i, in := range inputs {
			if err := ctx.Err(); err != nil {
				return nil, &BatchElementError{Index: i, Err: err}
			}
			out, err := safeInvoke(ctx, r, in)
			if err != nil {
				return nil, &BatchElementError{Index: i, Err: err}
			}
			outs[i] = out
		}
		return outs, nil
	}

	errs := make([]error, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	if o.concurrency > 0 {
		g.SetLimit(o.concurrency)
	}
	for i, in := range inputs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				errs[i] = err
				return err
			}
			out, err := safeInvoke(gctx, r, in)
			if err != nil {
				errs[i] = err
				return err
			}
			outs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		i := firstFailure(errs, ctx)
		return nil, &BatchElementError{Index: i, Err: errs[i]}
	}
	return outs, nil
}

// Result is the outcome of one batch element.
type Result[O any] struct {
	Output O
	Err    error
}

// BatchResults invokes r on every input and never fails as a whole: each
// element's output or error is reported at its index. A failing element
// does not cancel the others.
func BatchResults[I, O any](ctx context.Context, r Runnable[I, O], inputs []I, opts ...BatchOption) []Result[O] {
	o := newBatchOptions(opts)
	results := make([]Result[O], len(inputs))

	var g errgroup.Group
	if o.concurrency > 0 {
		g.SetLimit(o.concurrency)
	}
	for i, in := range inputs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			out, err := safeInvoke(ctx, r, in)
			results[i] = Result[O]{Output: out, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
