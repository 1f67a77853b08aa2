package runnable

import (
	"context"
	"errors"
	"time"

	"github.com/kbukum/runkit/observability"
)

// WithMetrics reports every invocation to rec.
func WithMetrics[I, O any](rec observability.Recorder) Middleware[I, O] {
	return func(inner Runnable[I, O]) Runnable[I, O] {
		return &wrapped[I, O]{inner: inner, invoke: func(ctx context.Context, input I) (O, error) {
			name := inner.Name()
			rec.InvocationStarted(ctx, name)
			start := time.Now()
			out, err := inner.Invoke(ctx, input)

			status := observability.StatusOK
			if err != nil {
				status = observability.StatusError
				rec.RecordError(ctx, name, ErrorClass(err))
			}
			rec.InvocationFinished(ctx, name, status, time.Since(start))
			return out, err
		}}
	}
}

// ErrorClass names the kind of composition failure err is, for use as a
// metric label.
func ErrorClass(err error) string {
	var (
		seqErr   *SequenceStepError
		parErr   *ParallelBranchError
		predErr  *PredicateEvaluationError
		batchErr *BatchElementError
		typeErr  *TypeError
		panicErr *PanicError
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.As(err, &panicErr):
		return "panic"
	case errors.As(err, &typeErr):
		return "type"
	case errors.As(err, &predErr):
		return "predicate"
	case errors.As(err, &seqErr):
		return "sequence_step"
	case errors.As(err, &parErr):
		return "parallel_branch"
	case errors.As(err, &batchErr):
		return "batch_element"
	default:
		return "execution"
	}
}
