package runnable

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/kbukum/runkit/errors"
)

// WithTimeout bounds each invocation to d. A call that runs out of time
// fails with a TIMEOUT AppError wrapping context.DeadlineExceeded. The
// caller's own deadline is reported unchanged.
func WithTimeout[I, O any](d time.Duration) Middleware[I, O] {
	return func(inner Runnable[I, O]) Runnable[I, O] {
		if d <= 0 {
			return inner
		}
		return &wrapped[I, O]{inner: inner, invoke: func(ctx context.Context, input I) (O, error) {
			tctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()

			out, err := inner.Invoke(tctx, input)
			if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				var zero O
				return zero, apperrors.Timeout(inner.Name()).
					WithDetail("timeout", d.String()).
					WithCause(err)
			}
			return out, err
		}}
	}
}
