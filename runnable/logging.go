package runnable

import (
	"context"
	"time"

	"github.com/kbukum/runkit/logger"
)

// WithLogging logs every invocation with its duration and outcome.
// Failures log at error level, successes at debug.
func WithLogging[I, O any](log *logger.Logger) Middleware[I, O] {
	return func(inner Runnable[I, O]) Runnable[I, O] {
		return &wrapped[I, O]{inner: inner, invoke: func(ctx context.Context, input I) (O, error) {
			start := time.Now()
			out, err := inner.Invoke(ctx, input)

			fields := map[string]interface{}{
				logger.FieldRunnable: inner.Name(),
				logger.FieldDuration: time.Since(start).Milliseconds(),
			}
			l := log.WithContext(ctx)
			if err != nil {
				fields[logger.FieldError] = err.Error()
				l.Error("runnable invoke failed", fields)
			} else {
				l.Debug("runnable invoke ok", fields)
			}
			return out, err
		}}
	}
}
