package runnable

import (
	"context"

	"github.com/kbukum/runkit/logger"
	"github.com/kbukum/runkit/observability"
)

// WithTracing opens a span named "{service}.{runnable}" around each invocation.
func WithTracing[I, O any](service string) Middleware[I, O] {
	return func(inner Runnable[I, O]) Runnable[I, O] {
		return &wrapped[I, O]{inner: inner, invoke: func(ctx context.Context, input I) (O, error) {
			ctx, span := observability.StartSpan(ctx, service+"."+inner.Name())
			defer span.End()

			observability.SetSpanAttribute(ctx, observability.AttrServiceName, service)
			observability.SetSpanAttribute(ctx, observability.AttrRunnable, inner.Name())
			if runID := logger.RunIDFromContext(ctx); runID != "" {
				observability.SetSpanAttribute(ctx, observability.AttrRunID, runID)
			}

			out, err := inner.Invoke(ctx, input)
			if err != nil {
				observability.SetSpanError(ctx, err)
				observability.SetSpanAttribute(ctx, observability.AttrStatus, observability.StatusError)
			} else {
				observability.SetSpanAttribute(ctx, observability.AttrStatus, observability.StatusOK)
			}
			return out, err
		}}
	}
}
