package runnable

import (
	"context"
)

// WithFallbacks tries each fallback in order after the wrapped runnable
// fails. The first success wins; if every attempt fails, the last error is
// returned. A cancelled caller stops the chain early.
func WithFallbacks[I, O any](fallbacks ...Runnable[I, O]) Middleware[I, O] {
	return func(inner Runnable[I, O]) Runnable[I, O] {
		if len(fallbacks) == 0 {
			return inner
		}
		return &wrapped[I, O]{inner: inner, invoke: func(ctx context.Context, input I) (O, error) {
			out, err := inner.Invoke(ctx, input)
			for _, fb := range fallbacks {
				if err == nil || ctx.Err() != nil {
					break
				}
				out, err = fb.Invoke(ctx, input)
			}
			return out, err
		}}
	}
}
