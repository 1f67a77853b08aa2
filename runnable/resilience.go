package runnable

import (
	"context"
	"errors"

	apperrors "github.com/kbukum/runkit/errors"
	"github.com/kbukum/runkit/resilience"
)

// ResilienceConfig bundles optional resilience policies. Nil fields are skipped.
type ResilienceConfig struct {
	CircuitBreaker *resilience.CircuitBreakerConfig `yaml:"circuit_breaker" mapstructure:"circuit_breaker" json:"circuit_breaker"`
	Retry          *resilience.RetryConfig          `yaml:"retry" mapstructure:"retry" json:"retry"`
	RateLimiter    *resilience.RateLimiterConfig    `yaml:"rate_limiter" mapstructure:"rate_limiter" json:"rate_limiter"`
	Bulkhead       *resilience.BulkheadConfig       `yaml:"bulkhead" mapstructure:"bulkhead" json:"bulkhead"`
}

// IsEmpty reports whether no policy is configured.
func (c ResilienceConfig) IsEmpty() bool {
	return c.CircuitBreaker == nil && c.Retry == nil && c.RateLimiter == nil && c.Bulkhead == nil
}

// WithRetry retries failed invocations according to cfg.
func WithRetry[I, O any](cfg resilience.RetryConfig) Middleware[I, O] {
	return WithResilience[I, O](ResilienceConfig{Retry: &cfg})
}

// WithResilience applies the configured policies in the order
// rate limiter, bulkhead, circuit breaker, retry. The policy state (tokens,
// slots, breaker) is created once and shared by every invocation of the
// wrapped runnable. Retry and the breaker use IsTransient unless the config
// names its own predicate. Rejections from the policies are reported as AppErrors;
// errors from the runnable itself pass through.
func WithResilience[I, O any](cfg ResilienceConfig) Middleware[I, O] {
	return func(inner Runnable[I, O]) Runnable[I, O] {
		if cfg.IsEmpty() {
			return inner
		}
		var (
			rl *resilience.RateLimiter
			bh *resilience.Bulkhead
			cb *resilience.CircuitBreaker
		)
		if cfg.RateLimiter != nil {
			rl = resilience.NewRateLimiter(*cfg.RateLimiter)
		}
		if cfg.Bulkhead != nil {
			bh = resilience.NewBulkhead(*cfg.Bulkhead)
		}
		if cfg.CircuitBreaker != nil {
			cbCfg := *cfg.CircuitBreaker
			if cbCfg.IsFailure == nil {
				cbCfg.IsFailure = IsTransient
			}
			cb = resilience.NewCircuitBreaker(cbCfg)
		}
		var retry *resilience.RetryConfig
		if cfg.Retry != nil {
			retryCfg := *cfg.Retry
			if retryCfg.RetryIf == nil {
				retryCfg.RetryIf = IsTransient
			}
			retry = &retryCfg
		}

		return &wrapped[I, O]{inner: inner, invoke: func(ctx context.Context, input I) (O, error) {
			var zero O
			if rl != nil {
				if err := rl.Wait(ctx); err != nil {
					return zero, wrapResilienceError(inner.Name(), err)
				}
			}

			call := func(ctx context.Context) (O, error) { return inner.Invoke(ctx, input) }
			if retry != nil {
				base := call
				call = func(ctx context.Context) (O, error) {
					return resilience.Retry(ctx, *retry, func(ctx context.Context, _ int) (O, error) {
						return base(ctx)
					})
				}
			}
			if cb != nil {
				guarded := call
				call = func(ctx context.Context) (O, error) {
					out, err := resilience.Call(ctx, cb, guarded)
					if errors.Is(err, resilience.ErrCircuitOpen) {
						return zero, wrapResilienceError(inner.Name(), err)
					}
					return out, err
				}
			}
			if bh != nil {
				isolated := call
				call = func(ctx context.Context) (O, error) {
					out, err := resilience.Isolate(ctx, bh, isolated)
					if errors.Is(err, resilience.ErrBulkheadFull) || errors.Is(err, resilience.ErrBulkheadTimeout) {
						return zero, wrapResilienceError(inner.Name(), err)
					}
					return out, err
				}
			}
			return call(ctx)
		}}
	}
}

// IsTransient reports whether err may succeed on another attempt. It is
// the default retry predicate and circuit breaker failure test of
// WithResilience. AppErrors answer with their Retryable flag, so invalid
// input and per-attempt TIMEOUTs are told apart. Cancellation, the caller's
// own deadline and branch conditions that failed to evaluate are never
// transient.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr.Retryable
	}
	var predErr *PredicateEvaluationError
	return !errors.Is(err, context.DeadlineExceeded) && !errors.As(err, &predErr)
}

// wrapResilienceError converts a policy rejection into an AppError.
func wrapResilienceError(name string, err error) error {
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		return apperrors.ServiceUnavailable(name).WithDetail("reason", "circuit_open").WithCause(err)
	case errors.Is(err, resilience.ErrBulkheadFull), errors.Is(err, resilience.ErrBulkheadTimeout):
		return apperrors.ServiceUnavailable(name).WithDetail("reason", "bulkhead").WithCause(err)
	case errors.Is(err, resilience.ErrRateLimited):
		return apperrors.RateLimited().WithDetail("runnable", name).WithCause(err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.Timeout(name).WithCause(err)
	default:
		return err
	}
}
