// Package resilience provides the fault-tolerance primitives runkit applies
// around runnables: retry with backoff, circuit breaking, token-bucket rate
// limiting and bulkheads.
//
// The primitives are independent. Package runnable composes them in the order
// rate limiter, bulkhead, circuit breaker, retry:
//
//	r = runnable.WithResilience[I, O](runnable.ResilienceConfig{
//	    Retry:          &resilience.RetryConfig{MaxAttempts: 3},
//	    CircuitBreaker: &resilience.CircuitBreakerConfig{Name: "summarize"},
//	})(r)
package resilience
