package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func failing(context.Context) error { return errBoom }
func passing(context.Context) error { return nil }

func newTestBreaker(maxFailures int) (*CircuitBreaker, *time.Time) {
	now := time.Unix(1000, 0)
	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "test", MaxFailures: maxFailures, Timeout: time.Minute})
	cb.now = func() time.Time { return now }
	return cb, &now
}

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	ctx := context.Background()
	cb, _ := newTestBreaker(2)

	assert.ErrorIs(t, cb.Execute(ctx, failing), errBoom)
	assert.Equal(t, StateClosed, cb.State())
	assert.ErrorIs(t, cb.Execute(ctx, failing), errBoom)
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Execute(ctx, func(context.Context) error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	ctx := context.Background()
	cb, _ := newTestBreaker(2)

	_ = cb.Execute(ctx, failing)
	require.NoError(t, cb.Execute(ctx, passing))
	assert.Equal(t, 0, cb.Failures())
	_ = cb.Execute(ctx, failing)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	ctx := context.Background()
	cb, now := newTestBreaker(1)

	_ = cb.Execute(ctx, failing)
	require.Equal(t, StateOpen, cb.State())

	*now = now.Add(time.Minute)
	assert.Equal(t, StateHalfOpen, cb.State())
	require.NoError(t, cb.Execute(ctx, passing))
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	ctx := context.Background()
	cb, now := newTestBreaker(1)

	_ = cb.Execute(ctx, failing)
	*now = now.Add(time.Minute)
	_ = cb.Execute(ctx, failing)
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreaker_CancellationIsNeutral(t *testing.T) {
	ctx := context.Background()
	cb, _ := newTestBreaker(1)

	err := cb.Execute(ctx, func(context.Context) error { return context.Canceled })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 0, cb.Failures())
}

func TestCircuitBreaker_StateChangeHook(t *testing.T) {
	var transitions []string
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:        "hooked",
		MaxFailures: 1,
		OnStateChange: func(name string, from, to State) {
			transitions = append(transitions, name+":"+from.String()+"->"+to.String())
		},
	})
	_ = cb.Execute(context.Background(), failing)
	cb.Reset()
	assert.Equal(t, []string{"hooked:closed->open", "hooked:open->closed"}, transitions)
}

func TestCall(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig("call"))
	out, err := Call(context.Background(), cb, func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, out)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(42).String())
}
