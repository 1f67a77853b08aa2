package resilience

import (
	"context"
	"errors"
	"time"
)

// Bulkhead rejection errors.
var (
	ErrBulkheadFull    = errors.New("bulkhead is full")
	ErrBulkheadTimeout = errors.New("bulkhead wait timeout")
)

// BulkheadConfig configures a bulkhead.
type BulkheadConfig struct {
	// Name identifies this bulkhead in logs and errors.
	Name string `yaml:"name" mapstructure:"name" json:"name"`
	// MaxConcurrent is the number of calls allowed in flight.
	MaxConcurrent int `yaml:"max_concurrent" mapstructure:"max_concurrent" json:"max_concurrent"`
	// MaxWait is how long a caller may wait for a slot. 0 fails immediately.
	MaxWait time.Duration `yaml:"max_wait" mapstructure:"max_wait" json:"max_wait"`
	// OnReject is called when a call is rejected.
	OnReject func(name string) `yaml:"-" mapstructure:"-" json:"-"`
}

// Bulkhead caps the number of concurrent calls into a runnable.
type Bulkhead struct {
	config BulkheadConfig
	sem    chan struct{}
}

// NewBulkhead creates a new bulkhead.
func NewBulkhead(config BulkheadConfig) *Bulkhead {
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 10
	}
	return &Bulkhead{
		config: config,
		sem:    make(chan struct{}, config.MaxConcurrent),
	}
}

// Execute runs fn in a slot.
func (b *Bulkhead) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := b.acquire(ctx); err != nil {
		if b.config.OnReject != nil {
			b.config.OnReject(b.config.Name)
		}
		return err
	}
	defer func() { <-b.sem }()
	return fn(ctx)
}

// Isolate is the value-returning form of Execute.
func Isolate[T any](ctx context.Context, b *Bulkhead, fn func(context.Context) (T, error)) (T, error) {
	var out T
	err := b.Execute(ctx, func(ctx context.Context) error {
		var err error
		out, err = fn(ctx)
		return err
	})
	return out, err
}

func (b *Bulkhead) acquire(ctx context.Context) error {
	select {
	case b.sem <- struct{}{}:
		return nil
	default:
	}

	if b.config.MaxWait <= 0 {
		return ErrBulkheadFull
	}

	timer := time.NewTimer(b.config.MaxWait)
	defer timer.Stop()

	select {
	case b.sem <- struct{}{}:
		return nil
	case <-timer.C:
		return ErrBulkheadTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// InUse returns the number of occupied slots.
func (b *Bulkhead) InUse() int { return len(b.sem) }

// Available returns the number of free slots.
func (b *Bulkhead) Available() int { return cap(b.sem) - len(b.sem) }
