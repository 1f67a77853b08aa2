package runnable

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

const defaultParallelName = "parallel"

// Cloner is implemented by inputs that must not be shared between
// concurrently running branches. Parallel hands each branch its own Clone.
type Cloner[T any] interface {
	Clone() T
}

// Entry is one named branch of a Parallel.
type Entry[I any] struct {
	key string
	r   Runnable[I, any]
}

// Key binds r to a branch key.
func Key[I, O any](key string, r Runnable[I, O]) Entry[I] {
	if r == nil {
		return Entry[I]{key: key}
	}
	if ar, ok := any(r).(Runnable[I, any]); ok {
		return Entry[I]{key: key, r: ar}
	}
	return Entry[I]{key: key, r: &anyOutput[I, O]{r: r}}
}

type anyOutput[I, O any] struct {
	r Runnable[I, O]
}

func (a *anyOutput[I, O]) Name() string { return a.r.Name() }

func (a *anyOutput[I, O]) Invoke(ctx context.Context, input I) (any, error) {
	return a.r.Invoke(ctx, input)
}

// Parallel runs every branch on the same input and collects the outputs
// under the branch keys.
type Parallel[I any] struct {
	name    string
	entries []Entry[I]
	limit   int
}

// NewParallel builds a parallel from its branches. Keys must be non-empty
// and unique; the output keeps the order given here.
func NewParallel[I any](name string, entries ...Entry[I]) (*Parallel[I], error) {
	if len(entries) == 0 {
		return nil, ErrNoBranches
	}
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e.key == "" {
			return nil, ErrEmptyKey
		}
		if e.r == nil {
			return nil, fmt.Errorf("%w: branch %q", ErrNilRunnable, e.key)
		}
		if _, dup := seen[e.key]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateKey, e.key)
		}
		seen[e.key] = struct{}{}
	}
	if name == "" {
		name = defaultParallelName
	}
	return &Parallel[I]{name: name, entries: append([]Entry[I](nil), entries...)}, nil
}

// MustParallel is NewParallel that panics on an invalid definition.
func MustParallel[I any](name string, entries ...Entry[I]) *Parallel[I] {
	p, err := NewParallel(name, entries...)
	if err != nil {
		panic(err)
	}
	return p
}

// Name returns the parallel name.
func (p *Parallel[I]) Name() string { return p.name }

// Keys returns the branch keys in declaration order.
func (p *Parallel[I]) Keys() []string {
	keys := make([]string, len(p.entries))
	for i, e := range p.entries {
		keys[i] = e.key
	}
	return keys
}

// WithMaxConcurrency returns a copy of p that runs at most n branches at
// once. n <= 0 removes the limit.
func (p *Parallel[I]) WithMaxConcurrency(n int) *Parallel[I] {
	cp := *p
	cp.limit = n
	return &cp
}

// WithName returns a copy of p reported under name.
func (p *Parallel[I]) WithName(name string) *Parallel[I] {
	cp := *p
	cp.name = name
	return &cp
}

// Invoke runs all branches concurrently. If any branch fails, the others
// are cancelled and awaited, and the failure of the first branch in
// declaration order that did not merely observe the cancellation is
// returned as a *ParallelBranchError.
func (p *Parallel[I]) Invoke(ctx context.Context, input I) (*Values, error) {
	outs := make([]any, len(p.entries))
	errs := make([]error, len(p.entries))

	g, gctx := errgroup.WithContext(ctx)
	if p.limit > 0 {
		g.SetLimit(p.limit)
	}

	for i, e := range p.entries {
		in := input
		if c, ok := any(input).(Cloner[I]); ok {
			in = c.Clone()
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				errs[i] = err
				return err
			}
			out, err := safeInvoke(gctx, e.r, in)
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
		return nil, &ParallelBranchError{Parallel: p.name, Branch: p.entries[i].key, Err: errs[i]}
	}

	v := &Values{keys: p.Keys(), vals: make(map[string]any, len(p.entries))}
	for i, e := range p.entries {
		v.vals[e.key] = outs[i]
	}
	return v, nil
}
