package runnable

import (
	"context"
	"fmt"
)

// Assign runs p on the input record and returns the input extended with
// p's outputs. Keys produced by p overwrite input keys of the same name.
func Assign(p *Parallel[*Values]) Runnable[*Values, *Values] {
	return Func("assign", func(ctx context.Context, in *Values) (*Values, error) {
		added, err := p.Invoke(ctx, in)
		if err != nil {
			return nil, err
		}
		return in.Merge(added), nil
	})
}

// Pick projects a record onto keys, in the order given. Missing keys fail.
func Pick(keys ...string) Runnable[*Values, *Values] {
	return Func("pick", func(_ context.Context, in *Values) (*Values, error) {
		out := &Values{vals: make(map[string]any, len(keys))}
		for _, k := range keys {
			v, ok := in.Get(k)
			if !ok {
				return nil, fmt.Errorf("%w: %q", ErrKeyNotFound, k)
			}
			out.set(k, v)
		}
		return out, nil
	})
}

// Get extracts a single field of a record as a T.
func Get[T any](key string) Runnable[*Values, T] {
	return Func("get:"+key, func(_ context.Context, in *Values) (T, error) {
		return Lookup[T](in, key)
	})
}

// Wrap lifts a value into a single-entry record under key.
func Wrap[T any](key string) Runnable[T, *Values] {
	return Map("wrap:"+key, func(in T) *Values { return NewValues(key, in) })
}
