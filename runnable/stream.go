package runnable

import (
	"context"
	"errors"
)

// Iterator provides pull-based access to a stream of values.
type Iterator[T any] interface {
	// Next returns the next value, or (zero, false, nil) when exhausted.
	Next(ctx context.Context) (T, bool, error)
	// Close releases any resources held by the iterator.
	Close() error
}

// Streamer is implemented by runnables that can produce output
// incrementally. Stream uses it when present.
type Streamer[I, O any] interface {
	Stream(ctx context.Context, input I) (Iterator[O], error)
}

// Stream returns r's output as an iterator. Runnables without a native
// stream yield a single value: the result of Invoke.
func Stream[I, O any](ctx context.Context, r Runnable[I, O], input I) (Iterator[O], error) {
	if s, ok := r.(Streamer[I, O]); ok {
		return s.Stream(ctx, input)
	}
	out, err := r.Invoke(ctx, input)
	if err != nil {
		return nil, err
	}
	return &sliceIter[O]{items: []O{out}}, nil
}

// Transform lazily applies r to every value pulled from src. An Invoke
// failure ends the stream with that error.
func Transform[I, O any](r Runnable[I, O], src Iterator[I]) Iterator[O] {
	return &transformIter[I, O]{r: r, src: src}
}

// FromSlice returns an iterator over items.
func FromSlice[T any](items []T) Iterator[T] {
	return &sliceIter[T]{items: items}
}

// FromChannel returns an iterator that drains ch until it is closed.
func FromChannel[T any](ch <-chan T) Iterator[T] {
	return &channelIter[T]{ch: ch}
}

// Collect drains it and closes it. Values read before an error are returned
// with the error.
func Collect[T any](ctx context.Context, it Iterator[T]) (out []T, err error) {
	defer func() {
		err = errors.Join(err, it.Close())
	}()
	for {
		v, ok, err := it.Next(ctx)
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, v)
	}
}

type sliceIter[T any] struct {
	items []T
	index int
}

func (it *sliceIter[T]) Next(_ context.Context) (T, bool, error) {
	if it.index >= len(it.items) {
		var zero T
		return zero, false, nil
	}
	v := it.items[it.index]
	it.index++
	return v, true, nil
}

func (it *sliceIter[T]) Close() error { return nil }

type channelIter[T any] struct {
	ch <-chan T
}

func (it *channelIter[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T
	select {
	case v, open := <-it.ch:
		if !open {
			return zero, false, nil
		}
		return v, true, nil
	case <-ctx.Done():
		return zero, false, ctx.Err()
	}
}

func (it *channelIter[T]) Close() error { return nil }

type transformIter[I, O any] struct {
	r   Runnable[I, O]
	src Iterator[I]
}

func (it *transformIter[I, O]) Next(ctx context.Context) (O, bool, error) {
	var zero O
	in, ok, err := it.src.Next(ctx)
	if err != nil || !ok {
		return zero, false, err
	}
	out, err := it.r.Invoke(ctx, in)
	if err != nil {
		return zero, false, err
	}
	return out, true, nil
}

func (it *transformIter[I, O]) Close() error { return it.src.Close() }
