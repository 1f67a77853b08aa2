package runnable

import (
	"context"
	"errors"
	"strings"
)

var errLeaf = errors.New("leaf failed")

var (
	double = Map("double", func(x int) int { return x * 2 })
	addTen = Map("add_ten", func(x int) int { return x + 10 })
	triple = Map("triple", func(x int) int { return x * 3 })
	square = Map("square", func(x int) int { return x * x })
)

func failing[I, O any](name string, err error) Runnable[I, O] {
	return Func(name, func(context.Context, I) (O, error) {
		var zero O
		return zero, err
	})
}

// blocking waits for cancellation and reports it.
func blocking[I, O any](name string, started chan<- struct{}) Runnable[I, O] {
	return Func(name, func(ctx context.Context, _ I) (O, error) {
		if started != nil {
			started <- struct{}{}
		}
		<-ctx.Done()
		var zero O
		return zero, ctx.Err()
	})
}

var upper = Map("upper", strings.ToUpper)
