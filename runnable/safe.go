package runnable

import (
	"context"
	"fmt"
	"runtime/debug"
)

// PanicError is returned in place of a panic raised while a runnable ran.
type PanicError struct {
	Runnable string
	Value    any
	Stack    []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("runnable %q panicked: %v", e.Runnable, e.Value)
}

// Unwrap exposes a panicked error value.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// safeInvoke invokes r and converts a panic into a *PanicError. It is used
// on every goroutine the package starts so that a panicking branch cannot
// crash the process.
func safeInvoke[I, O any](ctx context.Context, r Runnable[I, O], input I) (out O, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &PanicError{Runnable: r.Name(), Value: v, Stack: debug.Stack()}
		}
	}()
	return r.Invoke(ctx, input)
}
