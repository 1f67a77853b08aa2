package observability

import (
	"context"
	"time"
)

// Invocation status labels.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Recorder receives invocation measurements from runnable middleware.
type Recorder interface {
	// InvocationStarted marks one call of the named runnable as in flight.
	InvocationStarted(ctx context.Context, runnable string)
	// InvocationFinished ends the in-flight call and records its outcome.
	InvocationFinished(ctx context.Context, runnable, status string, d time.Duration)
	// RecordError counts a failure by error class.
	RecordError(ctx context.Context, runnable, errType string)
}

// NopRecorder discards all measurements.
type NopRecorder struct{}

func (NopRecorder) InvocationStarted(context.Context, string)                         {}
func (NopRecorder) InvocationFinished(context.Context, string, string, time.Duration) {}
func (NopRecorder) RecordError(context.Context, string, string)                       {}

// Multi fans measurements out to every recorder.
func Multi(recorders ...Recorder) Recorder {
	return multiRecorder(recorders)
}

type multiRecorder []Recorder

func (m multiRecorder) InvocationStarted(ctx context.Context, runnable string) {
	for _, r := range m {
		r.InvocationStarted(ctx, runnable)
	}
}

func (m multiRecorder) InvocationFinished(ctx context.Context, runnable, status string, d time.Duration) {
	for _, r := range m {
		r.InvocationFinished(ctx, runnable, status, d)
	}
}

func (m multiRecorder) RecordError(ctx context.Context, runnable, errType string) {
	for _, r := range m {
		r.RecordError(ctx, runnable, errType)
	}
}
