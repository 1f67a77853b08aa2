// Package errors provides the structured error type used at runkit's outer
// surfaces (HTTP server, CLI, middleware). It carries a machine-readable code,
// HTTP status mapping and retryable detection following RFC 7807.
//
// Composition errors raised by package runnable are plain Go errors;
// FromExecution lifts them into an AppError while keeping the step, branch
// and index context they carry.
package errors
