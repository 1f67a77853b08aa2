package errors

import (
	"fmt"
	"maps"
)

// AppError is the error every runkit surface reports: the CLI prints it and
// the server renders it through ToResponse.
type AppError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
	// HTTPStatus is the status the server answers with.
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Cause      error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause == nil {
		return string(e.Code) + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
}

func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying error and returns e.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges details into e and returns e.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any, len(details))
	}
	maps.Copy(e.Details, details)
	return e
}

// WithDetail sets one detail and returns e.
func (e *AppError) WithDetail(key string, value any) *AppError {
	return e.WithDetails(map[string]any{key: value})
}

// New creates an AppError with an explicit status. Retryable follows code.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// newCode builds an AppError whose status and retryability come from code.
// Empty detail values are dropped.
func newCode(code ErrorCode, message string, details ...string) *AppError {
	e := New(code, message, StatusOf(code))
	for i := 0; i+1 < len(details); i += 2 {
		if details[i+1] != "" {
			e.WithDetail(details[i], details[i+1])
		}
	}
	return e
}

// ServiceUnavailable reports that a dependency (circuit breaker, bulkhead, store) refused work.
func ServiceUnavailable(service string) *AppError {
	return newCode(ErrCodeServiceUnavailable, service+" is temporarily unavailable", "service", service)
}

// Timeout reports that an operation exceeded its deadline.
func Timeout(operation string) *AppError {
	return newCode(ErrCodeTimeout, operation+" timed out", "operation", operation)
}

// RateLimited reports a call the rate limiter turned away. It is retryable.
func RateLimited() *AppError {
	return newCode(ErrCodeRateLimited, "rate limit exceeded")
}

// Cancelled reports that the caller abandoned the run.
func Cancelled(operation string) *AppError {
	return newCode(ErrCodeCancelled, operation+" was cancelled", "operation", operation)
}

// NotFound reports a missing resource. id is omitted from details when empty.
func NotFound(resource, id string) *AppError {
	return newCode(ErrCodeNotFound, resource+" not found", "resource", resource, "id", id)
}

// InvalidInput reports run input that cannot be used.
func InvalidInput(field, reason string) *AppError {
	return newCode(ErrCodeInvalidInput, "invalid input: "+reason, "field", field)
}

// Validation reports failed struct or definition checks. The message lists
// every failure.
func Validation(message string) *AppError {
	return newCode(ErrCodeInvalidInput, message)
}

// InvalidDefinition reports a malformed composition or chain definition.
func InvalidDefinition(name, reason string) *AppError {
	return newCode(ErrCodeInvalidDefinition, "invalid definition: "+reason, "definition", name)
}

// ExecutionFailed wraps an error returned while running a runnable.
func ExecutionFailed(runnable string, cause error) *AppError {
	return newCode(ErrCodeExecutionFailed, runnable+" failed", "runnable", runnable).WithCause(cause)
}

// Internal hides cause behind a generic message for failures that are not
// the caller's concern.
func Internal(cause error) *AppError {
	return newCode(ErrCodeInternal, "an unexpected error occurred").WithCause(cause)
}
