package errors

import (
	"context"
	stderrors "errors"
)

// ErrorResponse is the JSON structure returned to clients following RFC 7807.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody contains the error details sent to clients.
type ErrorBody struct {
	Code      ErrorCode      `json:"code"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable"`
	Details   map[string]any `json:"details,omitempty"`
}

// ToResponse converts an AppError to an ErrorResponse for JSON serialization.
func (e *AppError) ToResponse() ErrorResponse {
	return ErrorResponse{
		Error: ErrorBody{
			Code:      e.Code,
			Message:   e.Message,
			Retryable: e.Retryable,
			Details:   e.Details,
		},
	}
}

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// detailer is implemented by errors that contribute context to FromExecution.
type detailer interface {
	ErrorDetails() map[string]any
}

// FromExecution converts an error returned by a run into an AppError.
//
// An AppError already present in the chain keeps its code. Every error in the
// chain exposing ErrorDetails contributes its context; outer layers are
// visited first, so the outermost value wins on key collisions.
func FromExecution(name string, err error) *AppError {
	if err == nil {
		return nil
	}

	details := make(map[string]any)
	for e := err; e != nil; e = stderrors.Unwrap(e) {
		if d, ok := e.(detailer); ok {
			for k, v := range d.ErrorDetails() {
				if _, exists := details[k]; !exists {
					details[k] = v
				}
			}
		}
	}

	var out *AppError
	switch appErr, ok := AsAppError(err); {
	case ok:
		out = &AppError{
			Code: appErr.Code, Message: appErr.Message, Retryable: appErr.Retryable,
			HTTPStatus: appErr.HTTPStatus, Details: appErr.Details, Cause: err,
		}
	case stderrors.Is(err, context.DeadlineExceeded):
		out = Timeout(name).WithCause(err)
	case stderrors.Is(err, context.Canceled):
		out = Cancelled(name).WithCause(err)
	default:
		out = ExecutionFailed(name, err)
	}
	if len(details) > 0 {
		merged := make(map[string]any, len(out.Details)+len(details))
		for k, v := range out.Details {
			merged[k] = v
		}
		for k, v := range details {
			merged[k] = v
		}
		out.Details = merged
	}
	return out
}
