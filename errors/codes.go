package errors

import "net/http"

// ErrorCode represents a machine-readable error code.
type ErrorCode string

const (
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodeTimeout            ErrorCode = "TIMEOUT"
	ErrCodeRateLimited        ErrorCode = "RATE_LIMITED"

	// ErrCodeNotFound is returned for unknown chains and units.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeInvalidDefinition marks a malformed composition or chain file.
	ErrCodeInvalidDefinition ErrorCode = "INVALID_DEFINITION"

	// ErrCodeExecutionFailed wraps any error a runnable returned.
	ErrCodeExecutionFailed ErrorCode = "EXECUTION_FAILED"
	ErrCodeCancelled       ErrorCode = "CANCELLED"
	ErrCodeInternal        ErrorCode = "INTERNAL_ERROR"
)

// StatusClientClosedRequest is the nginx convention for a caller that went away.
const StatusClientClosedRequest = 499

type codeInfo struct {
	status    int
	retryable bool
}

var codeTable = map[ErrorCode]codeInfo{
	ErrCodeServiceUnavailable: {http.StatusServiceUnavailable, true},
	ErrCodeTimeout:            {http.StatusGatewayTimeout, true},
	ErrCodeRateLimited:        {http.StatusTooManyRequests, true},
	ErrCodeNotFound:           {http.StatusNotFound, false},
	ErrCodeInvalidInput:       {http.StatusBadRequest, false},
	ErrCodeInvalidDefinition:  {http.StatusUnprocessableEntity, false},
	ErrCodeExecutionFailed:    {http.StatusUnprocessableEntity, false},
	ErrCodeCancelled:          {StatusClientClosedRequest, false},
	ErrCodeInternal:           {http.StatusInternalServerError, false},
}

// IsRetryableCode reports whether errors with code are worth retrying.
func IsRetryableCode(code ErrorCode) bool {
	return codeTable[code].retryable
}

// StatusOf returns the HTTP status for code, 500 for codes it does not know.
func StatusOf(code ErrorCode) int {
	if info, ok := codeTable[code]; ok {
		return info.status
	}
	return http.StatusInternalServerError
}
