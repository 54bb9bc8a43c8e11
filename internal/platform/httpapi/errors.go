package httpapi

import (
	"errors"
	"fmt"
	"net/http"
)

// Machine-readable error codes returned in the response envelope. Clients
// branch on these instead of parsing messages.
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeNotFound          = "RESOURCE_NOT_FOUND"
	CodeScheduleConflict  = "SCHEDULE_CONFLICT"
	CodeOutsideHours      = "OUTSIDE_WORKING_HOURS"
	CodeInvalidTransition = "INVALID_STATUS_TRANSITION"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeRateLimited       = "RATE_LIMITED"
	CodeInternal          = "INTERNAL_ERROR"
)

// Error is an API error carrying an HTTP status and an error code. Services
// return these; the central error handler renders them as envelopes.
type Error struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// NotFound returns a 404 error with code RESOURCE_NOT_FOUND.
func NotFound(format string, args ...interface{}) *Error {
	return &Error{Status: http.StatusNotFound, Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Conflict returns a 409 error with code SCHEDULE_CONFLICT.
func Conflict(format string, args ...interface{}) *Error {
	return &Error{Status: http.StatusConflict, Code: CodeScheduleConflict, Message: fmt.Sprintf(format, args...)}
}

// OutsideWorkingHours returns a 400 error with code OUTSIDE_WORKING_HOURS.
func OutsideWorkingHours(format string, args ...interface{}) *Error {
	return &Error{Status: http.StatusBadRequest, Code: CodeOutsideHours, Message: fmt.Sprintf(format, args...)}
}

// InvalidTransition returns a 400 error with code INVALID_STATUS_TRANSITION.
func InvalidTransition(from, to string) *Error {
	return &Error{
		Status:  http.StatusBadRequest,
		Code:    CodeInvalidTransition,
		Message: fmt.Sprintf("cannot transition appointment from %s to %s", from, to),
	}
}

// Validation returns a 400 error with code VALIDATION_ERROR.
func Validation(format string, args ...interface{}) *Error {
	return &Error{Status: http.StatusBadRequest, Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// Unauthorized returns a 401 error with code UNAUTHORIZED.
func Unauthorized(format string, args ...interface{}) *Error {
	return &Error{Status: http.StatusUnauthorized, Code: CodeUnauthorized, Message: fmt.Sprintf(format, args...)}
}

// Internal wraps an unexpected error as a 500.
func Internal(err error) *Error {
	return &Error{Status: http.StatusInternalServerError, Code: CodeInternal, Message: "internal server error", Err: err}
}

// AsError extracts an *Error from err, or wraps it as Internal.
func AsError(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return Internal(err)
}
