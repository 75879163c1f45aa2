package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the planning core.
type ErrorCode string

// Construction error codes. These fail fast at the call that introduces the
// bad state and are never silently coerced.
const (
	ErrInvalidArgument     ErrorCode = "INVALID_ARGUMENT"
	ErrInvalidAspectValue  ErrorCode = "INVALID_ASPECT_VALUE"
	ErrDuplicateAspect     ErrorCode = "DUPLICATE_ASPECT"
	ErrLengthMismatch      ErrorCode = "LENGTH_MISMATCH"
	ErrAuxQueryRange       ErrorCode = "AUX_QUERY_RANGE"
	ErrIncompatibleAspects ErrorCode = "INCOMPATIBLE_ASPECTS"
)

// Lookup error codes
const (
	ErrUndefinedAspect ErrorCode = "UNDEFINED_ASPECT"
	ErrNotFound        ErrorCode = "NOT_FOUND"
	ErrAlreadyExists   ErrorCode = "ALREADY_EXISTS"
)

// Persistence error codes
const (
	ErrCodecVersion ErrorCode = "CODEC_VERSION"
	ErrStoreClosed  ErrorCode = "STORE_CLOSED"
	ErrStoreFailure ErrorCode = "STORE_FAILURE"
)

// Error represents a structured error with code, message, and cause.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error carrying the same code, so package
// sentinels match any error raised with that code regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Errorf creates a new Error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// GetErrorCode extracts the error code from an error chain.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsErrorCode checks whether any error in the chain carries the given code.
func IsErrorCode(err error, code ErrorCode) bool {
	return GetErrorCode(err) == code
}
