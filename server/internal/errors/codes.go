package errors

import (
	"fmt"
	"net/http"

	pkgerrors "github.com/pkg/errors"

	"github.com/hrygo/circle/store"
)

// ErrorCode represents a specific error type for taxonomy operations.
type ErrorCode string

const (
	// ErrCodeNotFound indicates a referenced tag, member or catalog item does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeInvalidArgument indicates invalid input parameters.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeInvariantViolation indicates the stored data broke a ledger invariant.
	ErrCodeInvariantViolation ErrorCode = "INVARIANT_VIOLATION"
	// ErrCodeInternal indicates an unexpected failure, usually from the database.
	ErrCodeInternal ErrorCode = "INTERNAL"
	// ErrCodeRateLimitExceeded indicates rate limit has been exceeded.
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
)

// AppError represents a structured error returned by the services.
type AppError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error.
func (e *AppError) WithContext(key string, value any) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// NotFound creates a not found error.
func NotFound(msg string) *AppError {
	return &AppError{Code: ErrCodeNotFound, Message: msg}
}

// InvalidArgument creates an invalid argument error.
func InvalidArgument(msg string) *AppError {
	return &AppError{Code: ErrCodeInvalidArgument, Message: msg}
}

// InvalidArgumentf creates an invalid argument error with a formatted message.
func InvalidArgumentf(format string, args ...any) *AppError {
	return &AppError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

// InvariantViolation creates an invariant violation error.
func InvariantViolation(msg string, cause error) *AppError {
	return &AppError{Code: ErrCodeInvariantViolation, Message: msg, Cause: cause}
}

// Internal creates an internal error.
func Internal(msg string, cause error) *AppError {
	return &AppError{Code: ErrCodeInternal, Message: msg, Cause: cause}
}

// RateLimitExceeded creates a rate limit exceeded error.
func RateLimitExceeded(msg string) *AppError {
	return &AppError{Code: ErrCodeRateLimitExceeded, Message: msg}
}

// Wrap wraps an existing error with additional context.
func Wrap(cause error, code ErrorCode, msg string) *AppError {
	return &AppError{Code: code, Message: msg, Cause: cause}
}

// FromStore translates a store error into an AppError. Errors that are
// already AppErrors pass through unchanged.
func FromStore(err error, msg string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if pkgerrors.As(err, &appErr) {
		return appErr
	}
	switch {
	case pkgerrors.Is(err, store.ErrTagNotFound), pkgerrors.Is(err, store.ErrOwnerNotFound):
		return Wrap(err, ErrCodeNotFound, msg)
	case pkgerrors.Is(err, store.ErrUsageCountUnderflow):
		return Wrap(err, ErrCodeInvariantViolation, msg)
	default:
		return Wrap(err, ErrCodeInternal, msg)
	}
}

// IsCode checks if an error is of a specific code.
func IsCode(err error, code ErrorCode) bool {
	return GetCodeFromError(err, "") == code
}

// GetCodeFromError extracts the error code from any error.
// Returns the provided default code if the error is not an AppError.
func GetCodeFromError(err error, defaultCode ErrorCode) ErrorCode {
	var appErr *AppError
	if pkgerrors.As(err, &appErr) {
		return appErr.Code
	}
	return defaultCode
}

// HTTPStatus maps an error to the HTTP status the API responds with.
func HTTPStatus(err error) int {
	switch GetCodeFromError(err, ErrCodeInternal) {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeInvalidArgument:
		return http.StatusBadRequest
	case ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
