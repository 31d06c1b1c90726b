package errx

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage describes a missing Redis key.
	RedisNotFoundMessage = "redis key not found"
	// RateLimitedMessage is returned to callers rejected by the tenant rate limiter.
	RateLimitedMessage = "Rate limit exceeded. Please try again later."
)

// Failure taxonomy shared by admission, routing and retrieval.
var (
	ErrRateLimited           = errors.New("rate limited")
	ErrGuardrailViolation    = errors.New("guardrail violation")
	ErrRouteNotAllowed       = errors.New("route not allowed")
	ErrClassificationFailure = errors.New("classification failure")
	ErrRetrievalFailure      = errors.New("retrieval failure")
	ErrToolUnavailable       = errors.New("tool unavailable")
	ErrGenerationFailure     = errors.New("generation failure")
	ErrIsolationViolation    = errors.New("isolation violation")
	ErrInvalidConfig         = errors.New("invalid config")
)

// AppError wraps an underlying error with an HTTP status and safe message.
type AppError struct {
	Err     error
	Status  int
	Message string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the provided information.
func New(err error, status int, message string) *AppError {
	return &AppError{
		Err:     err,
		Status:  status,
		Message: message,
	}
}

// InvalidConfig reports a rejected tenant or service configuration.
func InvalidConfig(err error) *AppError {
	return New(fmt.Errorf("%w: %v", ErrInvalidConfig, err), http.StatusBadRequest, err.Error())
}

// Is reports whether the target matches the underlying error or the AppError itself.
func (e *AppError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// As allows casting to AppError or the wrapped error in a chain.
func (e *AppError) As(target any) bool {
	if errors.As(e.Err, target) {
		return true
	}
	if t, ok := target.(**AppError); ok {
		*t = e
		return true
	}
	return false
}

// StatusOf returns the HTTP status and safe message for err. Errors that are
// not AppErrors are treated as internal faults and never expose their text.
func StatusOf(err error) (int, string) {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Status != 0 {
		return appErr.Status, appErr.Message
	}
	return http.StatusInternalServerError, SystemErrorMessage
}
