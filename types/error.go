package types

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode represents a unified error code across the orchestrator.
type ErrorCode string

// Orchestration error codes
const (
	ErrValidation                    ErrorCode = "VALIDATION_ERROR"
	ErrNotFound                      ErrorCode = "NOT_FOUND"
	ErrProvider                      ErrorCode = "PROVIDER_ERROR"
	ErrTimeout                       ErrorCode = "TIMEOUT_ERROR"
	ErrSkippedDueToDependencyFailure ErrorCode = "SKIPPED_DEPENDENCY_FAILURE"
	ErrCancelled                     ErrorCode = "CANCELLED"
	ErrInternalError                 ErrorCode = "INTERNAL_ERROR"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Provider   string    `json:"provider,omitempty"`
	// ValidNames lists the accepted names when Code is ErrNotFound.
	ValidNames []string `json:"valid_names,omitempty"`
	Cause      error    `json:"-"`
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

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithProvider sets the provider name.
func (e *Error) WithProvider(provider string) *Error {
	e.Provider = provider
	return e
}

// NewValidationError reports a malformed workflow, agent config or request.
func NewValidationError(format string, args ...any) *Error {
	return NewError(ErrValidation, fmt.Sprintf(format, args...)).
		WithHTTPStatus(http.StatusBadRequest)
}

// NewNotFoundError reports an unknown agent or workflow name together with
// the names that would have been accepted.
func NewNotFoundError(kind, name string, valid []string) *Error {
	msg := fmt.Sprintf("%s %q not found", kind, name)
	if len(valid) > 0 {
		msg += "; available: " + strings.Join(valid, ", ")
	}
	e := NewError(ErrNotFound, msg).WithHTTPStatus(http.StatusNotFound)
	e.ValidNames = append([]string(nil), valid...)
	return e
}

// NewProviderError wraps a failure reported by a model provider.
func NewProviderError(provider string, retryable bool, cause error) *Error {
	return NewError(ErrProvider, "model provider call failed").
		WithProvider(provider).
		WithRetryable(retryable).
		WithHTTPStatus(http.StatusBadGateway).
		WithCause(cause)
}

// NewTimeoutError reports an invocation that exceeded its deadline.
func NewTimeoutError(message string) *Error {
	return NewError(ErrTimeout, message).
		WithRetryable(true).
		WithHTTPStatus(http.StatusGatewayTimeout)
}

// NewSkippedError marks a task that never ran because a dependency failed.
func NewSkippedError(failedDependency string) *Error {
	return NewError(ErrSkippedDueToDependencyFailure,
		fmt.Sprintf("skipped: dependency %q did not succeed", failedDependency))
}

// NewCancelledError reports work abandoned because the caller went away.
func NewCancelledError(cause error) *Error {
	return NewError(ErrCancelled, "execution cancelled").WithCause(cause)
}

// AsError extracts a *Error from an error chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if e, ok := AsError(err); ok {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}

// IsNotFound reports whether err carries ErrNotFound.
func IsNotFound(err error) bool {
	return GetErrorCode(err) == ErrNotFound
}
