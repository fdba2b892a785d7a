package internal

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dmitrymomot/hero/pkg/session"
)

// Sentinel errors.
var (
	ErrRouteTableCompiled = errors.New("hero: route table already compiled")
	ErrNoSessionStore     = session.ErrNotConfigured
)

// RouteConflictError reports a pattern registered twice. The first registration wins.
type RouteConflictError struct {
	Pattern  string
	Existing string // handler already bound to Pattern
	Rejected string // handler whose registration was skipped
}

func (e *RouteConflictError) Error() string {
	return fmt.Sprintf("route conflict: %s already bound to %s, skipping %s", e.Pattern, e.Existing, e.Rejected)
}

// NotFoundError reports an unknown type identifier, middleware or handler method.
type NotFoundError struct {
	Kind string // "type", "middleware", "method"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// CyclicDependencyError reports a dependency cycle found during Build.
// Chain lists identifiers from the outermost build to the repeated one.
type CyclicDependencyError struct {
	Chain []string
}

func (e *CyclicDependencyError) Error() string {
	return "cyclic dependency: " + strings.Join(e.Chain, " -> ")
}

// ConfigurationError reports invalid declarations: untyped injection points,
// bad handler signatures, path variables missing from their pattern.
type ConfigurationError struct {
	Err     error
	Subject string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %s: %v", e.Subject, e.Reason, e.Err)
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Subject, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// BindingError reports a handler argument that could not be produced.
type BindingError struct {
	Err    error
	Source string
	Name   string
	Reason string
}

func (e *BindingError) Error() string {
	msg := "cannot bind " + e.Source
	if e.Name != "" {
		msg += fmt.Sprintf(" %q", e.Name)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *BindingError) Unwrap() error { return e.Err }

// PanicError is a recovered panic converted into an application error.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap exposes the panic value when it was an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// HTTPError is an application error that carries its response status.
type HTTPError struct {
	// Err is the underlying error (for logging, not exposed to users).
	Err error

	// Message is the user-facing error message.
	Message string

	// Detail is an optional extended description.
	Detail string

	// ErrorCode is an application-specific error code for client handling.
	ErrorCode string

	// Code is the HTTP status code.
	Code int
}

func (e *HTTPError) Error() string {
	return e.Message
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

func (e *HTTPError) StatusCode() int {
	return e.Code
}

func (e *HTTPError) StatusText() string {
	return http.StatusText(e.Code)
}

// HTTPErrorOption configures an HTTPError.
type HTTPErrorOption func(*HTTPError)

// NewHTTPError creates a new HTTPError with the given status code and message.
// An empty message falls back to the status text.
func NewHTTPError(code int, message string, opts ...HTTPErrorOption) *HTTPError {
	if message == "" {
		message = http.StatusText(code)
	}
	e := &HTTPError{Code: code, Message: message}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func WithDetail(detail string) HTTPErrorOption {
	return func(e *HTTPError) {
		e.Detail = detail
	}
}

func WithErrorCode(code string) HTTPErrorOption {
	return func(e *HTTPError) {
		e.ErrorCode = code
	}
}

func WithError(err error) HTTPErrorOption {
	return func(e *HTTPError) {
		e.Err = err
	}
}

// Convenience constructors for common HTTP errors.

func ErrBadRequest(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusBadRequest, message, opts...)
}

func ErrUnauthorized(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusUnauthorized, message, opts...)
}

func ErrForbidden(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusForbidden, message, opts...)
}

func ErrNotFound(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusNotFound, message, opts...)
}

func ErrUnprocessable(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusUnprocessableEntity, message, opts...)
}

func ErrTooManyRequests(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusTooManyRequests, message, opts...)
}

func ErrInternal(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusInternalServerError, message, opts...)
}

func ErrServiceUnavailable(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusServiceUnavailable, message, opts...)
}

// AsHTTPError extracts an HTTPError from the chain.
func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	if errors.As(err, &he) {
		return he, true
	}
	return nil, false
}

// StatusOf maps an error to its response status.
// HTTPError carries its own code, binding failures are 400 and
// everything else is 500.
func StatusOf(err error) int {
	if he, ok := AsHTTPError(err); ok && he.Code > 0 {
		return he.Code
	}
	var be *BindingError
	if errors.As(err, &be) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
