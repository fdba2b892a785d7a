package hero

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"

	"github.com/dmitrymomot/hero/internal"
	"github.com/dmitrymomot/hero/pkg/health"
	"github.com/dmitrymomot/hero/pkg/logger"
	"github.com/dmitrymomot/hero/pkg/sanitizer"
	"github.com/dmitrymomot/hero/pkg/session"
)

// Type aliases - public API
type (
	// App is the request lifecycle coordinator. It matches routes, builds
	// controllers, runs middleware and handlers, and renders errors.
	App = internal.App

	// Option configures the application.
	Option = internal.Option

	// RunOption configures the server runtime.
	RunOption = internal.RunOption

	// Controller declares routes on a router.
	Controller = internal.Controller

	// Initializer is implemented by controllers that prepare per-request
	// state before the handler runs.
	Initializer = internal.Initializer

	// MiddlewareProvider is implemented by controllers that replace the
	// default middleware list for their routes.
	MiddlewareProvider = internal.MiddlewareProvider

	// Router is the interface controllers use to declare routes.
	Router = internal.Router

	// Route is one registered route.
	Route = internal.Route

	// Param is the binding rule for one handler parameter.
	Param = internal.Param

	// RequestContext carries one request through the pipeline.
	RequestContext = internal.RequestContext

	// Response is the response a handler or middleware produced.
	Response = internal.Response

	// ResponseWriter wraps http.ResponseWriter with status tracking and hooks.
	ResponseWriter = internal.ResponseWriter

	// Jsonable values render themselves as JSON.
	Jsonable = internal.Jsonable

	// Next invokes the rest of the pipeline.
	Next = internal.Next

	// Middleware processes a request around the rest of the pipeline.
	Middleware = internal.Middleware

	// MiddlewareFunc adapts a function to Middleware.
	MiddlewareFunc = internal.MiddlewareFunc

	// MiddlewareFactory creates a middleware instance for one request.
	MiddlewareFactory = internal.MiddlewareFactory

	// ExceptionHandler reports and renders request errors.
	ExceptionHandler = internal.ExceptionHandler

	// DefaultExceptionHandler is used when no exception handler is registered.
	DefaultExceptionHandler = internal.DefaultExceptionHandler

	// Registry is the process-wide object container.
	Registry = internal.Registry

	// ConfigProvider answers dotted-key configuration lookups.
	ConfigProvider = internal.ConfigProvider

	// Extractor tries sources in order and returns the first non-empty value.
	Extractor = internal.Extractor

	// ExtractorSource reads one candidate value from a request.
	ExtractorSource = internal.ExtractorSource

	// HealthOption configures health check endpoints.
	HealthOption = internal.HealthOption

	// SessionOption configures the session manager.
	SessionOption = internal.SessionOption

	// Session represents a user session.
	Session = session.Session

	// SessionStore defines the interface for session persistence.
	SessionStore = session.Store

	// ContextExtractor extracts a slog attribute from context.
	ContextExtractor = logger.ContextExtractor
)

// Error types.
type (
	// HTTPError is an application error that carries its response status.
	HTTPError = internal.HTTPError

	// HTTPErrorOption configures an HTTPError.
	HTTPErrorOption = internal.HTTPErrorOption

	// BindingError reports a request value that could not be bound.
	BindingError = internal.BindingError

	// PanicError is a recovered panic.
	PanicError = internal.PanicError

	// RouteConflictError reports a pattern registered by two controller types.
	RouteConflictError = internal.RouteConflictError

	// NotFoundError reports an unknown registry identifier.
	NotFoundError = internal.NotFoundError

	// CyclicDependencyError reports an injection cycle.
	CyclicDependencyError = internal.CyclicDependencyError

	// ConfigurationError reports an invalid application setup.
	ConfigurationError = internal.ConfigurationError
)

const (
	// ExceptionHandlerID is the registry identifier of the exception handler.
	ExceptionHandlerID = internal.ExceptionHandlerID

	// FallbackMessage is the body of the last-resort 500 response.
	FallbackMessage = internal.FallbackMessage
)

// ErrNoApps is returned by Run without domains or a fallback app.
var ErrNoApps = internal.ErrNoApps

// Session errors.
var (
	ErrSessionNotConfigured = session.ErrNotConfigured
	ErrSessionNotFound      = session.ErrNotFound
	ErrSessionExpired       = session.ErrExpired
	ErrSessionTypeMismatch  = session.ErrTypeMismatch
)

// New creates an application. Routes are registered and compiled here, so
// configuration problems surface as errors before serving.
func New(opts ...Option) (*App, error) {
	return internal.New(opts...)
}

// Run serves one or more applications and blocks until shutdown.
// It handles SIGINT and SIGTERM for graceful shutdown.
func Run(opts ...RunOption) error {
	return internal.Run(opts...)
}

// Application options

func WithLogger(l *slog.Logger) Option {
	return internal.WithLogger(l)
}

func WithConfig(cfg ConfigProvider) Option {
	return internal.WithConfig(cfg)
}

func WithDebug(on bool) Option {
	return internal.WithDebug(on)
}

func WithControllers(ctrls ...Controller) Option {
	return internal.WithControllers(ctrls...)
}

func WithMiddleware(ids ...string) Option {
	return internal.WithMiddleware(ids...)
}

func WithMiddlewareFactory(id string, f MiddlewareFactory) Option {
	return internal.WithMiddlewareFactory(id, f)
}

func WithMiddlewareFunc(id string, fn MiddlewareFunc) Option {
	return internal.WithMiddlewareFunc(id, fn)
}

func WithBeans(protos ...any) Option {
	return internal.WithBeans(protos...)
}

func WithBean(id string, proto any) Option {
	return internal.WithBean(id, proto)
}

func WithProvider(id string, fn func() any) Option {
	return internal.WithProvider(id, fn)
}

func WithInstance(id string, v any) Option {
	return internal.WithInstance(id, v)
}

func WithExceptionHandler(h ExceptionHandler) Option {
	return internal.WithExceptionHandler(h)
}

func WithPublicDir(dir string) Option {
	return internal.WithPublicDir(dir)
}

func WithInputSanitizer(fn sanitizer.Func) Option {
	return internal.WithInputSanitizer(fn)
}

func WithInputPolicy(p *bluemonday.Policy) Option {
	return internal.WithInputPolicy(p)
}

func WithValidator(v *validator.Validate) Option {
	return internal.WithValidator(v)
}

func WithMaxBodySize(n int64) Option {
	return internal.WithMaxBodySize(n)
}

func WithHealthChecks(opts ...HealthOption) Option {
	return internal.WithHealthChecks(opts...)
}

// Health options

func WithLivenessPath(path string) HealthOption {
	return internal.WithLivenessPath(path)
}

func WithReadinessPath(path string) HealthOption {
	return internal.WithReadinessPath(path)
}

func WithHealthTimeout(d time.Duration) HealthOption {
	return internal.WithHealthTimeout(d)
}

func WithReadinessCheck(name string, fn health.CheckFunc) HealthOption {
	return internal.WithReadinessCheck(name, fn)
}

// Session options

func WithSession(store SessionStore, opts ...SessionOption) Option {
	return internal.WithSession(store, opts...)
}

func WithSessionCookieName(name string) SessionOption {
	return internal.WithSessionCookieName(name)
}

func WithSessionMaxAge(seconds int) SessionOption {
	return internal.WithSessionMaxAge(seconds)
}

func WithSessionDomain(domain string) SessionOption {
	return internal.WithSessionDomain(domain)
}

func WithSessionPath(path string) SessionOption {
	return internal.WithSessionPath(path)
}

func WithSessionSecure(secure bool) SessionOption {
	return internal.WithSessionSecure(secure)
}

func WithSessionHTTPOnly(httpOnly bool) SessionOption {
	return internal.WithSessionHTTPOnly(httpOnly)
}

func WithSessionSameSite(sameSite http.SameSite) SessionOption {
	return internal.WithSessionSameSite(sameSite)
}

// Run options

func Address(addr string) RunOption {
	return internal.Address(addr)
}

func Listener(ln net.Listener) RunOption {
	return internal.Listener(ln)
}

func Logger(l *slog.Logger) RunOption {
	return internal.Logger(l)
}

func ShutdownTimeout(d time.Duration) RunOption {
	return internal.ShutdownTimeout(d)
}

func StartupHook(fn func(context.Context) error) RunOption {
	return internal.StartupHook(fn)
}

func ShutdownHook(fn func(context.Context) error) RunOption {
	return internal.ShutdownHook(fn)
}

func Domain(pattern string, app *App) RunOption {
	return internal.Domain(pattern, app)
}

func Fallback(app *App) RunOption {
	return internal.Fallback(app)
}

func WithContext(ctx context.Context) RunOption {
	return internal.WithContext(ctx)
}

// Parameter bindings

// Path binds a path variable.
func Path(name string) Param { return internal.Path(name) }

// Query binds a query or form value, with an optional default.
func Query(name string, def ...string) Param { return internal.Query(name, def...) }

// Body binds the decoded request body.
func Body() Param { return internal.Body() }

// Auto infers the binding from the parameter type.
func Auto() Param { return internal.Auto() }

// Skip binds the zero value.
func Skip() Param { return internal.Skip() }

// Responses

func NewResponse() *Response { return internal.NewResponse() }

func JSON(status int, v any) (*Response, error) { return internal.JSON(status, v) }

func Text(status int, s string) *Response { return internal.Text(status, s) }

func HTML(status int, s string) *Response { return internal.HTML(status, s) }

func NoContent(status int) *Response { return internal.NoContent(status) }

func Redirect(url string, code int) *Response { return internal.Redirect(url, code) }

func File(path string) *Response { return internal.File(path) }

func Download(path, name string) *Response { return internal.Download(path, name) }

// HTTP errors

func NewHTTPError(code int, message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.NewHTTPError(code, message, opts...)
}

func WithDetail(detail string) HTTPErrorOption { return internal.WithDetail(detail) }

func WithErrorCode(code string) HTTPErrorOption { return internal.WithErrorCode(code) }

func WithError(err error) HTTPErrorOption { return internal.WithError(err) }

func ErrBadRequest(message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.ErrBadRequest(message, opts...)
}

func ErrUnauthorized(message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.ErrUnauthorized(message, opts...)
}

func ErrForbidden(message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.ErrForbidden(message, opts...)
}

func ErrNotFound(message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.ErrNotFound(message, opts...)
}

func ErrUnprocessable(message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.ErrUnprocessable(message, opts...)
}

func ErrTooManyRequests(message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.ErrTooManyRequests(message, opts...)
}

func ErrInternal(message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.ErrInternal(message, opts...)
}

func ErrServiceUnavailable(message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.ErrServiceUnavailable(message, opts...)
}

// AsHTTPError extracts an HTTPError from err's chain.
func AsHTTPError(err error) (*HTTPError, bool) { return internal.AsHTTPError(err) }

// StatusOf returns the response status err renders with.
func StatusOf(err error) int { return internal.StatusOf(err) }

// Extractors

func NewExtractor(sources ...ExtractorSource) Extractor { return internal.NewExtractor(sources...) }

func FromHeader(name string) ExtractorSource { return internal.FromHeader(name) }

func FromQuery(name string) ExtractorSource { return internal.FromQuery(name) }

func FromCookie(name string) ExtractorSource { return internal.FromCookie(name) }

func FromPathVar(name string) ExtractorSource { return internal.FromPathVar(name) }

func FromSession(key string) ExtractorSource { return internal.FromSession(key) }

func FromSessionUser() ExtractorSource { return internal.FromSessionUser() }

func FromBearerToken() ExtractorSource { return internal.FromBearerToken() }

func FromClientIP() ExtractorSource { return internal.FromClientIP() }

// Registry helpers

// TypeOf returns the registry identifier of v's type.
func TypeOf(v any) string { return internal.TypeOf(v) }

// TypeID returns the registry identifier of T.
func TypeID[T any]() string { return internal.TypeID[T]() }

// Resolve builds the instance registered under T's identifier.
func Resolve[T any](r *Registry) (T, error) { return internal.Resolve[T](r) }

// Request helpers

// ContextValue returns the request context value stored under key, or
// the zero value of T.
func ContextValue[T any](rc *RequestContext, key any) T {
	return internal.ContextValue[T](rc, key)
}

// PathValue converts a path variable to T. Missing or malformed values
// yield the zero value.
func PathValue[T ~string | ~int | ~int64 | ~float64 | ~bool](rc *RequestContext, name string) T {
	return internal.PathValue[T](rc, name)
}
