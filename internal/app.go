package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"runtime/debug"
	"slices"

	"github.com/go-playground/validator/v10"

	"github.com/dmitrymomot/hero/pkg/logger"
	"github.com/dmitrymomot/hero/pkg/sanitizer"
)

// Fixed bodies of the built-in 404 and 405 responses.
const (
	NotFoundMessage         = "Page not found."
	MethodNotAllowedMessage = "Method not allowed."
)

const defaultMaxBodySize = 10 << 20 // 10MB

// Config keys read from the application config tree.
const (
	configKeyMiddleware = "middleware"
	configKeyDebug      = "app.debug"
)

// App is the request lifecycle coordinator. It matches each request,
// builds the controller through the registry, composes the middleware
// pipeline, binds handler arguments and writes the result. Every failure
// below ServeHTTP is contained there.
// App is immutable after New returns.
type App struct {
	logger      *slog.Logger
	config      ConfigProvider
	registry    *Registry
	table       *RouteTable
	matcher     Matcher
	static      *StaticFileResolver
	sessions    *SessionManager
	validate    *validator.Validate
	sanitize    sanitizer.Func
	resolve     MiddlewareResolver
	factories   map[string]MiddlewareFactory
	health      *healthConfig
	setup       []func(*Registry)
	middleware  []string
	controllers []Controller
	errs        []error
	maxBodySize int64

	debug         bool
	debugSet      bool
	middlewareSet bool
}

// New creates an application. It fails when a controller cannot be built,
// a handler declaration is invalid or the route table does not compile.
// Route conflicts are logged and skipped.
//
// Example:
//
//	app, err := hero.New(
//	    hero.WithLogger(log),
//	    hero.WithConfig(tree),
//	    hero.WithControllers(&UserController{}),
//	    hero.WithMiddleware("cors", "ratelimit"),
//	)
func New(opts ...Option) (*App, error) {
	a := &App{
		logger:      logger.NewNope(),
		sanitize:    sanitizer.EscapeMarkup,
		factories:   make(map[string]MiddlewareFactory),
		maxBodySize: defaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(a)
	}
	if len(a.errs) > 0 {
		return nil, errors.Join(a.errs...)
	}

	a.applyConfig()
	if a.validate == nil {
		a.validate = validator.New(validator.WithRequiredStructEnabled())
	}

	a.registry = NewRegistry(a.config)
	a.registry.Put(TypeOf(a.logger), a.logger)
	a.registry.Put(TypeOf(a.validate), a.validate)
	a.registry.Declare(DefaultExceptionHandler{})
	for _, fn := range a.setup {
		fn(a.registry)
	}
	a.resolve = FactoryResolver(a.factories, a.registry)

	if a.health != nil {
		a.controllers = append(a.controllers, newHealthController(a.health))
	}

	a.table = NewRouteTable(a.logger)
	if err := a.registerControllers(); err != nil {
		return nil, err
	}

	m, err := a.table.Compile()
	if err != nil {
		return nil, err
	}
	a.matcher = m
	return a, nil
}

// applyConfig fills settings not given as options from the config tree.
func (a *App) applyConfig() {
	if a.config == nil {
		return
	}
	if !a.debugSet {
		if v, ok := a.config.Get(configKeyDebug, false).(bool); ok {
			a.debug = v
		}
	}
	if !a.middlewareSet {
		a.middleware = stringList(a.config.Get(configKeyMiddleware, nil))
	}
}

func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return slices.Clone(list)
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if list != "" {
			return []string{list}
		}
	}
	return nil
}

// registerControllers builds every controller through the registry and
// collects its routes.
func (a *App) registerControllers() error {
	var errs []error
	for _, proto := range a.controllers {
		if rt := reflect.TypeOf(proto); rt == nil || rt.Kind() != reflect.Pointer {
			errs = append(errs, &ConfigurationError{Subject: fmt.Sprintf("%T", proto), Reason: "controllers must be pointers"})
			continue
		}

		id := TypeOf(proto)
		a.registry.Provide(id, func() any { return proto })
		built, err := a.registry.Build(id)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		ctrl := built.(Controller)
		ctrl.Routes(newControllerRouter(a.table, ctrl, &errs))
	}
	return errors.Join(errs...)
}

// Registry returns the application object registry.
func (a *App) Registry() *Registry { return a.registry }

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger { return a.logger }

// Debug reports whether debug mode is on.
func (a *App) Debug() bool { return a.debug }

// Routes returns the compiled routes in registration order.
func (a *App) Routes() []*Route { return a.table.Routes() }

// Middleware returns the default middleware ids.
func (a *App) Middleware() []string { return slices.Clone(a.middleware) }

// NewRequestContext creates a request context bound to the app, for
// driving middleware or handlers outside ServeHTTP.
func (a *App) NewRequestContext(w http.ResponseWriter, r *http.Request) *RequestContext {
	return newRequestContext(a, NewResponseWriter(w), r)
}

// ServeHTTP runs the request lifecycle.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w)
	rc := newRequestContext(a, rw, r)

	resp := a.handle(rc)
	if rw.Written() {
		return
	}

	if err := resp.write(rw, rc.Request); err != nil {
		if rw.Written() {
			if !isClientGone(err) {
				a.logger.ErrorContext(rc.Context(), "response write failed", slog.String("error", err.Error()))
			}
			return
		}
		if err := a.contain(rc, err).write(rw, rc.Request); err != nil {
			a.logger.ErrorContext(rc.Context(), "response write failed", slog.String("error", err.Error()))
		}
	}
}

// handle returns the response for rc. It never returns nil and never panics.
func (a *App) handle(rc *RequestContext) (resp *Response) {
	defer func() {
		if p := recover(); p != nil {
			resp = a.contain(rc, &PanicError{Value: p, Stack: debug.Stack()})
		}
	}()

	resp, err := a.dispatch(rc)
	if err != nil {
		return a.contain(rc, err)
	}
	if resp == nil {
		return NewResponse()
	}
	return resp
}

func (a *App) dispatch(rc *RequestContext) (*Response, error) {
	req := rc.Request
	m := a.matcher.Dispatch(req.Method, req.URL.Path)

	switch m.Verdict {
	case NotFound:
		if req.Method == http.MethodGet || req.Method == http.MethodHead {
			if file := a.static.Resolve(req.URL.Path); file != "" {
				return staticResponse(file), nil
			}
		}
		return Text(http.StatusNotFound, NotFoundMessage), nil
	case MethodNotAllowed:
		return Text(http.StatusMethodNotAllowed, MethodNotAllowedMessage), nil
	}

	rc.Route = m.Route
	rc.PathVars = m.PathVars

	h := m.Route.Handler
	ctrl, err := a.registry.Build(h.Owner)
	if err != nil {
		return nil, err
	}

	next, err := Pipeline(a.effectiveMiddleware(ctrl), a.resolve, a.terminal(ctrl, h))
	if err != nil {
		return nil, err
	}
	return next(rc)
}

// effectiveMiddleware is the default list followed by the controller's own.
func (a *App) effectiveMiddleware(ctrl any) []string {
	if mp, ok := ctrl.(MiddlewareProvider); ok {
		return slices.Concat(a.middleware, mp.Middlewares())
	}
	return a.middleware
}

// terminal is the innermost pipeline stage: init hook, binding, invocation.
func (a *App) terminal(ctrl any, h *HandlerDescriptor) Next {
	return func(rc *RequestContext) (*Response, error) {
		if in, ok := ctrl.(Initializer); ok {
			if err := in.Init(); err != nil {
				return nil, err
			}
		}

		args, err := Bind(h, rc)
		if err != nil {
			return nil, err
		}
		out, err := h.Invoke(ctrl, args)
		if err != nil {
			return nil, err
		}
		return toResponse(out)
	}
}
