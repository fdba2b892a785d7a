package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"slices"
	"strings"
	"sync"
)

// Route binds a path pattern to a handler for a set of methods.
// A nil Methods slice accepts any method.
type Route struct {
	Handler *HandlerDescriptor
	Pattern string
	Methods []string
}

// AnyMethod reports whether the route accepts every method.
func (r *Route) AnyMethod() bool { return len(r.Methods) == 0 }

// RouteTable collects routes until Compile freezes it.
// Patterns are unique: the first registration of a pattern wins.
type RouteTable struct {
	logger    *slog.Logger
	byPattern map[string]*Route
	routes    []*Route
	mu        sync.Mutex
	compiled  bool
}

// NewRouteTable creates an empty table. Conflicts are logged to logger.
func NewRouteTable(logger *slog.Logger) *RouteTable {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &RouteTable{logger: logger, byPattern: make(map[string]*Route)}
}

// Register adds one route per pattern. Patterns already present are skipped
// with a logged RouteConflictError; the returned error joins those conflicts.
// Empty methods means any method.
func (t *RouteTable) Register(patterns, methods []string, h *HandlerDescriptor) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.compiled {
		return ErrRouteTableCompiled
	}

	var normalized []string
	for _, m := range methods {
		m = strings.ToUpper(strings.TrimSpace(m))
		if m != "" && !slices.Contains(normalized, m) {
			normalized = append(normalized, m)
		}
	}

	var errs []error
	for _, pattern := range patterns {
		if existing, ok := t.byPattern[pattern]; ok {
			err := &RouteConflictError{Pattern: pattern, Existing: existing.Handler.String(), Rejected: h.String()}
			t.logger.Warn("route conflict", slog.String("pattern", pattern), slog.String("error", err.Error()))
			errs = append(errs, err)
			continue
		}
		r := &Route{Pattern: pattern, Methods: normalized, Handler: h}
		t.byPattern[pattern] = r
		t.routes = append(t.routes, r)
	}
	return errors.Join(errs...)
}

// Lookup returns the route registered for pattern.
func (t *RouteTable) Lookup(pattern string) (*Route, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.byPattern[pattern]
	return r, ok
}

// Routes returns the registered routes in registration order.
func (t *RouteTable) Routes() []*Route {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.routes)
}

// Len returns the number of registered routes.
func (t *RouteTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.routes)
}

// Compile validates every route and freezes the table into a Matcher.
// A path binding whose name is not a placeholder of its pattern is a
// ConfigurationError.
func (t *RouteTable) Compile() (Matcher, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, r := range t.routes {
		if err := validateRoute(r); err != nil {
			return nil, err
		}
	}

	m, err := compileMatcher(t.routes)
	if err != nil {
		return nil, err
	}
	t.compiled = true
	return m, nil
}

func validateRoute(r *Route) error {
	if !strings.HasPrefix(r.Pattern, "/") || strings.ContainsAny(r.Pattern, " \t") {
		return &ConfigurationError{Subject: r.Pattern, Reason: "pattern must start with / and contain no whitespace"}
	}
	names, err := placeholders(r.Pattern)
	if err != nil {
		return &ConfigurationError{Subject: r.Pattern, Reason: err.Error()}
	}
	for _, p := range r.Handler.Params {
		if p.Source == SourcePath && !slices.Contains(names, p.Name) {
			return &ConfigurationError{
				Subject: r.Handler.String(),
				Reason:  fmt.Sprintf("path variable %q is not declared in %s", p.Name, r.Pattern),
			}
		}
	}
	return nil
}

// placeholders lists the variable names of a chi pattern: {name},
// {name:regexp} (the regexp may nest braces) and the * wildcard.
func placeholders(pattern string) ([]string, error) {
	var names []string
	for i := 0; i < len(pattern); i++ {
		switch pattern[i] {
		case '*':
			names = append(names, "*")
		case '{':
			depth, start := 1, i+1
			j := start
			for ; j < len(pattern) && depth > 0; j++ {
				switch pattern[j] {
				case '{':
					depth++
				case '}':
					depth--
				}
			}
			if depth != 0 {
				return nil, fmt.Errorf("unclosed placeholder at offset %d", i)
			}
			name, _, _ := strings.Cut(pattern[start:j-1], ":")
			if name == "" {
				return nil, fmt.Errorf("empty placeholder at offset %d", i)
			}
			names = append(names, name)
			i = j - 1
		}
	}
	return names, nil
}

// Router is the interface controllers use to declare routes.
// Handlers are named by method so the descriptor can be computed once.
type Router interface {
	GET(path, handler string, params ...Param)
	POST(path, handler string, params ...Param)
	PUT(path, handler string, params ...Param)
	PATCH(path, handler string, params ...Param)
	DELETE(path, handler string, params ...Param)
	HEAD(path, handler string, params ...Param)
	OPTIONS(path, handler string, params ...Param)

	// Any registers a handler for every method.
	Any(path, handler string, params ...Param)

	// Match registers a handler for several paths and methods at once.
	// Empty methods means any method.
	Match(methods, paths []string, handler string, params ...Param)

	// Route declares routes sharing a path prefix.
	Route(prefix string, fn func(r Router))
}

// controllerRouter registers routes of one controller type.
type controllerRouter struct {
	table  *RouteTable
	recv   reflect.Type
	errs   *[]error
	owner  string
	prefix string
}

func newControllerRouter(table *RouteTable, ctrl Controller, errs *[]error) *controllerRouter {
	return &controllerRouter{
		table: table,
		recv:  reflect.TypeOf(ctrl),
		owner: TypeOf(ctrl),
		errs:  errs,
	}
}

func (r *controllerRouter) GET(path, handler string, params ...Param) {
	r.Match([]string{http.MethodGet}, []string{path}, handler, params...)
}

func (r *controllerRouter) POST(path, handler string, params ...Param) {
	r.Match([]string{http.MethodPost}, []string{path}, handler, params...)
}

func (r *controllerRouter) PUT(path, handler string, params ...Param) {
	r.Match([]string{http.MethodPut}, []string{path}, handler, params...)
}

func (r *controllerRouter) PATCH(path, handler string, params ...Param) {
	r.Match([]string{http.MethodPatch}, []string{path}, handler, params...)
}

func (r *controllerRouter) DELETE(path, handler string, params ...Param) {
	r.Match([]string{http.MethodDelete}, []string{path}, handler, params...)
}

func (r *controllerRouter) HEAD(path, handler string, params ...Param) {
	r.Match([]string{http.MethodHead}, []string{path}, handler, params...)
}

func (r *controllerRouter) OPTIONS(path, handler string, params ...Param) {
	r.Match([]string{http.MethodOptions}, []string{path}, handler, params...)
}

func (r *controllerRouter) Any(path, handler string, params ...Param) {
	r.Match(nil, []string{path}, handler, params...)
}

func (r *controllerRouter) Match(methods, paths []string, handler string, params ...Param) {
	desc, err := Describe(r.owner, r.recv, handler, params)
	if err != nil {
		*r.errs = append(*r.errs, err)
		return
	}

	full := make([]string, len(paths))
	for i, p := range paths {
		full[i] = joinPath(r.prefix, p)
	}

	// conflicts are logged by the table and are not fatal
	var conflict *RouteConflictError
	if err := r.table.Register(full, methods, desc); err != nil && !errors.As(err, &conflict) {
		*r.errs = append(*r.errs, err)
	}
}

func (r *controllerRouter) Route(prefix string, fn func(Router)) {
	sub := *r
	sub.prefix = joinPath(r.prefix, prefix)
	fn(&sub)
}

func joinPath(prefix, path string) string {
	if prefix == "" {
		return path
	}
	prefix = strings.TrimSuffix(prefix, "/")
	if path == "" || path == "/" {
		return prefix
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return prefix + path
}
