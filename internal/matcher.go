package internal

import (
	"fmt"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
)

// Verdict is the outcome of matching a request against the route table.
type Verdict uint8

const (
	NotFound Verdict = iota
	Found
	MethodNotAllowed
)

func (v Verdict) String() string {
	switch v {
	case Found:
		return "found"
	case MethodNotAllowed:
		return "method not allowed"
	default:
		return "not found"
	}
}

// Match is a matcher result. Route and PathVars are set only when Found.
type Match struct {
	Route    *Route
	PathVars map[string]string
	Verdict  Verdict
}

// Matcher resolves a method and path to a route.
type Matcher interface {
	Dispatch(method, path string) Match
}

var standardMethods = []string{
	http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut, http.MethodPatch,
	http.MethodDelete, http.MethodConnect, http.MethodOptions, http.MethodTrace,
}

// chiMatcher uses a chi radix tree purely for matching; the stored handlers
// are never served.
type chiMatcher struct {
	mux       *chi.Mux
	byPattern map[string]*Route
	methods   []string
}

func compileMatcher(routes []*Route) (m *chiMatcher, err error) {
	m = &chiMatcher{
		mux:       chi.NewMux(),
		byPattern: make(map[string]*Route, len(routes)),
		methods:   slices.Clone(standardMethods),
	}

	for _, r := range routes {
		for _, method := range r.Methods {
			if !slices.Contains(m.methods, method) {
				chi.RegisterMethod(method)
				m.methods = append(m.methods, method)
			}
		}
	}

	var current string
	defer func() {
		if p := recover(); p != nil {
			m, err = nil, &ConfigurationError{Subject: current, Reason: fmt.Sprint(p)}
		}
	}()

	noop := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	for _, r := range routes {
		current = r.Pattern
		if r.AnyMethod() {
			m.mux.Handle(r.Pattern, noop)
		} else {
			for _, method := range r.Methods {
				m.mux.Method(method, r.Pattern, noop)
			}
		}
		m.byPattern[r.Pattern] = r
	}
	return m, nil
}

// Dispatch matches method and path. When the path exists only under other
// methods the verdict is MethodNotAllowed. HEAD falls back to GET routes.
func (m *chiMatcher) Dispatch(method, path string) Match {
	if match, ok := m.find(method, path); ok {
		return match
	}
	if method == http.MethodHead {
		if match, ok := m.find(http.MethodGet, path); ok {
			return match
		}
	}

	for _, other := range m.methods {
		if other == method {
			continue
		}
		if m.mux.Find(chi.NewRouteContext(), other, path) != "" {
			return Match{Verdict: MethodNotAllowed}
		}
	}
	return Match{Verdict: NotFound}
}

func (m *chiMatcher) find(method, path string) (Match, bool) {
	rctx := chi.NewRouteContext()
	pattern := m.mux.Find(rctx, method, path)
	if pattern == "" {
		return Match{}, false
	}
	route, ok := m.byPattern[pattern]
	if !ok {
		return Match{}, false
	}
	vars := make(map[string]string, len(rctx.URLParams.Keys))
	for i, k := range rctx.URLParams.Keys {
		vars[k] = rctx.URLParams.Values[i]
	}
	return Match{Verdict: Found, Route: route, PathVars: vars}, true
}
