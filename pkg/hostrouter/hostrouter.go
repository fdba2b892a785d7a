package hostrouter

import (
	"net"
	"net/http"
	"sort"
	"strings"
)

// Routes maps host patterns to handlers: "api.example.com" matches that
// host only, "*.example.com" matches any subdomain at any depth.
type Routes map[string]http.Handler

type suffixRoute struct {
	handler http.Handler
	suffix  string // ".example.com"
}

// Router dispatches requests by their Host header.
// Exact hosts win over wildcards; among wildcards the longest suffix wins.
type Router struct {
	exact    map[string]http.Handler
	fallback http.Handler
	wildcard []suffixRoute
}

// New creates a router. A nil fallback answers unmatched hosts with 404.
func New(routes Routes, fallback http.Handler) *Router {
	if fallback == nil {
		fallback = http.NotFoundHandler()
	}
	r := &Router{exact: make(map[string]http.Handler), fallback: fallback}

	for pattern, h := range routes {
		pattern = strings.ToLower(strings.TrimSpace(pattern))
		switch {
		case pattern == "" || h == nil:
			continue
		case strings.HasPrefix(pattern, "*."):
			r.wildcard = append(r.wildcard, suffixRoute{suffix: pattern[1:], handler: h})
		default:
			r.exact[pattern] = h
		}
	}
	sort.Slice(r.wildcard, func(i, j int) bool {
		return len(r.wildcard[i].suffix) > len(r.wildcard[j].suffix)
	})
	return r
}

// Handler returns the handler for host.
func (r *Router) Handler(host string) http.Handler {
	host = Host(host)
	if h, ok := r.exact[host]; ok {
		return h
	}
	for _, w := range r.wildcard {
		if strings.HasSuffix(host, w.suffix) && len(host) > len(w.suffix) {
			return w.handler
		}
	}
	return r.fallback
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.Handler(req.Host).ServeHTTP(w, req)
}

// Host lower-cases host and strips its port. IPv6 literals keep their brackets.
func Host(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		if strings.Contains(h, ":") {
			h = "[" + h + "]"
		}
		host = h
	}
	return strings.ToLower(host)
}

// Subdomain returns the part of host in front of base, or "" when host is
// base itself or lies outside it.
func Subdomain(host, base string) string {
	host = Host(host)
	base = strings.ToLower(base)
	sub, ok := strings.CutSuffix(host, "."+base)
	if !ok {
		return ""
	}
	return sub
}
