package internal

import (
	"fmt"
	"strings"
)

// ExtractorSource reads one candidate value from a request.
// It reports false when the value is absent.
type ExtractorSource = func(*RequestContext) (string, bool)

// Extractor tries its sources in order and returns the first non-empty value.
// Middleware use it to key rate limits and to pick up request ids.
type Extractor struct {
	sources []ExtractorSource
}

// NewExtractor creates an Extractor over sources.
func NewExtractor(sources ...ExtractorSource) Extractor {
	return Extractor{sources: sources}
}

// Extract returns the first non-empty value, or ("", false).
func (e Extractor) Extract(rc *RequestContext) (string, bool) {
	for _, src := range e.sources {
		if v, ok := src(rc); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

func nonEmpty(v string) (string, bool) {
	return v, v != ""
}

// FromHeader reads a request header.
func FromHeader(name string) ExtractorSource {
	return func(rc *RequestContext) (string, bool) {
		return nonEmpty(rc.Header(name))
	}
}

// FromQuery reads a raw URL query parameter.
func FromQuery(name string) ExtractorSource {
	return func(rc *RequestContext) (string, bool) {
		return nonEmpty(rc.Request.URL.Query().Get(name))
	}
}

// FromCookie reads a cookie value.
func FromCookie(name string) ExtractorSource {
	return func(rc *RequestContext) (string, bool) {
		c, err := rc.Request.Cookie(name)
		if err != nil {
			return "", false
		}
		return nonEmpty(c.Value)
	}
}

// FromPathVar reads a matched path variable.
func FromPathVar(name string) ExtractorSource {
	return func(rc *RequestContext) (string, bool) {
		v, _ := rc.PathVar(name)
		return nonEmpty(v)
	}
}

// FromSession reads a session value, formatting non-strings with fmt.Sprint.
// A request without a configured session store yields nothing.
func FromSession(key string) ExtractorSource {
	return func(rc *RequestContext) (string, bool) {
		sess, err := rc.Session()
		if err != nil {
			return "", false
		}
		val, ok := sess.Get(key)
		if !ok || val == nil {
			return "", false
		}
		if s, ok := val.(string); ok {
			return nonEmpty(s)
		}
		return nonEmpty(fmt.Sprint(val))
	}
}

// FromSessionUser reads the authenticated user id of the session.
func FromSessionUser() ExtractorSource {
	return func(rc *RequestContext) (string, bool) {
		sess, err := rc.Session()
		if err != nil {
			return "", false
		}
		if !sess.IsAuthenticated() {
			return "", false
		}
		return *sess.UserID, true
	}
}

// FromBearerToken reads a Bearer token from the Authorization header.
// The scheme is matched case-insensitively.
func FromBearerToken() ExtractorSource {
	return func(rc *RequestContext) (string, bool) {
		auth := rc.Header("Authorization")
		if len(auth) < 7 || !strings.EqualFold(auth[:7], "bearer ") {
			return "", false
		}
		return nonEmpty(strings.TrimSpace(auth[7:]))
	}
}

// FromClientIP reads the originating client address.
func FromClientIP() ExtractorSource {
	return func(rc *RequestContext) (string, bool) {
		return nonEmpty(rc.ClientIP())
	}
}
