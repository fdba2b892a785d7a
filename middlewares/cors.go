package middlewares

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrymomot/hero/internal"
)

// DefaultCORSMaxAge is the default preflight cache duration.
const DefaultCORSMaxAge = time.Hour

// DefaultCORSConfig answers every origin with credentials allowed, the
// headers API clients commonly send, and a one hour preflight cache.
var DefaultCORSConfig = CORSConfig{
	AllowOrigins:     []string{"*"},
	AllowMethods:     []string{"*"},
	AllowHeaders:     []string{"Authorization", "Content-Length", "Content-Type", "SESSION-TOKEN"},
	AllowCredentials: true,
	MaxAge:           DefaultCORSMaxAge,
}

// CORSConfig configures the CORS middleware.
type CORSConfig struct {
	// AllowOrigins is a static list of allowed origins.
	// "*" allows every origin.
	AllowOrigins []string

	// AllowOriginFunc is a dynamic origin validator.
	// When set, it completely overrides AllowOrigins.
	AllowOriginFunc func(origin string) bool

	// AllowMethods specifies the allowed HTTP methods.
	AllowMethods []string

	// AllowHeaders specifies the allowed request headers.
	AllowHeaders []string

	// ExposeHeaders specifies headers exposed to the client.
	ExposeHeaders []string

	// AllowCredentials indicates whether credentials are allowed.
	// Access-Control-Allow-Origin then echoes the request origin.
	AllowCredentials bool

	// MaxAge specifies how long preflight responses can be cached.
	MaxAge time.Duration
}

// CORSOption configures CORSConfig.
type CORSOption func(*CORSConfig)

// WithAllowOrigins sets the allowed origins.
func WithAllowOrigins(origins ...string) CORSOption {
	return func(cfg *CORSConfig) {
		cfg.AllowOrigins = origins
	}
}

// WithAllowOriginFunc sets a dynamic origin validator.
// When set, it completely overrides AllowOrigins.
func WithAllowOriginFunc(fn func(origin string) bool) CORSOption {
	return func(cfg *CORSConfig) {
		cfg.AllowOriginFunc = fn
	}
}

// WithAllowMethods sets the allowed HTTP methods.
func WithAllowMethods(methods ...string) CORSOption {
	return func(cfg *CORSConfig) {
		cfg.AllowMethods = methods
	}
}

// WithAllowHeaders sets the allowed request headers.
func WithAllowHeaders(headers ...string) CORSOption {
	return func(cfg *CORSConfig) {
		cfg.AllowHeaders = headers
	}
}

// WithExposeHeaders sets the headers exposed to the client.
func WithExposeHeaders(headers ...string) CORSOption {
	return func(cfg *CORSConfig) {
		cfg.ExposeHeaders = headers
	}
}

// WithAllowCredentials toggles credentials support.
func WithAllowCredentials(allow bool) CORSOption {
	return func(cfg *CORSConfig) {
		cfg.AllowCredentials = allow
	}
}

// WithMaxAge sets the preflight cache duration.
func WithMaxAge(duration time.Duration) CORSOption {
	return func(cfg *CORSConfig) {
		cfg.MaxAge = duration
	}
}

// CORS returns middleware that adds Cross-Origin Resource Sharing headers.
// Headers are set before the rest of the pipeline runs, so error responses
// carry them too. OPTIONS requests are answered with an empty 200 response
// without reaching the handler.
func CORS(opts ...CORSOption) internal.Middleware {
	cfg := DefaultCORSConfig
	cfg.AllowOrigins = slices.Clone(cfg.AllowOrigins)
	cfg.AllowMethods = slices.Clone(cfg.AllowMethods)
	cfg.AllowHeaders = slices.Clone(cfg.AllowHeaders)
	for _, opt := range opts {
		opt(&cfg)
	}

	allowMethods := strings.Join(cfg.AllowMethods, ", ")
	allowHeaders := strings.Join(cfg.AllowHeaders, ", ")
	exposeHeaders := strings.Join(cfg.ExposeHeaders, ", ")
	maxAge := strconv.Itoa(int(cfg.MaxAge.Seconds()))
	hasWildcard := slices.Contains(cfg.AllowOrigins, "*")

	return internal.MiddlewareFunc(func(rc *internal.RequestContext, next internal.Next) (*internal.Response, error) {
		origin := rc.Header("Origin")
		if origin != "" && !isOriginAllowed(origin, &cfg, hasWildcard) {
			// browser will block
			return next(rc)
		}

		headers := rc.Writer.Header()
		headers.Add("Vary", "Origin")

		switch {
		case origin == "":
			headers.Set("Access-Control-Allow-Origin", "*")
		case cfg.AllowCredentials || !hasWildcard:
			headers.Set("Access-Control-Allow-Origin", origin)
		default:
			headers.Set("Access-Control-Allow-Origin", "*")
		}
		if cfg.AllowCredentials {
			headers.Set("Access-Control-Allow-Credentials", "true")
		}
		if allowMethods != "" {
			headers.Set("Access-Control-Allow-Methods", allowMethods)
		}
		if allowHeaders != "" {
			headers.Set("Access-Control-Allow-Headers", allowHeaders)
		}
		if exposeHeaders != "" {
			headers.Set("Access-Control-Expose-Headers", exposeHeaders)
		}
		if cfg.MaxAge > 0 {
			headers.Set("Access-Control-Max-Age", maxAge)
		}

		if rc.Request.Method == http.MethodOptions {
			return internal.NewResponse(), nil
		}
		return next(rc)
	})
}

func isOriginAllowed(origin string, cfg *CORSConfig, hasWildcard bool) bool {
	if cfg.AllowOriginFunc != nil {
		return cfg.AllowOriginFunc(origin)
	}
	return hasWildcard || slices.Contains(cfg.AllowOrigins, origin)
}
