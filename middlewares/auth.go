package middlewares

import (
	"github.com/dmitrymomot/hero/internal"
)

type principalKey struct{}

// AuthConfig configures the Auth middleware.
type AuthConfig struct {
	Extractor internal.Extractor
	Message   string
}

// AuthOption configures AuthConfig.
type AuthOption func(*AuthConfig)

// WithAuthExtractor sets the extractor chain that identifies the caller.
func WithAuthExtractor(ext internal.Extractor) AuthOption {
	return func(cfg *AuthConfig) {
		cfg.Extractor = ext
	}
}

// WithAuthMessage sets the message of the 401 error.
func WithAuthMessage(msg string) AuthOption {
	return func(cfg *AuthConfig) {
		if msg != "" {
			cfg.Message = msg
		}
	}
}

// Auth returns middleware that rejects requests without an identified
// caller with 401. By default the caller is the authenticated session
// user. The identifier is available to handlers through GetPrincipal.
func Auth(opts ...AuthOption) internal.Middleware {
	cfg := &AuthConfig{
		Extractor: internal.NewExtractor(internal.FromSessionUser()),
		Message:   "authentication required",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return internal.MiddlewareFunc(func(rc *internal.RequestContext, next internal.Next) (*internal.Response, error) {
		principal, ok := cfg.Extractor.Extract(rc)
		if !ok {
			return nil, internal.ErrUnauthorized(cfg.Message)
		}
		rc.Set(principalKey{}, principal)
		return next(rc)
	})
}

// GetPrincipal returns the caller identified by Auth, or "".
func GetPrincipal(rc *internal.RequestContext) string {
	return internal.ContextValue[string](rc, principalKey{})
}
