package middlewares

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/hero/internal"
	"github.com/dmitrymomot/hero/pkg/id"
	"github.com/dmitrymomot/hero/pkg/logger"
)

// requestIDKey is the context key for storing the request ID.
type requestIDKey struct{}

// DefaultRequestIDHeaders are the headers checked (in order) for an existing request ID.
var DefaultRequestIDHeaders = []string{"X-Request-ID", "X-Correlation-ID"}

// RequestIDConfig configures the request ID middleware.
type RequestIDConfig struct {
	Generator      func() string // ID generator function
	ResponseHeader string        // Response header name
	Headers        []string      // Headers to check for existing ID (in order)
}

// RequestIDOption configures RequestIDConfig.
type RequestIDOption func(*RequestIDConfig)

// WithRequestIDHeaders sets the headers to check for existing request IDs.
func WithRequestIDHeaders(headers ...string) RequestIDOption {
	return func(cfg *RequestIDConfig) {
		cfg.Headers = headers
	}
}

// WithRequestIDGenerator sets a custom ID generator function.
func WithRequestIDGenerator(gen func() string) RequestIDOption {
	return func(cfg *RequestIDConfig) {
		if gen != nil {
			cfg.Generator = gen
		}
	}
}

// WithRequestIDResponseHeader sets the response header name.
func WithRequestIDResponseHeader(header string) RequestIDOption {
	return func(cfg *RequestIDConfig) {
		cfg.ResponseHeader = header
	}
}

// RequestID returns middleware that assigns an ID to each request.
// An upstream ID from the configured headers is kept; otherwise a ULID is
// generated. The ID is stored in the request context and echoed in the
// response header, error responses included.
func RequestID(opts ...RequestIDOption) internal.Middleware {
	cfg := &RequestIDConfig{
		Headers:        DefaultRequestIDHeaders,
		Generator:      id.NewULID,
		ResponseHeader: "X-Request-ID",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	extract := make([]internal.ExtractorSource, len(cfg.Headers))
	for i, h := range cfg.Headers {
		extract[i] = internal.FromHeader(h)
	}
	extractor := internal.NewExtractor(extract...)

	return internal.MiddlewareFunc(func(rc *internal.RequestContext, next internal.Next) (*internal.Response, error) {
		reqID, ok := extractor.Extract(rc)
		if !ok {
			reqID = cfg.Generator()
		}

		rc.Set(requestIDKey{}, reqID)
		if cfg.ResponseHeader != "" {
			rc.Writer.Header().Set(cfg.ResponseHeader, reqID)
		}
		return next(rc)
	})
}

// GetRequestID returns the request ID, or "" when RequestID did not run.
func GetRequestID(rc *internal.RequestContext) string {
	return internal.ContextValue[string](rc, requestIDKey{})
}

// RequestIDExtractor returns a logger.ContextExtractor that adds
// "request_id" to every record logged with the request context.
func RequestIDExtractor() logger.ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		if v, ok := ctx.Value(requestIDKey{}).(string); ok && v != "" {
			return slog.String("request_id", v), true
		}
		return slog.Attr{}, false
	}
}
