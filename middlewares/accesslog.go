package middlewares

import (
	"log/slog"
	"time"

	"github.com/dmitrymomot/hero/internal"
)

// AccessLogConfig configures the AccessLog middleware.
type AccessLogConfig struct {
	Skip    func(rc *internal.RequestContext) bool
	Message string
}

// AccessLogOption configures AccessLogConfig.
type AccessLogOption func(*AccessLogConfig)

// WithAccessLogSkip excludes requests for which fn returns true.
func WithAccessLogSkip(fn func(rc *internal.RequestContext) bool) AccessLogOption {
	return func(cfg *AccessLogConfig) {
		cfg.Skip = fn
	}
}

// WithAccessLogMessage sets the log message.
func WithAccessLogMessage(msg string) AccessLogOption {
	return func(cfg *AccessLogConfig) {
		if msg != "" {
			cfg.Message = msg
		}
	}
}

// AccessLog returns middleware that logs one record per request with the
// method, path, route, status and duration. 5xx outcomes are logged at
// error level, 4xx at warn and the rest at info.
func AccessLog(opts ...AccessLogOption) internal.Middleware {
	cfg := &AccessLogConfig{Message: "request"}
	for _, opt := range opts {
		opt(cfg)
	}

	return internal.MiddlewareFunc(func(rc *internal.RequestContext, next internal.Next) (*internal.Response, error) {
		if cfg.Skip != nil && cfg.Skip(rc) {
			return next(rc)
		}

		start := time.Now()
		resp, err := next(rc)
		status := outcomeStatus(rc, resp, err)

		attrs := []slog.Attr{
			slog.String("method", rc.Request.Method),
			slog.String("path", rc.Request.URL.Path),
			slog.String("route", routeLabel(rc)),
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)),
			slog.String("client_ip", rc.ClientIP()),
		}
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
		}

		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		}
		rc.Logger().LogAttrs(rc.Context(), level, cfg.Message, attrs...)
		return resp, err
	})
}
