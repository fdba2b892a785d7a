package middlewares

import (
	"log/slog"
	"runtime"

	"github.com/dmitrymomot/hero/internal"
)

// DefaultStackSize is the default maximum stack trace size in bytes.
const DefaultStackSize = 4096

// RecoverConfig configures the recover middleware.
type RecoverConfig struct {
	StackSize         int  // Max stack trace size (default: 4096)
	DisablePrintStack bool // Disable stack trace in logs
}

// RecoverOption configures RecoverConfig.
type RecoverOption func(*RecoverConfig)

// WithRecoverStackSize sets the maximum stack trace size.
func WithRecoverStackSize(size int) RecoverOption {
	return func(cfg *RecoverConfig) {
		if size > 0 {
			cfg.StackSize = size
		}
	}
}

// WithRecoverDisablePrintStack disables including stack trace in logs.
func WithRecoverDisablePrintStack() RecoverOption {
	return func(cfg *RecoverConfig) {
		cfg.DisablePrintStack = true
	}
}

// Recover returns middleware that turns a panic in the rest of the pipeline
// into a PanicError for the exception handler. The panic is logged with the
// request context, so a request id is attached when RequestIDExtractor is
// configured on the logger.
func Recover(opts ...RecoverOption) internal.Middleware {
	cfg := &RecoverConfig{
		StackSize: DefaultStackSize,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return internal.MiddlewareFunc(func(rc *internal.RequestContext, next internal.Next) (resp *internal.Response, err error) {
		defer func() {
			p := recover()
			if p == nil {
				return
			}

			attrs := []any{slog.Any("panic", p)}
			var stack []byte
			// Allocate only when stack traces are enabled.
			if !cfg.DisablePrintStack {
				stack = make([]byte, cfg.StackSize)
				stack = stack[:runtime.Stack(stack, false)]
				attrs = append(attrs, slog.String("stack", string(stack)))
			}
			rc.Logger().ErrorContext(rc.Context(), "panic recovered", attrs...)

			resp, err = nil, &PanicError{Value: p, Stack: stack}
		}()

		return next(rc)
	})
}
