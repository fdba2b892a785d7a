package middlewares

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/hero/internal"
)

// DefaultTimeout is the default request timeout.
const DefaultTimeout = 30 * time.Second

// Timeout returns middleware that bounds the rest of the pipeline by d.
// The request context carries the deadline. When it passes first, a 503
// HTTPError wrapping a TimeoutError is returned to the exception handler.
//
// The rest of the pipeline runs on a forked request context. After the
// deadline it keeps running but is cut off from the response: its writes
// fail with http.ErrHandlerTimeout and its Set calls stay local. Long
// operations should watch rc.Context().Done() and stop early.
func Timeout(d time.Duration) internal.Middleware {
	if d <= 0 {
		d = DefaultTimeout
	}

	return internal.MiddlewareFunc(func(rc *internal.RequestContext, next internal.Next) (*internal.Response, error) {
		ctx, cancel := context.WithTimeout(rc.Context(), d)
		defer cancel()
		inner, release := rc.Fork(ctx)

		type result struct {
			resp *internal.Response
			err  error
		}
		done := make(chan result, 1)
		go func() {
			defer func() {
				if p := recover(); p != nil {
					done <- result{err: &PanicError{Value: p}}
				}
			}()
			resp, err := next(inner)
			done <- result{resp, err}
		}()

		select {
		case res := <-done:
			return res.resp, res.err
		case <-ctx.Done():
			release()
			if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, ctx.Err()
			}
			rc.Logger().WarnContext(ctx, "request timeout", slog.Duration("timeout", d))
			return nil, internal.NewHTTPError(http.StatusServiceUnavailable, "request timeout",
				internal.WithError(&TimeoutError{Duration: d}),
			)
		}
	})
}
