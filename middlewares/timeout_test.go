package middlewares_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/hero/internal"
	"github.com/dmitrymomot/hero/middlewares"
)

type ctxKey string

func TestTimeout(t *testing.T) {
	t.Parallel()

	t.Run("fast handler completes", func(t *testing.T) {
		t.Parallel()

		rc, _ := newTestContext(t, httptest.NewRequest(http.MethodGet, "/", nil))
		var deadline bool
		resp, err := middlewares.Timeout(time.Second).Process(rc, func(rc *internal.RequestContext) (*internal.Response, error) {
			_, deadline = rc.Context().Deadline()
			return internal.Text(http.StatusOK, "fast"), nil
		})
		require.NoError(t, err)
		require.Equal(t, "fast", string(resp.Body()))
		require.True(t, deadline)
	})

	t.Run("slow handler times out with 503", func(t *testing.T) {
		t.Parallel()

		log, buf := newBufferLogger()
		rc, _ := newTestContext(t, httptest.NewRequest(http.MethodGet, "/", nil), internal.WithLogger(log))

		resp, err := middlewares.Timeout(20*time.Millisecond).Process(rc, func(rc *internal.RequestContext) (*internal.Response, error) {
			<-rc.Context().Done()
			return internal.Text(http.StatusOK, "late"), nil
		})
		require.Nil(t, resp)
		require.Equal(t, http.StatusServiceUnavailable, internal.StatusOf(err))
		require.True(t, middlewares.IsTimeoutError(err))

		te, ok := middlewares.AsTimeoutError(err)
		require.True(t, ok)
		require.Equal(t, 20*time.Millisecond, te.Duration)
		require.Contains(t, buf.String(), "request timeout")
	})

	t.Run("late handler is cut off from the request context", func(t *testing.T) {
		t.Parallel()

		rc, rec := newTestContext(t, httptest.NewRequest(http.MethodGet, "/", nil))
		finished := make(chan error, 1)

		_, err := middlewares.Timeout(5*time.Millisecond).Process(rc, func(inner *internal.RequestContext) (*internal.Response, error) {
			time.Sleep(30 * time.Millisecond)
			inner.Set(ctxKey("late"), true)
			inner.Writer.Header().Set("X-Late", "1")
			_, werr := inner.Writer.Write([]byte("late"))
			finished <- werr
			return nil, nil
		})
		require.Equal(t, http.StatusServiceUnavailable, internal.StatusOf(err))

		rc.Set(ctxKey("outer"), true)
		rc.Writer.WriteHeader(http.StatusServiceUnavailable)

		require.ErrorIs(t, <-finished, http.ErrHandlerTimeout)
		require.Nil(t, rc.Get(ctxKey("late")))
		require.Equal(t, true, rc.Get(ctxKey("outer")))
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		require.Empty(t, rec.Header().Get("X-Late"))
		require.Empty(t, rec.Body.String())
	})

	t.Run("handler errors pass through", func(t *testing.T) {
		t.Parallel()

		rc, _ := newTestContext(t, httptest.NewRequest(http.MethodGet, "/", nil))
		_, err := middlewares.Timeout(time.Second).Process(rc, func(*internal.RequestContext) (*internal.Response, error) {
			return nil, internal.ErrBadRequest("bad")
		})
		require.Equal(t, http.StatusBadRequest, internal.StatusOf(err))
	})

	t.Run("panic in handler goroutine becomes PanicError", func(t *testing.T) {
		t.Parallel()

		rc, _ := newTestContext(t, httptest.NewRequest(http.MethodGet, "/", nil))
		_, err := middlewares.Timeout(time.Second).Process(rc, func(*internal.RequestContext) (*internal.Response, error) {
			panic("in goroutine")
		})
		require.True(t, middlewares.IsPanicError(err))
	})

	t.Run("canceled parent is not a timeout", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		r := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)
		rc, _ := newTestContext(t, r)
		cancel()

		_, err := middlewares.Timeout(time.Second).Process(rc, func(rc *internal.RequestContext) (*internal.Response, error) {
			time.Sleep(50 * time.Millisecond)
			return nil, nil
		})
		require.ErrorIs(t, err, context.Canceled)
		require.False(t, middlewares.IsTimeoutError(err))
	})

	t.Run("non-positive duration uses the default", func(t *testing.T) {
		t.Parallel()

		rc, _ := newTestContext(t, httptest.NewRequest(http.MethodGet, "/", nil))
		var remaining time.Duration
		_, err := middlewares.Timeout(0).Process(rc, func(rc *internal.RequestContext) (*internal.Response, error) {
			dl, _ := rc.Context().Deadline()
			remaining = time.Until(dl)
			return nil, nil
		})
		require.NoError(t, err)
		require.Greater(t, remaining, middlewares.DefaultTimeout-time.Second)
	})
}
