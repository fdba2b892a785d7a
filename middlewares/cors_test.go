package middlewares_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/hero/internal"
	"github.com/dmitrymomot/hero/middlewares"
)

func corsRequest(t *testing.T, method, origin string, mw internal.Middleware, next internal.Next) (*internal.Response, http.Header, error) {
	t.Helper()

	r := httptest.NewRequest(method, "/api", nil)
	if origin != "" {
		r.Header.Set("Origin", origin)
	}
	rc, _ := newTestContext(t, r)
	resp, err := mw.Process(rc, next)
	return resp, rc.Writer.Header(), err
}

func TestCORS(t *testing.T) {
	t.Parallel()

	t.Run("default config echoes origin with credentials", func(t *testing.T) {
		t.Parallel()

		resp, h, err := corsRequest(t, http.MethodGet, "https://app.example.com", middlewares.CORS(), okHandler)
		require.NoError(t, err)
		require.Equal(t, "ok", string(resp.Body()))
		require.Equal(t, "https://app.example.com", h.Get("Access-Control-Allow-Origin"))
		require.Equal(t, "true", h.Get("Access-Control-Allow-Credentials"))
		require.Equal(t, "*", h.Get("Access-Control-Allow-Methods"))
		require.Equal(t, "Authorization, Content-Length, Content-Type, SESSION-TOKEN", h.Get("Access-Control-Allow-Headers"))
		require.Equal(t, "3600", h.Get("Access-Control-Max-Age"))
		require.Equal(t, "Origin", h.Get("Vary"))
	})

	t.Run("request without origin gets wildcard", func(t *testing.T) {
		t.Parallel()

		_, h, err := corsRequest(t, http.MethodGet, "", middlewares.CORS(), okHandler)
		require.NoError(t, err)
		require.Equal(t, "*", h.Get("Access-Control-Allow-Origin"))
	})

	t.Run("wildcard without credentials", func(t *testing.T) {
		t.Parallel()

		mw := middlewares.CORS(middlewares.WithAllowCredentials(false))
		_, h, err := corsRequest(t, http.MethodGet, "https://a.example", mw, okHandler)
		require.NoError(t, err)
		require.Equal(t, "*", h.Get("Access-Control-Allow-Origin"))
		require.Empty(t, h.Get("Access-Control-Allow-Credentials"))
	})

	t.Run("options request short-circuits", func(t *testing.T) {
		t.Parallel()

		called := false
		next := func(*internal.RequestContext) (*internal.Response, error) {
			called = true
			return nil, nil
		}
		resp, h, err := corsRequest(t, http.MethodOptions, "https://a.example", middlewares.CORS(), next)
		require.NoError(t, err)
		require.False(t, called)
		require.Equal(t, http.StatusOK, resp.Status())
		require.Empty(t, resp.Body())
		require.Equal(t, "https://a.example", h.Get("Access-Control-Allow-Origin"))
	})

	t.Run("disallowed origin gets no headers", func(t *testing.T) {
		t.Parallel()

		mw := middlewares.CORS(middlewares.WithAllowOrigins("https://good.example"))
		resp, h, err := corsRequest(t, http.MethodGet, "https://evil.example", mw, okHandler)
		require.NoError(t, err)
		require.Equal(t, "ok", string(resp.Body()))
		require.Empty(t, h.Get("Access-Control-Allow-Origin"))
		require.Empty(t, h.Get("Vary"))
	})

	t.Run("allowed origin from list", func(t *testing.T) {
		t.Parallel()

		mw := middlewares.CORS(
			middlewares.WithAllowOrigins("https://good.example"),
			middlewares.WithAllowMethods(http.MethodGet, http.MethodPost),
			middlewares.WithAllowHeaders("X-Token"),
			middlewares.WithExposeHeaders("X-Request-ID", "X-RateLimit-Remaining"),
			middlewares.WithMaxAge(10*time.Minute),
		)
		_, h, err := corsRequest(t, http.MethodGet, "https://good.example", mw, okHandler)
		require.NoError(t, err)
		require.Equal(t, "https://good.example", h.Get("Access-Control-Allow-Origin"))
		require.Equal(t, "GET, POST", h.Get("Access-Control-Allow-Methods"))
		require.Equal(t, "X-Token", h.Get("Access-Control-Allow-Headers"))
		require.Equal(t, "X-Request-ID, X-RateLimit-Remaining", h.Get("Access-Control-Expose-Headers"))
		require.Equal(t, "600", h.Get("Access-Control-Max-Age"))
	})

	t.Run("origin func overrides list", func(t *testing.T) {
		t.Parallel()

		mw := middlewares.CORS(
			middlewares.WithAllowOrigins("https://good.example"),
			middlewares.WithAllowOriginFunc(func(origin string) bool { return origin == "https://dyn.example" }),
		)
		_, h, _ := corsRequest(t, http.MethodGet, "https://dyn.example", mw, okHandler)
		require.Equal(t, "https://dyn.example", h.Get("Access-Control-Allow-Origin"))

		_, h, _ = corsRequest(t, http.MethodGet, "https://good.example", mw, okHandler)
		require.Empty(t, h.Get("Access-Control-Allow-Origin"))
	})

	t.Run("errors keep the headers", func(t *testing.T) {
		t.Parallel()

		next := func(*internal.RequestContext) (*internal.Response, error) {
			return nil, internal.ErrForbidden("nope")
		}
		_, h, err := corsRequest(t, http.MethodGet, "https://a.example", middlewares.CORS(), next)
		require.Error(t, err)
		require.Equal(t, "https://a.example", h.Get("Access-Control-Allow-Origin"))
	})
}

type corsController struct{}

func (c *corsController) Routes(r internal.Router) {
	r.Match([]string{http.MethodGet, http.MethodOptions}, []string{"/api"}, "Index")
}

func (c *corsController) Index() string { return "api" }

func TestCORSThroughApp(t *testing.T) {
	t.Parallel()

	app, err := internal.New(
		internal.WithControllers(&corsController{}),
		internal.WithMiddlewareFactory("Cors", func() internal.Middleware { return middlewares.CORS() }),
		internal.WithMiddleware("Cors"),
	)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodOptions, "/api", nil)
	r.Header.Set("Origin", "https://a.example")
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, r)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Body.String())
	require.Equal(t, "https://a.example", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api", nil))
	require.Equal(t, "api", rec.Body.String())
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
