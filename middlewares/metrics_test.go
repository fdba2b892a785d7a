package middlewares_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/hero/internal"
	"github.com/dmitrymomot/hero/middlewares"
)

type itemController struct{}

func (c *itemController) Routes(r internal.Router) {
	r.GET("/items/{id}", "Show", internal.Path("id"))
	r.GET("/broken", "Broken")
}

func (c *itemController) Show(id string) string { return "item " + id }

func (c *itemController) Broken() error { return internal.ErrForbidden("no") }

func TestMetrics(t *testing.T) {
	t.Parallel()

	m := middlewares.NewHTTPMetrics(prometheus.NewRegistry(), "hero")
	app, err := internal.New(
		internal.WithControllers(&itemController{}, middlewares.NewMetricsController(m, "")),
		internal.WithMiddlewareFactory("Metrics", func() internal.Middleware { return middlewares.Metrics(m) }),
		internal.WithMiddleware("Metrics"),
	)
	require.NoError(t, err)

	for _, target := range []string{"/items/1", "/items/2", "/broken"} {
		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	}

	expected := `
# HELP hero_http_requests_total Total number of HTTP requests by route and status.
# TYPE hero_http_requests_total counter
hero_http_requests_total{method="GET",route="/broken",status="403"} 1
hero_http_requests_total{method="GET",route="/items/{id}",status="200"} 2
`
	require.NoError(t, testutil.GatherAndCompare(m.Gatherer(), strings.NewReader(expected), "hero_http_requests_total"))

	count, err := testutil.GatherAndCount(m.Gatherer(), "hero_http_request_duration_seconds")
	require.NoError(t, err)
	require.Equal(t, 2, count)

	srv := httptest.NewServer(app)
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + middlewares.DefaultMetricsPath)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), `hero_http_requests_total{method="GET",route="/items/{id}",status="200"} 2`)
	require.Contains(t, string(body), "hero_http_requests_in_flight")
}

func TestMetricsNilRegistry(t *testing.T) {
	t.Parallel()

	m := middlewares.NewHTTPMetrics(nil, "")
	rc, _ := newTestContext(t, httptest.NewRequest(http.MethodGet, "/x", nil))
	_, err := middlewares.Metrics(m).Process(rc, okHandler)
	require.NoError(t, err)

	expected := `
# HELP http_requests_total Total number of HTTP requests by route and status.
# TYPE http_requests_total counter
http_requests_total{method="GET",route="unmatched",status="200"} 1
`
	require.NoError(t, testutil.GatherAndCompare(m.Gatherer(), strings.NewReader(expected), "http_requests_total"))
}
