package middlewares

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/hero/internal"
)

// DefaultMetricsPath is where MetricsController serves the exposition.
const DefaultMetricsPath = "/metrics"

// HTTPMetrics holds the request collectors shared by every Metrics
// middleware instance created from it.
type HTTPMetrics struct {
	gatherer        prometheus.Gatherer
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	inFlight        prometheus.Gauge
}

// NewHTTPMetrics registers the request collectors on reg under namespace.
// A nil reg uses a fresh registry.
func NewHTTPMetrics(reg *prometheus.Registry, namespace string) *HTTPMetrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &HTTPMetrics{
		gatherer: reg,
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests by route and status.",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Time spent in middleware and handler, in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
		inFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_in_flight",
				Help:      "Requests currently being processed.",
			},
		),
	}
}

// Gatherer returns the registry the collectors live in.
func (m *HTTPMetrics) Gatherer() prometheus.Gatherer { return m.gatherer }

// Metrics returns middleware that counts and times requests by method,
// route pattern and final status. Failed requests are labeled with the
// status the exception handler will derive for the error.
func Metrics(m *HTTPMetrics) internal.Middleware {
	return internal.MiddlewareFunc(func(rc *internal.RequestContext, next internal.Next) (*internal.Response, error) {
		m.inFlight.Inc()
		defer m.inFlight.Dec()

		start := time.Now()
		resp, err := next(rc)

		labels := prometheus.Labels{
			"method": rc.Request.Method,
			"route":  routeLabel(rc),
			"status": strconv.Itoa(outcomeStatus(rc, resp, err)),
		}
		m.requestsTotal.With(labels).Inc()
		m.requestDuration.With(labels).Observe(time.Since(start).Seconds())
		return resp, err
	})
}

func routeLabel(rc *internal.RequestContext) string {
	if rc.Route != nil {
		return rc.Route.Pattern
	}
	return "unmatched"
}

// outcomeStatus is the status a request ends with once the coordinator
// writes resp, or the exception handler renders err.
func outcomeStatus(rc *internal.RequestContext, resp *internal.Response, err error) int {
	switch {
	case err != nil:
		return internal.StatusOf(err)
	case rc.Writer.Written():
		return rc.Writer.Status()
	case resp != nil:
		return resp.Status()
	default:
		return http.StatusOK
	}
}

// MetricsController exposes collected metrics in the Prometheus text format.
type MetricsController struct {
	metrics *HTTPMetrics
	path    string
}

// NewMetricsController serves m's registry at path, or DefaultMetricsPath.
func NewMetricsController(m *HTTPMetrics, path string) *MetricsController {
	if path == "" {
		path = DefaultMetricsPath
	}
	return &MetricsController{metrics: m, path: path}
}

func (c *MetricsController) Routes(r internal.Router) {
	r.GET(c.path, "Serve")
}

// Serve writes the exposition directly to the connection.
func (c *MetricsController) Serve(w http.ResponseWriter, r *http.Request) {
	promhttp.HandlerFor(c.metrics.gatherer, promhttp.HandlerOpts{}).ServeHTTP(w, r)
}
