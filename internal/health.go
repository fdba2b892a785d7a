package internal

import (
	"net/http"
	"time"

	"github.com/dmitrymomot/hero/pkg/health"
)

// Default health endpoint settings.
const (
	defaultLivenessPath  = "/health/live"
	defaultReadinessPath = "/health/ready"
	defaultHealthTimeout = 5 * time.Second
)

type healthConfig struct {
	checks        health.Checks
	livenessPath  string
	readinessPath string
	timeout       time.Duration
}

// HealthOption configures the health endpoints.
type HealthOption func(*healthConfig)

// WithLivenessPath sets the liveness endpoint path.
func WithLivenessPath(path string) HealthOption {
	return func(c *healthConfig) {
		if path != "" {
			c.livenessPath = path
		}
	}
}

// WithReadinessPath sets the readiness endpoint path.
func WithReadinessPath(path string) HealthOption {
	return func(c *healthConfig) {
		if path != "" {
			c.readinessPath = path
		}
	}
}

// WithHealthTimeout bounds a readiness probe.
func WithHealthTimeout(d time.Duration) HealthOption {
	return func(c *healthConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithReadinessCheck adds a named readiness check.
// Checks run concurrently on every readiness probe.
func WithReadinessCheck(name string, fn health.CheckFunc) HealthOption {
	return func(c *healthConfig) {
		if c.checks == nil {
			c.checks = make(health.Checks)
		}
		c.checks[name] = fn
	}
}

// HealthController serves the liveness and readiness probes.
// Responses are plain text unless the client asks for JSON.
type HealthController struct {
	cfg *healthConfig
}

func newHealthController(cfg *healthConfig) *HealthController {
	return &HealthController{cfg: cfg}
}

func (c *HealthController) Routes(r Router) {
	r.Match([]string{http.MethodGet, http.MethodHead}, []string{c.cfg.livenessPath}, "Live")
	r.Match([]string{http.MethodGet, http.MethodHead}, []string{c.cfg.readinessPath}, "Ready")
}

// Live always reports healthy.
func (c *HealthController) Live(rc *RequestContext) (*Response, error) {
	return healthResponse(rc, http.StatusOK, &health.Report{Status: health.StatusHealthy})
}

// Ready runs the configured checks.
func (c *HealthController) Ready(rc *RequestContext) (*Response, error) {
	report := health.Run(rc.Context(), c.cfg.checks,
		health.WithTimeout(c.cfg.timeout),
		health.WithLogger(rc.Logger()),
	)
	status := http.StatusOK
	if !report.Healthy() {
		status = http.StatusServiceUnavailable
	}
	return healthResponse(rc, status, report)
}

func healthResponse(rc *RequestContext, status int, report *health.Report) (*Response, error) {
	if rc.ExpectsJSON() || rc.Request.URL.Query().Get("format") == "json" {
		return JSON(status, report)
	}
	if report.Healthy() {
		return Text(status, "OK"), nil
	}
	return Text(status, "Service Unavailable"), nil
}
