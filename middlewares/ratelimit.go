package middlewares

import (
	"context"
	"log/slog"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/dmitrymomot/hero/internal"
)

// Sliding-window defaults: two actions per second.
const (
	DefaultRateLimit  = 2
	DefaultRateWindow = time.Second
	DefaultRatePrefix = "hist"
)

// Decision is the outcome of recording one action.
type Decision struct {
	Count   int // actions in the window, this one included
	Limit   int
	Allowed bool
}

// Remaining returns how many more actions fit in the window.
func (d Decision) Remaining() int {
	return max(d.Limit-d.Count, 0)
}

// Limiter records an action under key and reports whether the number of
// actions in the trailing window stays within limit. Rejected actions are
// recorded too, so a client that keeps retrying stays limited.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (Decision, error)
}

// RateLimitConfig configures the RateLimit middleware.
type RateLimitConfig struct {
	Extractor internal.Extractor
	Action    func(rc *internal.RequestContext) string
	Prefix    string
	Window    time.Duration
	Limit     int
}

// RateLimitOption configures RateLimitConfig.
type RateLimitOption func(*RateLimitConfig)

// WithRateLimit sets how many actions are allowed per window.
func WithRateLimit(limit int, window time.Duration) RateLimitOption {
	return func(cfg *RateLimitConfig) {
		if limit > 0 {
			cfg.Limit = limit
		}
		if window > 0 {
			cfg.Window = window
		}
	}
}

// WithRateLimitExtractor sets how the client is identified.
func WithRateLimitExtractor(ext internal.Extractor) RateLimitOption {
	return func(cfg *RateLimitConfig) {
		cfg.Extractor = ext
	}
}

// WithRateLimitAction sets how the limited action is named.
// The default is the request method and the matched route pattern.
func WithRateLimitAction(fn func(rc *internal.RequestContext) string) RateLimitOption {
	return func(cfg *RateLimitConfig) {
		if fn != nil {
			cfg.Action = fn
		}
	}
}

// WithRateLimitPrefix sets the key prefix.
func WithRateLimitPrefix(prefix string) RateLimitOption {
	return func(cfg *RateLimitConfig) {
		if prefix != "" {
			cfg.Prefix = prefix
		}
	}
}

// RateLimit returns middleware that limits each client per action with a
// sliding window kept in limiter. Keys have the form prefix:client:action.
// Clients are the session user when there is one, otherwise the client IP.
//
// Rejected requests get a 429 HTTPError and a Retry-After header.
// Limiter failures are logged and the request is let through.
func RateLimit(limiter Limiter, opts ...RateLimitOption) internal.Middleware {
	cfg := &RateLimitConfig{
		Extractor: internal.NewExtractor(internal.FromSessionUser(), internal.FromClientIP()),
		Action:    routeAction,
		Prefix:    DefaultRatePrefix,
		Limit:     DefaultRateLimit,
		Window:    DefaultRateWindow,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	limit := strconv.Itoa(cfg.Limit)
	retryAfter := strconv.Itoa(int(math.Ceil(cfg.Window.Seconds())))

	return internal.MiddlewareFunc(func(rc *internal.RequestContext, next internal.Next) (*internal.Response, error) {
		client, ok := cfg.Extractor.Extract(rc)
		if !ok {
			return next(rc)
		}

		key := cfg.Prefix + ":" + client + ":" + cfg.Action(rc)
		d, err := limiter.Allow(rc.Context(), key, cfg.Limit, cfg.Window)
		if err != nil {
			rc.Logger().WarnContext(rc.Context(), "rate limiter unavailable",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
			return next(rc)
		}

		h := rc.Writer.Header()
		h.Set("X-RateLimit-Limit", limit)
		h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining()))
		if !d.Allowed {
			h.Set("Retry-After", retryAfter)
			return nil, internal.ErrTooManyRequests("too many requests")
		}
		return next(rc)
	})
}

func routeAction(rc *internal.RequestContext) string {
	if rc.Route != nil {
		return rc.Request.Method + " " + rc.Route.Pattern
	}
	return rc.Request.Method + " " + rc.Request.URL.Path
}

// sweepEvery is how many Allow calls pass between sweeps of idle keys.
const sweepEvery = 1024

// MemoryLimiter is a process-local Limiter for single-instance deployments
// and tests.
type MemoryLimiter struct {
	hits      map[string][]time.Time
	now       func() time.Time
	maxWindow time.Duration
	calls     int
	mu        sync.Mutex
}

// NewMemoryLimiter creates an empty in-memory limiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{hits: make(map[string][]time.Time), now: time.Now}
}

// Allow implements Limiter.
func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (Decision, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	hits := trimWindow(append(l.hits[key], now), now.Add(-window))
	l.hits[key] = hits

	l.maxWindow = max(l.maxWindow, window)
	if l.calls++; l.calls%sweepEvery == 0 {
		l.sweep(now.Add(-l.maxWindow))
	}

	return Decision{Count: len(hits), Limit: limit, Allowed: len(hits) <= limit}, nil
}

// Len returns the number of tracked keys.
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.hits)
}

// trimWindow drops hits at or before cutoff. hits is sorted.
func trimWindow(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return hits
	}
	return append(hits[:0:0], hits[i:]...)
}

func (l *MemoryLimiter) sweep(cutoff time.Time) {
	for key, hits := range l.hits {
		if len(hits) == 0 || !hits[len(hits)-1].After(cutoff) {
			delete(l.hits, key)
		}
	}
}
