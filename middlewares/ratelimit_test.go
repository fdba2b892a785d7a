package middlewares_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/hero/internal"
	"github.com/dmitrymomot/hero/middlewares"
)

type fakeClock struct {
	now time.Time
	mu  sync.Mutex
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClockedLimiter() (*middlewares.MemoryLimiter, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := middlewares.NewMemoryLimiter()
	l.SetClock(clock.Now)
	return l, clock
}

func TestMemoryLimiter(t *testing.T) {
	t.Parallel()

	t.Run("sliding window", func(t *testing.T) {
		t.Parallel()

		l, clock := newClockedLimiter()
		ctx := context.Background()

		for i := 1; i <= 2; i++ {
			d, err := l.Allow(ctx, "k", 2, time.Second)
			require.NoError(t, err)
			require.True(t, d.Allowed)
			require.Equal(t, i, d.Count)
			require.Equal(t, 2-i, d.Remaining())
		}

		d, err := l.Allow(ctx, "k", 2, time.Second)
		require.NoError(t, err)
		require.False(t, d.Allowed)
		require.Equal(t, 3, d.Count)
		require.Zero(t, d.Remaining())

		// Hits exactly one window old fall out.
		clock.Advance(time.Second)
		d, err = l.Allow(ctx, "k", 2, time.Second)
		require.NoError(t, err)
		require.True(t, d.Allowed)
		require.Equal(t, 1, d.Count)
	})

	t.Run("rejected hits count", func(t *testing.T) {
		t.Parallel()

		l, clock := newClockedLimiter()
		ctx := context.Background()

		for range 3 {
			_, _ = l.Allow(ctx, "k", 1, time.Second)
			clock.Advance(400 * time.Millisecond)
		}
		// Hits at 400ms and 800ms are still in the window.
		d, _ := l.Allow(ctx, "k", 1, time.Second)
		require.False(t, d.Allowed)
		require.Equal(t, 3, d.Count)
	})

	t.Run("keys are independent", func(t *testing.T) {
		t.Parallel()

		l, _ := newClockedLimiter()
		ctx := context.Background()

		_, _ = l.Allow(ctx, "a", 1, time.Second)
		d, _ := l.Allow(ctx, "a", 1, time.Second)
		require.False(t, d.Allowed)

		d, _ = l.Allow(ctx, "b", 1, time.Second)
		require.True(t, d.Allowed)
		require.Equal(t, 2, l.Len())
	})

	t.Run("idle keys are swept", func(t *testing.T) {
		t.Parallel()

		l, clock := newClockedLimiter()
		ctx := context.Background()

		_, _ = l.Allow(ctx, "idle", 2, time.Second)
		clock.Advance(time.Minute)
		for i := range 1023 {
			_, _ = l.Allow(ctx, fmt.Sprintf("busy-%d", i%4), 2, time.Second)
		}
		require.Equal(t, 4, l.Len())
	})
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string, int, time.Duration) (middlewares.Decision, error) {
	return middlewares.Decision{}, errors.New("redis down")
}

type recordingLimiter struct {
	keys []string
}

func (l *recordingLimiter) Allow(_ context.Context, key string, limit int, _ time.Duration) (middlewares.Decision, error) {
	l.keys = append(l.keys, key)
	return middlewares.Decision{Count: 1, Limit: limit, Allowed: true}, nil
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	request := func(ip string) *http.Request {
		r := httptest.NewRequest(http.MethodPost, "/login", nil)
		r.RemoteAddr = ip + ":1234"
		return r
	}

	t.Run("limits per client ip", func(t *testing.T) {
		t.Parallel()

		l, _ := newClockedLimiter()
		mw := middlewares.RateLimit(l)

		for i := range 2 {
			rc, _ := newTestContext(t, request("10.0.0.1"))
			resp, err := mw.Process(rc, okHandler)
			require.NoError(t, err)
			require.Equal(t, "ok", string(resp.Body()))
			require.Equal(t, "2", rc.Writer.Header().Get("X-RateLimit-Limit"))
			require.Equal(t, fmt.Sprint(1-i), rc.Writer.Header().Get("X-RateLimit-Remaining"))
		}

		rc, _ := newTestContext(t, request("10.0.0.1"))
		_, err := mw.Process(rc, okHandler)
		require.Equal(t, http.StatusTooManyRequests, internal.StatusOf(err))
		require.Equal(t, "1", rc.Writer.Header().Get("Retry-After"))
		require.Equal(t, "0", rc.Writer.Header().Get("X-RateLimit-Remaining"))

		rc, _ = newTestContext(t, request("10.0.0.2"))
		_, err = mw.Process(rc, okHandler)
		require.NoError(t, err)
	})

	t.Run("public peers cannot rotate forwarding headers", func(t *testing.T) {
		t.Parallel()

		l, _ := newClockedLimiter()
		mw := middlewares.RateLimit(l)

		var codes []int
		for i := range 4 {
			r := request("203.0.113.9")
			r.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i))
			rc, _ := newTestContext(t, r)
			code := http.StatusOK
			if _, err := mw.Process(rc, okHandler); err != nil {
				code = internal.StatusOf(err)
			}
			codes = append(codes, code)
		}
		require.Equal(t, []int{200, 200, 429, 429}, codes)
	})

	t.Run("key layout", func(t *testing.T) {
		t.Parallel()

		l := &recordingLimiter{}
		rc, _ := newTestContext(t, request("10.0.0.9"))
		_, err := middlewares.RateLimit(l).Process(rc, okHandler)
		require.NoError(t, err)

		mw := middlewares.RateLimit(l,
			middlewares.WithRateLimitPrefix("rl"),
			middlewares.WithRateLimitAction(func(*internal.RequestContext) string { return "login" }),
			middlewares.WithRateLimitExtractor(internal.NewExtractor(internal.FromHeader("X-Api-Key"))),
		)
		r := request("10.0.0.9")
		r.Header.Set("X-Api-Key", "key-1")
		rc, _ = newTestContext(t, r)
		_, err = mw.Process(rc, okHandler)
		require.NoError(t, err)

		require.Equal(t, []string{"hist:10.0.0.9:POST /login", "rl:key-1:login"}, l.keys)
	})

	t.Run("unidentified clients pass", func(t *testing.T) {
		t.Parallel()

		l := &recordingLimiter{}
		mw := middlewares.RateLimit(l, middlewares.WithRateLimitExtractor(internal.NewExtractor(internal.FromHeader("X-Api-Key"))))
		rc, _ := newTestContext(t, request("10.0.0.1"))
		_, err := mw.Process(rc, okHandler)
		require.NoError(t, err)
		require.Empty(t, l.keys)
	})

	t.Run("limiter failure fails open", func(t *testing.T) {
		t.Parallel()

		log, buf := newBufferLogger()
		rc, _ := newTestContext(t, request("10.0.0.1"), internal.WithLogger(log))
		resp, err := middlewares.RateLimit(failingLimiter{}).Process(rc, okHandler)
		require.NoError(t, err)
		require.Equal(t, "ok", string(resp.Body()))
		require.Contains(t, buf.String(), "rate limiter unavailable")
		require.Contains(t, buf.String(), "redis down")
	})

	t.Run("custom window sets retry-after", func(t *testing.T) {
		t.Parallel()

		l, _ := newClockedLimiter()
		mw := middlewares.RateLimit(l, middlewares.WithRateLimit(1, 1500*time.Millisecond))

		rc, _ := newTestContext(t, request("10.0.0.1"))
		_, err := mw.Process(rc, okHandler)
		require.NoError(t, err)

		rc, _ = newTestContext(t, request("10.0.0.1"))
		_, err = mw.Process(rc, okHandler)
		require.Error(t, err)
		require.Equal(t, "2", rc.Writer.Header().Get("Retry-After"))
	})
}
