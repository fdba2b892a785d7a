package internal_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/hero/internal"
	"github.com/dmitrymomot/hero/pkg/session"
)

func requestContext(t *testing.T, app *internal.App, r *http.Request) *internal.RequestContext {
	t.Helper()
	return app.NewRequestContext(httptest.NewRecorder(), r)
}

func TestExtractor(t *testing.T) {
	t.Parallel()

	app, err := internal.New(internal.WithSession(session.NewMemoryStore()))
	require.NoError(t, err)

	t.Run("sources", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest(http.MethodGet, "/?token=q1", nil)
		r.Header.Set("X-Api-Key", "h1")
		r.Header.Set("Authorization", "bEaReR  tok-123 ")
		r.AddCookie(&http.Cookie{Name: "tenant", Value: "acme"})
		r.RemoteAddr = "192.0.2.10:5555"
		rc := requestContext(t, app, r)
		rc.PathVars = map[string]string{"org": "hero"}

		tests := []struct {
			name   string
			source internal.ExtractorSource
			want   string
			found  bool
		}{
			{"header", internal.FromHeader("X-Api-Key"), "h1", true},
			{"missing header", internal.FromHeader("X-Other"), "", false},
			{"query", internal.FromQuery("token"), "q1", true},
			{"cookie", internal.FromCookie("tenant"), "acme", true},
			{"missing cookie", internal.FromCookie("nope"), "", false},
			{"path var", internal.FromPathVar("org"), "hero", true},
			{"bearer", internal.FromBearerToken(), "tok-123", true},
			{"client ip", internal.FromClientIP(), "192.0.2.10", true},
		}
		for _, tt := range tests {
			got, ok := tt.source(rc)
			require.Equal(t, tt.found, ok, tt.name)
			require.Equal(t, tt.want, got, tt.name)
		}
	})

	t.Run("first non-empty source wins", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest(http.MethodGet, "/?key=from-query", nil)
		r.Header.Set("X-Key", "")
		rc := requestContext(t, app, r)

		e := internal.NewExtractor(internal.FromHeader("X-Key"), internal.FromQuery("key"), internal.FromClientIP())
		v, ok := e.Extract(rc)
		require.True(t, ok)
		require.Equal(t, "from-query", v)

		v, ok = internal.NewExtractor(internal.FromHeader("X-Key")).Extract(rc)
		require.False(t, ok)
		require.Empty(t, v)
	})

	t.Run("session values", func(t *testing.T) {
		t.Parallel()

		rc := requestContext(t, app, httptest.NewRequest(http.MethodGet, "/", nil))
		sess, err := rc.Session()
		require.NoError(t, err)

		_, ok := internal.FromSessionUser()(rc)
		require.False(t, ok)

		sess.SetUser("user-1")
		sess.Set("plan", "pro")
		sess.Set("seats", 5)

		v, ok := internal.FromSessionUser()(rc)
		require.True(t, ok)
		require.Equal(t, "user-1", v)

		v, _ = internal.FromSession("plan")(rc)
		require.Equal(t, "pro", v)
		v, _ = internal.FromSession("seats")(rc)
		require.Equal(t, "5", v)
		_, ok = internal.FromSession("none")(rc)
		require.False(t, ok)
	})

	t.Run("session sources without a store", func(t *testing.T) {
		t.Parallel()

		bare, err := internal.New()
		require.NoError(t, err)
		rc := requestContext(t, bare, httptest.NewRequest(http.MethodGet, "/", nil))

		_, ok := internal.FromSession("plan")(rc)
		require.False(t, ok)
		_, ok = internal.FromSessionUser()(rc)
		require.False(t, ok)
	})
}
