package internal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrymomot/hero/pkg/session"
)

func TestSessionManager_LoadCreatesSession(t *testing.T) {
	sm := NewSessionManager(session.NewMemoryStore())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("User-Agent", "test-agent")
	req.RemoteAddr = "192.168.1.1:12345"

	sess, err := sm.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if sess.ID == "" || sess.Token == "" {
		t.Fatal("new session has no id or token")
	}
	if !sess.IsNew() {
		t.Error("session without cookie should be new")
	}
	if sess.IP != "192.168.1.1" {
		t.Errorf("IP = %q, want %q", sess.IP, "192.168.1.1")
	}
	if sess.UserAgent != "test-agent" {
		t.Errorf("UserAgent = %q, want %q", sess.UserAgent, "test-agent")
	}
}

func TestSessionManager_CommitAndReload(t *testing.T) {
	store := session.NewMemoryStore()
	sm := NewSessionManager(store, WithSessionCookieName("sid"))
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	sess.Set("cart", "42")

	w := httptest.NewRecorder()
	if err := sm.Commit(ctx, w, sess); err != nil {
		t.Fatalf("Commit() error: %v", err)
	}
	if store.Len() != 1 {
		t.Fatalf("store holds %d sessions, want 1", store.Len())
	}

	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "sid" || cookies[0].Value != sess.Token {
		t.Fatalf("unexpected cookies %v", cookies)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	loaded, err := sm.Load(ctx, req)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if loaded.ID != sess.ID {
		t.Errorf("loaded ID = %q, want %q", loaded.ID, sess.ID)
	}
	if v, _ := loaded.Get("cart"); v != "42" {
		t.Errorf("cart = %v, want 42", v)
	}
}

func TestSessionManager_CommitCleanSession(t *testing.T) {
	sm := NewSessionManager(session.NewMemoryStore())
	sess := session.New("id", "token", timeIn(t))
	sess.ClearNew()
	sess.ClearDirty()

	w := httptest.NewRecorder()
	if err := sm.Commit(context.Background(), w, sess); err != nil {
		t.Fatalf("Commit() error: %v", err)
	}
	if len(w.Result().Cookies()) != 0 {
		t.Error("clean session should not set a cookie")
	}
}

func TestSessionManager_UnknownCookie(t *testing.T) {
	sm := NewSessionManager(session.NewMemoryStore())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: defaultSessionCookieName, Value: "stale"})

	sess, err := sm.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !sess.IsNew() || sess.Token == "stale" {
		t.Error("unknown token should start a fresh session")
	}
}

func TestSessionManager_Rotate(t *testing.T) {
	sm := NewSessionManager(session.NewMemoryStore())
	sess := session.New("id", "old", timeIn(t))
	sess.ClearDirty()

	if err := sm.Rotate(sess); err != nil {
		t.Fatalf("Rotate() error: %v", err)
	}
	if sess.Token == "old" {
		t.Error("token was not rotated")
	}
	if !sess.IsDirty() {
		t.Error("session should be dirty after rotation")
	}
}

func TestSessionManager_Destroy(t *testing.T) {
	store := session.NewMemoryStore()
	sm := NewSessionManager(store)
	ctx := context.Background()

	sess, _ := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	if err := sm.Commit(ctx, httptest.NewRecorder(), sess); err != nil {
		t.Fatalf("Commit() error: %v", err)
	}

	w := httptest.NewRecorder()
	if err := sm.Destroy(ctx, w, sess); err != nil {
		t.Fatalf("Destroy() error: %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("store holds %d sessions after Destroy", store.Len())
	}
	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge != -1 {
		t.Errorf("expected an expiring cookie, got %v", cookies)
	}
}

func TestSessionManager_Options(t *testing.T) {
	sm := NewSessionManager(session.NewMemoryStore(),
		WithSessionCookieName("custom"),
		WithSessionMaxAge(3600),
		WithSessionDomain("example.com"),
		WithSessionPath("/app"),
		WithSessionSecure(true),
		WithSessionHTTPOnly(false),
		WithSessionSameSite(http.SameSiteStrictMode),
	)

	c := sm.cookie("v", sm.maxAge)
	if c.Name != "custom" || c.MaxAge != 3600 || c.Domain != "example.com" || c.Path != "/app" {
		t.Errorf("unexpected cookie %+v", c)
	}
	if !c.Secure || c.HttpOnly || c.SameSite != http.SameSiteStrictMode {
		t.Errorf("unexpected cookie flags %+v", c)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name          string
		remoteAddr    string
		xForwardedFor string
		xRealIP       string
		expected      string
	}{
		{
			name:       "remote addr only",
			remoteAddr: "192.168.1.1:12345",
			expected:   "192.168.1.1",
		},
		{
			name:          "X-Forwarded-For",
			remoteAddr:    "10.0.0.1:12345",
			xForwardedFor: "203.0.113.195, 70.41.3.18, 150.172.238.178",
			expected:      "203.0.113.195",
		},
		{
			name:       "X-Real-IP",
			remoteAddr: "10.0.0.1:12345",
			xRealIP:    "203.0.113.195",
			expected:   "203.0.113.195",
		},
		{
			name:          "X-Forwarded-For takes precedence",
			remoteAddr:    "10.0.0.1:12345",
			xForwardedFor: "1.1.1.1",
			xRealIP:       "2.2.2.2",
			expected:      "1.1.1.1",
		},
		{
			name:          "public peer cannot spoof X-Forwarded-For",
			remoteAddr:    "203.0.113.9:443",
			xForwardedFor: "1.1.1.1",
			xRealIP:       "2.2.2.2",
			expected:      "203.0.113.9",
		},
		{
			name:          "loopback proxy is trusted",
			remoteAddr:    "[::1]:8080",
			xForwardedFor: "198.51.100.4",
			expected:      "198.51.100.4",
		},
		{
			name:       "remote addr without port",
			remoteAddr: "10.0.0.9",
			expected:   "10.0.0.9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xForwardedFor != "" {
				req.Header.Set("X-Forwarded-For", tt.xForwardedFor)
			}
			if tt.xRealIP != "" {
				req.Header.Set("X-Real-IP", tt.xRealIP)
			}

			if ip := clientIP(req); ip != tt.expected {
				t.Errorf("clientIP() = %q, want %q", ip, tt.expected)
			}
		})
	}
}

func timeIn(t *testing.T) time.Time {
	t.Helper()
	return time.Now().Add(time.Hour)
}
