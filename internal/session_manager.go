package internal

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/hero/pkg/session"
)

const (
	defaultSessionCookieName = "HERO_SESSION"
	defaultSessionMaxAge     = 86400 * 30 // 30 days
)

// SessionManager loads sessions lazily from a store and writes them back
// together with the session cookie.
type SessionManager struct {
	store      session.Store
	cookieName string
	domain     string
	path       string
	maxAge     int
	sameSite   http.SameSite
	secure     bool
	httpOnly   bool
}

// SessionOption configures a SessionManager.
type SessionOption func(*SessionManager)

// NewSessionManager creates a manager backed by store.
func NewSessionManager(store session.Store, opts ...SessionOption) *SessionManager {
	sm := &SessionManager{
		store:      store,
		cookieName: defaultSessionCookieName,
		maxAge:     defaultSessionMaxAge,
		path:       "/",
		httpOnly:   true,
		sameSite:   http.SameSiteLaxMode,
	}
	for _, opt := range opts {
		opt(sm)
	}
	return sm
}

// WithSessionCookieName sets the session cookie name.
func WithSessionCookieName(name string) SessionOption {
	return func(sm *SessionManager) {
		if name != "" {
			sm.cookieName = name
		}
	}
}

// WithSessionMaxAge sets the session lifetime in seconds.
func WithSessionMaxAge(seconds int) SessionOption {
	return func(sm *SessionManager) {
		if seconds > 0 {
			sm.maxAge = seconds
		}
	}
}

// WithSessionDomain sets the cookie domain.
func WithSessionDomain(domain string) SessionOption {
	return func(sm *SessionManager) {
		sm.domain = domain
	}
}

// WithSessionPath sets the cookie path.
func WithSessionPath(path string) SessionOption {
	return func(sm *SessionManager) {
		if path != "" {
			sm.path = path
		}
	}
}

// WithSessionSecure sets the Secure cookie flag.
func WithSessionSecure(secure bool) SessionOption {
	return func(sm *SessionManager) {
		sm.secure = secure
	}
}

// WithSessionHTTPOnly sets the HttpOnly cookie flag.
func WithSessionHTTPOnly(httpOnly bool) SessionOption {
	return func(sm *SessionManager) {
		sm.httpOnly = httpOnly
	}
}

// WithSessionSameSite sets the SameSite cookie attribute.
func WithSessionSameSite(sameSite http.SameSite) SessionOption {
	return func(sm *SessionManager) {
		sm.sameSite = sameSite
	}
}

// Load returns the session named by the request cookie, or a new unsaved
// session when the cookie is absent, unknown or expired.
func (sm *SessionManager) Load(ctx context.Context, r *http.Request) (*session.Session, error) {
	if cookie, err := r.Cookie(sm.cookieName); err == nil && cookie.Value != "" {
		sess, err := sm.store.Get(ctx, cookie.Value)
		switch {
		case err == nil:
			return sess, nil
		case errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrExpired):
		default:
			return nil, err
		}
	}
	return sm.newSession(r)
}

func (sm *SessionManager) newSession(r *http.Request) (*session.Session, error) {
	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}
	sess := session.New(uuid.NewString(), token, time.Now().Add(time.Duration(sm.maxAge)*time.Second))
	sess.IP = clientIP(r)
	sess.UserAgent = r.UserAgent()
	return sess, nil
}

// Commit persists a new or modified session and refreshes its cookie.
// Clean sessions are left alone.
func (sm *SessionManager) Commit(ctx context.Context, w http.ResponseWriter, sess *session.Session) error {
	switch {
	case sess.IsNew():
		if err := sm.store.Create(ctx, sess); err != nil {
			return err
		}
	case sess.IsDirty():
		sess.LastActiveAt = time.Now()
		if err := sm.store.Update(ctx, sess); err != nil {
			return err
		}
	default:
		return nil
	}

	sess.ClearNew()
	sess.ClearDirty()
	http.SetCookie(w, sm.cookie(sess.Token, sm.maxAge))
	return nil
}

// Rotate issues a new token for sess, e.g. after login. The change is
// persisted by the next Commit.
func (sm *SessionManager) Rotate(sess *session.Session) error {
	token, err := generateToken()
	if err != nil {
		return fmt.Errorf("generate session token: %w", err)
	}
	sess.Token = token
	sess.MarkDirty()
	return nil
}

// Destroy removes the session from the store and expires the cookie.
func (sm *SessionManager) Destroy(ctx context.Context, w http.ResponseWriter, sess *session.Session) error {
	if !sess.IsNew() {
		if err := sm.store.Delete(ctx, sess.ID); err != nil {
			return err
		}
	}
	sess.Flush()
	sess.ClearDirty()
	sess.ClearNew()
	http.SetCookie(w, sm.cookie("", -1))
	return nil
}

// Store returns the underlying store.
func (sm *SessionManager) Store() session.Store {
	return sm.store
}

func (sm *SessionManager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     sm.cookieName,
		Value:    value,
		Path:     sm.path,
		Domain:   sm.domain,
		MaxAge:   maxAge,
		Secure:   sm.secure,
		HttpOnly: sm.httpOnly,
		SameSite: sm.sameSite,
	}
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
