package session

import (
	"fmt"
	"maps"
	"time"
)

// Session represents a client session with metadata and arbitrary values.
type Session struct {
	CreatedAt    time.Time      `json:"created_at"`
	LastActiveAt time.Time      `json:"last_active_at"`
	ExpiresAt    time.Time      `json:"expires_at"`
	UserID       *string        `json:"user_id,omitempty"` // nil = anonymous session
	Values       map[string]any `json:"values"`
	ID           string         `json:"id"`
	Token        string         `json:"token"` // cookie token, distinct from ID
	IP           string         `json:"ip,omitempty"`
	UserAgent    string         `json:"user_agent,omitempty"`

	dirty bool
	isNew bool
}

// New creates a new session with the given ID and token.
func New(id, token string, expiresAt time.Time) *Session {
	now := time.Now()
	return &Session{
		ID:           id,
		Token:        token,
		Values:       make(map[string]any),
		CreatedAt:    now,
		LastActiveAt: now,
		ExpiresAt:    expiresAt,
		isNew:        true,
		dirty:        true,
	}
}

// IsAuthenticated returns true if the session has an associated user.
func (s *Session) IsAuthenticated() bool {
	return s.UserID != nil && *s.UserID != ""
}

// SetUser binds the session to a user. An empty id makes it anonymous again.
func (s *Session) SetUser(userID string) {
	if userID == "" {
		s.UserID = nil
	} else {
		s.UserID = &userID
	}
	s.dirty = true
}

// Set stores a value and marks the session dirty.
func (s *Session) Set(key string, val any) {
	if s.Values == nil {
		s.Values = make(map[string]any)
	}
	s.Values[key] = val
	s.dirty = true
}

// Get retrieves a value from the session.
func (s *Session) Get(key string) (any, bool) {
	val, ok := s.Values[key]
	return val, ok
}

// Has reports whether key is set.
func (s *Session) Has(key string) bool {
	_, ok := s.Values[key]
	return ok
}

// Delete removes a value; the session becomes dirty only if the key existed.
func (s *Session) Delete(key string) {
	if _, exists := s.Values[key]; exists {
		delete(s.Values, key)
		s.dirty = true
	}
}

// Pull returns a value and removes it, for one-shot flash data.
func (s *Session) Pull(key string) (any, bool) {
	val, ok := s.Get(key)
	if ok {
		s.Delete(key)
	}
	return val, ok
}

// All returns a copy of the stored values.
func (s *Session) All() map[string]any {
	return maps.Clone(s.Values)
}

// Flush removes every value.
func (s *Session) Flush() {
	if len(s.Values) == 0 {
		return
	}
	clear(s.Values)
	s.dirty = true
}

// IsDirty returns true if the session has unsaved changes.
func (s *Session) IsDirty() bool { return s.dirty }

// ClearDirty marks the session as saved.
func (s *Session) ClearDirty() { s.dirty = false }

// MarkDirty forces the session to be saved.
func (s *Session) MarkDirty() { s.dirty = true }

// IsNew returns true until the session is first persisted.
func (s *Session) IsNew() bool { return s.isNew }

// ClearNew marks the session as persisted.
func (s *Session) ClearNew() { s.isNew = false }

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// Value returns the value stored under key as T.
func Value[T any](s *Session, key string) (T, error) {
	var zero T
	if s == nil {
		return zero, ErrNotFound
	}

	val, ok := s.Get(key)
	if !ok {
		return zero, ErrNotFound
	}

	typed, ok := val.(T)
	if !ok {
		return zero, fmt.Errorf("%w for key %q", ErrTypeMismatch, key)
	}

	return typed, nil
}

// ValueOr returns the value stored under key as T, or defaultVal.
func ValueOr[T any](s *Session, key string, defaultVal T) T {
	val, err := Value[T](s, key)
	if err != nil {
		return defaultVal
	}
	return val
}
