package session

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotConfigured means the application was built without a store.
	ErrNotConfigured = errors.New("session: no store configured")
	ErrNotFound      = errors.New("session: unknown token or id")
	ErrExpired       = errors.New("session: past its expiry")
	// ErrTypeMismatch is wrapped by Value.
	ErrTypeMismatch = errors.New("session: stored value has another type")
)

// Store is the persistence backend of the session manager. Lookups go by
// the cookie token; writes and deletes go by the stable session id, so a
// rotated token never orphans the record.
type Store interface {
	Create(ctx context.Context, s *Session) error
	// Get fails with ErrNotFound or ErrExpired.
	Get(ctx context.Context, token string) (*Session, error)
	Update(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
	// Touch bumps LastActiveAt and leaves Values untouched.
	Touch(ctx context.Context, id string, lastActiveAt time.Time) error
}
