package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces session keys.
const DefaultRedisPrefix = "session:"

// RedisStore keeps JSON-encoded sessions in Redis.
// Keys: <prefix>id:<id> holds the session, <prefix>token:<token> maps to the id.
// Both expire together with the session.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore creates a Redis-backed store. An empty prefix uses DefaultRedisPrefix.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) idKey(id string) string       { return r.prefix + "id:" + id }
func (r *RedisStore) tokenKey(token string) string { return r.prefix + "token:" + token }

func (r *RedisStore) Create(ctx context.Context, s *Session) error {
	return r.write(ctx, s, "")
}

func (r *RedisStore) Get(ctx context.Context, token string) (*Session, error) {
	id, err := r.client.Get(ctx, r.tokenKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session: lookup token: %w", err)
	}

	s, err := r.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.IsExpired() {
		return nil, ErrExpired
	}
	return s, nil
}

func (r *RedisStore) Update(ctx context.Context, s *Session) error {
	prev, err := r.load(ctx, s.ID)
	if err != nil {
		return err
	}
	oldToken := ""
	if prev.Token != s.Token {
		oldToken = prev.Token
	}
	return r.write(ctx, s, oldToken)
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	s, err := r.load(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return r.client.Del(ctx, r.idKey(id), r.tokenKey(s.Token)).Err()
}

func (r *RedisStore) Touch(ctx context.Context, id string, lastActiveAt time.Time) error {
	s, err := r.load(ctx, id)
	if err != nil {
		return err
	}
	s.LastActiveAt = lastActiveAt
	return r.write(ctx, s, "")
}

func (r *RedisStore) load(ctx context.Context, id string) (*Session, error) {
	raw, err := r.client.Get(ctx, r.idKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session: load: %w", err)
	}

	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("session: decode: %w", err)
	}
	if s.Values == nil {
		s.Values = make(map[string]any)
	}
	return &s, nil
}

func (r *RedisStore) write(ctx context.Context, s *Session, staleToken string) error {
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return ErrExpired
	}

	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.idKey(s.ID), raw, ttl)
		pipe.Set(ctx, r.tokenKey(s.Token), s.ID, ttl)
		if staleToken != "" {
			pipe.Del(ctx, r.tokenKey(staleToken))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("session: save: %w", err)
	}
	return nil
}
