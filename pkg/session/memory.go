package session

import (
	"context"
	"maps"
	"sync"
	"time"
)

// MemoryStore keeps sessions in process memory.
// Suitable for single-instance deployments and tests.
type MemoryStore struct {
	byID    map[string]*Session
	byToken map[string]string
	mu      sync.RWMutex
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]*Session),
		byToken: make(map[string]string),
	}
}

func (m *MemoryStore) Create(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[s.ID] = snapshot(s)
	m.byToken[s.Token] = s.ID
	return nil
}

func (m *MemoryStore) Get(_ context.Context, token string) (*Session, error) {
	m.mu.RLock()
	id, ok := m.byToken[token]
	stored := m.byID[id]
	m.mu.RUnlock()

	if !ok || stored == nil {
		return nil, ErrNotFound
	}
	if stored.IsExpired() {
		return nil, ErrExpired
	}
	return snapshot(stored), nil
}

func (m *MemoryStore) Update(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev, ok := m.byID[s.ID]
	if !ok {
		return ErrNotFound
	}
	if prev.Token != s.Token {
		delete(m.byToken, prev.Token)
	}
	m.byID[s.ID] = snapshot(s)
	m.byToken[s.Token] = s.ID
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.byID[id]; ok {
		delete(m.byToken, s.Token)
		delete(m.byID, id)
	}
	return nil
}

func (m *MemoryStore) Touch(_ context.Context, id string, lastActiveAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	s.LastActiveAt = lastActiveAt
	return nil
}

// Len returns the number of stored sessions.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}

// snapshot copies s so callers never share mutable state with the store.
func snapshot(s *Session) *Session {
	cp := *s
	cp.Values = maps.Clone(s.Values)
	if cp.Values == nil {
		cp.Values = make(map[string]any)
	}
	cp.dirty = false
	cp.isNew = false
	return &cp
}
