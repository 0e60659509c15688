package store

import (
	"context"
	"sync"
)

// MemoryStore is a process-local SessionStorer used when no database is configured.
// Values do not survive a restart.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]map[string]string)}
}

func (s *MemoryStore) GetValue(ctx context.Context, sessionID, key string) (string, error) {
	if sessionID == "" {
		return "", ErrEmptySessionID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[sessionID][key]
	if !ok {
		return "", ErrValueNotFound
	}
	return v, nil
}

func (s *MemoryStore) PutValue(ctx context.Context, sessionID, key, value string) error {
	if sessionID == "" {
		return ErrEmptySessionID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.values[sessionID]
	if !ok {
		session = make(map[string]string)
		s.values[sessionID] = session
	}
	session[key] = value
	return nil
}

func (s *MemoryStore) DeleteValues(ctx context.Context, sessionID string, keys ...string) error {
	if sessionID == "" {
		return ErrEmptySessionID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.values[sessionID]
	if !ok {
		return nil
	}
	for _, k := range keys {
		delete(session, k)
	}
	if len(session) == 0 {
		delete(s.values, sessionID)
	}
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
