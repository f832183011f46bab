package store

import (
	"context"
	"fmt"
	"sync"

	"commune/pkg/platform/sentinel"
)

// InMemoryStore keeps settings in memory for tests and single-node dev runs.
type InMemoryStore struct {
	mu     sync.RWMutex
	values map[string]map[string]string
}

// NewInMemoryStore constructs an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{values: make(map[string]map[string]string)}
}

func (s *InMemoryStore) Find(_ context.Context, key, lang string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.values[key][lang]; ok {
		return v, nil
	}
	return "", fmt.Errorf("setting %s/%q: %w", key, lang, sentinel.ErrNotFound)
}

func (s *InMemoryStore) Upsert(_ context.Context, key, lang, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.values[key] == nil {
		s.values[key] = make(map[string]string)
	}
	s.values[key][lang] = value
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, key, lang string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key][lang]; !ok {
		return fmt.Errorf("setting %s/%q: %w", key, lang, sentinel.ErrNotFound)
	}
	delete(s.values[key], lang)
	return nil
}
