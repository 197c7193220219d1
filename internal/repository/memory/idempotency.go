package memory

import (
	"context"
	"sync"
)

// IdempotencyStore keeps Idempotency-Key mappings for the process lifetime.
// It is used when no Redis address is configured.
type IdempotencyStore struct {
	mu   sync.Mutex
	keys map[string]string
}

func NewIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{keys: make(map[string]string)}
}

func (s *IdempotencyStore) Lookup(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.keys[key]
	return id, ok, nil
}

// Remember keeps the first mapping for a key
func (s *IdempotencyStore) Remember(_ context.Context, key, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.keys[key]; !ok {
		s.keys[key] = eventID
	}
	return nil
}
