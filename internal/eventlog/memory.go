package eventlog

import (
	"context"
	"sync"
)

// MemoryStore keeps events in process memory. Default driver; fine for
// a single instance since Meta retries target the same deployment.
type MemoryStore struct {
	mu     sync.Mutex
	events map[string]Event
}

// NewMemoryStore creates an empty in-memory event log.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{events: make(map[string]Event)}
}

func (s *MemoryStore) Record(ctx context.Context, ev Event) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[ev.MessageID]; ok {
		return true, nil
	}
	s.events[ev.MessageID] = ev
	return false, nil
}

func (s *MemoryStore) Close(ctx context.Context) error { return nil }

// Len reports how many distinct events were recorded.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}
