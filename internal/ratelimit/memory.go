package ratelimit

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	at        time.Time
	expiresAt time.Time
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]entry)}
}

func (s *MemoryStore) Reserve(_ context.Context, key string, at time.Time, ttl time.Duration) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok && at.Before(e.expiresAt) {
		return e.at, false, nil
	}

	s.entries[key] = entry{at: at, expiresAt: at.Add(ttl)}
	s.evictLocked(at)
	return at, true, nil
}

func (s *MemoryStore) evictLocked(now time.Time) {
	for k, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, k)
		}
	}
}
