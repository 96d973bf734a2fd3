package session

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/ErlanBelekov/prompt-library/internal/clock"
)

type memoryEntry struct {
	values    map[string]string
	expiresAt time.Time
}

type MemoryStore struct {
	mu      sync.Mutex
	clock   clock.Clocker
	entries map[string]memoryEntry
}

func NewMemoryStore(clk clock.Clocker) *MemoryStore {
	return &MemoryStore{clock: clk, entries: make(map[string]memoryEntry)}
}

func (m *MemoryStore) Load(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	if m.clock.Now().After(e.expiresAt) {
		delete(m.entries, id)
		return nil, ErrNotFound
	}
	return &Session{ID: id, Values: maps.Clone(e.values)}, nil
}

func (m *MemoryStore) Save(_ context.Context, s *Session, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	m.entries[s.ID] = memoryEntry{values: maps.Clone(s.Values), expiresAt: now.Add(ttl)}
	m.evictLocked(now)
	return nil
}

// evictLocked drops abandoned sessions that were never loaded again.
func (m *MemoryStore) evictLocked(now time.Time) {
	for id, e := range m.entries {
		if now.After(e.expiresAt) {
			delete(m.entries, id)
		}
	}
}

// Len reports how many sessions are held, expired or not.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, id)
	return nil
}
