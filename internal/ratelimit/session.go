package ratelimit

import (
	"context"
	"time"
)

// KV is the slice of a requester session the limiter needs.
type KV interface {
	Get(key string) (string, bool)
	Set(key, value string)
}

// SessionStore keeps cooldowns inside the requester's session, so two
// sessions targeting the same email are not throttled against each other.
type SessionStore struct {
	kv KV
}

func NewSessionStore(kv KV) *SessionStore {
	return &SessionStore{kv: kv}
}

// Reserve is atomic only within one request's copy of the session. Throttling
// across sessions needs a shared store.
func (s *SessionStore) Reserve(_ context.Context, key string, at time.Time, ttl time.Duration) (time.Time, bool, error) {
	if val, ok := s.kv.Get(key); ok {
		// A corrupt value should not lock the user out.
		if prev, err := time.Parse(time.RFC3339Nano, val); err == nil && at.Sub(prev) < ttl {
			return prev, false, nil
		}
	}
	s.kv.Set(key, at.UTC().Format(time.RFC3339Nano))
	return at, true, nil
}
