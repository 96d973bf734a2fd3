// Package session keeps short-lived, server-side state for multi-step auth
// flows (pending signup, the email awaiting a code, reset verification).
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("session not found")

type Session struct {
	ID     string
	Values map[string]string

	dirty     bool
	destroyed bool
}

func New() *Session {
	return &Session{ID: uuid.NewString(), Values: make(map[string]string)}
}

func (s *Session) Get(key string) (string, bool) {
	v, ok := s.Values[key]
	return v, ok
}

func (s *Session) Set(key, value string) {
	s.Values[key] = value
	s.dirty = true
}

func (s *Session) Delete(keys ...string) {
	for _, k := range keys {
		if _, ok := s.Values[k]; ok {
			delete(s.Values, k)
			s.dirty = true
		}
	}
}

// Destroy drops every value; the middleware removes the session from the
// store once the request finishes.
func (s *Session) Destroy() {
	s.Values = make(map[string]string)
	s.destroyed = true
}

func (s *Session) Dirty() bool     { return s.dirty }
func (s *Session) Destroyed() bool { return s.destroyed }

type Store interface {
	Load(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}
