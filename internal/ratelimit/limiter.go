// Package ratelimit throttles OTP issuance to one code per (action, email)
// within a cooldown window. It reduces email spam; it is not an anti-abuse
// boundary unless backed by a shared store.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/ErlanBelekov/prompt-library/internal/clock"
	"github.com/ErlanBelekov/prompt-library/internal/metrics"
)

const DefaultCooldown = 2 * time.Minute

// Store keeps the last issuance time per key. Reserve is atomic per key: when
// no issuance younger than ttl is held it records at and returns ok, otherwise
// it returns the held issuance time.
type Store interface {
	Reserve(ctx context.Context, key string, at time.Time, ttl time.Duration) (prev time.Time, ok bool, err error)
}

type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// SecondsRemaining is RetryAfter rounded up to whole seconds.
func (d Decision) SecondsRemaining() int {
	if d.Allowed || d.RetryAfter <= 0 {
		return 0
	}
	secs := int(d.RetryAfter / time.Second)
	if d.RetryAfter%time.Second != 0 {
		secs++
	}
	return secs
}

func (d Decision) Message() string {
	return fmt.Sprintf("Please wait %d seconds before requesting another OTP", d.SecondsRemaining())
}

type Limiter struct {
	store    Store
	clock    clock.Clocker
	cooldown time.Duration
}

func New(store Store, clk clock.Clocker, cooldown time.Duration) *Limiter {
	return &Limiter{store: store, clock: clk, cooldown: cooldown}
}

// Key is the store key for one (action, email) pair.
func Key(action, email string) string {
	return action + "_" + email
}

// CheckAndRecord denies when a previous issuance for (email, action) is
// younger than the cooldown; otherwise it records now and allows.
func (l *Limiter) CheckAndRecord(ctx context.Context, email, action string) (Decision, error) {
	if l.cooldown <= 0 {
		return Decision{Allowed: true}, nil
	}

	key := Key(action, email)
	now := l.clock.Now()

	prev, ok, err := l.store.Reserve(ctx, key, now, l.cooldown)
	if err != nil {
		return Decision{}, fmt.Errorf("reserve rate limit: %w", err)
	}
	if ok {
		return Decision{Allowed: true}, nil
	}

	metrics.RateLimitedTotal.WithLabelValues(action).Inc()
	retry := l.cooldown - now.Sub(prev)
	if retry <= 0 {
		// A shared store's TTL outlived our clock's view of the window.
		retry = time.Second
	}
	return Decision{Allowed: false, RetryAfter: retry}, nil
}
