package handler

import (
	"time"

	"github.com/ErlanBelekov/prompt-library/internal/clock"
	"github.com/ErlanBelekov/prompt-library/internal/ratelimit"
	"github.com/ErlanBelekov/prompt-library/internal/session"
)

// LimiterFunc returns the issuance limiter that applies to a request.
type LimiterFunc func(s *session.Session) *ratelimit.Limiter

// SessionLimiter keeps cooldowns inside each requester's session.
func SessionLimiter(clk clock.Clocker, cooldown time.Duration) LimiterFunc {
	return func(s *session.Session) *ratelimit.Limiter {
		return ratelimit.New(ratelimit.NewSessionStore(s), clk, cooldown)
	}
}

// SharedLimiter applies one limiter to every session, so cooldowns follow
// the email rather than the requester.
func SharedLimiter(l *ratelimit.Limiter) LimiterFunc {
	return func(*session.Session) *ratelimit.Limiter {
		return l
	}
}
