// Package otp issues, verifies and garbage-collects one-time passwords that
// prove control of an email address during signup, login and password reset.
package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/ErlanBelekov/prompt-library/internal/clock"
	"github.com/ErlanBelekov/prompt-library/internal/domain"
	"github.com/ErlanBelekov/prompt-library/internal/hash"
	"github.com/ErlanBelekov/prompt-library/internal/metrics"
	"github.com/ErlanBelekov/prompt-library/internal/repository"
)

const (
	DefaultCodeLength  = 6
	DefaultTTL         = 10 * time.Minute
	DefaultMaxAttempts = 5
)

type Config struct {
	CodeLength  int
	TTL         time.Duration
	MaxAttempts int
}

func DefaultConfig() Config {
	return Config{
		CodeLength:  DefaultCodeLength,
		TTL:         DefaultTTL,
		MaxAttempts: DefaultMaxAttempts,
	}
}

type Engine struct {
	repo   repository.OTPRepository
	hasher hash.Hasher
	clock  clock.Clocker
	random io.Reader
	cfg    Config
	logger *slog.Logger
}

type Option func(*Engine)

// WithRandom replaces the entropy source. Only tests should use this.
func WithRandom(r io.Reader) Option {
	return func(e *Engine) { e.random = r }
}

func NewEngine(repo repository.OTPRepository, hasher hash.Hasher, clk clock.Clocker, logger *slog.Logger, cfg Config, opts ...Option) *Engine {
	if cfg.CodeLength <= 0 {
		cfg.CodeLength = DefaultCodeLength
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}

	e := &Engine{
		repo:   repo,
		hasher: hasher,
		clock:  clk,
		random: rand.Reader,
		cfg:    cfg,
		logger: logger.With("component", "otp_engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) TTL() time.Duration {
	return e.cfg.TTL
}

// Issue generates a fresh code for (email, purpose), replaces any unused code
// for the same pair and returns the plaintext for out-of-band delivery.
func (e *Engine) Issue(ctx context.Context, email string, purpose domain.Purpose) (string, error) {
	code, err := generateCode(e.random, e.cfg.CodeLength)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}

	codeHash, err := e.hasher.Hash(code)
	if err != nil {
		return "", fmt.Errorf("hash otp: %w", err)
	}

	now := e.clock.Now()
	rec := &domain.OTPRecord{
		Email:     email,
		Purpose:   purpose,
		CodeHash:  codeHash,
		ExpiresAt: now.Add(e.cfg.TTL),
		CreatedAt: now,
	}

	if _, err = e.repo.ReplaceUnused(ctx, rec); err != nil {
		return "", fmt.Errorf("store otp: %w", err)
	}

	metrics.OTPIssuedTotal.WithLabelValues(purpose.String()).Inc()
	e.logger.InfoContext(ctx, "otp issued", "purpose", purpose, "expires_at", rec.ExpiresAt)
	return code, nil
}

// Verify checks submittedCode against the newest unused record for
// (email, purpose). Every check that reaches the hash comparison consumes an
// attempt, including the one that succeeds. The returned error is non-nil
// only for storage failures.
func (e *Engine) Verify(ctx context.Context, email, submittedCode string, purpose domain.Purpose) (domain.Outcome, error) {
	outcome, err := e.verify(ctx, email, submittedCode, purpose)
	if err != nil {
		return outcome, err
	}

	metrics.OTPVerificationsTotal.WithLabelValues(purpose.String(), outcome.String()).Inc()
	if outcome != domain.OutcomeSuccess {
		e.logger.InfoContext(ctx, "otp verification rejected", "purpose", purpose, "outcome", outcome)
	}
	return outcome, nil
}

func (e *Engine) verify(ctx context.Context, email, submittedCode string, purpose domain.Purpose) (domain.Outcome, error) {
	rec, err := e.repo.FindLatestUnused(ctx, email, purpose)
	if err != nil {
		if errors.Is(err, domain.ErrOTPNotFound) {
			return domain.OutcomeNotFound, nil
		}
		return domain.OutcomeNotFound, fmt.Errorf("find otp: %w", err)
	}

	if rec.Expired(e.clock.Now()) {
		return domain.OutcomeExpired, nil
	}

	if rec.Attempts >= e.cfg.MaxAttempts {
		return domain.OutcomeAttemptsExceeded, nil
	}

	// Conditional increment: a concurrent verifier may have spent the last attempt.
	_, ok, err := e.repo.IncrementAttempts(ctx, rec.ID, e.cfg.MaxAttempts)
	if errors.Is(err, domain.ErrOTPNotFound) {
		// Superseded by a newer issue, or swept, after the lookup.
		return domain.OutcomeNotFound, nil
	}
	if err != nil {
		return domain.OutcomeNotFound, fmt.Errorf("increment otp attempts: %w", err)
	}
	if !ok {
		return domain.OutcomeAttemptsExceeded, nil
	}

	if !e.hasher.Verify(rec.CodeHash, submittedCode) {
		return domain.OutcomeMismatch, nil
	}

	ok, err = e.repo.MarkUsed(ctx, rec.ID)
	if err != nil {
		return domain.OutcomeNotFound, fmt.Errorf("mark otp used: %w", err)
	}
	if !ok {
		// Lost the race to a concurrent successful verification.
		return domain.OutcomeNotFound, nil
	}
	return domain.OutcomeSuccess, nil
}

// SweepExpired deletes every ledger record past its expiry, used or not.
func (e *Engine) SweepExpired(ctx context.Context) (int64, error) {
	start := time.Now()
	n, err := e.repo.DeleteExpired(ctx, e.clock.Now())
	metrics.OTPSweepDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return 0, fmt.Errorf("sweep expired otps: %w", err)
	}
	if n > 0 {
		metrics.OTPSweptTotal.Add(float64(n))
		e.logger.DebugContext(ctx, "swept expired otps", "count", n)
	}
	return n, nil
}
