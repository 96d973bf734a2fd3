package repository

import (
	"context"
	"time"

	"github.com/ErlanBelekov/prompt-library/internal/domain"
)

// OTPRepository is the OTP ledger. The engine depends on this interface, so
// Postgres and the in-memory store are interchangeable.
type OTPRepository interface {
	// ReplaceUnused deletes every unused record for (rec.Email, rec.Purpose)
	// and inserts rec, atomically. Returns the persisted record.
	ReplaceUnused(ctx context.Context, rec *domain.OTPRecord) (*domain.OTPRecord, error)

	// FindLatestUnused returns the most recently created unused record for
	// (email, purpose), or domain.ErrOTPNotFound.
	FindLatestUnused(ctx context.Context, email string, purpose domain.Purpose) (*domain.OTPRecord, error)

	// IncrementAttempts bumps attempts by one only while attempts < max.
	// ok is false when the cap was already reached by a concurrent caller.
	// A record that is gone or already used yields domain.ErrOTPNotFound.
	IncrementAttempts(ctx context.Context, id string, max int) (attempts int, ok bool, err error)

	// MarkUsed flips is_used. ok is false when the record was already used.
	MarkUsed(ctx context.Context, id string) (ok bool, err error)

	// DeleteExpired removes every record whose expires_at is before now,
	// regardless of purpose or used flag.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
