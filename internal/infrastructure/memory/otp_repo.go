// Package memory holds process-local implementations of the repositories,
// used by tests and single-process local runs.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/ErlanBelekov/prompt-library/internal/domain"
	"github.com/google/uuid"
)

type otpRow struct {
	rec domain.OTPRecord
	seq uint64
}

type OTPRepository struct {
	mu   sync.Mutex
	rows map[string]*otpRow
	seq  uint64
}

func NewOTPRepository() *OTPRepository {
	return &OTPRepository{rows: make(map[string]*otpRow)}
}

func (r *OTPRepository) ReplaceUnused(_ context.Context, rec *domain.OTPRecord) (*domain.OTPRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, row := range r.rows {
		if row.rec.Email == rec.Email && row.rec.Purpose == rec.Purpose && !row.rec.IsUsed {
			delete(r.rows, id)
		}
	}

	stored := *rec
	stored.ID = uuid.NewString()
	stored.Attempts = 0
	stored.IsUsed = false
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}

	r.seq++
	r.rows[stored.ID] = &otpRow{rec: stored, seq: r.seq}

	out := stored
	return &out, nil
}

func (r *OTPRepository) FindLatestUnused(_ context.Context, email string, purpose domain.Purpose) (*domain.OTPRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var latest *otpRow
	for _, row := range r.rows {
		if row.rec.Email != email || row.rec.Purpose != purpose || row.rec.IsUsed {
			continue
		}
		if latest == nil || newer(row, latest) {
			latest = row
		}
	}
	if latest == nil {
		return nil, domain.ErrOTPNotFound
	}

	out := latest.rec
	return &out, nil
}

func newer(a, b *otpRow) bool {
	if !a.rec.CreatedAt.Equal(b.rec.CreatedAt) {
		return a.rec.CreatedAt.After(b.rec.CreatedAt)
	}
	return a.seq > b.seq
}

func (r *OTPRepository) IncrementAttempts(_ context.Context, id string, max int) (int, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[id]
	if !ok || row.rec.IsUsed {
		return 0, false, domain.ErrOTPNotFound
	}
	if row.rec.Attempts >= max {
		return 0, false, nil
	}
	row.rec.Attempts++
	return row.rec.Attempts, true, nil
}

func (r *OTPRepository) MarkUsed(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.rows[id]
	if !ok || row.rec.IsUsed {
		return false, nil
	}
	row.rec.IsUsed = true
	return true, nil
}

func (r *OTPRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, row := range r.rows {
		if row.rec.ExpiresAt.Before(now) {
			delete(r.rows, id)
			n++
		}
	}
	return n, nil
}

// All returns a snapshot of every record, for assertions in tests.
func (r *OTPRepository) All() []domain.OTPRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.OTPRecord, 0, len(r.rows))
	for _, row := range r.rows {
		out = append(out, row.rec)
	}
	return out
}
