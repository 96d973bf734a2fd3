package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ErlanBelekov/prompt-library/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type OTPRepository struct {
	pool *pgxpool.Pool
}

func NewOTPRepository(pool *pgxpool.Pool) *OTPRepository {
	return &OTPRepository{pool: pool}
}

func (r *OTPRepository) ReplaceUnused(ctx context.Context, rec *domain.OTPRecord) (*domain.OTPRecord, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Serialises concurrent issuance for the same (email, purpose) so at most
	// one unused record survives.
	if _, err := tx.Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtext($1::text || ':' || $2::text))`,
		rec.Email, rec.Purpose.String(),
	); err != nil {
		return nil, fmt.Errorf("lock otp key: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM otps WHERE email = $1 AND purpose = $2 AND is_used = FALSE`,
		rec.Email, rec.Purpose.String(),
	); err != nil {
		return nil, fmt.Errorf("delete unused otps: %w", err)
	}

	query := `
		INSERT INTO otps (email, purpose, otp_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, email, purpose, otp_hash, expires_at, attempts, is_used, created_at`

	created, err := scanOTP(tx.QueryRow(ctx, query,
		rec.Email, rec.Purpose.String(), rec.CodeHash, rec.ExpiresAt, createdAt(rec),
	))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return created, nil
}

func createdAt(rec *domain.OTPRecord) time.Time {
	if rec.CreatedAt.IsZero() {
		return time.Now().UTC()
	}
	return rec.CreatedAt
}

func (r *OTPRepository) FindLatestUnused(ctx context.Context, email string, purpose domain.Purpose) (*domain.OTPRecord, error) {
	query := `
		SELECT id, email, purpose, otp_hash, expires_at, attempts, is_used, created_at
		FROM otps
		WHERE email = $1 AND purpose = $2 AND is_used = FALSE
		ORDER BY created_at DESC, id DESC
		LIMIT 1`

	return scanOTP(r.pool.QueryRow(ctx, query, email, purpose.String()))
}

func (r *OTPRepository) IncrementAttempts(ctx context.Context, id string, max int) (int, bool, error) {
	var attempts int
	err := r.pool.QueryRow(ctx,
		`UPDATE otps SET attempts = attempts + 1
		 WHERE id = $1 AND is_used = FALSE AND attempts < $2
		 RETURNING attempts`,
		id, max,
	).Scan(&attempts)
	if err == nil {
		return attempts, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, false, fmt.Errorf("increment attempts: %w", err)
	}

	// Nothing updated: either the cap was hit or the record was superseded,
	// swept or consumed since it was read.
	var live bool
	if err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM otps WHERE id = $1 AND is_used = FALSE)`,
		id,
	).Scan(&live); err != nil {
		return 0, false, fmt.Errorf("check otp: %w", err)
	}
	if !live {
		return 0, false, domain.ErrOTPNotFound
	}
	return 0, false, nil
}

func (r *OTPRepository) MarkUsed(ctx context.Context, id string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE otps SET is_used = TRUE WHERE id = $1 AND is_used = FALSE`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("mark otp used: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *OTPRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM otps WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired otps: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanOTP(row pgx.Row) (*domain.OTPRecord, error) {
	var (
		rec     domain.OTPRecord
		purpose string
	)
	err := row.Scan(
		&rec.ID, &rec.Email, &purpose, &rec.CodeHash,
		&rec.ExpiresAt, &rec.Attempts, &rec.IsUsed, &rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOTPNotFound
		}
		return nil, fmt.Errorf("scan otp: %w", err)
	}

	p, err := domain.ParsePurpose(purpose)
	if err != nil {
		return nil, fmt.Errorf("scan otp: %w", err)
	}
	rec.Purpose = p
	return &rec, nil
}
