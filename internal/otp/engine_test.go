package otp_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ErlanBelekov/prompt-library/internal/clock"
	"github.com/ErlanBelekov/prompt-library/internal/domain"
	"github.com/ErlanBelekov/prompt-library/internal/hash"
	"github.com/ErlanBelekov/prompt-library/internal/infrastructure/memory"
	"github.com/ErlanBelekov/prompt-library/internal/otp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var start = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	engine *otp.Engine
	repo   *memory.OTPRepository
	clock  *clock.Fake
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := memory.NewOTPRepository()
	clk := clock.NewFake(start)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	e := otp.NewEngine(repo, hash.NewBcrypt(bcrypt.MinCost), clk, logger, otp.DefaultConfig())
	return &fixture{engine: e, repo: repo, clock: clk}
}

func wrongCode(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}

func (f *fixture) only(t *testing.T) domain.OTPRecord {
	t.Helper()
	all := f.repo.All()
	require.Len(t, all, 1)
	return all[0]
}

func TestIssue_ReturnsSixDigitCodeAndStoresHash(t *testing.T) {
	f := newFixture(t)

	code, err := f.engine.Issue(context.Background(), "u@d.com", domain.PurposeSignup)
	require.NoError(t, err)
	require.Len(t, code, 6)
	for _, c := range code {
		assert.True(t, c >= '0' && c <= '9', "non-digit %q in %q", c, code)
	}

	rec := f.only(t)
	assert.Equal(t, "u@d.com", rec.Email)
	assert.Equal(t, domain.PurposeSignup, rec.Purpose)
	assert.NotEqual(t, code, rec.CodeHash)
	assert.Equal(t, start.Add(10*time.Minute), rec.ExpiresAt)
	assert.Zero(t, rec.Attempts)
	assert.False(t, rec.IsUsed)
}

func TestVerify_SucceedsExactlyOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	code, err := f.engine.Issue(ctx, "u@d.com", domain.PurposeLogin)
	require.NoError(t, err)

	out, err := f.engine.Verify(ctx, "u@d.com", code, domain.PurposeLogin)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSuccess, out)

	out, err = f.engine.Verify(ctx, "u@d.com", code, domain.PurposeLogin)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeNotFound, out)
}

func TestVerify_NoRecord_NotFound(t *testing.T) {
	f := newFixture(t)

	out, err := f.engine.Verify(context.Background(), "nobody@d.com", "123456", domain.PurposeReset)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeNotFound, out)
	assert.ErrorIs(t, out.Err(), domain.ErrOTPNotFound)
}

func TestVerify_PurposesDoNotCrossValidate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	code, err := f.engine.Issue(ctx, "u@d.com", domain.PurposeSignup)
	require.NoError(t, err)

	out, err := f.engine.Verify(ctx, "u@d.com", code, domain.PurposeReset)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeNotFound, out)

	out, err = f.engine.Verify(ctx, "u@d.com", code, domain.PurposeSignup)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSuccess, out)
}

func TestIssue_SupersedesPreviousUnusedCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	oldCode, err := f.engine.Issue(ctx, "u@d.com", domain.PurposeLogin)
	require.NoError(t, err)

	f.clock.Advance(time.Second)
	newCode, err := f.engine.Issue(ctx, "u@d.com", domain.PurposeLogin)
	require.NoError(t, err)
	for newCode == oldCode {
		newCode, err = f.engine.Issue(ctx, "u@d.com", domain.PurposeLogin)
		require.NoError(t, err)
	}

	assert.Len(t, f.repo.All(), 1)

	out, err := f.engine.Verify(ctx, "u@d.com", oldCode, domain.PurposeLogin)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeMismatch, out)

	out, err = f.engine.Verify(ctx, "u@d.com", newCode, domain.PurposeLogin)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSuccess, out)
}

func TestVerify_AttemptCapBlocksCorrectCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	code, err := f.engine.Issue(ctx, "u@d.com", domain.PurposeLogin)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		out, err := f.engine.Verify(ctx, "u@d.com", wrongCode(code), domain.PurposeLogin)
		require.NoError(t, err)
		assert.Equal(t, domain.OutcomeMismatch, out, "attempt %d", i+1)
	}

	out, err := f.engine.Verify(ctx, "u@d.com", code, domain.PurposeLogin)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeAttemptsExceeded, out)
	assert.Equal(t, 5, f.only(t).Attempts, "attempts must not grow past the cap")
}

func TestVerify_SuccessCountsAsAttempt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	code, err := f.engine.Issue(ctx, "u@d.com", domain.PurposeLogin)
	require.NoError(t, err)

	_, err = f.engine.Verify(ctx, "u@d.com", code, domain.PurposeLogin)
	require.NoError(t, err)

	rec := f.only(t)
	assert.Equal(t, 1, rec.Attempts)
	assert.True(t, rec.IsUsed)
}

func TestVerify_ExpiredBeatsCorrectCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	code, err := f.engine.Issue(ctx, "u@d.com", domain.PurposeReset)
	require.NoError(t, err)

	f.clock.Advance(10*time.Minute + time.Second)

	out, err := f.engine.Verify(ctx, "u@d.com", code, domain.PurposeReset)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeExpired, out)
	assert.ErrorIs(t, out.Err(), domain.ErrOTPExpired)
	assert.Zero(t, f.only(t).Attempts, "expired checks do not consume attempts")
}

func TestVerify_AtExactExpiry_StillValid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	code, err := f.engine.Issue(ctx, "u@d.com", domain.PurposeReset)
	require.NoError(t, err)

	f.clock.Advance(10 * time.Minute)

	out, err := f.engine.Verify(ctx, "u@d.com", code, domain.PurposeReset)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSuccess, out)
}

func TestSweepExpired_RemovesAllAndOnlyExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	usedCode, err := f.engine.Issue(ctx, "used@d.com", domain.PurposeLogin)
	require.NoError(t, err)
	_, err = f.engine.Verify(ctx, "used@d.com", usedCode, domain.PurposeLogin)
	require.NoError(t, err)
	_, err = f.engine.Issue(ctx, "stale@d.com", domain.PurposeSignup)
	require.NoError(t, err)

	f.clock.Advance(8 * time.Minute)
	freshCode, err := f.engine.Issue(ctx, "fresh@d.com", domain.PurposeReset)
	require.NoError(t, err)
	_, err = f.engine.Verify(ctx, "fresh@d.com", wrongCode(freshCode), domain.PurposeReset)
	require.NoError(t, err)

	f.clock.Advance(3 * time.Minute)
	n, err := f.engine.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	rec := f.only(t)
	assert.Equal(t, "fresh@d.com", rec.Email)
	assert.Equal(t, 1, rec.Attempts)

	n, err = f.engine.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

// End-to-end: wrong code, right code, replay.
func TestEngine_SignupScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	code, err := f.engine.Issue(ctx, "u@d.com", domain.PurposeSignup)
	require.NoError(t, err)

	out, err := f.engine.Verify(ctx, "u@d.com", wrongCode(code), domain.PurposeSignup)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeMismatch, out)
	assert.Equal(t, 1, f.only(t).Attempts)

	out, err = f.engine.Verify(ctx, "u@d.com", code, domain.PurposeSignup)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSuccess, out)
	assert.True(t, f.only(t).IsUsed)

	out, err = f.engine.Verify(ctx, "u@d.com", code, domain.PurposeSignup)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeNotFound, out)
}

// Concurrent verifiers share the attempt budget; the conditional increment
// keeps the counter at the cap.
func TestVerify_ConcurrentAttemptsRespectCap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	code, err := f.engine.Issue(ctx, "u@d.com", domain.PurposeLogin)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.engine.Verify(ctx, "u@d.com", wrongCode(code), domain.PurposeLogin)
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, f.only(t).Attempts)

	out, err := f.engine.Verify(ctx, "u@d.com", code, domain.PurposeLogin)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeAttemptsExceeded, out)
}

// ---- storage failures ----

type failingRepo struct {
	memory.OTPRepository
	err error
}

func (r *failingRepo) ReplaceUnused(context.Context, *domain.OTPRecord) (*domain.OTPRecord, error) {
	return nil, r.err
}

func (r *failingRepo) FindLatestUnused(context.Context, string, domain.Purpose) (*domain.OTPRecord, error) {
	return nil, r.err
}

func (r *failingRepo) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, r.err
}

func TestEngine_StorageErrorsPropagate(t *testing.T) {
	dbErr := errors.New("db down")
	repo := &failingRepo{err: dbErr}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	e := otp.NewEngine(repo, hash.NewBcrypt(bcrypt.MinCost), clock.NewFake(start), logger, otp.Config{})
	ctx := context.Background()

	_, err := e.Issue(ctx, "u@d.com", domain.PurposeLogin)
	assert.ErrorIs(t, err, dbErr)

	_, err = e.Verify(ctx, "u@d.com", "123456", domain.PurposeLogin)
	assert.ErrorIs(t, err, dbErr)

	_, err = e.SweepExpired(ctx)
	assert.ErrorIs(t, err, dbErr)
}

func TestNewEngine_ZeroConfigUsesDefaults(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	e := otp.NewEngine(memory.NewOTPRepository(), hash.NewBcrypt(bcrypt.MinCost), clock.NewFake(start), logger, otp.Config{})

	assert.Equal(t, 10*time.Minute, e.TTL())
	code, err := e.Issue(context.Background(), "u@d.com", domain.PurposeLogin)
	require.NoError(t, err)
	assert.Len(t, code, 6)
}

// reissuingRepo issues a replacement code for the same pair right after the
// engine's lookup, as a concurrent resend would.
type reissuingRepo struct {
	*memory.OTPRepository
	reissue bool
}

func (r *reissuingRepo) FindLatestUnused(ctx context.Context, email string, purpose domain.Purpose) (*domain.OTPRecord, error) {
	rec, err := r.OTPRepository.FindLatestUnused(ctx, email, purpose)
	if err != nil || !r.reissue {
		return rec, err
	}
	_, err = r.ReplaceUnused(ctx, &domain.OTPRecord{
		Email:     email,
		Purpose:   purpose,
		CodeHash:  "replacement",
		ExpiresAt: rec.ExpiresAt,
		CreatedAt: rec.CreatedAt.Add(time.Second),
	})
	return rec, err
}

func TestVerify_SupersededDuringVerifyIsNotFound(t *testing.T) {
	repo := &reissuingRepo{OTPRepository: memory.NewOTPRepository()}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	e := otp.NewEngine(repo, hash.NewBcrypt(bcrypt.MinCost), clock.NewFake(start), logger, otp.DefaultConfig())
	ctx := context.Background()

	code, err := e.Issue(ctx, "u@d.com", domain.PurposeLogin)
	require.NoError(t, err)

	repo.reissue = true
	out, err := e.Verify(ctx, "u@d.com", code, domain.PurposeLogin)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeNotFound, out, "a replaced record has no attempts to exceed")
}
