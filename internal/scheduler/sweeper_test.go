package scheduler_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ErlanBelekov/prompt-library/internal/clock"
	"github.com/ErlanBelekov/prompt-library/internal/domain"
	"github.com/ErlanBelekov/prompt-library/internal/hash"
	"github.com/ErlanBelekov/prompt-library/internal/infrastructure/memory"
	"github.com/ErlanBelekov/prompt-library/internal/otp"
	"github.com/ErlanBelekov/prompt-library/internal/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type countingSweeper struct {
	calls atomic.Int32
	err   error
}

func (c *countingSweeper) SweepExpired(context.Context) (int64, error) {
	c.calls.Add(1)
	return 0, c.err
}

func TestNewSweeper_InvalidSchedule(t *testing.T) {
	_, err := scheduler.NewSweeper(&countingSweeper{}, "not a schedule", clock.New(), discard)
	assert.Error(t, err)
}

func TestSweeper_Next(t *testing.T) {
	s, err := scheduler.NewSweeper(&countingSweeper{}, "*/5 * * * *", clock.New(), discard)
	require.NoError(t, err)

	now := time.Date(2026, 4, 1, 10, 2, 30, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 4, 1, 10, 5, 0, 0, time.UTC), s.Next(now))
}

func TestSweeper_RunOnceDeletesExpired(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC))
	repo := memory.NewOTPRepository()
	engine := otp.NewEngine(repo, hash.NewBcrypt(4), clk, discard, otp.DefaultConfig())
	ctx := context.Background()

	_, err := engine.Issue(ctx, "old@x.com", domain.PurposeLogin)
	require.NoError(t, err)
	clk.Advance(11 * time.Minute)
	_, err = engine.Issue(ctx, "new@x.com", domain.PurposeLogin)
	require.NoError(t, err)

	s, err := scheduler.NewSweeper(engine, "@every 5m", clk, discard)
	require.NoError(t, err)

	assert.Equal(t, int64(1), s.RunOnce(ctx))
	require.Len(t, repo.All(), 1)
	assert.Equal(t, "new@x.com", repo.All()[0].Email)
}

func TestSweeper_RunOnceSwallowsErrors(t *testing.T) {
	s, err := scheduler.NewSweeper(&countingSweeper{err: errors.New("db down")}, "@hourly", clock.New(), discard)
	require.NoError(t, err)

	assert.Zero(t, s.RunOnce(context.Background()))
}

func TestSweeper_StartSweepsImmediatelyAndStops(t *testing.T) {
	engine := &countingSweeper{}
	s, err := scheduler.NewSweeper(engine, "@hourly", clock.New(), discard)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return engine.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}
