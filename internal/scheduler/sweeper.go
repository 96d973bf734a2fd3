// Package scheduler runs periodic maintenance of the OTP ledger.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ErlanBelekov/prompt-library/internal/clock"
	"github.com/robfig/cron/v3"
)

type expiredSweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// Sweeper deletes expired OTP records on a cron schedule. Issuance also
// sweeps inline, so a missed run only delays cleanup.
type Sweeper struct {
	engine   expiredSweeper
	schedule cron.Schedule
	spec     string
	clock    clock.Clocker
	logger   *slog.Logger
}

// NewSweeper parses spec as a standard cron expression or descriptor
// ("*/5 * * * *", "@every 5m", "@hourly").
func NewSweeper(engine expiredSweeper, spec string, clk clock.Clocker, logger *slog.Logger) (*Sweeper, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse sweep schedule %q: %w", spec, err)
	}
	return &Sweeper{
		engine:   engine,
		schedule: sched,
		spec:     spec,
		clock:    clk,
		logger:   logger.With("component", "sweeper"),
	}, nil
}

// Start sweeps once immediately, then on every scheduled tick until ctx is done.
func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("sweeper started", "schedule", s.spec)
	s.RunOnce(ctx)

	for {
		wait := s.Next(s.clock.Now()).Sub(s.clock.Now())
		timer := time.NewTimer(wait)

		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("sweeper shut down")
			return
		case <-timer.C:
			s.RunOnce(ctx)
		}
	}
}

// Next is the first scheduled run strictly after now.
func (s *Sweeper) Next(now time.Time) time.Time {
	return s.schedule.Next(now)
}

// RunOnce performs a single sweep. Errors are logged, not returned, so one
// failed run does not stop the loop.
func (s *Sweeper) RunOnce(ctx context.Context) int64 {
	n, err := s.engine.SweepExpired(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "sweep expired otps", "error", err)
		return 0
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "swept expired otps", "count", n)
	}
	return n
}
