package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/livinglab/uci-engine/internal/domain"
)

// Runner drives periodic all-units scoring. It scores yesterday's complete
// calendar day on startup and then on every interval tick; the reference
// date always comes from the injected clock so tests can freeze time.
type Runner struct {
	engine      *Engine
	logger      *slog.Logger
	clock       clockwork.Clock
	interval    time.Duration
	windowWeeks int
	ready       atomic.Bool
}

// NewRunner creates a periodic batch runner.
func NewRunner(e *Engine, logger *slog.Logger, clock clockwork.Clock, interval time.Duration, windowWeeks int) *Runner {
	return &Runner{
		engine:      e,
		logger:      logger,
		clock:       clock,
		interval:    interval,
		windowWeeks: windowWeeks,
	}
}

// CheckReadiness returns nil once at least one scoring batch has completed.
func (r *Runner) CheckReadiness(_ context.Context) error {
	if !r.ready.Load() {
		return errors.New("no scoring batch has completed yet")
	}
	return nil
}

// Run executes scoring batches until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("batch runner started", "interval", r.interval, "window_weeks", r.windowWeeks)

	for {
		r.runOnce(ctx)

		select {
		case <-ctx.Done():
			r.logger.Info("batch runner stopping", "reason", ctx.Err())
			return nil
		case <-r.clock.After(r.interval):
		}
	}
}

func (r *Runner) runOnce(ctx context.Context) {
	// Score the last complete day: today's signals are still arriving.
	date := refDate(r.clock)

	if _, err := r.engine.ScoreBatch(ctx, date, r.windowWeeks); err != nil {
		if ctx.Err() != nil {
			return
		}
		r.logger.Error("scoring batch failed", "date", date, "error", err)
		return
	}
	r.ready.Store(true)
}

func refDate(clock clockwork.Clock) string {
	return domain.FormatDay(clock.Now().AddDate(0, 0, -1))
}
