package engine

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/livinglab/uci-engine/internal/domain"
)

// BatchReport summarizes one all-units scoring run.
type BatchReport struct {
	RunID   string        `json:"run_id"`
	Date    string        `json:"date"`
	Units   int           `json:"units"`
	Scored  int           `json:"scored"`
	Skipped int           `json:"skipped"` // insufficient data
	Failed  int           `json:"failed"`
	Flagged int           `json:"flagged"` // anomaly flags raised
	Elapsed time.Duration `json:"elapsed"`
}

// ScoreBatch computes the comfort index for every known unit on the given
// date, fanning out across a bounded worker pool. Unit computations are
// fully independent: a store failure on one unit is counted and logged but
// does not abort the others. Completed indexes (and, when enabled, flagged
// anomaly results) are handed to the configured sinks only after the
// computation fully returns. Only context cancellation aborts the run.
func (e *Engine) ScoreBatch(ctx context.Context, date string, windowWeeks int) (BatchReport, error) {
	runID := uuid.NewString()
	start := time.Now()

	if e.metrics != nil {
		e.metrics.BatchRunning.Set(1)
		defer e.metrics.BatchRunning.Set(0)
	}

	units, err := e.store.ListUnits(ctx)
	if err != nil {
		return BatchReport{}, fmt.Errorf("list units: %w", err)
	}

	e.logger.Info("scoring batch started",
		"run_id", runID, "date", date, "units", len(units), "concurrency", e.opts.Concurrency)
	if e.metrics != nil {
		e.metrics.LastBatchSize.Set(float64(len(units)))
	}

	var scored, skipped, failed, flagged atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Concurrency)

	for _, unitID := range units {
		unitID := unitID
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}

			idx, err := e.ComputeIndex(gctx, unitID, date, windowWeeks, false)
			switch {
			case err != nil:
				failed.Add(1)
				e.incFailed()
				e.logger.Error("unit scoring failed", "run_id", runID, "unit_id", unitID, "error", err)
				return nil
			case idx == nil:
				skipped.Add(1)
				e.incSkipped()
				return nil
			}

			scored.Add(1)
			e.incScored()
			e.deliverIndex(gctx, runID, *idx)

			if e.opts.DetectAnomalies {
				res, err := e.DetectAnomaly(gctx, unitID, date, windowWeeks, 2*windowWeeks)
				if err != nil {
					e.logger.Error("anomaly detection failed", "run_id", runID, "unit_id", unitID, "error", err)
					return nil
				}
				if res.AnomalyFlag {
					flagged.Add(1)
					e.deliverAlert(gctx, runID, res)
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return BatchReport{}, fmt.Errorf("scoring batch aborted: %w", err)
	}

	report := BatchReport{
		RunID:   runID,
		Date:    date,
		Units:   len(units),
		Scored:  int(scored.Load()),
		Skipped: int(skipped.Load()),
		Failed:  int(failed.Load()),
		Flagged: int(flagged.Load()),
		Elapsed: time.Since(start),
	}

	if e.metrics != nil {
		e.metrics.BatchDuration.Observe(report.Elapsed.Seconds())
	}
	e.logger.Info("scoring batch finished",
		"run_id", report.RunID, "date", report.Date, "units", report.Units,
		"scored", report.Scored, "skipped", report.Skipped, "failed", report.Failed,
		"flagged", report.Flagged, "elapsed", report.Elapsed)

	return report, nil
}

// deliverIndex hands a computed index to every index sink. Sink failures
// are logged, not propagated: persistence and fan-out problems must not
// poison the analytics run.
func (e *Engine) deliverIndex(ctx context.Context, runID string, idx domain.ComputedIndex) {
	for _, sink := range e.opts.IndexSinks {
		if err := sink.SaveIndex(ctx, idx); err != nil {
			e.logger.Warn("index sink failed",
				"run_id", runID, "unit_id", idx.UnitID, "date", idx.Date, "error", err)
		}
	}
}

func (e *Engine) deliverAlert(ctx context.Context, runID string, res domain.AnomalyResult) {
	for _, sink := range e.opts.AlertSinks {
		if err := sink.SaveAlert(ctx, res); err != nil {
			e.logger.Warn("alert sink failed",
				"run_id", runID, "unit_id", res.UnitID, "date", res.Date, "error", err)
		}
	}
}

func (e *Engine) incScored() {
	if e.metrics != nil {
		e.metrics.UnitsScored.Inc()
	}
}

func (e *Engine) incSkipped() {
	if e.metrics != nil {
		e.metrics.UnitsSkipped.Inc()
	}
}

func (e *Engine) incFailed() {
	if e.metrics != nil {
		e.metrics.UnitsFailed.Inc()
	}
}
