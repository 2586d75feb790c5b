// Package engine orchestrates the analytics core: it fetches signal history
// from the store and drives the scoring, anomaly, and trend packages. Every
// operation is a pure function of fetched data; the engine keeps no state
// across calls and performs no writes of its own.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/livinglab/uci-engine/internal/anomaly"
	"github.com/livinglab/uci-engine/internal/domain"
	"github.com/livinglab/uci-engine/internal/observability"
	"github.com/livinglab/uci-engine/internal/scoring"
	"github.com/livinglab/uci-engine/internal/trend"
)

// Parameter bounds. The HTTP adapter rejects out-of-range parameters before
// they reach the engine; these clamps are a second line so a misbehaving
// caller still gets a well-defined computation.
const (
	minWindowWeeks   = 1
	maxWindowWeeks   = 12
	minBaselineWeeks = 2
	maxBaselineWeeks = 26
	minHorizonDays   = 1
	maxHorizonDays   = 30
)

// DefaultLookbackDays is the complaint-trend analysis window.
const DefaultLookbackDays = 30

// Store is the read-only signal store contract the engine depends on.
// Range queries are inclusive on both ends and return records ascending by
// date. Absence of a geo or baseline record is (nil, nil); an error always
// means the store itself failed and is never conflated with "no data".
type Store interface {
	FetchSignals(ctx context.Context, unitID, from, to string) ([]domain.SignalRecord, error)
	FetchGeo(ctx context.Context, unitID string) (*domain.GeoAttributes, error)
	FetchPopulation(ctx context.Context, unitID, from, to string) ([]domain.PopulationRecord, error)
	FetchBaseline(ctx context.Context, period, category string) (*domain.BaselineMetric, error)
	ListUnits(ctx context.Context) ([]string, error)
}

// IndexSink receives every computed index from a batch run. Implemented by
// the Postgres store (persistence) and the Kafka publisher (fan-out).
type IndexSink interface {
	SaveIndex(ctx context.Context, idx domain.ComputedIndex) error
}

// AlertSink receives flagged anomaly results from a batch run.
type AlertSink interface {
	SaveAlert(ctx context.Context, res domain.AnomalyResult) error
}

// Options configures an Engine.
type Options struct {
	Weights         scoring.Weights
	Concurrency     int  // parallel units per batch; 1 if <= 0
	DetectAnomalies bool // run anomaly detection during batch scoring
	IndexSinks      []IndexSink
	AlertSinks      []AlertSink
}

// Engine exposes the scoring, anomaly, and trend operations over a Store.
type Engine struct {
	store   Store
	logger  *slog.Logger
	metrics *observability.Metrics
	opts    Options
}

// New creates an Engine. metrics may be nil for library-style use.
func New(store Store, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Engine {
	if opts.Weights == (scoring.Weights{}) {
		opts.Weights = scoring.DefaultWeights()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &Engine{store: store, logger: logger, metrics: metrics, opts: opts}
}

// ComputeIndex fetches the unit's signal window and derives its comfort
// index. A nil result with nil error means insufficient data: no signal
// group had any records. Errors are store failures only.
func (e *Engine) ComputeIndex(ctx context.Context, unitID, date string, windowWeeks int, enableExtra bool) (*domain.ComputedIndex, error) {
	windowWeeks = clampInt(windowWeeks, minWindowWeeks, maxWindowWeeks)

	day, err := domain.ParseDay(date)
	if err != nil {
		return nil, err
	}
	from := domain.FormatDay(day.AddDate(0, 0, -windowWeeks*7))

	start := time.Now()
	defer e.observeCompute(start)

	signals, err := e.fetchSignals(ctx, unitID, from, date)
	if err != nil {
		return nil, err
	}
	geo, err := e.fetchGeo(ctx, unitID)
	if err != nil {
		return nil, err
	}
	population, err := e.fetchPopulation(ctx, unitID, from, date)
	if err != nil {
		return nil, err
	}
	baseline, err := e.fetchBaseline(ctx, domain.MonthOf(day), domain.BaselineCategoryOverall)
	if err != nil {
		return nil, err
	}

	idx := scoring.ComputeIndex(scoring.Inputs{
		UnitID:      unitID,
		Date:        date,
		WindowWeeks: windowWeeks,
		EnableExtra: enableExtra,
		Signals:     signals,
		Geo:         geo,
		Population:  population,
		Baseline:    baseline,
	}, e.opts.Weights)

	return idx, nil
}

// DetectAnomaly fetches the recent and baseline windows and runs z-score
// detection. The baseline window spans [date - baselineWeeks*7, recent
// start) and never overlaps the recent window. Missing data yields a
// neutral, unflagged result, never an error.
func (e *Engine) DetectAnomaly(ctx context.Context, unitID, date string, recentWeeks, baselineWeeks int) (domain.AnomalyResult, error) {
	recentWeeks = clampInt(recentWeeks, minWindowWeeks, maxWindowWeeks)
	baselineWeeks = clampInt(baselineWeeks, minBaselineWeeks, maxBaselineWeeks)
	if baselineWeeks <= recentWeeks {
		baselineWeeks = recentWeeks + minBaselineWeeks
	}

	day, err := domain.ParseDay(date)
	if err != nil {
		return domain.AnomalyResult{}, err
	}
	recentStart := day.AddDate(0, 0, -recentWeeks*7)
	baselineStart := day.AddDate(0, 0, -baselineWeeks*7)
	baselineEnd := recentStart.AddDate(0, 0, -1) // inclusive range API

	recentFrom := domain.FormatDay(recentStart)
	recentSignals, err := e.fetchSignals(ctx, unitID, recentFrom, date)
	if err != nil {
		return domain.AnomalyResult{}, err
	}
	baselineSignals, err := e.fetchSignals(ctx, unitID, domain.FormatDay(baselineStart), domain.FormatDay(baselineEnd))
	if err != nil {
		return domain.AnomalyResult{}, err
	}
	recentPop, err := e.fetchPopulation(ctx, unitID, recentFrom, date)
	if err != nil {
		return domain.AnomalyResult{}, err
	}
	baselinePop, err := e.fetchPopulation(ctx, unitID, domain.FormatDay(baselineStart), domain.FormatDay(baselineEnd))
	if err != nil {
		return domain.AnomalyResult{}, err
	}

	res := anomaly.Detect(anomaly.Inputs{
		UnitID:             unitID,
		Date:               date,
		RecentSignals:      recentSignals,
		BaselineSignals:    baselineSignals,
		RecentPopulation:   recentPop,
		BaselinePopulation: baselinePop,
	})
	if res.AnomalyFlag && e.metrics != nil {
		e.metrics.AnomaliesFlagged.Inc()
	}
	return res, nil
}

// ForecastTrend projects any numeric series. Pure; no store access.
func (e *Engine) ForecastTrend(series []domain.TimePoint, horizonDays int) domain.TrendResult {
	return trend.Forecast(series, clampInt(horizonDays, minHorizonDays, maxHorizonDays))
}

// ComplaintTrend fetches the unit's total-complaint series over the
// lookback window ending at date and forecasts it.
func (e *Engine) ComplaintTrend(ctx context.Context, unitID, date string, lookbackDays, horizonDays int) (domain.TrendResult, error) {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}

	day, err := domain.ParseDay(date)
	if err != nil {
		return domain.TrendResult{}, err
	}
	from := domain.FormatDay(day.AddDate(0, 0, -lookbackDays))

	signals, err := e.fetchSignals(ctx, unitID, from, date)
	if err != nil {
		return domain.TrendResult{}, err
	}

	series := make([]domain.TimePoint, 0, len(signals))
	for _, s := range signals {
		if s.SignalType == domain.SignalTotal {
			series = append(series, domain.TimePoint{Date: s.Date, Value: s.Value})
		}
	}
	return e.ForecastTrend(series, horizonDays), nil
}

func (e *Engine) fetchSignals(ctx context.Context, unitID, from, to string) ([]domain.SignalRecord, error) {
	defer e.observeStore("signals", time.Now())
	signals, err := e.store.FetchSignals(ctx, unitID, from, to)
	if err != nil {
		return nil, fmt.Errorf("fetch signals for %s: %w", unitID, err)
	}
	return signals, nil
}

func (e *Engine) fetchGeo(ctx context.Context, unitID string) (*domain.GeoAttributes, error) {
	defer e.observeStore("geo", time.Now())
	geo, err := e.store.FetchGeo(ctx, unitID)
	if err != nil {
		return nil, fmt.Errorf("fetch geo for %s: %w", unitID, err)
	}
	return geo, nil
}

func (e *Engine) fetchPopulation(ctx context.Context, unitID, from, to string) ([]domain.PopulationRecord, error) {
	defer e.observeStore("population", time.Now())
	pop, err := e.store.FetchPopulation(ctx, unitID, from, to)
	if err != nil {
		return nil, fmt.Errorf("fetch population for %s: %w", unitID, err)
	}
	return pop, nil
}

func (e *Engine) fetchBaseline(ctx context.Context, period, category string) (*domain.BaselineMetric, error) {
	defer e.observeStore("baseline", time.Now())
	baseline, err := e.store.FetchBaseline(ctx, period, category)
	if err != nil {
		return nil, fmt.Errorf("fetch baseline %s/%s: %w", period, category, err)
	}
	return baseline, nil
}

func (e *Engine) observeStore(query string, start time.Time) {
	if e.metrics != nil {
		e.metrics.StoreQueryDuration.WithLabelValues(query).Observe(time.Since(start).Seconds())
	}
}

func (e *Engine) observeCompute(start time.Time) {
	if e.metrics != nil {
		e.metrics.ComputeDuration.Observe(time.Since(start).Seconds())
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
