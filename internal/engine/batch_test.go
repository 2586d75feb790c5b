package engine_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livinglab/uci-engine/internal/domain"
	"github.com/livinglab/uci-engine/internal/engine"
	"github.com/livinglab/uci-engine/internal/store/memory"
)

// captureSink records delivered indexes and alerts, optionally failing.
type captureSink struct {
	mu      sync.Mutex
	indexes []domain.ComputedIndex
	alerts  []domain.AnomalyResult
	fail    bool
}

func (c *captureSink) SaveIndex(_ context.Context, idx domain.ComputedIndex) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("sink unavailable")
	}
	c.indexes = append(c.indexes, idx)
	return nil
}

func (c *captureSink) SaveAlert(_ context.Context, res domain.AnomalyResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("sink unavailable")
	}
	c.alerts = append(c.alerts, res)
	return nil
}

func TestScoreBatch_Counts(t *testing.T) {
	store := memory.New()
	seedUnit(t, store, "unit-a", 5)
	seedUnit(t, store, "unit-b", 8)
	// unit-c is known but has no scoreable data.
	store.AddSignals(domain.SignalRecord{
		UnitID: "unit-c", Date: "2020-01-01", SignalType: domain.SignalTotal, Value: 1,
	})

	sink := &captureSink{}
	e := newEngine(store, engine.Options{Concurrency: 4, IndexSinks: []engine.IndexSink{sink}})

	report, err := e.ScoreBatch(context.Background(), testDate, 4)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Units)
	assert.Equal(t, 2, report.Scored)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 0, report.Failed)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, testDate, report.Date)

	require.Len(t, sink.indexes, 2)
	for _, idx := range sink.indexes {
		assert.Equal(t, testDate, idx.Date)
	}
}

func TestScoreBatch_UnitFailureDoesNotAbort(t *testing.T) {
	store := memory.New()
	seedUnit(t, store, "unit-a", 5)
	seedUnit(t, store, "unit-bad", 5)

	e := newEngine(&failingStore{Store: store, failUnit: "unit-bad"}, engine.Options{Concurrency: 2})

	report, err := e.ScoreBatch(context.Background(), testDate, 4)
	require.NoError(t, err, "one broken unit must not fail the run")

	assert.Equal(t, 1, report.Scored)
	assert.Equal(t, 1, report.Failed)
}

func TestScoreBatch_FlagsAnomalies(t *testing.T) {
	store := memory.New()
	end, err := domain.ParseDay(testDate)
	require.NoError(t, err)

	// Quiet history, 10x spike in the recent window.
	for i := 0; i < 12*7; i++ {
		value := 2.0
		if i < 28 {
			value = 20.0
		}
		store.AddSignals(domain.SignalRecord{
			UnitID: "unit-hot", Date: domain.FormatDay(end.AddDate(0, 0, -i)),
			SignalType: domain.SignalTotal, Value: value,
		})
	}
	seedUnit(t, store, "unit-calm", 5)

	sink := &captureSink{}
	e := newEngine(store, engine.Options{
		Concurrency:     2,
		DetectAnomalies: true,
		AlertSinks:      []engine.AlertSink{sink},
	})

	report, err := e.ScoreBatch(context.Background(), testDate, 4)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Flagged)
	require.Len(t, sink.alerts, 1)
	assert.Equal(t, "unit-hot", sink.alerts[0].UnitID)
	assert.True(t, sink.alerts[0].AnomalyFlag)
}

func TestScoreBatch_SinkFailureTolerated(t *testing.T) {
	store := memory.New()
	seedUnit(t, store, "unit-a", 5)

	e := newEngine(store, engine.Options{IndexSinks: []engine.IndexSink{&captureSink{fail: true}}})

	report, err := e.ScoreBatch(context.Background(), testDate, 4)
	require.NoError(t, err, "sink failures are logged, not propagated")
	assert.Equal(t, 1, report.Scored)
}

func TestScoreBatch_CancelledContext(t *testing.T) {
	store := memory.New()
	seedUnit(t, store, "unit-a", 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := newEngine(store, engine.Options{})
	_, err := e.ScoreBatch(ctx, testDate, 4)
	require.Error(t, err)
}

func TestRunner_Readiness(t *testing.T) {
	store := memory.New()
	seedUnit(t, store, "unit-a", 5)

	clock := clockwork.NewFakeClockAt(time.Date(2025, 3, 2, 6, 0, 0, 0, time.UTC))
	e := newEngine(store, engine.Options{})
	runner := engine.NewRunner(e, testLogger(), clock, time.Hour, 4)

	require.Error(t, runner.CheckReadiness(context.Background()), "not ready before any batch")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = runner.Run(ctx)
	}()

	// The first batch runs immediately; readiness follows shortly after.
	require.Eventually(t, func() bool {
		return runner.CheckReadiness(context.Background()) == nil
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done
}
