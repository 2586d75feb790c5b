package anomaly

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livinglab/uci-engine/internal/domain"
)

const (
	testUnit = "unit-7"
	testDate = "2025-03-01"
)

// dailySeries builds one total-complaint record per day over [start, start+days).
func dailySeries(t *testing.T, start string, days int, perDay float64) []domain.SignalRecord {
	t.Helper()
	day, err := domain.ParseDay(start)
	require.NoError(t, err)

	out := make([]domain.SignalRecord, days)
	for i := range out {
		out[i] = domain.SignalRecord{
			UnitID:     testUnit,
			Date:       domain.FormatDay(day.AddDate(0, 0, i)),
			SignalType: domain.SignalTotal,
			Value:      perDay,
		}
	}
	return out
}

func dailyPopulation(t *testing.T, start string, days int, total float64) []domain.PopulationRecord {
	t.Helper()
	day, err := domain.ParseDay(start)
	require.NoError(t, err)

	out := make([]domain.PopulationRecord, days)
	for i := range out {
		out[i] = domain.PopulationRecord{
			UnitID:   testUnit,
			Date:     domain.FormatDay(day.AddDate(0, 0, i)),
			PopTotal: total,
			PopNight: total / 3,
		}
	}
	return out
}

func TestDetect_EmptyHistory(t *testing.T) {
	res := Detect(Inputs{UnitID: testUnit, Date: testDate})

	assert.Equal(t, domain.AnomalyFeatures{}, res.Features)
	assert.False(t, res.AnomalyFlag)
	assert.Nil(t, res.Explanation)
	assert.InDelta(t, 0.5, res.AnomalyScore, 1e-9, "no data must sit at the neutral score")
	assert.Equal(t, 0.0, res.Stats.ZScore)
	assert.Equal(t, 1.0, res.Stats.RollingStd, "std substituted to avoid division by zero")
}

func TestDetect_ComplaintChangeWorkedExample(t *testing.T) {
	// Recent 4-week window totals 150 complaints, the 8-week baseline totals
	// 200: the relative change is (150-200)/200 = -0.25.
	recent := dailySeries(t, "2025-02-02", 28, 150.0/28)
	baseline := dailySeries(t, "2024-12-08", 56, 200.0/56)

	res := Detect(Inputs{
		UnitID: testUnit, Date: testDate,
		RecentSignals: recent, BaselineSignals: baseline,
	})

	assert.InDelta(t, -0.25, res.Features.ComplaintChange4W, 1e-9)
}

func TestDetect_ZeroBaselineGuards(t *testing.T) {
	t.Run("activity appearing from nothing reads as full change", func(t *testing.T) {
		res := Detect(Inputs{
			UnitID: testUnit, Date: testDate,
			RecentSignals: dailySeries(t, "2025-02-02", 28, 3),
		})
		assert.Equal(t, 1.0, res.Features.ComplaintChange4W)
		assert.Equal(t, 1.0, res.Features.ComplaintGrowthRate)
	})

	t.Run("zero-baseline ratios stay zero", func(t *testing.T) {
		res := Detect(Inputs{
			UnitID: testUnit, Date: testDate,
			RecentSignals: []domain.SignalRecord{
				{UnitID: testUnit, Date: testDate, SignalType: domain.SignalNightRatio, Value: 0.6},
			},
			RecentPopulation: dailyPopulation(t, "2025-02-02", 7, 1000),
		})
		assert.Equal(t, 0.0, res.Features.NightRatioChange)
		assert.Equal(t, 0.0, res.Features.PopulationChangeRate)
	})
}

func TestDetect_SpikeIsFlagged(t *testing.T) {
	// Flat, quiet baseline then a 10x complaint spike in the recent window.
	baseline := dailySeries(t, "2024-12-08", 56, 2)
	recent := dailySeries(t, "2025-02-02", 28, 20)

	res := Detect(Inputs{
		UnitID: testUnit, Date: testDate,
		RecentSignals: recent, BaselineSignals: baseline,
		RecentPopulation:   dailyPopulation(t, "2025-02-02", 28, 5000),
		BaselinePopulation: dailyPopulation(t, "2024-12-08", 56, 5000),
	})

	assert.True(t, res.AnomalyFlag)
	assert.Greater(t, res.AnomalyScore, 0.7)
	require.NotNil(t, res.Explanation)
	assert.Contains(t, *res.Explanation, "complaints up")
	assert.Contains(t, *res.Explanation, "rapid deterioration signal")
}

func TestDetect_StableHistoryNotFlagged(t *testing.T) {
	baseline := dailySeries(t, "2024-12-08", 56, 1)
	recent := dailySeries(t, "2025-02-02", 28, 1)

	res := Detect(Inputs{
		UnitID: testUnit, Date: testDate,
		RecentSignals: recent, BaselineSignals: baseline,
	})

	assert.False(t, res.AnomalyFlag)
	assert.Nil(t, res.Explanation)
	// The recent window is half the baseline window, so the raw-total change
	// for a steady series is -0.5 while the daily-average growth is 0.
	assert.InDelta(t, -0.5, res.Features.ComplaintChange4W, 1e-9)
	assert.InDelta(t, 0.0, res.Features.ComplaintGrowthRate, 1e-9)
}

func TestDetect_ScoreAlwaysInUnitInterval(t *testing.T) {
	cases := []Inputs{
		{UnitID: testUnit, Date: testDate},
		{UnitID: testUnit, Date: testDate, RecentSignals: dailySeries(t, "2025-02-02", 28, 1e6)},
		{UnitID: testUnit, Date: testDate, BaselineSignals: dailySeries(t, "2024-12-08", 56, 1e6)},
		{
			UnitID: testUnit, Date: testDate,
			RecentSignals:   dailySeries(t, "2025-02-02", 28, 0),
			BaselineSignals: dailySeries(t, "2024-12-08", 56, 500),
		},
	}

	for i, in := range cases {
		res := Detect(in)
		assert.GreaterOrEqual(t, res.AnomalyScore, 0.0, "case %d", i)
		assert.LessOrEqual(t, res.AnomalyScore, 1.0, "case %d", i)
	}
}

func TestBaselineStats_WeeklyBuckets(t *testing.T) {
	// Two full ISO weeks at distinct levels: Mon 2025-01-06 .. Sun 2025-01-19.
	week1 := dailySeries(t, "2025-01-06", 7, 2)
	week2 := dailySeries(t, "2025-01-13", 7, 6)

	mean, std := baselineStats(append(week1, week2...), nil)

	// Per-bucket composite is 0.7*avgComplaints with no population data:
	// buckets {1.4, 4.2}, mean 2.8, population std 1.4.
	assert.InDelta(t, 2.8, mean, 1e-9)
	assert.InDelta(t, 1.4, std, 1e-9)
}

func TestBaselineStats_SingleBucketDefaultsVariance(t *testing.T) {
	week := dailySeries(t, "2025-01-06", 7, 4)
	_, std := baselineStats(week, nil)
	assert.Equal(t, 1.0, std)
}

func TestBaselineStats_PopulationPresence(t *testing.T) {
	week := dailySeries(t, "2025-01-06", 7, 2)
	pop := dailyPopulation(t, "2025-01-06", 7, 9000)

	withPop, _ := baselineStats(week, pop)
	withoutPop, _ := baselineStats(week, nil)

	// Population presence contributes a flat 0.3 to the bucket composite.
	assert.InDelta(t, 0.3, withPop-withoutPop, 1e-9)
}
