package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livinglab/uci-engine/internal/domain"
)

func driverSignals(drivers []domain.Driver) []string {
	out := make([]string, len(drivers))
	for i, d := range drivers {
		out[i] = d.Signal
	}
	return out
}

func TestBuildExplain_FallbackSummary(t *testing.T) {
	ex := buildExplain(Inputs{UnitID: testUnit, Date: testDate, WindowWeeks: 4})

	assert.Equal(t, "analysis of signals over the last 4 weeks", ex.WhySummary)
	assert.Empty(t, ex.KeyDrivers)
	assert.Nil(t, ex.BaselineReference)
}

func TestBuildExplain_NightConcentrationGate(t *testing.T) {
	signals := append(dailyTotals(t, 7, 2),
		signalOn(testDate, domain.SignalNightRatio, 0.5),
	)
	ex := buildExplain(Inputs{UnitID: testUnit, Date: testDate, WindowWeeks: 1, Signals: signals})

	assert.Contains(t, driverSignals(ex.KeyDrivers), "night_ratio")
	assert.Contains(t, ex.WhySummary, "night-time concentration 50%")

	// Below the 0.4 gate nothing fires.
	signals[len(signals)-1].Value = 0.35
	ex = buildExplain(Inputs{UnitID: testUnit, Date: testDate, WindowWeeks: 1, Signals: signals})
	assert.NotContains(t, driverSignals(ex.KeyDrivers), "night_ratio")
}

func TestBuildExplain_CategoryGates(t *testing.T) {
	signals := append(dailyTotals(t, 7, 10), // total 70
		signalOn(testDate, domain.SignalOdor, 20),  // ratio 0.29
		signalOn(testDate, domain.SignalTrash, 5),  // ratio 0.07, below gate
		signalOn(testDate, domain.SignalIllegalDumping, 8), // ratio 0.11
	)
	ex := buildExplain(Inputs{UnitID: testUnit, Date: testDate, WindowWeeks: 1, Signals: signals})

	got := driverSignals(ex.KeyDrivers)
	assert.Contains(t, got, "complaint_odor")
	assert.Contains(t, got, "complaint_illegal_dumping")
	assert.NotContains(t, got, "complaint_trash")
	assert.Contains(t, got, "total_complaints")
	assert.Contains(t, ex.WhySummary, "20 odor complaints")
}

func TestBuildExplain_BaselineGates(t *testing.T) {
	baseline := &domain.BaselineMetric{
		Period:             "2025-03",
		Category:           domain.BaselineCategoryOverall,
		CitywideTotal:      1000,
		CitywideAvgPerUnit: 2.0,
		GrowthRate:         0.0,
	}
	in := Inputs{
		UnitID: testUnit, Date: testDate, WindowWeeks: 4,
		Signals:  dailyTotals(t, 28, 5), // daily avg 5 => 2.5x citywide
		Baseline: baseline,
	}
	ex := buildExplain(in)

	require.NotEmpty(t, ex.KeyDrivers)
	assert.Equal(t, "relative_to_baseline", ex.KeyDrivers[0].Signal)
	assert.InDelta(t, 2.5, ex.KeyDrivers[0].Value, 1e-9)
	assert.Contains(t, ex.WhySummary, "2.5x the citywide average")

	require.NotNil(t, ex.BaselineReference)
	assert.Equal(t, "2025-03", ex.BaselineReference.Period)
	assert.Equal(t, 1000.0, ex.BaselineReference.CitywideTotal)
}

func TestBuildExplain_DriverCapAndOrder(t *testing.T) {
	// Fire every gate at once: the driver list is capped at 5, preserving
	// gate order.
	signals := append(dailyTotals(t, 28, 8),
		signalOn(testDate, domain.SignalOdor, 50),
		signalOn(testDate, domain.SignalTrash, 50),
		signalOn(testDate, domain.SignalIllegalDumping, 50),
		signalOn(testDate, domain.SignalNightRatio, 0.8),
		signalOn(testDate, domain.SignalRepeatRatio, 0.5),
	)
	for i := 14; i < 28; i++ {
		signals[i].Value = 16 // strong half-over-half growth
	}
	in := Inputs{
		UnitID: testUnit, Date: testDate, WindowWeeks: 4,
		Signals: signals,
		Geo:     &domain.GeoAttributes{UnitID: testUnit, AlleyDensity: 80, BackroadRatio: 0.6},
		Population: testPopulation(28, 4000, 2000, 0.3),
		Baseline: &domain.BaselineMetric{
			Period: "2025-03", Category: domain.BaselineCategoryOverall,
			CitywideAvgPerUnit: 1.0, GrowthRate: 0.0,
		},
	}
	ex := buildExplain(in)

	require.Len(t, ex.KeyDrivers, 5)
	assert.Equal(t, []string{
		"relative_to_baseline",
		"excess_growth_rate",
		"complaint_odor",
		"complaint_trash",
		"complaint_illegal_dumping",
	}, driverSignals(ex.KeyDrivers))
}

func TestBuildExplain_DriversDeduplicated(t *testing.T) {
	signals := append(dailyTotals(t, 7, 5),
		signalOn(testDate, domain.SignalNightRatio, 0.9),
	)
	ex := buildExplain(Inputs{UnitID: testUnit, Date: testDate, WindowWeeks: 1, Signals: signals})

	seen := map[string]int{}
	for _, d := range ex.KeyDrivers {
		seen[d.Signal]++
	}
	for signal, count := range seen {
		assert.Equal(t, 1, count, "driver %s appears more than once", signal)
	}
}
