package trend

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/livinglab/uci-engine/internal/domain"
)

// series builds a dated time series starting at start with the given values.
func series(t *testing.T, start string, values ...float64) []domain.TimePoint {
	t.Helper()
	day, err := domain.ParseDay(start)
	require.NoError(t, err)

	out := make([]domain.TimePoint, len(values))
	for i, v := range values {
		out[i] = domain.TimePoint{Date: domain.FormatDay(day.AddDate(0, 0, i)), Value: v}
	}
	return out
}

func TestForecast_InsufficientData(t *testing.T) {
	t.Run("empty series", func(t *testing.T) {
		res := Forecast(nil, 7)
		assert.Equal(t, domain.TrendUnknown, res.Direction)
		assert.Empty(t, res.Forecast)
		assert.Equal(t, 0.0, res.Confidence)
	})

	t.Run("single point", func(t *testing.T) {
		res := Forecast(series(t, "2025-01-01", 42), 7)
		assert.Equal(t, domain.TrendUnknown, res.Direction)
		assert.Empty(t, res.Forecast)
		assert.Equal(t, 0.0, res.Confidence)
		assert.Equal(t, 42.0, res.Stats.Mean)
	})
}

func TestForecast_IncreasingSeries(t *testing.T) {
	// Strictly increasing [10,12,14,16,18] with a 2-day horizon.
	res := Forecast(series(t, "2025-01-01", 10, 12, 14, 16, 18), 2)

	assert.Equal(t, domain.TrendIncreasing, res.Direction)
	assert.InDelta(t, 2.0, res.Slope, 1e-9)
	assert.InDelta(t, 10.0, res.Intercept, 1e-9)
	assert.InDelta(t, 1.0, res.Confidence, 1e-9, "perfect linear fit")

	require.Len(t, res.Forecast, 2)
	assert.InDelta(t, 20.0, res.Forecast[0].Value, 1e-9)
	assert.InDelta(t, 22.0, res.Forecast[1].Value, 1e-9)
	assert.Equal(t, "2025-01-06", res.Forecast[0].Date)
	assert.Equal(t, "2025-01-07", res.Forecast[1].Date)
	assert.Less(t, res.Forecast[1].Confidence, res.Forecast[0].Confidence)
	assert.InDelta(t, 0.75, res.Forecast[0].Confidence, 1e-9)
	assert.InDelta(t, 0.5, res.Forecast[1].Confidence, 1e-9)
}

func TestForecast_DecreasingClampedAtZero(t *testing.T) {
	res := Forecast(series(t, "2025-01-01", 6, 4, 2, 0), 5)

	assert.Equal(t, domain.TrendDecreasing, res.Direction)
	for _, p := range res.Forecast {
		assert.GreaterOrEqual(t, p.Value, 0.0, "forecast values are clamped at zero")
		assert.GreaterOrEqual(t, p.Confidence, 0.0)
		assert.LessOrEqual(t, p.Confidence, 1.0)
	}
}

func TestForecast_ConstantSeriesIsStable(t *testing.T) {
	res := Forecast(series(t, "2025-01-01", 5, 5, 5, 5), 3)

	assert.Equal(t, domain.TrendStable, res.Direction)
	assert.Equal(t, 0.0, res.Slope)
	assert.Equal(t, 0.0, res.Confidence, "SS_tot=0 reports zero confidence, not NaN")
	assert.Equal(t, 0.0, res.ChangeRate)
}

func TestForecast_SlopeWithinThresholdIsStable(t *testing.T) {
	res := Forecast(series(t, "2025-01-01", 10, 10.05, 10.1, 10.15), 3)
	assert.Equal(t, domain.TrendStable, res.Direction)
}

func TestForecast_ChangeRate(t *testing.T) {
	res := Forecast(series(t, "2025-01-01", 10, 13, 15), 3)
	assert.InDelta(t, 50.0, res.ChangeRate, 1e-9)

	res = Forecast(series(t, "2025-01-01", 0, 5), 3)
	assert.Equal(t, 0.0, res.ChangeRate, "zero first value yields zero change rate")
}

func TestMovingAverage(t *testing.T) {
	in := series(t, "2025-01-01", 1, 2, 3, 4, 5, 6, 7, 8)

	out := movingAverage(in, 7)
	require.Len(t, out, len(in))

	// First window-1 points pass through unmodified.
	for i := 0; i < 6; i++ {
		assert.Equal(t, in[i].Value, out[i].Value, "index %d", i)
	}
	assert.InDelta(t, 4.0, out[6].Value, 1e-9) // mean(1..7)
	assert.InDelta(t, 5.0, out[7].Value, 1e-9) // mean(2..8)

	t.Run("series shorter than window passes through", func(t *testing.T) {
		short := series(t, "2025-01-01", 9, 9, 9)
		assert.Equal(t, short, movingAverage(short, 7))
	})
}

func TestSeasonality(t *testing.T) {
	// 2025-01-05 is a Sunday. Two full weeks with Sundays spiking.
	in := series(t, "2025-01-05",
		10, 1, 1, 1, 1, 1, 1,
		10, 1, 1, 1, 1, 1, 1,
	)
	res := Forecast(in, 7)

	assert.Equal(t, 0, res.Seasonality.PeakDay, "Sunday (0) carries the spike")
	assert.InDelta(t, 10.0, res.Seasonality.DayOfWeekAvg[0], 1e-9)
	assert.InDelta(t, 1.0, res.Seasonality.DayOfWeekAvg[3], 1e-9)
	assert.Equal(t, "2025-01", res.Seasonality.PeakMonth)
}

func TestSeasonality_PeakMonthAndTieBreak(t *testing.T) {
	jan := series(t, "2025-01-30", 3, 3) // spills into February
	require.Equal(t, "2025-01", jan[0].Date[:7])
	require.Equal(t, "2025-01", jan[1].Date[:7])

	feb := series(t, "2025-02-10", 3, 3)
	res := Forecast(append(jan, feb...), 7)

	// Equal monthly means: the earliest month wins the tie.
	assert.Equal(t, "2025-01", res.Seasonality.PeakMonth)
	assert.InDelta(t, 3.0, res.Seasonality.MonthlyAvg["2025-02"], 1e-9)
}

func TestSeasonality_WeekdayTieBreak(t *testing.T) {
	// One flat ISO week: every weekday mean ties, so the earliest key
	// (Sunday, 0) is the peak.
	start := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
	require.Equal(t, time.Sunday, start.Weekday())

	res := Forecast(series(t, "2025-01-05", 2, 2, 2, 2, 2, 2, 2), 7)
	assert.Equal(t, 0, res.Seasonality.PeakDay)
}
