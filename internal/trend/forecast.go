// Package trend fits and projects numeric time series: ordinary
// least-squares trend with decaying-confidence forecasts, trailing moving
// averages, and day-of-week/monthly seasonality decomposition. It operates
// on any per-day series, composite scores and raw complaint counts alike.
package trend

import (
	"math"
	"sort"
	"time"

	"github.com/livinglab/uci-engine/internal/domain"
	"github.com/livinglab/uci-engine/internal/stats"
)

// Slope thresholds separating increasing/stable/decreasing.
const slopeThreshold = 0.1

// Moving-average windows reported on every result.
const (
	shortMAWindow = 7
	longMAWindow  = 14
)

// Forecast analyzes an ordered {date, value} series and projects
// horizonDays future points.
//
// Fewer than 2 points is insufficient data: the result has direction
// unknown, an empty forecast, and confidence 0 rather than a fabricated
// trend. The series is assumed ascending by date; dates must be YYYY-MM-DD.
func Forecast(series []domain.TimePoint, horizonDays int) domain.TrendResult {
	if horizonDays < 1 {
		horizonDays = 1
	}

	result := domain.TrendResult{
		Direction:   domain.TrendUnknown,
		Forecast:    []domain.ForecastPoint{},
		MovingAvg7:  movingAverage(series, shortMAWindow),
		MovingAvg14: movingAverage(series, longMAWindow),
		Seasonality: seasonality(series),
		Stats:       seriesStats(series),
	}
	if len(series) < 2 {
		return result
	}

	slope, intercept := fitLine(series)

	result.Slope = slope
	result.Intercept = intercept
	result.Direction = direction(slope)
	result.Confidence = rSquared(series, slope, intercept)
	result.ChangeRate = changeRate(series)
	result.Forecast = project(series, slope, intercept, horizonDays)
	return result
}

// fitLine runs ordinary least squares of value against index position
// 0..n-1. A zero denominator cannot occur for n>=2 with positional indexing
// but is guarded anyway, yielding slope 0.
func fitLine(series []domain.TimePoint) (slope, intercept float64) {
	n := float64(len(series))
	xMean := (n - 1) / 2
	yMean := 0.0
	for _, p := range series {
		yMean += p.Value
	}
	yMean /= n

	num, den := 0.0, 0.0
	for i, p := range series {
		dx := float64(i) - xMean
		num += dx * (p.Value - yMean)
		den += dx * dx
	}
	if den == 0 {
		return 0, yMean
	}
	slope = num / den
	return slope, yMean - slope*xMean
}

func direction(slope float64) domain.TrendDirection {
	switch {
	case slope > slopeThreshold:
		return domain.TrendIncreasing
	case slope < -slopeThreshold:
		return domain.TrendDecreasing
	default:
		return domain.TrendStable
	}
}

// rSquared is the fit confidence: 1 - SS_res/SS_tot clamped into [0,1].
// A constant series has SS_tot 0 and reports confidence 0 instead of NaN.
func rSquared(series []domain.TimePoint, slope, intercept float64) float64 {
	yMean := 0.0
	for _, p := range series {
		yMean += p.Value
	}
	yMean /= float64(len(series))

	ssRes, ssTot := 0.0, 0.0
	for i, p := range series {
		predicted := slope*float64(i) + intercept
		ssRes += (p.Value - predicted) * (p.Value - predicted)
		ssTot += (p.Value - yMean) * (p.Value - yMean)
	}
	if ssTot == 0 {
		return 0
	}
	return stats.Clamp(1-ssRes/ssTot, 0, 1)
}

// project extends the fitted line horizonDays past the series end. Values
// are clamped at 0 (the engine's series are counts and bounded scores) and
// per-point confidence decays linearly from near 1 to 0.5 at the horizon.
func project(series []domain.TimePoint, slope, intercept float64, horizonDays int) []domain.ForecastPoint {
	n := len(series)
	lastDate, err := domain.ParseDay(series[n-1].Date)
	if err != nil {
		// Undated series still gets value projections; dates stay empty.
		lastDate = time.Time{}
	}

	out := make([]domain.ForecastPoint, 0, horizonDays)
	for i := 1; i <= horizonDays; i++ {
		value := slope*float64(n+i-1) + intercept
		date := ""
		if !lastDate.IsZero() {
			date = domain.FormatDay(lastDate.AddDate(0, 0, i))
		}
		out = append(out, domain.ForecastPoint{
			Date:       date,
			Value:      math.Max(0, value),
			Confidence: math.Max(0, 1-(float64(i)/float64(horizonDays))*0.5),
		})
	}
	return out
}

// movingAverage computes a simple trailing average. The first window-1
// points pass through unmodified, keeping the output aligned with the input.
func movingAverage(series []domain.TimePoint, window int) []domain.TimePoint {
	if len(series) < window {
		out := make([]domain.TimePoint, len(series))
		copy(out, series)
		return out
	}

	out := make([]domain.TimePoint, len(series))
	sum := 0.0
	for i, p := range series {
		sum += p.Value
		if i < window-1 {
			out[i] = p
			continue
		}
		if i >= window {
			sum -= series[i-window].Value
		}
		out[i] = domain.TimePoint{Date: p.Date, Value: sum / float64(window)}
	}
	return out
}

// seasonality groups the series by day of week (Sunday=0) and by YYYY-MM
// month and averages each bucket. Peak buckets take the highest mean; ties
// resolve to the earliest key in ascending scan order.
func seasonality(series []domain.TimePoint) domain.Seasonality {
	s := domain.Seasonality{
		DayOfWeekAvg: make(map[int]float64),
		MonthlyAvg:   make(map[string]float64),
	}

	dayValues := make(map[int][]float64)
	monthValues := make(map[string][]float64)
	for _, p := range series {
		t, err := domain.ParseDay(p.Date)
		if err != nil {
			continue
		}
		day := int(t.Weekday())
		dayValues[day] = append(dayValues[day], p.Value)
		month := domain.MonthOf(t)
		monthValues[month] = append(monthValues[month], p.Value)
	}

	best := math.Inf(-1)
	for day := 0; day < 7; day++ {
		values, ok := dayValues[day]
		if !ok {
			continue
		}
		avg := stats.Mean(values)
		s.DayOfWeekAvg[day] = avg
		if avg > best {
			best = avg
			s.PeakDay = day
		}
	}

	months := make([]string, 0, len(monthValues))
	for m := range monthValues {
		months = append(months, m)
	}
	sort.Strings(months)

	best = math.Inf(-1)
	for _, m := range months {
		avg := stats.Mean(monthValues[m])
		s.MonthlyAvg[m] = avg
		if avg > best {
			best = avg
			s.PeakMonth = m
		}
	}
	return s
}

func seriesStats(series []domain.TimePoint) domain.SeriesStats {
	if len(series) == 0 {
		return domain.SeriesStats{}
	}
	values := make([]float64, len(series))
	lo, hi := series[0].Value, series[0].Value
	for i, p := range series {
		values[i] = p.Value
		lo = math.Min(lo, p.Value)
		hi = math.Max(hi, p.Value)
	}
	return domain.SeriesStats{
		Min:  lo,
		Max:  hi,
		Mean: stats.Mean(values),
		Std:  stats.StdDev(values),
	}
}

// changeRate is the percent change from the first to the last observation,
// 0 when the first value is 0.
func changeRate(series []domain.TimePoint) float64 {
	first := series[0].Value
	last := series[len(series)-1].Value
	if first == 0 {
		return 0
	}
	return (last - first) / first * 100
}
