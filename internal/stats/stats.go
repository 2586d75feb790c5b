// Package stats provides the small numeric primitives shared by the scoring,
// anomaly, and trend services. All functions are pure, never mutate their
// input, and return well-defined values for degenerate input (empty slices,
// constant series) instead of erroring.
package stats

import (
	"math"
	"sort"
)

// Winsorize clips each value into [quantile(p), quantile(1-p)] computed from
// the sorted input, reducing outlier influence before normalization. Length
// and order are preserved. p is a fraction in [0, 0.5); Winsorize(v, 0) is
// the identity. Empty or single-element input is returned as a copy,
// unchanged.
func Winsorize(values []float64, p float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	if len(values) < 2 || p <= 0 {
		return out
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	lower := sorted[clampIndex(int(math.Floor(float64(len(values))*p)), len(sorted))]
	upper := sorted[clampIndex(int(math.Ceil(float64(len(values))*(1-p))), len(sorted))]

	for i, v := range out {
		out[i] = math.Max(lower, math.Min(upper, v))
	}
	return out
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// MinMaxNormalize maps values into [0,1] using the provided bounds, or
// bounds derived from the data when min/max are nil. When the bounds
// coincide every output is 0.5: the data carries no ordering information and
// 0.5 avoids a division by zero without biasing either extreme. Outputs are
// clamped so explicit bounds narrower than the data still yield [0,1].
func MinMaxNormalize(values []float64, minBound, maxBound *float64) []float64 {
	if len(values) == 0 {
		return nil
	}

	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if minBound != nil {
		lo = *minBound
	}
	if maxBound != nil {
		hi = *maxBound
	}

	out := make([]float64, len(values))
	if hi == lo {
		for i := range out {
			out[i] = 0.5
		}
		return out
	}
	for i, v := range values {
		out[i] = Clamp((v-lo)/(hi-lo), 0, 1)
	}
	return out
}

// NormalizeSignal winsorizes at percentile p (skipped when p <= 0) and then
// min-max normalizes with data-derived bounds.
func NormalizeSignal(values []float64, p float64) []float64 {
	if len(values) == 0 {
		return nil
	}
	return MinMaxNormalize(Winsorize(values, p), nil, nil)
}

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev returns the population standard deviation (N in the denominator).
// A slice with fewer than 2 elements has std dev 0 by convention; callers
// that divide by the result must substitute their own floor.
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := Mean(values)
	sum := 0.0
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}

// Sum returns the total of values.
func Sum(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum
}

// Clamp bounds v into [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Round2 rounds to 2 decimal places, the precision scores and driver values
// are reported at.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
