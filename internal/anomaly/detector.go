// Package anomaly flags statistically unusual signal behavior per unit and
// day. The method is unsupervised: a composite of four change features is
// standardized against the unit's own historical baseline window, so each
// unit learns its own notion of "normal" without labels or trained models.
package anomaly

import (
	"fmt"
	"math"
	"strings"

	"github.com/livinglab/uci-engine/internal/domain"
	"github.com/livinglab/uci-engine/internal/stats"
)

// Composite feature weights.
const (
	wComplaintChange = 0.4
	wGrowthRate      = 0.3
	wNightChange     = 0.2
	wPopChange       = 0.1
)

// Weekly-bucket composite weights for the baseline statistics.
const (
	wBucketComplaints = 0.7
	wBucketPopulation = 0.3
)

// Flagging and explanation thresholds.
const (
	scoreFlagThreshold    = 0.7
	zFlagThreshold        = 2.5
	complaintChangeNotice = 0.3
	growthRateNotice      = 0.2
	nightChangeNotice     = 0.15
)

// Inputs carries the two fetched windows for one detection. The baseline
// window strictly precedes and never overlaps the recent window. Signal
// slices include every signal type; the detector filters what it needs.
type Inputs struct {
	UnitID string
	Date   string // reference date, YYYY-MM-DD

	RecentSignals      []domain.SignalRecord
	BaselineSignals    []domain.SignalRecord
	RecentPopulation   []domain.PopulationRecord
	BaselinePopulation []domain.PopulationRecord
}

// Detect computes the anomaly score and flag for one unit and date.
//
// It never fails: with no signal history at all the features are zero, the
// z-score sits at its neutral value, and the flag stays false.
func Detect(in Inputs) domain.AnomalyResult {
	features := computeFeatures(in)

	composite := features.ComplaintChange4W*wComplaintChange +
		features.ComplaintGrowthRate*wGrowthRate +
		math.Abs(features.NightRatioChange)*wNightChange +
		math.Abs(features.PopulationChangeRate)*wPopChange

	mean, std := baselineStats(in.BaselineSignals, in.BaselinePopulation)

	z := (composite - mean) / std

	// z=0 maps to the neutral 0.5; +-2.5 standard deviations saturate the
	// score toward 1.0 and 0.0 respectively.
	score := stats.Clamp(0.5+z/5.0, 0, 1)
	flag := score > scoreFlagThreshold || math.Abs(z) > zFlagThreshold

	var explanation *string
	if flag {
		e := explain(features, z)
		explanation = &e
	}

	return domain.AnomalyResult{
		UnitID:       in.UnitID,
		Date:         in.Date,
		AnomalyScore: score,
		AnomalyFlag:  flag,
		Features:     features,
		Stats: domain.AnomalyStats{
			ZScore:      z,
			RollingMean: mean,
			RollingStd:  std,
		},
		Explanation: explanation,
	}
}

// computeFeatures derives the four recent-vs-baseline change features.
//
// Relative changes against a zero baseline are defined, not exceptional:
// the complaint features report 1.0 when activity appeared from nothing and
// 0.0 when both windows are empty; the ratio features report 0.
func computeFeatures(in Inputs) domain.AnomalyFeatures {
	recentTotal := sumByType(in.RecentSignals, domain.SignalTotal)
	baselineTotal := sumByType(in.BaselineSignals, domain.SignalTotal)

	change := relativeOrAppeared(recentTotal, baselineTotal)

	recentCount := countByType(in.RecentSignals, domain.SignalTotal)
	baselineCount := countByType(in.BaselineSignals, domain.SignalTotal)
	recentAvg := safeDiv(recentTotal, float64(recentCount))
	baselineAvg := safeDiv(baselineTotal, float64(baselineCount))
	growth := relativeOrAppeared(recentAvg, baselineAvg)

	recentNight := meanByType(in.RecentSignals, domain.SignalNightRatio)
	baselineNight := meanByType(in.BaselineSignals, domain.SignalNightRatio)
	nightChange := 0.0
	if baselineNight > 0 {
		nightChange = (recentNight - baselineNight) / baselineNight
	}

	recentPop := sumPop(in.RecentPopulation)
	baselinePop := sumPop(in.BaselinePopulation)
	popChange := 0.0
	if baselinePop > 0 {
		popChange = (recentPop - baselinePop) / baselinePop
	}

	return domain.AnomalyFeatures{
		ComplaintChange4W:    change,
		ComplaintGrowthRate:  growth,
		NightRatioChange:     nightChange,
		PopulationChangeRate: popChange,
	}
}

// baselineStats aggregates the baseline window into ISO-week buckets,
// computes a simplified per-bucket composite, and returns its mean and
// standard deviation. The std is substituted with 1.0 when it would be zero
// (including the empty and single-bucket cases) so the z-score division is
// always defined.
func baselineStats(signals []domain.SignalRecord, pop []domain.PopulationRecord) (mean, std float64) {
	type bucket struct {
		complaints []float64
		popTotal   float64
	}
	buckets := make(map[string]*bucket)

	get := func(day string) *bucket {
		t, err := domain.ParseDay(day)
		if err != nil {
			return nil
		}
		key := domain.WeekKey(t)
		b, ok := buckets[key]
		if !ok {
			b = &bucket{}
			buckets[key] = b
		}
		return b
	}

	for _, s := range signals {
		if s.SignalType != domain.SignalTotal {
			continue
		}
		if b := get(s.Date); b != nil {
			b.complaints = append(b.complaints, s.Value)
		}
	}
	for _, p := range pop {
		if b := get(p.Date); b != nil {
			b.popTotal += p.PopTotal
		}
	}

	scores := make([]float64, 0, len(buckets))
	for _, b := range buckets {
		popPresent := 0.0
		if b.popTotal > 0 {
			popPresent = 1.0
		}
		scores = append(scores, stats.Mean(b.complaints)*wBucketComplaints+popPresent*wBucketPopulation)
	}

	mean = stats.Mean(scores)
	std = stats.StdDev(scores)
	if std == 0 {
		std = 1.0
	}
	return mean, std
}

// explain lists which individual feature thresholds were exceeded.
func explain(f domain.AnomalyFeatures, z float64) string {
	var parts []string
	if f.ComplaintChange4W > complaintChangeNotice {
		parts = append(parts, fmt.Sprintf("complaints up %.0f%% over the last 4 weeks", f.ComplaintChange4W*100))
	}
	if f.ComplaintGrowthRate > growthRateNotice {
		parts = append(parts, fmt.Sprintf("complaint growth rate %.0f%% above history", f.ComplaintGrowthRate*100))
	}
	if math.Abs(f.NightRatioChange) > nightChangeNotice {
		direction := "up"
		if f.NightRatioChange < 0 {
			direction = "down"
		}
		parts = append(parts, "night complaint ratio "+direction)
	}
	if math.Abs(z) > zFlagThreshold {
		parts = append(parts, fmt.Sprintf("statistical outlier (z-score %.2f)", z))
	}

	if len(parts) == 0 {
		return "statistical anomaly pattern detected"
	}
	return strings.Join(parts, ", ") + " - rapid deterioration signal"
}

func relativeOrAppeared(recent, baseline float64) float64 {
	if baseline > 0 {
		return (recent - baseline) / baseline
	}
	if recent > 0 {
		return 1.0
	}
	return 0.0
}

func safeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

func sumByType(signals []domain.SignalRecord, t domain.SignalType) float64 {
	sum := 0.0
	for _, s := range signals {
		if s.SignalType == t {
			sum += s.Value
		}
	}
	return sum
}

func countByType(signals []domain.SignalRecord, t domain.SignalType) int {
	n := 0
	for _, s := range signals {
		if s.SignalType == t {
			n++
		}
	}
	return n
}

func meanByType(signals []domain.SignalRecord, t domain.SignalType) float64 {
	sum, n := 0.0, 0
	for _, s := range signals {
		if s.SignalType == t {
			sum += s.Value
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func sumPop(pop []domain.PopulationRecord) float64 {
	sum := 0.0
	for _, p := range pop {
		sum += p.PopTotal
	}
	return sum
}
