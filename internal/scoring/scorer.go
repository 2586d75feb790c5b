// Package scoring computes the comfort index: a bounded [0,100] composite of
// complaint, geographic, and population signal groups with dynamic weight
// renormalization and a machine-generated rationale.
package scoring

import (
	"github.com/livinglab/uci-engine/internal/domain"
	"github.com/livinglab/uci-engine/internal/stats"
)

// Weights are the base per-group weights before renormalization. They are
// passed into every computation explicitly; there is no mutable process-wide
// weight configuration.
type Weights struct {
	Human      float64
	Geo        float64
	Population float64
	Extra      float64
}

// DefaultWeights returns the operational group weights.
func DefaultWeights() Weights {
	return Weights{Human: 0.5, Geo: 0.3, Population: 0.2, Extra: 0.0}
}

// Human-group sub-feature weights. They sum to 1 and are never renormalized:
// when no baseline metric exists the two baseline-relative sub-features
// contribute 0 and the group score simply degrades.
const (
	wTotalComplaints    = 0.15
	wRelativeToBaseline = 0.20
	wExcessGrowth       = 0.15
	wOdorRatio          = 0.15
	wTrashRatio         = 0.12
	wIllegalDumpRatio   = 0.12
	wNightRatio         = 0.11
)

// Normalization caps for the human and population groups.
const (
	dailyComplaintCap   = 10.0    // daily average complaints mapping to 1.0
	baselineRatioCap    = 3.0     // unit-vs-citywide ratio cap
	excessGrowthCap     = 0.3     // 30 points of excess growth saturates to 1.0
	growthRateCap       = 0.5     // raw unit growth normalization cap
	dailyPopulationCap  = 10000.0 // average daily population mapping to 1.0
	popChangeRateCap    = 0.3
)

// Geo-group sub-feature weights.
const (
	wAlleyDensity  = 0.30
	wBackroadRatio = 0.25
	wVentilation   = 0.20
	wAccessibility = 0.15
	wLanduseMix    = 0.10
)

// Population-group sub-feature weights.
const (
	wPopAvgTotal   = 0.30
	wPopNightRatio = 0.40
	wPopChangeRate = 0.30
)

// Inputs carries everything a single index computation needs, already
// fetched from the signal store. ComputeIndex is a pure function of Inputs;
// identical inputs produce identical output.
type Inputs struct {
	UnitID      string
	Date        string // reference date, YYYY-MM-DD
	WindowWeeks int
	EnableExtra bool

	Signals    []domain.SignalRecord // window [date-7w, date], ascending by date
	Geo        *domain.GeoAttributes // nil when the unit has no survey record
	Population []domain.PopulationRecord
	Baseline   *domain.BaselineMetric // overall category for date's month; nil when absent
}

// ComputeIndex derives the comfort index for one unit and reference date.
//
// Group scores that cannot be computed (no data) are nil and their weight is
// redistributed proportionally over the remaining groups. When every group
// is nil the whole computation returns nil: insufficient data, not an error.
func ComputeIndex(in Inputs, w Weights) *domain.ComputedIndex {
	windowDays := in.WindowWeeks * 7
	if windowDays <= 0 {
		windowDays = 7
	}

	humanScore, humanNorm := computeHumanScore(in.Signals, windowDays, in.Baseline)
	geoScore, geoNorm := computeGeoScore(in.Geo)
	popScore, popNorm := computePopulationScore(in.Population)

	// The extra (pigeon) group is a reserved extension point: it never has
	// data yet, and unless the caller opts in its weight is forced to zero
	// so it cannot dilute the other groups.
	var extraScore *float64
	if !in.EnableExtra {
		w.Extra = 0
	}

	scores := []*float64{humanScore, geoScore, popScore, extraScore}
	base := []float64{w.Human, w.Geo, w.Population, w.Extra}

	present := 0.0
	any := false
	for i, s := range scores {
		if s != nil {
			present += base[i]
			any = true
		}
	}
	if !any {
		return nil
	}

	used := make([]float64, len(base))
	total := 0.0
	for i, s := range scores {
		if s == nil {
			continue
		}
		if present > 0 {
			used[i] = base[i] / present
		} else {
			used[i] = base[i]
		}
		total += *s * used[i]
	}

	score := stats.Round2(stats.Clamp(total*100, 0, 100))

	return &domain.ComputedIndex{
		UnitID: in.UnitID,
		Date:   in.Date,
		Score:  score,
		Grade:  domain.GradeForScore(score),
		Components: domain.IndexComponents{
			HumanScore:           humanScore,
			GeoScore:             geoScore,
			PopulationScore:      popScore,
			ExtraScore:           extraScore,
			HumanNormalized:      humanNorm,
			GeoNormalized:        geoNorm,
			PopulationNormalized: popNorm,
			ExtraNormalized:      map[string]float64{},
			Weights: domain.IndexWeights{
				Human:      used[0],
				Geo:        used[1],
				Population: used[2],
				Extra:      used[3],
			},
		},
		Explain: buildExplain(in),
	}
}

// computeHumanScore scores the complaint signal group over the window.
// Returns (nil, empty map) when the window holds no signal records at all.
func computeHumanScore(signals []domain.SignalRecord, windowDays int, baseline *domain.BaselineMetric) (*float64, map[string]float64) {
	if len(signals) == 0 {
		return nil, map[string]float64{}
	}

	byType := partitionByType(signals)
	total := stats.Sum(values(byType[domain.SignalTotal]))
	odor := stats.Sum(values(byType[domain.SignalOdor]))
	trash := stats.Sum(values(byType[domain.SignalTrash]))
	illegal := stats.Sum(values(byType[domain.SignalIllegalDumping]))
	nightAvg := stats.Mean(values(byType[domain.SignalNightRatio]))
	repeatAvg := stats.Mean(values(byType[domain.SignalRepeatRatio]))

	unitGrowth := halfOverHalfGrowth(byType[domain.SignalTotal])

	relativeToBaseline := 0.0
	excessGrowth := 0.0
	if baseline != nil {
		unitAvg := total / float64(windowDays)
		if baseline.CitywideAvgPerUnit > 0 {
			relativeToBaseline = min(baselineRatioCap, unitAvg/baseline.CitywideAvgPerUnit)
		}
		excessGrowth = min(1.0, max(0, unitGrowth-baseline.GrowthRate)/excessGrowthCap)
	}

	ratio := func(part float64) float64 {
		if total > 0 {
			return part / total
		}
		return 0
	}

	normalized := map[string]float64{
		"total_complaints":      min(1.0, (total/float64(windowDays))/dailyComplaintCap),
		"odor_ratio":            ratio(odor),
		"trash_ratio":           ratio(trash),
		"illegal_dump_ratio":    ratio(illegal),
		"night_ratio":           nightAvg,
		"repeat_ratio":          repeatAvg,
		"growth_rate":           min(1.0, max(0, unitGrowth)/growthRateCap),
		"relative_to_baseline":  relativeToBaseline,
		"excess_growth_rate":    excessGrowth,
	}

	// relative_to_baseline tops out at 3.0, so the weighted sum can exceed 1;
	// the group score itself is clamped to keep the [0,1] per-group invariant.
	score := stats.Clamp(
		normalized["total_complaints"]*wTotalComplaints+
			normalized["relative_to_baseline"]*wRelativeToBaseline+
			normalized["excess_growth_rate"]*wExcessGrowth+
			normalized["odor_ratio"]*wOdorRatio+
			normalized["trash_ratio"]*wTrashRatio+
			normalized["illegal_dump_ratio"]*wIllegalDumpRatio+
			normalized["night_ratio"]*wNightRatio,
		0, 1)

	return &score, normalized
}

// computeGeoScore scores the static vulnerability group. Date-independent.
func computeGeoScore(geo *domain.GeoAttributes) (*float64, map[string]float64) {
	if geo == nil {
		return nil, map[string]float64{}
	}

	normalized := map[string]float64{
		"alley_density":       min(1.0, geo.AlleyDensity/100.0),
		"backroad_ratio":      geo.BackroadRatio,
		"ventilation_proxy":   stats.Clamp(1-geo.VentilationProxy/10.0, 0, 1),
		"accessibility_proxy": stats.Clamp(1-geo.AccessibilityProxy/10.0, 0, 1),
		"landuse_mix":         geo.LanduseMix,
	}

	score := normalized["alley_density"]*wAlleyDensity +
		normalized["backroad_ratio"]*wBackroadRatio +
		normalized["ventilation_proxy"]*wVentilation +
		normalized["accessibility_proxy"]*wAccessibility +
		normalized["landuse_mix"]*wLanduseMix

	return &score, normalized
}

// computePopulationScore scores the floating-population group.
func computePopulationScore(pop []domain.PopulationRecord) (*float64, map[string]float64) {
	if len(pop) == 0 {
		return nil, map[string]float64{}
	}

	n := float64(len(pop))
	avgTotal := 0.0
	avgNight := 0.0
	avgChange := 0.0
	for _, p := range pop {
		avgTotal += p.PopTotal
		avgNight += p.PopNight
		avgChange += p.PopChangeRate
	}
	avgTotal /= n
	avgNight /= n
	avgChange /= n

	nightRatio := 0.0
	if avgTotal > 0 {
		nightRatio = avgNight / avgTotal
	}

	normalized := map[string]float64{
		"avg_total":   min(1.0, avgTotal/dailyPopulationCap),
		"night_ratio": nightRatio,
		"change_rate": min(1.0, max(0, avgChange)/popChangeRateCap),
	}

	score := normalized["avg_total"]*wPopAvgTotal +
		normalized["night_ratio"]*wPopNightRatio +
		normalized["change_rate"]*wPopChangeRate

	return &score, normalized
}

// halfOverHalfGrowth compares the second half of the total-complaint series
// against the first: (second-first)/first. Fewer than 2 records, or a zero
// first half, yields 0.
func halfOverHalfGrowth(totals []domain.SignalRecord) float64 {
	if len(totals) < 2 {
		return 0
	}
	mid := len(totals) / 2
	first := stats.Sum(values(totals[:mid]))
	second := stats.Sum(values(totals[mid:]))
	if first <= 0 {
		return 0
	}
	return (second - first) / first
}

func partitionByType(signals []domain.SignalRecord) map[domain.SignalType][]domain.SignalRecord {
	out := make(map[domain.SignalType][]domain.SignalRecord)
	for _, s := range signals {
		out[s.SignalType] = append(out[s.SignalType], s)
	}
	return out
}

func values(records []domain.SignalRecord) []float64 {
	out := make([]float64, len(records))
	for i, r := range records {
		out[i] = r.Value
	}
	return out
}
