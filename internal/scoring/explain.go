package scoring

import (
	"fmt"
	"strings"

	"github.com/livinglab/uci-engine/internal/domain"
	"github.com/livinglab/uci-engine/internal/stats"
)

// Explainability gate thresholds. Each gate is an independent boolean over
// already-computed numbers; gates are not mutually exclusive and each
// appends at most one driver.
const (
	gateBaselineRatio  = 1.2
	gateExcessGrowth   = 0.05
	gateCategoryRatio  = 0.1
	gateNightRatio     = 0.4
	gateRepeatRatio    = 0.3
	gateAlleyDensity   = 30.0
	gateBackroadRatio  = 0.3
	gatePopChangeRate  = 0.05
)

// maxKeyDrivers caps the caller-facing driver list.
const maxKeyDrivers = 5

// buildExplain derives the natural-language rationale and ordered driver
// list for an index computation. Presentation logic only: every number here
// is re-derived from the same raw inputs the scorer saw.
func buildExplain(in Inputs) domain.Explain {
	windowDays := in.WindowWeeks * 7
	if windowDays <= 0 {
		windowDays = 7
	}

	var summary []string
	var drivers []domain.Driver
	add := func(signal string, value float64, text string) {
		if text != "" {
			summary = append(summary, text)
		}
		drivers = append(drivers, domain.Driver{Signal: signal, Value: stats.Round2(value)})
	}

	byType := partitionByType(in.Signals)
	total := stats.Sum(values(byType[domain.SignalTotal]))
	odor := stats.Sum(values(byType[domain.SignalOdor]))
	trash := stats.Sum(values(byType[domain.SignalTrash]))
	illegal := stats.Sum(values(byType[domain.SignalIllegalDumping]))
	nightAvg := stats.Mean(values(byType[domain.SignalNightRatio]))
	repeatAvg := stats.Mean(values(byType[domain.SignalRepeatRatio]))

	if in.Baseline != nil && total > 0 {
		unitAvg := total / float64(windowDays)
		if in.Baseline.CitywideAvgPerUnit > 0 {
			ratio := unitAvg / in.Baseline.CitywideAvgPerUnit
			if ratio > gateBaselineRatio {
				add("relative_to_baseline", ratio,
					fmt.Sprintf("complaint volume %.1fx the citywide average", ratio))
			}
		}

		excess := halfOverHalfGrowth(byType[domain.SignalTotal]) - in.Baseline.GrowthRate
		if excess > gateExcessGrowth {
			add("excess_growth_rate", excess,
				fmt.Sprintf("complaint growth %.0f%%p above the citywide rate", excess*100))
		}
	}

	if total > 0 {
		if odor/total > gateCategoryRatio {
			add("complaint_odor", odor/total, fmt.Sprintf("%.0f odor complaints", odor))
		}
		if trash/total > gateCategoryRatio {
			add("complaint_trash", trash/total, fmt.Sprintf("%.0f trash complaints", trash))
		}
		if illegal/total > gateCategoryRatio {
			add("complaint_illegal_dumping", illegal/total,
				fmt.Sprintf("%.0f illegal dumping complaints", illegal))
		}
	}

	if nightAvg > gateNightRatio {
		add("night_ratio", nightAvg, fmt.Sprintf("night-time concentration %.0f%%", nightAvg*100))
	}
	if repeatAvg > gateRepeatRatio {
		add("repeat_ratio", repeatAvg, fmt.Sprintf("repeat complaint ratio %.0f%%", repeatAvg*100))
	}
	if total > 0 {
		add("total_complaints", total, "")
	}

	if in.Geo != nil {
		if in.Geo.AlleyDensity > gateAlleyDensity {
			add("alley_density", in.Geo.AlleyDensity, "high alley density")
		}
		if in.Geo.BackroadRatio > gateBackroadRatio {
			add("backroad_ratio", in.Geo.BackroadRatio, "")
		}
	}

	if len(in.Population) > 0 {
		changes := make([]float64, len(in.Population))
		for i, p := range in.Population {
			changes[i] = p.PopChangeRate
		}
		if avg := stats.Mean(changes); avg > gatePopChangeRate {
			add("pop_change_rate", avg, fmt.Sprintf("floating population up %.0f%%", avg*100))
		}
	}

	drivers = dedupeDrivers(drivers)
	if len(drivers) > maxKeyDrivers {
		drivers = drivers[:maxKeyDrivers]
	}

	why := fmt.Sprintf("analysis of signals over the last %d weeks", in.WindowWeeks)
	if len(summary) > 0 {
		why = strings.Join(summary, ", ")
	}

	explain := domain.Explain{WhySummary: why, KeyDrivers: drivers}
	if in.Baseline != nil {
		explain.BaselineReference = &domain.BaselineReference{
			Period:        in.Baseline.Period,
			CitywideTotal: in.Baseline.CitywideTotal,
			GrowthRate:    in.Baseline.GrowthRate,
		}
	}
	return explain
}

// dedupeDrivers drops repeated signals, keeping first occurrence order.
func dedupeDrivers(drivers []domain.Driver) []domain.Driver {
	seen := make(map[string]bool, len(drivers))
	out := drivers[:0]
	for _, d := range drivers {
		if seen[d.Signal] {
			continue
		}
		seen[d.Signal] = true
		out = append(out, d)
	}
	return out
}
