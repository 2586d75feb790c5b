// Package synthetic generates labeled gap-fill signal records for units
// with missing observation days. Generated records carry Generated=true
// and a reduced confidence so downstream consumers can always tell them
// apart from observed data; the scoring and detection code never calls
// this package itself.
package synthetic

import (
	"hash/fnv"
	"math/rand"

	"github.com/livinglab/uci-engine/internal/domain"
)

// Confidence assigned to every generated record.
const generatedConfidence = 0.5

// Jitter half-width as a fraction of the baseline average.
const jitterFraction = 0.3

// FillGaps returns generated total-complaint records for each date in days
// that has no observed total signal. Values are drawn around the baseline
// citywide per-unit average with deterministic jitter: the same unit,
// date, and baseline always produce the same value.
func FillGaps(unitID string, days []string, observed []domain.SignalRecord, baseline *domain.BaselineMetric) []domain.SignalRecord {
	if baseline == nil || baseline.CitywideAvgPerUnit <= 0 {
		return nil
	}

	have := make(map[string]bool, len(observed))
	for _, r := range observed {
		if r.SignalType == domain.SignalTotal && !r.Generated {
			have[r.Date] = true
		}
	}

	var generated []domain.SignalRecord
	for _, day := range days {
		if have[day] {
			continue
		}
		generated = append(generated, domain.SignalRecord{
			UnitID:     unitID,
			Date:       day,
			SignalType: domain.SignalTotal,
			Value:      jittered(baseline.CitywideAvgPerUnit, unitID, day),
			Generated:  true,
			Confidence: generatedConfidence,
		})
	}
	return generated
}

// Partition splits records into observed and generated slices, preserving
// order within each.
func Partition(records []domain.SignalRecord) (observed, generated []domain.SignalRecord) {
	for _, r := range records {
		if r.Generated {
			generated = append(generated, r)
		} else {
			observed = append(observed, r)
		}
	}
	return observed, generated
}

// jittered draws a value in [avg*(1-jitter), avg*(1+jitter)] seeded from
// the unit and date, clamped at zero.
func jittered(avg float64, unitID, day string) float64 {
	h := fnv.New64a()
	h.Write([]byte(unitID))
	h.Write([]byte{0})
	h.Write([]byte(day))

	rng := rand.New(rand.NewSource(int64(h.Sum64())))
	value := avg * (1 + jitterFraction*(2*rng.Float64()-1))
	if value < 0 {
		return 0
	}
	return value
}
