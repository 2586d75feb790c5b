package domain

// SignalType identifies what a SignalRecord's value measures.
type SignalType string

const (
	SignalTotal          SignalType = "total"
	SignalOdor           SignalType = "odor"
	SignalTrash          SignalType = "trash"
	SignalIllegalDumping SignalType = "illegal_dumping"
	SignalNightRatio     SignalType = "night_ratio"
	SignalRepeatRatio    SignalType = "repeat_ratio"
	SignalOther          SignalType = "other"
)

// Valid reports whether t is one of the known signal types.
func (t SignalType) Valid() bool {
	switch t {
	case SignalTotal, SignalOdor, SignalTrash, SignalIllegalDumping,
		SignalNightRatio, SignalRepeatRatio, SignalOther:
		return true
	}
	return false
}

// SignalRecord is one observed value for a unit, day, and signal type.
// Records are immutable once ingested; the engine only reads them.
type SignalRecord struct {
	UnitID     string     `json:"unit_id"`
	Date       string     `json:"date"` // YYYY-MM-DD
	SignalType SignalType `json:"signal_type"`
	Value      float64    `json:"value"`

	// Synthetic gap-fill marker. Records generated by the augmentation
	// tooling carry Generated=true and a confidence in (0,1]; real
	// observations leave both zero-valued.
	Generated  bool    `json:"generated,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// GeoAttributes holds the static geographic vulnerability survey for a unit.
// There is no date dimension; one record per unit.
type GeoAttributes struct {
	UnitID             string  `json:"unit_id"`
	AlleyDensity       float64 `json:"alley_density"`
	BackroadRatio      float64 `json:"backroad_ratio"` // [0,1]
	VentilationProxy   float64 `json:"ventilation_proxy"`
	AccessibilityProxy float64 `json:"accessibility_proxy"`
	LanduseMix         float64 `json:"landuse_mix"`          // [0,1]
	HabitualDumpingRisk float64 `json:"habitual_dumping_risk"` // [0,1]
}

// PopulationRecord is one day of floating-population statistics for a unit.
type PopulationRecord struct {
	UnitID        string  `json:"unit_id"`
	Date          string  `json:"date"` // YYYY-MM-DD
	PopTotal      float64 `json:"pop_total"`
	PopNight      float64 `json:"pop_night"`
	PopChangeRate float64 `json:"pop_change_rate"`
}

// BaselineCategoryOverall is the citywide all-categories baseline used for
// relative scoring.
const BaselineCategoryOverall = "overall"

// BaselineMetric is the citywide reference aggregate for one month and
// complaint category, used only as a read-only comparison reference.
type BaselineMetric struct {
	Period             string  `json:"period"` // YYYY-MM
	Category           string  `json:"category"`
	CitywideTotal      float64 `json:"citywide_total"`
	CitywideAvgPerUnit float64 `json:"citywide_avg_per_unit"`
	GrowthRate         float64 `json:"growth_rate"`
}
