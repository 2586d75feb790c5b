package domain

// Driver is one explainability entry: the signal that pushed the score and
// its observed magnitude (a ratio, an average, or a raw count depending on
// the signal).
type Driver struct {
	Signal string  `json:"signal"`
	Value  float64 `json:"value"`
}

// BaselineReference echoes the citywide baseline an index was scored
// against, so consumers can render the comparison without a second lookup.
type BaselineReference struct {
	Period        string  `json:"period"`
	CitywideTotal float64 `json:"citywide_total"`
	GrowthRate    float64 `json:"growth_rate"`
}

// Explain is the machine-generated rationale attached to a ComputedIndex.
type Explain struct {
	WhySummary        string             `json:"why_summary"`
	KeyDrivers        []Driver           `json:"key_drivers"`
	BaselineReference *BaselineReference `json:"baseline_reference,omitempty"`
}

// IndexWeights are the per-group weights actually used in a composite
// score, after renormalization over the groups that had data.
type IndexWeights struct {
	Human      float64 `json:"human"`
	Geo        float64 `json:"geo"`
	Population float64 `json:"population"`
	Extra      float64 `json:"extra"`
}

// IndexComponents breaks a composite score into its per-group raw scores
// (nil = the group had no data) and normalized feature maps.
type IndexComponents struct {
	HumanScore      *float64 `json:"human_score"`
	GeoScore        *float64 `json:"geo_score"`
	PopulationScore *float64 `json:"population_score"`
	ExtraScore      *float64 `json:"extra_score"`

	HumanNormalized      map[string]float64 `json:"human_normalized"`
	GeoNormalized        map[string]float64 `json:"geo_normalized"`
	PopulationNormalized map[string]float64 `json:"population_normalized"`
	ExtraNormalized      map[string]float64 `json:"extra_normalized"`

	Weights IndexWeights `json:"weights"`
}

// ComputedIndex is the comfort index for one unit and reference date.
// It is created fresh on every computation and never mutated; persistence
// and replacement of a prior computation for the same (unit_id, date) key
// are the caller's concern.
type ComputedIndex struct {
	UnitID     string          `json:"unit_id"`
	Date       string          `json:"date"`
	Score      float64         `json:"uci_score"` // [0,100], rounded to 2 decimals
	Grade      Grade           `json:"uci_grade"`
	Components IndexComponents `json:"components"`
	Explain    Explain         `json:"explain"`
}
