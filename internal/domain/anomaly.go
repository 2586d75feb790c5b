package domain

// AnomalyFeatures are the four change signals a detection is based on.
// Each compares the recent window to the strictly preceding baseline window.
type AnomalyFeatures struct {
	ComplaintChange4W    float64 `json:"complaint_change_4w"`
	ComplaintGrowthRate  float64 `json:"complaint_growth_rate"`
	NightRatioChange     float64 `json:"night_ratio_change"`
	PopulationChangeRate float64 `json:"population_change_rate"`
}

// AnomalyStats are the rolling statistics behind a z-score, kept on the
// result so flagged units can be audited.
type AnomalyStats struct {
	ZScore      float64 `json:"z_score"`
	RollingMean float64 `json:"rolling_mean"`
	RollingStd  float64 `json:"rolling_std"`
}

// AnomalyResult is the outcome of statistical anomaly detection for one
// unit and reference date. AnomalyScore is always in [0,1]; Explanation is
// nil unless the unit was flagged.
type AnomalyResult struct {
	UnitID       string          `json:"unit_id"`
	Date         string          `json:"date"`
	AnomalyScore float64         `json:"anomaly_score"`
	AnomalyFlag  bool            `json:"anomaly_flag"`
	Features     AnomalyFeatures `json:"features"`
	Stats        AnomalyStats    `json:"stats"`
	Explanation  *string         `json:"explanation"`
}
