package domain

// TrendDirection classifies the slope of a fitted trend.
type TrendDirection string

const (
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
	TrendStable     TrendDirection = "stable"
	TrendUnknown    TrendDirection = "unknown" // fewer than 2 data points
)

// TimePoint is one element of a numeric time series.
type TimePoint struct {
	Date  string  `json:"date"` // YYYY-MM-DD
	Value float64 `json:"value"`
}

// ForecastPoint is one projected future value with a confidence that decays
// linearly with forecast distance.
type ForecastPoint struct {
	Date       string  `json:"date"`
	Value      float64 `json:"value"` // clamped >= 0
	Confidence float64 `json:"confidence"`
}

// Seasonality holds per-bucket averages of a series.
//
// DayOfWeekAvg is keyed 0-6 with Sunday = 0. MonthlyAvg is keyed by
// YYYY-MM. Peak buckets are chosen by highest mean; on a tie the earliest
// key wins (weekdays ascending 0..6, months in ascending string order).
type Seasonality struct {
	DayOfWeekAvg map[int]float64    `json:"day_of_week_avg"`
	MonthlyAvg   map[string]float64 `json:"monthly_avg"`
	PeakDay      int                `json:"peak_day"`
	PeakMonth    string             `json:"peak_month"`
}

// SeriesStats are descriptive statistics of the analyzed series.
type SeriesStats struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

// TrendResult is the full output of trend analysis over one series.
//
// With fewer than 2 input points Direction is TrendUnknown, Forecast is
// empty, and Confidence is 0; no trend is fabricated from a single sample.
type TrendResult struct {
	Direction  TrendDirection  `json:"direction"`
	Slope      float64         `json:"slope"`
	Intercept  float64         `json:"intercept"`
	Confidence float64         `json:"confidence"` // clamped R-squared, [0,1]
	ChangeRate float64         `json:"change_rate"` // percent change first->last
	Forecast   []ForecastPoint `json:"forecast"`
	MovingAvg7  []TimePoint    `json:"moving_avg_7"`
	MovingAvg14 []TimePoint    `json:"moving_avg_14"`
	Seasonality Seasonality    `json:"seasonality"`
	Stats       SeriesStats    `json:"statistics"`
}
