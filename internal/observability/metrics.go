package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// analytics engine.
type Metrics struct {
	UnitsScored      prometheus.Counter
	UnitsSkipped     prometheus.Counter // insufficient data, not failures
	UnitsFailed      prometheus.Counter
	AnomaliesFlagged prometheus.Counter

	ComputeDuration prometheus.Histogram
	BatchDuration   prometheus.Histogram
	BatchRunning    prometheus.Gauge
	LastBatchSize   prometheus.Gauge

	StoreQueryDuration *prometheus.HistogramVec // label: query={signals,geo,population,baseline,units}
}

// NewMetrics creates and registers all engine metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	return newMetrics(prometheus.DefaultRegisterer)
}

// NewMetricsForTesting registers against a throwaway registry so tests can
// construct multiple instances without duplicate-registration panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics(prometheus.NewRegistry())
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		UnitsScored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "uci_engine",
			Name:      "units_scored_total",
			Help:      "Total unit/date index computations that produced a score.",
		}),
		UnitsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "uci_engine",
			Name:      "units_skipped_total",
			Help:      "Total unit/date computations skipped for insufficient data.",
		}),
		UnitsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "uci_engine",
			Name:      "units_failed_total",
			Help:      "Total unit/date computations that failed on a store error.",
		}),
		AnomaliesFlagged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "uci_engine",
			Name:      "anomalies_flagged_total",
			Help:      "Total anomaly detections that raised the flag.",
		}),
		ComputeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "uci_engine",
			Name:      "compute_duration_seconds",
			Help:      "Duration of a single unit fetch+compute cycle.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
		}),
		BatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "uci_engine",
			Name:      "batch_duration_seconds",
			Help:      "Duration of a complete all-units scoring batch.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		}),
		BatchRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "uci_engine",
			Name:      "batch_running",
			Help:      "1 while a scoring batch is in progress, 0 otherwise.",
		}),
		LastBatchSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "uci_engine",
			Name:      "last_batch_size",
			Help:      "Number of units in the most recent scoring batch.",
		}),
		StoreQueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "uci_engine",
			Name:      "store_query_duration_seconds",
			Help:      "Signal store query duration by query kind.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"query"}),
	}

	reg.MustRegister(
		m.UnitsScored,
		m.UnitsSkipped,
		m.UnitsFailed,
		m.AnomaliesFlagged,
		m.ComputeDuration,
		m.BatchDuration,
		m.BatchRunning,
		m.LastBatchSize,
		m.StoreQueryDuration,
	)
	return m
}
