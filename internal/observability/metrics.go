package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "sivem"

// Metrics holds the Prometheus counters, histograms, and gauges for the
// preprocessing pipeline and the prediction API.
type Metrics struct {
	RecordsRead       prometheus.Counter
	RecordsNormalized prometheus.Counter
	LongRowsWritten   prometheus.Counter
	WideRowsWritten   prometheus.Counter
	MissingDates      prometheus.Counter
	InvalidCaseCounts prometheus.Counter
	ValidationFlags   *prometheus.CounterVec // labels: flag
	RunDuration       prometheus.Histogram
	LastRunSuccess    prometheus.Gauge

	// Prediction metrics.
	Predictions        *prometheus.CounterVec // labels: endpoint={predict,forecast}, outcome={success,unavailable,invalid,error}
	ModelLoadFailures  prometheus.Counter
	PredictionDuration prometheus.Histogram
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RecordsRead,
		m.RecordsNormalized,
		m.LongRowsWritten,
		m.WideRowsWritten,
		m.MissingDates,
		m.InvalidCaseCounts,
		m.ValidationFlags,
		m.RunDuration,
		m.LastRunSuccess,
		m.Predictions,
		m.ModelLoadFailures,
		m.PredictionDuration,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RecordsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_read_total",
			Help:      "Total spreadsheet rows read from the input file.",
		}),
		RecordsNormalized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_normalized_total",
			Help:      "Total canonical records produced by normalization.",
		}),
		LongRowsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "long_rows_written_total",
			Help:      "Total rows emitted to the long (record x category) table.",
		}),
		WideRowsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wide_rows_written_total",
			Help:      "Total rows emitted to the wide (indicator) table.",
		}),
		MissingDates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "missing_dates_total",
			Help:      "Records whose period could not be read as a date.",
		}),
		InvalidCaseCounts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invalid_case_counts_total",
			Help:      "Records whose case count was blank or non-numeric.",
		}),
		ValidationFlags: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_flags_total",
			Help:      "Advisory validation flags raised by preprocessing runs.",
		}, []string{"flag"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete preprocessing run.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		LastRunSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_success",
			Help:      "1 when the last preprocessing run completed, 0 when it failed.",
		}),
		Predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Prediction requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		ModelLoadFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_load_failures_total",
			Help:      "Model artifact loads that failed for reasons other than absence.",
		}),
		PredictionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prediction_duration_seconds",
			Help:      "Duration of a single model prediction including artifact load.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
	}
}
