package runner

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"CurrencyLens/internal/model"
)

// Metrics holds the Prometheus collectors updated by the runner.
type Metrics struct {
	SeriesProcessed *prometheus.CounterVec
	BatchDuration   *prometheus.HistogramVec
	BatchesTotal    *prometheus.CounterVec
}

// NewMetrics creates the runner metrics and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SeriesProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "currencylens_series_processed_total",
				Help: "Series processed by metric and outcome (ok or skip reason)",
			},
			[]string{"metric", "outcome"},
		),
		BatchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "currencylens_batch_duration_seconds",
				Help:    "Duration of one batch run in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"metric"},
		),
		BatchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "currencylens_batches_total",
				Help: "Batch runs by metric and final status",
			},
			[]string{"metric", "status"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.SeriesProcessed, m.BatchDuration, m.BatchesTotal)
	}
	return m
}

func (m *Metrics) recordSeries(metric, outcome string) {
	if m == nil {
		return
	}
	m.SeriesProcessed.WithLabelValues(metric, outcome).Inc()
}

func (m *Metrics) recordBatch(metric string, status model.Status, took time.Duration) {
	if m == nil {
		return
	}
	m.BatchDuration.WithLabelValues(metric).Observe(took.Seconds())
	m.BatchesTotal.WithLabelValues(metric, string(status)).Inc()
}
