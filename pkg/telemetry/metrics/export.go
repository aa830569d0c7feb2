package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/atrium/pkg/config"
)

// ExportMetrics tracks export lifecycle metrics.
type ExportMetrics struct {
	exportsTotal *prometheus.CounterVec
	rowsTotal    *prometheus.CounterVec
	duration     *prometheus.HistogramVec
}

// NewExportMetrics creates and registers export metrics.
func NewExportMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ExportMetrics {
	em := &ExportMetrics{
		exportsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "exports_total",
				Help:      "Export lifecycle transitions by resource, delivery mode and state",
			},
			[]string{"resource", "mode", "state"},
		),

		rowsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "export_rows_total",
				Help:      "Rows written by completed exports",
			},
			[]string{"resource", "format"},
		),

		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "export_duration_seconds",
				Help:      "Duration of completed exports in seconds",
				Buckets:   cfg.ExportDurationBuckets,
			},
			[]string{"resource", "format"},
		),
	}

	registry.MustRegister(em.exportsTotal, em.rowsTotal, em.duration)

	return em
}

// RecordState counts a lifecycle transition.
func (em *ExportMetrics) RecordState(resource, mode, state string) {
	em.exportsTotal.WithLabelValues(resource, mode, state).Inc()
}

// RecordFinished records the size and duration of a completed export.
func (em *ExportMetrics) RecordFinished(resource, format string, rows int, duration time.Duration) {
	em.rowsTotal.WithLabelValues(resource, format).Add(float64(rows))
	em.duration.WithLabelValues(resource, format).Observe(duration.Seconds())
}
