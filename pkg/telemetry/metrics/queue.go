package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/atrium/pkg/queue"
)

// statsTimeout bounds the backend query made during a scrape.
const statsTimeout = 2 * time.Second

// QueueCollector reports queue depth by task status. Counts are read
// from the backend on every scrape.
type QueueCollector struct {
	backend queue.Backend
	tasks   *prometheus.Desc
	logger  *slog.Logger
}

// NewQueueCollector creates a collector for backend.
func NewQueueCollector(namespace string, backend queue.Backend) *QueueCollector {
	return &QueueCollector{
		backend: backend,
		tasks: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "queue", "tasks"),
			"Number of queued tasks by status",
			[]string{"status"}, nil,
		),
		logger: slog.Default().With("component", "metrics.queue"),
	}
}

// Describe implements prometheus.Collector.
func (qc *QueueCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- qc.tasks
}

// Collect implements prometheus.Collector.
func (qc *QueueCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), statsTimeout)
	defer cancel()

	st, err := qc.backend.Stats(ctx)
	if err != nil {
		qc.logger.Warn("failed to read queue stats", "error", err)
		ch <- prometheus.NewInvalidMetric(qc.tasks, err)
		return
	}

	for status, n := range map[string]int{
		queue.StatusPending:  st.Pending,
		queue.StatusReserved: st.Reserved,
		queue.StatusDone:     st.Done,
		queue.StatusFailed:   st.Failed,
	} {
		ch <- prometheus.MustNewConstMetric(qc.tasks, prometheus.GaugeValue, float64(n), status)
	}
}
