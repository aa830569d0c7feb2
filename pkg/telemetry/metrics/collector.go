package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"mercator-hq/atrium/pkg/config"
	"mercator-hq/atrium/pkg/export"
	"mercator-hq/atrium/pkg/queue"
)

// maxResourceLabels bounds the number of distinct resource label values.
const maxResourceLabels = 1000

// Collector owns the metric registry and records export, queue and HTTP
// metrics. It implements export.Observer.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	exportMetrics *ExportMetrics
	httpMetrics   *HTTPMetrics

	cardinalityLimiter *CardinalityLimiter
}

// NewCollector creates a collector registering into registry. A nil
// registry creates a fresh one with the Go runtime and process
// collectors.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if cfg == nil {
		cfg = &config.Default().Telemetry.Metrics
	}
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultNamespace
	}

	c := &Collector{
		config:             cfg,
		registry:           registry,
		cardinalityLimiter: NewCardinalityLimiter(maxResourceLabels),
	}
	c.exportMetrics = NewExportMetrics(cfg, registry)
	c.httpMetrics = NewHTTPMetrics(cfg, registry)

	return c
}

func (c *Collector) enabled() bool {
	return config.Bool(c.config.Enabled, true)
}

func (c *Collector) resourceLabel(resource string) string {
	if !c.cardinalityLimiter.Allow(resource) {
		return "other"
	}
	return resource
}

// ExportState implements export.Observer.
func (c *Collector) ExportState(resource string, mode export.Mode, state export.State) {
	if !c.enabled() {
		return
	}
	c.exportMetrics.RecordState(c.resourceLabel(resource), string(mode), string(state))
}

// ExportFinished implements export.Observer.
func (c *Collector) ExportFinished(resource string, format export.Format, rows int, duration time.Duration) {
	if !c.enabled() {
		return
	}
	c.exportMetrics.RecordFinished(c.resourceLabel(resource), string(format), rows, duration)
}

// RecordHTTPRequest records a handled request.
func (c *Collector) RecordHTTPRequest(route, method string, code int, duration time.Duration) {
	if !c.enabled() {
		return
	}
	c.httpMetrics.Record(route, method, code, duration)
}

// WatchQueue exposes the task counts of backend.
func (c *Collector) WatchQueue(backend queue.Backend) error {
	return c.registry.Register(NewQueueCollector(c.config.Namespace, backend))
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label values.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether a label value is known or can still be added.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.current[labelSet]; exists {
		return true
	}
	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
