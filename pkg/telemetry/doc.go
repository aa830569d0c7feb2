// Package telemetry groups the observability packages of atrium.
//
// # Components
//
//   - logging: slog construction, request context attributes and PII redaction
//   - metrics: Prometheus collectors for exports, HTTP requests and the queue
//   - tracing: OpenTelemetry spans and W3C trace context propagation
//   - health: liveness and readiness probes
//
// # Usage
//
//	logger, err := logging.New(logging.Config{Level: "info", Format: "json"})
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing)
//	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
package telemetry
