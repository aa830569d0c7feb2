// Package metrics provides Prometheus metrics collection for atrium.
//
// # Metrics
//
//   - atrium_exports_total{resource,mode,state}: export lifecycle transitions
//   - atrium_export_rows_total{resource,format}: rows written by completed exports
//   - atrium_export_duration_seconds{resource,format}: export duration
//   - atrium_queue_tasks{status}: queue depth, read from the backend at scrape time
//   - atrium_http_requests_total{route,method,code}: handled HTTP requests
//   - atrium_http_request_duration_seconds{route,method}: HTTP latency
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	collector.WatchQueue(backend)
//	processor := export.NewProcessor(disks, export.WithObserver(collector))
//	mux.Handle("/metrics", collector.Handler())
//
// Resource labels are capped by a cardinality limiter; resources beyond
// the limit are reported as "other".
package metrics
