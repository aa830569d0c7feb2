// Package server exposes atrium over HTTP.
//
// The server mounts the export endpoint of every registered resource,
// the field set inspection endpoint, the per-user notification inbox,
// the health probes, the Prometheus scrape endpoint and, optionally, the
// storage disks export files are linked from.
//
// # Routes
//
//	GET /resources                        registered resources
//	GET /resources/{key}/export           run or queue an export
//	GET /resources/{key}/fields/{page}    resolved field set of a page
//	GET /notifications/{user}             notifications of a user
//	GET /health, /ready                   liveness and readiness probes
//	GET /metrics                          Prometheus metrics
//	GET /version                          build information
//
// Probe and metrics paths follow the telemetry configuration.
//
// # Middleware
//
// Every request passes, outermost first, through panic recovery, request
// logging, request ID assignment, tracing and HTTP metrics. The requesting
// user is read from the X-Atrium-User header and attached to the request
// context for logging and export notifications.
//
// Synchronous exports are limited by server.max_concurrent_exports;
// requests over the limit get 429 with Retry-After.
//
// # Basic Usage
//
//	srv := server.New(&cfg.Server, server.Deps{
//	    Config:    cfg,
//	    Registry:  registry,
//	    Storage:   disks,
//	    Processor: processor,
//	    Inbox:     inbox,
//	})
//
//	if err := srv.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Start blocks until ctx is cancelled and then shuts down gracefully
// within the configured shutdown timeout.
package server
