// Package health provides liveness and readiness probes.
//
// Liveness only reports that the process is running. Readiness runs every
// registered component check concurrently, each bounded by a timeout, and
// answers 503 when any of them fails:
//
//	checker := health.New(5 * time.Second)
//	checker.RegisterCheck("datasource", health.DatabaseCheck(db))
//	checker.RegisterCheck("queue", health.QueueCheck(backend))
//	checker.RegisterCheck("resources", health.RegistryCheck(registry))
//	mux.HandleFunc("GET /health", checker.LivenessHandler())
//	mux.HandleFunc("GET /ready", checker.ReadinessHandler())
package health
