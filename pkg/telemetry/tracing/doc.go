// Package tracing provides OpenTelemetry tracing for atrium.
//
// # Overview
//
// New installs a global tracer provider that exports spans to an OTLP gRPC
// collector. Instrumented code starts spans through the package-level Start,
// which uses whatever provider is installed, so exports, HTTP requests and
// queued tasks are traced without holding a *Tracer.
//
// # Trace Context Propagation
//
// W3C Trace Context is extracted from incoming HTTP requests by Middleware
// and carried across the job queue in a string map:
//
//	job.TraceContext = map[string]string{}
//	tracing.InjectToMap(ctx, job.TraceContext)
//	...
//	ctx = tracing.ExtractFromMap(ctx, job.TraceContext)
//
// # Sampling Strategies
//
// Three sampling strategies are supported:
//   - always: Sample all traces
//   - never: Sample no traces
//   - ratio: Sample a fraction of traces
//
// Every sampler is parent based: a child span follows the decision of its
// remote parent.
//
// # Usage
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	ctx, span := tracing.Start(ctx, "export.process")
//	defer span.End()
package tracing
