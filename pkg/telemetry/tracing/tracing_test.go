package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/atrium/pkg/config"
)

const parentTrace = "4bf92f3577b34da6a3ce929d0e0e4736"

// newRecordingTracer installs a tracer that keeps spans in memory.
func newRecordingTracer(t *testing.T) (*Tracer, *tracetest.InMemoryExporter) {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tracer, err := newTracer(&config.TracingConfig{ServiceName: "atrium-test"}, exporter, sdktrace.AlwaysSample())
	if err != nil {
		t.Fatalf("newTracer() error = %v", err)
	}
	return tracer, exporter
}

// flush exports pending spans, returns them and shuts the tracer down.
func flush(t *testing.T, tracer *Tracer, exporter *tracetest.InMemoryExporter) tracetest.SpanStubs {
	t.Helper()

	if err := tracer.provider.ForceFlush(context.Background()); err != nil {
		t.Fatalf("ForceFlush() error = %v", err)
	}
	spans := exporter.GetSpans()
	if err := tracer.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	return spans
}

// TestNew tests tracer construction.
func TestNew(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Error("New(nil) expected error")
	}

	tracer, err := New(&config.TracingConfig{Enabled: false})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if tracer.Enabled() {
		t.Error("disabled tracer reports enabled")
	}
	_, span := tracer.Start(context.Background(), "noop")
	if span.SpanContext().IsValid() {
		t.Error("noop tracer produced a valid span context")
	}
	if err := tracer.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}

	if _, err := New(&config.TracingConfig{Enabled: true, Sampler: "sometimes"}); err == nil {
		t.Error("New() with unknown sampler expected error")
	}
}

// TestCreateSampler tests sampler selection.
func TestCreateSampler(t *testing.T) {
	tests := []struct {
		strategy string
		ratio    float64
		wantErr  bool
	}{
		{strategy: SamplerAlways},
		{strategy: SamplerNever},
		{strategy: SamplerRatio, ratio: 0.25},
		{strategy: SamplerRatio, ratio: 1.5, wantErr: true},
		{strategy: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.strategy, func(t *testing.T) {
			_, err := createSampler(tt.strategy, tt.ratio)
			if (err != nil) != tt.wantErr {
				t.Errorf("createSampler(%q, %v) error = %v, wantErr %v", tt.strategy, tt.ratio, err, tt.wantErr)
			}
		})
	}
}

// TestStartAndEnd tests spans created through the global provider.
func TestStartAndEnd(t *testing.T) {
	tracer, exporter := newRecordingTracer(t)

	ctx, span := Start(context.Background(), "export.process")
	SetExportAttributes(span, "items", "csv", "queued")
	if TraceID(ctx) == "" {
		t.Error("TraceID() is empty inside a span")
	}
	End(span, errors.New("disk full"))

	_, ok := Start(context.Background(), "export.write")
	End(ok, nil)

	spans := flush(t, tracer, exporter)
	if len(spans) != 2 {
		t.Fatalf("got %d spans, want 2", len(spans))
	}
	if spans[0].Name != "export.process" || spans[0].Status.Code != codes.Error {
		t.Errorf("span = %s %v, want failed export.process", spans[0].Name, spans[0].Status)
	}
	if spans[1].Status.Code != codes.Ok {
		t.Errorf("status = %v, want ok", spans[1].Status)
	}
}

// TestMapPropagation tests carrying a trace across the job queue.
func TestMapPropagation(t *testing.T) {
	tracer, exporter := newRecordingTracer(t)

	ctx, parent := Start(context.Background(), "dispatch")
	carrier := map[string]string{}
	InjectToMap(ctx, carrier)
	parent.End()

	if carrier["traceparent"] == "" {
		t.Fatalf("carrier = %v, want traceparent", carrier)
	}

	remote := ExtractFromMap(context.Background(), carrier)
	_, child := Start(remote, "task")
	child.End()

	spans := flush(t, tracer, exporter)
	if len(spans) != 2 {
		t.Fatalf("got %d spans, want 2", len(spans))
	}
	if spans[1].Parent.SpanID() != spans[0].SpanContext.SpanID() {
		t.Error("task span is not a child of the dispatch span")
	}

	if got := ExtractFromMap(context.Background(), nil); trace.SpanContextFromContext(got).IsValid() {
		t.Error("empty carrier produced a span context")
	}
}

// TestMiddleware tests server spans for HTTP requests.
func TestMiddleware(t *testing.T) {
	tracer, exporter := newRecordingTracer(t)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /resources/{key}/export", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	req := httptest.NewRequest(http.MethodGet, "/resources/items/export", nil)
	req.Header.Set("traceparent", "00-"+parentTrace+"-00f067aa0ba902b7-01")
	rec := httptest.NewRecorder()
	Middleware(mux).ServeHTTP(rec, req)

	if got := rec.Header().Get(TraceIDHeader); got != parentTrace {
		t.Errorf("%s = %q, want %q", TraceIDHeader, got, parentTrace)
	}

	spans := flush(t, tracer, exporter)
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	span := spans[0]
	if span.Name != "GET /resources/{key}/export" {
		t.Errorf("name = %q", span.Name)
	}
	if span.SpanKind != trace.SpanKindServer || span.Status.Code != codes.Error {
		t.Errorf("kind = %v, status = %v", span.SpanKind, span.Status)
	}
	if span.SpanContext.TraceID().String() != parentTrace {
		t.Errorf("trace id = %s, want %s", span.SpanContext.TraceID(), parentTrace)
	}
}
