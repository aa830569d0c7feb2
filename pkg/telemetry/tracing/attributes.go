package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys. HTTP keys follow the OpenTelemetry semantic conventions;
// domain keys use the "atrium." namespace.
const (
	AttrHTTPMethod = "http.method"
	AttrHTTPTarget = "http.target"
	AttrHTTPRoute  = "http.route"
	AttrHTTPStatus = "http.status_code"

	AttrResource     = "atrium.resource"
	AttrExportFormat = "atrium.export.format"
	AttrExportMode   = "atrium.export.mode"
	AttrExportRows   = "atrium.export.rows"
	AttrTaskID       = "atrium.task.id"
	AttrTaskKind     = "atrium.task.kind"
	AttrTaskAttempts = "atrium.task.attempts"
)

// SetExportAttributes sets the attributes describing an export run.
func SetExportAttributes(span trace.Span, resource, format, mode string) {
	span.SetAttributes(
		attribute.String(AttrResource, resource),
		attribute.String(AttrExportFormat, format),
		attribute.String(AttrExportMode, mode),
	)
}

// SetTaskAttributes sets the attributes describing a queued task.
func SetTaskAttributes(span trace.Span, id, kind string, attempts int) {
	span.SetAttributes(
		attribute.String(AttrTaskID, id),
		attribute.String(AttrTaskKind, kind),
		attribute.Int(AttrTaskAttempts, attempts),
	)
}
