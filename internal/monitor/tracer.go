package monitor

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "pyrunner"

// Tracer wraps OpenTelemetry tracing for the script pipeline.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a new Tracer using the global TracerProvider.
func NewTracer() *Tracer {
	return &Tracer{
		tracer: otel.Tracer(tracerName),
	}
}

// StartSpan creates a new span and returns the updated context.
func (t *Tracer) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := t.tracer.Start(ctx, fmt.Sprintf("pyrunner.%s", name),
		trace.WithAttributes(attrs...),
	)
	return ctx, span
}

// SpanFromContext returns the current span from the context.
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// Common attribute keys for pipeline tracing.
var (
	AttrExecID      = attribute.Key("pyrunner.execution.id")
	AttrExitCode    = attribute.Key("pyrunner.exit_code")
	AttrScriptBytes = attribute.Key("pyrunner.script_bytes")
	AttrOutputFiles = attribute.Key("pyrunner.output_files")
	AttrDurationMS  = attribute.Key("pyrunner.duration_ms")
	AttrErrorKind   = attribute.Key("pyrunner.error_kind")
)
