package monitor

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "fastx-gateway"

// Tracer wraps OpenTelemetry tracing. Spans are no-ops until a global
// TracerProvider is installed.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a new Tracer using the global TracerProvider.
func NewTracer() *Tracer {
	return &Tracer{
		tracer: otel.Tracer(tracerName),
	}
}

// StartSpan creates a new span named fastx.<name> and returns the updated context.
func (t *Tracer) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, fmt.Sprintf("fastx.%s", name),
		trace.WithAttributes(attrs...),
	)
}

// EndSpan records err (if any) on span and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// SpanFromContext returns the current span from the context.
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// Common attribute keys.
var (
	AttrOperation     = attribute.Key("fastx.operation")
	AttrRequestID     = attribute.Key("fastx.request_id")
	AttrContentLength = attribute.Key("fastx.content_length")
	AttrFormat        = attribute.Key("fastx.format")
	AttrCommand       = attribute.Key("fastx.seqkit.command")
	AttrExitCode      = attribute.Key("fastx.seqkit.exit_code")
	AttrBackend       = attribute.Key("fastx.seqkit.backend")
)
