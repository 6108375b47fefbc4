package observe

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is the instrumentation scope for all spans emitted by the
// server, covering HTTP handling and pipeline stage execution alike.
const tracerName = "github.com/lexivox/lexivox"

// Tracer returns the service tracer from the globally registered
// [trace.TracerProvider].
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartSpan opens a span on the service tracer. The caller ends it.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, opts...)
}

// CorrelationID returns the active trace ID, or "" outside a span. Clients
// see it as the X-Correlation-ID response header and can quote it when
// reporting a stuck or failed job.
func CorrelationID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}

// Logger returns the default logger annotated with trace_id and span_id when
// ctx carries an active span, so per-job log lines can be tied back to the
// request that submitted the job.
func Logger(ctx context.Context) *slog.Logger {
	l := slog.Default()
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		l = l.With(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return l
}
