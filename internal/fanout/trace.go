package fanout

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

var fanoutTracer = otel.Tracer("rugby-live/internal/fanout")

// startSpan only opens a child span under an existing trace.
func startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	parent := trace.SpanFromContext(ctx)
	if !parent.SpanContext().IsValid() {
		return ctx, parent
	}
	return fanoutTracer.Start(ctx, name)
}
