// Package observability bundles the two cross-cutting concerns every
// Machine macrostep touches: structured logging and span tracing.
package observability

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// instrumentationName identifies this module's spans to a configured
// OpenTelemetry SDK, using the fully-qualified import path as the
// instrumentation name.
const instrumentationName = "github.com/statecraft-run/scxml/engine"

// NewLogger returns a *slog.Logger, falling back to slog.Default when l
// is nil. Kept as a one-line seam so engine.New never has to special-
// case a nil *slog.Logger option itself.
func NewLogger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}

// Tracer opens macrostep/microstep spans. The default Tracer is a
// no-op, so a Machine built without engine.WithTracer pays
// nothing for instrumentation it isn't using.
type Tracer interface {
	StartMacrostep(ctx context.Context, machineID, eventName string) (context.Context, trace.Span)
	StartMicrostep(ctx context.Context, machineID string, transitionCount int) (context.Context, trace.Span)
}

// otelTracer is the default Tracer, backed by an otel trace.Tracer.
type otelTracer struct {
	tracer trace.Tracer
}

// NewTracer wraps an otel TracerProvider's Tracer for this module's
// instrumentation name. Passing nil yields a no-op tracer via
// go.opentelemetry.io/otel/trace/noop, so hosts that never configure a
// TracerProvider still get a valid, inert Tracer.
func NewTracer(provider trace.TracerProvider) Tracer {
	if provider == nil {
		provider = noop.NewTracerProvider()
	}
	return &otelTracer{tracer: provider.Tracer(instrumentationName)}
}

func (t *otelTracer) StartMacrostep(ctx context.Context, machineID, eventName string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "scxml.macrostep",
		trace.WithAttributes(
			attribute.String("machine.id", machineID),
			attribute.String("event.name", eventName),
		))
}

func (t *otelTracer) StartMicrostep(ctx context.Context, machineID string, transitionCount int) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "scxml.microstep",
		trace.WithAttributes(
			attribute.String("machine.id", machineID),
			attribute.Int("transition.count", transitionCount),
		))
}
