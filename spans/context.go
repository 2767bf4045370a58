// Package spans runs functions inside OpenTelemetry spans.
//
// The tracer comes from the context when one was stored with WithTracer,
// and from the global provider otherwise. Tests store their own tracer so
// that they can run in parallel without touching global state.
package spans

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName names the tracer taken from the global provider.
const InstrumentationName = "github.com/SatoshiAndKin/chandelier-or-not"

type contextKey string

const tracerKey contextKey = "tracer"

// WithTracer stores tracer in ctx for the spans started below it.
func WithTracer(ctx context.Context, tracer trace.Tracer) context.Context {
	return context.WithValue(ctx, tracerKey, tracer)
}

// TracerFromContext returns the tracer stored with WithTracer, if any.
func TracerFromContext(ctx context.Context) (trace.Tracer, bool) {
	tracer, ok := ctx.Value(tracerKey).(trace.Tracer)

	return tracer, ok && tracer != nil
}

func tracerFor(ctx context.Context) trace.Tracer { //nolint:ireturn
	if tracer, ok := TracerFromContext(ctx); ok {
		return tracer
	}

	return otel.Tracer(InstrumentationName)
}
