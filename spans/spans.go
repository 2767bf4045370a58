package spans

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Option configures a span started by Run.
type Option func(*runner)

type runner struct {
	kind    trace.SpanKind
	failure string
	attrs   []attribute.KeyValue
}

// WithAttributes adds attributes to the span when it starts.
func WithAttributes(attrs ...attribute.KeyValue) Option {
	return func(r *runner) {
		r.attrs = append(r.attrs, attrs...)
	}
}

// WithSpanKind sets the span kind. The default is SpanKindInternal.
func WithSpanKind(kind trace.SpanKind) Option {
	return func(r *runner) {
		r.kind = kind
	}
}

// WithErrorMessage prefixes the status description of a failed span.
func WithErrorMessage(description string) Option {
	return func(r *runner) {
		r.failure = description
	}
}

// Run calls fn inside a span named name. A returned error is recorded on
// the span and sets its status. A panic is recorded and then re-raised.
func Run(ctx context.Context, name string, fn func(ctx context.Context, span trace.Span) error, opts ...Option) error {
	_, err := RunValue(ctx, name, func(ctx context.Context, span trace.Span) (struct{}, error) {
		return struct{}{}, fn(ctx, span)
	}, opts...)

	return err
}

// RunValue is Run for functions that also return a value.
func RunValue[T any](
	ctx context.Context,
	name string,
	fn func(ctx context.Context, span trace.Span) (T, error),
	opts ...Option,
) (T, error) { //nolint:ireturn
	r := runner{kind: trace.SpanKindInternal}

	for _, opt := range opts {
		if opt != nil {
			opt(&r)
		}
	}

	ctx, span := tracerFor(ctx).Start(ctx, name,
		trace.WithSpanKind(r.kind),
		trace.WithAttributes(r.attrs...))
	defer span.End()

	defer func() {
		if rec := recover(); rec != nil {
			span.SetAttributes(attribute.Bool("panic", true))
			span.SetStatus(codes.Error, fmt.Sprintf("panic: %v", rec))

			panic(rec)
		}
	}()

	value, err := fn(ctx, span)
	if err != nil {
		span.RecordError(err)

		if r.failure != "" {
			span.SetStatus(codes.Error, r.failure+": "+err.Error())
		} else {
			span.SetStatus(codes.Error, err.Error())
		}

		return value, err
	}

	span.SetStatus(codes.Ok, "ok")

	return value, nil
}
