package spans_test

import (
	"context"
	"errors"
	"testing"

	"github.com/SatoshiAndKin/chandelier-or-not/spans"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

var errBoom = errors.New("boom")

func setupTestTracer(t *testing.T) (context.Context, *tracetest.InMemoryExporter) {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	return spans.WithTracer(t.Context(), tp.Tracer("test")), exporter
}

func TestTracerFromContext(t *testing.T) {
	t.Parallel()

	_, found := spans.TracerFromContext(t.Context())
	assert.False(t, found)

	ctx, _ := setupTestTracer(t)

	tracer, found := spans.TracerFromContext(ctx)
	assert.True(t, found)
	assert.NotNil(t, tracer)
}

func TestRunRecordsSuccess(t *testing.T) {
	t.Parallel()

	ctx, exporter := setupTestTracer(t)

	err := spans.Run(ctx, "sink.process", func(ctx context.Context, span trace.Span) error {
		assert.True(t, span.IsRecording())
		assert.Equal(t, span, trace.SpanFromContext(ctx))

		return nil
	}, spans.WithAttributes(attribute.String("shortcode", "C1")))
	require.NoError(t, err)

	recorded := exporter.GetSpans()
	require.Len(t, recorded, 1)
	assert.Equal(t, "sink.process", recorded[0].Name)
	assert.Equal(t, codes.Ok, recorded[0].Status.Code)
	assert.Contains(t, recorded[0].Attributes, attribute.String("shortcode", "C1"))
}

func TestRunRecordsError(t *testing.T) {
	t.Parallel()

	ctx, exporter := setupTestTracer(t)

	value, err := spans.RunValue(ctx, "source.fetch", func(context.Context, trace.Span) (int, error) {
		return 3, errBoom
	}, spans.WithErrorMessage("fetch failed"), spans.WithSpanKind(trace.SpanKindClient))
	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, 3, value)

	recorded := exporter.GetSpans()
	require.Len(t, recorded, 1)
	assert.Equal(t, codes.Error, recorded[0].Status.Code)
	assert.Equal(t, "fetch failed: boom", recorded[0].Status.Description)
	assert.Equal(t, trace.SpanKindClient, recorded[0].SpanKind)
	require.Len(t, recorded[0].Events, 1)
	assert.Equal(t, "exception", recorded[0].Events[0].Name)
}

func TestRunReraisesPanic(t *testing.T) {
	t.Parallel()

	ctx, exporter := setupTestTracer(t)

	assert.PanicsWithValue(t, "kaboom", func() {
		_ = spans.Run(ctx, "explode", func(context.Context, trace.Span) error {
			panic("kaboom")
		})
	})

	recorded := exporter.GetSpans()
	require.Len(t, recorded, 1)
	assert.Equal(t, codes.Error, recorded[0].Status.Code)
	assert.Contains(t, recorded[0].Attributes, attribute.Bool("panic", true))
}

func TestRunWithoutTracerUsesGlobalProvider(t *testing.T) {
	t.Parallel()

	called := false

	err := spans.Run(t.Context(), "noop", func(context.Context, trace.Span) error {
		called = true

		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
}
