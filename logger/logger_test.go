package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/log/noop"
)

var errStore = errors.New("store unavailable")

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	var lines []map[string]any

	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}

		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))

		lines = append(lines, entry)
	}

	return lines
}

func TestLogger(t *testing.T) { //nolint:paralleltest
	var buf bytes.Buffer

	ConfigureLoggingWithOptions(Options{
		Subsystem: "test",
		JSON:      true,
		Output:    &buf,
	})

	Get().Info("default subsystem")

	ctx := WithSubsystem(t.Context(), "sink")
	ctx = WithRequestId(ctx, "req-1")
	ctx = With(ctx, "shortcode", "abc")
	Get(ctx).Info("overridden")

	Get(WithMuted(t.Context(), true)).Info("never printed")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)

	assert.Equal(t, "test", lines[0]["subsystem"])
	assert.NotEmpty(t, lines[0]["pod"])

	assert.Equal(t, "sink", lines[1]["subsystem"])
	assert.Equal(t, "req-1", lines[1]["request-id"])
	assert.Equal(t, "abc", lines[1]["shortcode"])
}

func TestLegacy(t *testing.T) { //nolint:paralleltest
	var buf bytes.Buffer

	ConfigureLoggingWithOptions(Options{
		Subsystem:   "test",
		JSON:        true,
		MinLevel:    slog.LevelDebug,
		LegacyLevel: slog.LevelInfo,
		Output:      &buf,
	})

	log.Println("legacy line")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "legacy line", lines[0]["msg"])
}

func TestLoggerProviderStillWritesLocally(t *testing.T) { //nolint:paralleltest
	var buf bytes.Buffer

	ConfigureLoggingWithOptions(Options{
		Subsystem:      "test",
		JSON:           true,
		Output:         &buf,
		LoggerProvider: noop.NewLoggerProvider(),
	})

	Get().Warn("bridged")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "bridged", lines[0]["msg"])
}

func TestConfigureLoggingFromEnv(t *testing.T) { //nolint:paralleltest
	var buf bytes.Buffer

	t.Setenv("LOG_JSON", "true")
	t.Setenv("LOG_LEVEL", "warn")

	ConfigureLogging(t.Context(), "env-test", WithOutput(&buf))

	Get().Info("filtered")
	Get().Warn("kept")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "kept", lines[0]["msg"])
	assert.Equal(t, "env-test", lines[0]["subsystem"])
}

func TestWithKeepsEarlierValues(t *testing.T) {
	t.Parallel()

	ctx := With(t.Context(), "a", 1)
	child := With(ctx, "b", 2)
	sibling := With(ctx, "c", 3)

	assert.Equal(t, []any{"a", 1, "b", 2}, getValues(child))
	assert.Equal(t, []any{"a", 1, "c", 3}, getValues(sibling))
	assert.Same(t, ctx, With(ctx))
}

func TestAnnotateErrorNil(t *testing.T) {
	t.Parallel()

	assert.NoError(t, AnnotateError(nil, "key", "value"))
}

func TestAnnotateErrorKeepsChain(t *testing.T) {
	t.Parallel()

	annotated := AnnotateError(errStore, "key", "post:abc")

	require.ErrorIs(t, annotated, errStore)
	assert.Equal(t, errStore.Error(), annotated.Error())
}

func TestAnnotatedErrorsAreLifted(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	lg := slog.New(&slogErrorLogger{inner: slog.NewJSONHandler(&buf, nil)})

	inner := AnnotateError(errStore, "key", "post:abc")
	outer := AnnotateError(fmt.Errorf("processing: %w", inner), "actor", "sink")

	lg.Error("failed", "error", outer, "plain", errors.New("not annotated")) //nolint:err113

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)

	assert.Equal(t, "processing: store unavailable", lines[0]["error"])
	assert.Equal(t, "not annotated", lines[0]["plain"])
	assert.Equal(t, "post:abc", lines[0]["key"])
	assert.Equal(t, "sink", lines[0]["actor"])
}
