package sink

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/SatoshiAndKin/chandelier-or-not/actor"
	"github.com/SatoshiAndKin/chandelier-or-not/dedup"
	"github.com/SatoshiAndKin/chandelier-or-not/kv"
	"github.com/SatoshiAndKin/chandelier-or-not/kv/bolt"
	"github.com/SatoshiAndKin/chandelier-or-not/scraper"
	"github.com/SatoshiAndKin/chandelier-or-not/shutdown"
	"github.com/SatoshiAndKin/chandelier-or-not/spans"
	"github.com/neilotoole/slogt"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/atomic"
)

var (
	errPublish = errors.New("publish failed")
	errDisk    = errors.New("disk on fire")
)

func post(shortcode string) scraper.Post {
	return scraper.Post{ID: shortcode, Shortcode: shortcode}
}

func counting(calls *atomic.Int32) Effect {
	return func(context.Context, scraper.Post) error {
		calls.Inc()

		return nil
	}
}

func startSink(t *testing.T, store kv.Store, effect Effect) (*Handle, *actor.Task, shutdown.Token) {
	t.Helper()

	token := shutdown.NewTokenFrom(t.Context())
	handle, task := New(token, Options{
		Store:  store,
		Effect: effect,
		Logger: slogt.New(t),
	})

	t.Cleanup(func() {
		token.Cancel()
		_ = task.Wait()
	})

	return handle, task, token
}

// failingStore reads fine and fails every write.
type failingStore struct {
	kv.Store
}

func (failingStore) Insert(context.Context, string, []byte) ([]byte, error) {
	return nil, errDisk
}

func TestFreshItemRunsEffect(t *testing.T) {
	t.Parallel()

	store := kv.NewMemStore()

	var calls atomic.Int32

	handle, _, _ := startSink(t, store, counting(&calls))

	outcome, err := handle.ProcessItem(t.Context(), post("abc"))
	require.NoError(t, err)
	assert.Equal(t, dedup.OutcomeExecuted, outcome)
	assert.Equal(t, int32(1), calls.Load())

	raw, found, err := store.Get(t.Context(), "abc")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "done", string(raw))
}

func TestRedeliveryDoesNothing(t *testing.T) {
	t.Parallel()

	store := kv.NewMemStore()
	_, err := store.Insert(t.Context(), "abc", []byte("done"))
	require.NoError(t, err)

	var calls atomic.Int32

	handle, _, _ := startSink(t, store, counting(&calls))

	for range 3 {
		outcome, err := handle.ProcessItem(t.Context(), post("abc"))
		require.NoError(t, err)
		assert.Equal(t, dedup.OutcomeAlreadyDone, outcome)
	}

	assert.Zero(t, calls.Load())
}

func TestInterruptedItemIsSkipped(t *testing.T) {
	t.Parallel()

	store := kv.NewMemStore()
	_, err := store.Insert(t.Context(), "xyz", []byte("in_progress"))
	require.NoError(t, err)

	var calls atomic.Int32

	handle, _, _ := startSink(t, store, counting(&calls))

	outcome, err := handle.ProcessItem(t.Context(), post("xyz"))
	require.NoError(t, err)
	assert.Equal(t, dedup.OutcomeInterrupted, outcome)
	assert.Zero(t, calls.Load())

	raw, _, err := store.Get(t.Context(), "xyz")
	require.NoError(t, err)
	assert.Equal(t, "in_progress", string(raw))
}

func TestLegacyBooleanRecords(t *testing.T) {
	t.Parallel()

	store := kv.NewMemStore()
	_, err := store.Insert(t.Context(), "old-done", []byte("true"))
	require.NoError(t, err)
	_, err = store.Insert(t.Context(), "old-started", []byte("false"))
	require.NoError(t, err)

	var calls atomic.Int32

	handle, _, _ := startSink(t, store, counting(&calls))

	outcome, err := handle.ProcessItem(t.Context(), post("old-done"))
	require.NoError(t, err)
	assert.Equal(t, dedup.OutcomeAlreadyDone, outcome)

	outcome, err = handle.ProcessItem(t.Context(), post("old-started"))
	require.NoError(t, err)
	assert.Equal(t, dedup.OutcomeInterrupted, outcome)

	assert.Zero(t, calls.Load())
}

func TestCorruptRecordFailsOnlyThatRequest(t *testing.T) {
	t.Parallel()

	store := kv.NewMemStore()
	_, err := store.Insert(t.Context(), "bad", []byte("maybe?"))
	require.NoError(t, err)

	var calls atomic.Int32

	handle, _, _ := startSink(t, store, counting(&calls))

	err = handle.Process(t.Context(), post("bad"))
	require.ErrorIs(t, err, dedup.ErrCorruptRecord)
	assert.False(t, actor.IsFatal(err))

	require.NoError(t, handle.Process(t.Context(), post("good")))
	assert.Equal(t, actor.Running, handle.State())
	assert.Equal(t, int32(1), calls.Load())
}

func TestEffectErrorLeavesItemInProgress(t *testing.T) {
	t.Parallel()

	store := kv.NewMemStore()

	handle, _, _ := startSink(t, store, func(context.Context, scraper.Post) error {
		return errPublish
	})

	err := handle.Process(t.Context(), post("abc"))
	require.ErrorIs(t, err, errPublish)
	require.ErrorIs(t, err, dedup.ErrEffect)
	assert.False(t, actor.IsFatal(err))

	raw, _, err := store.Get(t.Context(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "in_progress", string(raw))

	outcome, err := handle.ProcessItem(t.Context(), post("abc"))
	require.NoError(t, err)
	assert.Equal(t, dedup.OutcomeInterrupted, outcome)
}

func TestStoreFailureStopsSink(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	handle, task, token := startSink(t, failingStore{Store: kv.NewMemStore()}, counting(&calls))

	err := handle.Process(t.Context(), post("abc"))
	require.ErrorIs(t, err, errDisk)
	require.ErrorIs(t, err, dedup.ErrStore)
	assert.True(t, actor.IsFatal(err))
	assert.Zero(t, calls.Load())

	select {
	case <-task.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("sink did not stop after a store failure")
	}

	require.ErrorIs(t, task.Wait(), errDisk)
	assert.True(t, token.IsCancelled())
	assert.Equal(t, actor.Stopped, handle.State())

	err = handle.Process(t.Context(), post("def"))
	require.ErrorIs(t, err, actor.ErrMailboxClosed)
}

func TestMalformedShortcodeFailsOnlyThatRequest(t *testing.T) {
	t.Parallel()

	store, err := bolt.Open(filepath.Join(t.TempDir(), "farcaster.db"))
	require.NoError(t, err)

	var calls atomic.Int32

	handle, task, token := startSink(t, store, counting(&calls))

	err = handle.Process(t.Context(), post(""))
	require.ErrorIs(t, err, dedup.ErrInvalidKey)
	assert.False(t, actor.IsFatal(err))
	assert.NotErrorIs(t, err, dedup.ErrStore)

	outcome, err := handle.ProcessItem(t.Context(), post("abc123"))
	require.NoError(t, err)
	assert.Equal(t, dedup.OutcomeExecuted, outcome)
	assert.Equal(t, int32(1), calls.Load())

	assert.False(t, token.IsCancelled())
	assert.Equal(t, actor.Running, handle.State())

	select {
	case <-task.Done():
		t.Fatal("sink stopped after a malformed post")
	default:
	}
}

func TestStoreClosedOnShutdown(t *testing.T) {
	t.Parallel()

	store := kv.NewMemStore()

	var calls atomic.Int32

	handle, task, token := startSink(t, store, counting(&calls))

	require.NoError(t, handle.Process(t.Context(), post("abc")))

	token.Cancel()
	require.NoError(t, task.Wait())

	_, _, err := store.Get(t.Context(), "abc")
	require.ErrorIs(t, err, kv.ErrClosed)
}

func TestProcessIsTraced(t *testing.T) {
	t.Parallel()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	ctx := spans.WithTracer(t.Context(), tp.Tracer("test"))

	var calls atomic.Int32

	handle, _, _ := startSink(t, kv.NewMemStore(), counting(&calls))

	require.NoError(t, handle.Process(ctx, post("abc")))

	recorded := exporter.GetSpans()
	require.Len(t, recorded, 1)
	assert.Equal(t, "sink.process", recorded[0].Name)
	assert.Contains(t, recorded[0].Attributes, attribute.String("shortcode", "abc"))
	assert.Contains(t, recorded[0].Attributes, attribute.String("outcome", "executed"))
}

func TestOutcomeMetrics(t *testing.T) {
	store := kv.NewMemStore()
	_, err := store.Insert(t.Context(), "xyz", []byte("in_progress"))
	require.NoError(t, err)

	interrupted := testutil.ToFloat64(itemsProcessed.WithLabelValues("interrupted"))
	executed := testutil.ToFloat64(itemsProcessed.WithLabelValues("executed"))

	var calls atomic.Int32

	handle, _, _ := startSink(t, store, counting(&calls))

	require.NoError(t, handle.Process(t.Context(), post("xyz")))
	require.NoError(t, handle.Process(t.Context(), post("abc")))

	assert.InDelta(t, interrupted+1, testutil.ToFloat64(itemsProcessed.WithLabelValues("interrupted")), 0)
	assert.InDelta(t, executed+1, testutil.ToFloat64(itemsProcessed.WithLabelValues("executed")), 0)
}
