package bolt_test

import (
	"path/filepath"
	"testing"

	"github.com/SatoshiAndKin/chandelier-or-not/kv"
	"github.com/SatoshiAndKin/chandelier-or-not/kv/bolt"
	"github.com/SatoshiAndKin/chandelier-or-not/kv/kvtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	t.Parallel()

	kvtest.Run(t, func(t *testing.T) kv.Store {
		t.Helper()

		store, err := bolt.Open(filepath.Join(t.TempDir(), "test.db"))
		require.NoError(t, err)

		t.Cleanup(func() { _ = store.Close() })

		return store
	})
}

func TestSurvivesReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "farcaster.db")

	store, err := bolt.Open(path)
	require.NoError(t, err)

	_, err = store.Insert(t.Context(), "abc", []byte("in_progress"))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := bolt.Open(path)
	require.NoError(t, err)

	t.Cleanup(func() { _ = reopened.Close() })

	value, found, err := reopened.Get(t.Context(), "abc")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("in_progress"), value)
}

func TestBucketsAreSeparate(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "buckets.db")

	first, err := bolt.Open(path, bolt.WithBucket("first"))
	require.NoError(t, err)

	_, err = first.Insert(t.Context(), "k", []byte("v"))
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := bolt.Open(path, bolt.WithBucket("second"))
	require.NoError(t, err)

	t.Cleanup(func() { _ = second.Close() })

	_, found, err := second.Get(t.Context(), "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestClosed(t *testing.T) {
	t.Parallel()

	store, err := bolt.Open(filepath.Join(t.TempDir(), "closed.db"))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, _, err = store.Get(t.Context(), "k")
	require.ErrorIs(t, err, bolt.ErrClosed)
}

func TestRejectsEmptyKey(t *testing.T) {
	t.Parallel()

	store, err := bolt.Open(filepath.Join(t.TempDir(), "keys.db"))
	require.NoError(t, err)

	t.Cleanup(func() { _ = store.Close() })

	_, err = store.Insert(t.Context(), "", []byte("in_progress"))
	require.ErrorIs(t, err, bolt.ErrInvalidKey)

	_, err = store.Insert(t.Context(), "abc", []byte("in_progress"))
	require.NoError(t, err)
}
