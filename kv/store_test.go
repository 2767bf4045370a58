package kv_test

import (
	"path/filepath"
	"testing"

	"github.com/SatoshiAndKin/chandelier-or-not/kv"
	"github.com/SatoshiAndKin/chandelier-or-not/kv/bolt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenBarePathIsBolt(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "farcaster.db")

	store, err := kv.Open(t.Context(), path)
	require.NoError(t, err)

	t.Cleanup(func() { _ = store.Close() })

	assert.IsType(t, &bolt.Store{}, store)
	assert.FileExists(t, path)
}

func TestOpenBoltScheme(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "dedup.db")

	store, err := kv.Open(t.Context(), "bolt://"+path)
	require.NoError(t, err)

	require.NoError(t, store.Close())
	assert.FileExists(t, path)
}

func TestOpenMem(t *testing.T) {
	t.Parallel()

	store, err := kv.Open(t.Context(), "mem://")
	require.NoError(t, err)

	assert.IsType(t, &kv.MemStore{}, store)
}

func TestOpenUnsupported(t *testing.T) {
	t.Parallel()

	_, err := kv.Open(t.Context(), "redis://localhost:6379")
	require.ErrorIs(t, err, kv.ErrUnsupportedURL)

	_, err = kv.Open(t.Context(), "")
	require.ErrorIs(t, err, kv.ErrUnsupportedURL)
}
