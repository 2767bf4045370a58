package kv_test

import (
	"testing"

	"github.com/SatoshiAndKin/chandelier-or-not/kv"
	"github.com/SatoshiAndKin/chandelier-or-not/kv/kvtest"
	"github.com/stretchr/testify/require"
)

func TestMemStore(t *testing.T) {
	t.Parallel()

	kvtest.Run(t, func(t *testing.T) kv.Store {
		t.Helper()

		return kv.NewMemStore()
	})
}

func TestMemStoreClosed(t *testing.T) {
	t.Parallel()

	store := kv.NewMemStore()
	require.NoError(t, store.Close())

	_, _, err := store.Get(t.Context(), "k")
	require.ErrorIs(t, err, kv.ErrClosed)

	_, err = store.Insert(t.Context(), "k", []byte("v"))
	require.ErrorIs(t, err, kv.ErrClosed)
}
