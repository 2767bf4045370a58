// Package kvtest checks that a store behaves the way the dedup ledger
// relies on.
package kvtest

import (
	"context"
	"sync"
	"testing"

	"github.com/SatoshiAndKin/chandelier-or-not/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises a fresh store returned by open for each subtest.
func Run(t *testing.T, open func(t *testing.T) kv.Store) {
	t.Helper()

	t.Run("missing key", func(t *testing.T) {
		store := open(t)

		value, found, err := store.Get(t.Context(), "post.missing")
		require.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, value)
	})

	t.Run("insert returns previous", func(t *testing.T) {
		store := open(t)
		ctx := t.Context()

		previous, err := store.Insert(ctx, "post.abc", []byte("in_progress"))
		require.NoError(t, err)
		assert.Nil(t, previous)

		previous, err = store.Insert(ctx, "post.abc", []byte("done"))
		require.NoError(t, err)
		assert.Equal(t, []byte("in_progress"), previous)

		value, found, err := store.Get(ctx, "post.abc")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, []byte("done"), value)
	})

	t.Run("keys are independent", func(t *testing.T) {
		store := open(t)
		ctx := t.Context()

		_, err := store.Insert(ctx, "a", []byte("1"))
		require.NoError(t, err)

		_, err = store.Insert(ctx, "b", []byte("2"))
		require.NoError(t, err)

		value, _, err := store.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, []byte("1"), value)
	})

	t.Run("returned values are copies", func(t *testing.T) {
		store := open(t)
		ctx := t.Context()

		input := []byte("done")

		_, err := store.Insert(ctx, "k", input)
		require.NoError(t, err)

		input[0] = 'X'

		value, _, err := store.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("done"), value)

		value[0] = 'Y'

		again, _, err := store.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, []byte("done"), again)
	})

	t.Run("concurrent writers", func(t *testing.T) {
		store := open(t)
		ctx := t.Context()

		var wg sync.WaitGroup

		for i := range 8 {
			wg.Add(1)

			go func() {
				defer wg.Done()

				_, err := store.Insert(ctx, "shared", []byte{byte('a' + i)})
				assert.NoError(t, err)
			}()
		}

		wg.Wait()

		_, found, err := store.Get(ctx, "shared")
		require.NoError(t, err)
		assert.True(t, found)
	})

	t.Run("empty key is rejected", func(t *testing.T) {
		store := open(t)

		_, err := store.Insert(t.Context(), "", []byte("in_progress"))
		require.Error(t, err)

		_, found, _ := store.Get(t.Context(), "")
		assert.False(t, found)
	})

	t.Run("cancelled context", func(t *testing.T) {
		store := open(t)

		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		_, err := store.Insert(ctx, "k", []byte("v"))
		require.Error(t, err)
	})
}
