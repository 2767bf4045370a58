package natskv_test

import (
	"testing"

	"github.com/SatoshiAndKin/chandelier-or-not/kv"
	"github.com/SatoshiAndKin/chandelier-or-not/kv/kvtest"
	"github.com/SatoshiAndKin/chandelier-or-not/kv/natskv"
	"github.com/SatoshiAndKin/chandelier-or-not/tests"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startNats(t *testing.T) string {
	t.Helper()

	tests.RequireContainers(t)

	container, err := testcontainers.Run(
		t.Context(), "nats:latest",
		testcontainers.WithCmd("-js"),
		testcontainers.WithExposedPorts("4222/tcp"),
		testcontainers.WithWaitStrategy(
			wait.ForListeningPort("4222/tcp"),
			wait.ForLog("Server is ready"),
		),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Errorf("failed to terminate container: %s", err.Error())
		}
	})

	endpoint, err := container.PortEndpoint(t.Context(), "4222/tcp", "nats")
	require.NoError(t, err)

	t.Logf("nats endpoint: %s", endpoint)

	return endpoint
}

func TestStore(t *testing.T) {
	url := startNats(t)

	kvtest.Run(t, func(t *testing.T) kv.Store {
		t.Helper()

		store, err := natskv.Open(t.Context(), natskv.Config{
			URL:    url,
			Bucket: tests.UniqueName(t),
		})
		require.NoError(t, err)

		t.Cleanup(func() { _ = store.Close() })

		return store
	})
}

func TestOpenThroughURL(t *testing.T) {
	url := startNats(t)

	store, err := kv.Open(t.Context(), url+"/"+tests.UniqueName(t))
	require.NoError(t, err)

	t.Cleanup(func() { _ = store.Close() })

	_, err = store.Insert(t.Context(), "abc", []byte("done"))
	require.NoError(t, err)

	value, found, err := store.Get(t.Context(), "abc")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("done"), value)
}
