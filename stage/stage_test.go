package stage

import (
	"testing"

	"github.com/SatoshiAndKin/chandelier-or-not/envutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrentReadsRunningEnv(t *testing.T) {
	t.Parallel()

	for _, want := range []Stage{Local, Test, Dev, Staging, Prod} {
		ctx := envutil.WithEnvOverride(t.Context(), Key, string(want))

		got, err := Current(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestCurrentDefaultsToTestUnderGoTest(t *testing.T) {
	t.Parallel()

	ctx := envutil.WithEnvOverride(t.Context(), Key, "")

	got, err := Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, Test, got)
}

func TestCurrentRejectsUnknownStage(t *testing.T) {
	t.Parallel()

	ctx := envutil.WithEnvOverride(t.Context(), Key, "moon")

	_, err := Current(ctx)
	require.ErrorIs(t, err, ErrUnrecognizedStage)
}

func TestIsDeployed(t *testing.T) {
	t.Parallel()

	assert.False(t, Local.IsDeployed())
	assert.False(t, Test.IsDeployed())
	assert.True(t, Dev.IsDeployed())
	assert.True(t, Prod.IsDeployed())
}
