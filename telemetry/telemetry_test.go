package telemetry

import (
	"testing"
	"time"

	"github.com/SatoshiAndKin/chandelier-or-not/build"
	"github.com/SatoshiAndKin/chandelier-or-not/envutil"
	"github.com/SatoshiAndKin/chandelier-or-not/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromEnvDefaults(t *testing.T) {
	t.Parallel()

	ctx := logger.WithSubsystem(t.Context(), "chandelier")
	ctx = envutil.WithEnvOverride(ctx, "OTEL_ENABLED", "false")
	ctx = envutil.WithEnvOverride(ctx, "OTEL_SERVICE_NAME", "")
	ctx = envutil.WithEnvOverride(ctx, "OTEL_SERVICE_VERSION", "")
	ctx = envutil.WithEnvOverride(ctx, "OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "")
	ctx = envutil.WithEnvOverride(ctx, "OTEL_EXPORTER_OTLP_LOGS_ENDPOINT", "")
	ctx = envutil.WithEnvOverride(ctx, "OTEL_EXPORTER_OTLP_TIMEOUT", "")

	config, err := LoadConfigFromEnv(ctx, "test")
	require.NoError(t, err)

	assert.False(t, config.Enabled)
	assert.Equal(t, "chandelier", config.ServiceName)
	assert.Equal(t, build.Read().Version, config.ServiceVersion)
	assert.Equal(t, "test", config.Environment)
	assert.Empty(t, config.TracesEndpoint)
	assert.Equal(t, defaultTimeout, config.Timeout)
}

func TestLoadConfigFromEnvOverrides(t *testing.T) {
	t.Parallel()

	ctx := envutil.WithEnvOverride(t.Context(), "OTEL_ENABLED", "true")
	ctx = envutil.WithEnvOverride(ctx, "OTEL_SERVICE_NAME", "chandelier-test")
	ctx = envutil.WithEnvOverride(ctx, "OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "http://collector:4318/v1/traces")
	ctx = envutil.WithEnvOverride(ctx, "OTEL_EXPORTER_OTLP_LOGS_ENDPOINT", "http://collector:4318/v1/logs")
	ctx = envutil.WithEnvOverride(ctx, "OTEL_EXPORTER_OTLP_TIMEOUT", "2s")

	config, err := LoadConfigFromEnv(ctx, "prod")
	require.NoError(t, err)

	assert.True(t, config.Enabled)
	assert.Equal(t, "chandelier-test", config.ServiceName)
	assert.Equal(t, "http://collector:4318/v1/traces", config.TracesEndpoint)
	assert.Equal(t, "http://collector:4318/v1/logs", config.LogsEndpoint)
	assert.Equal(t, 2*time.Second, config.Timeout)
}

func TestLoadConfigFromEnvBadTimeout(t *testing.T) {
	t.Parallel()

	ctx := envutil.WithEnvOverride(t.Context(), "OTEL_EXPORTER_OTLP_TIMEOUT", "soon")

	_, err := LoadConfigFromEnv(ctx, "test")
	require.Error(t, err)
}

func TestInitializeDisabled(t *testing.T) { //nolint:paralleltest
	require.NoError(t, Initialize(t.Context(), &Config{Enabled: false}))
	assert.Nil(t, LoggerProvider())
	require.NoError(t, Shutdown(t.Context()))
}

func TestInitializeAndShutdown(t *testing.T) { //nolint:paralleltest
	config := &Config{
		ServiceName:    "chandelier-test",
		ServiceVersion: "0.0.1",
		Environment:    "test",
		TracesEndpoint: "http://127.0.0.1:4318/v1/traces",
		LogsEndpoint:   "http://127.0.0.1:4318/v1/logs",
		Enabled:        true,
		Timeout:        time.Second,
	}

	require.NoError(t, Initialize(t.Context(), config))
	assert.NotNil(t, LoggerProvider())

	require.NoError(t, Shutdown(t.Context()))
	assert.Nil(t, LoggerProvider())
}
