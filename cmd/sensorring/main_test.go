package main

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/FerroO2000/sensorring/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// closedEndpoint returns the address of a port nothing listens on.
func closedEndpoint(t *testing.T) string {
	t.Helper()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	endpoint := lis.Addr().String()
	require.NoError(t, lis.Close())

	return endpoint
}

func Test_run_UnreachableCollector(t *testing.T) {
	assert := assert.New(t)

	t.Setenv(configPathEnv, "")
	t.Setenv(otlpEndpointEnv, closedEndpoint(t))

	const runFor = 300 * time.Millisecond

	ctx, cancelCtx := context.WithTimeout(t.Context(), runFor)
	defer cancelCtx()

	start := time.Now()
	err := run(ctx, internal.NewTelemetry("cmd", "test"))

	// The pipeline keeps running without exporting telemetry
	assert.NoError(err)
	assert.GreaterOrEqual(time.Since(start), runFor)
}

func Test_run_MissingConfig(t *testing.T) {
	t.Setenv(configPathEnv, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv(otlpEndpointEnv, "")

	err := run(t.Context(), internal.NewTelemetry("cmd", "test"))
	assert.Error(t, err)
}

func Test_initTelemetry(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	shutdown, err := initTelemetry(t.Context(), closedEndpoint(t), 1)
	assert.ErrorIs(err, errCollectorUnreachable)
	require.NotNil(shutdown)
	assert.NoError(shutdown(t.Context()))

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(err)
	defer lis.Close()

	assert.True(isCollectorReachable(lis.Addr().String()))

	shutdown, err = initTelemetry(t.Context(), lis.Addr().String(), 1)
	assert.NoError(err)
	require.NotNil(shutdown)

	// The listener never answers, so the final export may fail
	shutdownCtx, cancelShutdown := context.WithTimeout(t.Context(), 100*time.Millisecond)
	defer cancelShutdown()

	assert.NotPanics(func() { _ = shutdown(shutdownCtx) })
}
