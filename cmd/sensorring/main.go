// Command sensorring runs the sensors and the aggregator around
// a bounded ring buffer until it receives SIGINT or SIGTERM.
//
// The optional YAML configuration is read from the file named by
// SENSORRING_CONFIG and its pacing is reloaded when the file changes.
// Traces and metrics are exported via OTLP/gRPC to the collector named by
// SENSORRING_OTLP_ENDPOINT, or by telemetry.otlp_endpoint in the file.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/FerroO2000/sensorring"
	"github.com/FerroO2000/sensorring/internal"
	"github.com/FerroO2000/sensorring/internal/config"
	"golang.org/x/sync/errgroup"
)

const (
	configPathEnv   = "SENSORRING_CONFIG"
	otlpEndpointEnv = "SENSORRING_OTLP_ENDPOINT"

	shutdownTimeout = 5 * time.Second
)

func main() {
	ctx, cancelCtx := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancelCtx()

	tel := internal.NewTelemetry("cmd", "sensorring")

	if err := run(ctx, tel); err != nil {
		tel.LogError("startup failed", err)
		cancelCtx()
		os.Exit(1)
	}
}

func run(ctx context.Context, tel *internal.Telemetry) error {
	configPath := os.Getenv(configPathEnv)

	file, err := config.Load(configPath)
	if err != nil {
		return err
	}
	config.NewValidator(tel).Validate(file)

	if file.Telemetry.Debug {
		internal.SetLogLevel(slog.LevelDebug)
	}

	endpoint := file.Telemetry.OTLPEndpoint
	if env := os.Getenv(otlpEndpointEnv); env != "" {
		endpoint = env
	}

	if endpoint != "" {
		shutdown, err := initTelemetry(ctx, endpoint, file.Telemetry.TraceRatio)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := shutdown(shutdownCtx); err != nil {
				tel.LogWarn("failed to shut down telemetry", "reason", err)
			}
		}()

		switch {
		case errors.Is(err, errCollectorUnreachable):
			tel.LogWarn("telemetry is not exported", "reason", err)
		case err != nil:
			return err
		}
	}

	pacing := config.NewPacingStore(file.Pacing())

	runner, err := sensorring.NewRunner(sensorring.NewRunnerConfig(file, pacing))
	if err != nil {
		return err
	}

	var watcher *config.Watcher
	if configPath != "" {
		watcher = config.NewWatcher(configPath, file, pacing)
		if err := watcher.Init(); err != nil {
			return err
		}
		defer watcher.Close()
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return runner.Run(groupCtx)
	})

	if watcher != nil {
		group.Go(func() error {
			return watcher.Run(groupCtx)
		})
	}

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}
