package sensorring

import (
	"context"
	"errors"
	"fmt"

	"github.com/FerroO2000/sensorring/connector"
	"github.com/FerroO2000/sensorring/egress"
	"github.com/FerroO2000/sensorring/ingress"
	"github.com/FerroO2000/sensorring/internal"
	"github.com/FerroO2000/sensorring/internal/config"
	"github.com/FerroO2000/sensorring/reading"
)

// ErrInvalidProducerCount is returned when the runner has no producers.
var ErrInvalidProducerCount = errors.New("runner: producer count must be greater than zero")

// RunnerConfig contains the wiring of the runner.
type RunnerConfig struct {
	// BufferCapacity is the number of slots of the ring buffer.
	BufferCapacity int

	// ProducerCount is the number of sensors, with ids from 1 to ProducerCount.
	ProducerCount int

	// ProducerIntervals is the sleep of the sensors before every reading.
	ProducerIntervals reading.IntervalSource

	// ConsumerIntervals is the pace of the aggregator.
	ConsumerIntervals reading.IntervalSource

	// Values returns the value source of the given sensor.
	// When nil, or when it returns nil, values are drawn uniformly.
	Values func(sensorID int) reading.ValueSource

	// Handler is called by the aggregator for every reading.
	Handler egress.Handler
}

// NewRunnerConfig returns the runner configuration matching the given process
// configuration, with the intervals read from the pacing store.
func NewRunnerConfig(file *config.File, pacing *config.PacingStore) *RunnerConfig {
	return &RunnerConfig{
		BufferCapacity:    file.BufferCapacity,
		ProducerCount:     file.ProducerCount,
		ProducerIntervals: pacing.ProducerIntervals(),
		ConsumerIntervals: pacing.ConsumerIntervals(),
	}
}

// Runner wires N sensors and one aggregator around a single ring buffer.
type Runner struct {
	tel *internal.Telemetry

	ring     *connector.RingBuffer[connector.Message[reading.Reading]]
	pipeline *Pipeline
}

// NewRunner builds the ring buffer and the stages.
func NewRunner(cfg *RunnerConfig) (*Runner, error) {
	if cfg.ProducerCount <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidProducerCount, cfg.ProducerCount)
	}

	ring, err := connector.NewRingBuffer[reading.Reading](cfg.BufferCapacity)
	if err != nil {
		return nil, err
	}

	pipeline := NewPipeline()

	aggregatorCfg := egress.NewAggregatorConfig()
	aggregatorCfg.Intervals = cfg.ConsumerIntervals
	aggregatorCfg.Handler = cfg.Handler
	pipeline.AddStage(egress.NewAggregatorStage(ring, aggregatorCfg))

	for sensorID := 1; sensorID <= cfg.ProducerCount; sensorID++ {
		sensorCfg := ingress.NewSensorConfig(sensorID)
		sensorCfg.Intervals = cfg.ProducerIntervals

		if cfg.Values != nil {
			sensorCfg.Values = cfg.Values(sensorID)
		}

		pipeline.AddStage(ingress.NewSensorStage(ring, sensorCfg))
	}

	return &Runner{
		tel: internal.NewTelemetry("runner", "sensorring"),

		ring:     ring,
		pipeline: pipeline,
	}, nil
}

// Run starts the aggregator and the sensors, then blocks until
// the context is done. On return every stage is closed.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.pipeline.Init(ctx); err != nil {
		return err
	}

	r.tel.LogInfo("IoT Sensor Aggregation System Started")
	r.tel.LogInfo("ring buffer ready", "size", r.ring.Cap(), "policy", "FIFO", "sensors", r.pipeline.Stages()-1)

	r.pipeline.Run(ctx)

	stoppedCh := make(chan struct{})
	go func() {
		r.pipeline.Wait()
		close(stoppedCh)
	}()

	select {
	case <-ctx.Done():
	case <-stoppedCh:
	}

	r.tel.LogInfo("shutting down")

	r.pipeline.Close()
	r.ring.Close()

	return nil
}

// BufferLen returns the number of readings waiting in the ring buffer.
func (r *Runner) BufferLen() int {
	return r.ring.Len()
}
