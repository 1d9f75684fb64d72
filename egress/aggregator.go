package egress

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/FerroO2000/sensorring/connector"
	"github.com/FerroO2000/sensorring/internal"
	"github.com/FerroO2000/sensorring/internal/config"
	"github.com/FerroO2000/sensorring/reading"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

//////////////
//  CONFIG  //
//////////////

// Default values for the aggregator stage configuration.
const (
	DefaultAggregatorConfigInterval = 2 * time.Second
)

// Handler is called for every reading taken by the aggregator.
type Handler func(ctx context.Context, r reading.Reading) error

// AggregatorConfig structs contains the configuration for the aggregator stage.
type AggregatorConfig struct {
	// Interval is the pause before taking every reading.
	Interval time.Duration

	// Intervals overrides Interval when set.
	Intervals reading.IntervalSource

	// Handler is an optional callback invoked for every reading.
	Handler Handler

	// Clock returns the processing time of the readings.
	// Defaults to time.Now.
	Clock func() time.Time
}

// NewAggregatorConfig returns the default configuration for the aggregator stage.
func NewAggregatorConfig() *AggregatorConfig {
	return &AggregatorConfig{
		Interval: DefaultAggregatorConfigInterval,
	}
}

// Validate checks the configuration.
func (c *AggregatorConfig) Validate(ac *config.AnomalyCollector) {
	config.CheckNotNegative(ac, "Interval", &c.Interval, DefaultAggregatorConfigInterval)
}

///////////////
//  METRICS  //
///////////////

type aggregatorMetrics struct {
	tel *internal.Telemetry

	takenReadings  atomic.Int64
	handlingErrors atomic.Int64

	takeWaitTime   *internal.Histogram
	readingLatency *internal.Histogram
}

func newAggregatorMetrics(tel *internal.Telemetry) *aggregatorMetrics {
	return &aggregatorMetrics{
		tel: tel,
	}
}

func (am *aggregatorMetrics) init(inConn msgConn[reading.Reading]) {
	am.tel.NewCounter("taken_readings", func() int64 { return am.takenReadings.Load() })
	am.tel.NewCounter("handling_errors", func() int64 { return am.handlingErrors.Load() })
	am.tel.NewUpDownCounter("ring_buffer_len", func() int64 { return int64(inConn.Len()) })

	am.takeWaitTime = am.tel.NewHistogram("take_wait_time", metric.WithUnit("ms"))
	am.readingLatency = am.tel.NewHistogram("reading_latency", metric.WithUnit("ms"))
}

func (am *aggregatorMetrics) incrementTakenReadings() {
	am.takenReadings.Add(1)
}

func (am *aggregatorMetrics) incrementHandlingErrors() {
	am.handlingErrors.Add(1)
}

func (am *aggregatorMetrics) recordTakeWaitTime(ctx context.Context, start time.Time) {
	am.takeWaitTime.Record(ctx, time.Since(start).Milliseconds())
}

func (am *aggregatorMetrics) recordReadingLatency(ctx context.Context, publishTime time.Time) {
	am.readingLatency.Record(ctx, time.Since(publishTime).Milliseconds())
}

/////////////
//  STAGE  //
/////////////

// AggregatorStage is an egress stage that drains the input connector
// one reading at a time at a fixed pace.
type AggregatorStage struct {
	*stageBase[reading.Reading, *AggregatorConfig]

	intervals reading.IntervalSource
	clock     func() time.Time

	metrics *aggregatorMetrics
}

// NewAggregatorStage returns a new aggregator stage.
func NewAggregatorStage(inputConnector msgConn[reading.Reading], cfg *AggregatorConfig) *AggregatorStage {
	return &AggregatorStage{
		stageBase: newStageBase[reading.Reading]("aggregator", inputConnector, cfg),
	}
}

// Init initializes the aggregator stage.
func (as *AggregatorStage) Init(_ context.Context) error {
	as.stageBase.init()

	as.intervals = as.config.Intervals
	if as.intervals == nil {
		as.intervals = reading.FixedInterval(as.config.Interval)
	}

	as.clock = as.config.Clock
	if as.clock == nil {
		as.clock = time.Now
	}

	as.metrics = newAggregatorMetrics(as.tel)
	as.metrics.init(as.inputConnector)

	return nil
}

// Run runs the aggregator stage.
func (as *AggregatorStage) Run(ctx context.Context) {
	ctx, cancelCtx := as.stageBase.run(ctx)
	defer cancelCtx()

	for {
		// Pace the consumption independently of the producers
		if !internal.Sleep(ctx, as.intervals()) {
			return
		}

		takeStart := time.Now()
		msgIn, err := as.inputConnector.Take(ctx)
		as.metrics.recordTakeWaitTime(ctx, takeStart)
		if err != nil {
			// Check if the input connector is closed, if so stop
			if errors.Is(err, connector.ErrClosed) {
				as.tel.LogInfo("input connector is closed, stopping")
				return
			}

			if ctx.Err() != nil {
				return
			}

			as.tel.LogError("failed to take reading", err)
			continue
		}

		as.process(ctx, msgIn)
	}
}

func (as *AggregatorStage) process(ctx context.Context, msgIn msg[reading.Reading]) {
	// Link the span to the one of the sensor that published the reading
	ctx, span := as.tel.NewLinkedTrace(ctx, "take reading", msgIn.GetSpanContext())
	defer span.End()

	r := msgIn.GetBody()
	processedAt := as.clock()

	span.SetAttributes(
		attribute.Int("sensor_id", r.SensorID()),
		attribute.String("kind", r.Kind().String()),
		attribute.Float64("value", r.Value()),
	)

	as.metrics.incrementTakenReadings()
	as.metrics.recordReadingLatency(ctx, msgIn.GetPublishTime())

	as.tel.LogInfo("read reading",
		"sensor_id", r.SensorID(),
		"kind", r.Kind().String(),
		"value", r.FormattedValue(),
		"at", processedAt.Format(time.TimeOnly),
	)

	if as.config.Handler == nil {
		return
	}

	if err := as.config.Handler(ctx, r); err != nil {
		span.RecordError(err)
		as.metrics.incrementHandlingErrors()
		as.tel.LogError("failed to handle reading", err, "sensor_id", r.SensorID())
	}
}

// Close closes the aggregator stage.
func (as *AggregatorStage) Close() {
	as.stageBase.close()
}
