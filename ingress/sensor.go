package ingress

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/FerroO2000/sensorring/connector"
	"github.com/FerroO2000/sensorring/internal"
	"github.com/FerroO2000/sensorring/internal/config"
	"github.com/FerroO2000/sensorring/internal/message"
	"github.com/FerroO2000/sensorring/reading"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

//////////////
//  CONFIG  //
//////////////

// Default values for the sensor stage configuration.
const (
	DefaultSensorConfigSensorID = 1
	DefaultSensorConfigSleepMin = 1 * time.Second
	DefaultSensorConfigSleepMax = 3 * time.Second
)

// SensorConfig structs contains the configuration for the sensor stage.
type SensorConfig struct {
	// SensorID identifies the sensor. It determines the kind of the readings.
	SensorID int

	// SleepMin and SleepMax bound the random interval
	// the sensor waits before generating a reading.
	SleepMin time.Duration
	SleepMax time.Duration

	// Intervals overrides SleepMin and SleepMax when set.
	Intervals reading.IntervalSource

	// Values generates the value of the readings.
	// Defaults to a uniform draw from the range of the kind.
	Values reading.ValueSource

	// Clock returns the capture time of the readings.
	// Defaults to time.Now.
	Clock func() time.Time
}

// NewSensorConfig returns the default configuration for the sensor stage.
func NewSensorConfig(sensorID int) *SensorConfig {
	return &SensorConfig{
		SensorID: sensorID,
		SleepMin: DefaultSensorConfigSleepMin,
		SleepMax: DefaultSensorConfigSleepMax,
	}
}

// Validate checks the configuration.
func (c *SensorConfig) Validate(ac *config.AnomalyCollector) {
	config.CheckPositive(ac, "SensorID", &c.SensorID, DefaultSensorConfigSensorID)

	config.CheckNotNegative(ac, "SleepMin", &c.SleepMin, DefaultSensorConfigSleepMin)
	config.CheckNotLowerThan(ac, "SleepMax", "SleepMin", &c.SleepMax, c.SleepMin)
}

///////////////
//  METRICS  //
///////////////

type sensorMetrics struct {
	tel *internal.Telemetry

	publishedReadings atomic.Int64
	publishErrors     atomic.Int64

	publishWaitTime *internal.Histogram
}

func newSensorMetrics(tel *internal.Telemetry) *sensorMetrics {
	return &sensorMetrics{
		tel: tel,
	}
}

func (sm *sensorMetrics) init() {
	sm.tel.NewCounter("published_readings", func() int64 { return sm.publishedReadings.Load() })
	sm.tel.NewCounter("publish_errors", func() int64 { return sm.publishErrors.Load() })

	sm.publishWaitTime = sm.tel.NewHistogram("publish_wait_time", metric.WithUnit("ms"))
}

func (sm *sensorMetrics) incrementPublishedReadings() {
	sm.publishedReadings.Add(1)
}

func (sm *sensorMetrics) incrementPublishErrors() {
	sm.publishErrors.Add(1)
}

func (sm *sensorMetrics) recordPublishWaitTime(ctx context.Context, start time.Time) {
	sm.publishWaitTime.Record(ctx, time.Since(start).Milliseconds())
}

//////////////
//  SOURCE  //
//////////////

var _ source[reading.Reading, *SensorConfig] = (*sensorSource)(nil)

type sensorSource struct {
	tel *internal.Telemetry

	sensorID  int
	intervals reading.IntervalSource
	values    reading.ValueSource
	clock     func() time.Time

	metrics *sensorMetrics
}

func newSensorSource() *sensorSource {
	return &sensorSource{}
}

func (ss *sensorSource) setTelemetry(tel *internal.Telemetry) {
	ss.tel = tel
}

func (ss *sensorSource) init(cfg *SensorConfig) error {
	ss.sensorID = cfg.SensorID

	ss.intervals = cfg.Intervals
	if ss.intervals == nil {
		ss.intervals = reading.UniformInterval(cfg.SleepMin, cfg.SleepMax)
	}

	ss.values = cfg.Values
	if ss.values == nil {
		ss.values = reading.UniformValues()
	}

	ss.clock = cfg.Clock
	if ss.clock == nil {
		ss.clock = time.Now
	}

	ss.metrics = newSensorMetrics(ss.tel)
	ss.metrics.init()

	return nil
}

func (ss *sensorSource) run(ctx context.Context, outConnector msgConn[reading.Reading]) {
	for {
		// Simulate the acquisition interval
		if !internal.Sleep(ctx, ss.intervals()) {
			return
		}

		if err := ss.publish(ctx, outConnector); err != nil {
			if errors.Is(err, connector.ErrClosed) {
				ss.tel.LogInfo("output connector is closed, stopping")
				return
			}

			if ctx.Err() != nil {
				return
			}

			ss.metrics.incrementPublishErrors()
			ss.tel.LogError("failed to publish reading", err)
		}
	}
}

func (ss *sensorSource) generate() (reading.Reading, error) {
	kind := reading.KindOf(ss.sensorID)
	return reading.New(ss.sensorID, ss.values(kind), ss.clock())
}

func (ss *sensorSource) publish(ctx context.Context, outConnector msgConn[reading.Reading]) error {
	r, err := ss.generate()
	if err != nil {
		return err
	}

	ctx, span := ss.tel.NewTrace(ctx, "publish reading")
	defer span.End()

	span.SetAttributes(
		attribute.Int("sensor_id", r.SensorID()),
		attribute.String("kind", r.Kind().String()),
		attribute.Float64("value", r.Value()),
	)

	publishStart := time.Now()
	msgOut := message.NewMessage(r).WithPublishTime(publishStart).WithSpan(span)

	// Blocks while the connector is full
	slot, err := outConnector.Publish(ctx, msgOut)
	ss.metrics.recordPublishWaitTime(ctx, publishStart)
	if err != nil {
		span.RecordError(err)
		return err
	}

	span.SetAttributes(attribute.Int("slot", slot))
	ss.metrics.incrementPublishedReadings()

	ss.tel.LogInfo("wrote reading",
		"sensor_id", r.SensorID(),
		"kind", r.Kind().String(),
		"value", r.FormattedValue(),
		"at", r.CapturedAt().Format(time.TimeOnly),
		"slot", slot,
	)

	return nil
}

/////////////
//  STAGE  //
/////////////

// SensorStage is an ingress stage that periodically generates
// a reading and publishes it into the output connector.
type SensorStage struct {
	*stage[reading.Reading, *SensorConfig]

	source *sensorSource
}

// NewSensorStage returns a new sensor stage.
func NewSensorStage(outConnector msgConn[reading.Reading], cfg *SensorConfig) *SensorStage {
	source := newSensorSource()

	return &SensorStage{
		stage: newStage[reading.Reading]("sensor_"+strconv.Itoa(cfg.SensorID), source, outConnector, cfg),

		source: source,
	}
}
