package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for the process configuration.
const (
	DefaultBufferCapacity        = 5
	DefaultProducerCount         = 2
	DefaultProducerSleepMin      = 1 * time.Second
	DefaultProducerSleepMax      = 3 * time.Second
	DefaultConsumerSleepInterval = 2 * time.Second
	DefaultTraceRatio            = 0.05
)

// Duration is a time.Duration decoded from either a Go duration
// string ("1500ms") or a plain number of seconds.
type Duration time.Duration

// UnmarshalYAML implements the yaml.Unmarshaler interface.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := parseDuration(node)
	if err != nil {
		return err
	}

	*d = Duration(parsed)
	return nil
}

func parseDuration(node *yaml.Node) (time.Duration, error) {
	if node.Kind != yaml.ScalarNode {
		return 0, fmt.Errorf("line %d: duration must be a scalar", node.Line)
	}

	switch node.ShortTag() {
	case "!!int", "!!float":
		seconds, err := strconv.ParseFloat(node.Value, 64)
		if err != nil {
			return 0, fmt.Errorf("line %d: %w", node.Line, err)
		}

		return time.Duration(seconds * float64(time.Second)), nil
	}

	parsed, err := time.ParseDuration(node.Value)
	if err != nil {
		return 0, fmt.Errorf("line %d: %w", node.Line, err)
	}

	return parsed, nil
}

// SleepRange is the interval a producer sleeps between two readings.
// It is decoded either from a two elements sequence ([1s, 3s])
// or from a mapping with the min and max keys.
type SleepRange struct {
	Min time.Duration
	Max time.Duration
}

// UnmarshalYAML implements the yaml.Unmarshaler interface.
func (sr *SleepRange) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		if len(node.Content) != 2 {
			return fmt.Errorf("line %d: sleep range must have exactly 2 elements, got %d", node.Line, len(node.Content))
		}

		lo, err := parseDuration(node.Content[0])
		if err != nil {
			return err
		}

		hi, err := parseDuration(node.Content[1])
		if err != nil {
			return err
		}

		sr.Min, sr.Max = lo, hi
		return nil

	case yaml.MappingNode:
		var raw struct {
			Min *Duration `yaml:"min"`
			Max *Duration `yaml:"max"`
		}

		if err := node.Decode(&raw); err != nil {
			return err
		}

		if raw.Min != nil {
			sr.Min = time.Duration(*raw.Min)
		}
		if raw.Max != nil {
			sr.Max = time.Duration(*raw.Max)
		}

		return nil
	}

	return fmt.Errorf("line %d: sleep range must be a sequence or a mapping", node.Line)
}

// Telemetry is the telemetry section of the process configuration.
type Telemetry struct {
	// OTLPEndpoint is the address of the OpenTelemetry collector.
	// Telemetry is not exported when empty.
	OTLPEndpoint string `yaml:"otlp_endpoint"`

	// TraceRatio is the sampling ratio of the traces.
	TraceRatio float64 `yaml:"trace_ratio"`

	// Debug enables the debug logs.
	Debug bool `yaml:"debug"`
}

// File is the process configuration, optionally loaded from a YAML file.
type File struct {
	// BufferCapacity is the number of slots of the ring buffer.
	// It is read once at startup.
	BufferCapacity int `yaml:"buffer_capacity"`

	// ProducerCount is the number of sensors.
	// It is read once at startup.
	ProducerCount int `yaml:"producer_count"`

	// ProducerSleepRange is the interval each sensor sleeps
	// before generating a reading.
	ProducerSleepRange SleepRange `yaml:"producer_sleep_range"`

	// ConsumerSleepInterval is the pace of the aggregator.
	ConsumerSleepInterval Duration `yaml:"consumer_sleep_interval"`

	Telemetry Telemetry `yaml:"telemetry"`
}

// Default returns the default process configuration.
func Default() *File {
	return &File{
		BufferCapacity: DefaultBufferCapacity,
		ProducerCount:  DefaultProducerCount,
		ProducerSleepRange: SleepRange{
			Min: DefaultProducerSleepMin,
			Max: DefaultProducerSleepMax,
		},
		ConsumerSleepInterval: Duration(DefaultConsumerSleepInterval),
		Telemetry: Telemetry{
			TraceRatio: DefaultTraceRatio,
		},
	}
}

// Load returns the default configuration overridden by the YAML file
// at the given path. An empty path returns the defaults.
func Load(path string) (*File, error) {
	cfg := Default()

	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	if err := cfg.decode(f); err != nil {
		return nil, fmt.Errorf("config: failed to decode %s: %w", path, err)
	}

	return cfg, nil
}

func (f *File) decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	// An empty file keeps the defaults
	if err := dec.Decode(f); err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	return nil
}

// Validate checks the configuration.
func (f *File) Validate(ac *AnomalyCollector) {
	CheckPositive(ac, "BufferCapacity", &f.BufferCapacity, DefaultBufferCapacity)
	CheckPositive(ac, "ProducerCount", &f.ProducerCount, DefaultProducerCount)

	CheckNotNegative(ac, "ProducerSleepRange.Min", &f.ProducerSleepRange.Min, DefaultProducerSleepMin)
	CheckNotLowerThan(ac, "ProducerSleepRange.Max", "ProducerSleepRange.Min",
		&f.ProducerSleepRange.Max, f.ProducerSleepRange.Min)

	CheckNotNegative(ac, "ConsumerSleepInterval", &f.ConsumerSleepInterval, Duration(DefaultConsumerSleepInterval))

	CheckNotNegative(ac, "Telemetry.TraceRatio", &f.Telemetry.TraceRatio, DefaultTraceRatio)
	if f.Telemetry.TraceRatio > 1 {
		ac.Add("Telemetry.TraceRatio", "cannot be greater than 1", f.Telemetry.TraceRatio, 1.0)
		f.Telemetry.TraceRatio = 1
	}
}

// Pacing returns the pacing section of the configuration.
func (f *File) Pacing() Pacing {
	return Pacing{
		ProducerSleepMin: f.ProducerSleepRange.Min,
		ProducerSleepMax: f.ProducerSleepRange.Max,
		ConsumerInterval: time.Duration(f.ConsumerSleepInterval),
	}
}
