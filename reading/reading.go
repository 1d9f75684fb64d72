// Package reading contains the sensor reading exchanged between
// the sensors and the aggregator.
package reading

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"
)

// ErrInvalidSensorID is returned when a reading is built
// with a sensor id lower than one.
var ErrInvalidSensorID = errors.New("reading: sensor id must be greater than zero")

// Kind is the kind of quantity measured by a sensor.
type Kind uint8

const (
	// KindTemperature is a temperature in Celsius degrees.
	KindTemperature Kind = iota
	// KindHumidity is a relative humidity percentage.
	KindHumidity
)

type kindProfile struct {
	name     string
	min, max float64
}

// profiles is indexed by kind, sensor ids are mapped onto it in round robin.
var profiles = [...]kindProfile{
	KindTemperature: {name: "Temperature", min: 20, max: 35},
	KindHumidity:    {name: "Humidity", min: 40, max: 80},
}

func (k Kind) String() string {
	if int(k) >= len(profiles) {
		return "Unknown"
	}

	return profiles[k].name
}

// Range returns the half-open interval [min, max) of the values of the kind.
func (k Kind) Range() (float64, float64) {
	if int(k) >= len(profiles) {
		return 0, 0
	}

	p := profiles[k]
	return p.min, p.max
}

// KindOf returns the kind measured by the given sensor.
// Sensor 1 measures the temperature, sensor 2 the humidity,
// and so on alternating.
func KindOf(sensorID int) Kind {
	if sensorID <= 0 {
		return KindTemperature
	}

	return Kind((sensorID - 1) % len(profiles))
}

// Reading is a single sample of a sensor. It is immutable.
type Reading struct {
	sensorID   int
	kind       Kind
	value      float64
	capturedAt time.Time
}

// New returns a new reading of the given sensor.
// The kind is derived from the sensor id.
func New(sensorID int, value float64, capturedAt time.Time) (Reading, error) {
	if sensorID <= 0 {
		return Reading{}, fmt.Errorf("%w: got %d", ErrInvalidSensorID, sensorID)
	}

	return Reading{
		sensorID:   sensorID,
		kind:       KindOf(sensorID),
		value:      value,
		capturedAt: capturedAt,
	}, nil
}

// SensorID returns the id of the sensor that generated the reading.
func (r Reading) SensorID() int {
	return r.sensorID
}

// Kind returns the kind of the reading.
func (r Reading) Kind() Kind {
	return r.kind
}

// Value returns the measured value.
func (r Reading) Value() float64 {
	return r.value
}

// CapturedAt returns the time the reading was generated.
func (r Reading) CapturedAt() time.Time {
	return r.capturedAt
}

// FormattedValue returns the value with two decimals.
func (r Reading) FormattedValue() string {
	return strconv.FormatFloat(r.value, 'f', 2, 64)
}

// IsConsistent states whether the kind matches the sensor
// and the value lies in the range of the kind.
func (r Reading) IsConsistent() bool {
	if r.sensorID <= 0 || r.kind != KindOf(r.sensorID) {
		return false
	}

	lo, hi := r.kind.Range()
	return r.value >= lo && r.value < hi
}

func (r Reading) String() string {
	return fmt.Sprintf("Sensor%d %s=%s", r.sensorID, r.kind, r.FormattedValue())
}

// ValueSource produces the value of a new reading of the given kind.
type ValueSource func(kind Kind) float64

// UniformValues returns a value source that draws uniformly
// from the range of the kind.
func UniformValues() ValueSource {
	return func(kind Kind) float64 {
		lo, hi := kind.Range()
		return lo + rand.Float64()*(hi-lo)
	}
}

// IntervalSource produces the duration to wait before the next operation.
type IntervalSource func() time.Duration

// FixedInterval returns an interval source that always returns d.
func FixedInterval(d time.Duration) IntervalSource {
	return func() time.Duration {
		return d
	}
}

// UniformInterval returns an interval source that draws uniformly
// from [lo, hi]. If hi is not greater than lo, it always returns lo.
func UniformInterval(lo, hi time.Duration) IntervalSource {
	return func() time.Duration {
		return RandomInterval(lo, hi)
	}
}

// RandomInterval draws a duration uniformly from [lo, hi].
func RandomInterval(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}

	return lo + rand.N(hi-lo+1)
}
