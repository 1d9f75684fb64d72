package config

import (
	"sync/atomic"
	"time"

	"github.com/FerroO2000/sensorring/reading"
)

// Pacing contains the intervals that can be changed while running.
type Pacing struct {
	ProducerSleepMin time.Duration
	ProducerSleepMax time.Duration
	ConsumerInterval time.Duration
}

// PacingStore holds the current pacing.
// It is safe for concurrent use.
type PacingStore struct {
	curr atomic.Pointer[Pacing]
}

// NewPacingStore returns a new store holding the given pacing.
func NewPacingStore(p Pacing) *PacingStore {
	ps := &PacingStore{}
	ps.Store(p)
	return ps
}

// Load returns the current pacing.
func (ps *PacingStore) Load() Pacing {
	return *ps.curr.Load()
}

// Store replaces the current pacing.
func (ps *PacingStore) Store(p Pacing) {
	ps.curr.Store(&p)
}

// ProducerIntervals returns an interval source drawing from
// the current producer sleep range.
func (ps *PacingStore) ProducerIntervals() reading.IntervalSource {
	return func() time.Duration {
		p := ps.Load()
		return reading.RandomInterval(p.ProducerSleepMin, p.ProducerSleepMax)
	}
}

// ConsumerIntervals returns an interval source returning
// the current consumer interval.
func (ps *PacingStore) ConsumerIntervals() reading.IntervalSource {
	return func() time.Duration {
		return ps.Load().ConsumerInterval
	}
}
