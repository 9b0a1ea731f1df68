// Package synthetic provides a deterministic, host-independent sensor
// source used by tests and demos in place of real hardware, reporting
// fixed or generated readings rather than depending on a live machine.
package synthetic

import (
	"context"
	"sync"

	"github.com/pchmd/pchmd/pkg/sensor"
)

// Reading is one fixed or generated observation this source will report.
type Reading struct {
	Key   sensor.Key
	Unit  sensor.Unit
	Value func(tick int) sensor.Value
}

// Source reports a fixed set of Readings, advancing an internal tick
// counter once per Update call. It implements sensor.Source.
type Source struct {
	name     string
	mu       sync.Mutex
	tick     int
	readings []Reading
}

// New constructs a synthetic Source named name that will replay readings on
// every Update call.
func New(name string, readings ...Reading) *Source {
	return &Source{name: name, readings: readings}
}

// Constant returns a Reading whose value is the same on every tick, the
// fixture used by the stats-convergence scenario.
func Constant(key sensor.Key, unit sensor.Unit, v sensor.Value) Reading {
	return Reading{Key: key, Unit: unit, Value: func(int) sensor.Value { return v }}
}

// Sequence returns a Reading that replays values in order, holding the
// last one once exhausted — e.g. a RawBool(true), RawBool(false) series
// for bool-kind handling.
func Sequence(key sensor.Key, unit sensor.Unit, values ...sensor.Value) Reading {
	return Reading{Key: key, Unit: unit, Value: func(tick int) sensor.Value {
		if tick >= len(values) {
			return values[len(values)-1]
		}
		return values[tick]
	}}
}

func (s *Source) Name() string { return s.name }

// Update deposits this tick's value for every configured reading, then
// advances the tick counter.
func (s *Source) Update(_ context.Context, dst sensor.Merger) {
	s.mu.Lock()
	tick := s.tick
	s.tick++
	s.mu.Unlock()

	for _, r := range s.readings {
		dst.Merge(r.Key, r.Value(tick), r.Unit)
	}
}

// Stop removes every reading so subsequent Update calls are no-ops,
// modeling a source that has stopped producing data (used by the
// staleness-flip scenario).
func (s *Source) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readings = nil
}
