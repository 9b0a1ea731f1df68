// Package aggregate holds the update loop's single-owner map of per-sensor
// running statistics.
package aggregate

import (
	"log/slog"
	"time"

	"github.com/pchmd/pchmd/pkg/sensor"
)

// Data is the per-sensor record held in a Map: the four running statistics
// plus the measurement unit fixed at first insert and the instant of the
// most recent update.
//
// Invariant (enforced entirely by Map.Merge, never by callers): Current,
// Average, Minimum and Maximum always share the same sensor.Kind, fixed at
// first insertion of this key.
type Data struct {
	Current    sensor.Value
	Average    sensor.Value
	Minimum    sensor.Value
	Maximum    sensor.Value
	Unit       sensor.Unit
	LastUpdate time.Time
}

// Stale reports whether this entry's last update is older than staleAfter,
// measured from now.
func (d *Data) Stale(now time.Time, staleAfter time.Duration) bool {
	return now.Sub(d.LastUpdate) > staleAfter
}

// Entry pairs a key with its current statistics, the shape a snapshot
// iterates over.
type Entry struct {
	Key  sensor.Key
	Data *Data
}

// Map is the keyed store of per-sensor statistics. It is owned exclusively
// by the update loop in internal/daemon and mutated only by calls to Merge
// from that same goroutine; it carries no internal locking by design.
type Map struct {
	alpha   float64
	now     func() time.Time
	logger  *slog.Logger
	entries map[sensor.Key]*Data
	order   []sensor.Key
}

// NewMap constructs an empty Map. alpha is the EWMA smoothing factor
// applied to every Float/RawBool update; now defaults to time.Now when nil,
// overridable so tests can drive staleness deterministically.
func NewMap(alpha float64, logger *slog.Logger, now func() time.Time) *Map {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Map{
		alpha:   alpha,
		now:     now,
		logger:  logger,
		entries: make(map[sensor.Key]*Data),
	}
}

// Merge implements sensor.Merger. On first observation of key it inserts a
// new Data with all four statistics equal to value. On subsequent
// observations it updates Current unconditionally, recomputes Average via
// EWMA (Text averages are left frozen, per design note), and extends
// Minimum/Maximum by strict comparison — all only when value shares the
// stored Kind. A variant mismatch is logged and the update is dropped
// entirely, leaving the entry untouched except that LastUpdate still does
// not advance, since no update actually "happened" for this observation.
func (m *Map) Merge(key sensor.Key, value sensor.Value, unit sensor.Unit) {
	now := m.now()

	d, ok := m.entries[key]
	if !ok {
		d = &Data{
			Current:    value,
			Average:    value,
			Minimum:    value,
			Maximum:    value,
			Unit:       unit,
			LastUpdate: now,
		}
		m.entries[key] = d
		m.order = append(m.order, key)
		return
	}

	if !value.SameKind(d.Current) {
		m.logger.Warn("aggregate: dropped update with mismatched variant",
			"sensor", key.SensorName, "source", key.DataSourceName,
			"stored_kind", d.Current.Kind, "incoming_kind", value.Kind)
		return
	}

	d.Current = value

	switch value.Kind {
	case sensor.KindFloat, sensor.KindRawBool:
		a := m.alpha*value.Float + (1-m.alpha)*averageAsFloat(d.Average)
		d.Average = sensor.Float64(a)
		if value.Less(d.Minimum) {
			d.Minimum = value
		}
		if d.Maximum.Less(value) {
			d.Maximum = value
		}
	case sensor.KindText:
		// Average frozen at first observation; see design notes.
		if value.Less(d.Minimum) {
			d.Minimum = value
		}
		if d.Maximum.Less(value) {
			d.Maximum = value
		}
	}

	d.LastUpdate = now
}

// averageAsFloat reads the running average as a float64 regardless of
// whether it is still the original Kind (first tick) or has already been
// promoted to KindFloat by a prior EWMA update.
func averageAsFloat(avg sensor.Value) float64 {
	switch avg.Kind {
	case sensor.KindFloat, sensor.KindRawBool:
		return avg.Float
	default:
		return 0
	}
}

// Entries returns every entry currently held, in stable insertion order.
// The slice and the *Data values it references must not be mutated by the
// caller; it is intended for read-only iteration by the snapshot encoder.
func (m *Map) Entries() []Entry {
	out := make([]Entry, 0, len(m.order))
	for _, k := range m.order {
		out = append(out, Entry{Key: k, Data: m.entries[k]})
	}
	return out
}

// Len reports the number of distinct keys observed so far.
func (m *Map) Len() int { return len(m.entries) }
