package sensor

import "context"

// Reading is one observation yielded by a Source during a poll pass: the key
// locating the sub-sensor, its value, and the unit it was measured in (unset
// for discrete/text readings that carry no physical unit).
type Reading struct {
	Key   Key
	Value Value
	Unit  Unit
}

// Merger receives readings during a poll pass. pkg/aggregate.Map implements
// this so that a Source never needs to import the aggregation package
// directly; it only needs somewhere to deposit what it found.
type Merger interface {
	Merge(key Key, value Value, unit Unit)
}

// Source is a polymorphic sensor backend: given somewhere to deposit
// readings, it enumerates every sub-sensor it can currently reach and
// reports one Reading per sub-sensor. A read failure or an unrecognized
// value kind on one sub-sensor must never abort the pass; Source
// implementations log and continue.
type Source interface {
	// Name identifies this adapter; it becomes Key.DataSourceName for every
	// reading the source produces.
	Name() string

	// Update polls every discoverable sub-sensor once and deposits its
	// current value into dst.
	Update(ctx context.Context, dst Merger)
}
