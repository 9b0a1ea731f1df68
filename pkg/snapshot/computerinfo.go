package snapshot

import (
	"time"

	"github.com/pchmd/pchmd/pkg/aggregate"
	"github.com/pchmd/pchmd/pkg/sensor"
)

// SensorEntry is the wire shape of one aggregate.Entry: the key pair, the
// four statistics each as a sensor.Value, the fixed measurement unit, and
// whether this entry was stale as of the instant the snapshot was taken.
type SensorEntry struct {
	SensorName     string
	DataSourceName string
	Current        sensor.Value
	Average        sensor.Value
	Minimum        sensor.Value
	Maximum        sensor.Value
	Unit           sensor.Unit
	IsStale        bool
}

// ComputerInfo is the snapshot root: host identity plus one SensorEntry per
// key in the aggregation map at the instant of encoding. Every snapshot is
// a full dump; there are no deltas.
type ComputerInfo struct {
	Name             string
	UUIDUpper        uint64
	UUIDLower        uint64
	OperatingSystem  string
	ServerVersion    Version
	Sensors          []SensorEntry
}

// Build converts the current contents of an aggregation map into a
// ComputerInfo ready for Encode. now and staleAfter together determine each
// entry's IsStale bit; hostname and os are the already-resolved host
// identity strings (see Hostname and OperatingSystem in host.go).
func Build(m *aggregate.Map, hostname, os string, now time.Time, staleAfter time.Duration) ComputerInfo {
	upper, lower := deriveUUID()

	entries := m.Entries()
	sensors := make([]SensorEntry, 0, len(entries))
	for _, e := range entries {
		sensors = append(sensors, SensorEntry{
			SensorName:     e.Key.SensorName,
			DataSourceName: e.Key.DataSourceName,
			Current:        e.Data.Current,
			Average:        e.Data.Average,
			Minimum:        e.Data.Minimum,
			Maximum:        e.Data.Maximum,
			Unit:           e.Data.Unit,
			IsStale:        e.Data.Stale(now, staleAfter),
		})
	}

	return ComputerInfo{
		Name:            hostname,
		UUIDUpper:       upper,
		UUIDLower:       lower,
		OperatingSystem: os,
		ServerVersion:   buildVersion(),
		Sensors:         sensors,
	}
}
