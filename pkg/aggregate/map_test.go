package aggregate

import (
	"testing"
	"time"

	"github.com/pchmd/pchmd/pkg/sensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(name string) sensor.Key {
	return sensor.Key{SensorName: name, DataSourceName: "test"}
}

// TestMap_VariantStability exercises property 1: once a key's variant is
// fixed, a mismatched observation never changes it.
func TestMap_VariantStability(t *testing.T) {
	m := NewMap(0.3, nil, nil)
	k := testKey("temp1_input")

	m.Merge(k, sensor.Float64(40.0), sensor.UnitCelsius)
	m.Merge(k, sensor.TextValue("should be dropped"), sensor.UnitNone)

	got := m.Entries()
	require.Len(t, got, 1)
	assert.Equal(t, sensor.KindFloat, got[0].Data.Current.Kind)
	assert.Equal(t, 40.0, got[0].Data.Current.Float)
}

// TestMap_Ordering exercises property 2 across a short Float series.
func TestMap_Ordering(t *testing.T) {
	m := NewMap(0.3, nil, nil)
	k := testKey("in0_input")

	for _, x := range []float64{5.0, 1.0, 9.0, 4.0} {
		m.Merge(k, sensor.Float64(x), sensor.UnitVolt)
		e := m.Entries()[0].Data
		assert.LessOrEqual(t, e.Minimum.Float, e.Current.Float)
		assert.LessOrEqual(t, e.Current.Float, e.Maximum.Float)
	}

	e := m.Entries()[0].Data
	assert.Equal(t, 1.0, e.Minimum.Float)
	assert.Equal(t, 9.0, e.Maximum.Float)
	assert.Equal(t, 4.0, e.Current.Float)
}

// TestMap_EWMALaw exercises property 3: avg_0 = x_0, avg_k = a*x_k + (1-a)*avg_{k-1}.
func TestMap_EWMALaw(t *testing.T) {
	const alpha = 0.3
	m := NewMap(alpha, nil, nil)
	k := testKey("power1_input")

	series := []float64{10, 12, 8, 20, 15}
	wantAvg := series[0]
	m.Merge(k, sensor.Float64(series[0]), sensor.UnitWatt)
	assert.InDelta(t, wantAvg, m.Entries()[0].Data.Average.Float, 1e-9)

	for _, x := range series[1:] {
		m.Merge(k, sensor.Float64(x), sensor.UnitWatt)
		wantAvg = alpha*x + (1-alpha)*wantAvg
		assert.InDelta(t, wantAvg, m.Entries()[0].Data.Average.Float, 1e-9)
	}
}

// TestMap_Staleness exercises property 4 with a fake clock.
func TestMap_Staleness(t *testing.T) {
	base := time.Unix(1_700_000_000, 0)
	cur := base
	clock := func() time.Time { return cur }

	m := NewMap(0.3, nil, clock)
	k := testKey("fan1_input")
	m.Merge(k, sensor.Float64(1200), sensor.UnitRPM)

	d := m.Entries()[0].Data
	const staleAfter = time.Second

	cur = base.Add(500 * time.Millisecond)
	assert.False(t, d.Stale(cur, staleAfter))

	cur = base.Add(1100 * time.Millisecond)
	assert.True(t, d.Stale(cur, staleAfter))
}

// TestMap_RawBoolPromotesAverageToFloat checks that a RawBool sensor keeps
// current/min/max as RawBool while its EWMA average becomes a plain Float.
func TestMap_RawBoolPromotesAverageToFloat(t *testing.T) {
	m := NewMap(0.5, nil, nil)
	k := testKey("temp1_alarm")

	m.Merge(k, sensor.RawBool(true), sensor.UnitNone)
	m.Merge(k, sensor.RawBool(false), sensor.UnitNone)

	d := m.Entries()[0].Data
	assert.Equal(t, sensor.KindRawBool, d.Current.Kind)
	assert.False(t, d.Current.AsBool())
	assert.Equal(t, sensor.KindRawBool, d.Minimum.Kind)
	assert.False(t, d.Minimum.AsBool())
	assert.True(t, d.Maximum.AsBool())
	assert.Equal(t, sensor.KindFloat, d.Average.Kind)
	assert.InDelta(t, 0.5, d.Average.Float, 1e-9)
}

// TestMap_TextAverageFrozen exercises the documented design note: textual
// averages are left unchanged after the first observation.
func TestMap_TextAverageFrozen(t *testing.T) {
	m := NewMap(0.3, nil, nil)
	k := testKey("temp1_type")

	m.Merge(k, sensor.TextValue("CPU"), sensor.UnitNone)
	m.Merge(k, sensor.TextValue("Thermistor"), sensor.UnitNone)

	d := m.Entries()[0].Data
	assert.Equal(t, "CPU", d.Average.Text)
	assert.Equal(t, "Thermistor", d.Current.Text)
}

func TestMap_EntriesOnlyGrow(t *testing.T) {
	m := NewMap(0.3, nil, nil)
	m.Merge(testKey("a"), sensor.Float64(1), sensor.UnitNone)
	m.Merge(testKey("b"), sensor.Float64(2), sensor.UnitNone)
	m.Merge(testKey("a"), sensor.Float64(3), sensor.UnitNone)

	assert.Equal(t, 2, m.Len())
}
