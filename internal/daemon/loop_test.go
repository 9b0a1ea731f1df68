package daemon

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/pchmd/pchmd/pkg/broadcast"
	"github.com/pchmd/pchmd/pkg/sensor"
	"github.com/pchmd/pchmd/pkg/sensor/synthetic"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeClock lets tests advance time deterministically, the same pattern
// pkg/aggregate's tests use.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{t: start}
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// TestStatsConvergeOverTicks drives a constant-valued synthetic source
// through several ticks and checks that the aggregation map's average
// converges toward the constant while Current always reflects the latest
// reading.
func TestStatsConvergeOverTicks(t *testing.T) {
	key := sensor.Key{SensorName: "cpu", DataSourceName: "synthetic"}
	src := synthetic.New("synthetic", synthetic.Constant(key, sensor.UnitCelsius, sensor.Float64(42.0)))

	clock := newFakeClock(time.Unix(0, 0))
	bus := broadcast.New[[]byte](4, discardLogger())
	sub := bus.Subscribe()

	cfg := Config{
		Period:    10 * time.Millisecond,
		EWMAAlpha: 0.5,
		StaleTime: time.Minute,
		Hostname:  "test-host",
		OS:        "test-os",
	}
	loop := New(cfg, []sensor.Source{src}, bus, discardLogger(), clock.now)

	for i := 0; i < 5; i++ {
		loop.tick(context.Background(), clock.now())
		clock.advance(cfg.Period)
	}

	entries := loop.Map().Entries()
	require.Len(t, entries, 1)
	require.InDelta(t, 42.0, entries[0].Data.Average.Float, 0.5)
	require.InDelta(t, 42.0, entries[0].Data.Current.Float, 1e-9)

	recvCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := sub.Recv(recvCtx)
	require.NoError(t, err, "at least one snapshot should have been published")
}

// TestStalenessFlipsAfterSourceStops checks that once a source stops
// producing readings, the entry's Stale bit (via Data.Stale on the loop's
// aggregation map) flips true once StaleTime has elapsed without a fresh
// Merge.
func TestStalenessFlipsAfterSourceStops(t *testing.T) {
	key := sensor.Key{SensorName: "fan1", DataSourceName: "synthetic"}
	src := synthetic.New("synthetic", synthetic.Constant(key, sensor.UnitRPM, sensor.Float64(1200)))

	clock := newFakeClock(time.Unix(0, 0))
	bus := broadcast.New[[]byte](4, discardLogger())

	cfg := Config{
		Period:    time.Second,
		EWMAAlpha: 0.3,
		StaleTime: 5 * time.Second,
		Hostname:  "test-host",
		OS:        "test-os",
	}
	loop := New(cfg, []sensor.Source{src}, bus, discardLogger(), clock.now)

	loop.tick(context.Background(), clock.now())
	entries := loop.Map().Entries()
	require.Len(t, entries, 1)
	require.False(t, entries[0].Data.Stale(clock.now(), cfg.StaleTime))

	src.Stop()
	clock.advance(cfg.StaleTime + time.Second)
	loop.tick(context.Background(), clock.now())

	entries = loop.Map().Entries()
	require.Len(t, entries, 1, "a stopped source's last reading stays in the map, just marked stale")
	require.True(t, entries[0].Data.Stale(clock.now(), cfg.StaleTime))
}

// TestRunStopsOnContextCancel exercises the Run ticker loop end to end with
// a short period, confirming cancellation is observed promptly rather than
// only at the next tick boundary being starved.
func TestRunStopsOnContextCancel(t *testing.T) {
	src := synthetic.New("synthetic")
	bus := broadcast.New[[]byte](4, discardLogger())
	cfg := Config{Period: 5 * time.Millisecond, EWMAAlpha: 0.5, StaleTime: time.Minute, Hostname: "h", OS: "o"}
	loop := New(cfg, []sensor.Source{src}, bus, discardLogger(), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := loop.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
