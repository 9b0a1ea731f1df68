// Package daemon drives the update loop: on every tick it polls every
// configured sensor source into the aggregation map, encodes a snapshot,
// and publishes it to the broadcast bus for the transport endpoint to fan
// out. Shutdown is the usual context-cancellation idiom, wired through
// signal.NotifyContext by the caller rather than this package.
package daemon

import (
	"context"
	"log/slog"
	"time"

	"github.com/pchmd/pchmd/pkg/aggregate"
	"github.com/pchmd/pchmd/pkg/broadcast"
	"github.com/pchmd/pchmd/pkg/sensor"
	"github.com/pchmd/pchmd/pkg/snapshot"
)

// Config holds the update loop's tunables, exposed as CLI flags by
// cmd/pchmd-server (--update-period, --ewma-alpha, --stale-time).
type Config struct {
	Period    time.Duration
	EWMAAlpha float64
	StaleTime time.Duration
	Hostname  string
	OS        string
}

// Loop owns the aggregation map and drives one or more sensor sources on a
// fixed tick, publishing an encoded snapshot to bus after each pass.
type Loop struct {
	cfg     Config
	sources []sensor.Source
	bus     *broadcast.Bus[[]byte]
	logger  *slog.Logger
	now     func() time.Time

	m *aggregate.Map
}

// New builds a Loop with a fresh aggregation map. now defaults to
// time.Now; tests pass a fake clock the same way pkg/aggregate's tests do.
func New(cfg Config, sources []sensor.Source, bus *broadcast.Bus[[]byte], logger *slog.Logger, now func() time.Time) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Loop{
		cfg:     cfg,
		sources: sources,
		bus:     bus,
		logger:  logger,
		now:     now,
		m:       aggregate.NewMap(cfg.EWMAAlpha, logger, now),
	}
}

// Map exposes the aggregation map for callers that need direct read access
// (tests, or a future status endpoint); the Loop remains its sole writer.
func (l *Loop) Map() *aggregate.Map { return l.m }

// Run ticks every cfg.Period until ctx is canceled. Each tick polls every
// source in turn, builds a snapshot from the resulting aggregation map, and
// publishes its encoded bytes to bus. A tick that takes longer than twice
// the period is logged at Warn but never skipped or aborted — the next
// tick simply lands late rather than dropping a sample.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.cfg.Period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("update loop stopping")
			return ctx.Err()
		case tick := <-ticker.C:
			l.tick(ctx, tick)
		}
	}
}

func (l *Loop) tick(ctx context.Context, tick time.Time) {
	for _, src := range l.sources {
		src.Update(ctx, l.m)
	}

	if elapsed := l.now().Sub(tick); elapsed > 2*l.cfg.Period {
		l.logger.Warn("update loop tick overran", "elapsed", elapsed, "period", l.cfg.Period)
	}

	info := snapshot.Build(l.m, l.cfg.Hostname, l.cfg.OS, l.now(), l.cfg.StaleTime)
	payload, err := info.Encode()
	if err != nil {
		l.logger.Error("snapshot encode failed", "error", err)
		return
	}
	l.bus.Publish(payload)
}
