package broadcast

import (
	"context"
	"log/slog"
	"sync"
)

// Bus is a bounded multi-producer/multi-consumer fan-out channel. The
// update loop is the sole producer; each accepted peer holds its own
// Subscription. Publish never blocks: a receiver that falls behind the
// bus's capacity loses the snapshots it never drained in favor of the
// newest one, favoring liveness over completeness for a telemetry stream.
// Built directly on sync.Mutex and buffered channels.
type Bus[T any] struct {
	mu       sync.Mutex
	capacity int
	logger   *slog.Logger
	subs     map[uint64]chan T
	nextID   uint64
	closed   bool
}

// New constructs a Bus with the given per-subscriber backlog capacity.
// Capacity should be at least 1; the default caller (cmd/pchmd-server)
// sizes it to ceil(2/update_period_seconds), about two seconds of backlog.
func New[T any](capacity int, logger *slog.Logger) *Bus[T] {
	if capacity < 1 {
		capacity = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus[T]{
		capacity: capacity,
		logger:   logger,
		subs:     make(map[uint64]chan T),
	}
}

// Subscription is a single consumer's view of a Bus.
type Subscription[T any] struct {
	id  uint64
	ch  chan T
	bus *Bus[T]
}

// Subscribe registers a new receiver and returns its Subscription. Closing
// a Subscription (via Close) removes it from the bus; it is also removed
// automatically once the bus itself is closed.
func (b *Bus[T]) Subscribe() *Subscription[T] {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan T, b.capacity)
	if b.closed {
		close(ch)
	} else {
		b.subs[id] = ch
	}
	return &Subscription[T]{id: id, ch: ch, bus: b}
}

// Publish delivers v to every current subscriber without blocking. If a
// subscriber's buffer is full, Publish drops that subscriber's oldest
// buffered value to make room and logs once per occurrence. If there are no subscribers at all, Publish logs once
// and returns; a cold-start daemon with no clients connected yet is normal
// operation, not an error.
func (b *Bus[T]) Publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	if len(b.subs) == 0 {
		b.logger.Debug("broadcast: publish with no subscribers")
		return
	}

	for id, ch := range b.subs {
		select {
		case ch <- v:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- v:
			default:
			}
			b.logger.Warn("broadcast: subscriber lagging, dropped oldest buffered snapshot", "subscriber", id)
		}
	}
}

// Close shuts the bus down: every current and future subscriber's channel
// is closed, which Recv surfaces as ErrClosed.
func (b *Bus[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = make(map[uint64]chan T)
}

func (b *Bus[T]) unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, id)
}

// Recv waits for the next value. Because Publish drops a lagging
// subscriber's oldest buffered value to make room (logging the drop
// itself), the buffer always holds the newest values up to the bus's
// capacity, and Recv returns them oldest first — the caller does not need a
// separate Lagged signal to "continue with the next snapshot", the next
// value it reads is already the oldest one still kept. Recv returns
// ErrClosed once the bus has been closed and no buffered values remain,
// and ctx.Err() if ctx is done first.
func (s *Subscription[T]) Recv(ctx context.Context) (T, error) {
	var zero T
	select {
	case v, ok := <-s.ch:
		if !ok {
			return zero, ErrClosed
		}
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Close unregisters this subscription from its Bus.
func (s *Subscription[T]) Close() {
	s.bus.unsubscribe(s.id)
}

// C exposes the subscription's raw delivery channel for callers that need
// to multiplex it into their own select alongside other events (shutdown
// signals, peer-loss notifications) — Go's select carries no priority
// between ready cases, so callers needing one, like pkg/transport's
// per-peer connection loop, do a non-blocking priority pre-check before
// falling into a select that includes this channel. The channel is closed
// exactly when Recv would return ErrClosed.
func (s *Subscription[T]) C() <-chan T {
	return s.ch
}
