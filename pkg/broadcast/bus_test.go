package broadcast

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFanOutLiveness exercises property 8: N idle subscribers each receive
// exactly one delivery per Publish.
func TestFanOutLiveness(t *testing.T) {
	b := New[int](4, nil)
	const n = 5

	subs := make([]*Subscription[int], n)
	for i := range subs {
		subs[i] = b.Subscribe()
	}

	b.Publish(42)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	for _, s := range subs {
		v, err := s.Recv(ctx)
		require.NoError(t, err)
		assert.Equal(t, 42, v)
	}
}

// TestLagIsolation exercises property 9: a subscriber that falls behind
// the bus's capacity loses only the snapshots it never observed, and still
// receives the most recent one once it resumes reading.
func TestLagIsolation(t *testing.T) {
	b := New[int](2, nil)
	slow := b.Subscribe()

	for i := 1; i <= 10; i++ {
		b.Publish(i)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var last int
	for {
		v, err := slow.Recv(ctx)
		if err != nil {
			break
		}
		last = v
		if last == 10 {
			break
		}
	}
	assert.Equal(t, 10, last)
}

// TestCloseSignalsReceivers checks that closing the bus propagates to every
// subscriber's channel.
func TestCloseSignalsReceivers(t *testing.T) {
	b := New[int](1, nil)
	sub := b.Subscribe()
	b.Close()

	_, err := sub.Recv(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

// TestPublishWithNoSubscribers exercises the empty-subscriber diagnostic
// path: it must not panic or block.
func TestPublishWithNoSubscribers(t *testing.T) {
	b := New[int](1, nil)
	assert.NotPanics(t, func() { b.Publish(1) })
}
