package transport

import (
	"context"
	"log/slog"

	"github.com/pchmd/pchmd/pkg/broadcast"
	"github.com/qmuntal/stateless"
	"github.com/quic-go/quic-go"
)

// connection drives one accepted peer from handshake through to a clean
// drain. Ownership is a strict tree — connection owns its monitor, the
// monitor owns nothing but forwards one-shot peer-loss notifications back
// up — avoiding any reference cycle between the two.
type connection struct {
	conn   *quic.Conn
	sub    *broadcast.Subscription[[]byte]
	sm     *stateless.StateMachine
	logger *slog.Logger

	peerLost chan struct{}
	handles  chan chan error
}

// runConnection is the per-peer task spawned by the accept loop. shutdown
// is the server's shared cancellation context, observed by every per-peer
// task.
func runConnection(shutdown context.Context, conn *quic.Conn, sub *broadcast.Subscription[[]byte], logger *slog.Logger) {
	defer sub.Close()

	c := &connection{
		conn:     conn,
		sub:      sub,
		sm:       newPeerStateMachine(),
		logger:   logger.With("peer", conn.RemoteAddr().String()),
		peerLost: make(chan struct{}, 1),
		handles:  make(chan chan error, 16),
	}

	if !c.awaitHandshake(shutdown) {
		return
	}

	monitorDone := make(chan struct{})
	go c.monitor(monitorDone)

	c.activeLoop(shutdown)

	close(c.handles)
	<-monitorDone
	_ = c.sm.Fire(TriggerDrained)
	c.conn.CloseWithError(0, "draining")
	c.logger.Debug("transport: peer connection closed")
}

// awaitHandshake blocks until the QUIC handshake completes, the connection
// fails, or shutdown fires early. Returns false (and has already fired
// TriggerHandshakeFail) if the connection never reached ACTIVE.
func (c *connection) awaitHandshake(shutdown context.Context) bool {
	select {
	case <-c.conn.HandshakeComplete():
		_ = c.sm.Fire(TriggerHandshakeOK)
		return true
	case <-c.conn.Context().Done():
		_ = c.sm.Fire(TriggerHandshakeFail)
		c.logger.Warn("transport: peer handshake failed", "error", ErrHandshakeFailed)
		return false
	case <-shutdown.Done():
		_ = c.sm.Fire(TriggerHandshakeFail)
		c.conn.CloseWithError(0, "server shutting down")
		return false
	}
}

// activeLoop runs the ACTIVE state's event loop, giving shutdown and
// peer-loss priority over delivering the next snapshot. Go's select
// carries no priority between ready cases, so those two events are
// checked with a non-blocking pre-check before the full select runs.
func (c *connection) activeLoop(shutdown context.Context) {
	for {
		select {
		case <-shutdown.Done():
			_ = c.sm.Fire(TriggerShutdown)
			return
		case <-c.peerLost:
			_ = c.sm.Fire(TriggerPeerLoss)
			return
		default:
		}

		select {
		case <-shutdown.Done():
			_ = c.sm.Fire(TriggerShutdown)
			return
		case <-c.peerLost:
			_ = c.sm.Fire(TriggerPeerLoss)
			return
		case payload, ok := <-c.sub.C():
			if !ok {
				c.logger.Debug("transport: broadcast bus closed, draining")
				_ = c.sm.Fire(TriggerShutdown)
				return
			}
			c.openStream(shutdown, payload)
		}
	}
}

// openStream spawns the per-snapshot stream task and hands its result
// handle to the monitor in open order, preserving within-peer publish
// order.
func (c *connection) openStream(ctx context.Context, payload []byte) {
	result := make(chan error, 1)
	go func() {
		result <- writeSnapshotStream(ctx, c.conn, payload)
	}()

	select {
	case c.handles <- result:
	default:
		c.logger.Warn("transport: monitor handle queue full, dropping backpressure signal for this stream")
	}
}

// writeSnapshotStream opens one fresh unidirectional stream, writes the
// entire snapshot payload, and finishes it cleanly. Per-snapshot-one-stream
// means each payload is self-delimiting by construction: the peer reads to
// end of stream to get exactly one ComputerInfo.
func writeSnapshotStream(ctx context.Context, conn *quic.Conn, payload []byte) error {
	stream, err := conn.OpenUniStreamSync(ctx)
	if err != nil {
		return err
	}
	if _, err := stream.Write(payload); err != nil {
		return err
	}
	return stream.Close()
}

// monitor consumes stream-task handles in order. A write error notifies the
// connection via the one-shot peerLost channel and the monitor exits
// immediately; a closed handles channel (the connection is already
// draining) is a normal exit, never a false positive.
func (c *connection) monitor(done chan<- struct{}) {
	defer close(done)
	for result := range c.handles {
		if err := <-result; err != nil {
			c.logger.Warn("transport: stream write failed, signaling peer loss", "error", err)
			select {
			case c.peerLost <- struct{}{}:
			default:
			}
			return
		}
	}
}
