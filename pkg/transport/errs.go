package transport

import "errors"

var (
	// ErrHandshakeFailed is logged (not returned) when a peer's QUIC
	// handshake fails before reaching ACTIVE; the connection task
	// terminates immediately without ever touching the broadcast bus.
	ErrHandshakeFailed = errors.New("transport: handshake failed")

	// ErrPayloadTooLarge is returned by the client when a stream exceeds
	// the per-snapshot maximum size.
	ErrPayloadTooLarge = errors.New("transport: snapshot payload exceeds maximum size")
)

// MaxSnapshotSize bounds how many bytes the client will read from a single
// unidirectional stream before giving up.
const MaxSnapshotSize = 1 << 20 // 1 MiB
