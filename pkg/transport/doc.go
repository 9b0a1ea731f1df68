// Package transport implements the authenticated QUIC fan-out endpoint and
// its per-peer connection state machine: a Server accepts peers, each
// getting its own broadcast.Subscription and a fresh unidirectional stream
// per published snapshot; a Client dials in and reads those streams to
// completion to recover one payload at a time.
package transport
