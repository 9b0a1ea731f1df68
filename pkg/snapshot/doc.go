// Package snapshot serializes an aggregate.Map plus host identity into the
// versioned binary frame that crosses the wire between the daemon and its
// clients.
//
// The frame is a flat, self-delimiting sequence of length-prefixed strings
// and fixed-width big-endian integers built on encoding/binary, chosen over
// a schema-compiler-backed format to avoid an offline codegen step. Host
// UUID derivation is deterministic given a MAC address (github.com/google/uuid's
// NewSHA1), and the package init asserts the embedded schema version
// against the running build's own version, refusing to start on mismatch.
package snapshot
