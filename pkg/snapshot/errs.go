package snapshot

import "errors"

var (
	// ErrTruncated indicates the decoder ran out of bytes mid-frame.
	ErrTruncated = errors.New("snapshot: truncated frame")

	// ErrUnknownValueTag indicates a SensorValue union tag byte the decoder
	// does not recognize.
	ErrUnknownValueTag = errors.New("snapshot: unknown sensor value tag")

	// ErrUnknownUnit indicates a measurement-unit byte the decoder does not
	// recognize.
	ErrUnknownUnit = errors.New("snapshot: unknown measurement unit")

	// ErrServerBoolVariant indicates the encoder was asked to serialize a
	// server-constructed sensor.KindBool value, which is unreachable by
	// construction; encountering it indicates a bug upstream rather than a
	// malformed snapshot.
	ErrServerBoolVariant = errors.New("snapshot: server-side Bool variant is unreachable")
)
