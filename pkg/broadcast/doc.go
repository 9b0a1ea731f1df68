// Package broadcast provides Bus, a bounded fan-out channel from one
// producer (the update loop) to any number of independent consumers (one
// per connected peer). A slow consumer never blocks the producer: Publish
// drops the consumer's oldest buffered value to make room for the newest,
// matching the freshness-over-completeness policy a telemetry stream
// wants.
package broadcast
