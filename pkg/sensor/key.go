package sensor

// Key identifies one sub-sensor by the pair of its name on the chip and the
// adapter that produced it. Keys are compared structurally; map insertion
// order carries no meaning.
type Key struct {
	SensorName     string
	DataSourceName string
}
