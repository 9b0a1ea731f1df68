package sensor

// Unit is the closed set of physical units a sensor reading can carry on
// the wire. The zero value, UnitNone, encodes the absent case.
type Unit uint8

const (
	UnitNone Unit = iota
	UnitVolt
	UnitAmp
	UnitWatt
	UnitJoule
	UnitCelsius
	UnitSecond
	UnitRPM
	UnitPercentage
)

func (u Unit) String() string {
	switch u {
	case UnitVolt:
		return "V"
	case UnitAmp:
		return "A"
	case UnitWatt:
		return "W"
	case UnitJoule:
		return "J"
	case UnitCelsius:
		return "°C"
	case UnitSecond:
		return "s"
	case UnitRPM:
		return "RPM"
	case UnitPercentage:
		return "%"
	default:
		return ""
	}
}
