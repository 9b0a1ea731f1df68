package snapshot

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/pchmd/pchmd/pkg/sensor"
)

// Wire tags for the SensorValue union. Stable across schema versions; add
// new tags, never renumber existing ones.
const (
	tagFloat  byte = 0
	tagBool   byte = 1
	tagString byte = 2
)

// Encode serializes c into a self-delimiting binary frame: a flat sequence
// of length-prefixed strings and fixed-width integers, with no external
// schema compiler involved. The result is an immutable byte slice safe to
// share across every subscriber on the broadcast bus without copying.
func (c ComputerInfo) Encode() ([]byte, error) {
	var buf bytes.Buffer

	writeString(&buf, c.Name)
	_ = binary.Write(&buf, binary.BigEndian, c.UUIDUpper)
	_ = binary.Write(&buf, binary.BigEndian, c.UUIDLower)
	writeString(&buf, c.OperatingSystem)
	_ = binary.Write(&buf, binary.BigEndian, c.ServerVersion.Major)
	_ = binary.Write(&buf, binary.BigEndian, c.ServerVersion.Minor)
	_ = binary.Write(&buf, binary.BigEndian, c.ServerVersion.Patch)

	_ = binary.Write(&buf, binary.BigEndian, uint32(len(c.Sensors)))
	for _, s := range c.Sensors {
		writeString(&buf, s.SensorName)
		writeString(&buf, s.DataSourceName)
		if err := writeValue(&buf, s.Current); err != nil {
			return nil, fmt.Errorf("snapshot: encode %s.%s current: %w", s.DataSourceName, s.SensorName, err)
		}
		if err := writeValue(&buf, s.Average); err != nil {
			return nil, fmt.Errorf("snapshot: encode %s.%s average: %w", s.DataSourceName, s.SensorName, err)
		}
		if err := writeValue(&buf, s.Minimum); err != nil {
			return nil, fmt.Errorf("snapshot: encode %s.%s minimum: %w", s.DataSourceName, s.SensorName, err)
		}
		if err := writeValue(&buf, s.Maximum); err != nil {
			return nil, fmt.Errorf("snapshot: encode %s.%s maximum: %w", s.DataSourceName, s.SensorName, err)
		}
		buf.WriteByte(byte(s.Unit))
		buf.WriteByte(boolByte(s.IsStale))
	}

	return buf.Bytes(), nil
}

func writeString(buf *bytes.Buffer, s string) {
	_ = binary.Write(buf, binary.BigEndian, uint32(len(s)))
	buf.WriteString(s)
}

// writeValue encodes a sensor.Value as its wire union: RawBool rounds to a
// boolValue, Float/Text pass through as their matching arm. A server-side
// KindBool is unreachable by construction (see sensor.Value) and is
// reported as an encoder bug rather than silently misencoded.
func writeValue(buf *bytes.Buffer, v sensor.Value) error {
	switch v.Kind {
	case sensor.KindFloat:
		buf.WriteByte(tagFloat)
		_ = binary.Write(buf, binary.BigEndian, v.Float)
	case sensor.KindRawBool:
		buf.WriteByte(tagBool)
		buf.WriteByte(boolByte(v.AsBool()))
	case sensor.KindText:
		buf.WriteByte(tagString)
		writeString(buf, v.Text)
	case sensor.KindBool:
		return ErrServerBoolVariant
	default:
		return fmt.Errorf("snapshot: cannot encode value of kind %s", v.Kind)
	}
	return nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
