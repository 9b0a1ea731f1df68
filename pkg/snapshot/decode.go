package snapshot

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/pchmd/pchmd/pkg/sensor"
)

// reader walks a decode buffer, turning short-read conditions into
// ErrTruncated instead of propagating bytes.Reader's EOF directly, so
// callers get one consistent sentinel regardless of which field ran out.
type reader struct {
	b *bytes.Reader
}

// Decode parses a single ComputerInfo frame previously produced by Encode.
// It is the reference reader referenced by testable property 7: decoding
// what Encode produced must reconstruct every stat, unit and staleness bit
// unchanged.
func Decode(data []byte) (*ComputerInfo, error) {
	r := &reader{b: bytes.NewReader(data)}

	name, err := r.readString()
	if err != nil {
		return nil, err
	}
	upper, err := r.readUint64()
	if err != nil {
		return nil, err
	}
	lower, err := r.readUint64()
	if err != nil {
		return nil, err
	}
	osName, err := r.readString()
	if err != nil {
		return nil, err
	}
	major, err := r.readUint16()
	if err != nil {
		return nil, err
	}
	minor, err := r.readUint16()
	if err != nil {
		return nil, err
	}
	patch, err := r.readUint16()
	if err != nil {
		return nil, err
	}

	count, err := r.readUint32()
	if err != nil {
		return nil, err
	}

	sensors := make([]SensorEntry, 0, count)
	for i := uint32(0); i < count; i++ {
		e, err := r.readSensorEntry()
		if err != nil {
			return nil, fmt.Errorf("snapshot: decode sensor %d: %w", i, err)
		}
		sensors = append(sensors, e)
	}

	return &ComputerInfo{
		Name:            name,
		UUIDUpper:       upper,
		UUIDLower:       lower,
		OperatingSystem: osName,
		ServerVersion:   Version{Major: major, Minor: minor, Patch: patch},
		Sensors:         sensors,
	}, nil
}

func (r *reader) readSensorEntry() (SensorEntry, error) {
	var e SensorEntry
	var err error

	if e.SensorName, err = r.readString(); err != nil {
		return e, err
	}
	if e.DataSourceName, err = r.readString(); err != nil {
		return e, err
	}
	if e.Current, err = r.readValue(); err != nil {
		return e, err
	}
	if e.Average, err = r.readValue(); err != nil {
		return e, err
	}
	if e.Minimum, err = r.readValue(); err != nil {
		return e, err
	}
	if e.Maximum, err = r.readValue(); err != nil {
		return e, err
	}

	unitByte, err := r.readByte()
	if err != nil {
		return e, err
	}
	unit := sensor.Unit(unitByte)
	if unit > sensor.UnitPercentage {
		return e, ErrUnknownUnit
	}
	e.Unit = unit

	staleByte, err := r.readByte()
	if err != nil {
		return e, err
	}
	e.IsStale = staleByte != 0

	return e, nil
}

func (r *reader) readValue() (sensor.Value, error) {
	tag, err := r.readByte()
	if err != nil {
		return sensor.Value{}, err
	}
	switch tag {
	case tagFloat:
		f, err := r.readFloat64()
		if err != nil {
			return sensor.Value{}, err
		}
		return sensor.Float64(f), nil
	case tagBool:
		b, err := r.readByte()
		if err != nil {
			return sensor.Value{}, err
		}
		return sensor.WireBool(b != 0), nil
	case tagString:
		s, err := r.readString()
		if err != nil {
			return sensor.Value{}, err
		}
		return sensor.TextValue(s), nil
	default:
		return sensor.Value{}, ErrUnknownValueTag
	}
}

func (r *reader) readString() (string, error) {
	n, err := r.readUint32()
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := readFull(r.b, buf); err != nil {
		return "", ErrTruncated
	}
	return string(buf), nil
}

func (r *reader) readByte() (byte, error) {
	b, err := r.b.ReadByte()
	if err != nil {
		return 0, ErrTruncated
	}
	return b, nil
}

func (r *reader) readUint16() (uint16, error) {
	var v uint16
	if err := binary.Read(r.b, binary.BigEndian, &v); err != nil {
		return 0, ErrTruncated
	}
	return v, nil
}

func (r *reader) readUint32() (uint32, error) {
	var v uint32
	if err := binary.Read(r.b, binary.BigEndian, &v); err != nil {
		return 0, ErrTruncated
	}
	return v, nil
}

func (r *reader) readUint64() (uint64, error) {
	var v uint64
	if err := binary.Read(r.b, binary.BigEndian, &v); err != nil {
		return 0, ErrTruncated
	}
	return v, nil
}

func (r *reader) readFloat64() (float64, error) {
	var v float64
	if err := binary.Read(r.b, binary.BigEndian, &v); err != nil {
		return 0, ErrTruncated
	}
	return v, nil
}

func readFull(r *bytes.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}
