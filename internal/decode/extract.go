package decode

import (
	"encoding/binary"
	"fmt"

	"github.com/ebushome/ebus2mqtt/internal/schema"
)

// Field is one decoded, scaled, unit-tagged value.
type Field struct {
	// Name is the field name from the mapping.
	Name string

	// Value is the extracted value after factor scaling. It is always a
	// float64, even for integer encodings with factor 1, so downstream
	// formatting is uniform.
	Value float64

	// Unit is the unit label from the mapping. May be empty.
	Unit string
}

// Extract decodes every mapping in list order from the payload.
//
// For each mapping it reads the declared width at the declared offset,
// interprets the bytes per the declared encoding, multiplies by the scale
// factor and tags the result with name and unit.
//
// Extraction is all-or-nothing: the first failing field aborts the rest and
// is reported once by name. Failures are ErrOutOfRange when offset+width
// exceeds the payload, or ErrUnknownType for an unrecognised encoding.
func Extract(mappings []schema.FieldMapping, payload []byte) ([]Field, error) {
	fields := make([]Field, 0, len(mappings))
	for _, m := range mappings {
		raw, err := readRaw(m, payload)
		if err != nil {
			return nil, err
		}
		fields = append(fields, Field{
			Name:  m.Name,
			Value: raw * m.Factor,
			Unit:  m.Unit,
		})
	}
	return fields, nil
}

// readRaw reads and interprets the unscaled value of one mapping.
func readRaw(m schema.FieldMapping, payload []byte) (float64, error) {
	width := m.Type.Width()
	if width == 0 {
		return 0, fmt.Errorf("%w: field %q", ErrUnknownType, m.Name)
	}
	// Compared this way round so an absurd offset cannot overflow the sum.
	if m.Offset < 0 || m.Offset > len(payload)-width {
		return 0, fmt.Errorf("%w: field %q needs %d bytes at offset %d of %d-byte payload",
			ErrOutOfRange, m.Name, width, m.Offset, len(payload))
	}

	b := payload[m.Offset : m.Offset+width]
	switch m.Type {
	case schema.TypeU8:
		return float64(b[0]), nil
	case schema.TypeI8:
		return float64(int8(b[0])), nil
	case schema.TypeU16LE:
		return float64(binary.LittleEndian.Uint16(b)), nil
	case schema.TypeU16BE:
		return float64(binary.BigEndian.Uint16(b)), nil
	case schema.TypeI16LE:
		return float64(int16(binary.LittleEndian.Uint16(b))), nil
	case schema.TypeI16BE:
		return float64(int16(binary.BigEndian.Uint16(b))), nil
	case schema.TypeU32LE:
		return float64(binary.LittleEndian.Uint32(b)), nil
	case schema.TypeU32BE:
		return float64(binary.BigEndian.Uint32(b)), nil
	case schema.TypeI32LE:
		return float64(int32(binary.LittleEndian.Uint32(b))), nil
	case schema.TypeI32BE:
		return float64(int32(binary.BigEndian.Uint32(b))), nil
	default:
		return 0, fmt.Errorf("%w: field %q", ErrUnknownType, m.Name)
	}
}
