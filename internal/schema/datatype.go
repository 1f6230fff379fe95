package schema

import "fmt"

// DataType identifies one of the supported fixed-width payload encodings.
type DataType uint8

// Supported payload encodings. The set is closed: Load rejects anything else.
const (
	TypeU8 DataType = iota
	TypeI8
	TypeU16LE
	TypeU16BE
	TypeI16LE
	TypeI16BE
	TypeU32LE
	TypeU32BE
	TypeI32LE
	TypeI32BE
)

// dataTypeNames maps document tags to compiled types.
var dataTypeNames = map[string]DataType{
	"u8":    TypeU8,
	"i8":    TypeI8,
	"u16le": TypeU16LE,
	"u16be": TypeU16BE,
	"i16le": TypeI16LE,
	"i16be": TypeI16BE,
	"u32le": TypeU32LE,
	"u32be": TypeU32BE,
	"i32le": TypeI32LE,
	"i32be": TypeI32BE,
}

// ParseDataType parses a document data-type tag (e.g., "u16le").
func ParseDataType(s string) (DataType, error) {
	t, ok := dataTypeNames[s]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownDataType, s)
	}
	return t, nil
}

// Width returns the encoded width of the type in bytes.
func (t DataType) Width() int {
	switch t {
	case TypeU8, TypeI8:
		return 1
	case TypeU16LE, TypeU16BE, TypeI16LE, TypeI16BE:
		return 2
	case TypeU32LE, TypeU32BE, TypeI32LE, TypeI32BE:
		return 4
	default:
		return 0
	}
}

// String returns the document tag for the type.
func (t DataType) String() string {
	for name, dt := range dataTypeNames {
		if dt == t {
			return name
		}
	}
	return fmt.Sprintf("DataType(%d)", uint8(t))
}

// FieldMapping describes one extractable value within a payload.
type FieldMapping struct {
	// Name is the field name, unique within its mapping list.
	Name string

	// Offset is the byte offset into the payload (not the whole telegram).
	Offset int

	// Type is the numeric encoding at that offset.
	Type DataType

	// Factor scales the raw value. Defaults to 1 in the document.
	Factor float64

	// Unit is the unit label (e.g., "bar", "°C"). May be empty.
	Unit string
}
