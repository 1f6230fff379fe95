package decode

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/ebushome/ebus2mqtt/internal/schema"
)

func mapping(name string, offset int, dt schema.DataType, factor float64, unit string) schema.FieldMapping {
	return schema.FieldMapping{Name: name, Offset: offset, Type: dt, Factor: factor, Unit: unit}
}

func TestExtractEncodings(t *testing.T) {
	payload := []byte{0x19, 0xFF, 0x34, 0x12, 0x80, 0x00, 0x00, 0x01}

	tests := []struct {
		name string
		m    schema.FieldMapping
		want float64
	}{
		{"u8", mapping("f", 0, schema.TypeU8, 1, ""), 25},
		{"i8 negative", mapping("f", 1, schema.TypeI8, 1, ""), -1},
		{"u16le", mapping("f", 2, schema.TypeU16LE, 1, ""), 0x1234},
		{"u16be", mapping("f", 2, schema.TypeU16BE, 1, ""), 0x3412},
		{"i16le negative", mapping("f", 3, schema.TypeI16LE, 1, ""), float64(int16(-32750))},
		{"i16be", mapping("f", 2, schema.TypeI16BE, 1, ""), float64(int16(0x3412))},
		{"u32le", mapping("f", 2, schema.TypeU32LE, 1, ""), float64(uint32(0x00801234))},
		{"u32be", mapping("f", 4, schema.TypeU32BE, 1, ""), float64(uint32(0x80000001))},
		{"i32be negative", mapping("f", 4, schema.TypeI32BE, 1, ""), float64(int32(-2147483647))},
		{"i32le", mapping("f", 4, schema.TypeI32LE, 1, ""), float64(int32(0x01000080))},
		{"scaled u8", mapping("f", 0, schema.TypeU8, 0.1, "bar"), 2.5},
		{"negative factor", mapping("f", 0, schema.TypeU8, -2, ""), -50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields, err := Extract([]schema.FieldMapping{tt.m}, payload)
			if err != nil {
				t.Fatalf("Extract: %v", err)
			}
			if len(fields) != 1 {
				t.Fatalf("got %d fields, want 1", len(fields))
			}
			if math.Abs(fields[0].Value-tt.want) > 1e-9 {
				t.Errorf("value = %v, want %v", fields[0].Value, tt.want)
			}
		})
	}
}

func TestExtractRoundTrip(t *testing.T) {
	// A payload byte encoding 25 under u8 with factor 0.1 yields 2.5 bar.
	payload := []byte{0x75, 0x47, 0x19, 0x02, 0x03, 0x50}
	fields, err := Extract([]schema.FieldMapping{
		mapping("boiler_pressure", 2, schema.TypeU8, 0.1, "bar"),
	}, payload)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	f := fields[0]
	if math.Abs(f.Value-2.5) > 1e-9 {
		t.Errorf("boiler_pressure = %v, want 2.5", f.Value)
	}
	if f.Unit != "bar" {
		t.Errorf("unit = %q, want bar", f.Unit)
	}
}

func TestExtractOutOfRange(t *testing.T) {
	payload := []byte{0x01, 0x02, 0x03, 0x04}

	tests := []struct {
		name string
		m    schema.FieldMapping
	}{
		{"offset past end", mapping("late", 10, schema.TypeU8, 1, "")},
		{"width crosses end", mapping("wide", 3, schema.TypeU16LE, 1, "")},
		{"u32 at tail", mapping("quad", 1, schema.TypeU32LE, 1, "")},
		{"offset near integer maximum", mapping("huge", math.MaxInt - 2, schema.TypeU32LE, 1, "")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Extract([]schema.FieldMapping{tt.m}, payload)
			if !errors.Is(err, ErrOutOfRange) {
				t.Fatalf("error = %v, want ErrOutOfRange", err)
			}
			if !strings.Contains(err.Error(), tt.m.Name) {
				t.Errorf("error %q does not name field %q", err, tt.m.Name)
			}
		})
	}
}

func TestExtractAllOrNothing(t *testing.T) {
	// The second mapping fails; no fields from the message survive.
	payload := []byte{0x01, 0x02}
	_, err := Extract([]schema.FieldMapping{
		mapping("ok", 0, schema.TypeU8, 1, ""),
		mapping("broken", 9, schema.TypeU8, 1, ""),
		mapping("never_reached", 1, schema.TypeU8, 1, ""),
	}, payload)
	if !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("error = %v, want ErrOutOfRange", err)
	}
	if !strings.Contains(err.Error(), "broken") {
		t.Errorf("error should name the offending field, got %q", err)
	}
}

func TestExtractOrderPreserved(t *testing.T) {
	payload := []byte{0x0A, 0x0B, 0x0C}
	fields, err := Extract([]schema.FieldMapping{
		mapping("third_byte", 2, schema.TypeU8, 1, ""),
		mapping("first_byte", 0, schema.TypeU8, 1, ""),
	}, payload)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if fields[0].Name != "third_byte" || fields[1].Name != "first_byte" {
		t.Errorf("fields out of declaration order: %v", fields)
	}
}

func TestExtractIntegerFactorStillFloat(t *testing.T) {
	// Factor 1 with an integer type still yields a float64 so downstream
	// formatting is uniform with fractional factors.
	fields, err := Extract([]schema.FieldMapping{
		mapping("flame_power", 0, schema.TypeU8, 1, "%"),
	}, []byte{12})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got := FormatValue(fields[0].Value); got != "12" {
		t.Errorf("FormatValue = %q, want 12", got)
	}
}
