package schema

import (
	"errors"
	"testing"
)

func TestParseBytePattern(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantAny bool
		wantVal byte
		wantErr bool
	}{
		{"wildcard", "*", true, 0, false},
		{"lowercase hex", "fe", false, 0xFE, false},
		{"uppercase hex", "FE", false, 0xFE, false},
		{"mixed case", "aB", false, 0xAB, false},
		{"zero", "00", false, 0x00, false},
		{"too short", "f", false, 0, true},
		{"too long", "fff", false, 0, true},
		{"not hex", "zz", false, 0, true},
		{"empty", "", false, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseBytePattern(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseBytePattern(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidPattern) {
					t.Errorf("error %v is not ErrInvalidPattern", err)
				}
				return
			}
			if got.Any != tt.wantAny || got.Value != tt.wantVal {
				t.Errorf("ParseBytePattern(%q) = %+v, want Any=%v Value=%02x", tt.in, got, tt.wantAny, tt.wantVal)
			}
		})
	}
}

func TestBytePatternMatches(t *testing.T) {
	wild := BytePattern{Any: true}
	for _, b := range []byte{0x00, 0x08, 0xFF} {
		if !wild.Matches(b) {
			t.Errorf("wildcard should match %02x", b)
		}
	}

	lit := BytePattern{Value: 0x08}
	if !lit.Matches(0x08) {
		t.Error("literal 08 should match 0x08")
	}
	if lit.Matches(0x09) {
		t.Error("literal 08 should not match 0x09")
	}
}

func TestParseDataPattern(t *testing.T) {
	tests := []struct {
		name         string
		in           string
		wantAnchored bool
		wantLen      int
		wantErr      bool
	}{
		{"exact", "7547", false, 2, false},
		{"anchored", "^7547", true, 2, false},
		{"uppercase", "^75AB", true, 2, false},
		{"empty exact", "", false, 0, false},
		{"empty anchored", "^", true, 0, false},
		{"odd length", "754", false, 0, true},
		{"not hex", "75zz", false, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDataPattern(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDataPattern(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got.Anchored != tt.wantAnchored || len(got.Bytes) != tt.wantLen {
				t.Errorf("ParseDataPattern(%q) = %+v, want anchored=%v len=%d", tt.in, got, tt.wantAnchored, tt.wantLen)
			}
		})
	}
}

func TestDataPatternMatches(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		payload []byte
		want    bool
	}{
		{"anchored prefix match", "^7547", []byte{0x75, 0x47, 0x19, 0x02}, true},
		{"anchored prefix exact length", "^7547", []byte{0x75, 0x47}, true},
		{"anchored prefix mismatch", "^7547", []byte{0x75, 0x48, 0x19}, false},
		{"anchored longer than payload", "^7547", []byte{0x75}, false},
		{"exact match", "7547", []byte{0x75, 0x47}, true},
		{"exact rejects trailing bytes", "7547", []byte{0x75, 0x47, 0x19}, false},
		{"exact rejects shorter payload", "7547", []byte{0x75}, false},
		{"case-insensitive literal", "^75AB", []byte{0x75, 0xAB, 0x00}, true},
		{"empty exact matches empty", "", []byte{}, true},
		{"empty exact rejects bytes", "", []byte{0x01}, false},
		{"empty anchored matches anything", "^", []byte{0x01, 0x02}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParseDataPattern(tt.pattern)
			if err != nil {
				t.Fatalf("ParseDataPattern(%q): %v", tt.pattern, err)
			}
			if got := p.Matches(tt.payload); got != tt.want {
				t.Errorf("pattern %q Matches(% x) = %v, want %v", tt.pattern, tt.payload, got, tt.want)
			}
		})
	}
}

func TestParseCommand(t *testing.T) {
	cmd, err := ParseCommand("b509")
	if err != nil {
		t.Fatalf("ParseCommand(b509): %v", err)
	}
	if cmd != 0xB509 {
		t.Errorf("ParseCommand(b509) = %04x, want b509", cmd)
	}

	for _, bad := range []string{"", "b5", "b5090", "zzzz"} {
		if _, err := ParseCommand(bad); err == nil {
			t.Errorf("ParseCommand(%q) should fail", bad)
		}
	}
}

func TestPatternSpecMatches(t *testing.T) {
	cmd := uint16(0x2000)
	data, _ := ParseDataPattern("^7547")
	spec := PatternSpec{
		Source:  BytePattern{Any: true},
		Dest:    BytePattern{Value: 0xFE},
		Command: &cmd,
		Data:    data,
	}

	if !spec.Matches(0x03, 0xFE, 0x2000, []byte{0x75, 0x47, 0x19}) {
		t.Error("spec should match telegram with wildcard source")
	}
	if spec.Matches(0x03, 0xFD, 0x2000, []byte{0x75, 0x47}) {
		t.Error("spec should reject wrong destination")
	}
	if spec.Matches(0x03, 0xFE, 0x2001, []byte{0x75, 0x47}) {
		t.Error("spec should reject wrong command")
	}
	if spec.Matches(0x03, 0xFE, 0x2000, []byte{0x75, 0x48}) {
		t.Error("spec should reject payload mismatch")
	}

	// Nil command and nil data leave those dimensions unconstrained.
	open := PatternSpec{Source: BytePattern{Any: true}, Dest: BytePattern{Any: true}}
	if !open.Matches(0x01, 0x02, 0xABCD, []byte{0xFF}) {
		t.Error("open spec should match anything")
	}
}
