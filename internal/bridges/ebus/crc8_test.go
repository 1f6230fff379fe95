package ebus

import "testing"

func TestChecksumKnownVectors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want byte
	}{
		{"empty", nil, 0x00},
		{"single byte", []byte{0x03}, 0x03},
		{
			// src dst pb sb len data: a boiler broadcast status frame.
			"full frame",
			[]byte{0x03, 0xFE, 0x20, 0x00, 0x06, 0x75, 0x47, 0x19, 0x02, 0x03, 0x50},
			0x75,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := checksum(tt.data); got != tt.want {
				t.Errorf("checksum(%X) = %02X, want %02X", tt.data, got, tt.want)
			}
		})
	}
}

func TestFrameChecksumMatchesByteSequence(t *testing.T) {
	f := Frame{
		Source:  0x03,
		Dest:    0xFE,
		Command: 0x2000,
		Data:    []byte{0x75, 0x47, 0x19, 0x02, 0x03, 0x50},
	}
	want := checksum([]byte{0x03, 0xFE, 0x20, 0x00, 0x06, 0x75, 0x47, 0x19, 0x02, 0x03, 0x50})
	if got := f.Checksum(); got != want {
		t.Errorf("Frame.Checksum() = %02X, want %02X", got, want)
	}
}

func TestResponseChecksumCoversLength(t *testing.T) {
	r := Response{Data: []byte{0xB5, 0x05}}
	want := checksum([]byte{0x02, 0xB5, 0x05})
	if got := r.Checksum(); got != want {
		t.Errorf("Response.Checksum() = %02X, want %02X", got, want)
	}

	// Length participates: same payload bytes cannot be confused with an
	// empty payload plus junk.
	empty := Response{}
	if empty.Checksum() == r.Checksum() {
		t.Error("checksums of distinct responses should differ")
	}
}
