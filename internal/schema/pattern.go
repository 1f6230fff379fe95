package schema

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// Wildcard is the pattern string matching any byte in its position.
const Wildcard = "*"

// AnchorMarker prefixes a data pattern to request prefix matching: the
// payload must start with the literal bytes, trailing bytes unconstrained.
const AnchorMarker = '^'

// BytePattern matches a single address byte: either one exact value or any.
type BytePattern struct {
	// Any matches every byte when true; Value is ignored.
	Any bool

	// Value is the literal byte to match when Any is false.
	Value byte
}

// Matches reports whether b satisfies the pattern.
func (p BytePattern) Matches(b byte) bool {
	return p.Any || p.Value == b
}

// String returns the document form of the pattern ("*" or two hex digits).
func (p BytePattern) String() string {
	if p.Any {
		return Wildcard
	}
	return fmt.Sprintf("%02x", p.Value)
}

// ParseBytePattern parses an address pattern: "*" or exactly two hex digits.
// Hex digits are case-insensitive.
func ParseBytePattern(s string) (BytePattern, error) {
	if s == Wildcard {
		return BytePattern{Any: true}, nil
	}
	if len(s) != 2 {
		return BytePattern{}, fmt.Errorf("%w: address pattern %q must be \"*\" or two hex digits", ErrInvalidPattern, s)
	}
	v, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return BytePattern{}, fmt.Errorf("%w: address pattern %q: %v", ErrInvalidPattern, s, err)
	}
	return BytePattern{Value: byte(v)}, nil
}

// DataPattern matches a payload byte sequence.
//
// A non-anchored pattern requires the payload to equal the literal bytes in
// full. An anchored pattern requires only the leading payload bytes to equal
// the literal; trailing bytes are unconstrained. There is no implicit
// padding: a literal longer than the payload never matches.
type DataPattern struct {
	// Anchored selects prefix matching ("^" marker in the document).
	Anchored bool

	// Bytes is the literal byte sequence.
	Bytes []byte
}

// Matches reports whether payload satisfies the pattern.
func (p *DataPattern) Matches(payload []byte) bool {
	if p.Anchored {
		if len(payload) < len(p.Bytes) {
			return false
		}
		return bytes.Equal(payload[:len(p.Bytes)], p.Bytes)
	}
	return bytes.Equal(payload, p.Bytes)
}

// String returns the document form of the pattern.
func (p *DataPattern) String() string {
	if p.Anchored {
		return "^" + hex.EncodeToString(p.Bytes)
	}
	return hex.EncodeToString(p.Bytes)
}

// ParseDataPattern parses a payload pattern: an even-length hex string,
// optionally prefixed with "^" for anchored (prefix) matching.
// Hex digits are case-insensitive.
func ParseDataPattern(s string) (*DataPattern, error) {
	p := &DataPattern{}
	if len(s) > 0 && s[0] == AnchorMarker {
		p.Anchored = true
		s = s[1:]
	}
	b, err := hex.DecodeString(strings.ToLower(s))
	if err != nil {
		return nil, fmt.Errorf("%w: data pattern %q: %v", ErrInvalidPattern, s, err)
	}
	p.Bytes = b
	return p, nil
}

// ParseCommand parses a primary+secondary command identifier: exactly four
// hex digits (e.g., "b509"). The command is always an exact match; it is the
// coarse routing key evaluated before any payload pattern.
func ParseCommand(s string) (uint16, error) {
	if len(s) != 4 {
		return 0, fmt.Errorf("%w: command %q must be four hex digits", ErrInvalidPattern, s)
	}
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("%w: command %q: %v", ErrInvalidPattern, s, err)
	}
	return uint16(v), nil
}

// PatternSpec is the compiled matching criteria for one telegram direction.
type PatternSpec struct {
	// Source matches the telegram source address.
	Source BytePattern

	// Dest matches the telegram destination address.
	Dest BytePattern

	// Command is the exact primary+secondary command identifier.
	// Nil matches any command.
	Command *uint16

	// Data matches the payload. Nil leaves the payload unconstrained.
	Data *DataPattern
}

// MatchesHeader reports whether the addressing bytes and command identifier
// satisfy the spec. This is the cheap check; evaluate it before the payload.
func (p *PatternSpec) MatchesHeader(src, dst byte, command uint16) bool {
	if !p.Source.Matches(src) || !p.Dest.Matches(dst) {
		return false
	}
	return p.Command == nil || *p.Command == command
}

// MatchesPayload reports whether the payload satisfies the spec's data
// pattern. A spec without a data pattern accepts any payload.
func (p *PatternSpec) MatchesPayload(payload []byte) bool {
	return p.Data == nil || p.Data.Matches(payload)
}

// Matches reports whether a complete telegram satisfies the spec.
func (p *PatternSpec) Matches(src, dst byte, command uint16, payload []byte) bool {
	return p.MatchesHeader(src, dst, command) && p.MatchesPayload(payload)
}
