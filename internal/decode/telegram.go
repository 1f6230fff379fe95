package decode

import "fmt"

// Telegram is one decodable bus exchange as seen by the engine: the request
// frame's addressing, command identifier and payload, plus the slave's
// response payload when the exchange had one.
//
// The transport layer owns framing, checksums and acknowledgement; by the
// time a Telegram reaches the engine those have already been verified.
type Telegram struct {
	// Source is the master's bus address.
	Source byte

	// Dest is the destination address (0xFE for broadcasts).
	Dest byte

	// Command is the primary+secondary command identifier (PBSB).
	Command uint16

	// Data is the request payload: the application-layer bytes following
	// the addressing and command bytes. Field offsets are relative to this
	// slice, never to the whole frame.
	Data []byte

	// Response is the slave response payload, nil when the exchange had no
	// response (broadcasts, unanswered requests).
	Response []byte
}

// HasResponse reports whether the exchange carried a slave response.
func (t Telegram) HasResponse() bool {
	return t.Response != nil
}

// String returns a compact representation for logging.
func (t Telegram) String() string {
	if t.HasResponse() {
		return fmt.Sprintf("telegram{src:%02x dst:%02x cmd:%04x data:%x resp:%x}",
			t.Source, t.Dest, t.Command, t.Data, t.Response)
	}
	return fmt.Sprintf("telegram{src:%02x dst:%02x cmd:%04x data:%x}",
		t.Source, t.Dest, t.Command, t.Data)
}
