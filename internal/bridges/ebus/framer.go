package ebus

// Enhanced-protocol command nibbles, adapter to host.
const (
	enhResetted  byte = 0x00
	enhReceived  byte = 0x01
	enhStarted   byte = 0x02
	enhInfo      byte = 0x03
	enhFailed    byte = 0x0A
	enhErrorBus  byte = 0x0B
	enhErrorHost byte = 0x0C
)

// Enhanced-protocol command nibbles, host to adapter.
const (
	enhInit byte = 0x00
	enhSend byte = 0x01
)

// decodeEscape unpacks a two-byte enhanced-protocol escape into its command
// nibble and data byte. The first byte carries the top two data bits and the
// command, the second the low six data bits.
func decodeEscape(b1, b2 byte) (cmd, data byte) {
	data = (b1-0xC0)<<6 + (b2 - 0x80)
	cmd = (b1 - 0xC0) >> 2
	return cmd, data
}

// encodeEscape packs a command nibble and data byte into the two-byte escape
// the adapter expects on the host-to-adapter side.
func encodeEscape(cmd, data byte) (b1, b2 byte) {
	b1 = 0xC0 | cmd<<2 | data>>6
	b2 = 0x80 | data&0x3F
	return b1, b2
}

// framerState tracks progress through one bus telegram.
type framerState int

const (
	stateSYN framerState = iota
	stateSource
	stateDest
	statePrimary
	stateSecondary
	stateLength
	stateData
	stateCRC
	stateACK
	stateResponse
)

// Framer reassembles the adapter's byte stream into completed exchanges.
//
// It unwraps the enhanced-protocol escapes, then runs the telegram state
// machine over the bus bytes proper. Completed exchanges with a valid CRC are
// handed to the callback; frames with a bad CRC, a NACK, or an oversized
// length byte are dropped and the framer resynchronises on the next SYN.
//
// A Framer is single-owner state: only the transport's read loop touches it.
type Framer struct {
	handler func(Exchange)
	logger  Logger

	state      framerState
	request    Frame
	response   Response
	remaining  int
	inResponse bool
	broadcast  bool

	// First byte of an escape whose second byte has not arrived yet.
	pending    byte
	hasPending bool
}

// NewFramer creates a framer delivering completed exchanges to handler.
func NewFramer(handler func(Exchange)) *Framer {
	return &Framer{handler: handler}
}

// SetLogger sets the logger for protocol diagnostics.
func (f *Framer) SetLogger(logger Logger) {
	f.logger = logger
}

// Feed consumes a chunk of the adapter stream. Escapes split across chunk
// boundaries are carried over to the next call.
func (f *Framer) Feed(data []byte) {
	for _, b := range data {
		if f.hasPending {
			first := f.pending
			f.hasPending = false
			if b&0x80 != 0x80 {
				f.logDebug("malformed escape sequence", "first", first, "second", b)
				continue
			}
			cmd, value := decodeEscape(first, b)
			if cmd == enhReceived {
				f.step(value)
			} else {
				f.noteAdapterEvent(cmd, value)
			}
			continue
		}
		if b&0xC0 == 0xC0 {
			f.pending = b
			f.hasPending = true
			continue
		}
		f.step(b)
	}
}

// noteAdapterEvent logs enhanced-protocol notifications that carry no bus
// byte. None of them invalidate the frame in progress.
func (f *Framer) noteAdapterEvent(cmd, value byte) {
	switch cmd {
	case enhResetted:
		f.logDebug("adapter reset")
	case enhStarted:
		f.logDebug("arbitration started", "address", value)
	case enhInfo:
		f.logDebug("adapter info byte", "value", value)
	case enhFailed:
		f.logDebug("arbitration failed")
	case enhErrorBus:
		f.logDebug("adapter reported bus error", "code", value)
	case enhErrorHost:
		f.logDebug("adapter reported host error", "code", value)
	default:
		f.logDebug("unknown adapter notification", "cmd", cmd, "value", value)
	}
}

// step advances the telegram state machine by one bus byte.
func (f *Framer) step(b byte) {
	switch f.state {
	case stateSYN:
		if b == SYN {
			f.state = stateSource
		}

	case stateSource:
		// The bus idles as a run of SYNs; skip them.
		if b != SYN {
			f.request.Source = b
			f.state = stateDest
		}

	case stateDest:
		f.request.Dest = b
		f.broadcast = b == Broadcast
		f.state = statePrimary

	case statePrimary:
		f.request.Command = uint16(b) << 8
		f.state = stateSecondary

	case stateSecondary:
		f.request.Command |= uint16(b)
		f.state = stateLength

	case stateLength:
		f.beginPayload(b)

	case stateData:
		if f.inResponse {
			f.response.Data = append(f.response.Data, b)
		} else {
			f.request.Data = append(f.request.Data, b)
		}
		f.remaining--
		if f.remaining == 0 {
			f.state = stateCRC
		}

	case stateCRC:
		if f.inResponse {
			f.response.CRC = b
			if f.response.Checksum() != b {
				f.logDebug("response CRC mismatch", "got", b, "want", f.response.Checksum())
				f.reset()
				return
			}
		} else {
			f.request.CRC = b
			if f.request.Checksum() != b {
				f.logDebug("request CRC mismatch", "got", b, "want", f.request.Checksum(), "frame", f.request.String())
				f.reset()
				return
			}
		}
		f.state = stateACK

	case stateACK:
		switch b {
		case ACK:
			if f.inResponse {
				f.emit(true)
				f.state = stateSYN
			} else {
				f.state = stateResponse
			}
		case NACK:
			// Receiver rejected the frame; the sender retransmits.
			f.reset()
		case SYN:
			// Broadcasts are never acknowledged: the SYN closes them.
			// It also opens the next telegram.
			if f.broadcast && !f.inResponse {
				f.emit(false)
			} else {
				f.reset()
			}
			f.state = stateSource
		default:
			f.logDebug("unexpected byte in place of ACK", "byte", b)
			f.reset()
		}

	case stateResponse:
		if b == SYN {
			// Master-master telegram: acknowledged, no reply.
			f.emit(false)
			f.state = stateSource
			return
		}
		f.inResponse = true
		f.beginPayload(b)
	}
}

// beginPayload consumes a length byte for the request or response payload.
func (f *Framer) beginPayload(length byte) {
	if length > maxDataLen {
		f.logDebug("length byte exceeds bus limit", "length", length)
		f.reset()
		return
	}
	f.remaining = int(length)
	if f.inResponse {
		f.response.Data = make([]byte, 0, length)
	} else {
		f.request.Data = make([]byte, 0, length)
	}
	if f.remaining == 0 {
		f.state = stateCRC
	} else {
		f.state = stateData
	}
}

// emit hands the completed exchange to the handler and clears for the next.
func (f *Framer) emit(withResponse bool) {
	ex := Exchange{Request: f.request}
	if withResponse {
		resp := f.response
		ex.Response = &resp
	}
	if f.handler != nil {
		f.handler(ex)
	}
	f.request = Frame{}
	f.response = Response{}
	f.remaining = 0
	f.inResponse = false
	f.broadcast = false
}

// reset drops the frame in progress and waits for the next SYN.
func (f *Framer) reset() {
	f.request = Frame{}
	f.response = Response{}
	f.remaining = 0
	f.inResponse = false
	f.broadcast = false
	f.state = stateSYN
}

// logDebug logs a protocol diagnostic if a logger is set.
func (f *Framer) logDebug(msg string, keysAndValues ...any) {
	if f.logger != nil {
		f.logger.Debug(msg, keysAndValues...)
	}
}
