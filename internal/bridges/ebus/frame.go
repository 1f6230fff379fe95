package ebus

import (
	"fmt"

	"github.com/ebushome/ebus2mqtt/internal/decode"
)

// Bus control bytes.
const (
	// SYN is the synchronisation byte that separates telegrams. The bus
	// idles as a stream of SYNs.
	SYN byte = 0xAA

	// ACK acknowledges a correctly received frame.
	ACK byte = 0x00

	// NACK rejects a frame; the sender retransmits.
	NACK byte = 0xFF

	// Broadcast is the destination of broadcast telegrams. Broadcasts are
	// never acknowledged; they complete on the next SYN.
	Broadcast byte = 0xFE

	// maxDataLen is the bus limit on a single payload. A length byte above
	// this marks a corrupt frame.
	maxDataLen = 16
)

// Frame is one master telegram: the addressed request half of an exchange.
type Frame struct {
	// Source is the sending master's bus address.
	Source byte

	// Dest is the destination address (a slave, a master, or Broadcast).
	Dest byte

	// Command is the primary/secondary command pair, primary byte high.
	Command uint16

	// Data is the request payload, at most 16 bytes.
	Data []byte

	// CRC is the checksum byte as seen on the wire.
	CRC byte
}

// Checksum computes the CRC-8 a correct frame would carry. It covers the
// source, destination, both command bytes, the length byte, and the payload.
func (f *Frame) Checksum() byte {
	crc := updateCRC(0, f.Source)
	crc = updateCRC(crc, f.Dest)
	crc = updateCRC(crc, byte(f.Command>>8))
	crc = updateCRC(crc, byte(f.Command&0xFF))
	crc = updateCRC(crc, byte(len(f.Data)))
	for _, b := range f.Data {
		crc = updateCRC(crc, b)
	}
	return crc
}

// Encode serialises the frame for transmission: header, length, payload and
// checksum, without the surrounding SYNs. Returns ErrFrameTooLong when the
// payload exceeds the bus limit.
func (f *Frame) Encode() ([]byte, error) {
	if len(f.Data) > maxDataLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLong, len(f.Data))
	}
	out := make([]byte, 0, 6+len(f.Data))
	out = append(out, f.Source, f.Dest, byte(f.Command>>8), byte(f.Command&0xFF), byte(len(f.Data)))
	out = append(out, f.Data...)
	out = append(out, f.Checksum())
	return out, nil
}

// String renders the frame for log output.
func (f *Frame) String() string {
	return fmt.Sprintf("src=%02X dst=%02X cmd=%04X data=%X", f.Source, f.Dest, f.Command, f.Data)
}

// Response is a slave's reply to a master-slave request. Responses carry no
// addressing of their own; they belong to the frame they follow.
type Response struct {
	// Data is the reply payload, at most 16 bytes.
	Data []byte

	// CRC is the checksum byte as seen on the wire.
	CRC byte
}

// Checksum computes the CRC-8 a correct response would carry. It covers the
// length byte and the payload.
func (r *Response) Checksum() byte {
	crc := updateCRC(0, byte(len(r.Data)))
	for _, b := range r.Data {
		crc = updateCRC(crc, b)
	}
	return crc
}

// String renders the response for log output.
func (r *Response) String() string {
	return fmt.Sprintf("resp=%X", r.Data)
}

// Exchange is one completed bus transaction: a request frame and, for
// master-slave telegrams, the slave's response.
type Exchange struct {
	Request  Frame
	Response *Response
}

// Telegram converts the exchange into the decoder's representation.
func (e *Exchange) Telegram() decode.Telegram {
	t := decode.Telegram{
		Source:  e.Request.Source,
		Dest:    e.Request.Dest,
		Command: e.Request.Command,
		Data:    e.Request.Data,
	}
	if e.Response != nil {
		t.Response = e.Response.Data
	}
	return t
}
