// Package ebus implements the ebus side of ebus2mqtt.
//
// It connects to an ebus interface adapter over TCP, reassembles the raw
// byte stream into complete request/response exchanges, hands them to the
// decoding engine, and republishes decoded fields to the MQTT broker.
//
// # Architecture
//
//	┌──────────────┐   TCP    ┌──────────────┐   MQTT   ┌──────────┐
//	│ ebus adapter │◄────────►│  this bridge │─────────►│  broker  │
//	└──────────────┘          └──────────────┘          └──────────┘
//
// # Wire protocol
//
// The adapter speaks the ebus "enhanced protocol": plain bus bytes pass
// through unchanged, while bytes with the top two bits set open a two-byte
// escape carrying a command nibble and a data byte. The Framer unwraps the
// escapes and runs a state machine over the bus bytes proper:
//
//	SYN → src → dst → PB → SB → len → data[len] → CRC → ACK → response?
//
// Frames with a bad CRC, a NACK, or a length above 16 are dropped and the
// framer resynchronises on the next SYN. Broadcast telegrams (dst 0xFE)
// complete on SYN without an ACK.
//
// # Thread safety
//
// All exported types are safe for concurrent use unless noted. The Framer
// itself is not: it is owned by the transport's single read loop.
package ebus
