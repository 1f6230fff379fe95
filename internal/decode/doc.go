// Package decode is the telegram decoding engine of ebus2mqtt.
//
// Given a telegram captured from the bus and a compiled appliance profile
// (see internal/schema), the engine identifies which message definition
// applies, extracts typed field values from the payload, scales them, and
// produces addressed publish records ready for the broker client.
//
// # Pipeline
//
//	telegram ──► FindMatch ──► Extract ──► Expand ──► []Reading
//
// FindMatch walks circuits and message definitions in declaration order and
// returns the first match; profiles are written most-specific-first, and
// that tie-break is deliberate. Extraction is all-or-nothing per message:
// one bad field aborts the message and is reported once, naming the field
// and the definition's comment. An unrecognised telegram is a normal
// outcome, not an error; traffic noise must never halt processing.
//
// # Concurrency
//
// The engine performs no I/O and holds no mutable state: every decode call
// is a pure function of (telegram, profile), so any number of telegrams may
// be decoded concurrently against the same Engine. The only operation that
// can suspend is EvaluatePresence, which waits on a caller-supplied probe
// bounded by its context.
package decode
