package decode

import "errors"

// Domain errors for the decoding engine.
var (
	// ErrOutOfRange is returned when a field mapping's offset plus encoded
	// width exceeds the payload length. This is a decode error scoped to one
	// message, never an out-of-bounds read.
	ErrOutOfRange = errors.New("decode: field outside payload range")

	// ErrUnknownType is returned when a field mapping carries a data type
	// the extractor does not recognise. Profiles validated by the schema
	// package cannot trigger this; it guards direct engine callers.
	ErrUnknownType = errors.New("decode: unknown data type")
)
