package schema

import "errors"

// Domain errors for profile loading.
var (
	// ErrInvalid is returned when a profile document violates the schema
	// structurally: a message with neither field map, an unknown data type,
	// a malformed pattern. A profile that fails to load must not be used.
	ErrInvalid = errors.New("schema: invalid profile")

	// ErrInvalidPattern is returned when a pattern string cannot be parsed.
	ErrInvalidPattern = errors.New("schema: invalid pattern")

	// ErrUnknownDataType is returned when a field mapping declares a data
	// type outside the supported set.
	ErrUnknownDataType = errors.New("schema: unknown data type")
)
