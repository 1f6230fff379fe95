package ebus

import "errors"

// Domain errors for the ebus bridge package.
var (
	// ErrNotConnected is returned when an operation requires a connection
	// but the transport is not connected to the interface adapter.
	ErrNotConnected = errors.New("ebus: not connected to interface")

	// ErrConnectionFailed is returned when connecting to the interface
	// adapter fails.
	ErrConnectionFailed = errors.New("ebus: connection to interface failed")

	// ErrProbeTimeout is returned when a presence probe receives no reply
	// within its deadline.
	ErrProbeTimeout = errors.New("ebus: probe timed out")

	// ErrProbePending is returned when a probe is requested while another
	// probe is still awaiting its reply.
	ErrProbePending = errors.New("ebus: another probe is pending")

	// ErrFrameTooLong is returned when building a frame whose payload
	// exceeds the 16-byte ebus limit.
	ErrFrameTooLong = errors.New("ebus: frame payload exceeds 16 bytes")
)
