package decode

import (
	"context"

	"github.com/ebushome/ebus2mqtt/internal/schema"
)

// Presence is the three-valued outcome of a presence check.
//
// Indeterminate is distinct from Absent: it means the rule was disabled and
// no probe was issued, not that the appliance failed to answer.
type Presence int

const (
	// PresenceIndeterminate means the rule is not authoritative
	// (rule.Valid is false); no probe was performed.
	PresenceIndeterminate Presence = iota

	// PresenceAbsent means the probe went unanswered, timed out, or the
	// reply did not match the response pattern.
	PresenceAbsent

	// PresencePresent means a reply matched the response pattern.
	PresencePresent
)

// String returns the presence name.
func (p Presence) String() string {
	switch p {
	case PresencePresent:
		return "present"
	case PresenceAbsent:
		return "absent"
	default:
		return "indeterminate"
	}
}

// ProbeFunc sends one request frame described by the pattern and returns the
// reply telegram. The implementation belongs to the transport; it must honour
// ctx for timeout and cancellation and return an error on timeout or no
// reply. Retries, if any, are the transport's policy; the evaluator sends
// exactly one probe.
type ProbeFunc func(ctx context.Context, request schema.PatternSpec) (Telegram, error)

// EvaluatePresence applies a presence rule.
//
// If the rule is disabled the result is PresenceIndeterminate and the probe
// is never invoked. A probe error or timeout yields PresenceAbsent: a
// silent appliance is an answer, not a failure. Otherwise the reply is
// matched against the rule's response pattern: wildcard source means any
// responder, the command identifier is exact, and the data pattern applies
// as configured (anchored or exact).
func EvaluatePresence(ctx context.Context, rule schema.PresenceRule, probe ProbeFunc) Presence {
	if !rule.Valid {
		return PresenceIndeterminate
	}

	reply, err := probe(ctx, rule.Request)
	if err != nil {
		return PresenceAbsent
	}

	payload := reply.Data
	if reply.HasResponse() {
		payload = reply.Response
	}
	if rule.Response.Matches(reply.Source, reply.Dest, reply.Command, payload) {
		return PresencePresent
	}
	return PresenceAbsent
}
