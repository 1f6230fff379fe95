package decode

import "github.com/ebushome/ebus2mqtt/internal/schema"

// Direction identifies which side of an exchange a match applies to.
type Direction int

const (
	// DirectionRequest means only the request pattern matched; only the
	// request field map is extracted.
	DirectionRequest Direction = iota

	// DirectionResponse means the exchange carried a response that matched
	// the definition's response pattern as well; both field maps apply.
	DirectionResponse
)

// String returns the direction name.
func (d Direction) String() string {
	if d == DirectionResponse {
		return "response"
	}
	return "request"
}

// Match is the result of a successful pattern search.
type Match struct {
	// Circuit is the circuit the matched definition belongs to.
	Circuit *schema.Circuit

	// Message is the matched definition.
	Message *schema.MessageDefinition

	// Direction indicates which payloads the match covers.
	Direction Direction
}

// FindMatch evaluates a telegram against the ordered circuits of a profile
// and returns the first matching message definition.
//
// Circuits and definitions are walked in declaration order; the first match
// wins. Profiles must therefore list overlapping patterns most-specific
// first. The command identifier is compared before the payload pattern so
// non-matches are rejected cheaply.
//
// The second return value is false when no definition matches. That is the
// expected outcome for unrelated bus traffic and is never an error.
func FindMatch(t Telegram, circuits []schema.Circuit) (Match, bool) {
	for ci := range circuits {
		circuit := &circuits[ci]
		for mi := range circuit.Messages {
			msg := &circuit.Messages[mi]

			if !msg.RequestMatch.MatchesHeader(t.Source, t.Dest, t.Command) {
				continue
			}
			if !msg.RequestMatch.MatchesPayload(t.Data) {
				continue
			}

			dir := DirectionRequest
			// A slave response carries no addressing of its own, so only
			// the response pattern's payload criterion applies to it.
			if t.HasResponse() && msg.ResponseMatch != nil && msg.ResponseMatch.MatchesPayload(t.Response) {
				dir = DirectionResponse
			}

			return Match{Circuit: circuit, Message: msg, Direction: dir}, true
		}
	}
	return Match{}, false
}
