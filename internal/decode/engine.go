package decode

import (
	"fmt"

	"github.com/ebushome/ebus2mqtt/internal/schema"
)

// Reading is one addressed publish record: a decoded field together with the
// topic its value belongs on.
type Reading struct {
	// Circuit is the declared name of the circuit the field came from.
	Circuit string

	// Field is the field name.
	Field string

	// Value is the decoded, scaled value.
	Value float64

	// Unit is the unit label. May be empty.
	Unit string

	// Topic is the publish topic, expanded from the message definition's
	// template.
	Topic string
}

// Discovery is one broker-autodiscovery metadata document.
type Discovery struct {
	// Topic is the config topic the document is published on.
	Topic string

	// Payload is the expanded metadata document, ready for JSON encoding.
	Payload map[string]string
}

// Engine decodes telegrams against one immutable appliance profile.
//
// An Engine is a pure function holder: it performs no I/O, mutates nothing
// after construction, and is safe for unlimited concurrent use.
type Engine struct {
	profile *schema.Profile
}

// NewEngine creates an engine for a loaded profile.
func NewEngine(profile *schema.Profile) *Engine {
	return &Engine{profile: profile}
}

// Profile returns the active profile.
func (e *Engine) Profile() *schema.Profile {
	return e.profile
}

// Decode matches one telegram against the profile and extracts its fields.
//
// Returns:
//   - readings: One record per decoded field, in mapping declaration order
//   - matched: False when no definition recognises the telegram. That is
//     normal traffic noise, not an error.
//   - error: A per-message decode failure (ErrOutOfRange, ErrUnknownType),
//     annotated with the definition's comment. The telegram is skipped;
//     nothing else is affected.
func (e *Engine) Decode(t Telegram) (readings []Reading, matched bool, err error) {
	match, ok := FindMatch(t, e.profile.Circuits)
	if !ok {
		return nil, false, nil
	}

	var fields []Field

	if len(match.Message.RequestMap) > 0 {
		fs, err := Extract(match.Message.RequestMap, t.Data)
		if err != nil {
			return nil, true, fmt.Errorf("message %q: %w", match.Message.Comment, err)
		}
		fields = append(fields, fs...)
	}

	if match.Direction == DirectionResponse && len(match.Message.ResponseMap) > 0 {
		fs, err := Extract(match.Message.ResponseMap, t.Response)
		if err != nil {
			return nil, true, fmt.Errorf("message %q: %w", match.Message.Comment, err)
		}
		fields = append(fields, fs...)
	}

	readings = make([]Reading, 0, len(fields))
	for _, f := range fields {
		topic := Expand(match.Message.PublishFormat, Values{
			Circuit:  match.Circuit.Name,
			Field:    f.Name,
			Unit:     f.Unit,
			Value:    FormatValue(f.Value),
			HasValue: true,
		})
		readings = append(readings, Reading{
			Circuit: match.Circuit.Name,
			Field:   f.Name,
			Value:   f.Value,
			Unit:    f.Unit,
			Topic:   topic,
		})
	}
	return readings, true, nil
}

// DiscoveryMessages builds one autodiscovery document per known field of the
// profile, under <topic>/<circuit>/<field>/config.
//
// The documents describe each field's existence, independent of any live
// reading: every string value of the payload template is expanded with the
// circuit/field/unit vocabulary, and <field_value> passes through verbatim.
// Returns nil when autodiscovery is absent or disabled.
func (e *Engine) DiscoveryMessages() []Discovery {
	cfg := e.profile.Autodiscovery
	if cfg == nil || !cfg.Enabled {
		return nil
	}

	var docs []Discovery
	seen := make(map[string]bool)

	for ci := range e.profile.Circuits {
		circuit := &e.profile.Circuits[ci]
		for mi := range circuit.Messages {
			msg := &circuit.Messages[mi]
			for _, m := range [][]schema.FieldMapping{msg.RequestMap, msg.ResponseMap} {
				for _, field := range m {
					key := circuit.Name + "/" + field.Name
					if seen[key] {
						continue
					}
					seen[key] = true

					values := Values{
						Circuit: circuit.Name,
						Field:   field.Name,
						Unit:    field.Unit,
					}
					payload := make(map[string]string, len(cfg.Payload))
					for k, v := range cfg.Payload {
						payload[k] = Expand(v, values)
					}
					docs = append(docs, Discovery{
						Topic:   fmt.Sprintf("%s/%s/%s/config", cfg.Topic, circuit.Name, field.Name),
						Payload: payload,
					})
				}
			}
		}
	}
	return docs
}
