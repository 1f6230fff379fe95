package schema

// Profile is a compiled appliance profile.
//
// It is constructed once by Load and never mutated afterwards, so it can be
// shared by any number of concurrent decode operations without locking.
// Replacing a profile means loading a new one and swapping the reference.
type Profile struct {
	// Appliance is the human-readable appliance name (e.g., "Vaillant ecoTEC").
	Appliance string

	// Bus identifies the bus the appliance lives on (e.g., "ebus0").
	Bus string

	// Presence is the probe/response rule for presence detection.
	Presence PresenceRule

	// Autodiscovery configures broker autodiscovery metadata publishing.
	// Nil when the document has no mqtt_autodiscovery section.
	Autodiscovery *AutodiscoveryConfig

	// Circuits are the message definition groups, in declaration order.
	// Order is significant: matching is first-match-wins across this list.
	Circuits []Circuit
}

// Circuit groups the message definitions of one functional subsystem
// (e.g., "boiler", "hot_water").
type Circuit struct {
	// Name is the circuit name, unique within the profile.
	Name string

	// Messages are the decodable telegram shapes, in declaration order.
	Messages []MessageDefinition
}

// MessageDefinition describes one decodable telegram shape.
//
// At least one of RequestMap and ResponseMap is always present; Load rejects
// definitions with neither.
type MessageDefinition struct {
	// Comment documents the message for humans. Carried through to decode
	// error reports so operators can identify the offending definition.
	Comment string

	// PublishFormat is the topic template for decoded fields.
	// Placeholders: <circuit>/<circuit_name>, <field_name>, <field_value>, <unit>.
	PublishFormat string

	// RequestMatch is the matching criteria for the request direction.
	RequestMatch PatternSpec

	// ResponseMatch is the matching criteria for the response direction.
	// Nil when the message has no response to match.
	ResponseMatch *PatternSpec

	// RequestMap extracts fields from the request payload. May be empty.
	RequestMap []FieldMapping

	// ResponseMap extracts fields from the response payload. May be empty.
	ResponseMap []FieldMapping
}

// PresenceRule is a request/response pattern pair used to probe whether the
// described appliance responds on the bus.
type PresenceRule struct {
	// Valid indicates whether the rule is authoritative. A rule may be
	// present in the document but disabled; presence is then indeterminate.
	Valid bool

	// Request describes the probe frame to send.
	Request PatternSpec

	// Response describes the reply that proves presence.
	Response PatternSpec
}

// AutodiscoveryConfig configures broker autodiscovery metadata publishing.
type AutodiscoveryConfig struct {
	// Enabled toggles autodiscovery publishing.
	Enabled bool

	// Topic is the autodiscovery topic root (e.g., "homeassistant/sensor").
	Topic string

	// Payload is the metadata document template. Every string value is
	// expanded per discovered field with the placeholder vocabulary of the
	// topic templates (minus <field_value>, which has no meaning here).
	Payload map[string]string
}
