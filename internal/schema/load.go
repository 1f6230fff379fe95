package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// publishFormatSuffix identifies the topic template key in a message object.
// Profiles in the wild are inconsistent about the prefix ("mqtt_publish_format",
// "boiler_publish_format", ...), so any key with this suffix is accepted.
const publishFormatSuffix = "_publish_format"

// Raw document shapes. These mirror the loosely typed JSON and exist only as
// an intermediate step; Compile turns them into the strongly typed Profile.

type rawProfile struct {
	Appliance     string            `json:"appliance"`
	Bus           string            `json:"bus"`
	Presence      rawPresence       `json:"presence_detection"`
	Autodiscovery *rawAutodiscovery `json:"mqtt_autodiscovery"`
	Circuits      []rawCircuit      `json:"circuits"`
}

type rawPresence struct {
	Valid    bool        `json:"valid"`
	Request  *rawPattern `json:"request"`
	Response *rawPattern `json:"response"`
}

type rawAutodiscovery struct {
	Enabled bool              `json:"enabled"`
	Topic   string            `json:"topic"`
	Payload map[string]string `json:"payload"`
}

type rawCircuit struct {
	Name     string       `json:"name"`
	Messages []rawMessage `json:"messages"`
}

type rawPattern struct {
	Src  string  `json:"src"`
	Dst  string  `json:"dst"`
	PBSB string  `json:"pbsb"`
	Data *string `json:"data"`
}

type rawMapping struct {
	FieldName   string   `json:"field_name"`
	FieldOffset int      `json:"field_offset"`
	DataType    string   `json:"data_type"`
	Factor      *float64 `json:"factor"`
	Unit        string   `json:"unit"`
}

type rawMessage struct {
	Comment       string       `json:"comment"`
	RequestMatch  *rawPattern  `json:"request_match"`
	ResponseMatch *rawPattern  `json:"response_match"`
	RequestMap    []rawMapping `json:"request_map"`
	ResponseMap   []rawMapping `json:"response_map"`

	// PublishFormat is filled from whichever key carries the
	// publishFormatSuffix; see UnmarshalJSON.
	PublishFormat string `json:"-"`
}

// UnmarshalJSON decodes the fixed message fields and then scans the raw keys
// for the topic template, which may appear under any *_publish_format name.
func (m *rawMessage) UnmarshalJSON(data []byte) error {
	type plain rawMessage
	if err := json.Unmarshal(data, (*plain)(m)); err != nil {
		return err
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}
	for key, raw := range keys {
		if !strings.HasSuffix(key, publishFormatSuffix) {
			continue
		}
		var format string
		if err := json.Unmarshal(raw, &format); err != nil {
			return fmt.Errorf("key %q: %w", key, err)
		}
		m.PublishFormat = format
		break
	}
	return nil
}

// Load reads and compiles an appliance profile from a JSON file.
//
// Returns:
//   - *Profile: Compiled, immutable profile
//   - error: ErrInvalid (wrapped) if the document is malformed
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profile: %w", err)
	}
	return Parse(data)
}

// Parse compiles an appliance profile from raw JSON bytes.
//
// All structural validation happens here, once: pattern syntax, data types,
// circuit name uniqueness, the at-least-one-map invariant. A profile that
// parses is safe to decode against without further checks.
func Parse(data []byte) (*Profile, error) {
	var raw rawProfile
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: parsing JSON: %v", ErrInvalid, err)
	}
	return compile(&raw)
}

// compile turns the raw document into a Profile, collecting every
// structural error into a single message.
func compile(raw *rawProfile) (*Profile, error) {
	var errs []string

	p := &Profile{
		Appliance: raw.Appliance,
		Bus:       raw.Bus,
	}

	if raw.Appliance == "" {
		errs = append(errs, "appliance is required")
	}

	// Presence rule. A disabled rule may be incomplete; an enabled one
	// must carry both patterns.
	p.Presence.Valid = raw.Presence.Valid
	if raw.Presence.Request != nil {
		spec, perrs := compilePattern(*raw.Presence.Request, "presence_detection.request")
		p.Presence.Request = spec
		errs = append(errs, perrs...)
	} else if raw.Presence.Valid {
		errs = append(errs, "presence_detection.request is required when valid is true")
	}
	if raw.Presence.Response != nil {
		spec, perrs := compilePattern(*raw.Presence.Response, "presence_detection.response")
		p.Presence.Response = spec
		errs = append(errs, perrs...)
	} else if raw.Presence.Valid {
		errs = append(errs, "presence_detection.response is required when valid is true")
	}

	if raw.Autodiscovery != nil {
		p.Autodiscovery = &AutodiscoveryConfig{
			Enabled: raw.Autodiscovery.Enabled,
			Topic:   raw.Autodiscovery.Topic,
			Payload: raw.Autodiscovery.Payload,
		}
		if raw.Autodiscovery.Enabled && raw.Autodiscovery.Topic == "" {
			errs = append(errs, "mqtt_autodiscovery.topic is required when enabled")
		}
	}

	circuitNames := make(map[string]bool)
	for i, rc := range raw.Circuits {
		if rc.Name == "" {
			errs = append(errs, fmt.Sprintf("circuits[%d].name is required", i))
		}
		if circuitNames[rc.Name] {
			errs = append(errs, fmt.Sprintf("circuits[%d].name %q is duplicate", i, rc.Name))
		}
		circuitNames[rc.Name] = true

		circuit := Circuit{Name: rc.Name}
		for j, rm := range rc.Messages {
			where := fmt.Sprintf("circuits[%d].messages[%d]", i, j)
			msg, merrs := compileMessage(rm, where)
			errs = append(errs, merrs...)
			circuit.Messages = append(circuit.Messages, msg)
		}
		p.Circuits = append(p.Circuits, circuit)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalid, strings.Join(errs, "; "))
	}
	return p, nil
}

// compileMessage compiles one message definition.
func compileMessage(rm rawMessage, where string) (MessageDefinition, []string) {
	var errs []string

	msg := MessageDefinition{
		Comment:       rm.Comment,
		PublishFormat: rm.PublishFormat,
	}

	if rm.RequestMatch == nil {
		errs = append(errs, where+".request_match is required")
	} else {
		spec, perrs := compilePattern(*rm.RequestMatch, where+".request_match")
		msg.RequestMatch = spec
		errs = append(errs, perrs...)
	}

	if rm.ResponseMatch != nil {
		spec, perrs := compilePattern(*rm.ResponseMatch, where+".response_match")
		msg.ResponseMatch = &spec
		errs = append(errs, perrs...)
	}

	// A definition decoding nothing is meaningless; reject it at load time.
	if len(rm.RequestMap) == 0 && len(rm.ResponseMap) == 0 {
		errs = append(errs, where+" must declare request_map or response_map")
	}

	var merrs []string
	msg.RequestMap, merrs = compileMappings(rm.RequestMap, where+".request_map")
	errs = append(errs, merrs...)
	msg.ResponseMap, merrs = compileMappings(rm.ResponseMap, where+".response_map")
	errs = append(errs, merrs...)

	return msg, errs
}

// compileMappings compiles one field-mapping list, preserving order.
func compileMappings(raws []rawMapping, where string) ([]FieldMapping, []string) {
	var errs []string
	var mappings []FieldMapping

	names := make(map[string]bool)
	for i, rm := range raws {
		at := fmt.Sprintf("%s[%d]", where, i)

		if rm.FieldName == "" {
			errs = append(errs, at+".field_name is required")
		}
		if names[rm.FieldName] {
			errs = append(errs, fmt.Sprintf("%s.field_name %q is duplicate", at, rm.FieldName))
		}
		names[rm.FieldName] = true

		if rm.FieldOffset < 0 {
			errs = append(errs, fmt.Sprintf("%s.field_offset %d must not be negative", at, rm.FieldOffset))
		}

		dt, err := ParseDataType(rm.DataType)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s.data_type: %v", at, err))
		}

		factor := 1.0
		if rm.Factor != nil {
			factor = *rm.Factor
		}

		mappings = append(mappings, FieldMapping{
			Name:   rm.FieldName,
			Offset: rm.FieldOffset,
			Type:   dt,
			Factor: factor,
			Unit:   rm.Unit,
		})
	}
	return mappings, errs
}

// compilePattern compiles one pattern object.
func compilePattern(rp rawPattern, where string) (PatternSpec, []string) {
	var errs []string
	var spec PatternSpec

	src, err := ParseBytePattern(rp.Src)
	if err != nil {
		errs = append(errs, fmt.Sprintf("%s.src: %v", where, err))
	}
	spec.Source = src

	dst, err := ParseBytePattern(rp.Dst)
	if err != nil {
		errs = append(errs, fmt.Sprintf("%s.dst: %v", where, err))
	}
	spec.Dest = dst

	if rp.PBSB != "" {
		cmd, err := ParseCommand(rp.PBSB)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s.pbsb: %v", where, err))
		} else {
			spec.Command = &cmd
		}
	}

	// Absence of the data key leaves the payload unconstrained. An explicit
	// empty string is an exact match against an empty payload.
	if rp.Data != nil {
		data, err := ParseDataPattern(*rp.Data)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s.data: %v", where, err))
		} else {
			spec.Data = data
		}
	}

	return spec, errs
}
