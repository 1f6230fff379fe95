package mqtt

import "fmt"

// Topic prefixes for the service's own MQTT surface.
//
// Field readings do not live under these prefixes: their topics come from
// the appliance profile's publish format (for example
// "ebusd/{circuit}/{field}") and are built by the decode engine.
const (
	// TopicPrefix is the default base for service topics. The runtime
	// base is configurable (mqtt.base_topic); this constant is the
	// default and the fixed prefix for system topics.
	TopicPrefix = "ebus2mqtt"

	// TopicPrefixSystem is the base for service lifecycle topics.
	TopicPrefixSystem = "ebus2mqtt/system"
)

// Topics provides builders for the service's MQTT topics.
// Using these helpers keeps topic naming consistent across the codebase.
//
//	topics := mqtt.Topics{}
//	lwt := topics.SystemStatus()
//	// Returns: "ebus2mqtt/system/status"
type Topics struct{}

// SystemStatus returns the service status topic used for the broker
// Last Will and the online/offline announcements.
//
// Example: ebus2mqtt/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// Availability returns the appliance availability topic under a
// configured base topic.
//
// Example: ebus2mqtt/status
func (Topics) Availability(base string) string {
	return fmt.Sprintf("%s/status", base)
}

// Presence returns the appliance presence topic under a configured
// base topic.
//
// Example: ebus2mqtt/status/presence
func (Topics) Presence(base string) string {
	return fmt.Sprintf("%s/status/presence", base)
}

// DiscoveryConfig returns the Home Assistant discovery document topic
// for one decoded field.
//
// Example: homeassistant/sensor/boiler/boiler_pressure/config
func (Topics) DiscoveryConfig(discoveryBase, circuit, field string) string {
	return fmt.Sprintf("%s/%s/%s/config", discoveryBase, circuit, field)
}

// FieldReading returns a reading topic for profiles that use the
// conventional {base}/{circuit}/{field} layout.
//
// Example: ebusd/boiler/boiler_pressure
func (Topics) FieldReading(base, circuit, field string) string {
	return fmt.Sprintf("%s/%s/%s", base, circuit, field)
}
