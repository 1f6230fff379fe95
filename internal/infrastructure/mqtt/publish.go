package mqtt

import (
	"fmt"
)

// maxPayloadSize caps a single message at 1MB, in line with common broker
// limits. Decoded readings are a few bytes; discovery documents a few
// hundred.
const maxPayloadSize = 1 << 20

// Publish sends one message and waits for the broker's acknowledgment.
//
// Input validation happens before the connection check, so callers get
// ErrInvalidTopic and ErrInvalidQoS even when offline.
//
// Parameters:
//   - topic: destination topic (e.g. "ebusd/boiler/boiler_pressure")
//   - payload: message body, at most maxPayloadSize bytes
//   - qos: 0, 1 or 2
//   - retained: broker keeps the last message for late subscribers; used
//     for status, presence and discovery topics, never for readings
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return nil
}
