// Package mqtt provides the broker connection for ebus2mqtt.
//
// The client is publish-only. The service decodes telegrams from the
// appliance serial bus and republishes field readings, availability,
// presence and Home Assistant discovery documents; nothing flows the
// other way:
//
//	serial bus adapter → ebus2mqtt → MQTT broker → Home Assistant / subscribers
//
// Reading topics come from the appliance profile's publish format; the
// client itself only owns the service lifecycle topics (see topics.go).
// A Last Will on the system status topic lets subscribers distinguish a
// crash from a graceful shutdown.
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Performance Characteristics
//
//   - Connection: <1 second to local broker
//   - Publish latency: <10ms for QoS 1 to local broker
//   - Reconnect: Exponential backoff 1s-60s with jitter
//   - Message throughput: Broker-limited, far above telegram rates
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Publish a decoded reading
//	client.Publish("ebusd/boiler/boiler_pressure", []byte("2.5"), 0, false)
package mqtt
