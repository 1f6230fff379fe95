// Package influxdb provides InfluxDB connectivity for ebus2mqtt.
//
// It wraps the official influxdb-client-go v2 library with ebus2mqtt-specific
// patterns for connection management, metric writing, and health monitoring.
//
// # Purpose
//
// This package handles time-series data storage for:
//   - Decoded field readings (temperatures, pressures, states)
//   - Appliance presence over time
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "home",
//	    Bucket: "heating",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Write a decoded reading
//	client.WriteFieldReading("boiler", "flow_temp", 52.3, "°C")
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are logged via a callback.
// Connection and health check errors are returned directly.
//
// # Performance
//
// Writes are batched according to config.yaml settings (batch_size, flush_interval).
// Telegram rates on a heating bus are modest, so batching mainly smooths
// out broker restarts rather than throughput.
package influxdb
