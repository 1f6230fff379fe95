package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteFieldReading writes a single decoded field reading to InfluxDB.
//
// This is the primary method for recording appliance telemetry.
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - circuit: The circuit the field belongs to (e.g., "boiler")
//   - field: The decoded field name (e.g., "flow_temp")
//   - value: The scaled numeric value
//   - unit: The profile's unit annotation (may be empty)
//
// Example:
//
//	client.WriteFieldReading("boiler", "flow_temp", 52.3, "°C")
//	client.WriteFieldReading("boiler", "boiler_pressure", 1.8, "bar")
func (c *Client) WriteFieldReading(circuit string, field string, value float64, unit string) {
	if !c.IsConnected() {
		return
	}

	tags := map[string]string{
		"circuit": circuit,
		"field":   field,
	}
	if unit != "" {
		tags["unit"] = unit
	}

	point := write.NewPoint(
		"field_readings",
		tags,
		map[string]interface{}{
			"value": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePresence records the outcome of an appliance presence probe.
//
// Parameters:
//   - appliance: Appliance name from the profile
//   - present: Whether the probe reply matched the presence rule
func (c *Client) WritePresence(appliance string, present bool) {
	if !c.IsConnected() {
		return
	}

	value := 0.0
	if present {
		value = 1.0
	}

	point := write.NewPoint(
		"presence",
		map[string]string{
			"appliance": appliance,
		},
		map[string]interface{}{
			"present": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}
