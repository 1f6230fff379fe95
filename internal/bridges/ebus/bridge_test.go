package ebus

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ebushome/ebus2mqtt/internal/decode"
	"github.com/ebushome/ebus2mqtt/internal/schema"
)

const bridgeProfile = `{
  "appliance": "test boiler",
  "bus": "ebus0",
  "presence_detection": {
    "valid": true,
    "request": {"src": "ff", "dst": "08", "pbsb": "0704"},
    "response": {"src": "*", "dst": "ff", "pbsb": "0704", "data": "^b5"}
  },
  "mqtt_autodiscovery": {
    "enabled": true,
    "topic": "homeassistant/sensor",
    "payload": {
      "name": "<circuit> <field_name>",
      "state_topic": "ebusd/<circuit_name>/<field_name>"
    }
  },
  "circuits": [
    {
      "name": "boiler",
      "messages": [
        {
          "comment": "Boiler status",
          "mqtt_publish_format": "ebusd/<circuit_name>/<field_name>",
          "request_match": {"src": "*", "dst": "fe", "pbsb": "2000", "data": "^7547"},
          "request_map": [
            {"field_name": "boiler_pressure", "field_offset": 2, "data_type": "u8", "factor": 0.1, "unit": "bar"}
          ]
        },
        {
          "comment": "Deep field",
          "mqtt_publish_format": "ebusd/<circuit_name>/<field_name>",
          "request_match": {"src": "*", "dst": "fe", "pbsb": "2000", "data": "^7551"},
          "request_map": [
            {"field_name": "too_deep", "field_offset": 10, "data_type": "u16le"}
          ]
        }
      ]
    }
  ]
}`

// fakeMQTT records publishes for assertions.
type fakeMQTT struct {
	mu       sync.Mutex
	messages []fakeMessage
}

type fakeMessage struct {
	topic    string
	payload  string
	retained bool
}

func (m *fakeMQTT) Publish(topic string, payload []byte, qos byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, fakeMessage{topic, string(payload), retained})
	return nil
}

func (m *fakeMQTT) IsConnected() bool { return true }

func (m *fakeMQTT) byTopic(topic string) (fakeMessage, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.messages {
		if msg.topic == topic {
			return msg, true
		}
	}
	return fakeMessage{}, false
}

func (m *fakeMQTT) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}

func (m *fakeMQTT) snapshot() []fakeMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]fakeMessage(nil), m.messages...)
}

// fakeTransport satisfies BusTransport without a network.
type fakeTransport struct {
	probeReply decode.Telegram
	probeErr   error
	probed     bool
}

func (t *fakeTransport) Start(ctx context.Context) error { return nil }
func (t *fakeTransport) Stop()                           {}
func (t *fakeTransport) Connected() bool                 { return true }

func (t *fakeTransport) Probe(ctx context.Context, request schema.PatternSpec) (decode.Telegram, error) {
	t.probed = true
	return t.probeReply, t.probeErr
}

// fakeRecorder captures time-series writes.
type fakeRecorder struct {
	mu       sync.Mutex
	writes   []string
	presence []bool
}

func (r *fakeRecorder) WriteFieldReading(circuit, field string, value float64, unit string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes = append(r.writes, circuit+"/"+field)
}

func (r *fakeRecorder) WritePresence(appliance string, present bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.presence = append(r.presence, present)
}

// fakeHistory captures history inserts.
type fakeHistory struct {
	mu      sync.Mutex
	inserts []string
}

func (h *fakeHistory) Insert(ctx context.Context, circuit, field string, value float64, unit, topic string, observedAt time.Time) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.inserts = append(h.inserts, circuit+"/"+field)
	return nil
}

func newTestBridge(t *testing.T, mqtt *fakeMQTT, transport *fakeTransport, rec *fakeRecorder, hist *fakeHistory) *Bridge {
	t.Helper()
	profile, err := schema.Parse([]byte(bridgeProfile))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	var recorder Recorder
	if rec != nil {
		recorder = rec
	}
	var history HistoryStore
	if hist != nil {
		history = hist
	}
	b, err := NewBridge(BridgeOptions{
		Engine:      decode.NewEngine(profile),
		MQTTClient:  mqtt,
		Transport:   transport,
		StatusTopic: "ebus2mqtt",
		Recorder:    recorder,
		History:     history,
	})
	if err != nil {
		t.Fatalf("NewBridge: %v", err)
	}
	return b
}

func TestBridgeHandleExchangePublishesReadings(t *testing.T) {
	mqtt := &fakeMQTT{}
	rec := &fakeRecorder{}
	hist := &fakeHistory{}
	b := newTestBridge(t, mqtt, &fakeTransport{}, rec, hist)

	b.HandleExchange(Exchange{Request: Frame{
		Source:  0x03,
		Dest:    Broadcast,
		Command: 0x2000,
		Data:    []byte{0x75, 0x47, 0x19},
	}})

	msg, ok := mqtt.byTopic("ebusd/boiler/boiler_pressure")
	if !ok {
		t.Fatalf("no publish on reading topic, have %v", mqtt.snapshot())
	}
	if msg.payload != "2.5" {
		t.Errorf("payload = %q, want 2.5", msg.payload)
	}
	if msg.retained {
		t.Error("readings must not be retained")
	}

	if len(rec.writes) != 1 || rec.writes[0] != "boiler/boiler_pressure" {
		t.Errorf("recorder writes = %v", rec.writes)
	}
	if len(hist.inserts) != 1 || hist.inserts[0] != "boiler/boiler_pressure" {
		t.Errorf("history inserts = %v", hist.inserts)
	}
}

func TestBridgeHandleExchangeIgnoresUnmatched(t *testing.T) {
	mqtt := &fakeMQTT{}
	b := newTestBridge(t, mqtt, &fakeTransport{}, nil, nil)

	b.HandleExchange(Exchange{Request: Frame{
		Source:  0x03,
		Dest:    0x15,
		Command: 0xB509,
		Data:    []byte{0x01},
	}})

	if mqtt.count() != 0 {
		t.Errorf("unmatched telegram must publish nothing, got %v", mqtt.snapshot())
	}
}

func TestBridgeHandleExchangeSkipsFailedDecode(t *testing.T) {
	mqtt := &fakeMQTT{}
	b := newTestBridge(t, mqtt, &fakeTransport{}, nil, nil)

	// Matches "Deep field" but the payload is too short for offset 10.
	b.HandleExchange(Exchange{Request: Frame{
		Source:  0x03,
		Dest:    Broadcast,
		Command: 0x2000,
		Data:    []byte{0x75, 0x51, 0x01},
	}})

	if mqtt.count() != 0 {
		t.Errorf("failed decode must publish nothing, got %v", mqtt.snapshot())
	}
}

func TestBridgeStartPublishesDiscoveryAndAvailability(t *testing.T) {
	mqtt := &fakeMQTT{}
	b := newTestBridge(t, mqtt, &fakeTransport{probeErr: context.DeadlineExceeded}, nil, nil)

	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer b.Stop()

	msg, ok := mqtt.byTopic("homeassistant/sensor/boiler/boiler_pressure/config")
	if !ok {
		t.Fatalf("no discovery document, have %v", mqtt.snapshot())
	}
	if !msg.retained {
		t.Error("discovery documents must be retained")
	}

	var doc map[string]string
	if err := json.Unmarshal([]byte(msg.payload), &doc); err != nil {
		t.Fatalf("discovery payload is not JSON: %v", err)
	}
	if doc["name"] != "boiler boiler_pressure" {
		t.Errorf("name = %q", doc["name"])
	}
	if doc["state_topic"] != "ebusd/boiler/boiler_pressure" {
		t.Errorf("state_topic = %q", doc["state_topic"])
	}

	status, ok := mqtt.byTopic("ebus2mqtt/status")
	if !ok || status.payload != "online" || !status.retained {
		t.Errorf("availability = %+v, want retained online", status)
	}
}

func TestBridgeCheckPresence(t *testing.T) {
	tests := []struct {
		name      string
		transport *fakeTransport
		want      decode.Presence
	}{
		{
			name: "matching reply",
			transport: &fakeTransport{probeReply: decode.Telegram{
				Source:  0x08,
				Dest:    0xFF,
				Command: 0x0704,
				Data:    []byte{0xB5, 0x05, 0x04},
			}},
			want: decode.PresencePresent,
		},
		{
			name:      "probe error",
			transport: &fakeTransport{probeErr: ErrProbeTimeout},
			want:      decode.PresenceAbsent,
		},
		{
			name: "non-matching reply",
			transport: &fakeTransport{probeReply: decode.Telegram{
				Source:  0x08,
				Dest:    0xFF,
				Command: 0x0704,
				Data:    []byte{0x00},
			}},
			want: decode.PresenceAbsent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mqtt := &fakeMQTT{}
			rec := &fakeRecorder{}
			b := newTestBridge(t, mqtt, tt.transport, rec, nil)

			got := b.CheckPresence(context.Background())
			if got != tt.want {
				t.Fatalf("presence = %v, want %v", got, tt.want)
			}
			if !tt.transport.probed {
				t.Error("probe should have been invoked")
			}

			msg, ok := mqtt.byTopic("ebus2mqtt/status/presence")
			if !ok {
				t.Fatalf("no presence publish, have %v", mqtt.snapshot())
			}
			if msg.payload != tt.want.String() || !msg.retained {
				t.Errorf("presence publish = %+v", msg)
			}

			wantRecorded := tt.want == decode.PresencePresent
			if len(rec.presence) != 1 || rec.presence[0] != wantRecorded {
				t.Errorf("recorded presence = %v, want [%v]", rec.presence, wantRecorded)
			}
		})
	}
}

func TestBridgeCheckPresenceDisabledRuleNotRecorded(t *testing.T) {
	profile, err := schema.Parse([]byte(`{
	  "appliance": "test boiler",
	  "presence_detection": {"valid": false},
	  "circuits": []
	}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	mqtt := &fakeMQTT{}
	rec := &fakeRecorder{}
	transport := &fakeTransport{}
	b, err := NewBridge(BridgeOptions{
		Engine:      decode.NewEngine(profile),
		MQTTClient:  mqtt,
		Transport:   transport,
		StatusTopic: "ebus2mqtt",
		Recorder:    rec,
	})
	if err != nil {
		t.Fatalf("NewBridge: %v", err)
	}

	if got := b.CheckPresence(context.Background()); got != decode.PresenceIndeterminate {
		t.Fatalf("presence = %v, want indeterminate", got)
	}
	if transport.probed {
		t.Error("disabled rule must not probe")
	}
	if len(rec.presence) != 0 {
		t.Errorf("indeterminate outcome must not be recorded, got %v", rec.presence)
	}

	msg, ok := mqtt.byTopic("ebus2mqtt/status/presence")
	if !ok || msg.payload != "indeterminate" {
		t.Errorf("presence publish = %+v, want indeterminate", msg)
	}
}

func TestNewBridgeValidation(t *testing.T) {
	profile, err := schema.Parse([]byte(bridgeProfile))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	engine := decode.NewEngine(profile)

	tests := []struct {
		name string
		opts BridgeOptions
		want string
	}{
		{"missing engine", BridgeOptions{MQTTClient: &fakeMQTT{}, Transport: &fakeTransport{}}, "engine"},
		{"missing mqtt", BridgeOptions{Engine: engine, Transport: &fakeTransport{}}, "MQTT"},
		{"missing transport", BridgeOptions{Engine: engine, MQTTClient: &fakeMQTT{}}, "transport"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewBridge(tt.opts); err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}
