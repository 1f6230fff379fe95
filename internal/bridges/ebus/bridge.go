package ebus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ebushome/ebus2mqtt/internal/decode"
	"github.com/ebushome/ebus2mqtt/internal/schema"
)

// Bridge operation constants.
const (
	// defaultPresenceInterval is how often the presence rule is
	// re-evaluated when no interval is configured.
	defaultPresenceInterval = 60 * time.Second

	// defaultProbeTimeout bounds a single presence probe.
	defaultProbeTimeout = 5 * time.Second

	// historyTimeout bounds a single history insert.
	historyTimeout = 2 * time.Second
)

// Bridge ties the bus to the broker: it decodes completed exchanges against
// the appliance profile, publishes each decoded field on its declared topic,
// and keeps the autodiscovery and presence state on the broker current.
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	engine    *decode.Engine
	mqtt      MQTTClient
	transport BusTransport
	recorder  Recorder
	history   HistoryStore

	statusTopic      string
	presenceInterval time.Duration
	probeTimeout     time.Duration

	done      chan struct{}
	wg        sync.WaitGroup
	stopOnce  sync.Once
	ctx       context.Context
	ctxCancel context.CancelFunc

	logger Logger
}

// MQTTClient is the broker side of the bridge.
// This allows mocking in tests and flexibility in implementation.
type MQTTClient interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool
}

// BusTransport is the bus side of the bridge. Satisfied by *Transport.
type BusTransport interface {
	// Start opens the adapter connection and begins reading.
	Start(ctx context.Context) error

	// Stop closes the connection and waits for the read loop.
	Stop()

	// Connected reports whether the adapter connection is up.
	Connected() bool

	// Probe injects one request frame and returns the exchange it
	// produced on the bus.
	Probe(ctx context.Context, request schema.PatternSpec) (decode.Telegram, error)
}

// Recorder persists decoded readings and presence outcomes to the
// time-series store. It is optional; if nil, the bridge operates without
// recording.
type Recorder interface {
	// WriteFieldReading records one decoded field value.
	WriteFieldReading(circuit, field string, value float64, unit string)

	// WritePresence records the outcome of one presence probe.
	WritePresence(appliance string, present bool)
}

// HistoryStore keeps a local log of decoded readings.
// It is optional; if nil, the bridge operates without history.
type HistoryStore interface {
	// Insert appends one reading to the log.
	Insert(ctx context.Context, circuit, field string, value float64, unit, topic string, observedAt time.Time) error
}

// Logger is the structured logging interface the bridge emits on.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// BridgeOptions holds configuration for creating a bridge.
type BridgeOptions struct {
	// Engine is the decoding engine with the loaded profile.
	Engine *decode.Engine

	// MQTTClient is the MQTT client implementation.
	MQTTClient MQTTClient

	// Transport is the bus transport.
	Transport BusTransport

	// StatusTopic is the base topic for bridge status publishes
	// (availability, presence).
	StatusTopic string

	// PresenceInterval is how often the presence rule is re-evaluated.
	// Zero selects the default.
	PresenceInterval time.Duration

	// ProbeTimeout bounds a single presence probe. Zero selects the
	// default.
	ProbeTimeout time.Duration

	// Recorder is optional time-series recording of decoded readings.
	Recorder Recorder

	// History is optional local reading history.
	History HistoryStore

	// Logger is optional structured logger.
	Logger Logger
}

// NewBridge creates a new bridge instance.
// Call Start() to begin operation.
func NewBridge(opts BridgeOptions) (*Bridge, error) {
	if opts.Engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if opts.MQTTClient == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}
	if opts.Transport == nil {
		return nil, fmt.Errorf("transport is required")
	}

	ctx, ctxCancel := context.WithCancel(context.Background())

	b := &Bridge{
		engine:           opts.Engine,
		mqtt:             opts.MQTTClient,
		transport:        opts.Transport,
		recorder:         opts.Recorder, // May be nil (optional)
		history:          opts.History,  // May be nil (optional)
		statusTopic:      opts.StatusTopic,
		presenceInterval: opts.PresenceInterval,
		probeTimeout:     opts.ProbeTimeout,
		done:             make(chan struct{}),
		ctx:              ctx,
		ctxCancel:        ctxCancel,
		logger:           opts.Logger,
	}
	if b.statusTopic == "" {
		b.statusTopic = "ebus2mqtt"
	}
	if b.presenceInterval <= 0 {
		b.presenceInterval = defaultPresenceInterval
	}
	if b.probeTimeout <= 0 {
		b.probeTimeout = defaultProbeTimeout
	}
	return b, nil
}

// HandleExchange is the transport callback: it decodes one completed
// exchange and publishes whatever it yields. Unrecognised telegrams are
// normal bus chatter; per-message decode failures are logged and skipped.
func (b *Bridge) HandleExchange(ex Exchange) {
	tel := ex.Telegram()

	readings, matched, err := b.engine.Decode(tel)
	if err != nil {
		b.logWarn("telegram decode failed", "telegram", tel.String(), "error", err)
		return
	}
	if !matched {
		b.logDebug("unmatched telegram", "telegram", tel.String())
		return
	}

	for _, r := range readings {
		b.publishReading(r)
	}
}

// publishReading publishes one decoded field and records it.
func (b *Bridge) publishReading(r decode.Reading) {
	payload := decode.FormatValue(r.Value)

	if err := b.mqtt.Publish(r.Topic, []byte(payload), 0, false); err != nil {
		b.logError("publishing reading", err)
	}

	if b.recorder != nil {
		b.recorder.WriteFieldReading(r.Circuit, r.Field, r.Value, r.Unit)
	}

	if b.history != nil {
		ctx, cancel := context.WithTimeout(b.ctx, historyTimeout)
		defer cancel()
		if err := b.history.Insert(ctx, r.Circuit, r.Field, r.Value, r.Unit, r.Topic, time.Now()); err != nil {
			b.logError("recording history", err)
		}
	}
}

// Start begins bridge operation: it publishes the retained autodiscovery
// documents, connects the transport, announces availability, and starts the
// presence loop when the profile carries an authoritative rule.
func (b *Bridge) Start(ctx context.Context) error {
	b.publishDiscovery()

	if err := b.transport.Start(ctx); err != nil {
		return err
	}

	b.publishAvailability("online")

	if b.engine.Profile().Presence.Valid {
		b.wg.Add(1)
		go b.presenceLoop()
	}

	b.logInfo("bridge started", "appliance", b.engine.Profile().Appliance)
	return nil
}

// Stop gracefully shuts down the bridge.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		close(b.done)
		b.ctxCancel()
		b.wg.Wait()
		b.transport.Stop()
		b.publishAvailability("offline")
		b.logInfo("bridge stopped")
	})
}

// publishDiscovery publishes one retained autodiscovery document per known
// field. Consumers that join later still see them.
func (b *Bridge) publishDiscovery() {
	docs := b.engine.DiscoveryMessages()
	for _, doc := range docs {
		payload, err := json.Marshal(doc.Payload)
		if err != nil {
			b.logError("encoding discovery document", err)
			continue
		}
		if err := b.mqtt.Publish(doc.Topic, payload, 1, true); err != nil {
			b.logError("publishing discovery document", err)
		}
	}
	if len(docs) > 0 {
		b.logInfo("autodiscovery documents published", "count", len(docs))
	}
}

// publishAvailability publishes the bridge's own retained status.
func (b *Bridge) publishAvailability(state string) {
	topic := b.statusTopic + "/status"
	if err := b.mqtt.Publish(topic, []byte(state), 1, true); err != nil {
		b.logError("publishing availability", err)
	}
}

// presenceLoop periodically evaluates the presence rule and publishes the
// outcome. The first check runs immediately.
func (b *Bridge) presenceLoop() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.presenceInterval)
	defer ticker.Stop()

	b.CheckPresence(b.ctx)
	for {
		select {
		case <-b.done:
			return
		case <-ticker.C:
			b.CheckPresence(b.ctx)
		}
	}
}

// CheckPresence evaluates the profile's presence rule once and publishes the
// retained result under <status>/presence.
func (b *Bridge) CheckPresence(ctx context.Context) decode.Presence {
	probeCtx, cancel := context.WithTimeout(ctx, b.probeTimeout)
	defer cancel()

	result := decode.EvaluatePresence(probeCtx, b.engine.Profile().Presence, b.transport.Probe)

	topic := b.statusTopic + "/status/presence"
	if err := b.mqtt.Publish(topic, []byte(result.String()), 1, true); err != nil {
		b.logError("publishing presence", err)
	}

	// An indeterminate result means no probe happened; there is nothing
	// to record.
	if b.recorder != nil && result != decode.PresenceIndeterminate {
		b.recorder.WritePresence(b.engine.Profile().Appliance, result == decode.PresencePresent)
	}
	b.logInfo("presence evaluated", "result", result.String())
	return result
}

// logDebug logs a debug message if a logger is set.
func (b *Bridge) logDebug(msg string, keysAndValues ...any) {
	if b.logger != nil {
		b.logger.Debug(msg, keysAndValues...)
	}
}

// logInfo logs an info message if a logger is set.
func (b *Bridge) logInfo(msg string, keysAndValues ...any) {
	if b.logger != nil {
		b.logger.Info(msg, keysAndValues...)
	}
}

// logWarn logs a warning if a logger is set.
func (b *Bridge) logWarn(msg string, keysAndValues ...any) {
	if b.logger != nil {
		b.logger.Warn(msg, keysAndValues...)
	}
}

// logError logs an error if a logger is set.
func (b *Bridge) logError(msg string, err error) {
	if b.logger != nil {
		b.logger.Error(msg, "error", err)
	}
}
