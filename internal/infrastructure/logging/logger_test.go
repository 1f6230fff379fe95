package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/ebushome/ebus2mqtt/internal/infrastructure/config"
)

// captureLogger builds a logger through the production handler path,
// writing into the returned buffer.
func captureLogger(cfg config.LoggingConfig, version string) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return &Logger{Logger: slog.New(newHandler(cfg, version, &buf))}, &buf
}

func TestJSONOutputCarriesServiceIdentity(t *testing.T) {
	logger, buf := captureLogger(config.LoggingConfig{Level: "info", Format: "json"}, "1.2.3")

	logger.Info("bridge started", "appliance", "vaillant ecotec")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if entry["service"] != "ebus2mqtt" {
		t.Errorf("service = %v, want ebus2mqtt", entry["service"])
	}
	if entry["version"] != "1.2.3" {
		t.Errorf("version = %v, want 1.2.3", entry["version"])
	}
	if entry["msg"] != "bridge started" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["appliance"] != "vaillant ecotec" {
		t.Errorf("appliance = %v", entry["appliance"])
	}
}

func TestTextFormat(t *testing.T) {
	logger, buf := captureLogger(config.LoggingConfig{Level: "info", Format: "text"}, "dev")

	logger.Info("adapter connected", "addr", "127.0.0.1:9999")

	out := buf.String()
	if !strings.Contains(out, "msg=\"adapter connected\"") {
		t.Errorf("text output missing message: %s", out)
	}
	if !strings.Contains(out, "service=ebus2mqtt") {
		t.Errorf("text output missing service field: %s", out)
	}
}

func TestLevelFiltering(t *testing.T) {
	logger, buf := captureLogger(config.LoggingConfig{Level: "warn", Format: "json"}, "dev")

	logger.Debug("unmatched telegram")
	logger.Info("presence evaluated")
	if buf.Len() != 0 {
		t.Fatalf("entries below warn were emitted: %s", buf.String())
	}

	logger.Warn("telegram decode failed")
	if buf.Len() == 0 {
		t.Error("warn entry was filtered out")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected slog.Level
	}{
		{"debug level", "debug", slog.LevelDebug},
		{"info level", "info", slog.LevelInfo},
		{"warn level", "warn", slog.LevelWarn},
		{"warning level", "warning", slog.LevelWarn},
		{"error level", "error", slog.LevelError},
		{"unknown defaults to info", "unknown", slog.LevelInfo},
		{"empty defaults to info", "", slog.LevelInfo},
		{"case insensitive", "DEBUG", slog.LevelDebug},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestWithAddsComponentField(t *testing.T) {
	logger, buf := captureLogger(config.LoggingConfig{Level: "info", Format: "json"}, "dev")

	child := logger.With("component", "mqtt")
	if child == logger {
		t.Fatal("With() must return a distinct logger")
	}
	child.Info("reconnecting to broker")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry["component"] != "mqtt" {
		t.Errorf("component = %v, want mqtt", entry["component"])
	}
}

func TestDefault(t *testing.T) {
	if Default() == nil {
		t.Fatal("Default() = nil")
	}
}
