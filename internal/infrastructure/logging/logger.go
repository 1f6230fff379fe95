package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/ebushome/ebus2mqtt/internal/infrastructure/config"
)

// Logger is the service-wide structured logger. It embeds slog.Logger,
// so the usual Debug/Info/Warn/Error surface is available directly.
//
// Thread Safety: safe for concurrent use.
type Logger struct {
	*slog.Logger
}

// New builds the logger from the logging section of config.yaml: output
// destination, format (JSON for production, text for development) and
// level filter. Every entry carries the service identity.
func New(cfg config.LoggingConfig, version string) *Logger {
	return &Logger{Logger: slog.New(newHandler(cfg, version, writerFor(cfg.Output)))}
}

// newHandler builds the slog handler New wraps. Split from New so tests
// can point it at a buffer.
func newHandler(cfg config.LoggingConfig, version string, w io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var h slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "text":
		h = slog.NewTextHandler(w, opts)
	default:
		h = slog.NewJSONHandler(w, opts)
	}

	return h.WithAttrs([]slog.Attr{
		slog.String("service", "ebus2mqtt"),
		slog.String("version", version),
	})
}

// writerFor maps the configured output name onto a destination.
// Anything unrecognised falls back to stdout.
func writerFor(output string) io.Writer {
	if strings.ToLower(output) == "stderr" {
		return os.Stderr
	}
	return os.Stdout
}

// parseLevel converts a configured level name to slog.Level.
// Unrecognised names default to info.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a child logger carrying additional default attributes.
//
//	busLog := logger.With("component", "ebus")
//	busLog.Info("adapter connected") // includes component=ebus
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Default returns a JSON stdout logger at info level, for the window
// during startup before configuration is loaded.
func Default() *Logger {
	return New(config.LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}, "dev")
}
