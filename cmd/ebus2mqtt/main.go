// ebus2mqtt - serial bus to MQTT gateway
//
// This is the main entry point for the ebus2mqtt service. It connects to
// a TCP-attached bus interface adapter, decodes telegrams against a
// declarative appliance profile, and republishes the decoded field values
// to an MQTT broker, with optional InfluxDB recording and a local SQLite
// reading history.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ebushome/ebus2mqtt/internal/bridges/ebus"
	"github.com/ebushome/ebus2mqtt/internal/decode"
	"github.com/ebushome/ebus2mqtt/internal/history"
	"github.com/ebushome/ebus2mqtt/internal/infrastructure/config"
	"github.com/ebushome/ebus2mqtt/internal/infrastructure/database"
	"github.com/ebushome/ebus2mqtt/internal/infrastructure/influxdb"
	"github.com/ebushome/ebus2mqtt/internal/infrastructure/logging"
	"github.com/ebushome/ebus2mqtt/internal/infrastructure/mqtt"
	"github.com/ebushome/ebus2mqtt/internal/schema"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// pruneInterval is how often stale history rows are removed.
const pruneInterval = time.Hour

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting ebus2mqtt",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Load the appliance profile
	profile, err := schema.Load(cfg.Profile.Path)
	if err != nil {
		return fmt.Errorf("loading profile: %w", err)
	}
	log.Info("profile loaded",
		"path", cfg.Profile.Path,
		"appliance", profile.Appliance,
		"circuits", len(profile.Circuits),
	)

	engine := decode.NewEngine(profile)

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Open the local reading history (optional)
	var historyStore *history.Store
	if cfg.History.Enabled {
		db, dbErr := database.Open(database.Config{
			Path:        cfg.History.Path,
			WALMode:     cfg.History.WALMode,
			BusyTimeout: cfg.History.BusyTimeout,
		})
		if dbErr != nil {
			return fmt.Errorf("opening history database: %w", dbErr)
		}
		defer func() {
			log.Info("closing history database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing history database", "error", closeErr)
			}
		}()

		historyStore, err = history.New(db)
		if err != nil {
			return fmt.Errorf("initialising history: %w", err)
		}
		log.Info("history enabled", "path", cfg.History.Path)

		if cfg.History.RetentionDays > 0 {
			go pruneLoop(ctx, historyStore, cfg.GetRetention(), log)
		}
	} else {
		log.Info("history disabled")
	}

	// Wire the bus transport into the bridge. The transport delivers
	// completed exchanges to the bridge's handler; the bridge is created
	// before transport.Start runs inside Bridge.Start, so the indirection
	// never sees a nil bridge.
	var bridge *ebus.Bridge
	transport := ebus.NewTransport(cfg.AdapterAddr(), func(ex ebus.Exchange) {
		bridge.HandleExchange(ex)
	})
	transport.SetLogger(log)

	var recorder ebus.Recorder
	if influxClient != nil {
		recorder = influxClient
	}
	var historyOpt ebus.HistoryStore
	if historyStore != nil {
		historyOpt = historyStore
	}

	bridge, err = ebus.NewBridge(ebus.BridgeOptions{
		Engine:           engine,
		MQTTClient:       mqttClient,
		Transport:        transport,
		StatusTopic:      cfg.MQTT.BaseTopic,
		PresenceInterval: cfg.GetPresenceInterval(),
		ProbeTimeout:     cfg.GetProbeTimeout(),
		Recorder:         recorder,
		History:          historyOpt,
		Logger:           log,
	})
	if err != nil {
		return fmt.Errorf("creating bridge: %w", err)
	}

	if err := bridge.Start(ctx); err != nil {
		return fmt.Errorf("starting bridge: %w", err)
	}
	defer func() {
		log.Info("stopping bridge")
		bridge.Stop()
	}()
	log.Info("bridge started", "adapter", cfg.AdapterAddr())

	// Verify all connections are healthy
	if err := healthCheck(ctx, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. Bridge (transport, availability)
	// 2. History database (if enabled)
	// 3. InfluxDB (if enabled)
	// 4. MQTT

	log.Info("ebus2mqtt stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses EBUS2MQTT_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("EBUS2MQTT_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - mqttClient: MQTT client to check
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	// The bus adapter connection is verified during Bridge.Start, which
	// dials the adapter before returning successfully.

	return nil
}

// pruneLoop periodically removes history rows older than the retention
// window. Runs until the context is cancelled.
func pruneLoop(ctx context.Context, store *history.Store, retention time.Duration, log *logging.Logger) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-retention)
			removed, err := store.Prune(ctx, cutoff)
			if err != nil {
				log.Error("history prune failed", "error", err)
				continue
			}
			if removed > 0 {
				log.Info("history pruned", "removed", removed)
			}
		}
	}
}
