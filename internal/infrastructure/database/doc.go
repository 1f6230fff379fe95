// Package database provides SQLite database connectivity for ebus2mqtt.
//
// This package manages:
//   - Database connection with WAL mode for concurrent access
//   - Connection lifecycle and health checks
//
// The DB type embeds sql.DB, so callers query through the standard
// database/sql surface directly.
//
// Schema ownership lives with the consuming package (see internal/history),
// which creates its tables idempotently on startup. A single readings table
// does not warrant a versioned migration framework.
//
// Security Considerations:
//   - All queries use parameterised statements (no SQL injection)
//   - Database file permissions are set to 0600 (owner read/write only)
//
// Performance Characteristics:
//   - WAL mode allows concurrent reads during writes
//   - Busy timeout prevents lock contention errors
//   - Connection pooling reduces overhead
//
// Usage:
//
//	db, err := database.Open(database.Config{
//	    Path:        cfg.History.Path,
//	    WALMode:     cfg.History.WALMode,
//	    BusyTimeout: cfg.History.BusyTimeout,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
package database
