// Package history persists decoded field readings to SQLite.
//
// Every reading the bridge publishes is also appended to a local readings
// table, giving the service a queryable log that survives broker outages
// and restarts. The table is created idempotently on startup; retention
// is enforced by periodic pruning.
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.History.Path})
//	if err != nil {
//	    return err
//	}
//	store, err := history.New(db)
//	if err != nil {
//	    return err
//	}
//
//	err = store.Insert(ctx, "boiler", "flow_temp", 52.3, "°C",
//	    "ebusd/boiler/flow_temp", time.Now())
//
// Thread Safety:
//   - All methods are safe for concurrent use. SQLite serialises writes
//     through the single-writer connection pool configured by database.Open.
package history
