package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ebushome/ebus2mqtt/internal/infrastructure/database"
)

// Reading is one decoded field value as it was published.
type Reading struct {
	ID         int64
	Circuit    string
	Field      string
	Value      float64
	Unit       string
	Topic      string
	ObservedAt time.Time
}

// Store writes and queries the readings table.
type Store struct {
	db *database.DB
}

// New creates a Store and ensures the readings schema exists.
//
// Parameters:
//   - db: An open database connection (see database.Open)
//
// Returns:
//   - *Store: Ready for inserts and queries
//   - error: If schema creation fails
func New(db *database.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

// ensureSchema creates the readings table and its indexes if missing.
// The schema is additive and idempotent, so startup is safe against
// an existing database from any earlier version.
func (s *Store) ensureSchema() error {
	const schema = `
		CREATE TABLE IF NOT EXISTS readings (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			circuit     TEXT NOT NULL,
			field       TEXT NOT NULL,
			value       REAL NOT NULL,
			unit        TEXT NOT NULL DEFAULT '',
			topic       TEXT NOT NULL DEFAULT '',
			observed_at TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_readings_circuit_field
			ON readings(circuit, field, observed_at);
		CREATE INDEX IF NOT EXISTS idx_readings_observed_at
			ON readings(observed_at);
	`

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating readings schema: %w", err)
	}
	return nil
}

// Insert appends one reading to the log.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - circuit, field: Identity of the decoded field
//   - value: The scaled numeric value
//   - unit: Profile unit annotation (may be empty)
//   - topic: The MQTT topic the reading was published on
//   - observedAt: When the telegram was decoded
func (s *Store) Insert(ctx context.Context, circuit, field string, value float64, unit, topic string, observedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO readings (circuit, field, value, unit, topic, observed_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		circuit, field, value, unit, topic, observedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting reading %s/%s: %w", circuit, field, err)
	}
	return nil
}

// Latest returns the most recent reading for a field.
//
// Returns ErrNotFound if the field has never been recorded.
func (s *Store) Latest(ctx context.Context, circuit, field string) (Reading, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, circuit, field, value, unit, topic, observed_at
		FROM readings
		WHERE circuit = ? AND field = ?
		ORDER BY observed_at DESC, id DESC
		LIMIT 1`,
		circuit, field,
	)

	var r Reading
	err := row.Scan(&r.ID, &r.Circuit, &r.Field, &r.Value, &r.Unit, &r.Topic, &r.ObservedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Reading{}, ErrNotFound
	}
	if err != nil {
		return Reading{}, fmt.Errorf("querying latest reading %s/%s: %w", circuit, field, err)
	}
	return r, nil
}

// Recent returns up to limit readings for a field, newest first.
func (s *Store) Recent(ctx context.Context, circuit, field string, limit int) ([]Reading, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, circuit, field, value, unit, topic, observed_at
		FROM readings
		WHERE circuit = ? AND field = ?
		ORDER BY observed_at DESC, id DESC
		LIMIT ?`,
		circuit, field, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying readings %s/%s: %w", circuit, field, err)
	}
	defer rows.Close()

	var readings []Reading
	for rows.Next() {
		var r Reading
		if err := rows.Scan(&r.ID, &r.Circuit, &r.Field, &r.Value, &r.Unit, &r.Topic, &r.ObservedAt); err != nil {
			return nil, fmt.Errorf("scanning reading: %w", err)
		}
		readings = append(readings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating readings: %w", err)
	}
	return readings, nil
}

// Count returns the total number of stored readings.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM readings").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting readings: %w", err)
	}
	return count, nil
}

// Prune deletes readings observed before the cutoff.
//
// Returns the number of rows removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM readings WHERE observed_at < ?", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("pruning readings: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("pruning readings: %w", err)
	}
	return removed, nil
}
