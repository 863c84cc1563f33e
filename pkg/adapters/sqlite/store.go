// Package sqlite provides a single-node, durable ports.EventStore backed by
// an embedded SQLite database (modernc.org/sqlite, no cgo).
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/lmrtfy/pkg/domain"
	_ "modernc.org/sqlite"
)

// Store implements ports.EventStore on an analytics_events table.
// Rows are ordered by timestamp, then by insertion sequence.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or connects to the database at path and applies migrations.
// The path ":memory:" opens a private in-memory database.
func Open(ctx context.Context, path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("ensure database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection: an in-memory database is per connection, and SQLite
	// serializes writers anyway.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.applyMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Append inserts the event and deletes the oldest rows beyond capacity.
func (s *Store) Append(ctx context.Context, event domain.AnalyticsEvent, capacity int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO analytics_events (id, type, ts_nanos, prompt, user_agent, referer)
         VALUES (?, ?, ?, ?, ?, ?)`,
		event.ID,
		string(event.Type),
		event.Timestamp.UnixNano(),
		event.Prompt,
		event.UserAgent,
		event.Referer,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	if capacity > 0 {
		_, err = tx.ExecContext(ctx,
			`DELETE FROM analytics_events WHERE seq NOT IN (
                SELECT seq FROM analytics_events ORDER BY ts_nanos DESC, seq DESC LIMIT ?
            )`,
			capacity,
		)
		if err != nil {
			return fmt.Errorf("trim events: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append: %w", err)
	}
	return nil
}

// List returns the log oldest first.
func (s *Store) List(ctx context.Context) ([]domain.AnalyticsEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, type, ts_nanos, prompt, user_agent, referer
         FROM analytics_events ORDER BY ts_nanos, seq`)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []domain.AnalyticsEvent{}
	for rows.Next() {
		var (
			e     domain.AnalyticsEvent
			typ   string
			nanos int64
		)
		if err := rows.Scan(&e.ID, &typ, &nanos, &e.Prompt, &e.UserAgent, &e.Referer); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Type = domain.EventType(typ)
		e.Timestamp = time.Unix(0, nanos).UTC()
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// DeleteBefore removes events at or before cutoff.
func (s *Store) DeleteBefore(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM analytics_events WHERE ts_nanos <= ?`, cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	return int(n), nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
