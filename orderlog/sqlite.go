package orderlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS order_log (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	order_id   TEXT NOT NULL,
	status     TEXT NOT NULL,
	step       TEXT NOT NULL,
	detail     TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_order_log_order_id ON order_log(order_id, id);
`

// SQLite is a Log backed by an embedded SQLite database in WAL mode.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) the database at path and ensures the
// log schema exists.
func NewSQLite(path string) (*SQLite, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("orderlog: open %s: %w", path, err)
	}
	// Single writer keeps SQLite happy under concurrent appends.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("orderlog: create schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Append records a transition.
func (s *SQLite) Append(ctx context.Context, entry Entry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO order_log (order_id, status, step, detail, created_at) VALUES (?, ?, ?, ?, ?)`,
		entry.OrderID, entry.Status, entry.Step, entry.Detail, entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("orderlog: append for order %s: %w", entry.OrderID, err)
	}
	return nil
}

// ListByOrder returns the order's entries oldest first.
func (s *SQLite) ListByOrder(ctx context.Context, orderID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, order_id, status, step, detail, created_at FROM order_log WHERE order_id = ? ORDER BY id`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("orderlog: list for order %s: %w", orderID, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var createdAt string
		if err := rows.Scan(&e.ID, &e.OrderID, &e.Status, &e.Step, &e.Detail, &createdAt); err != nil {
			return nil, fmt.Errorf("orderlog: scan entry: %w", err)
		}
		e.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("orderlog: parse timestamp %q: %w", createdAt, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

var _ Log = (*SQLite)(nil)
