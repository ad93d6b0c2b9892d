package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver

	"github.com/V4T54L/milestone-notifier/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS sent_log (
	shipment_id     TEXT NOT NULL,
	attribute_name  TEXT NOT NULL,
	attribute_value TEXT NOT NULL,
	updated_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (shipment_id, attribute_name)
)`

// SentLogRepository implements domain.SentLogRepository on a local SQLite file.
type SentLogRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the SQLite database at path and ensures the
// sent_log table exists.
func Open(ctx context.Context, path string, logger *slog.Logger) (*SentLogRepository, error) {
	// WAL journaling lets the diagnostic listing read while a webhook writes.
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}

	repo, err := New(ctx, db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

// New wraps an existing handle and bootstraps the schema.
func New(ctx context.Context, db *sql.DB, logger *slog.Logger) (*SentLogRepository, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to create sent_log table: %w", err)
	}
	return &SentLogRepository{db: db, logger: logger.With("component", "sqlite_sent_log")}, nil
}

// Get returns the last value notified for (shipment, attr).
func (r *SentLogRepository) Get(ctx context.Context, shipment domain.ShipmentID, attr domain.AttributeName) (domain.AttributeValue, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		`SELECT attribute_value FROM sent_log WHERE shipment_id = ? AND attribute_name = ?`,
		string(shipment), string(attr),
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query sent_log: %w", err)
	}
	return domain.AttributeValue(value), true, nil
}

// Upsert inserts or replaces the entry.
func (r *SentLogRepository) Upsert(ctx context.Context, entry domain.SentLogEntry) error {
	updatedAt := entry.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO sent_log (shipment_id, attribute_name, attribute_value, updated_at) VALUES (?, ?, ?, ?)`,
		string(entry.ShipmentID), string(entry.Attribute), string(entry.Value), updatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert sent_log entry: %w", err)
	}
	return nil
}

// List returns all entries ordered by shipment and attribute.
func (r *SentLogRepository) List(ctx context.Context) ([]domain.SentLogEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT shipment_id, attribute_name, attribute_value, updated_at FROM sent_log ORDER BY shipment_id, attribute_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sent_log: %w", err)
	}
	defer rows.Close()

	var entries []domain.SentLogEntry
	for rows.Next() {
		var e domain.SentLogEntry
		var shipment, attr, value string
		if err := rows.Scan(&shipment, &attr, &value, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan sent_log row: %w", err)
		}
		e.ShipmentID = domain.ShipmentID(shipment)
		e.Attribute = domain.AttributeName(attr)
		e.Value = domain.AttributeValue(value)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the underlying database handle.
func (r *SentLogRepository) Close() error {
	return r.db.Close()
}
