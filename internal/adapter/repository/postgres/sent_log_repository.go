package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/V4T54L/milestone-notifier/internal/domain"
)

const (
	sentLogTableName = "sent_log"
	importTableName  = "sent_log_import"
)

const schema = `
CREATE TABLE IF NOT EXISTS sent_log (
	shipment_id     TEXT NOT NULL,
	attribute_name  TEXT NOT NULL,
	attribute_value TEXT NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (shipment_id, attribute_name)
)`

// SentLogRepository implements domain.SentLogRepository for PostgreSQL.
type SentLogRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSentLogRepository creates a new PostgreSQL sent log repository.
func NewSentLogRepository(db *sql.DB, logger *slog.Logger) *SentLogRepository {
	return &SentLogRepository{db: db, logger: logger.With("component", "postgres_sent_log")}
}

// EnsureSchema creates the sent_log table if it does not exist.
func (r *SentLogRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create %s table: %w", sentLogTableName, err)
	}
	return nil
}

// Get returns the last value notified for (shipment, attr).
func (r *SentLogRepository) Get(ctx context.Context, shipment domain.ShipmentID, attr domain.AttributeName) (domain.AttributeValue, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		`SELECT attribute_value FROM sent_log WHERE shipment_id = $1 AND attribute_name = $2`,
		string(shipment), string(attr),
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, describe(err)
	}
	return domain.AttributeValue(value), true, nil
}

// Upsert inserts the entry or replaces the value of an existing key.
func (r *SentLogRepository) Upsert(ctx context.Context, entry domain.SentLogEntry) error {
	updatedAt := entry.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sent_log (shipment_id, attribute_name, attribute_value, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (shipment_id, attribute_name) DO UPDATE SET
			attribute_value = EXCLUDED.attribute_value,
			updated_at = EXCLUDED.updated_at`,
		string(entry.ShipmentID), string(entry.Attribute), string(entry.Value), updatedAt,
	)
	if err != nil {
		return describe(err)
	}
	return nil
}

// List returns all entries ordered by shipment and attribute.
func (r *SentLogRepository) List(ctx context.Context) ([]domain.SentLogEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT shipment_id, attribute_name, attribute_value, updated_at FROM sent_log ORDER BY shipment_id, attribute_name`)
	if err != nil {
		return nil, describe(err)
	}
	defer rows.Close()

	var entries []domain.SentLogEntry
	for rows.Next() {
		var shipment, attr, value string
		var updatedAt time.Time
		if err := rows.Scan(&shipment, &attr, &value, &updatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, domain.SentLogEntry{
			ShipmentID: domain.ShipmentID(shipment),
			Attribute:  domain.AttributeName(attr),
			Value:      domain.AttributeValue(value),
			UpdatedAt:  updatedAt,
		})
	}
	return entries, rows.Err()
}

// ImportBatch bulk-loads entries with the COPY protocol, staging them in a temp
// table and merging into sent_log. Existing keys are overwritten only when the
// imported row is newer.
func (r *SentLogRepository) ImportBatch(ctx context.Context, entries []domain.SentLogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer txn.Rollback() // Rollback is a no-op if Commit() is called

	_, err = txn.ExecContext(ctx, `CREATE TEMP TABLE `+importTableName+` (LIKE `+sentLogTableName+` INCLUDING DEFAULTS) ON COMMIT DROP`)
	if err != nil {
		return err
	}

	stmt, err := txn.PrepareContext(ctx, pq.CopyIn(importTableName, "shipment_id", "attribute_name", "attribute_value", "updated_at"))
	if err != nil {
		return err
	}

	for _, e := range entries {
		updatedAt := e.UpdatedAt
		if updatedAt.IsZero() {
			updatedAt = time.Now().UTC()
		}
		_, err = stmt.ExecContext(ctx, string(e.ShipmentID), string(e.Attribute), string(e.Value), updatedAt)
		if err != nil {
			_ = stmt.Close()
			return err
		}
	}

	if err := stmt.Close(); err != nil {
		return err
	}

	_, err = txn.ExecContext(ctx, `
		INSERT INTO sent_log (shipment_id, attribute_name, attribute_value, updated_at)
		SELECT DISTINCT ON (shipment_id, attribute_name) shipment_id, attribute_name, attribute_value, updated_at
		FROM `+importTableName+`
		ORDER BY shipment_id, attribute_name, updated_at DESC
		ON CONFLICT (shipment_id, attribute_name) DO UPDATE SET
			attribute_value = EXCLUDED.attribute_value,
			updated_at = EXCLUDED.updated_at
		WHERE sent_log.updated_at < EXCLUDED.updated_at`)
	if err != nil {
		return err
	}

	if err := txn.Commit(); err != nil {
		return err
	}
	r.logger.Info("imported sent log entries", "count", len(entries))
	return nil
}

// describe adds the SQLSTATE to driver errors so log lines are actionable.
func describe(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return fmt.Errorf("postgres %s (%s): %w", pqErr.Code.Name(), pqErr.Code, err)
	}
	return err
}
