package postgres

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/V4T54L/milestone-notifier/internal/domain"
)

func newMockRepo(t *testing.T) (*SentLogRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewSentLogRepository(db, logger), mock
}

func TestSentLogRepository_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("Found", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery(`SELECT attribute_value FROM sent_log WHERE shipment_id = \$1 AND attribute_name = \$2`).
			WithArgs("S1", "attributeDate1").
			WillReturnRows(sqlmock.NewRows([]string{"attribute_value"}).AddRow("2024-01-01"))

		v, found, err := repo.Get(ctx, "S1", domain.AttributeDate1)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, domain.AttributeValue("2024-01-01"), v)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not found", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery(`SELECT attribute_value FROM sent_log`).
			WithArgs("S1", "attributeDate2").
			WillReturnError(sql.ErrNoRows)

		_, found, err := repo.Get(ctx, "S1", domain.AttributeDate2)
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("Driver error carries SQLSTATE", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery(`SELECT attribute_value FROM sent_log`).
			WillReturnError(&pq.Error{Code: "42P01", Message: `relation "sent_log" does not exist`})

		_, _, err := repo.Get(ctx, "S1", domain.AttributeDate2)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "undefined_table")
		var pqErr *pq.Error
		assert.True(t, errors.As(err, &pqErr))
	})
}

func TestSentLogRepository_Upsert(t *testing.T) {
	repo, mock := newMockRepo(t)
	ts := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(`INSERT INTO sent_log .* ON CONFLICT \(shipment_id, attribute_name\) DO UPDATE`).
		WithArgs("S1", "attributeDate6", "2024-01-01", ts).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Upsert(context.Background(), domain.SentLogEntry{
		ShipmentID: "S1", Attribute: domain.AttributeDate6, Value: "2024-01-01", UpdatedAt: ts,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSentLogRepository_List(t *testing.T) {
	repo, mock := newMockRepo(t)
	ts := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT shipment_id, attribute_name, attribute_value, updated_at FROM sent_log ORDER BY`).
		WillReturnRows(sqlmock.NewRows([]string{"shipment_id", "attribute_name", "attribute_value", "updated_at"}).
			AddRow("S1", "attributeDate1", "a", ts).
			AddRow("S2", "attributeDate7", "b", ts))

	entries, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.SentLogEntry{ShipmentID: "S2", Attribute: domain.AttributeDate7, Value: "b", UpdatedAt: ts}, entries[1])
}

func TestSentLogRepository_EnsureSchema(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS sent_log`).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSentLogRepository_ImportBatch(t *testing.T) {
	ts := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	entries := []domain.SentLogEntry{
		{ShipmentID: "S1", Attribute: domain.AttributeDate1, Value: "a", UpdatedAt: ts},
		{ShipmentID: "S1", Attribute: domain.AttributeDate2, Value: "b", UpdatedAt: ts},
	}

	t.Run("Empty batch is a no-op", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		require.NoError(t, repo.ImportBatch(context.Background(), nil))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Copies and merges", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectBegin()
		mock.ExpectExec(`CREATE TEMP TABLE sent_log_import`).WillReturnResult(sqlmock.NewResult(0, 0))
		prep := mock.ExpectPrepare(`COPY "sent_log_import"`)
		prep.ExpectExec().WithArgs("S1", "attributeDate1", "a", ts).WillReturnResult(sqlmock.NewResult(0, 1))
		prep.ExpectExec().WithArgs("S1", "attributeDate2", "b", ts).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO sent_log .* FROM sent_log_import`).WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectCommit()

		require.NoError(t, repo.ImportBatch(context.Background(), entries))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Copy failure rolls back", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectBegin()
		mock.ExpectExec(`CREATE TEMP TABLE sent_log_import`).WillReturnResult(sqlmock.NewResult(0, 0))
		prep := mock.ExpectPrepare(`COPY "sent_log_import"`)
		prep.ExpectExec().WillReturnError(errors.New("copy failed"))
		mock.ExpectRollback()

		err := repo.ImportBatch(context.Background(), entries)
		require.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
