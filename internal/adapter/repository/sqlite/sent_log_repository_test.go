package sqlite

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/V4T54L/milestone-notifier/internal/domain"
)

func openTestRepo(t *testing.T) *SentLogRepository {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo, err := Open(context.Background(), filepath.Join(t.TempDir(), "sent_log.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSentLogRepository_GetUpsert(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	_, found, err := repo.Get(ctx, "S1", domain.AttributeDate1)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, repo.Upsert(ctx, domain.SentLogEntry{
		ShipmentID: "S1", Attribute: domain.AttributeDate1, Value: "2024-01-01", UpdatedAt: time.Now().UTC(),
	}))

	v, found, err := repo.Get(ctx, "S1", domain.AttributeDate1)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, domain.AttributeValue("2024-01-01"), v)

	// Replace keeps exactly one row per key.
	require.NoError(t, repo.Upsert(ctx, domain.SentLogEntry{
		ShipmentID: "S1", Attribute: domain.AttributeDate1, Value: "2024-01-05",
	}))
	v, _, err = repo.Get(ctx, "S1", domain.AttributeDate1)
	require.NoError(t, err)
	assert.Equal(t, domain.AttributeValue("2024-01-05"), v)

	entries, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.ShipmentID("S1"), entries[0].ShipmentID)
	assert.False(t, entries[0].UpdatedAt.IsZero())
}

func TestSentLogRepository_KeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	require.NoError(t, repo.Upsert(ctx, domain.SentLogEntry{ShipmentID: "S2", Attribute: domain.AttributeDate7, Value: "b"}))
	require.NoError(t, repo.Upsert(ctx, domain.SentLogEntry{ShipmentID: "S1", Attribute: domain.AttributeDate7, Value: "a"}))
	require.NoError(t, repo.Upsert(ctx, domain.SentLogEntry{ShipmentID: "S1", Attribute: domain.AttributeDate2, Value: "c"}))

	_, found, err := repo.Get(ctx, "S2", domain.AttributeDate2)
	require.NoError(t, err)
	assert.False(t, found)

	entries, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, domain.AttributeDate2, entries[0].Attribute)
	assert.Equal(t, domain.AttributeValue("a"), entries[1].Value)
	assert.Equal(t, domain.ShipmentID("S2"), entries[2].ShipmentID)
}

func TestOpen_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	path := filepath.Join(t.TempDir(), "sent_log.db")

	repo, err := Open(ctx, path, logger)
	require.NoError(t, err)
	require.NoError(t, repo.Upsert(ctx, domain.SentLogEntry{ShipmentID: "S1", Attribute: domain.AttributeDate6, Value: "x"}))
	require.NoError(t, repo.Close())

	repo, err = Open(ctx, path, logger)
	require.NoError(t, err)
	defer repo.Close()

	v, found, err := repo.Get(ctx, "S1", domain.AttributeDate6)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, domain.AttributeValue("x"), v)
}
