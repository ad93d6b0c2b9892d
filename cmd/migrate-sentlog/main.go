// Command migrate-sentlog copies a local SQLite sent log into the Postgres store
// so a single-instance deployment can move to shared storage without resending.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"

	"github.com/V4T54L/milestone-notifier/internal/adapter/repository/postgres"
	"github.com/V4T54L/milestone-notifier/internal/adapter/repository/sqlite"
	"github.com/V4T54L/milestone-notifier/internal/pkg/config"
	"github.com/V4T54L/milestone-notifier/internal/pkg/logger"
)

func main() {
	cfg, err := config.Parse()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	sqlitePath := flag.String("sqlite", cfg.SQLitePath, "Source SQLite database")
	postgresURL := flag.String("postgres", cfg.PostgresURL, "Destination Postgres URL")
	batchSize := flag.Int("batch", 500, "Entries per import batch")
	flag.Parse()

	log := logger.New(cfg.LogLevel)

	if *postgresURL == "" {
		log.Error("destination postgres URL is required (-postgres or POSTGRES_URL)")
		os.Exit(1)
	}
	if *batchSize < 1 {
		*batchSize = 1
	}
	if err := checkSource(*sqlitePath); err != nil {
		log.Error("invalid sqlite source", "path", *sqlitePath, "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	src, err := sqlite.Open(ctx, *sqlitePath, log)
	if err != nil {
		log.Error("failed to open sqlite sent log", "path", *sqlitePath, "error", err)
		os.Exit(1)
	}
	defer src.Close()

	db, err := sql.Open("postgres", *postgresURL)
	if err != nil {
		log.Error("failed to open postgres connection", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}

	dst := postgres.NewSentLogRepository(db, log)
	if err := dst.EnsureSchema(ctx); err != nil {
		log.Error("failed to prepare postgres schema", "error", err)
		os.Exit(1)
	}

	entries, err := src.List(ctx)
	if err != nil {
		log.Error("failed to read sqlite sent log", "error", err)
		os.Exit(1)
	}
	log.Info("migrating sent log", "entries", len(entries), "batch_size", *batchSize)

	for start := 0; start < len(entries); start += *batchSize {
		end := min(start+*batchSize, len(entries))
		if err := dst.ImportBatch(ctx, entries[start:end]); err != nil {
			log.Error("failed to import batch", "from", start, "to", end, "error", err)
			os.Exit(1)
		}
		log.Debug("imported batch", "from", start, "to", end)
	}

	log.Info("sent log migrated", "entries", len(entries))
}

// checkSource refuses paths that do not name an existing regular file, since opening
// them would create an empty database and migrate nothing.
func checkSource(path string) error {
	if path == "" {
		return errors.New("source path is empty (-sqlite or SQLITE_PATH)")
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("source database: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("source database %s is not a regular file", path)
	}
	return nil
}
