package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/V4T54L/milestone-notifier/internal/adapter/api"
	"github.com/V4T54L/milestone-notifier/internal/adapter/api/middleware"
	"github.com/V4T54L/milestone-notifier/internal/adapter/lock"
	"github.com/V4T54L/milestone-notifier/internal/adapter/metrics"
	"github.com/V4T54L/milestone-notifier/internal/adapter/notifier"
	"github.com/V4T54L/milestone-notifier/internal/adapter/pii"
	"github.com/V4T54L/milestone-notifier/internal/adapter/repository/postgres"
	redisrepo "github.com/V4T54L/milestone-notifier/internal/adapter/repository/redis"
	"github.com/V4T54L/milestone-notifier/internal/adapter/repository/sqlite"
	"github.com/V4T54L/milestone-notifier/internal/domain"
	"github.com/V4T54L/milestone-notifier/internal/pkg/config"
	"github.com/V4T54L/milestone-notifier/internal/pkg/logger"
	"github.com/V4T54L/milestone-notifier/internal/usecase"

	_ "github.com/lib/pq" // postgres driver
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logger.New(cfg.LogLevel)
	slog.SetDefault(logger)

	m := metrics.NewNotifierMetrics(prometheus.DefaultRegisterer)

	// --- Start Admin and Metrics Server ---
	adminServer := &http.Server{
		Addr:    cfg.AdminServerAddr,
		Handler: api.NewAdminRouter(prometheus.DefaultGatherer),
	}

	go func() {
		logger.Info("starting admin & metrics server", "addr", adminServer.Addr)
		if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("admin & metrics server failed", "error", err)
		}
	}()

	// --- Graceful Shutdown Context ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Sent Log Store ---
	repo, closer, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open sent log store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer closer.Close()

	// --- Key Locks ---
	var locker domain.KeyLocker = lock.NewLocalKeyLocker()
	if cfg.RedisAddr != "" {
		redisOpts, err := redisOptions(cfg.RedisAddr)
		if err != nil {
			logger.Error("failed to parse redis address", "error", err)
			os.Exit(1)
		}
		redisClient := redis.NewClient(redisOpts)
		defer redisClient.Close()

		redisLocker := redisrepo.NewKeyLocker(redisClient, logger, cfg.LockTTL, locker, m)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("could not connect to redis, will proceed with in-process locks", "error", err)
			redisLocker.MarkUnavailable(err)
		}
		go redisLocker.StartHealthCheck(ctx, 5*time.Second)
		locker = redisLocker
	}

	// --- Outbound Sender ---
	sender, err := newSender(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize sender", "sender", cfg.Sender, "error", err)
		os.Exit(1)
	}

	// --- Use Case and Webhook Server ---
	notifyUseCase := usecase.NewNotifyShipmentUseCase(repo, sender, locker, m, logger, cfg.CountryCode).
		WithRedactor(pii.NewRedactor(cfg.PIIRedactionFields))

	router := api.NewRouter(cfg, logger, notifyUseCase, repo, m)
	webhookServer := &http.Server{
		Addr:         cfg.IngestServerAddr,
		Handler:      middleware.Logging(logger)(router),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second, // sends to the provider happen inline
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		logger.Info("starting webhook server", "addr", webhookServer.Addr)
		if err := webhookServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("webhook server failed", "error", err)
			stop() // Trigger shutdown on server error
		}
	}()

	// --- Wait for shutdown signal ---
	<-ctx.Done()
	logger.Info("shutting down servers...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := webhookServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("webhook server shutdown failed", "error", err)
	}
	if err := adminServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("admin server shutdown failed", "error", err)
	}

	logger.Info("servers shut down gracefully")
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (domain.SentLogRepository, io.Closer, error) {
	switch strings.ToLower(cfg.StoreDriver) {
	case config.StorePostgres:
		db, err := sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			return nil, nil, err
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		repo := postgres.NewSentLogRepository(db, logger)
		if err := repo.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		logger.Info("using postgres sent log store")
		return repo, db, nil
	default:
		repo, err := sqlite.Open(ctx, cfg.SQLitePath, logger)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using sqlite sent log store", "path", cfg.SQLitePath)
		return repo, repo, nil
	}
}

func newSender(cfg *config.Config, logger *slog.Logger) (domain.MessageSender, error) {
	if strings.ToLower(cfg.Sender) == config.SenderStdout {
		logger.Warn("messages will be written to stdout, not delivered")
		return notifier.NewStdoutSender(os.Stdout), nil
	}
	return notifier.NewTwilioSender(notifier.TwilioConfig{
		AccountSID: cfg.TwilioAccountSID,
		AuthToken:  cfg.TwilioAuthToken,
		From:       cfg.TwilioWhatsAppFrom,
		BaseURL:    cfg.TwilioBaseURL,
		Timeout:    cfg.SendTimeout,
	}, nil, logger)
}

// redisOptions accepts either a redis:// URL or a bare host:port.
func redisOptions(addr string) (*redis.Options, error) {
	if strings.Contains(addr, "://") {
		return redis.ParseURL(addr)
	}
	return &redis.Options{Addr: addr}, nil
}
