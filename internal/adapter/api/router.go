package api

import (
	"log/slog"
	"net/http"

	"github.com/V4T54L/milestone-notifier/internal/adapter/api/handler"
	"github.com/V4T54L/milestone-notifier/internal/adapter/api/middleware"
	"github.com/V4T54L/milestone-notifier/internal/adapter/metrics"
	"github.com/V4T54L/milestone-notifier/internal/domain"
	"github.com/V4T54L/milestone-notifier/internal/pkg/config"
)

// NewRouter creates and configures the main HTTP router for the webhook service.
func NewRouter(
	cfg *config.Config,
	logger *slog.Logger,
	notifier handler.ShipmentNotifier,
	repo domain.SentLogRepository,
	m *metrics.NotifierMetrics,
) http.Handler {
	mux := http.NewServeMux()

	webhookHandler := handler.NewWebhookHandler(notifier, logger, cfg.MaxBodyBytes, m)
	sentLogHandler := handler.NewSentLogHandler(repo, logger)

	rateLimit := middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst, logger, m)

	mux.Handle("POST /send-message", rateLimit(webhookHandler))
	mux.HandleFunc("GET /health", sentLogHandler.HealthCheck)
	mux.HandleFunc("GET /show-log", sentLogHandler.ShowLog)

	return mux
}
