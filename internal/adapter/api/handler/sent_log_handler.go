package handler

import (
	"log/slog"
	"net/http"

	"github.com/V4T54L/milestone-notifier/internal/domain"
)

// SentLogHandler serves diagnostics over the sent log.
type SentLogHandler struct {
	repo   domain.SentLogRepository
	logger *slog.Logger
}

// NewSentLogHandler creates a new SentLogHandler.
func NewSentLogHandler(repo domain.SentLogRepository, logger *slog.Logger) *SentLogHandler {
	return &SentLogHandler{repo: repo, logger: logger}
}

// HealthCheck is a simple health check endpoint.
func (h *SentLogHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, h.logger, http.StatusOK, map[string]string{"status": "ok"})
}

// ShowLog lists every entry as a [shipment_id, attribute_name, attribute_value] triple.
// GET /show-log
func (h *SentLogHandler) ShowLog(w http.ResponseWriter, r *http.Request) {
	entries, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list sent log", "error", err)
		respondWithError(w, h.logger, http.StatusInternalServerError, MsgInternalError)
		return
	}

	rows := make([][3]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, [3]string{string(e.ShipmentID), string(e.Attribute), string(e.Value)})
	}
	respondWithJSON(w, h.logger, http.StatusOK, rows)
}
