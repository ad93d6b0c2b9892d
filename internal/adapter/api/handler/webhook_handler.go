package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/V4T54L/milestone-notifier/internal/adapter/metrics"
	"github.com/V4T54L/milestone-notifier/internal/adapter/otm"
	"github.com/V4T54L/milestone-notifier/internal/domain"
)

// Response messages are part of the webhook contract; callers match on them.
const (
	MsgInvalidJSON     = "invalid JSON"
	MsgNoAttributes    = "No selected attributeDate fields"
	MsgMissingPhone    = "attributeNumber7 (phone) missing"
	MsgInvalidPhone    = "Invalid phone number format"
	MsgSendFailed      = "Failed to send message"
	MsgInternalError   = "Internal server error"
	MsgPayloadTooLarge = "Payload too large"
)

// ShipmentNotifier is the use case behind the webhook.
type ShipmentNotifier interface {
	Handle(ctx context.Context, envelope otm.Value) (*domain.Summary, error)
}

// WebhookHandler handles OTM shipment webhooks.
type WebhookHandler struct {
	notifier    ShipmentNotifier
	logger      *slog.Logger
	maxBodySize int64
	metrics     *metrics.NotifierMetrics
}

// NewWebhookHandler creates a new WebhookHandler. m may be nil.
func NewWebhookHandler(n ShipmentNotifier, logger *slog.Logger, maxBodySize int64, m *metrics.NotifierMetrics) *WebhookHandler {
	return &WebhookHandler{
		notifier:    n,
		logger:      logger,
		maxBodySize: maxBodySize,
		metrics:     m,
	}
}

type successResponse struct {
	Status       string                  `json:"status"`
	MessagesSent []string                `json:"messages_sent"`
	PhoneSent    domain.PhoneDestination `json:"phone_sent"`
}

// ServeHTTP decodes the body as JSON regardless of Content-Type and runs the notifier.
// It is mounted on a POST-only route.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.count("too_large")
			respondWithError(w, h.logger, http.StatusRequestEntityTooLarge, MsgPayloadTooLarge)
			return
		}
		h.fail(w, fmt.Errorf("%w: read body: %w", domain.ErrMalformedInput, err))
		return
	}

	envelope, err := otm.Decode(raw)
	if err != nil {
		h.fail(w, fmt.Errorf("%w: %w", domain.ErrMalformedInput, err))
		return
	}

	summary, err := h.notifier.Handle(r.Context(), envelope)
	if err != nil {
		h.fail(w, err)
		return
	}

	sent := summary.MessagesSent
	if sent == nil {
		sent = []string{}
	}
	h.count("success")
	respondWithJSON(w, h.logger, http.StatusOK, successResponse{
		Status:       statusSuccess,
		MessagesSent: sent,
		PhoneSent:    summary.PhoneSent,
	})
}

func (h *WebhookHandler) fail(w http.ResponseWriter, err error) {
	code, message, outcome := classify(err)
	if code >= http.StatusInternalServerError {
		h.logger.Error("failed to process webhook", "error", err)
	} else {
		h.logger.Warn("rejected webhook", "error", err)
	}
	h.count(outcome)
	respondWithError(w, h.logger, code, message)
}

func (h *WebhookHandler) count(outcome string) {
	if h.metrics != nil {
		h.metrics.RequestsTotal.WithLabelValues(outcome).Inc()
	}
}

// classify maps a use case error to status code, response message and metric label.
func classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, domain.ErrMalformedInput):
		return http.StatusBadRequest, MsgInvalidJSON, "invalid_json"
	case errors.Is(err, domain.ErrNoTrackedAttributes):
		return http.StatusBadRequest, MsgNoAttributes, "no_attributes"
	case errors.Is(err, domain.ErrMissingPhone):
		return http.StatusBadRequest, MsgMissingPhone, "missing_phone"
	case errors.Is(err, domain.ErrInvalidPhoneFormat):
		return http.StatusBadRequest, MsgInvalidPhone, "invalid_phone"
	case errors.Is(err, domain.ErrSendFailed):
		return http.StatusInternalServerError, MsgSendFailed, "send_failed"
	default:
		return http.StatusInternalServerError, MsgInternalError, "internal_error"
	}
}
