package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/V4T54L/milestone-notifier/internal/adapter/metrics"
	"github.com/V4T54L/milestone-notifier/internal/adapter/otm"
	"github.com/V4T54L/milestone-notifier/internal/adapter/pii"
	"github.com/V4T54L/milestone-notifier/internal/domain"
)

// NotifyShipmentUseCase turns an OTM webhook into at most one customer message per
// new (shipment, attribute, value).
type NotifyShipmentUseCase struct {
	repo        domain.SentLogRepository
	sender      domain.MessageSender
	locker      domain.KeyLocker
	metrics     *metrics.NotifierMetrics
	logger      *slog.Logger
	countryCode string
	redactor    *pii.Redactor
	now         func() time.Time
}

// NewNotifyShipmentUseCase creates a new NotifyShipmentUseCase. m may be nil.
func NewNotifyShipmentUseCase(
	repo domain.SentLogRepository,
	sender domain.MessageSender,
	locker domain.KeyLocker,
	m *metrics.NotifierMetrics,
	logger *slog.Logger,
	countryCode string,
) *NotifyShipmentUseCase {
	if countryCode == "" {
		countryCode = otm.DefaultCountryCode
	}
	return &NotifyShipmentUseCase{
		repo:        repo,
		sender:      sender,
		locker:      locker,
		metrics:     m,
		logger:      logger.With("component", "notify_shipment"),
		countryCode: countryCode,
		redactor:    pii.NewRedactor([]string{otm.PhoneField}),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithRedactor replaces the redactor applied to debug payload logs.
func (uc *NotifyShipmentUseCase) WithRedactor(r *pii.Redactor) *NotifyShipmentUseCase {
	uc.redactor = r
	return uc
}

// Handle runs locate -> extract -> phone -> per-attribute notify for one envelope.
// On a send failure it stops at the failing attribute; attributes sent before it
// stay committed to the sent log and no summary is returned.
func (uc *NotifyShipmentUseCase) Handle(ctx context.Context, envelope otm.Value) (*domain.Summary, error) {
	record := otm.Locate(envelope)
	if uc.logger.Enabled(ctx, slog.LevelDebug) {
		uc.logger.Debug("extracted payload", "payload", otm.Text(uc.redactor.Redact(record)))
	}

	attrs := otm.ExtractAttributes(record)
	if len(attrs) == 0 {
		return nil, domain.ErrNoTrackedAttributes
	}

	dest, err := otm.PhoneOf(record, uc.countryCode)
	if err != nil {
		uc.logger.Warn("rejecting payload without usable phone", "error", err)
		return nil, err
	}

	shipment := otm.ShipmentIDOf(record)
	summary := &domain.Summary{MessagesSent: []string{}, PhoneSent: dest}

	for _, attr := range attrs {
		outcome, body, err := uc.notifyAttribute(ctx, shipment, dest, attr)
		uc.observe(attr.Name, outcome)
		if err != nil {
			return nil, err
		}
		if outcome == domain.OutcomeSent {
			summary.MessagesSent = append(summary.MessagesSent, body)
		}
	}

	uc.logger.Info("processed shipment webhook",
		"shipment_id", shipment,
		"attributes", len(attrs),
		"sent", len(summary.MessagesSent),
	)
	return summary, nil
}

// notifyAttribute holds the (shipment, attribute) lock across read, send and write so
// concurrent duplicate deliveries cannot both send.
func (uc *NotifyShipmentUseCase) notifyAttribute(
	ctx context.Context,
	shipment domain.ShipmentID,
	dest domain.PhoneDestination,
	attr domain.Attribute,
) (domain.AttributeOutcome, string, error) {
	unlock, err := uc.locker.Lock(ctx, lockKey(shipment, attr.Name))
	if err != nil {
		uc.logger.Error("failed to lock sent log key", "error", err, "shipment_id", shipment, "attribute", attr.Name)
		return domain.OutcomeFailed, "", fmt.Errorf("%w: lock: %w", domain.ErrStoreUnavailable, err)
	}
	defer unlock()

	// Once the key is held, a client disconnect must not split send from record.
	ctx = context.WithoutCancel(ctx)

	prev, found, err := uc.repo.Get(ctx, shipment, attr.Name)
	if err != nil {
		uc.logger.Error("failed to read sent log", "error", err, "shipment_id", shipment, "attribute", attr.Name)
		return domain.OutcomeFailed, "", fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	if found && prev == attr.Value {
		uc.logger.Info("skipping duplicate", "shipment_id", shipment, "attribute", attr.Name, "value", attr.Value)
		return domain.OutcomeSkipped, "", nil
	}

	body := FormatMessage(attr.Name, attr.Value)

	start := time.Now()
	err = uc.sender.Send(ctx, dest, body)
	if uc.metrics != nil {
		uc.metrics.SendDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		uc.logger.Error("failed to send message", "error", err, "shipment_id", shipment, "attribute", attr.Name)
		return domain.OutcomeFailed, "", fmt.Errorf("%w: %w", domain.ErrSendFailed, err)
	}

	entry := domain.SentLogEntry{
		ShipmentID: shipment,
		Attribute:  attr.Name,
		Value:      attr.Value,
		UpdatedAt:  uc.now(),
	}
	if err := uc.repo.Upsert(ctx, entry); err != nil {
		// The message is already out; report it the same way as a failed send.
		uc.logger.Error("failed to record sent message", "error", err, "shipment_id", shipment, "attribute", attr.Name)
		return domain.OutcomeFailed, "", fmt.Errorf("%w: record: %w", domain.ErrSendFailed, err)
	}

	return domain.OutcomeSent, body, nil
}

func (uc *NotifyShipmentUseCase) observe(attr domain.AttributeName, outcome domain.AttributeOutcome) {
	if uc.metrics == nil {
		return
	}
	uc.metrics.AttributesTotal.WithLabelValues(string(attr), string(outcome)).Inc()
}

func lockKey(shipment domain.ShipmentID, attr domain.AttributeName) string {
	return string(shipment) + "/" + string(attr)
}

// IsClientError reports whether err is caused by the request payload.
func IsClientError(err error) bool {
	return errors.Is(err, domain.ErrMalformedInput) ||
		errors.Is(err, domain.ErrNoTrackedAttributes) ||
		errors.Is(err, domain.ErrMissingPhone) ||
		errors.Is(err, domain.ErrInvalidPhoneFormat)
}
