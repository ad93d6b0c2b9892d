package domain

import "context"

// SentLogRepository is the durable (shipment, attribute) -> value log.
// Implementations own their connection lifecycle; callers hold one handle for the
// life of the process.
type SentLogRepository interface {
	// Get returns the last notified value. found is false when no entry exists.
	Get(ctx context.Context, shipment ShipmentID, attr AttributeName) (value AttributeValue, found bool, err error)

	// Upsert inserts or replaces the entry for (entry.ShipmentID, entry.Attribute).
	Upsert(ctx context.Context, entry SentLogEntry) error

	// List returns every entry. Used by diagnostics only.
	List(ctx context.Context) ([]SentLogEntry, error)
}

// MessageSender delivers a text message to a channel-qualified destination.
type MessageSender interface {
	Send(ctx context.Context, to PhoneDestination, body string) error
}

// KeyLocker serializes work on a single key across concurrent requests.
type KeyLocker interface {
	// Lock blocks until the key is held or ctx is done. The returned func releases it.
	Lock(ctx context.Context, key string) (unlock func(), err error)
}
