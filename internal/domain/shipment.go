package domain

import "time"

// ShipmentID identifies the shipment a sent-log entry belongs to.
type ShipmentID string

// UnknownShipment is used when the payload carries neither shipmentXid nor shipmentId.
const UnknownShipment ShipmentID = "unknown"

// AttributeName is one of the tracked milestone-date keys of an OTM shipment.
type AttributeName string

const (
	AttributeDate1 AttributeName = "attributeDate1"
	AttributeDate2 AttributeName = "attributeDate2"
	AttributeDate6 AttributeName = "attributeDate6"
	AttributeDate7 AttributeName = "attributeDate7"
)

// TrackedAttributes is the closed set of milestone keys that trigger a notification.
var TrackedAttributes = []AttributeName{AttributeDate1, AttributeDate2, AttributeDate6, AttributeDate7}

// IsTracked reports whether name belongs to TrackedAttributes.
func IsTracked(name string) bool {
	for _, a := range TrackedAttributes {
		if string(a) == name {
			return true
		}
	}
	return false
}

// AttributeValue is the serialized date text received from the feed. It is compared
// by exact string equality only.
type AttributeValue string

// Attribute is a single extracted (name, value) pair.
type Attribute struct {
	Name  AttributeName
	Value AttributeValue
}

// PhoneDestination is the channel-qualified destination, e.g. "whatsapp:+20123".
type PhoneDestination string

// SentLogEntry records the last value notified for a shipment attribute.
type SentLogEntry struct {
	ShipmentID ShipmentID     `json:"shipment_id"`
	Attribute  AttributeName  `json:"attribute_name"`
	Value      AttributeValue `json:"attribute_value"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Summary is the outcome of a successfully handled webhook.
type Summary struct {
	MessagesSent []string         `json:"messages_sent"`
	PhoneSent    PhoneDestination `json:"phone_sent"`
}

// AttributeOutcome is the terminal state of one attribute within a request.
type AttributeOutcome string

const (
	OutcomePending AttributeOutcome = "pending"
	OutcomeSkipped AttributeOutcome = "skipped"
	OutcomeSent    AttributeOutcome = "sent"
	OutcomeFailed  AttributeOutcome = "failed"
)
