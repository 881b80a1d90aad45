package domain

import "time"

// DeliveryEventType enumerates the asynchronous delivery events applied to a
// delivery log entry after the initial send attempt.
type DeliveryEventType string

const (
	EventDelivered DeliveryEventType = "delivered"
	EventOpened    DeliveryEventType = "opened"
	EventClicked   DeliveryEventType = "clicked"
	EventBounced   DeliveryEventType = "bounced"
)

// KnownEventType reports whether t is an event the tracker understands.
// Unknown types are discarded rather than erroring, so a provider adding new
// callback types never breaks ingestion.
func KnownEventType(t DeliveryEventType) bool {
	switch t {
	case EventDelivered, EventOpened, EventClicked, EventBounced:
		return true
	}
	return false
}

// DeliveryEvent is a single inbound engagement or delivery callback, keyed by
// the delivery log ID that was embedded in the outbound message. Events may
// arrive in any order, at any time after send, and may be duplicated.
type DeliveryEvent struct {
	EventType DeliveryEventType `json:"event_type"`
	LogID     string            `json:"log_id"`
	LinkURL   string            `json:"link_url,omitempty"`
	IPAddress string            `json:"ip_address,omitempty"`
	UserAgent string            `json:"user_agent,omitempty"`
	Timestamp time.Time         `json:"timestamp"`

	// Attempts counts failed applications so the consumer can stop
	// requeueing an event that will never succeed.
	Attempts int `json:"attempts,omitempty"`
}
