package domain

import "time"

// DeliveryLogStatus is the coarse per-recipient outcome recorded at dispatch
// time. The nullable event timestamps carry the finer lifecycle.
type DeliveryLogStatus string

const (
	DeliverySent   DeliveryLogStatus = "sent"
	DeliveryFailed DeliveryLogStatus = "failed"
)

// DeliveryLog is the per-recipient record of a send attempt and its
// subsequent lifecycle events. Exactly one row is written per recipient per
// dispatch; the row's ID doubles as the provider-facing log reference used by
// tracking callbacks.
//
// The event timestamps (DeliveredAt, OpenedAt, ClickedAt, FailedAt) are
// set-once and never reverted. A FailedAt write after DeliveredAt exists is
// accepted: bounces can be reported after initial accept.
type DeliveryLog struct {
	ID             string            `json:"id" db:"id"`
	CampaignID     string            `json:"campaign_id" db:"campaign_id"`
	ContactID      string            `json:"contact_id" db:"contact_id"`
	RecipientEmail string            `json:"recipient_email" db:"recipient_email"`
	Subject        string            `json:"subject" db:"subject"`
	Status         DeliveryLogStatus `json:"status" db:"status"`
	SentAt         *time.Time        `json:"sent_at" db:"sent_at"`
	DeliveredAt    *time.Time        `json:"delivered_at" db:"delivered_at"`
	OpenedAt       *time.Time        `json:"opened_at" db:"opened_at"`
	ClickedAt      *time.Time        `json:"clicked_at" db:"clicked_at"`
	FailedAt       *time.Time        `json:"failed_at" db:"failed_at"`
	ErrorMessage   *string           `json:"error_message" db:"error_message"`
	CreatedAt      time.Time         `json:"created_at" db:"created_at"`
}

// LogRecipient is one row of a statistics drill-down listing.
type LogRecipient struct {
	ContactID string `json:"contact_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Status    string `json:"status"`
}
