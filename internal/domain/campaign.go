package domain

import "time"

// CampaignStatus enumerates the lifecycle states of a campaign.
type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignScheduled CampaignStatus = "scheduled"
	CampaignSending   CampaignStatus = "sending"
	CampaignSent      CampaignStatus = "sent"
	CampaignFailed    CampaignStatus = "failed"
)

// Campaign represents a single email blast targeting one or more prospect
// lists within a workspace.
type Campaign struct {
	ID          string         `json:"id" db:"id"`
	WorkspaceID string         `json:"workspace_id" db:"workspace_id"`
	Name        string         `json:"name" db:"name"`
	Subject     string         `json:"subject" db:"subject"`
	Body        string         `json:"body" db:"body"`
	Status      CampaignStatus `json:"status" db:"status"`
	ScheduledAt *time.Time     `json:"scheduled_at" db:"scheduled_at"`
	StartedAt   *time.Time     `json:"started_at" db:"started_at"`
	CompletedAt *time.Time     `json:"completed_at" db:"completed_at"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" db:"updated_at"`

	// ListIDs holds the associated prospect list IDs. Populated on read,
	// persisted through the join table on write.
	ListIDs []string `json:"list_ids,omitempty" db:"-"`
}

// Sendable reports whether a dispatch may be started from the current status.
func (c *Campaign) Sendable() bool {
	return c.Status == CampaignDraft || c.Status == CampaignScheduled
}

// IsTerminal returns true if the campaign has finished processing.
func (c *Campaign) IsTerminal() bool {
	return c.Status == CampaignSent || c.Status == CampaignFailed
}

// CampaignStats holds the aggregate delivery counts for one campaign.
// Categories are independent: an open can be recorded before (or without)
// a delivered event, so Opened is not bounded by Delivered.
type CampaignStats struct {
	CampaignID string `json:"campaign_id"`
	Total      int    `json:"total"`
	Sent       int    `json:"sent"`
	Delivered  int    `json:"delivered"`
	Opened     int    `json:"opened"`
	Clicked    int    `json:"clicked"`
	Failed     int    `json:"failed"`
}

// StatsCategory selects a drill-down listing from the delivery log.
type StatsCategory string

const (
	StatTotal     StatsCategory = "total"
	StatSent      StatsCategory = "sent"
	StatDelivered StatsCategory = "delivered"
	StatOpened    StatsCategory = "opened"
	StatClicked   StatsCategory = "clicked"
	StatFailed    StatsCategory = "failed"
)

// ValidStatsCategory reports whether s names a known drill-down category.
func ValidStatsCategory(s string) bool {
	switch StatsCategory(s) {
	case StatTotal, StatSent, StatDelivered, StatOpened, StatClicked, StatFailed:
		return true
	}
	return false
}
