package domain

import "time"

// AuditEntry is a fire-and-forget record of a campaign engine action.
// Failures to persist an entry must never block the primary operation.
type AuditEntry struct {
	Actor       string         `json:"actor"`
	WorkspaceID string         `json:"workspace_id"`
	Action      string         `json:"action"`
	SubjectType string         `json:"subject_type"`
	SubjectID   string         `json:"subject_id"`
	Description string         `json:"description"`
	Properties  map[string]any `json:"properties,omitempty"`
	OccurredAt  time.Time      `json:"occurred_at"`
}
