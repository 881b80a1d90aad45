package domain

import "time"

// Contact is the addressable entity consumed by the campaign engine. It is
// owned by the CRM's contact module; the engine only reads it.
type Contact struct {
	ID          string    `json:"id" db:"id"`
	WorkspaceID string    `json:"workspace_id" db:"workspace_id"`
	Name        string    `json:"name" db:"name"`
	Email       string    `json:"email" db:"email"`
	Phone       string    `json:"phone" db:"phone"`
	CompanyID   *string   `json:"company_id" db:"company_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// ProspectList is a named, workspace-owned grouping of contacts.
type ProspectList struct {
	ID          string    `json:"id" db:"id"`
	WorkspaceID string    `json:"workspace_id" db:"workspace_id"`
	Name        string    `json:"name" db:"name"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Recipient is one resolved, deduplicated member of a campaign's audience.
// Only contacts with a non-empty email and a verified workspace match are
// eligible, so by the time a Recipient exists it is addressable.
type Recipient struct {
	ContactID string `json:"contact_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
}
