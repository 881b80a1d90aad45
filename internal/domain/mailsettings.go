package domain

import (
	"fmt"
	"time"
)

// MailSettings holds the outbound SMTP configuration for a workspace.
// At most one active row exists per workspace; it is created and updated by
// workspace admins outside this subsystem and is read-only on the dispatch
// path.
type MailSettings struct {
	ID          string    `json:"id" db:"id"`
	WorkspaceID string    `json:"workspace_id" db:"workspace_id"`
	Host        string    `json:"host" db:"host"`
	Port        int       `json:"port" db:"port"`
	Username    string    `json:"-" db:"username"`
	Password    string    `json:"-" db:"password"`
	FromAddress string    `json:"from_address" db:"from_address"`
	FromName    string    `json:"from_name" db:"from_name"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Usable reports whether the settings are complete enough to attempt a send.
// A missing host means the workspace has never finished mail setup.
func (m *MailSettings) Usable() bool {
	return m != nil && m.Host != ""
}

// Addr returns the host:port dial address, defaulting the port to 587.
func (m *MailSettings) Addr() string {
	port := m.Port
	if port == 0 {
		port = 587
	}
	return fmt.Sprintf("%s:%d", m.Host, port)
}

// EmailMessage is a fully-resolved message ready for the SMTP sender. By the
// time a message reaches this struct, all template substitution and tracking
// injection is complete.
type EmailMessage struct {
	LogID      string            `json:"log_id"`
	CampaignID string            `json:"campaign_id"`
	ContactID  string            `json:"contact_id"`
	To         string            `json:"to"`
	FromName   string            `json:"from_name"`
	FromEmail  string            `json:"from_email"`
	Subject    string            `json:"subject"`
	HTMLBody   string            `json:"html_body"`
	Headers    map[string]string `json:"headers,omitempty"`
}

// SendResult is returned by the SMTP sender after attempting delivery.
type SendResult struct {
	MessageID string    `json:"message_id"`
	SentAt    time.Time `json:"sent_at"`
}
