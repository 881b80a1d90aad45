package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/relaycrm/campaign-engine/internal/domain"
)

// MailSettingsRepo reads the per-workspace outbound mail configuration.
type MailSettingsRepo struct{ db *sql.DB }

// NewMailSettingsRepo creates a Postgres-backed mail settings repository.
func NewMailSettingsRepo(db *sql.DB) *MailSettingsRepo { return &MailSettingsRepo{db: db} }

// GetByWorkspace returns the workspace's mail settings, or nil when no row
// exists. Exactly one query, no retries: this is a local configuration
// read and the sending.Resolver decides usability.
func (r *MailSettingsRepo) GetByWorkspace(ctx context.Context, workspaceID string) (*domain.MailSettings, error) {
	m := &domain.MailSettings{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, workspace_id, COALESCE(host,''), COALESCE(port,0),
		       COALESCE(username,''), COALESCE(password,''),
		       COALESCE(from_address,''), COALESCE(from_name,''), updated_at
		FROM mail_settings
		WHERE workspace_id = $1
	`, workspaceID).Scan(
		&m.ID, &m.WorkspaceID, &m.Host, &m.Port,
		&m.Username, &m.Password,
		&m.FromAddress, &m.FromName, &m.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get mail settings: %w", err)
	}
	return m, nil
}
