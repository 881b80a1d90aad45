package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/relaycrm/campaign-engine/internal/domain"
)

// ContactRepo provides the recipient resolution read path over the contact
// and prospect list tables. The campaign engine never writes these tables.
type ContactRepo struct{ db *sql.DB }

// NewContactRepo creates a Postgres-backed contact repository.
func NewContactRepo(db *sql.DB) *ContactRepo { return &ContactRepo{db: db} }

// Resolve returns the deduplicated recipient set for a campaign: the union
// of its prospect lists' contacts, one row per contact.
//
// Workspace ownership is re-validated on both the list and the contact, not
// trusted from the association rows, so a stale cross-tenant reference can
// never leak a recipient. Contacts without an email are not addressable and
// are excluded here rather than failing at send time.
func (r *ContactRepo) Resolve(ctx context.Context, workspaceID, campaignID string) ([]domain.Recipient, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT c.id, c.name, c.email
		FROM campaign_prospect_lists cpl
		JOIN prospect_lists pl
		  ON pl.id = cpl.prospect_list_id AND pl.workspace_id = $2
		JOIN prospect_list_contacts plc
		  ON plc.prospect_list_id = pl.id
		JOIN contacts c
		  ON c.id = plc.contact_id AND c.workspace_id = $2
		WHERE cpl.campaign_id = $1 AND c.email <> ''
	`, campaignID, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("resolve recipients: %w", err)
	}
	defer rows.Close()

	var out []domain.Recipient
	for rows.Next() {
		var rcpt domain.Recipient
		if err := rows.Scan(&rcpt.ContactID, &rcpt.Name, &rcpt.Email); err != nil {
			return nil, fmt.Errorf("scan recipient: %w", err)
		}
		out = append(out, rcpt)
	}
	return out, rows.Err()
}
