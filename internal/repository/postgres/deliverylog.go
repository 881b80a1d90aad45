package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/relaycrm/campaign-engine/internal/domain"
)

// DeliveryLogRepo persists per-recipient delivery log rows and answers the
// statistics queries over them.
type DeliveryLogRepo struct{ db *sql.DB }

// NewDeliveryLogRepo creates a Postgres-backed delivery log repository.
func NewDeliveryLogRepo(db *sql.DB) *DeliveryLogRepo { return &DeliveryLogRepo{db: db} }

// Insert writes one delivery log row. Called exactly once per recipient per
// dispatch by the engine.
func (r *DeliveryLogRepo) Insert(ctx context.Context, e *domain.DeliveryLog) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO delivery_logs
			(id, campaign_id, contact_id, recipient_email, subject, status,
			 sent_at, failed_at, error_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, e.ID, e.CampaignID, e.ContactID, e.RecipientEmail, e.Subject, e.Status,
		e.SentAt, e.FailedAt, e.ErrorMessage, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert delivery log: %w", err)
	}
	return nil
}

// ApplyEvent applies one delivery event with set-once semantics: the target
// timestamp column is written only while it is still null, which makes
// replayed events no-ops. Returns false when nothing changed, either because
// no row matches the reference or because the event already landed.
//
// No ordering is assumed between event types: a bounce is recorded even
// when delivered_at is already set.
func (r *DeliveryLogRepo) ApplyEvent(ctx context.Context, evt domain.DeliveryEvent) (bool, error) {
	var res sql.Result
	var err error

	switch evt.EventType {
	case domain.EventDelivered:
		res, err = r.db.ExecContext(ctx, `
			UPDATE delivery_logs SET delivered_at = $2
			WHERE id = $1 AND delivered_at IS NULL
		`, evt.LogID, evt.Timestamp)
	case domain.EventOpened:
		res, err = r.db.ExecContext(ctx, `
			UPDATE delivery_logs SET opened_at = $2
			WHERE id = $1 AND opened_at IS NULL
		`, evt.LogID, evt.Timestamp)
	case domain.EventClicked:
		res, err = r.db.ExecContext(ctx, `
			UPDATE delivery_logs SET clicked_at = $2
			WHERE id = $1 AND clicked_at IS NULL
		`, evt.LogID, evt.Timestamp)
	case domain.EventBounced:
		res, err = r.db.ExecContext(ctx, `
			UPDATE delivery_logs
			SET failed_at = $2, error_message = COALESCE(error_message, 'bounced')
			WHERE id = $1 AND failed_at IS NULL
		`, evt.LogID, evt.Timestamp)
	default:
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("apply %s event: %w", evt.EventType, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Counts returns the aggregate counters for one campaign. The workspace
// join keeps a guessed campaign ID from another tenant answering zeroes
// rather than leaking counts.
func (r *DeliveryLogRepo) Counts(ctx context.Context, workspaceID, campaignID string) (*domain.CampaignStats, error) {
	stats := &domain.CampaignStats{CampaignID: campaignID}

	err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE dl.sent_at IS NOT NULL),
			COUNT(*) FILTER (WHERE dl.delivered_at IS NOT NULL),
			COUNT(*) FILTER (WHERE dl.opened_at IS NOT NULL),
			COUNT(*) FILTER (WHERE dl.clicked_at IS NOT NULL),
			COUNT(*) FILTER (WHERE dl.failed_at IS NOT NULL)
		FROM delivery_logs dl
		JOIN campaigns c ON c.id = dl.campaign_id AND c.workspace_id = $2
		WHERE dl.campaign_id = $1
	`, campaignID, workspaceID).Scan(
		&stats.Sent, &stats.Delivered, &stats.Opened, &stats.Clicked, &stats.Failed,
	)
	if err != nil {
		return nil, fmt.Errorf("count delivery logs: %w", err)
	}

	// Total is the distinct audience from the list association, independent
	// of whether a dispatch has happened yet.
	err = r.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT c.id)
		FROM campaign_prospect_lists cpl
		JOIN prospect_lists pl
		  ON pl.id = cpl.prospect_list_id AND pl.workspace_id = $2
		JOIN prospect_list_contacts plc
		  ON plc.prospect_list_id = pl.id
		JOIN contacts c
		  ON c.id = plc.contact_id AND c.workspace_id = $2
		WHERE cpl.campaign_id = $1
	`, campaignID, workspaceID).Scan(&stats.Total)
	if err != nil {
		return nil, fmt.Errorf("count campaign audience: %w", err)
	}
	return stats, nil
}

// logStatusExpr derives the most specific lifecycle state of a log row for
// drill-down listings.
const logStatusExpr = `CASE
	WHEN dl.failed_at IS NOT NULL THEN 'failed'
	WHEN dl.clicked_at IS NOT NULL THEN 'clicked'
	WHEN dl.opened_at IS NOT NULL THEN 'opened'
	WHEN dl.delivered_at IS NOT NULL THEN 'delivered'
	WHEN dl.sent_at IS NOT NULL THEN 'sent'
	ELSE 'pending'
END`

// Listing returns the recipients matching one drill-down category.
func (r *DeliveryLogRepo) Listing(ctx context.Context, workspaceID, campaignID string, cat domain.StatsCategory) ([]domain.LogRecipient, error) {
	if cat == domain.StatTotal {
		return r.audienceListing(ctx, workspaceID, campaignID)
	}

	var cond string
	switch cat {
	case domain.StatSent:
		cond = "dl.sent_at IS NOT NULL"
	case domain.StatDelivered:
		cond = "dl.delivered_at IS NOT NULL"
	case domain.StatOpened:
		cond = "dl.opened_at IS NOT NULL"
	case domain.StatClicked:
		cond = "dl.clicked_at IS NOT NULL"
	case domain.StatFailed:
		cond = "dl.failed_at IS NOT NULL"
	default:
		return nil, fmt.Errorf("unknown listing category %q", cat)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT dl.contact_id, COALESCE(ct.name, ''), dl.recipient_email, `+logStatusExpr+`
		FROM delivery_logs dl
		JOIN campaigns c ON c.id = dl.campaign_id AND c.workspace_id = $2
		LEFT JOIN contacts ct ON ct.id = dl.contact_id
		WHERE dl.campaign_id = $1 AND `+cond+`
		ORDER BY dl.created_at
	`, campaignID, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list %s recipients: %w", cat, err)
	}
	defer rows.Close()
	return scanLogRecipients(rows)
}

// audienceListing lists every targeted contact, with its log state when a
// dispatch has reached it and 'pending' otherwise.
func (r *DeliveryLogRepo) audienceListing(ctx context.Context, workspaceID, campaignID string) ([]domain.LogRecipient, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT ON (c.id) c.id, c.name, c.email, COALESCE(`+logStatusExpr+`, 'pending')
		FROM campaign_prospect_lists cpl
		JOIN prospect_lists pl
		  ON pl.id = cpl.prospect_list_id AND pl.workspace_id = $2
		JOIN prospect_list_contacts plc
		  ON plc.prospect_list_id = pl.id
		JOIN contacts c
		  ON c.id = plc.contact_id AND c.workspace_id = $2
		LEFT JOIN delivery_logs dl
		  ON dl.campaign_id = cpl.campaign_id AND dl.contact_id = c.id
		WHERE cpl.campaign_id = $1
		ORDER BY c.id, dl.created_at DESC
	`, campaignID, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list campaign audience: %w", err)
	}
	defer rows.Close()
	return scanLogRecipients(rows)
}

func scanLogRecipients(rows *sql.Rows) ([]domain.LogRecipient, error) {
	var out []domain.LogRecipient
	for rows.Next() {
		var lr domain.LogRecipient
		if err := rows.Scan(&lr.ContactID, &lr.Name, &lr.Email, &lr.Status); err != nil {
			return nil, fmt.Errorf("scan recipient row: %w", err)
		}
		out = append(out, lr)
	}
	return out, rows.Err()
}
