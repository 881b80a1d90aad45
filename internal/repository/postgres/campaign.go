// Package postgres implements the campaign engine's repository interfaces
// against PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/relaycrm/campaign-engine/internal/domain"
	"github.com/relaycrm/campaign-engine/internal/service/campaign"
)

// CampaignRepo implements campaign.Repository.
type CampaignRepo struct{ db *sql.DB }

// NewCampaignRepo creates a Postgres-backed campaign repository.
func NewCampaignRepo(db *sql.DB) *CampaignRepo { return &CampaignRepo{db: db} }

const campaignColumns = `id, workspace_id, name, subject, body, status,
	scheduled_at, started_at, completed_at, created_at, updated_at`

func scanCampaign(row interface{ Scan(...any) error }) (*domain.Campaign, error) {
	c := &domain.Campaign{}
	err := row.Scan(
		&c.ID, &c.WorkspaceID, &c.Name, &c.Subject, &c.Body, &c.Status,
		&c.ScheduledAt, &c.StartedAt, &c.CompletedAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *CampaignRepo) Get(ctx context.Context, workspaceID, id string) (*domain.Campaign, error) {
	c, err := scanCampaign(r.db.QueryRowContext(ctx, `
		SELECT `+campaignColumns+`
		FROM campaigns
		WHERE id = $1 AND workspace_id = $2
	`, id, workspaceID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, campaign.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get campaign: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT prospect_list_id FROM campaign_prospect_lists WHERE campaign_id = $1
	`, id)
	if err != nil {
		return nil, fmt.Errorf("get campaign lists: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var listID string
		if err := rows.Scan(&listID); err != nil {
			return nil, fmt.Errorf("scan campaign list: %w", err)
		}
		c.ListIDs = append(c.ListIDs, listID)
	}
	return c, rows.Err()
}

func (r *CampaignRepo) List(ctx context.Context, workspaceID string, f campaign.ListFilter) ([]domain.Campaign, int, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	countQ := `SELECT COUNT(*) FROM campaigns WHERE workspace_id = $1`
	countArgs := []any{workspaceID}
	if f.Status != "" {
		countQ += ` AND status = $2`
		countArgs = append(countArgs, f.Status)
	}
	var total int
	if err := r.db.QueryRowContext(ctx, countQ, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count campaigns: %w", err)
	}

	q := `SELECT ` + campaignColumns + ` FROM campaigns WHERE workspace_id = $1`
	args := []any{workspaceID}
	idx := 2
	if f.Status != "" {
		q += fmt.Sprintf(" AND status = $%d", idx)
		args = append(args, f.Status)
		idx++
	}
	q += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	var out []domain.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan campaign: %w", err)
		}
		out = append(out, *c)
	}
	return out, total, rows.Err()
}

func (r *CampaignRepo) Create(ctx context.Context, c *domain.Campaign) (string, error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO campaigns
			(id, workspace_id, name, subject, body, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
	`, c.ID, c.WorkspaceID, c.Name, c.Subject, c.Body, c.Status)
	if err != nil {
		return "", fmt.Errorf("create campaign: %w", err)
	}

	if err := attachLists(ctx, tx, c.WorkspaceID, c.ID, c.ListIDs); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return c.ID, nil
}

// attachLists replaces the campaign's list associations. The INSERT..SELECT
// re-validates workspace ownership of each list, so a stale or cross-tenant
// list ID is silently dropped rather than associated.
func attachLists(ctx context.Context, tx *sql.Tx, workspaceID, campaignID string, listIDs []string) error {
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM campaign_prospect_lists WHERE campaign_id = $1
	`, campaignID); err != nil {
		return fmt.Errorf("clear campaign lists: %w", err)
	}
	if len(listIDs) == 0 {
		return nil
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO campaign_prospect_lists (campaign_id, prospect_list_id)
		SELECT $1, pl.id
		FROM prospect_lists pl
		WHERE pl.id = ANY($2) AND pl.workspace_id = $3
		ON CONFLICT DO NOTHING
	`, campaignID, pq.Array(listIDs), workspaceID)
	if err != nil {
		return fmt.Errorf("attach campaign lists: %w", err)
	}
	return nil
}

func (r *CampaignRepo) Update(ctx context.Context, workspaceID, id string, u campaign.UpdateFields) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	sets := []string{}
	args := []any{}
	idx := 1
	add := func(col string, val any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, idx))
		args = append(args, val)
		idx++
	}
	if u.Name != nil {
		add("name", *u.Name)
	}
	if u.Subject != nil {
		add("subject", *u.Subject)
	}
	if u.Body != nil {
		add("body", *u.Body)
	}

	if len(sets) > 0 || u.ListIDs != nil {
		sets = append(sets, "updated_at = NOW()")
		q := fmt.Sprintf(`
			UPDATE campaigns SET %s
			WHERE id = $%d AND workspace_id = $%d AND status = 'draft'
		`, strings.Join(sets, ", "), idx, idx+1)
		args = append(args, id, workspaceID)

		res, err := tx.ExecContext(ctx, q, args...)
		if err != nil {
			return fmt.Errorf("update campaign: %w", err)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return r.missingOrNotEditable(ctx, workspaceID, id)
		}
	}

	if u.ListIDs != nil {
		if err := attachLists(ctx, tx, workspaceID, id, u.ListIDs); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *CampaignRepo) Delete(ctx context.Context, workspaceID, id string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM campaigns
		WHERE id = $1 AND workspace_id = $2 AND status = 'draft'
	`, id, workspaceID)
	if err != nil {
		return fmt.Errorf("delete campaign: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return r.missingOrNotEditable(ctx, workspaceID, id)
	}
	return nil
}

func (r *CampaignRepo) Schedule(ctx context.Context, workspaceID, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE campaigns
		SET status = 'scheduled', scheduled_at = $1, updated_at = NOW()
		WHERE id = $2 AND workspace_id = $3 AND status IN ('draft', 'scheduled')
	`, at, id, workspaceID)
	if err != nil {
		return fmt.Errorf("schedule campaign: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return r.missingOrNotSendable(ctx, workspaceID, id)
	}
	return nil
}

// ClaimForSending is the at-most-one-active-send guard: a single conditional
// UPDATE that only matches while the campaign is still claimable.
func (r *CampaignRepo) ClaimForSending(ctx context.Context, workspaceID, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE campaigns
		SET status = 'sending', started_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND workspace_id = $2 AND status IN ('draft', 'scheduled')
	`, id, workspaceID)
	if err != nil {
		return false, fmt.Errorf("claim campaign: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *CampaignRepo) Finish(ctx context.Context, id string, status domain.CampaignStatus) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE campaigns
		SET status = $1, completed_at = NOW(), updated_at = NOW()
		WHERE id = $2 AND status = 'sending'
	`, status, id)
	if err != nil {
		return fmt.Errorf("finish campaign: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return campaign.ErrNotFound
	}
	return nil
}

func (r *CampaignRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Campaign, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+campaignColumns+`
		FROM campaigns
		WHERE status = 'scheduled' AND scheduled_at <= $1
		ORDER BY scheduled_at
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list due campaigns: %w", err)
	}
	defer rows.Close()

	var out []domain.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("scan due campaign: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// missingOrNotEditable distinguishes a zero-row conditional write: the
// campaign either doesn't exist in the workspace, or exists past draft.
func (r *CampaignRepo) missingOrNotEditable(ctx context.Context, workspaceID, id string) error {
	if exists, err := r.exists(ctx, workspaceID, id); err != nil {
		return err
	} else if exists {
		return campaign.ErrNotEditable
	}
	return campaign.ErrNotFound
}

func (r *CampaignRepo) missingOrNotSendable(ctx context.Context, workspaceID, id string) error {
	if exists, err := r.exists(ctx, workspaceID, id); err != nil {
		return err
	} else if exists {
		return campaign.ErrNotSendable
	}
	return campaign.ErrNotFound
}

func (r *CampaignRepo) exists(ctx context.Context, workspaceID, id string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `
		SELECT 1 FROM campaigns WHERE id = $1 AND workspace_id = $2
	`, id, workspaceID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("campaign exists: %w", err)
	}
	return true, nil
}
