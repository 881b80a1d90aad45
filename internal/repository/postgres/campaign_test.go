package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/relaycrm/campaign-engine/internal/domain"
	"github.com/relaycrm/campaign-engine/internal/service/campaign"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func setupTestDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error: %v", err)
	}
	return db, mock, func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		db.Close()
	}
}

func campaignRows(status string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "workspace_id", "name", "subject", "body", "status",
		"scheduled_at", "started_at", "completed_at", "created_at", "updated_at",
	}).AddRow("c1", "ws1", "Launch", "Hi", "<p>Hi</p>", status, nil, nil, nil, now, now)
}

// =============================================================================
// CLAIM TESTS
// =============================================================================

func TestClaimForSending(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectExec(`UPDATE campaigns\s+SET status = 'sending'`).
		WithArgs("c1", "ws1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	claimed, err := NewCampaignRepo(db).ClaimForSending(context.Background(), "ws1", "c1")
	if err != nil {
		t.Fatalf("ClaimForSending() error: %v", err)
	}
	if !claimed {
		t.Error("ClaimForSending() = false, want true")
	}
}

func TestClaimForSending_LostRace(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	// Concurrent claim already flipped the status; the conditional update
	// matches no row.
	mock.ExpectExec(`UPDATE campaigns\s+SET status = 'sending'`).
		WithArgs("c1", "ws1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	claimed, err := NewCampaignRepo(db).ClaimForSending(context.Background(), "ws1", "c1")
	if err != nil {
		t.Fatalf("ClaimForSending() error: %v", err)
	}
	if claimed {
		t.Error("ClaimForSending() = true after lost race, want false")
	}
}

func TestFinish(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectExec(`UPDATE campaigns\s+SET status = \$1, completed_at = NOW\(\)`).
		WithArgs(domain.CampaignSent, "c1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := NewCampaignRepo(db).Finish(context.Background(), "c1", domain.CampaignSent); err != nil {
		t.Fatalf("Finish() error: %v", err)
	}
}

// =============================================================================
// LOOKUP AND LIFECYCLE TESTS
// =============================================================================

func TestGet(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT .+ FROM campaigns\s+WHERE id = \$1 AND workspace_id = \$2`).
		WithArgs("c1", "ws1").
		WillReturnRows(campaignRows("draft"))
	mock.ExpectQuery(`SELECT prospect_list_id FROM campaign_prospect_lists`).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"prospect_list_id"}).AddRow("pl1").AddRow("pl2"))

	c, err := NewCampaignRepo(db).Get(context.Background(), "ws1", "c1")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if c.Status != domain.CampaignDraft {
		t.Errorf("status = %s", c.Status)
	}
	if len(c.ListIDs) != 2 {
		t.Errorf("ListIDs = %v, want 2 entries", c.ListIDs)
	}
}

func TestGet_NotFound(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT .+ FROM campaigns`).
		WithArgs("missing", "ws1").
		WillReturnError(sql.ErrNoRows)

	_, err := NewCampaignRepo(db).Get(context.Background(), "ws1", "missing")
	if !errors.Is(err, campaign.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestDelete_NonDraft(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	// Conditional delete misses because status moved past draft; the
	// follow-up existence probe finds the row.
	mock.ExpectExec(`DELETE FROM campaigns`).
		WithArgs("c1", "ws1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT 1 FROM campaigns`).
		WithArgs("c1", "ws1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	err := NewCampaignRepo(db).Delete(context.Background(), "ws1", "c1")
	if !errors.Is(err, campaign.ErrNotEditable) {
		t.Errorf("Delete() error = %v, want ErrNotEditable", err)
	}
}

func TestDelete_Missing(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectExec(`DELETE FROM campaigns`).
		WithArgs("missing", "ws1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT 1 FROM campaigns`).
		WithArgs("missing", "ws1").
		WillReturnError(sql.ErrNoRows)

	err := NewCampaignRepo(db).Delete(context.Background(), "ws1", "missing")
	if !errors.Is(err, campaign.ErrNotFound) {
		t.Errorf("Delete() error = %v, want ErrNotFound", err)
	}
}

func TestSchedule_SendingRejected(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectExec(`UPDATE campaigns\s+SET status = 'scheduled'`).
		WithArgs(sqlmock.AnyArg(), "c1", "ws1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT 1 FROM campaigns`).
		WithArgs("c1", "ws1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	err := NewCampaignRepo(db).Schedule(context.Background(), "ws1", "c1", time.Now().Add(time.Hour))
	if !errors.Is(err, campaign.ErrNotSendable) {
		t.Errorf("Schedule() error = %v, want ErrNotSendable", err)
	}
}

func TestListDue(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery(`SELECT .+ FROM campaigns\s+WHERE status = 'scheduled' AND scheduled_at <= \$1`).
		WithArgs(now, 50).
		WillReturnRows(campaignRows("scheduled"))

	due, err := NewCampaignRepo(db).ListDue(context.Background(), now, 50)
	if err != nil {
		t.Fatalf("ListDue() error: %v", err)
	}
	if len(due) != 1 || due[0].ID != "c1" {
		t.Errorf("due = %+v", due)
	}
}
