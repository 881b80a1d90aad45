package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/relaycrm/campaign-engine/internal/domain"
)

// =============================================================================
// APPLY EVENT TESTS
// =============================================================================

func TestApplyEvent_SetOnce(t *testing.T) {
	tests := []struct {
		event   domain.DeliveryEventType
		pattern string
	}{
		{domain.EventDelivered, `UPDATE delivery_logs SET delivered_at = \$2\s+WHERE id = \$1 AND delivered_at IS NULL`},
		{domain.EventOpened, `UPDATE delivery_logs SET opened_at = \$2\s+WHERE id = \$1 AND opened_at IS NULL`},
		{domain.EventClicked, `UPDATE delivery_logs SET clicked_at = \$2\s+WHERE id = \$1 AND clicked_at IS NULL`},
	}

	for _, tt := range tests {
		t.Run(string(tt.event), func(t *testing.T) {
			db, mock, cleanup := setupTestDB(t)
			defer cleanup()

			ts := time.Now().UTC()
			evt := domain.DeliveryEvent{EventType: tt.event, LogID: "log-1", Timestamp: ts}

			// First arrival lands.
			mock.ExpectExec(tt.pattern).
				WithArgs("log-1", ts).
				WillReturnResult(sqlmock.NewResult(0, 1))
			// Replay matches no row: the column is no longer null.
			mock.ExpectExec(tt.pattern).
				WithArgs("log-1", ts).
				WillReturnResult(sqlmock.NewResult(0, 0))

			repo := NewDeliveryLogRepo(db)

			applied, err := repo.ApplyEvent(context.Background(), evt)
			if err != nil {
				t.Fatalf("ApplyEvent() error: %v", err)
			}
			if !applied {
				t.Error("first ApplyEvent() = false, want true")
			}

			applied, err = repo.ApplyEvent(context.Background(), evt)
			if err != nil {
				t.Fatalf("replay ApplyEvent() error: %v", err)
			}
			if applied {
				t.Error("replayed ApplyEvent() = true, want false")
			}
		})
	}
}

func TestApplyEvent_Bounce(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	ts := time.Now().UTC()
	mock.ExpectExec(`UPDATE delivery_logs\s+SET failed_at = \$2, error_message = COALESCE\(error_message, 'bounced'\)`).
		WithArgs("log-1", ts).
		WillReturnResult(sqlmock.NewResult(0, 1))

	applied, err := NewDeliveryLogRepo(db).ApplyEvent(context.Background(),
		domain.DeliveryEvent{EventType: domain.EventBounced, LogID: "log-1", Timestamp: ts})
	if err != nil {
		t.Fatalf("ApplyEvent() error: %v", err)
	}
	if !applied {
		t.Error("bounce not applied")
	}
}

func TestApplyEvent_UnknownLogID(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	ts := time.Now().UTC()
	mock.ExpectExec(`UPDATE delivery_logs SET opened_at`).
		WithArgs("no-such-log", ts).
		WillReturnResult(sqlmock.NewResult(0, 0))

	applied, err := NewDeliveryLogRepo(db).ApplyEvent(context.Background(),
		domain.DeliveryEvent{EventType: domain.EventOpened, LogID: "no-such-log", Timestamp: ts})
	if err != nil {
		t.Fatalf("ApplyEvent() error: %v", err)
	}
	if applied {
		t.Error("unknown log ID must not report applied")
	}
}

func TestApplyEvent_UnknownEventType(t *testing.T) {
	db, _, cleanup := setupTestDB(t)
	defer cleanup()

	// No SQL expected.
	applied, err := NewDeliveryLogRepo(db).ApplyEvent(context.Background(),
		domain.DeliveryEvent{EventType: "sniffed", LogID: "log-1", Timestamp: time.Now()})
	if err != nil {
		t.Fatalf("ApplyEvent() error: %v", err)
	}
	if applied {
		t.Error("unknown event type must be a no-op")
	}
}

// =============================================================================
// INSERT AND STATS TESTS
// =============================================================================

func TestInsert(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	now := time.Now().UTC()
	reason := "550 mailbox unavailable"
	entry := &domain.DeliveryLog{
		ID:             "log-1",
		CampaignID:     "c1",
		ContactID:      "p1",
		RecipientEmail: "ada@example.com",
		Subject:        "Hi Ada",
		Status:         domain.DeliveryFailed,
		FailedAt:       &now,
		ErrorMessage:   &reason,
		CreatedAt:      now,
	}

	mock.ExpectExec(`INSERT INTO delivery_logs`).
		WithArgs("log-1", "c1", "p1", "ada@example.com", "Hi Ada", domain.DeliveryFailed,
			nil, &now, &reason, now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := NewDeliveryLogRepo(db).Insert(context.Background(), entry); err != nil {
		t.Fatalf("Insert() error: %v", err)
	}
}

func TestCounts(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT\s+COUNT\(\*\) FILTER`).
		WithArgs("c1", "ws1").
		WillReturnRows(sqlmock.NewRows([]string{"sent", "delivered", "opened", "clicked", "failed"}).
			AddRow(9, 8, 4, 2, 1))
	mock.ExpectQuery(`SELECT COUNT\(DISTINCT c\.id\)`).
		WithArgs("c1", "ws1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(10))

	stats, err := NewDeliveryLogRepo(db).Counts(context.Background(), "ws1", "c1")
	if err != nil {
		t.Fatalf("Counts() error: %v", err)
	}
	want := domain.CampaignStats{CampaignID: "c1", Total: 10, Sent: 9, Delivered: 8, Opened: 4, Clicked: 2, Failed: 1}
	if *stats != want {
		t.Errorf("stats = %+v, want %+v", *stats, want)
	}
}

func TestListing(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT dl\.contact_id, .+ FROM delivery_logs dl`).
		WithArgs("c1", "ws1").
		WillReturnRows(sqlmock.NewRows([]string{"contact_id", "name", "recipient_email", "status"}).
			AddRow("p1", "Ada Lovelace", "ada@example.com", "opened").
			AddRow("p2", "Bob Ross", "bob@example.com", "clicked"))

	listing, err := NewDeliveryLogRepo(db).Listing(context.Background(), "ws1", "c1", domain.StatOpened)
	if err != nil {
		t.Fatalf("Listing() error: %v", err)
	}
	if len(listing) != 2 {
		t.Fatalf("listing length = %d, want 2", len(listing))
	}
	if listing[0].Email != "ada@example.com" || listing[0].Status != "opened" {
		t.Errorf("row = %+v", listing[0])
	}
}
