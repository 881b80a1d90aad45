package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestResolve(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT DISTINCT c\.id, c\.name, c\.email\s+FROM campaign_prospect_lists cpl`).
		WithArgs("c1", "ws1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email"}).
			AddRow("p1", "Ada Lovelace", "ada@example.com").
			AddRow("p2", "Bob Ross", "bob@example.com"))

	recipients, err := NewContactRepo(db).Resolve(context.Background(), "ws1", "c1")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if len(recipients) != 2 {
		t.Fatalf("resolved %d recipients, want 2", len(recipients))
	}
	if recipients[0].ContactID != "p1" || recipients[0].Email != "ada@example.com" {
		t.Errorf("recipient = %+v", recipients[0])
	}
}

func TestResolve_EmptyAudience(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT DISTINCT c\.id, c\.name, c\.email`).
		WithArgs("c1", "ws1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email"}))

	recipients, err := NewContactRepo(db).Resolve(context.Background(), "ws1", "c1")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if len(recipients) != 0 {
		t.Errorf("resolved %d recipients, want 0", len(recipients))
	}
}

func TestResolve_QueryError(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT DISTINCT c\.id`).
		WithArgs("c1", "ws1").
		WillReturnError(errors.New("connection reset"))

	if _, err := NewContactRepo(db).Resolve(context.Background(), "ws1", "c1"); err == nil {
		t.Error("Resolve() should surface query errors")
	}
}
