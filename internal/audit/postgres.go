package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/relaycrm/campaign-engine/internal/domain"
	"github.com/relaycrm/campaign-engine/internal/pkg/logger"
)

// PostgresSink writes audit entries to the audit_logs table. The write runs
// on its own goroutine with a short deadline so a slow or down audit table
// never delays the primary operation.
type PostgresSink struct {
	db      *sql.DB
	timeout time.Duration
}

// NewPostgresSink creates a Postgres-backed audit sink.
func NewPostgresSink(db *sql.DB) *PostgresSink {
	return &PostgresSink{db: db, timeout: 5 * time.Second}
}

// Record implements Sink. The request context is deliberately not reused:
// the audit write should survive the request completing.
func (s *PostgresSink) Record(_ context.Context, e domain.AuditEntry) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		props, err := json.Marshal(e.Properties)
		if err != nil {
			props = []byte("{}")
		}
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO audit_logs
				(id, workspace_id, actor, action, subject_type, subject_id, description, properties, occurred_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, uuid.New().String(), e.WorkspaceID, e.Actor, e.Action, e.SubjectType, e.SubjectID, e.Description, props, e.OccurredAt)
		if err != nil {
			logger.Warn("audit write failed", "action", e.Action, "subject_id", e.SubjectID, "error", err.Error())
		}
	}()
}
