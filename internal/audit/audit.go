// Package audit provides the fire-and-forget audit sink used by the campaign
// engine. Every schedule/send/create/update/delete action emits a record;
// failures to persist one are logged and never propagated to the caller.
package audit

import (
	"context"
	"time"

	"github.com/relaycrm/campaign-engine/internal/domain"
)

// Sink receives audit entries. Implementations must not block the caller
// beyond trivial bookkeeping and must swallow their own failures.
type Sink interface {
	Record(ctx context.Context, e domain.AuditEntry)
}

// Nop discards every entry. Used when no audit backend is wired.
type Nop struct{}

// Record implements Sink.
func (Nop) Record(context.Context, domain.AuditEntry) {}

// Entry builds an AuditEntry with OccurredAt stamped.
func Entry(actor, workspaceID, action, subjectType, subjectID, description string, props map[string]any) domain.AuditEntry {
	return domain.AuditEntry{
		Actor:       actor,
		WorkspaceID: workspaceID,
		Action:      action,
		SubjectType: subjectType,
		SubjectID:   subjectID,
		Description: description,
		Properties:  props,
		OccurredAt:  time.Now().UTC(),
	}
}
