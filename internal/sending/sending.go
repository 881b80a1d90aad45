// Package sending resolves per-workspace mail transports and delivers
// messages over SMTP.
//
// The resolver performs exactly one local configuration read per call; it
// never retries and never touches the network. Callers must treat
// ErrNotConfigured as a pre-flight failure, not a per-recipient one.
package sending

import (
	"context"
	"errors"

	"github.com/relaycrm/campaign-engine/internal/domain"
)

// ErrNotConfigured is returned when a workspace has no usable outbound mail
// configuration (no row, or a row without a host).
var ErrNotConfigured = errors.New("workspace has no usable mail configuration")

// Sender delivers a single fully-resolved message through the given
// transport. Implementations must be safe for concurrent use.
type Sender interface {
	Send(ctx context.Context, transport *domain.MailSettings, msg *domain.EmailMessage) (*domain.SendResult, error)
}

// SettingsStore is the read side of the mail_settings table.
type SettingsStore interface {
	// GetByWorkspace returns the workspace's mail settings, or nil when no
	// row exists.
	GetByWorkspace(ctx context.Context, workspaceID string) (*domain.MailSettings, error)
}

// Resolver turns a workspace ID into a usable mail transport.
type Resolver struct {
	store SettingsStore
}

// NewResolver creates a transport resolver over the given settings store.
func NewResolver(store SettingsStore) *Resolver {
	return &Resolver{store: store}
}

// Resolve returns the workspace's transport descriptor or ErrNotConfigured.
func (r *Resolver) Resolve(ctx context.Context, workspaceID string) (*domain.MailSettings, error) {
	settings, err := r.store.GetByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	if !settings.Usable() {
		return nil, ErrNotConfigured
	}
	return settings, nil
}
