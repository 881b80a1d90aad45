// Package dispatch executes claimed campaign batches: it resolves the
// audience, renders and sends one message per recipient, and records one
// delivery log entry per attempt.
//
// The batch contract is "best effort, fully attempted": a recipient failure
// is recorded on that recipient's log row and never aborts the rest of the
// batch. Once a batch starts it runs to completion; there is no mid-batch
// cancellation.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/relaycrm/campaign-engine/internal/audit"
	"github.com/relaycrm/campaign-engine/internal/domain"
	"github.com/relaycrm/campaign-engine/internal/pkg/logger"
	"github.com/relaycrm/campaign-engine/internal/render"
	"github.com/relaycrm/campaign-engine/internal/sending"
	"github.com/relaycrm/campaign-engine/internal/tracking"
)

// CampaignStore is the slice of campaign persistence the engine needs.
type CampaignStore interface {
	Get(ctx context.Context, workspaceID, id string) (*domain.Campaign, error)
	Finish(ctx context.Context, id string, status domain.CampaignStatus) error
}

// RecipientResolver produces the deduplicated, workspace-validated audience
// for a campaign. An empty result is valid and yields a trivial batch.
type RecipientResolver interface {
	Resolve(ctx context.Context, workspaceID, campaignID string) ([]domain.Recipient, error)
}

// LogStore writes delivery log rows.
type LogStore interface {
	Insert(ctx context.Context, entry *domain.DeliveryLog) error
}

// TransportResolver re-resolves the workspace transport at batch start.
type TransportResolver interface {
	Resolve(ctx context.Context, workspaceID string) (*domain.MailSettings, error)
}

// Engine runs campaign dispatch batches on the worker.
type Engine struct {
	campaigns  CampaignStore
	recipients RecipientResolver
	transport  TransportResolver
	logs       LogStore
	sender     sending.Sender
	renderer   *render.Renderer
	codec      *tracking.Codec

	trackingURL string
	sendTimeout time.Duration
	audit       audit.Sink
}

// Config carries the engine's construction parameters.
type Config struct {
	Campaigns   CampaignStore
	Recipients  RecipientResolver
	Transport   TransportResolver
	Logs        LogStore
	Sender      sending.Sender
	Renderer    *render.Renderer
	Codec       *tracking.Codec
	TrackingURL string
	SendTimeout time.Duration
	Audit       audit.Sink
}

// NewEngine creates a dispatch engine.
func NewEngine(cfg Config) *Engine {
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 30 * time.Second
	}
	if cfg.Audit == nil {
		cfg.Audit = audit.Nop{}
	}
	return &Engine{
		campaigns:   cfg.Campaigns,
		recipients:  cfg.Recipients,
		transport:   cfg.Transport,
		logs:        cfg.Logs,
		sender:      cfg.Sender,
		renderer:    cfg.Renderer,
		codec:       cfg.Codec,
		trackingURL: cfg.TrackingURL,
		sendTimeout: cfg.SendTimeout,
		audit:       cfg.Audit,
	}
}

// Dispatch runs the batch for one claimed campaign. The campaign must be in
// sending status; jobs for campaigns in any other status are stale (already
// processed, or deleted) and are dropped without side effects.
func (e *Engine) Dispatch(ctx context.Context, workspaceID, campaignID string) error {
	c, err := e.campaigns.Get(ctx, workspaceID, campaignID)
	if err != nil {
		return fmt.Errorf("load campaign %s: %w", campaignID, err)
	}
	if c.Status != domain.CampaignSending {
		logger.Warn("dropping stale dispatch job", "campaign_id", campaignID, "status", string(c.Status))
		return nil
	}

	transport, err := e.transport.Resolve(ctx, workspaceID)
	if err != nil {
		// The transport existed at claim time. Losing it before the batch
		// starts (credentials revoked, settings deleted) fails the batch
		// before any attempt, keeping the log empty.
		if errors.Is(err, sending.ErrNotConfigured) {
			logger.Error("transport lost between claim and dispatch", "campaign_id", campaignID, "workspace_id", workspaceID)
		}
		e.finish(ctx, campaignID, domain.CampaignFailed)
		return fmt.Errorf("resolve transport for %s: %w", campaignID, err)
	}

	recipients, err := e.recipients.Resolve(ctx, workspaceID, campaignID)
	if err != nil {
		e.finish(ctx, campaignID, domain.CampaignFailed)
		return fmt.Errorf("resolve recipients for %s: %w", campaignID, err)
	}

	sent, failed := 0, 0
	for _, rcpt := range recipients {
		if e.attempt(ctx, c, transport, rcpt) {
			sent++
		} else {
			failed++
		}
	}

	e.finish(ctx, campaignID, domain.CampaignSent)
	e.audit.Record(ctx, audit.Entry("worker", workspaceID, "campaign.sent", "campaign", campaignID,
		fmt.Sprintf("Dispatched campaign %q to %d recipients", c.Name, len(recipients)),
		map[string]any{"sent": sent, "failed": failed}))
	logger.Info("campaign batch complete", "campaign_id", campaignID, "recipients", len(recipients), "sent", sent, "failed", failed)
	return nil
}

// attempt sends to one recipient and writes exactly one log row. Returns
// true when the send succeeded.
func (e *Engine) attempt(ctx context.Context, c *domain.Campaign, transport *domain.MailSettings, rcpt domain.Recipient) bool {
	logID := uuid.New().String()
	vars := render.ContactVars(rcpt)

	subject := e.renderer.Render(c.Subject, vars)
	body := e.renderer.Render(c.Body, vars)
	if e.trackingURL != "" {
		body = e.codec.InjectTracking(body, e.trackingURL, logID)
	}

	msg := &domain.EmailMessage{
		LogID:      logID,
		CampaignID: c.ID,
		ContactID:  rcpt.ContactID,
		To:         rcpt.Email,
		FromName:   transport.FromName,
		FromEmail:  transport.FromAddress,
		Subject:    subject,
		HTMLBody:   body,
	}

	sendCtx, cancel := context.WithTimeout(ctx, e.sendTimeout)
	result, sendErr := e.sender.Send(sendCtx, transport, msg)
	cancel()

	now := time.Now().UTC()
	entry := &domain.DeliveryLog{
		ID:             logID,
		CampaignID:     c.ID,
		ContactID:      rcpt.ContactID,
		RecipientEmail: rcpt.Email,
		Subject:        subject,
		CreatedAt:      now,
	}
	if sendErr != nil {
		reason := sendErr.Error()
		entry.Status = domain.DeliveryFailed
		entry.FailedAt = &now
		entry.ErrorMessage = &reason
		logger.Warn("recipient send failed", "campaign_id", c.ID, "recipient", rcpt.Email, "error", reason)
	} else {
		sentAt := result.SentAt
		entry.Status = domain.DeliverySent
		entry.SentAt = &sentAt
	}

	if err := e.logs.Insert(ctx, entry); err != nil {
		// The message may already be on the wire; losing the log row is
		// worse than double-logging would be.
		logger.Error("delivery log write failed", "campaign_id", c.ID, "log_id", logID, "error", err.Error())
	}
	return sendErr == nil
}

func (e *Engine) finish(ctx context.Context, campaignID string, status domain.CampaignStatus) {
	if err := e.campaigns.Finish(ctx, campaignID, status); err != nil {
		logger.Error("finalize campaign failed", "campaign_id", campaignID, "status", string(status), "error", err.Error())
	}
}
