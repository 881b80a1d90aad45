package campaign

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/relaycrm/campaign-engine/internal/audit"
	"github.com/relaycrm/campaign-engine/internal/domain"
	"github.com/relaycrm/campaign-engine/internal/pkg/logger"
	"github.com/relaycrm/campaign-engine/internal/sending"
)

// TransportResolver is the pre-flight transport check. It performs a single
// local configuration read and returns sending.ErrNotConfigured when the
// workspace cannot send mail.
type TransportResolver interface {
	Resolve(ctx context.Context, workspaceID string) (*domain.MailSettings, error)
}

// Service implements campaign business logic: lifecycle transitions,
// pre-flight validation, enqueueing dispatch jobs, and statistics. All
// public methods are safe for concurrent use if the underlying repository
// is concurrency-safe.
type Service struct {
	repo      Repository
	stats     StatsRepository
	transport TransportResolver
	enqueuer  Enqueuer
	audit     audit.Sink
}

// NewService creates a campaign service. A nil audit sink is replaced with
// the no-op sink so callers never have to check.
func NewService(repo Repository, stats StatsRepository, transport TransportResolver, enq Enqueuer, sink audit.Sink) *Service {
	if sink == nil {
		sink = audit.Nop{}
	}
	return &Service{repo: repo, stats: stats, transport: transport, enqueuer: enq, audit: sink}
}

// Get returns a single campaign.
func (s *Service) Get(ctx context.Context, workspaceID, id string) (*domain.Campaign, error) {
	return s.repo.Get(ctx, workspaceID, id)
}

// List returns campaigns matching the filter.
func (s *Service) List(ctx context.Context, workspaceID string, f ListFilter) ([]domain.Campaign, int, error) {
	return s.repo.List(ctx, workspaceID, f)
}

// Create validates and persists a new campaign in draft status.
func (s *Service) Create(ctx context.Context, workspaceID, actor string, input CreateInput) (*domain.Campaign, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if input.Subject == "" {
		return nil, fmt.Errorf("subject is required")
	}

	c := &domain.Campaign{
		ID:          uuid.New().String(),
		WorkspaceID: workspaceID,
		Name:        input.Name,
		Subject:     input.Subject,
		Body:        input.Body,
		Status:      domain.CampaignDraft,
		ListIDs:     input.ListIDs,
	}

	id, err := s.repo.Create(ctx, c)
	if err != nil {
		return nil, err
	}
	c.ID = id

	s.audit.Record(ctx, audit.Entry(actor, workspaceID, "campaign.created", "campaign", c.ID,
		fmt.Sprintf("Created campaign %q", c.Name), nil))
	return c, nil
}

// Update modifies mutable campaign fields. Only draft campaigns can be
// edited; the repository enforces that atomically.
func (s *Service) Update(ctx context.Context, workspaceID, actor, id string, u UpdateFields) error {
	if err := s.repo.Update(ctx, workspaceID, id, u); err != nil {
		return err
	}
	s.audit.Record(ctx, audit.Entry(actor, workspaceID, "campaign.updated", "campaign", id,
		"Updated campaign", nil))
	return nil
}

// Delete removes a draft campaign and its delivery logs.
func (s *Service) Delete(ctx context.Context, workspaceID, actor, id string) error {
	if err := s.repo.Delete(ctx, workspaceID, id); err != nil {
		return err
	}
	s.audit.Record(ctx, audit.Entry(actor, workspaceID, "campaign.deleted", "campaign", id,
		"Deleted campaign", nil))
	return nil
}

// Schedule validates the timestamp and moves the campaign to scheduled.
func (s *Service) Schedule(ctx context.Context, workspaceID, actor, id string, at time.Time) error {
	if !at.After(time.Now()) {
		return ErrScheduleInPast
	}
	if err := s.repo.Schedule(ctx, workspaceID, id, at.UTC()); err != nil {
		return err
	}
	s.audit.Record(ctx, audit.Entry(actor, workspaceID, "campaign.scheduled", "campaign", id,
		fmt.Sprintf("Scheduled campaign for %s", at.UTC().Format(time.RFC3339)), map[string]any{"send_at": at.UTC()}))
	return nil
}

// SendNow performs the pre-flight checks, claims the campaign for sending,
// and enqueues the dispatch job for the worker.
//
// Ordering matters: the transport check happens before the claim, so a
// workspace without mail configuration is rejected with the campaign status
// unchanged. The claim itself is an atomic compare-and-set; a concurrent
// second trigger loses the race and gets ErrNotSendable, never a second
// batch.
func (s *Service) SendNow(ctx context.Context, workspaceID, actor, id string) error {
	c, err := s.repo.Get(ctx, workspaceID, id)
	if err != nil {
		return err
	}
	if !c.Sendable() {
		return ErrNotSendable
	}

	if _, err := s.transport.Resolve(ctx, workspaceID); err != nil {
		if errors.Is(err, sending.ErrNotConfigured) {
			return err
		}
		return fmt.Errorf("resolve transport: %w", err)
	}

	claimed, err := s.repo.ClaimForSending(ctx, workspaceID, id)
	if err != nil {
		return fmt.Errorf("claim campaign: %w", err)
	}
	if !claimed {
		return ErrNotSendable
	}

	if err := s.enqueuer.EnqueueDispatch(ctx, workspaceID, id); err != nil {
		// The campaign is claimed but no worker will ever pick it up.
		// Park it in failed so an operator can retry, rather than leaving
		// it stuck in sending forever.
		if finErr := s.repo.Finish(ctx, id, domain.CampaignFailed); finErr != nil {
			logger.Error("rollback after enqueue failure", "campaign_id", id, "error", finErr.Error())
		}
		return fmt.Errorf("enqueue dispatch: %w", err)
	}

	s.audit.Record(ctx, audit.Entry(actor, workspaceID, "campaign.dispatched", "campaign", id,
		fmt.Sprintf("Queued campaign %q for sending", c.Name), nil))
	logger.Info("campaign queued for dispatch", "campaign_id", id, "workspace_id", workspaceID)
	return nil
}

// Stats returns the aggregate counters, plus the per-recipient listing when
// category is non-empty.
func (s *Service) Stats(ctx context.Context, workspaceID, id, category string) (*domain.CampaignStats, []domain.LogRecipient, error) {
	if _, err := s.repo.Get(ctx, workspaceID, id); err != nil {
		return nil, nil, err
	}

	counts, err := s.stats.Counts(ctx, workspaceID, id)
	if err != nil {
		return nil, nil, fmt.Errorf("campaign stats: %w", err)
	}
	if category == "" {
		return counts, nil, nil
	}
	if !domain.ValidStatsCategory(category) {
		return nil, nil, ErrBadCategory
	}

	listing, err := s.stats.Listing(ctx, workspaceID, id, domain.StatsCategory(category))
	if err != nil {
		return nil, nil, fmt.Errorf("stats listing: %w", err)
	}
	return counts, listing, nil
}

// CreateInput holds the fields for creating a new campaign.
type CreateInput struct {
	Name    string   `json:"name"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
	ListIDs []string `json:"list_ids"`
}
