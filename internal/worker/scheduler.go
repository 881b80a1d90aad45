package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/relaycrm/campaign-engine/internal/domain"
	"github.com/relaycrm/campaign-engine/internal/pkg/distlock"
	"github.com/relaycrm/campaign-engine/internal/pkg/logger"
	"github.com/relaycrm/campaign-engine/internal/sending"
	"github.com/relaycrm/campaign-engine/internal/service/campaign"
)

const (
	// DefaultSchedulerPollInterval is how often the poller looks for due
	// scheduled campaigns.
	DefaultSchedulerPollInterval = 30 * time.Second

	// schedulerBatchLimit caps the campaigns promoted in one poll cycle.
	schedulerBatchLimit = 50
)

// Scheduler polls for campaigns with status=scheduled whose scheduled_at has
// arrived, claims them with the same compare-and-set the API uses, and
// enqueues their dispatch jobs. A distributed lock keeps exactly one poller
// active across worker replicas.
type Scheduler struct {
	repo         campaign.Repository
	transport    campaign.TransportResolver
	enqueuer     campaign.Enqueuer
	newLock      func() distlock.DistLock
	pollInterval time.Duration

	promoted int64
	errors   int64
}

// NewScheduler creates the scheduled-campaign poller.
func NewScheduler(repo campaign.Repository, transport campaign.TransportResolver, enq campaign.Enqueuer, newLock func() distlock.DistLock) *Scheduler {
	return &Scheduler{
		repo:         repo,
		transport:    transport,
		enqueuer:     enq,
		newLock:      newLock,
		pollInterval: DefaultSchedulerPollInterval,
	}
}

// SetPollInterval overrides the poll interval, mainly for tests.
func (s *Scheduler) SetPollInterval(d time.Duration) { s.pollInterval = d }

// Run blocks, polling until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	logger.Info("campaign scheduler started", "interval", s.pollInterval.String())
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("campaign scheduler stopped", "promoted", atomic.LoadInt64(&s.promoted))
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick runs one poll cycle under the distributed lock.
func (s *Scheduler) tick(ctx context.Context) {
	lock := s.newLock()
	acquired, err := lock.Acquire(ctx)
	if err != nil {
		logger.Error("scheduler lock acquire failed", "error", err.Error())
		return
	}
	if !acquired {
		// Another replica is polling.
		return
	}
	defer func() {
		if relErr := lock.Release(ctx); relErr != nil {
			logger.Warn("scheduler lock release failed", "error", relErr.Error())
		}
	}()

	due, err := s.repo.ListDue(ctx, time.Now().UTC(), schedulerBatchLimit)
	if err != nil {
		atomic.AddInt64(&s.errors, 1)
		logger.Error("list due campaigns failed", "error", err.Error())
		return
	}

	for _, c := range due {
		s.promote(ctx, c)
	}
}

func (s *Scheduler) promote(ctx context.Context, c domain.Campaign) {
	// Same pre-flight as a manual send: a workspace without a usable
	// transport keeps the campaign in scheduled, to be retried next poll
	// once mail settings exist. Only a claimed campaign may reach failed.
	if _, err := s.transport.Resolve(ctx, c.WorkspaceID); err != nil {
		if errors.Is(err, sending.ErrNotConfigured) {
			logger.Warn("scheduled campaign skipped, no mail configuration", "campaign_id", c.ID, "workspace_id", c.WorkspaceID)
			return
		}
		atomic.AddInt64(&s.errors, 1)
		logger.Error("resolve transport for scheduled campaign failed", "campaign_id", c.ID, "error", err.Error())
		return
	}

	claimed, err := s.repo.ClaimForSending(ctx, c.WorkspaceID, c.ID)
	if err != nil {
		atomic.AddInt64(&s.errors, 1)
		logger.Error("claim scheduled campaign failed", "campaign_id", c.ID, "error", err.Error())
		return
	}
	if !claimed {
		// Someone sent it manually between the ListDue read and the claim.
		return
	}

	if err := s.enqueuer.EnqueueDispatch(ctx, c.WorkspaceID, c.ID); err != nil {
		atomic.AddInt64(&s.errors, 1)
		logger.Error("enqueue scheduled campaign failed", "campaign_id", c.ID, "error", err.Error())
		if finErr := s.repo.Finish(ctx, c.ID, domain.CampaignFailed); finErr != nil {
			logger.Error("park scheduled campaign failed", "campaign_id", c.ID, "error", finErr.Error())
		}
		return
	}

	atomic.AddInt64(&s.promoted, 1)
	logger.Info("scheduled campaign promoted", "campaign_id", c.ID, "workspace_id", c.WorkspaceID, "scheduled_at", c.ScheduledAt)
}
