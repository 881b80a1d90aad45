package campaign

import (
	"context"
	"time"

	"github.com/relaycrm/campaign-engine/internal/domain"
)

// Repository defines the data access contract for campaigns.
// Implementations must be safe for concurrent use. All lookups are
// workspace-scoped: a campaign belonging to another workspace behaves
// exactly like a missing one (ErrNotFound, no existence leak).
type Repository interface {
	// Get returns a single campaign with its list associations populated.
	// Returns ErrNotFound if it doesn't exist in the workspace.
	Get(ctx context.Context, workspaceID, id string) (*domain.Campaign, error)

	// List returns campaigns matching the filter, ordered by created_at DESC.
	List(ctx context.Context, workspaceID string, f ListFilter) ([]domain.Campaign, int, error)

	// Create inserts a new campaign and its list associations, returning its ID.
	Create(ctx context.Context, c *domain.Campaign) (string, error)

	// Update modifies a campaign. Only non-nil fields are applied.
	// Returns ErrNotEditable unless the campaign is in draft.
	Update(ctx context.Context, workspaceID, id string, u UpdateFields) error

	// Delete removes a campaign and cascades to its delivery logs.
	// Returns ErrNotEditable unless the campaign is in draft.
	Delete(ctx context.Context, workspaceID, id string) error

	// Schedule atomically moves a draft or scheduled campaign to scheduled
	// with the given send time. Returns ErrNotSendable if the campaign is in
	// any other status.
	Schedule(ctx context.Context, workspaceID, id string, at time.Time) error

	// ClaimForSending atomically transitions the campaign to sending, but
	// only if its current status is draft or scheduled. Returns false when
	// the conditional update matched no row because of a concurrent claim or
	// a terminal status. This is the at-most-one-active-send guard.
	ClaimForSending(ctx context.Context, workspaceID, id string) (bool, error)

	// Finish moves a sending campaign to its terminal status (sent or
	// failed) and stamps completed_at.
	Finish(ctx context.Context, id string, status domain.CampaignStatus) error

	// ListDue returns scheduled campaigns whose scheduled_at has arrived,
	// across all workspaces, for the scheduler poller.
	ListDue(ctx context.Context, now time.Time, limit int) ([]domain.Campaign, error)
}

// StatsRepository answers statistics queries from the delivery log and the
// campaign-list association.
type StatsRepository interface {
	// Counts returns the aggregate counters for one campaign. Total is the
	// distinct audience size from the list association, independent of log
	// state; the remaining counters count non-null event timestamps.
	Counts(ctx context.Context, workspaceID, campaignID string) (*domain.CampaignStats, error)

	// Listing returns the recipients matching one drill-down category.
	Listing(ctx context.Context, workspaceID, campaignID string, cat domain.StatsCategory) ([]domain.LogRecipient, error)
}

// Enqueuer hands a claimed campaign to the dispatch worker.
type Enqueuer interface {
	EnqueueDispatch(ctx context.Context, workspaceID, campaignID string) error
}

// ListFilter controls pagination and filtering for campaign lists.
type ListFilter struct {
	Status string
	Limit  int
	Offset int
}

// UpdateFields holds the mutable fields for a campaign update.
// Nil fields are not applied.
type UpdateFields struct {
	Name    *string
	Subject *string
	Body    *string
	ListIDs []string
}
