package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DispatchJob tells the worker to run one campaign batch. The campaign has
// already been claimed (status=sending) by the time the job is enqueued.
type DispatchJob struct {
	WorkspaceID string    `json:"workspace_id"`
	CampaignID  string    `json:"campaign_id"`
	EnqueuedAt  time.Time `json:"enqueued_at"`
}

// DispatchQueue is the campaign dispatch job queue. It satisfies the
// campaign service's Enqueuer interface on the producing side.
type DispatchQueue struct {
	list list
}

// NewDispatchQueue creates the dispatch queue over the given Redis client.
func NewDispatchQueue(client *redis.Client) *DispatchQueue {
	return &DispatchQueue{list: list{client: client, key: dispatchKey}}
}

// EnqueueDispatch queues a claimed campaign for the worker.
func (q *DispatchQueue) EnqueueDispatch(ctx context.Context, workspaceID, campaignID string) error {
	return q.list.push(ctx, DispatchJob{
		WorkspaceID: workspaceID,
		CampaignID:  campaignID,
		EnqueuedAt:  time.Now().UTC(),
	})
}

// Next blocks up to timeout for the next job. The bool is false on timeout.
func (q *DispatchQueue) Next(ctx context.Context, timeout time.Duration) (*DispatchJob, bool, error) {
	body, ok, err := q.list.pop(ctx, timeout)
	if err != nil || !ok {
		return nil, false, err
	}
	var job DispatchJob
	if err := json.Unmarshal(body, &job); err != nil {
		return nil, false, fmt.Errorf("decode dispatch job: %w", err)
	}
	return &job, true, nil
}

// Len returns the number of pending dispatch jobs.
func (q *DispatchQueue) Len(ctx context.Context) (int64, error) {
	return q.list.Len(ctx)
}
