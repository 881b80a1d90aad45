// Package queue implements the Redis-backed job queues that decouple the
// API and tracking services from the dispatch worker.
//
// Jobs are JSON blobs on a Redis list: LPUSH to enqueue, BRPOP to consume.
// Delivery semantics are at-least-once; consumers must be idempotent, which
// the delivery-log write paths are.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// List keys. Shared between publishers and consumers.
const (
	dispatchKey = "relaycrm:queue:campaign_dispatch"
	eventsKey   = "relaycrm:queue:delivery_events"
)

type list struct {
	client *redis.Client
	key    string
}

func (l *list) push(ctx context.Context, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := l.client.LPush(ctx, l.key, body).Err(); err != nil {
		return fmt.Errorf("enqueue to %s: %w", l.key, err)
	}
	return nil
}

// pop blocks up to timeout. The bool is false when the wait timed out.
func (l *list) pop(ctx context.Context, timeout time.Duration) ([]byte, bool, error) {
	res, err := l.client.BRPop(ctx, timeout, l.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	// BRPOP returns [key, value]
	if len(res) != 2 {
		return nil, false, fmt.Errorf("unexpected BRPOP reply length %d", len(res))
	}
	return []byte(res[1]), true, nil
}

// Len returns the current queue depth, for health/monitoring endpoints.
func (l *list) Len(ctx context.Context) (int64, error) {
	return l.client.LLen(ctx, l.key).Result()
}
