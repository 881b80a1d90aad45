package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/relaycrm/campaign-engine/internal/domain"
)

// EventQueue carries inbound delivery events from the tracking HTTP surface
// to the consumer that applies them to the delivery log. Buffering events
// through Redis keeps the pixel and webhook endpoints fast and makes
// provider retry storms harmless.
type EventQueue struct {
	list list
}

// NewEventQueue creates the delivery event queue.
func NewEventQueue(client *redis.Client) *EventQueue {
	return &EventQueue{list: list{client: client, key: eventsKey}}
}

// Publish queues one delivery event.
func (q *EventQueue) Publish(ctx context.Context, evt domain.DeliveryEvent) error {
	return q.list.push(ctx, evt)
}

// Next blocks up to timeout for the next event. The bool is false on timeout.
func (q *EventQueue) Next(ctx context.Context, timeout time.Duration) (*domain.DeliveryEvent, bool, error) {
	body, ok, err := q.list.pop(ctx, timeout)
	if err != nil || !ok {
		return nil, false, err
	}
	var evt domain.DeliveryEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return nil, false, fmt.Errorf("decode delivery event: %w", err)
	}
	return &evt, true, nil
}

// Len returns the number of pending events.
func (q *EventQueue) Len(ctx context.Context) (int64, error) {
	return q.list.Len(ctx)
}
