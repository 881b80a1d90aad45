package tracking

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/relaycrm/campaign-engine/internal/domain"
	"github.com/relaycrm/campaign-engine/internal/pkg/logger"
	"github.com/relaycrm/campaign-engine/internal/queue"
)

// maxEventAttempts bounds how often a failing event is requeued before it
// is dropped. Transient storage outages recover well within this; anything
// still failing after it is a poison event.
const maxEventAttempts = 5

// EventApplier applies one delivery event to its log row. The bool result is
// false when no matching row exists (unknown or stale reference) or when the
// event was a no-op replay.
type EventApplier interface {
	ApplyEvent(ctx context.Context, evt domain.DeliveryEvent) (bool, error)
}

// Consumer drains the delivery event queue and applies events to the
// delivery log. Events are idempotent set-once writes, so at-least-once
// queue semantics are safe.
type Consumer struct {
	events *queue.EventQueue
	logs   EventApplier

	applied   int64
	unmatched int64
	errors    int64
}

// NewConsumer creates a delivery event consumer.
func NewConsumer(events *queue.EventQueue, logs EventApplier) *Consumer {
	return &Consumer{events: events, logs: logs}
}

// Run blocks, processing events until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) {
	logger.Info("delivery event consumer started")
	for {
		select {
		case <-ctx.Done():
			logger.Info("delivery event consumer stopped",
				"applied", atomic.LoadInt64(&c.applied),
				"unmatched", atomic.LoadInt64(&c.unmatched))
			return
		default:
		}

		evt, ok, err := c.events.Next(ctx, 5*time.Second)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			atomic.AddInt64(&c.errors, 1)
			logger.Error("event queue receive failed", "error", err.Error())
			time.Sleep(2 * time.Second)
			continue
		}
		if !ok {
			continue
		}

		c.handle(ctx, *evt)
	}
}

func (c *Consumer) handle(ctx context.Context, evt domain.DeliveryEvent) {
	applied, err := c.logs.ApplyEvent(ctx, evt)
	if err != nil {
		atomic.AddInt64(&c.errors, 1)
		evt.Attempts++
		if evt.Attempts >= maxEventAttempts {
			logger.Error("delivery event dropped after repeated failures",
				"event", string(evt.EventType), "log_id", evt.LogID, "attempts", evt.Attempts, "error", err.Error())
			return
		}
		logger.Error("apply delivery event failed",
			"event", string(evt.EventType), "log_id", evt.LogID, "attempt", evt.Attempts, "error", err.Error())
		// Requeue once the storage layer recovers; the set-once writes
		// make the replay harmless.
		if pubErr := c.events.Publish(ctx, evt); pubErr != nil {
			logger.Error("requeue delivery event failed", "log_id", evt.LogID, "error", pubErr.Error())
		}
		time.Sleep(time.Second)
		return
	}
	if !applied {
		// Unknown reference or duplicate replay. Both are expected from
		// real providers; discard quietly.
		atomic.AddInt64(&c.unmatched, 1)
		logger.Debug("delivery event discarded", "event", string(evt.EventType), "log_id", evt.LogID)
		return
	}
	atomic.AddInt64(&c.applied, 1)
	logger.Debug("delivery event applied", "event", string(evt.EventType), "log_id", evt.LogID)
}
