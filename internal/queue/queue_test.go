package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/relaycrm/campaign-engine/internal/domain"
)

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestDispatchQueue_RoundTrip(t *testing.T) {
	q := NewDispatchQueue(setupRedis(t))
	ctx := context.Background()

	if err := q.EnqueueDispatch(ctx, "ws1", "c1"); err != nil {
		t.Fatalf("EnqueueDispatch() error: %v", err)
	}
	if err := q.EnqueueDispatch(ctx, "ws1", "c2"); err != nil {
		t.Fatalf("EnqueueDispatch() error: %v", err)
	}

	n, err := q.Len(ctx)
	if err != nil || n != 2 {
		t.Fatalf("Len() = %d, %v, want 2", n, err)
	}

	// FIFO: c1 first.
	job, ok, err := q.Next(ctx, time.Second)
	if err != nil || !ok {
		t.Fatalf("Next() = %v, %v", ok, err)
	}
	if job.WorkspaceID != "ws1" || job.CampaignID != "c1" {
		t.Errorf("job = %+v", job)
	}
	if job.EnqueuedAt.IsZero() {
		t.Error("EnqueuedAt not stamped")
	}

	job, ok, err = q.Next(ctx, time.Second)
	if err != nil || !ok {
		t.Fatalf("Next() = %v, %v", ok, err)
	}
	if job.CampaignID != "c2" {
		t.Errorf("second job = %+v", job)
	}
}

func TestDispatchQueue_EmptyTimesOut(t *testing.T) {
	q := NewDispatchQueue(setupRedis(t))

	job, ok, err := q.Next(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("Next() error: %v", err)
	}
	if ok || job != nil {
		t.Errorf("Next() on empty queue = %+v, %v, want nil, false", job, ok)
	}
}

func TestEventQueue_RoundTrip(t *testing.T) {
	q := NewEventQueue(setupRedis(t))
	ctx := context.Background()

	in := domain.DeliveryEvent{
		EventType: domain.EventClicked,
		LogID:     "log-1",
		LinkURL:   "https://example.com/offer",
		IPAddress: "203.0.113.9",
		UserAgent: "Mozilla/5.0",
		Timestamp: time.Now().UTC().Truncate(time.Second),
	}
	if err := q.Publish(ctx, in); err != nil {
		t.Fatalf("Publish() error: %v", err)
	}

	out, ok, err := q.Next(ctx, time.Second)
	if err != nil || !ok {
		t.Fatalf("Next() = %v, %v", ok, err)
	}
	if out.EventType != in.EventType || out.LogID != in.LogID || out.LinkURL != in.LinkURL {
		t.Errorf("event = %+v, want %+v", out, in)
	}
	if !out.Timestamp.Equal(in.Timestamp) {
		t.Errorf("timestamp = %v, want %v", out.Timestamp, in.Timestamp)
	}
}

func TestEventQueue_RequeuePreservesEvent(t *testing.T) {
	q := NewEventQueue(setupRedis(t))
	ctx := context.Background()

	in := domain.DeliveryEvent{EventType: domain.EventOpened, LogID: "log-2", Timestamp: time.Now().UTC()}
	if err := q.Publish(ctx, in); err != nil {
		t.Fatalf("Publish() error: %v", err)
	}

	evt, ok, err := q.Next(ctx, time.Second)
	if err != nil || !ok {
		t.Fatalf("Next() = %v, %v", ok, err)
	}

	// Consumer republished after a storage error.
	if err := q.Publish(ctx, *evt); err != nil {
		t.Fatalf("requeue Publish() error: %v", err)
	}
	again, ok, err := q.Next(ctx, time.Second)
	if err != nil || !ok {
		t.Fatalf("Next() after requeue = %v, %v", ok, err)
	}
	if again.LogID != "log-2" || again.EventType != domain.EventOpened {
		t.Errorf("requeued event = %+v", again)
	}
}
