// Package worker hosts the long-running loops of the dispatch worker
// process: the queue consumer that executes campaign batches and the poller
// that promotes due scheduled campaigns.
package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/relaycrm/campaign-engine/internal/dispatch"
	"github.com/relaycrm/campaign-engine/internal/pkg/logger"
	"github.com/relaycrm/campaign-engine/internal/queue"
)

// Dispatcher consumes dispatch jobs and runs them through the engine.
// Multiple goroutines consume concurrently; each job is one whole campaign
// batch, so concurrency here is across campaigns, never within one.
type Dispatcher struct {
	jobs       *queue.DispatchQueue
	engine     *dispatch.Engine
	numWorkers int

	processed int64
	failures  int64

	wg sync.WaitGroup
}

// NewDispatcher creates a dispatcher with the given consumer concurrency.
func NewDispatcher(jobs *queue.DispatchQueue, engine *dispatch.Engine, numWorkers int) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = 2
	}
	return &Dispatcher{jobs: jobs, engine: engine, numWorkers: numWorkers}
}

// Run starts the consumer goroutines and blocks until ctx is cancelled and
// in-flight batches finish.
func (d *Dispatcher) Run(ctx context.Context) {
	logger.Info("dispatch consumer started", "workers", d.numWorkers)
	for i := 0; i < d.numWorkers; i++ {
		d.wg.Add(1)
		go d.consume(ctx)
	}
	d.wg.Wait()
	logger.Info("dispatch consumer stopped",
		"processed", atomic.LoadInt64(&d.processed),
		"failures", atomic.LoadInt64(&d.failures))
}

func (d *Dispatcher) consume(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, ok, err := d.jobs.Next(ctx, 5*time.Second)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("dispatch queue receive failed", "error", err.Error())
			time.Sleep(2 * time.Second)
			continue
		}
		if !ok {
			continue
		}

		// The batch deliberately ignores ctx cancellation mid-flight:
		// once sending starts it runs to completion so every recipient
		// gets exactly one log row.
		if err := d.engine.Dispatch(context.WithoutCancel(ctx), job.WorkspaceID, job.CampaignID); err != nil {
			atomic.AddInt64(&d.failures, 1)
			logger.Error("campaign dispatch failed", "campaign_id", job.CampaignID, "error", err.Error())
			continue
		}
		atomic.AddInt64(&d.processed, 1)
	}
}
