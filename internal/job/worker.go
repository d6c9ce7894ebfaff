package job

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Processor runs one claimed backfill to completion. It owns the job's final
// status: done or failed, or left running when ctx is cancelled mid-range.
type Processor interface {
	Process(ctx context.Context, j *Job) error
}

// WorkerPool runs JOB_WORKERS goroutines that claim pending backfills from
// the job store and hand them to a Processor. Claiming flips a job to running
// inside one write transaction, so two workers never warm the same range.
//
// A backfill cut short by shutdown keeps its running status; the service calls
// RecoverStaleJobs on the next start and the pool picks it up again. Chunks
// already assembled are cached by then, so the rerun only fetches what is left.
// Workers also poll every pollInterval to see jobs queued by another process
// sharing the database.
type WorkerPool struct {
	repo         Repository
	processor    Processor
	workers      int
	notify       chan struct{}
	pollInterval time.Duration
}

// NewWorkerPool creates a pool with the given number of workers.
func NewWorkerPool(repo Repository, processor Processor, workers int, pollInterval time.Duration) *WorkerPool {
	if workers <= 0 {
		workers = 1
	}
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	return &WorkerPool{
		repo:         repo,
		processor:    processor,
		workers:      workers,
		notify:       make(chan struct{}, 1),
		pollInterval: pollInterval,
	}
}

// Notify wakes one idle worker after a backfill is submitted. Non-blocking.
func (wp *WorkerPool) Notify() {
	select {
	case wp.notify <- struct{}{}:
	default:
	}
}

// Run starts worker goroutines and blocks until ctx is cancelled and all
// workers have drained.
func (wp *WorkerPool) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := range wp.workers {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			wp.loop(ctx, id)
		}(i)
	}
	wg.Wait()
}

func (wp *WorkerPool) loop(ctx context.Context, id int) {
	ticker := time.NewTicker(wp.pollInterval)
	defer ticker.Stop()

	for {
		// Drain all available pending jobs before waiting.
		wp.drain(ctx, id)

		select {
		case <-ctx.Done():
			return
		case <-wp.notify:
		case <-ticker.C:
		}
	}
}

func (wp *WorkerPool) drain(ctx context.Context, id int) {
	for {
		if ctx.Err() != nil {
			return
		}

		j, err := wp.repo.ClaimPending(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return // shutting down
			}
			slog.Error("worker: claim pending", "worker", id, "error", err)
			return
		}
		if j == nil {
			return // no more pending jobs
		}

		slog.Info("worker: processing backfill", "worker", id, "job", j.ID, "pair", j.Pair,
			"from", j.StartDate.Format(dateFormat), "to", j.EndDate.Format(dateFormat))

		if err := wp.processor.Process(ctx, j); err != nil {
			if ctx.Err() != nil {
				slog.Info("worker: backfill interrupted, left running", "worker", id, "job", j.ID)
				return
			}
			slog.Error("worker: process backfill", "worker", id, "job", j.ID, "error", err)
		}
	}
}
