package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/yassienshaalan/ExchangeRateAnalyzer/internal/rate"
)

type Assembler interface {
	Assemble(ctx context.Context, pair rate.Pair, r rate.DateRange) (*rate.Assembly, error)
}

// Recorder is told the final status of every processed job.
type Recorder interface {
	JobFinished(status string)
}

// Backfiller implements Processor by assembling a job's range chunk by chunk,
// which leaves every observed rate in the cache.
type Backfiller struct {
	repo         Repository
	assembler    Assembler
	chunkDays    int
	chunkWorkers int
	recorder     Recorder
}

type BackfillOption func(*Backfiller)

// WithChunkDays sets how many dates one Assemble call covers.
func WithChunkDays(n int) BackfillOption {
	return func(b *Backfiller) {
		if n > 0 {
			b.chunkDays = n
		}
	}
}

// WithChunkWorkers sets how many chunks of one job run at once.
func WithChunkWorkers(n int) BackfillOption {
	return func(b *Backfiller) {
		if n > 0 {
			b.chunkWorkers = n
		}
	}
}

func WithJobRecorder(r Recorder) BackfillOption {
	return func(b *Backfiller) { b.recorder = r }
}

func NewBackfiller(repo Repository, assembler Assembler, opts ...BackfillOption) *Backfiller {
	b := &Backfiller{
		repo:         repo,
		assembler:    assembler,
		chunkDays:    31,
		chunkWorkers: 2,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Process implements Processor. Called by the worker pool with a claimed
// (running) job. A job interrupted by shutdown stays running and is re-queued
// by RecoverStale on the next start.
func (b *Backfiller) Process(ctx context.Context, j *Job) error {
	pair, err := rate.ParsePair(j.Pair)
	if err != nil {
		return b.fail(ctx, j, err)
	}
	r, err := rate.NewDateRange(j.StartDate, j.EndDate)
	if err != nil {
		return b.fail(ctx, j, err)
	}

	var fetched, gaps atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.chunkWorkers)

	for _, chunk := range r.Chunks(b.chunkDays) {
		g.Go(func() error {
			asm, err := b.assembler.Assemble(gctx, pair, chunk)
			if err != nil {
				return fmt.Errorf("assemble %s: %w", chunk, err)
			}
			fetched.Add(int64(asm.Fetched))
			gaps.Add(int64(len(asm.Gaps)))
			return nil
		})
	}

	err = g.Wait()
	j.Fetched = fetched.Load()
	j.Gaps = gaps.Load()

	if err != nil {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			slog.Info("backfill interrupted", "job", j.ID, "pair", j.Pair)
			return err
		}
		return b.fail(ctx, j, err)
	}

	j.Status = StatusCompleted
	j.Error = ""
	if err := b.repo.Update(ctx, j); err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	b.record(StatusCompleted)

	slog.Info("backfill completed", "job", j.ID, "pair", j.Pair,
		"from", j.StartDate.Format(dateFormat), "to", j.EndDate.Format(dateFormat),
		"fetched", j.Fetched, "gaps", j.Gaps)
	return nil
}

func (b *Backfiller) fail(ctx context.Context, j *Job, err error) error {
	j.Status = StatusFailed
	j.Error = err.Error()
	_ = b.repo.Update(ctx, j)
	b.record(StatusFailed)
	return err
}

func (b *Backfiller) record(s Status) {
	if b.recorder != nil {
		b.recorder.JobFinished(string(s))
	}
}
