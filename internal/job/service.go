package job

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const dateFormat = "2006-01-02"

type Service struct {
	repo   Repository
	notify func() // optional: wake worker pool
	now    func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// SetNotify sets a callback invoked when a new pending job is created.
func (s *Service) SetNotify(fn func()) { s.notify = fn }

func (s *Service) RecoverStaleJobs(ctx context.Context) error {
	n, err := s.repo.RecoverStale(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		slog.Info("re-queued interrupted jobs", "count", n)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, req GetJobRequest) (*Job, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, req.ID)
}

func (s *Service) List(ctx context.Context, req ListJobsRequest) ([]Job, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, req.Pair)
}

// Submit queues a backfill. An identical pending or running job is returned
// instead of a new one; created reports which happened.
func (s *Service) Submit(ctx context.Context, req SubmitBackfillRequest) (j *Job, created bool, err error) {
	pair, r, appErr := req.Validate(s.now())
	if appErr != nil {
		return nil, false, appErr
	}

	from, to := r.Start.Format(dateFormat), r.End.Format(dateFormat)
	active, err := s.repo.FindActive(ctx, pair.String(), from, to)
	if err != nil {
		return nil, false, fmt.Errorf("find active job: %w", err)
	}
	if active != nil {
		return active, false, nil
	}

	j = &Job{
		Pair:      pair.String(),
		StartDate: r.Start,
		EndDate:   r.End,
		Status:    StatusPending,
	}
	if err := s.repo.Create(ctx, j); err != nil {
		return nil, false, fmt.Errorf("create job: %w", err)
	}
	slog.Info("queued backfill", "job", j.ID, "pair", j.Pair, "from", from, "to", to)

	if s.notify != nil {
		s.notify()
	}
	return j, true, nil
}
