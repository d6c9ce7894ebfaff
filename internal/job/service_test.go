package job

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/yassienshaalan/ExchangeRateAnalyzer/internal/apperror"
)

type mockRepo struct {
	mu         sync.Mutex
	jobs       map[int64]*Job
	nextID     int64
	staleCount int64
	recoverErr error
}

func newMockRepo() *mockRepo {
	return &mockRepo{jobs: make(map[int64]*Job), nextID: 1}
}

func (m *mockRepo) Create(_ context.Context, j *Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j.ID = m.nextID
	m.nextID++
	cp := *j
	m.jobs[j.ID] = &cp
	return nil
}

func (m *mockRepo) Update(_ context.Context, j *Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *j
	m.jobs[j.ID] = &cp
	return nil
}

func (m *mockRepo) Get(_ context.Context, id int64) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, apperror.New(apperror.NotFound, "job not found")
	}
	cp := *j
	return &cp, nil
}

func (m *mockRepo) List(_ context.Context, pair string) ([]Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		if pair != "" && j.Pair != pair {
			continue
		}
		result = append(result, *j)
	}
	return result, nil
}

func (m *mockRepo) FindActive(_ context.Context, pair, from, to string) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.jobs {
		if j.Pair == pair && j.StartDate.Format(dateFormat) == from &&
			j.EndDate.Format(dateFormat) == to && j.Active() {
			cp := *j
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockRepo) ClaimPending(_ context.Context) (*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.jobs {
		if j.Status == StatusPending {
			j.Status = StatusRunning
			cp := *j
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockRepo) RecoverStale(_ context.Context) (int64, error) {
	return m.staleCount, m.recoverErr
}

func (m *mockRepo) get(id int64) Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.jobs[id]
}

func date(m time.Month, d int) time.Time {
	return time.Date(2024, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestService(repo Repository) *Service {
	svc := NewService(repo)
	svc.now = func() time.Time { return date(6, 30) }
	return svc
}

func TestService_RecoverStaleJobs(t *testing.T) {
	repo := newMockRepo()
	repo.staleCount = 3
	svc := NewService(repo)

	if err := svc.RecoverStaleJobs(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	repo.recoverErr = errors.New("disk full")
	if err := svc.RecoverStaleJobs(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestService_Get(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	ctx := context.Background()

	if err := repo.Create(ctx, &Job{Pair: "USDEUR", Status: StatusPending}); err != nil {
		t.Fatal(err)
	}

	got, err := svc.Get(ctx, GetJobRequest{ID: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Pair != "USDEUR" {
		t.Errorf("expected USDEUR, got %s", got.Pair)
	}
}

func TestService_Get_InvalidID(t *testing.T) {
	svc := NewService(newMockRepo())
	_, err := svc.Get(context.Background(), GetJobRequest{ID: 0})
	if err == nil {
		t.Fatal("expected validation error")
	}
}

func TestService_List(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	ctx := context.Background()

	if err := repo.Create(ctx, &Job{Pair: "USDEUR", Status: StatusPending}); err != nil {
		t.Fatal(err)
	}
	if err := repo.Create(ctx, &Job{Pair: "GBPJPY", Status: StatusPending}); err != nil {
		t.Fatal(err)
	}

	jobs, err := svc.List(ctx, ListJobsRequest{Pair: "usd/eur"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(jobs) != 1 {
		t.Errorf("expected 1 job, got %d", len(jobs))
	}

	if _, err := svc.List(ctx, ListJobsRequest{Pair: "nope"}); err == nil {
		t.Error("expected validation error for bad pair")
	}
}

func TestService_Submit(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	notified := 0
	svc.SetNotify(func() { notified++ })
	ctx := context.Background()

	req := SubmitBackfillRequest{Pair: "USD-EUR", StartDate: date(1, 1), EndDate: date(3, 31)}
	j, created, err := svc.Submit(ctx, req)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !created || j.ID != 1 || j.Pair != "USDEUR" || j.Status != StatusPending {
		t.Errorf("unexpected job: %+v created=%v", j, created)
	}
	if notified != 1 {
		t.Errorf("expected 1 notify, got %d", notified)
	}

	again, created, err := svc.Submit(ctx, req)
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if created || again.ID != j.ID {
		t.Errorf("expected deduplicated job %d, got %d created=%v", j.ID, again.ID, created)
	}
	if notified != 1 {
		t.Errorf("dedup must not notify, got %d", notified)
	}
}

func TestService_Submit_Validation(t *testing.T) {
	svc := newTestService(newMockRepo())
	ctx := context.Background()

	tests := []struct {
		name string
		req  SubmitBackfillRequest
	}{
		{"bad pair", SubmitBackfillRequest{Pair: "XX", StartDate: date(1, 1)}},
		{"missing start", SubmitBackfillRequest{Pair: "USDEUR"}},
		{"reversed", SubmitBackfillRequest{Pair: "USDEUR", StartDate: date(3, 1), EndDate: date(1, 1)}},
		{"future", SubmitBackfillRequest{Pair: "USDEUR", StartDate: date(1, 1), EndDate: date(7, 1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Submit(ctx, tt.req)
			var appErr *apperror.AppError
			if !errors.As(err, &appErr) || appErr.Code() != apperror.BadRequest {
				t.Fatalf("expected bad request, got %v", err)
			}
		})
	}
}
