// Package job runs cache backfills in the background: a request queues a
// (pair, range) job, a worker pool claims it and warms the rate cache chunk by
// chunk.
package job

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

type Job struct {
	ID        int64     `json:"id"`
	Pair      string    `json:"pair"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	Status    Status    `json:"status"`
	Error     string    `json:"error,omitempty"`
	// Fetched counts rates pulled from the source; Gaps counts dates the
	// source could not supply.
	Fetched   int64     `json:"fetched"`
	Gaps      int64     `json:"gaps"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (j *Job) Active() bool {
	return j.Status == StatusPending || j.Status == StatusRunning
}
