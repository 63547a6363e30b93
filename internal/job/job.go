// Package job implements the PostgreSQL-backed durable job queue and its
// worker, grounded on the teacher's JobRepository CRUD style (execute,
// nullable-scan, unique-violation classification) adapted to the rwf_jobs
// row schema and SKIP LOCKED claim semantics this system requires instead
// of the teacher's own job table shape.
package job

import (
	"encoding/json"
	"time"
)

// Row is one persisted job. The invariants below hold at every point
// after a successful Queue update:
//   - StartedAt == nil && CompletedAt == nil means queued.
//   - StartedAt != nil && CompletedAt == nil means running, or abandoned
//     by a crashed worker until the worker's startup reschedule runs.
//   - CompletedAt != nil && Error == nil means succeeded.
//   - CompletedAt != nil && Error != nil means failed permanently.
//   - Attempts <= Retries always; once Attempts == Retries the job will
//     not be claimed again.
type Row struct {
	ID          int64
	Name        string
	Args        json.RawMessage
	CreatedAt   time.Time
	StartAfter  time.Time
	StartedAt   *time.Time
	Attempts    int
	Retries     int64
	CompletedAt *time.Time
	Error       *string
}

// DefaultRetries is the retry budget assigned to a job that does not
// specify one explicitly.
const DefaultRetries = 25

// Backoff returns the delay before a job's next attempt, 2^attempts
// seconds, matching the retry schedule in the next-job selector's
// contract.
func Backoff(attempts int) time.Duration {
	return time.Duration(1<<uint(attempts)) * time.Second
}
