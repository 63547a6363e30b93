package job

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ashgate/pgframe/internal/db"
	"github.com/ashgate/pgframe/internal/dberr"
)

// Queue wraps a pool for enqueuing and claiming rwf_jobs rows.
type Queue struct {
	pool *db.Pool
}

func NewQueue(pool *db.Pool) *Queue { return &Queue{pool: pool} }

// Enqueue inserts a job row runnable immediately, with the default retry
// budget.
func (q *Queue) Enqueue(ctx context.Context, name string, args any) (int64, error) {
	return q.EnqueueIn(ctx, name, args, 0)
}

// EnqueueIn inserts a job row whose start_after is now+delay.
func (q *Queue) EnqueueIn(ctx context.Context, name string, args any, delay time.Duration) (int64, error) {
	payload, err := json.Marshal(args)
	if err != nil {
		return 0, &dberr.SerializationError{Reason: fmt.Sprintf("marshaling args for job %q: %v", name, err)}
	}

	guard, err := q.pool.Checkout(ctx)
	if err != nil {
		return 0, err
	}
	defer guard.Release()

	var id int64
	rows, err := guard.Conn().QueryCached(ctx, `
		INSERT INTO rwf_jobs (name, args, start_after, retries)
		VALUES ($1, $2, NOW() + $3 * INTERVAL '1 second', $4)
		RETURNING id
	`, name, payload, delay.Seconds(), DefaultRetries)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	if !rows.Next() {
		return 0, &dberr.DatabaseError{Err: fmt.Errorf("insert of job %q returned no row", name)}
	}
	if err := rows.Scan(&id); err != nil {
		return 0, &dberr.ConversionError{Column: "id", Err: err}
	}
	return id, rows.Err()
}

// Next claims the oldest eligible job with FOR UPDATE SKIP LOCKED,
// marking it started inside the same transaction before committing, which
// is what makes the claim atomic against other workers racing the same
// SKIP LOCKED query. It returns (nil, nil) when no job is eligible right
// now.
func (q *Queue) Next(ctx context.Context) (*Row, error) {
	tx, err := db.BeginTx(ctx, q.pool)
	if err != nil {
		return nil, err
	}

	rows, err := tx.QueryCached(ctx, `
		SELECT id, name, args, created_at, start_after, started_at, attempts, retries, completed_at, error
		FROM rwf_jobs
		WHERE completed_at IS NULL
		  AND started_at   IS NULL
		  AND attempts     < retries
		  AND start_after <= NOW()
		ORDER BY created_at ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	`)
	if err != nil {
		_ = tx.Rollback(ctx)
		return nil, err
	}

	var r Row
	found := rows.Next()
	if found {
		err = rows.Scan(&r.ID, &r.Name, &r.Args, &r.CreatedAt, &r.StartAfter, &r.StartedAt, &r.Attempts, &r.Retries, &r.CompletedAt, &r.Error)
	}
	rows.Close()
	if err != nil {
		_ = tx.Rollback(ctx)
		return nil, &dberr.ConversionError{Column: "rwf_jobs row", Err: err}
	}
	if !found {
		_ = tx.Rollback(ctx)
		return nil, nil
	}

	now := time.Now()
	if _, err := tx.Exec(ctx, `UPDATE rwf_jobs SET started_at = NOW() WHERE id = $1`, r.ID); err != nil {
		_ = tx.Rollback(ctx)
		return nil, err
	}
	r.StartedAt = &now

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &r, nil
}

// Complete marks a job succeeded.
func (q *Queue) Complete(ctx context.Context, id int64) error {
	guard, err := q.pool.Checkout(ctx)
	if err != nil {
		return err
	}
	defer guard.Release()

	_, err = guard.Conn().Exec(ctx, `
		UPDATE rwf_jobs SET completed_at = NOW(), attempts = attempts + 1, error = NULL WHERE id = $1
	`, id)
	return err
}

// Fail marks a job failed-and-retryable: attempts increments, the error
// message is recorded, start_after moves to created_at + 2^attempts
// seconds, and started_at is cleared so the job becomes claimable again
// once that time arrives (or permanently stops once attempts == retries).
func (q *Queue) Fail(ctx context.Context, r *Row, message string) error {
	guard, err := q.pool.Checkout(ctx)
	if err != nil {
		return err
	}
	defer guard.Release()

	nextAttempts := r.Attempts + 1
	_, err = guard.Conn().Exec(ctx, `
		UPDATE rwf_jobs
		SET error = $2,
		    attempts = $3,
		    start_after = created_at + ($4 || ' seconds')::interval,
		    started_at = NULL
		WHERE id = $1
	`, r.ID, message, nextAttempts, int64(Backoff(nextAttempts).Seconds()))
	return err
}

// RescheduleAbandoned clears started_at on every incomplete job that is
// still marked started, salvaging work left claimed by a crashed worker.
// Call once at worker startup.
func RescheduleAbandoned(ctx context.Context, pool *db.Pool) error {
	guard, err := pool.Checkout(ctx)
	if err != nil {
		return err
	}
	defer guard.Release()

	_, err = guard.Conn().Exec(ctx, `
		UPDATE rwf_jobs SET started_at = NULL WHERE completed_at IS NULL AND started_at IS NOT NULL
	`)
	return err
}
