package db

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ashgate/pgframe/internal/dberr"
)

// Tx is a RAII-style wrapper over a checked-out Guard that issues BEGIN on
// construction. It exposes the same data-plane surface as a raw Conn
// (QueryCached, Client) plus Commit and Rollback. A Tx that is dropped
// without either is rolled back automatically when its guard is released;
// callers should nonetheless defer Rollback immediately after BeginTx so
// an early return always reaches the guard's release path.
type Tx struct {
	guard *Guard
	conn  *Conn

	mu       sync.Mutex
	finished bool
}

// BeginTx checks out a connection from pool and issues BEGIN on it.
func BeginTx(ctx context.Context, pool *Pool) (*Tx, error) {
	guard, err := pool.Checkout(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := guard.Conn().Exec(ctx, "BEGIN"); err != nil {
		guard.Release()
		return nil, err
	}
	guard.beginTx()
	return &Tx{guard: guard, conn: guard.Conn()}, nil
}

// QueryCached satisfies query.Executor, letting the query builder run
// statements against this transaction's connection.
func (t *Tx) QueryCached(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return t.conn.QueryCached(ctx, sql, args...)
}

// Client returns the raw driver handle for escape hatches.
func (t *Tx) Client() *pgx.Conn { return t.conn.Client() }

// Exec runs sql for its side effects, for statements with no rows to read.
func (t *Tx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return t.conn.Exec(ctx, sql, args...)
}

// Commit issues COMMIT and releases the guard. Calling Commit twice, or
// after Rollback, returns ErrTxFinished.
func (t *Tx) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.finished {
		return dberr.ErrTxFinished
	}
	t.finished = true

	_, err := t.conn.Exec(ctx, "COMMIT")
	t.guard.markDone()
	t.guard.Release()
	return err
}

// Rollback issues ROLLBACK and releases the guard. Calling Rollback after
// Commit, or twice, returns ErrTxFinished; this makes a deferred Rollback
// immediately after a successful Commit a harmless no-op.
func (t *Tx) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.finished {
		return dberr.ErrTxFinished
	}
	t.finished = true

	_, err := t.conn.Exec(ctx, "ROLLBACK")
	t.guard.markDone()
	t.guard.Release()
	return err
}
