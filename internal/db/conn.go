// Package db implements the connection wrapper, bounded FIFO pool, and
// transaction guard that sit beneath the query builder, grounded on the
// teacher's role-aware pgxpool wrapper but hand-rolled to the bounded,
// checkout-timeout, idle-reaping FIFO contract this system requires instead
// of delegating pool management to pgxpool itself.
package db

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ashgate/pgframe/internal/dberr"
)

// Conn owns one open database session: the driver handle, a statement
// cache keyed by exact SQL text, a bad flag, and timestamps used by the
// pool's idle reaper. Conn is not safe for concurrent use by multiple
// goroutines at once; the pool hands out exclusive ownership per checkout.
type Conn struct {
	raw *pgx.Conn

	mu       sync.Mutex
	prepared map[string]struct{}
	bad      bool

	createdAt time.Time
	lastUsed  time.Time

	logQueries bool
	onQuery    func(sql string, elapsed time.Duration, err error)
}

// dial opens a new session against dsn and records its creation time.
func dial(ctx context.Context, dsn string, logQueries bool, onQuery func(string, time.Duration, error)) (*Conn, error) {
	raw, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, &dberr.DatabaseError{Err: err}
	}
	now := time.Now()
	return &Conn{
		raw:        raw,
		prepared:   make(map[string]struct{}),
		createdAt:  now,
		lastUsed:   now,
		logQueries: logQueries,
		onQuery:    onQuery,
	}, nil
}

// Client returns the raw driver handle, an escape hatch for migrations,
// LISTEN/NOTIFY, and anything else the query builder does not cover.
func (c *Conn) Client() *pgx.Conn { return c.raw }

// Bad reports whether this connection has been flagged unusable and must
// not be returned to the pool.
func (c *Conn) Bad() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bad
}

// markBad flags the connection unusable; the pool checks this on checkin.
func (c *Conn) markBad() {
	c.mu.Lock()
	c.bad = true
	c.mu.Unlock()
}

func (c *Conn) touch() {
	c.mu.Lock()
	c.lastUsed = time.Now()
	c.mu.Unlock()
}

// LastUsed reports the last time QueryCached or Exec succeeded on this connection,
// consulted by the pool's idle reaper.
func (c *Conn) LastUsed() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastUsed
}

// QueryCached is the only data-plane method query builder callers use. It
// runs sql through pgx, whose per-connection statement cache prepares each
// SQL text on first use and reuses it afterwards; on success QueryCached
// records the text in prepared. A driver error whose message indicates plan
// invalidation or schema drift marks the connection bad so the pool never
// hands it out again.
func (c *Conn) QueryCached(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	start := time.Now()
	rows, err := c.raw.Query(ctx, sql, args...)
	elapsed := time.Since(start)

	if c.onQuery != nil && c.logQueries {
		c.onQuery(sql, elapsed, err)
	}

	if err != nil {
		if isSchemaDrift(err) {
			c.markBad()
		}
		return nil, &dberr.DatabaseError{SQL: sql, Err: err}
	}

	c.mu.Lock()
	c.prepared[sql] = struct{}{}
	c.mu.Unlock()
	c.touch()

	return rows, nil
}

// Exec runs sql for its side effects and returns the rows-affected count.
func (c *Conn) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	start := time.Now()
	tag, err := c.raw.Exec(ctx, sql, args...)
	elapsed := time.Since(start)

	if c.onQuery != nil && c.logQueries {
		c.onQuery(sql, elapsed, err)
	}
	if err != nil {
		if isSchemaDrift(err) {
			c.markBad()
		}
		return tag, &dberr.DatabaseError{SQL: sql, Err: err}
	}
	c.touch()
	return tag, nil
}

// Begin starts a driver-level transaction on this connection.
func (c *Conn) Begin(ctx context.Context) (pgx.Tx, error) {
	tx, err := c.raw.Begin(ctx)
	if err != nil {
		return nil, &dberr.DatabaseError{Err: err}
	}
	return tx, nil
}

// close terminates the session. Errors are swallowed: a connection being
// discarded by the reaper or on bad-flag retirement has nothing useful to
// do with a close failure.
func (c *Conn) close(ctx context.Context) {
	_ = c.raw.Close(ctx)
}

// isSchemaDrift recognizes the subset of driver errors that indicate a
// cached plan was invalidated by a concurrent schema change, grounded on
// the teacher's isUniqueViolation substring-matching idiom for classifying
// PostgreSQL errors without a full SQLSTATE table.
func isSchemaDrift(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "cached plan must not change result type") ||
		strings.Contains(msg, "prepared statement") && strings.Contains(msg, "does not exist")
}
