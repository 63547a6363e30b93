package db

import (
	"context"
	"sync"
)

// Guard represents exclusive ownership of one checked-out connection. Go
// has no destructors, so callers must defer Release explicitly; Release is
// idempotent and safe to call more than once. If the guard was used inside
// a transaction that never reached an explicit commit or rollback, Release
// issues ROLLBACK before checking the connection back in.
type Guard struct {
	pool *Pool
	conn *Conn

	mu       sync.Mutex
	inTx     bool
	done     bool // transaction reached commit or explicit rollback
	released bool
}

func newGuard(p *Pool, c *Conn) *Guard {
	return &Guard{pool: p, conn: c}
}

// Conn returns the checked-out connection.
func (g *Guard) Conn() *Conn { return g.conn }

func (g *Guard) beginTx() {
	g.mu.Lock()
	g.inTx = true
	g.mu.Unlock()
}

// markDone records that the transaction reached an explicit commit or
// rollback, so Release does not issue a second rollback.
func (g *Guard) markDone() {
	g.mu.Lock()
	g.done = true
	g.mu.Unlock()
}

// Release returns the connection to the pool. Uncommitted transaction work
// is rolled back first; if that rollback itself fails, the connection is
// flagged bad so the pool retires it instead of recirculating it.
func (g *Guard) Release() {
	g.mu.Lock()
	if g.released {
		g.mu.Unlock()
		return
	}
	g.released = true
	needsRollback := g.inTx && !g.done
	g.mu.Unlock()

	if needsRollback && !g.conn.Bad() {
		if _, err := g.conn.Exec(context.Background(), "ROLLBACK"); err != nil {
			g.conn.markBad()
		}
	}
	g.pool.checkin(g.conn)
}

// Leak transfers permanent ownership of the connection to the caller: the
// pool forgets it without closing it, and the guard is marked released so
// a later deferred Release is a no-op.
func (g *Guard) Leak() *Conn {
	g.mu.Lock()
	g.released = true
	g.mu.Unlock()
	g.pool.leak(g.conn)
	return g.conn
}
