package db

import (
	"context"
	"sync"
	"time"

	"github.com/ashgate/pgframe/internal/dberr"
)

// Config configures a Pool. Zero values are replaced by the defaults
// documented in the configuration keys this mirrors: pool size 10, idle
// timeout 1 hour, checkout timeout 5 seconds.
type Config struct {
	DSN             string
	Size            int
	CheckoutTimeout time.Duration
	IdleTimeout     time.Duration
	LogQueries      bool
	OnQuery         func(sql string, elapsed time.Duration, err error)
}

// DefaultConfig returns the documented defaults with DSN left empty for
// the caller to fill in.
func DefaultConfig() Config {
	return Config{
		Size:            10,
		CheckoutTimeout: 5 * time.Second,
		IdleTimeout:     time.Hour,
	}
}

// Pool is a bounded FIFO connection pool: idle connections are popped from
// the back on checkout and pushed to the back on checkin, biasing reuse
// toward recently-used connections so their statement caches stay warm.
// New connections are opened on demand up to Size; beyond that, checkout
// waits on a checkin notification until CheckoutTimeout elapses.
type Pool struct {
	cfg Config

	mu       sync.Mutex
	idle     []*Conn
	expected int
	closed   bool
	notify   chan struct{}

	reaperStop chan struct{}
	reaperDone chan struct{}
}

// New constructs a pool and starts its idle reaper. Call Close when the
// pool is no longer needed to stop the reaper and release idle
// connections.
func New(cfg Config) *Pool {
	if cfg.Size <= 0 {
		cfg.Size = 10
	}
	if cfg.CheckoutTimeout <= 0 {
		cfg.CheckoutTimeout = 5 * time.Second
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = time.Hour
	}
	p := &Pool{
		cfg:        cfg,
		notify:     make(chan struct{}),
		reaperStop: make(chan struct{}),
		reaperDone: make(chan struct{}),
	}
	go p.reap()
	return p
}

// Checkout runs the checkout algorithm: pop good idle connections first,
// open a new one if under Size, or wait for a checkin and retry. The whole
// attempt is bounded by CheckoutTimeout regardless of ctx's own deadline.
func (p *Pool) Checkout(ctx context.Context) (*Guard, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.CheckoutTimeout)
	defer cancel()

	for {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return nil, dberr.ErrPoolClosed
		}

		for len(p.idle) > 0 {
			c := p.idle[len(p.idle)-1]
			p.idle = p.idle[:len(p.idle)-1]
			if c.Bad() {
				p.expected--
				c.close(context.Background())
				continue
			}
			p.mu.Unlock()
			return newGuard(p, c), nil
		}

		if p.expected < p.cfg.Size {
			p.expected++
			p.mu.Unlock()

			conn, err := dial(ctx, p.cfg.DSN, p.cfg.LogQueries, p.cfg.OnQuery)
			if err != nil {
				p.mu.Lock()
				p.expected--
				p.mu.Unlock()
				return nil, err
			}
			return newGuard(p, conn), nil
		}

		wait := p.notify
		p.mu.Unlock()

		select {
		case <-wait:
			// a connection was checked in; retry from the top
		case <-ctx.Done():
			return nil, dberr.ErrPoolTimeout
		}
	}
}

// checkin returns a connection to the idle deque, or retires it if it was
// flagged bad. Called by Guard.Release; never called directly by users.
func (p *Pool) checkin(c *Conn) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		c.close(context.Background())
		p.broadcast()
		return
	}

	if c.Bad() {
		p.expected--
		c.close(context.Background())
	} else {
		p.idle = append(p.idle, c)
	}
	p.broadcast()
}

// leak transfers permanent ownership of a connection out of the pool: the
// pool forgets it and decrements expected without closing it. The caller
// is now solely responsible for the connection's lifetime.
func (p *Pool) leak(c *Conn) {
	p.mu.Lock()
	p.expected--
	p.mu.Unlock()
}

// broadcast wakes every goroutine blocked in Checkout's select. Must be
// called with p.mu held.
func (p *Pool) broadcast() {
	close(p.notify)
	p.notify = make(chan struct{})
}

// reap walks the idle deque once a second, discarding connections idle
// longer than IdleTimeout or already flagged bad.
func (p *Pool) reap() {
	defer close(p.reaperDone)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-p.reaperStop:
			return
		case <-ticker.C:
			p.sweep()
		}
	}
}

func (p *Pool) sweep() {
	p.mu.Lock()
	defer p.mu.Unlock()

	cutoff := time.Now().Add(-p.cfg.IdleTimeout)
	kept := p.idle[:0]
	for _, c := range p.idle {
		if c.Bad() || c.LastUsed().Before(cutoff) {
			p.expected--
			c.close(context.Background())
			continue
		}
		kept = append(kept, c)
	}
	p.idle = kept
}

// Stats reports the pool's current idle and expected (idle+checked-out)
// connection counts.
func (p *Pool) Stats() (idle, expected int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle), p.expected
}

// Close stops the reaper and closes every idle connection. Connections
// still checked out are closed as they are returned via checkin.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	for _, c := range p.idle {
		c.close(context.Background())
	}
	p.idle = nil
	p.mu.Unlock()

	close(p.reaperStop)
	<-p.reaperDone
}
