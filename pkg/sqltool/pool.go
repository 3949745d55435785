package sqltool

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"time"
)

// PoolConfig bounds the connection pool (spec §4.5).
type PoolConfig struct {
	MaxConnections int
	AcquireTimeout time.Duration
	DSN            string
	DriverName     string // defaults to "sqlite3"
}

// DefaultPoolConfig matches the spec §6.5 SQL_POOL_MAX_CONNECTIONS default.
func DefaultPoolConfig(dsn string) PoolConfig {
	return PoolConfig{
		MaxConnections: 10,
		AcquireTimeout: 5 * time.Second,
		DSN:            dsn,
		DriverName:     "sqlite3",
	}
}

// Pool is a lazy-initialized FIFO connection pool (spec §4.5 "Connection
// pool"). Connections are *sql.DB handles opened with MaxOpenConns(1) so
// each pool slot maps to exactly one underlying connection, matching the
// spec's per-connection acquire/release/close_all lifecycle.
type Pool struct {
	cfg PoolConfig

	mu      sync.Mutex
	cond    *sync.Cond
	free    []*sql.DB
	busy    int
	created int
	closed  bool
}

// NewPool constructs an empty pool; connections are opened on first
// acquire (spec: "Lazy-initialized").
func NewPool(cfg PoolConfig) *Pool {
	if cfg.DriverName == "" {
		cfg.DriverName = "sqlite3"
	}
	p := &Pool{cfg: cfg}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Acquire returns an idle connection, opens a new one if under
// MaxConnections, or blocks up to AcquireTimeout before returning
// ErrPoolExhausted (spec §4.5 "Connection pool": acquire()). A waiter
// unparks itself on a timer rather than relying on a dedicated watcher
// goroutine per call, so Acquire never leaks a goroutine past its own
// return.
func (p *Pool) Acquire(ctx context.Context) (*sql.DB, error) {
	deadline := time.Now().Add(p.cfg.AcquireTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	p.mu.Lock()
	for {
		if p.closed {
			p.mu.Unlock()
			return nil, ErrPoolClosed
		}
		if err := ctx.Err(); err != nil {
			p.mu.Unlock()
			return nil, err
		}
		if n := len(p.free); n > 0 {
			conn := p.free[0]
			p.free = p.free[1:]
			p.busy++
			p.mu.Unlock()
			return conn, nil
		}
		if p.created < p.cfg.MaxConnections {
			p.created++
			p.busy++
			p.mu.Unlock()
			conn, err := sql.Open(p.cfg.DriverName, p.cfg.DSN)
			if err != nil {
				p.mu.Lock()
				p.created--
				p.busy--
				p.mu.Unlock()
				return nil, err
			}
			conn.SetMaxOpenConns(1)
			return conn, nil
		}

		if !time.Now().Before(deadline) {
			p.mu.Unlock()
			return nil, ErrPoolExhausted
		}

		timer := time.AfterFunc(time.Until(deadline), p.cond.Broadcast)
		p.cond.Wait()
		timer.Stop()
	}
}

// Release returns conn to the free list, or closes it and frees its slot
// if healthy is false (spec §4.5 "release(conn)").
func (p *Pool) Release(conn *sql.DB, healthy bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.busy--
	if !healthy || p.closed {
		p.created--
		p.mu.Unlock()
		if err := conn.Close(); err != nil {
			slog.Warn("sqltool: error closing unhealthy connection", "error", err)
		}
		p.mu.Lock()
		p.cond.Broadcast()
		return
	}
	p.free = append(p.free, conn)
	p.cond.Broadcast()
}

// CloseAll closes every idle connection and marks the pool closed, waking
// any waiters so they observe ErrPoolClosed (spec §4.5 "close_all()").
func (p *Pool) CloseAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	for _, conn := range p.free {
		if err := conn.Close(); err != nil {
			slog.Warn("sqltool: error closing pooled connection", "error", err)
		}
	}
	p.free = nil
	p.cond.Broadcast()
}

// Stats reports current pool occupancy for metrics snapshots (spec §4.7
// "C5 (pool size, waiters)").
type Stats struct {
	Created int
	Free    int
	Busy    int
}

func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{Created: p.created, Free: len(p.free), Busy: p.busy}
}
