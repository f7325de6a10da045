// Package pool provides a thread-safe, bounded pool of dbal Connections. A
// caller acquires a connection, uses it, and releases it; when the pool is
// at capacity, Acquire blocks until a connection is released rather than
// busy-polling.
package pool

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/syssam/dbal"
	"github.com/syssam/dbal/driver"
)

// Pool hands out *dbal.Connection values drawn from a fixed-size set opened
// up front against the same dialect and parameters.
type Pool struct {
	sem   *semaphore.Weighted
	mu    sync.Mutex
	idle  []*dbal.Connection
	all   []*dbal.Connection
}

// Open creates size connections to dialectName using params and returns a
// Pool ready to Acquire from.
func Open(ctx context.Context, dialectName string, params driver.ConnectionParams, size int) (*Pool, error) {
	p := &Pool{sem: semaphore.NewWeighted(int64(size))}
	for i := 0; i < size; i++ {
		conn, err := dbal.Open(ctx, dialectName, params)
		if err != nil {
			p.Close()
			return nil, err
		}
		p.all = append(p.all, conn)
		p.idle = append(p.idle, conn)
	}
	return p, nil
}

// Acquire blocks (respecting ctx) until a connection is available, then
// removes it from the idle set and returns it. The caller must Release it
// when done.
func (p *Pool) Acquire(ctx context.Context) (*dbal.Connection, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	p.mu.Lock()
	conn := p.idle[len(p.idle)-1]
	p.idle = p.idle[:len(p.idle)-1]
	p.mu.Unlock()
	return conn, nil
}

// Release returns conn to the idle set, waking one blocked Acquire if any.
func (p *Pool) Release(conn *dbal.Connection) {
	p.mu.Lock()
	p.idle = append(p.idle, conn)
	p.mu.Unlock()
	p.sem.Release(1)
}

// With acquires a connection, runs fn with it, and releases it even if fn panics.
func (p *Pool) With(ctx context.Context, fn func(conn *dbal.Connection) error) error {
	conn, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer p.Release(conn)
	return fn(conn)
}

// Query acquires a connection, runs sqlText as a query, and releases the
// connection once the statement's rows have been returned; callers should
// drain and Close the statement promptly since the connection is already
// back in the idle set.
func (p *Pool) Query(ctx context.Context, sqlText string, params map[any]any) (result any, err error) {
	err = p.With(ctx, func(conn *dbal.Connection) error {
		stmt, qerr := conn.Query(ctx, sqlText, params)
		if qerr != nil {
			return qerr
		}
		result = stmt
		return nil
	})
	return result, err
}

// Execute acquires a connection and runs sqlText as a statement, returning
// the affected row count.
func (p *Pool) Execute(ctx context.Context, sqlText string, params map[any]any) (int64, error) {
	var n int64
	err := p.With(ctx, func(conn *dbal.Connection) error {
		var execErr error
		n, execErr = conn.Execute(ctx, sqlText, params)
		return execErr
	})
	return n, err
}

// Insert acquires a connection and runs an INSERT into table.
func (p *Pool) Insert(ctx context.Context, table string, values map[string]any) (int64, error) {
	var id int64
	err := p.With(ctx, func(conn *dbal.Connection) error {
		var insErr error
		id, insErr = conn.Insert(ctx, table, values)
		return insErr
	})
	return id, err
}

// Update acquires a connection and runs an UPDATE of table.
func (p *Pool) Update(ctx context.Context, table string, values map[string]any, where any) (int64, error) {
	var n int64
	err := p.With(ctx, func(conn *dbal.Connection) error {
		var updErr error
		n, updErr = conn.Update(ctx, table, values, where)
		return updErr
	})
	return n, err
}

// Delete acquires a connection and runs a DELETE from table.
func (p *Pool) Delete(ctx context.Context, table string, where any) (int64, error) {
	var n int64
	err := p.With(ctx, func(conn *dbal.Connection) error {
		var delErr error
		n, delErr = conn.Delete(ctx, table, where)
		return delErr
	})
	return n, err
}

// Transaction acquires a connection and runs fn inside a transaction on it.
func (p *Pool) Transaction(ctx context.Context, fn func(ctx context.Context, conn *dbal.Connection) error) error {
	return p.With(ctx, func(conn *dbal.Connection) error {
		return conn.Transaction(ctx, func(ctx context.Context) error { return fn(ctx, conn) })
	})
}

// Close closes every connection the pool opened, combining any close errors
// with dbal.NewAggregateError (nil for none, the error itself for one, an
// AggregateError for several).
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var errs []error
	for _, conn := range p.all {
		if err := conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	p.all = nil
	p.idle = nil
	return dbal.NewAggregateError(errs...)
}

// Len returns the number of connections currently idle (available to Acquire).
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}
