// Package dbal is a fluent, multi-engine database abstraction layer: a SQL
// builder, a connection manager with nested-transaction/savepoint support,
// a statement layer that normalizes placeholders and row shapes, schema
// introspection, and a bounded connection pool. It mirrors pydbal's
// connection.Connection, re-architected around Go's database/sql.
package dbal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/syssam/dbal/builder"
	"github.com/syssam/dbal/dbalerr"
	"github.com/syssam/dbal/dialect"
	"github.com/syssam/dbal/driver"
	"github.com/syssam/dbal/platform"
	"github.com/syssam/dbal/schema"
	"github.com/syssam/dbal/statement"
)

// NewDriver constructs a driver.Driver for a dialect name.
type NewDriver func() driver.Driver

// NewPlatform constructs a platform.Platform for a dialect name.
type NewPlatform func() platform.Platform

var drivers = map[string]NewDriver{
	dialect.MySQL:    func() driver.Driver { return driver.NewMySQL() },
	dialect.SQLite:   func() driver.Driver { return driver.NewSQLite() },
	dialect.Postgres: func() driver.Driver { return driver.NewPostgres() },
}

var platforms = map[string]NewPlatform{
	dialect.MySQL:    func() platform.Platform { return platform.NewMySQL() },
	dialect.SQLite:   func() platform.Platform { return platform.NewSQLite() },
	dialect.Postgres: func() platform.Platform { return platform.NewPostgres() },
}

func knownDialects() []string {
	out := make([]string, 0, len(drivers))
	for name := range drivers {
		out = append(out, name)
	}
	return out
}

// RegisterDriver adds or overrides the driver/platform pair used for a
// dialect name, letting callers plug in a fake driver for tests.
func RegisterDriver(name string, newDriver NewDriver, newPlatform NewPlatform) {
	drivers[name] = newDriver
	platforms[name] = newPlatform
}

const savepointPrefix = "PYDBAL_SAVEPOINT_"

// Connection wraps one underlying driver connection with dbal's nested
// transaction/savepoint state machine, a SQL builder factory, a statement
// runner, and schema introspection. It is not safe for concurrent use by
// multiple goroutines; pool.Pool exists for that.
type Connection struct {
	drv      driver.Driver
	platform platform.Platform
	expr     *builder.ExpressionBuilder
	schema   *schema.Manager
	cache    Cache
	stats    QueryStats
	logger   *slog.Logger
	traceID  string

	mu                 sync.Mutex
	nesting            int
	rollbackOnly       bool
	autoCommit         bool
	nestWithSavepoints bool
	isolationLevel     int
	fetchMode          statement.FetchMode
}

// Open connects to dialectName using params and returns a ready Connection.
func Open(ctx context.Context, dialectName string, params driver.ConnectionParams) (*Connection, error) {
	newDriver, ok := drivers[dialectName]
	if !ok {
		return nil, dbalerr.NewUnknownDriverError(dialectName, knownDialects())
	}
	newPlatform, ok := platforms[dialectName]
	if !ok {
		return nil, dbalerr.NewUnknownDriverError(dialectName, knownDialects())
	}

	d := newDriver()
	if err := d.Connect(ctx, params); err != nil {
		return nil, dbalerr.NewDriverError(dialectName, err)
	}
	p := newPlatform()

	traceID := uuid.NewString()
	c := &Connection{
		drv:        d,
		platform:   p,
		expr:       builder.New(func(v string) string { return d.EscapeString(v) }),
		autoCommit: true,
		fetchMode:  statement.FetchDefault,
		logger:     slog.Default().With("conn", traceID, "dialect", dialectName),
		traceID:    traceID,
	}
	c.schema = schema.New(p, d.DB(), d.Database())
	return c, nil
}

// SetCache installs a result cache; nil disables caching.
func (c *Connection) SetCache(cache Cache) { c.cache = cache }

// Platform returns the connection's dialect-specific SQL renderer.
func (c *Connection) Platform() platform.Platform { return c.platform }

// Schema returns the connection's schema introspection manager.
func (c *Connection) Schema() *schema.Manager { return c.schema }

// Stats returns a snapshot of the connection's query counters.
func (c *Connection) Stats() StatsSnapshot { return c.stats.Snapshot() }

// SetFetchMode changes the default row shape new builders/statements fetch into.
func (c *Connection) SetFetchMode(mode statement.FetchMode) { c.fetchMode = mode }

// Close releases the underlying driver connection.
func (c *Connection) Close() error {
	return c.drv.Close()
}

// Builder returns a fresh SQLBuilder bound to this connection, ready for
// Select/Insert/Update/Delete.
func (c *Connection) Builder() *builder.SQLBuilder {
	return builder.New(c.platform, c.expr, c)
}

// Expr returns the connection's expression builder, for constructing
// condition fragments outside of a SQLBuilder chain.
func (c *Connection) Expr() *builder.ExpressionBuilder { return c.expr }

// QueryParams implements builder.Executor: it runs sql as a query and
// returns the resulting *statement.Statement.
func (c *Connection) QueryParams(ctx context.Context, sqlText string, params map[any]any) (builder.Rows, error) {
	stmt, err := c.query(ctx, sqlText, params)
	if err != nil {
		return nil, err
	}
	return stmt, nil
}

// ExecuteParams implements builder.Executor: it runs sql as a statement and
// returns the affected row count.
func (c *Connection) ExecuteParams(ctx context.Context, sqlText string, params map[any]any) (int64, error) {
	stmt, err := c.exec(ctx, sqlText, params)
	if err != nil {
		return 0, err
	}
	return stmt.RowsAffected(), nil
}

// LastInsertID implements builder.Executor.
func (c *Connection) LastInsertID() (int64, error) { return c.drv.LastInsertID() }

func (c *Connection) query(ctx context.Context, sqlText string, params map[any]any) (*statement.Statement, error) {
	start := time.Now()
	stmt := statement.New(c.drv, c.fetchMode)
	result, err := stmt.Execute(ctx, sqlText, params, true)
	c.stats.recordQuery(time.Since(start), err)
	if err != nil {
		return nil, c.wrapStatementError(sqlText, params, err)
	}
	return result, nil
}

func (c *Connection) exec(ctx context.Context, sqlText string, params map[any]any) (*statement.Statement, error) {
	start := time.Now()
	stmt := statement.New(c.drv, c.fetchMode)
	result, err := stmt.Execute(ctx, sqlText, params, false)
	c.stats.recordExec(time.Since(start), err)
	if err != nil {
		return nil, c.wrapStatementError(sqlText, params, err)
	}
	return result, nil
}

func (c *Connection) wrapStatementError(sqlText string, params map[any]any, err error) error {
	args := make([]any, 0, len(params))
	for _, v := range params {
		args = append(args, v)
	}
	if dbalerr.IsConstraintError(err) {
		c.logger.Warn("constraint violation", "sql", sqlText, "error", err)
		return NewConstraintError(err.Error(), dbalerr.NewExecuteError(c.drv.Name(), err, sqlText, args))
	}
	c.logger.Error("statement failed", "sql", sqlText, "error", err)
	return dbalerr.NewExecuteError(c.drv.Name(), err, sqlText, args)
}

// Query runs a raw SELECT-shaped sqlText with positional/named params,
// returning the resulting Statement for Fetch/FetchAll.
func (c *Connection) Query(ctx context.Context, sqlText string, params map[any]any) (*statement.Statement, error) {
	return c.query(ctx, sqlText, params)
}

// CachedQuery runs sqlText like Query, but serves the row set out of the
// connection's Cache (if one is set via SetCache) when a fresh copy is
// already stored under key, and stores a fresh copy for ttl otherwise. With
// no Cache installed it behaves exactly like Query followed by FetchAll in
// dict mode.
func (c *Connection) CachedQuery(ctx context.Context, key CacheKey, sqlText string, params map[any]any, ttl time.Duration) ([]map[string]any, error) {
	if c.cache != nil {
		if raw, err := c.cache.Get(ctx, key.String()); err == nil && raw != nil {
			var rows []map[string]any
			if err := json.Unmarshal(raw, &rows); err == nil {
				return rows, nil
			}
		}
	}

	dictMode := statement.FetchDict
	stmt, err := c.query(ctx, sqlText, params)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()
	values, err := stmt.FetchAll(&dictMode, 0)
	if err != nil {
		return nil, err
	}
	rows := make([]map[string]any, len(values))
	for i, v := range values {
		rows[i] = v.(map[string]any)
	}

	if c.cache != nil {
		if raw, err := json.Marshal(rows); err == nil {
			_ = c.cache.Set(ctx, key.String(), raw, ttl)
		}
	}
	return rows, nil
}

// Execute runs a raw DML sqlText with positional/named params, returning the
// affected row count.
func (c *Connection) Execute(ctx context.Context, sqlText string, params map[any]any) (int64, error) {
	stmt, err := c.exec(ctx, sqlText, params)
	if err != nil {
		return 0, err
	}
	return stmt.RowsAffected(), nil
}

// Insert builds and runs an INSERT into table with the given column/value
// pairs bound as positional parameters.
func (c *Connection) Insert(ctx context.Context, table string, values map[string]any) (int64, error) {
	b := c.Builder().Insert(table)
	cols := make([]string, 0, len(values))
	for col := range values {
		cols = append(cols, col)
	}
	// The INSERT column list is rendered sorted, so bind in that same order.
	sort.Strings(cols)
	for _, col := range cols {
		ph := b.CreatePositionalParameter(values[col])
		b.SetValue(col, ph)
	}
	res, err := b.Execute(ctx)
	if err != nil {
		return 0, err
	}
	return res.(int64), nil
}

// Update builds and runs an UPDATE of table's columns matching where,
// binding values positionally. where is added to the builder as given; no
// parameters are bound for it.
func (c *Connection) Update(ctx context.Context, table string, values map[string]any, where any) (int64, error) {
	b := c.Builder().Update(table, "")
	for col, val := range values {
		ph := b.CreatePositionalParameter(val)
		b.Set(col, ph)
	}
	if where != nil {
		b.Where(where)
	}
	res, err := b.Execute(ctx)
	if err != nil {
		return 0, err
	}
	return res.(int64), nil
}

// Delete builds and runs a DELETE from table matching where.
func (c *Connection) Delete(ctx context.Context, table string, where any) (int64, error) {
	b := c.Builder().Delete(table, "")
	if where != nil {
		b.Where(where)
	}
	res, err := b.Execute(ctx)
	if err != nil {
		return 0, err
	}
	return res.(int64), nil
}

// IsAutoCommit reports whether statements run outside an explicit
// transaction commit immediately (the default).
func (c *Connection) IsAutoCommit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.autoCommit
}

// SetAutoCommit toggles auto-commit mode.
func (c *Connection) SetAutoCommit(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.autoCommit = on
}

// IsTransactionActive reports whether a transaction (possibly nested) is open.
func (c *Connection) IsTransactionActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nesting > 0
}

// IsRollbackOnly reports whether the current transaction has been marked
// for rollback-only (a nested rollback that could not physically roll back).
func (c *Connection) IsRollbackOnly() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rollbackOnly
}

// SetRollbackOnly marks the current transaction so that Commit fails until
// the whole transaction unwinds via Rollback.
func (c *Connection) SetRollbackOnly() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.nesting == 0 {
		return dbalerr.NewNoActiveTransactionError()
	}
	c.rollbackOnly = true
	return nil
}

// GetNestTransactionsWithSavepoints reports whether nested BeginTransaction
// calls create a savepoint rather than just incrementing the nesting level.
func (c *Connection) GetNestTransactionsWithSavepoints() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nestWithSavepoints
}

// SetNestTransactionsWithSavepoints enables or disables savepoint-backed
// nesting. It fails if a transaction is already active or the platform has
// no savepoint support.
func (c *Connection) SetNestTransactionsWithSavepoints(on bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.nesting > 0 {
		return dbalerr.NewMayNotAlterNestedTransactionWithSavepointsError()
	}
	if on && !c.platform.IsSavepointsSupported() {
		return dbalerr.NewSavepointsNotSupportedError()
	}
	c.nestWithSavepoints = on
	return nil
}

// GetTransactionIsolation returns the isolation level that will be (or was)
// set for the next transaction.
func (c *Connection) GetTransactionIsolation() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isolationLevel == 0 {
		return c.platform.DefaultTransactionIsolationLevel()
	}
	return c.isolationLevel
}

// SetTransactionIsolation sets level and issues the platform's isolation
// statement immediately.
func (c *Connection) SetTransactionIsolation(ctx context.Context, level int) error {
	sqlText, err := c.platform.SetTransactionIsolationSQL(level)
	if err != nil {
		return err
	}
	if _, err := c.drv.Exec(ctx).ExecContext(ctx, sqlText); err != nil {
		return err
	}
	c.mu.Lock()
	c.isolationLevel = level
	c.mu.Unlock()
	return nil
}

func (c *Connection) savepointName(level int) string {
	return fmt.Sprintf("%s%d", savepointPrefix, level)
}

func (c *Connection) execRaw(ctx context.Context, sqlText string) error {
	_, err := c.drv.Exec(ctx).ExecContext(ctx, sqlText)
	return err
}

// CreateSavepoint issues a SAVEPOINT statement under name.
func (c *Connection) CreateSavepoint(ctx context.Context, name string) error {
	if !c.platform.IsSavepointsSupported() {
		return dbalerr.NewSavepointsNotSupportedError()
	}
	return c.execRaw(ctx, c.platform.CreateSavepointSQL(name))
}

// ReleaseSavepoint issues a RELEASE SAVEPOINT statement for name.
func (c *Connection) ReleaseSavepoint(ctx context.Context, name string) error {
	if !c.platform.IsSavepointsSupported() {
		return dbalerr.NewSavepointsNotSupportedError()
	}
	if !c.platform.IsReleaseSavepointsSupported() {
		return nil
	}
	return c.execRaw(ctx, c.platform.ReleaseSavepointSQL(name))
}

// RollbackSavepoint issues a ROLLBACK TO SAVEPOINT statement for name.
func (c *Connection) RollbackSavepoint(ctx context.Context, name string) error {
	if !c.platform.IsSavepointsSupported() {
		return dbalerr.NewSavepointsNotSupportedError()
	}
	return c.execRaw(ctx, c.platform.RollbackSavepointSQL(name))
}

// BeginTransaction opens a new transaction, or -- if one is already active
// and savepoint nesting is enabled -- a nested savepoint. Each call must be
// matched by exactly one Commit or Rollback.
func (c *Connection) BeginTransaction(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.nesting == 0 {
		if err := c.drv.BeginTx(ctx, isolationTxOptions(c.isolationLevel)); err != nil {
			return err
		}
	} else if c.nestWithSavepoints {
		if err := c.CreateSavepoint(ctx, c.savepointName(c.nesting+1)); err != nil {
			return err
		}
	}
	c.nesting++
	c.logger.Debug("transaction begin", "nesting", c.nesting)
	return nil
}

// Commit ends the innermost transaction level. If this is the outermost
// level it commits to the database; if nesting with savepoints, it releases
// the current savepoint; otherwise it is a no-op decrement (the driver
// commit happens only when the outermost Commit runs).
func (c *Connection) Commit(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.nesting == 0 {
		return dbalerr.NewNoActiveTransactionError()
	}
	if c.rollbackOnly {
		return dbalerr.NewCommitFailedRollbackOnlyError()
	}

	if c.nesting == 1 {
		if err := c.drv.Commit(); err != nil {
			return err
		}
	} else if c.nestWithSavepoints {
		if err := c.ReleaseSavepoint(ctx, c.savepointName(c.nesting)); err != nil {
			return err
		}
	}
	c.nesting--
	if c.nesting == 0 {
		c.rollbackOnly = false
	}
	c.logger.Debug("transaction commit", "nesting", c.nesting)
	return nil
}

// CommitAll commits every open nesting level, innermost first.
func (c *Connection) CommitAll(ctx context.Context) error {
	for c.IsTransactionActive() {
		if err := c.Commit(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Rollback undoes the innermost transaction level. At the outermost level
// it rolls back to the database. At a nested level with savepoints enabled
// it rolls back to that level's savepoint. At a nested level without
// savepoints, the whole transaction cannot be partially undone, so it is
// marked rollback-only until the outermost Rollback runs.
func (c *Connection) Rollback(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.nesting == 0 {
		return dbalerr.NewNoActiveTransactionError()
	}

	if c.nesting == 1 {
		if err := c.drv.Rollback(); err != nil {
			return err
		}
		c.nesting = 0
		c.rollbackOnly = false
	} else if c.nestWithSavepoints {
		if err := c.RollbackSavepoint(ctx, c.savepointName(c.nesting)); err != nil {
			return err
		}
		c.nesting--
	} else {
		c.rollbackOnly = true
		c.nesting--
	}
	c.logger.Debug("transaction rollback", "nesting", c.nesting)
	return nil
}

// Transaction runs fn inside BeginTransaction/Commit, rolling back when fn
// returns an error or panics. If that rollback itself fails, Transaction
// returns a RollbackError wrapping the rollback's error; fn's error (or the
// panic) is then not passed on.
func (c *Connection) Transaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if err := c.BeginTransaction(ctx); err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			if rbErr := c.Rollback(ctx); rbErr != nil {
				err = &RollbackError{Err: rbErr}
				return
			}
			panic(p)
		}
	}()

	if err := fn(ctx); err != nil {
		if rbErr := c.Rollback(ctx); rbErr != nil {
			return &RollbackError{Err: rbErr}
		}
		return err
	}
	return c.Commit(ctx)
}

// isolationTxOptions maps dbal's platform-agnostic isolation level constants
// onto database/sql's sql.IsolationLevel for driver.BeginTx.
func isolationTxOptions(level int) *sql.TxOptions {
	switch level {
	case platform.ReadUncommitted:
		return &sql.TxOptions{Isolation: sql.LevelReadUncommitted}
	case platform.ReadCommitted:
		return &sql.TxOptions{Isolation: sql.LevelReadCommitted}
	case platform.RepeatableRead:
		return &sql.TxOptions{Isolation: sql.LevelRepeatableRead}
	case platform.Serializable:
		return &sql.TxOptions{Isolation: sql.LevelSerializable}
	default:
		return nil
	}
}
