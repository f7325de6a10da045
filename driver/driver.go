// Package driver adapts database/sql and its third-party drivers to the
// narrow capability surface a Connection needs: executing statements,
// iterating query results, escaping literals, and reporting engine error
// codes. It mirrors pydbal's drivers package, one file per engine.
package driver

import (
	"context"
	"database/sql"

	"github.com/syssam/dbal/statement"
)

// ConnectionParams holds the connection target; it does not name the
// engine. Fields not used by a given engine are ignored (SQLite only reads
// Path).
type ConnectionParams struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	Path     string // SQLite file path, or ":memory:"
	Options  map[string]string
}

// Driver is the capability contract each engine-specific wrapper implements
// over a *sql.DB / *sql.Tx, satisfying statement.RowSource and exposing the
// introspection/transaction primitives a Connection drives.
type Driver interface {
	statement.RowSource

	Connect(ctx context.Context, params ConnectionParams) error
	Close() error
	Connected() bool
	// Clear drops and reopens the underlying connection, used to recover
	// from a lost server-side connection (MySQL) or as a no-op (SQLite,
	// Postgres) where there is nothing to recover.
	Clear(ctx context.Context) error

	BeginTx(ctx context.Context, opts *sql.TxOptions) error
	Commit() error
	Rollback() error
	Exec(ctx context.Context) ExecQuerier
	LastInsertID() (int64, error)

	EscapeString(s string) string
	ErrorCode(err error) (code string, ok bool)

	Name() string
	ServerVersion(ctx context.Context) (string, error)
	Database() string

	// DB exposes the underlying *sql.DB for platform introspection queries.
	DB() *sql.DB
}

// ExecQuerier is the slice of *sql.DB/*sql.Tx a statement or platform query
// runs against, chosen based on whether a transaction is currently open.
type ExecQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// sqlRowIterator adapts *sql.Rows to statement.RowIterator.
type sqlRowIterator struct {
	rows *sql.Rows
	cols []string
}

func newSQLRowIterator(rows *sql.Rows) (*sqlRowIterator, error) {
	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, err
	}
	return &sqlRowIterator{rows: rows, cols: cols}, nil
}

func (it *sqlRowIterator) Next() (statement.Row, bool, error) {
	if !it.rows.Next() {
		return nil, false, it.rows.Err()
	}
	values := make([]any, len(it.cols))
	ptrs := make([]any, len(it.cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := it.rows.Scan(ptrs...); err != nil {
		return nil, false, err
	}
	row := make(statement.Row, len(it.cols))
	for i, name := range it.cols {
		row[i] = statement.NamedValue{Name: name, Value: values[i]}
	}
	return row, true, nil
}

func (it *sqlRowIterator) Close() error { return it.rows.Close() }
