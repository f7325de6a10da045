package driver

import (
	"context"
	"database/sql"

	"github.com/syssam/dbal/statement"
)

// base implements the parts of Driver common to every engine: holding the
// *sql.DB/*sql.Tx pair, running statements against whichever is currently
// open, and iterating the last query's rows. Engine wrappers embed base and
// add their own Connect/EscapeString/ErrorCode/Placeholder/ServerVersion.
type base struct {
	db       *sql.DB
	tx       *sql.Tx
	name     string
	database string
	lastRows *sql.Rows
	lastRes  sql.Result
}

func (b *base) Connected() bool { return b.db != nil }

func (b *base) DB() *sql.DB { return b.db }

func (b *base) Name() string { return b.name }

func (b *base) Database() string { return b.database }

func (b *base) Close() error {
	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	return err
}

func (b *base) execQuerier() ExecQuerier {
	if b.tx != nil {
		return b.tx
	}
	return b.db
}

func (b *base) Exec(ctx context.Context) ExecQuerier { return b.execQuerier() }

func (b *base) BeginTx(ctx context.Context, opts *sql.TxOptions) error {
	tx, err := b.db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}
	b.tx = tx
	return nil
}

func (b *base) Commit() error {
	if b.tx == nil {
		return nil
	}
	err := b.tx.Commit()
	b.tx = nil
	return err
}

func (b *base) Rollback() error {
	if b.tx == nil {
		return nil
	}
	err := b.tx.Rollback()
	b.tx = nil
	return err
}

// Execute runs sqlText as a query (isQuery) or a plain exec, recording the
// affected row count (or, for a query, leaving the cursor for Iterate).
func (b *base) Execute(ctx context.Context, sqlText string, isQuery bool, params ...any) (int64, error) {
	eq := b.execQuerier()
	if isQuery {
		rows, err := eq.QueryContext(ctx, sqlText, params...)
		if err != nil {
			return 0, err
		}
		b.lastRows = rows
		b.lastRes = nil
		return 0, nil
	}
	res, err := eq.ExecContext(ctx, sqlText, params...)
	if err != nil {
		return 0, err
	}
	b.lastRes = res
	b.lastRows = nil
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (b *base) Iterate(ctx context.Context) (statement.RowIterator, error) {
	if b.lastRows == nil {
		return nil, sql.ErrNoRows
	}
	rows := b.lastRows
	b.lastRows = nil
	return newSQLRowIterator(rows)
}

// LastInsertID returns the last exec's auto-generated id, where the driver
// supports it (Postgres callers should use a RETURNING clause instead).
func (b *base) LastInsertID() (int64, error) {
	if b.lastRes == nil {
		return 0, nil
	}
	return b.lastRes.LastInsertId()
}
