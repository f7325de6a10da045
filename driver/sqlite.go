package driver

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sqlitedriver "modernc.org/sqlite"
)

// SQLite wraps database/sql with the modernc.org/sqlite driver.
type SQLite struct {
	base
}

// NewSQLite returns an unconnected SQLite driver.
func NewSQLite() *SQLite {
	return &SQLite{base: base{name: "sqlite"}}
}

func (d *SQLite) Connect(ctx context.Context, params ConnectionParams) error {
	path := params.Path
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return err
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return err
	}
	d.db = db
	d.database = path
	return nil
}

// Clear is a no-op for SQLite: there is no server-side connection to lose.
func (d *SQLite) Clear(ctx context.Context) error { return nil }

func (d *SQLite) EscapeString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (d *SQLite) ErrorCode(err error) (string, bool) {
	var serr *sqlitedriver.Error
	if asError(err, &serr) {
		return fmt.Sprintf("%d", serr.Code()), true
	}
	return "", false
}

func (d *SQLite) Placeholder(position int) string { return "?" }

func (d *SQLite) ServerVersion(ctx context.Context) (string, error) {
	var v string
	err := d.db.QueryRowContext(ctx, "SELECT sqlite_version()").Scan(&v)
	return v, err
}

var _ Driver = (*SQLite)(nil)
