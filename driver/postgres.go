package driver

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
)

// Postgres wraps database/sql with the lib/pq driver.
type Postgres struct {
	base
}

// NewPostgres returns an unconnected Postgres driver.
func NewPostgres() *Postgres {
	return &Postgres{base: base{name: "postgres"}}
}

func (d *Postgres) Connect(ctx context.Context, params ConnectionParams) error {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		params.Host, portOrDefault(params.Port, 5432), params.User, params.Password, params.Database,
	)
	for k, v := range params.Options {
		dsn += fmt.Sprintf(" %s=%s", k, v)
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return err
	}
	d.db = db
	d.database = params.Database
	return nil
}

func (d *Postgres) Clear(ctx context.Context) error { return nil }

func (d *Postgres) EscapeString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (d *Postgres) ErrorCode(err error) (string, bool) {
	var perr *pq.Error
	if asError(err, &perr) {
		return string(perr.Code), true
	}
	return "", false
}

// Placeholder renders Postgres's positional "$N" token, unlike MySQL/SQLite's
// bare repeated "?".
func (d *Postgres) Placeholder(position int) string {
	return "$" + strconv.Itoa(position)
}

func (d *Postgres) ServerVersion(ctx context.Context) (string, error) {
	var v string
	err := d.db.QueryRowContext(ctx, "SHOW server_version").Scan(&v)
	return v, err
}

var _ Driver = (*Postgres)(nil)
