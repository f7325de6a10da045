package driver

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	mysqldriver "github.com/go-sql-driver/mysql"
)

// Lost-connection error numbers MySQL raises on an idle/killed connection;
// a retry after Clear+reconnect succeeds once the pool hands back a fresh
// connection.
const (
	mysqlErrServerGone  = 2006
	mysqlErrLostConn    = 2013
	mysqlErrLostConnSSL = 2055
)

// MySQL wraps database/sql with the go-sql-driver/mysql driver.
type MySQL struct {
	base
	dsn string
}

// NewMySQL returns an unconnected MySQL driver.
func NewMySQL() *MySQL {
	return &MySQL{base: base{name: "mysql"}}
}

func (d *MySQL) Connect(ctx context.Context, params ConnectionParams) error {
	cfg := mysqldriver.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", params.Host, portOrDefault(params.Port, 3306))
	cfg.User = params.User
	cfg.Passwd = params.Password
	cfg.DBName = params.Database
	cfg.ParseTime = true
	cfg.Params = params.Options

	dsn := cfg.FormatDSN()
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return err
	}
	d.db = db
	d.dsn = dsn
	d.database = params.Database
	return nil
}

// Clear drops the pooled connection and reopens it against the same DSN,
// used after a lost-connection error during Execute.
func (d *MySQL) Clear(ctx context.Context) error {
	if d.db != nil {
		d.db.Close()
	}
	db, err := sql.Open("mysql", d.dsn)
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return err
	}
	d.db = db
	return nil
}

func (d *MySQL) isLostConnection(err error) bool {
	var merr *mysqldriver.MySQLError
	if asError(err, &merr) {
		switch merr.Number {
		case mysqlErrServerGone, mysqlErrLostConn, mysqlErrLostConnSSL:
			return true
		}
	}
	return false
}

// Execute retries once, after Clear, on a lost-connection error — mirroring
// pydbal's drivers/mysql.py reconnect behavior.
func (d *MySQL) Execute(ctx context.Context, sqlText string, isQuery bool, params ...any) (int64, error) {
	n, err := d.base.Execute(ctx, sqlText, isQuery, params...)
	if err != nil && d.isLostConnection(err) && d.tx == nil {
		if clearErr := d.Clear(ctx); clearErr == nil {
			return d.base.Execute(ctx, sqlText, isQuery, params...)
		}
	}
	return n, err
}

func (d *MySQL) EscapeString(s string) string {
	var b strings.Builder
	b.WriteByte('\'')
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\'', '\\', '\x00', '\n', '\r', '\x1a':
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	b.WriteByte('\'')
	return b.String()
}

func (d *MySQL) ErrorCode(err error) (string, bool) {
	var merr *mysqldriver.MySQLError
	if asError(err, &merr) {
		return fmt.Sprintf("%d", merr.Number), true
	}
	return "", false
}

func (d *MySQL) Placeholder(position int) string { return "?" }

func (d *MySQL) ServerVersion(ctx context.Context) (string, error) {
	var v string
	err := d.db.QueryRowContext(ctx, "SELECT VERSION()").Scan(&v)
	return v, err
}

func portOrDefault(port, def int) int {
	if port == 0 {
		return def
	}
	return port
}

// asError is a small errors.As wrapper kept local to avoid importing
// "errors" into every engine file for one call each.
func asError[T any](err error, target *T) bool {
	for err != nil {
		if t, ok := err.(T); ok {
			*target = t
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

var _ Driver = (*MySQL)(nil)
