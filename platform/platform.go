// Package platform renders the SQL text that differs across database
// engines: identifier quoting, LIMIT/OFFSET encoding, savepoint statements,
// isolation level statements, column-type mapping, and schema introspection
// queries. It mirrors pydbal's platforms package.
package platform

import (
	"context"
	"database/sql"
	"regexp"
	"strconv"
	"strings"

	"github.com/syssam/dbal/dbalerr"
	"github.com/syssam/dbal/types"
)

// Queryer is the slice of *sql.DB / *sql.Tx that introspection queries need.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// ColumnOptions carries a column's non-identity, non-type attributes.
type ColumnOptions struct {
	Length        *int
	Precision     int
	Scale         int
	Unsigned      bool
	Fixed         bool
	NotNull       bool
	Default       *string
	Autoincrement bool
	Comment       string
	Collation     string
}

// ColumnInfo is one raw column row as reported by a platform's introspection
// query, before SchemaManager wraps it into a schema.Column.
type ColumnInfo struct {
	Name    string
	Type    types.Type
	Options ColumnOptions
}

// IndexInfo is one raw index row.
type IndexInfo struct {
	Name    string
	Columns []string
	Unique  bool
	Primary bool
	Flags   []string
}

// ForeignKeyInfo is one raw foreign key row.
type ForeignKeyInfo struct {
	Name           string
	LocalColumns   []string
	ForeignTable   string
	ForeignColumns []string
	OnDelete       string
	OnUpdate       string
}

// ViewInfo is one raw view row.
type ViewInfo struct {
	Name string
	SQL  string
}

// Transaction isolation levels; zero means no level has been set.
const (
	ReadUncommitted = iota + 1
	ReadCommitted
	RepeatableRead
	Serializable
)

// Platform is the dialect-specific rendering contract a Connection drives
// its SQLBuilder and SchemaManager through.
type Platform interface {
	Name() string
	IdentifierQuoteChar() byte
	QuoteIdentifier(identifier string) string
	QuoteSingleIdentifier(identifier string) string

	ModifyLimitSQL(sql string, limit, offset *int) (string, error)
	IsLimitOffsetSupported() bool

	IsSavepointsSupported() bool
	IsReleaseSavepointsSupported() bool
	CreateSavepointSQL(name string) string
	ReleaseSavepointSQL(name string) string
	RollbackSavepointSQL(name string) string

	IsForeignKeysSupported() bool

	SetTransactionIsolationSQL(level int) (string, error)
	DefaultTransactionIsolationLevel() int

	TypeMapping(rawType string) (types.Type, error)
	Keywords() map[string]bool

	Databases(ctx context.Context, db Queryer) ([]string, error)
	Views(ctx context.Context, db Queryer, database string) ([]ViewInfo, error)
	Tables(ctx context.Context, db Queryer, database string) ([]string, error)
	TableColumns(ctx context.Context, db Queryer, table, database string) ([]ColumnInfo, error)
	TableIndexes(ctx context.Context, db Queryer, table, database string) ([]IndexInfo, error)
	TableForeignKeys(ctx context.Context, db Queryer, table, database string) ([]ForeignKeyInfo, error)
}

// columnTypeRe parses a raw column type string like "varchar(255)" or
// "decimal(10,2)" into its base name and optional length/precision,scale.
var columnTypeRe = regexp.MustCompile(`^(\w*)\s*(?:\(\s*(\d+(?:,\d+)?)\s*\))?`)

// parseColumnType splits a raw engine type string into its base name and
// optional parenthesized length (or "precision,scale").
func parseColumnType(raw string) (name, length string) {
	m := columnTypeRe.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return strings.ToLower(strings.TrimSpace(raw)), ""
	}
	return strings.ToLower(m[1]), m[2]
}

// commentTypeRe matches the "(DBALType:X)" comment override syntax.
var commentTypeRe = regexp.MustCompile(`\s*\(DBALType:(\w+)\)\s*`)

// TypeFromComment strips a "(DBALType:X)" override out of comment, returning
// the remaining comment text and the overridden type if present, else def.
func TypeFromComment(comment string, def types.Type) (string, types.Type) {
	m := commentTypeRe.FindStringSubmatch(comment)
	if m == nil {
		return comment, def
	}
	return commentTypeRe.ReplaceAllString(comment, ""), types.Type(m[1])
}

func quoteSingle(identifier string, quote byte) string {
	q := string(quote)
	return q + strings.ReplaceAll(identifier, q, q+q) + q
}

func quoteDotted(identifier string, quote byte) string {
	segs := strings.Split(identifier, ".")
	for i, s := range segs {
		segs[i] = quoteSingle(s, quote)
	}
	return strings.Join(segs, ".")
}

// genericModifyLimitSQL is the base/fallback LIMIT/OFFSET encoder: it
// appends "LIMIT n" and/or "OFFSET n" independently, each only if set. Used
// by platforms that have no special-case encoding of their own.
func genericModifyLimitSQL(name string, sqlText string, limit, offset *int) (string, error) {
	if offset != nil && *offset < 0 {
		return "", dbalerr.NewInvalidOffsetError(*offset)
	}
	if limit != nil {
		sqlText += " LIMIT " + strconv.Itoa(*limit)
	}
	if offset != nil {
		sqlText += " OFFSET " + strconv.Itoa(*offset)
	}
	return sqlText, nil
}
