package platform

import (
	"context"
	"strconv"
	"strings"

	"github.com/syssam/dbal/dbalerr"
	"github.com/syssam/dbal/types"
)

var sqliteKeywords = buildKeywordSet(
	"ABORT", "ACTION", "ADD", "AFTER", "ALL", "ALTER", "ANALYZE", "AND", "AS",
	"ASC", "ATTACH", "AUTOINCREMENT", "BEFORE", "BEGIN", "BETWEEN", "BY",
	"CASCADE", "CASE", "CAST", "CHECK", "COLLATE", "COLUMN", "COMMIT",
	"CONFLICT", "CONSTRAINT", "CREATE", "CROSS", "CURRENT_DATE",
	"CURRENT_TIME", "CURRENT_TIMESTAMP", "DATABASE", "DEFAULT", "DEFERRABLE",
	"DEFERRED", "DELETE", "DESC", "DETACH", "DISTINCT", "DROP", "EACH",
	"ELSE", "END", "ESCAPE", "EXCEPT", "EXCLUSIVE", "EXISTS", "EXPLAIN",
	"FAIL", "FOR", "FOREIGN", "FROM", "FULL", "GLOB", "GROUP", "HAVING",
	"IF", "IGNORE", "IMMEDIATE", "IN", "INDEX", "INDEXED", "INITIALLY",
	"INNER", "INSERT", "INSTEAD", "INTERSECT", "INTO", "IS", "ISNULL",
	"JOIN", "KEY", "LEFT", "LIKE", "LIMIT", "MATCH", "NATURAL", "NO", "NOT",
	"NOTNULL", "NULL", "OF", "OFFSET", "ON", "OR", "ORDER", "OUTER", "PLAN",
	"PRAGMA", "PRIMARY", "QUERY", "RAISE", "RECURSIVE", "REFERENCES",
	"REGEXP", "REINDEX", "RELEASE", "RENAME", "REPLACE", "RESTRICT", "RIGHT",
	"ROLLBACK", "ROW", "SAVEPOINT", "SELECT", "SET", "TABLE", "TEMP",
	"TEMPORARY", "THEN", "TO", "TRANSACTION", "TRIGGER", "UNION", "UNIQUE",
	"UPDATE", "USING", "VACUUM", "VALUES", "VIEW", "VIRTUAL", "WHEN",
	"WHERE", "WITH", "WITHOUT",
)

var sqliteTypeMappings = map[string]types.Type{
	"boolean": types.Boolean, "bool": types.Boolean,
	"tinyint": types.SmallInt, "smallint": types.SmallInt, "int2": types.SmallInt,
	"mediumint": types.Integer, "int": types.Integer, "integer": types.Integer,
	"bigint": types.BigInt, "int8": types.BigInt, "unsigned big int": types.BigInt,
	"character": types.String, "varchar": types.String, "varying character": types.String,
	"nchar": types.String, "native character": types.String, "nvarchar": types.String, "string": types.String,
	"clob": types.Text, "text": types.Text,
	"blob": types.Blob, "binary": types.Binary,
	"real": types.Float, "double": types.Float, "double precision": types.Float, "float": types.Float,
	"numeric": types.Decimal, "decimal": types.Decimal,
	"date": types.Date, "datetime": types.DateTime, "timestamp": types.DateTime, "time": types.Time,
	"guid": types.GUID,
}

// SQLite implements Platform for SQLite.
type SQLite struct{}

// NewSQLite returns a SQLite platform.
func NewSQLite() *SQLite { return &SQLite{} }

func (p *SQLite) Name() string { return "sqlite" }

func (p *SQLite) IdentifierQuoteChar() byte { return '"' }

func (p *SQLite) QuoteIdentifier(identifier string) string {
	return quoteDotted(identifier, p.IdentifierQuoteChar())
}

func (p *SQLite) QuoteSingleIdentifier(identifier string) string {
	return quoteSingle(identifier, p.IdentifierQuoteChar())
}

// ModifyLimitSQL encodes LIMIT/OFFSET the SQLite way: a bare offset with no
// limit needs "LIMIT -1 OFFSET n", since SQLite has no OFFSET-only syntax.
func (p *SQLite) ModifyLimitSQL(sqlText string, limit, offset *int) (string, error) {
	if limit == nil && offset != nil {
		if *offset < 0 {
			return "", dbalerr.NewInvalidOffsetError(*offset)
		}
		return sqlText + " LIMIT -1 OFFSET " + strconv.Itoa(*offset), nil
	}
	return genericModifyLimitSQL(p.Name(), sqlText, limit, offset)
}

func (p *SQLite) IsLimitOffsetSupported() bool       { return true }
func (p *SQLite) IsSavepointsSupported() bool        { return true }
func (p *SQLite) IsReleaseSavepointsSupported() bool { return true }
func (p *SQLite) IsForeignKeysSupported() bool       { return true }

func (p *SQLite) CreateSavepointSQL(name string) string  { return "SAVEPOINT " + name }
func (p *SQLite) ReleaseSavepointSQL(name string) string  { return "RELEASE SAVEPOINT " + name }
func (p *SQLite) RollbackSavepointSQL(name string) string { return "ROLLBACK TO SAVEPOINT " + name }
func (p *SQLite) DefaultTransactionIsolationLevel() int   { return Serializable }

// SetTransactionIsolationSQL: SQLite has no per-statement isolation syntax;
// it only distinguishes read-uncommitted from everything stricter via the
// read_uncommitted pragma, so ReadCommitted/RepeatableRead/Serializable all
// map onto the same pragma value as the strictest level.
func (p *SQLite) SetTransactionIsolationSQL(level int) (string, error) {
	switch level {
	case ReadUncommitted:
		return "PRAGMA read_uncommitted = 0", nil
	case ReadCommitted, RepeatableRead, Serializable:
		return "PRAGMA read_uncommitted = 1", nil
	default:
		return "", dbalerr.NewInvalidIsolationLevelError(level)
	}
}

func (p *SQLite) TypeMapping(rawType string) (types.Type, error) {
	name, _ := parseColumnType(rawType)
	if name == "" {
		return types.Text, nil
	}
	t, ok := sqliteTypeMappings[name]
	if !ok {
		return "", dbalerr.NewUnknownColumnTypeError(rawType)
	}
	return t, nil
}

func (p *SQLite) Keywords() map[string]bool { return sqliteKeywords }

func (p *SQLite) Databases(ctx context.Context, db Queryer) ([]string, error) {
	rows, err := db.QueryContext(ctx, "PRAGMA database_list")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var seq int
		var name, file string
		if err := rows.Scan(&seq, &name, &file); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func (p *SQLite) Views(ctx context.Context, db Queryer, database string) ([]ViewInfo, error) {
	rows, err := db.QueryContext(ctx, "SELECT name, sql FROM sqlite_master WHERE type = 'view'")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ViewInfo
	for rows.Next() {
		var v ViewInfo
		if err := rows.Scan(&v.Name, &v.SQL); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (p *SQLite) Tables(ctx context.Context, db Queryer, database string) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// TableColumns uses "PRAGMA table_info" and infers Autoincrement from a
// lone INTEGER PRIMARY KEY column, mirroring pydbal's lenient rule rather
// than scanning the table's CREATE TABLE text for the AUTOINCREMENT keyword.
func (p *SQLite) TableColumns(ctx context.Context, db Queryer, table, database string) ([]ColumnInfo, error) {
	rows, err := db.QueryContext(ctx, "PRAGMA table_info("+p.QuoteSingleIdentifier(table)+")")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type raw struct {
		name, colType string
		notNull       bool
		def           *string
		pk            int
	}
	var all []raw
	pkCount := 0
	for rows.Next() {
		var cid int
		var r raw
		if err := rows.Scan(&cid, &r.name, &r.colType, &r.notNull, &r.def, &r.pk); err != nil {
			return nil, err
		}
		if r.pk > 0 {
			pkCount++
		}
		all = append(all, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var out []ColumnInfo
	for _, r := range all {
		baseName, length := parseColumnType(r.colType)
		t, err := p.TypeMapping(r.colType)
		if err != nil {
			return nil, err
		}
		opts := ColumnOptions{NotNull: r.notNull, Default: r.def}
		if length != "" {
			if ps := strings.SplitN(length, ",", 2); len(ps) == 2 {
				opts.Precision, _ = strconv.Atoi(ps[0])
				opts.Scale, _ = strconv.Atoi(ps[1])
			} else if n, err := strconv.Atoi(length); err == nil {
				opts.Length = &n
			}
		}
		if pkCount == 1 && r.pk == 1 && baseName == "integer" {
			opts.Autoincrement = true
		}
		out = append(out, ColumnInfo{Name: r.name, Type: t, Options: opts})
	}
	return out, nil
}

// TableIndexes synthesizes a "PRIMARY" index from the primary key columns
// (SQLite doesn't list it in index_list) ahead of the explicit indexes from
// PRAGMA index_list/index_info.
func (p *SQLite) TableIndexes(ctx context.Context, db Queryer, table, database string) ([]IndexInfo, error) {
	var out []IndexInfo

	pkRows, err := db.QueryContext(ctx, "PRAGMA table_info("+p.QuoteSingleIdentifier(table)+")")
	if err != nil {
		return nil, err
	}
	var pkCols []string
	for pkRows.Next() {
		var cid int
		var name, colType string
		var notNull bool
		var def *string
		var pk int
		if err := pkRows.Scan(&cid, &name, &colType, &notNull, &def, &pk); err != nil {
			pkRows.Close()
			return nil, err
		}
		if pk > 0 {
			pkCols = append(pkCols, name)
		}
	}
	pkRows.Close()
	if len(pkCols) > 0 {
		out = append(out, IndexInfo{Name: "PRIMARY", Columns: pkCols, Unique: true, Primary: true})
	}

	listRows, err := db.QueryContext(ctx, "PRAGMA index_list("+p.QuoteSingleIdentifier(table)+")")
	if err != nil {
		return nil, err
	}
	defer listRows.Close()
	type idxHeader struct {
		name   string
		unique bool
	}
	var headers []idxHeader
	for listRows.Next() {
		var seq int
		var name string
		var unique bool
		var origin, partial string
		if err := listRows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			return nil, err
		}
		headers = append(headers, idxHeader{name: name, unique: unique})
	}
	if err := listRows.Err(); err != nil {
		return nil, err
	}

	for _, h := range headers {
		infoRows, err := db.QueryContext(ctx, "PRAGMA index_info("+p.QuoteSingleIdentifier(h.name)+")")
		if err != nil {
			return nil, err
		}
		var cols []string
		for infoRows.Next() {
			var seqno, cid int
			var name string
			if err := infoRows.Scan(&seqno, &cid, &name); err != nil {
				infoRows.Close()
				return nil, err
			}
			cols = append(cols, name)
		}
		infoRows.Close()
		out = append(out, IndexInfo{Name: h.name, Columns: cols, Unique: h.unique})
	}
	return out, nil
}

func (p *SQLite) TableForeignKeys(ctx context.Context, db Queryer, table, database string) ([]ForeignKeyInfo, error) {
	rows, err := db.QueryContext(ctx, "PRAGMA foreign_key_list("+p.QuoteSingleIdentifier(table)+")")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	order := []int{}
	byID := map[int]*ForeignKeyInfo{}
	for rows.Next() {
		var id, seq int
		var refTable, from, to, onUpdate, onDelete, match string
		if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return nil, err
		}
		fk, ok := byID[id]
		if !ok {
			fk = &ForeignKeyInfo{
				Name:         "fk_" + table + "_" + strconv.Itoa(id),
				ForeignTable: refTable,
			}
			if onUpdate != "" && onUpdate != "NO ACTION" {
				fk.OnUpdate = onUpdate
			}
			if onDelete != "" && onDelete != "NO ACTION" {
				fk.OnDelete = onDelete
			}
			byID[id] = fk
			order = append(order, id)
		}
		fk.LocalColumns = append(fk.LocalColumns, from)
		fk.ForeignColumns = append(fk.ForeignColumns, to)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]ForeignKeyInfo, len(order))
	for i, id := range order {
		out[i] = *byID[id]
	}
	return out, nil
}

var _ Platform = (*SQLite)(nil)
