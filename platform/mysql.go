package platform

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/syssam/dbal/dbalerr"
	"github.com/syssam/dbal/types"
)

// MySQL reserved words, stored in uppercase.
var mysqlKeywords = buildKeywordSet(
	"ACCESSIBLE", "ADD", "ALL", "ALTER", "ANALYZE", "AND", "AS", "ASC", "ASENSITIVE",
	"BEFORE", "BETWEEN", "BIGINT", "BINARY", "BLOB", "BOTH", "BY", "CALL", "CASCADE",
	"CASE", "CHANGE", "CHAR", "CHARACTER", "CHECK", "COLLATE", "COLUMN", "CONDITION",
	"CONSTRAINT", "CONTINUE", "CONVERT", "CREATE", "CROSS", "CURRENT_DATE",
	"CURRENT_TIME", "CURRENT_TIMESTAMP", "CURRENT_USER", "CURSOR", "DATABASE",
	"DATABASES", "DAY_HOUR", "DAY_MICROSECOND", "DAY_MINUTE", "DAY_SECOND", "DEC",
	"DECIMAL", "DECLARE", "DEFAULT", "DELAYED", "DELETE", "DESC", "DESCRIBE",
	"DETERMINISTIC", "DISTINCT", "DISTINCTROW", "DIV", "DOUBLE", "DROP", "DUAL",
	"EACH", "ELSE", "ELSEIF", "ENCLOSED", "ESCAPED", "EXISTS", "EXIT", "EXPLAIN",
	"FALSE", "FETCH", "FLOAT", "FLOAT4", "FLOAT8", "FOR", "FORCE", "FOREIGN", "FROM",
	"FULLTEXT", "GRANT", "GROUP", "HAVING", "HIGH_PRIORITY", "HOUR_MICROSECOND",
	"HOUR_MINUTE", "HOUR_SECOND", "IF", "IGNORE", "IN", "INDEX", "INFILE", "INNER",
	"INOUT", "INSENSITIVE", "INSERT", "INT", "INT1", "INT2", "INT3", "INT4", "INT8",
	"INTEGER", "INTERVAL", "INTO", "IS", "ITERATE", "JOIN", "KEY", "KEYS", "KILL",
	"LEADING", "LEAVE", "LEFT", "LIKE", "LIMIT", "LINEAR", "LINES", "LOAD",
	"LOCALTIME", "LOCALTIMESTAMP", "LOCK", "LONG", "LONGBLOB", "LONGTEXT", "LOOP",
	"LOW_PRIORITY", "MATCH", "MEDIUMBLOB", "MEDIUMINT", "MEDIUMTEXT", "MIDDLEINT",
	"MINUTE_MICROSECOND", "MINUTE_SECOND", "MOD", "MODIFIES", "NATURAL", "NOT",
	"NO_WRITE_TO_BINLOG", "NULL", "NUMERIC", "ON", "OPTIMIZE", "OPTION",
	"OPTIONALLY", "OR", "ORDER", "OUT", "OUTER", "OUTFILE", "PRECISION", "PRIMARY",
	"PROCEDURE", "PURGE", "RANGE", "READ", "READS", "READ_WRITE", "REAL",
	"REFERENCES", "REGEXP", "RELEASE", "RENAME", "REPEAT", "REPLACE", "REQUIRE",
	"RESTRICT", "RETURN", "REVOKE", "RIGHT", "RLIKE", "SCHEMA", "SCHEMAS",
	"SECOND_MICROSECOND", "SELECT", "SENSITIVE", "SEPARATOR", "SET", "SHOW",
	"SMALLINT", "SPATIAL", "SPECIFIC", "SQL", "SQLEXCEPTION", "SQLSTATE",
	"SQLWARNING", "SQL_BIG_RESULT", "SQL_CALC_FOUND_ROWS", "SQL_SMALL_RESULT",
	"SSL", "STARTING", "STRAIGHT_JOIN", "TABLE", "TERMINATED", "THEN", "TINYBLOB",
	"TINYINT", "TINYTEXT", "TO", "TRAILING", "TRIGGER", "TRUE", "UNDO", "UNION",
	"UNIQUE", "UNLOCK", "UNSIGNED", "UPDATE", "USAGE", "USE", "USING", "UTC_DATE",
	"UTC_TIME", "UTC_TIMESTAMP", "VALUES", "VARBINARY", "VARCHAR", "VARCHARACTER",
	"VARYING", "WHEN", "WHERE", "WHILE", "WITH", "WRITE", "XOR", "YEAR_MONTH",
	"ZEROFILL", "GENERAL", "IGNORE_SERVER_IDS", "MASTER_HEARTBEAT_PERIOD",
	"MAXVALUE", "RESIGNAL", "SIGNAL", "SLOW",
)

var mysqlTypeMappings = map[string]types.Type{
	"tinyint": types.Boolean, "smallint": types.SmallInt, "mediumint": types.Integer,
	"int": types.Integer, "integer": types.Integer, "bigint": types.BigInt,
	"tinytext": types.Text, "mediumtext": types.Text, "longtext": types.Text, "text": types.Text,
	"varchar": types.String, "string": types.String, "char": types.String,
	"date": types.Date, "datetime": types.DateTime, "timestamp": types.DateTime, "time": types.Time,
	"float": types.Float, "double": types.Float, "real": types.Float,
	"decimal": types.Decimal, "numeric": types.Decimal, "year": types.Date,
	"longblob": types.Blob, "blob": types.Blob, "mediumblob": types.Blob, "tinyblob": types.Blob,
	"binary": types.Binary, "varbinary": types.Binary, "set": types.Array,
}

const (
	mysqlTinytextLen   = 255
	mysqlTextLen       = 65535
	mysqlMediumtextLen = 16777215
	mysqlTinyblobLen   = 255
	mysqlBlobLen       = 65535
	mysqlMediumblobLen = 16777215
)

// MySQL implements Platform for MySQL/MariaDB.
type MySQL struct{}

// NewMySQL returns a MySQL platform.
func NewMySQL() *MySQL { return &MySQL{} }

func (p *MySQL) Name() string { return "mysql" }

func (p *MySQL) IdentifierQuoteChar() byte { return '`' }

func (p *MySQL) QuoteIdentifier(identifier string) string {
	return quoteDotted(identifier, p.IdentifierQuoteChar())
}

func (p *MySQL) QuoteSingleIdentifier(identifier string) string {
	return quoteSingle(identifier, p.IdentifierQuoteChar())
}

// ModifyLimitSQL encodes LIMIT/OFFSET the MySQL way: a bare offset (no
// limit) becomes "LIMIT 18446744073709551615 OFFSET n", since MySQL has no
// OFFSET-only syntax.
func (p *MySQL) ModifyLimitSQL(sqlText string, limit, offset *int) (string, error) {
	if offset != nil && *offset < 0 {
		return "", dbalerr.NewInvalidOffsetError(*offset)
	}
	switch {
	case limit != nil:
		sqlText += " LIMIT " + strconv.Itoa(*limit)
		if offset != nil {
			sqlText += " OFFSET " + strconv.Itoa(*offset)
		}
	case offset != nil:
		sqlText += " LIMIT 18446744073709551615 OFFSET " + strconv.Itoa(*offset)
	}
	return sqlText, nil
}

func (p *MySQL) IsLimitOffsetSupported() bool       { return true }
func (p *MySQL) IsSavepointsSupported() bool        { return true }
func (p *MySQL) IsReleaseSavepointsSupported() bool { return true }
func (p *MySQL) IsForeignKeysSupported() bool       { return true }

func (p *MySQL) CreateSavepointSQL(name string) string   { return "SAVEPOINT " + name }
func (p *MySQL) ReleaseSavepointSQL(name string) string   { return "RELEASE SAVEPOINT " + name }
func (p *MySQL) RollbackSavepointSQL(name string) string  { return "ROLLBACK TO SAVEPOINT " + name }
func (p *MySQL) DefaultTransactionIsolationLevel() int    { return ReadCommitted }

func (p *MySQL) SetTransactionIsolationSQL(level int) (string, error) {
	kw, err := isolationKeyword(level)
	if err != nil {
		return "", err
	}
	return "SET SESSION TRANSACTION ISOLATION LEVEL " + kw, nil
}

func isolationKeyword(level int) (string, error) {
	switch level {
	case ReadUncommitted:
		return "READ UNCOMMITTED", nil
	case ReadCommitted:
		return "READ COMMITTED", nil
	case RepeatableRead:
		return "REPEATABLE READ", nil
	case Serializable:
		return "SERIALIZABLE", nil
	default:
		return "", dbalerr.NewInvalidIsolationLevelError(level)
	}
}

func (p *MySQL) TypeMapping(rawType string) (types.Type, error) {
	name, _ := parseColumnType(rawType)
	t, ok := mysqlTypeMappings[name]
	if !ok {
		return "", dbalerr.NewUnknownColumnTypeError(rawType)
	}
	return t, nil
}

func (p *MySQL) Keywords() map[string]bool { return mysqlKeywords }

func (p *MySQL) Databases(ctx context.Context, db Queryer) ([]string, error) {
	rows, err := db.QueryContext(ctx, "SHOW DATABASES")
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

func (p *MySQL) Views(ctx context.Context, db Queryer, database string) ([]ViewInfo, error) {
	q := "SELECT TABLE_NAME, VIEW_DEFINITION FROM INFORMATION_SCHEMA.VIEWS WHERE TABLE_SCHEMA = "
	if database == "" {
		q += "DATABASE()"
	} else {
		q += "'" + database + "'"
	}
	rows, err := db.QueryContext(ctx, q)
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

func (p *MySQL) Tables(ctx context.Context, db Queryer, database string) ([]string, error) {
	q := "SHOW FULL TABLES"
	if database != "" {
		q = fmt.Sprintf("SHOW FULL TABLES FROM %s", p.QuoteSingleIdentifier(database))
	}
	q += " WHERE Table_type = 'BASE TABLE'"
	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name, kind string
		if err := rows.Scan(&name, &kind); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func (p *MySQL) TableColumns(ctx context.Context, db Queryer, table, database string) ([]ColumnInfo, error) {
	q := `SELECT COLUMN_NAME, COLUMN_TYPE, IS_NULLABLE, COLUMN_DEFAULT, EXTRA, COLUMN_COMMENT, COLLATION_NAME
		FROM INFORMATION_SCHEMA.COLUMNS WHERE TABLE_NAME = ? AND TABLE_SCHEMA = COALESCE(?, DATABASE())
		ORDER BY ORDINAL_POSITION`
	rows, err := db.QueryContext(ctx, q, table, nullIfEmpty(database))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ColumnInfo
	for rows.Next() {
		var (
			name, columnType, nullable, extra, comment string
			def, collation                              *string
		)
		if err := rows.Scan(&name, &columnType, &nullable, &def, &extra, &comment, &collation); err != nil {
			return nil, err
		}
		baseName, length := parseColumnType(columnType)
		t, err := p.TypeMapping(columnType)
		if err != nil {
			return nil, err
		}
		opts := ColumnOptions{NotNull: nullable != "YES", Default: def}
		switch baseName {
		case "char", "binary":
			opts.Fixed = true
		case "float", "double", "real", "numeric", "decimal":
			if length != "" {
				if ps := strings.SplitN(length, ",", 2); len(ps) == 2 {
					opts.Precision, _ = strconv.Atoi(ps[0])
					opts.Scale, _ = strconv.Atoi(ps[1])
				}
			}
		case "tinytext", "text", "mediumtext", "tinyblob", "blob", "mediumblob":
			var l int
			switch baseName {
			case "tinytext", "tinyblob":
				l = mysqlTinytextLen
			case "text", "blob":
				l = mysqlTextLen
			case "mediumtext", "mediumblob":
				l = mysqlMediumtextLen
			}
			opts.Length = &l
		default:
			if length != "" && !strings.Contains(baseName, "int") {
				if n, err := strconv.Atoi(length); err == nil {
					opts.Length = &n
				}
			}
		}
		opts.Unsigned = strings.Contains(strings.ToLower(columnType), "unsigned")
		opts.Autoincrement = strings.Contains(strings.ToLower(extra), "auto_increment")
		if collation != nil {
			opts.Collation = *collation
		}
		if comment != "" {
			stripped, override := TypeFromComment(comment, t)
			t = override
			if strings.TrimSpace(stripped) != "" {
				opts.Comment = stripped
			}
		}
		out = append(out, ColumnInfo{Name: name, Type: t, Options: opts})
	}
	return out, rows.Err()
}

func (p *MySQL) TableIndexes(ctx context.Context, db Queryer, table, database string) ([]IndexInfo, error) {
	q := `SELECT INDEX_NAME, COLUMN_NAME, INDEX_TYPE, NON_UNIQUE
		FROM INFORMATION_SCHEMA.STATISTICS WHERE TABLE_NAME = ? AND TABLE_SCHEMA = COALESCE(?, DATABASE())
		ORDER BY INDEX_NAME, SEQ_IN_INDEX`
	rows, err := db.QueryContext(ctx, q, table, nullIfEmpty(database))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	order := []string{}
	byName := map[string]*IndexInfo{}
	for rows.Next() {
		var name, column, indexType string
		var nonUnique bool
		if err := rows.Scan(&name, &column, &indexType, &nonUnique); err != nil {
			return nil, err
		}
		idx, ok := byName[name]
		if !ok {
			idx = &IndexInfo{Name: name, Unique: !nonUnique, Primary: name == "PRIMARY"}
			switch strings.ToUpper(indexType) {
			case "FULLTEXT":
				idx.Flags = []string{"FULLTEXT"}
			case "SPATIAL":
				idx.Flags = []string{"SPATIAL"}
			}
			byName[name] = idx
			order = append(order, name)
		}
		idx.Columns = append(idx.Columns, column)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]IndexInfo, len(order))
	for i, name := range order {
		out[i] = *byName[name]
	}
	return out, nil
}

func (p *MySQL) TableForeignKeys(ctx context.Context, db Queryer, table, database string) ([]ForeignKeyInfo, error) {
	q := `SELECT k.CONSTRAINT_NAME, k.COLUMN_NAME, k.REFERENCED_TABLE_NAME, k.REFERENCED_COLUMN_NAME,
		COALESCE(r.UPDATE_RULE, ''), COALESCE(r.DELETE_RULE, '')
		FROM INFORMATION_SCHEMA.KEY_COLUMN_USAGE k
		LEFT JOIN INFORMATION_SCHEMA.REFERENTIAL_CONSTRAINTS r
			ON r.CONSTRAINT_NAME = k.CONSTRAINT_NAME AND r.CONSTRAINT_SCHEMA = k.TABLE_SCHEMA
		WHERE k.TABLE_NAME = ? AND k.TABLE_SCHEMA = COALESCE(?, DATABASE())
			AND k.REFERENCED_COLUMN_NAME IS NOT NULL
		ORDER BY k.CONSTRAINT_NAME, k.ORDINAL_POSITION`
	rows, err := db.QueryContext(ctx, q, table, nullIfEmpty(database))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	order := []string{}
	byName := map[string]*ForeignKeyInfo{}
	for rows.Next() {
		var name, localCol, refTable, refCol, updateRule, deleteRule string
		if err := rows.Scan(&name, &localCol, &refTable, &refCol, &updateRule, &deleteRule); err != nil {
			return nil, err
		}
		fk, ok := byName[name]
		if !ok {
			fk = &ForeignKeyInfo{Name: name, ForeignTable: refTable}
			if updateRule != "" && updateRule != "RESTRICT" {
				fk.OnUpdate = updateRule
			}
			if deleteRule != "" && deleteRule != "RESTRICT" {
				fk.OnDelete = deleteRule
			}
			byName[name] = fk
			order = append(order, name)
		}
		fk.LocalColumns = append(fk.LocalColumns, localCol)
		fk.ForeignColumns = append(fk.ForeignColumns, refCol)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]ForeignKeyInfo, len(order))
	for i, name := range order {
		out[i] = *byName[name]
	}
	return out, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func buildKeywordSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[strings.ToUpper(w)] = true
	}
	return m
}

var _ Platform = (*MySQL)(nil)
