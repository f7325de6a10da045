package platform

import (
	"context"
	"strings"

	"github.com/syssam/dbal/dbalerr"
	"github.com/syssam/dbal/types"
)

var postgresKeywords = buildKeywordSet(
	"ALL", "ANALYSE", "ANALYZE", "AND", "ANY", "ARRAY", "AS", "ASC",
	"ASYMMETRIC", "BOTH", "CASE", "CAST", "CHECK", "COLLATE", "COLUMN",
	"CONSTRAINT", "CREATE", "CURRENT_CATALOG", "CURRENT_DATE",
	"CURRENT_ROLE", "CURRENT_TIME", "CURRENT_TIMESTAMP", "CURRENT_USER",
	"DEFAULT", "DEFERRABLE", "DESC", "DISTINCT", "DO", "ELSE", "END",
	"EXCEPT", "FALSE", "FETCH", "FOR", "FOREIGN", "FROM", "GRANT", "GROUP",
	"HAVING", "IN", "INITIALLY", "INTERSECT", "INTO", "LATERAL", "LEADING",
	"LIMIT", "LOCALTIME", "LOCALTIMESTAMP", "NOT", "NULL", "OFFSET", "ON",
	"ONLY", "OR", "ORDER", "PLACING", "PRIMARY", "REFERENCES", "RETURNING",
	"SELECT", "SESSION_USER", "SOME", "SYMMETRIC", "TABLE", "THEN", "TO",
	"TRAILING", "TRUE", "UNION", "UNIQUE", "USER", "USING", "VARIADIC",
	"WHEN", "WHERE", "WINDOW", "WITH",
)

var postgresTypeMappings = map[string]types.Type{
	"boolean": types.Boolean, "bool": types.Boolean,
	"smallint": types.SmallInt, "int2": types.SmallInt, "smallserial": types.SmallInt,
	"integer": types.Integer, "int": types.Integer, "int4": types.Integer, "serial": types.Integer,
	"bigint": types.BigInt, "int8": types.BigInt, "bigserial": types.BigInt,
	"character varying": types.String, "varchar": types.String, "character": types.String, "char": types.String,
	"text": types.Text,
	"bytea": types.Blob,
	"real": types.Float, "float4": types.Float, "double precision": types.Float, "float8": types.Float,
	"numeric": types.Decimal, "decimal": types.Decimal,
	"date": types.Date,
	"timestamp without time zone": types.DateTime, "timestamp with time zone": types.DateTime, "timestamp": types.DateTime,
	"time without time zone": types.Time, "time with time zone": types.Time, "time": types.Time,
	"uuid":  types.GUID,
	"array": types.Array,
}

// Postgres implements Platform for PostgreSQL. It was not part of the
// teacher's supported dialect set but shares its generic LIMIT/OFFSET
// encoding and its full savepoint support, so it reuses genericModifyLimitSQL
// unchanged.
type Postgres struct{}

// NewPostgres returns a Postgres platform.
func NewPostgres() *Postgres { return &Postgres{} }

func (p *Postgres) Name() string { return "postgres" }

func (p *Postgres) IdentifierQuoteChar() byte { return '"' }

func (p *Postgres) QuoteIdentifier(identifier string) string {
	return quoteDotted(identifier, p.IdentifierQuoteChar())
}

func (p *Postgres) QuoteSingleIdentifier(identifier string) string {
	return quoteSingle(identifier, p.IdentifierQuoteChar())
}

func (p *Postgres) ModifyLimitSQL(sqlText string, limit, offset *int) (string, error) {
	return genericModifyLimitSQL(p.Name(), sqlText, limit, offset)
}

func (p *Postgres) IsLimitOffsetSupported() bool       { return true }
func (p *Postgres) IsSavepointsSupported() bool        { return true }
func (p *Postgres) IsReleaseSavepointsSupported() bool { return true }
func (p *Postgres) IsForeignKeysSupported() bool       { return true }

func (p *Postgres) CreateSavepointSQL(name string) string  { return "SAVEPOINT " + name }
func (p *Postgres) ReleaseSavepointSQL(name string) string  { return "RELEASE SAVEPOINT " + name }
func (p *Postgres) RollbackSavepointSQL(name string) string { return "ROLLBACK TO SAVEPOINT " + name }
func (p *Postgres) DefaultTransactionIsolationLevel() int    { return ReadCommitted }

func (p *Postgres) SetTransactionIsolationSQL(level int) (string, error) {
	kw, err := isolationKeyword(level)
	if err != nil {
		return "", err
	}
	return "SET SESSION CHARACTERISTICS AS TRANSACTION ISOLATION LEVEL " + kw, nil
}

func (p *Postgres) TypeMapping(rawType string) (types.Type, error) {
	name, _ := parseColumnType(strings.ToLower(rawType))
	if strings.HasSuffix(strings.TrimSpace(rawType), "[]") {
		return types.Array, nil
	}
	normalized := strings.TrimSpace(strings.ToLower(rawType))
	if t, ok := postgresTypeMappings[normalized]; ok {
		return t, nil
	}
	t, ok := postgresTypeMappings[name]
	if !ok {
		return "", dbalerr.NewUnknownColumnTypeError(rawType)
	}
	return t, nil
}

func (p *Postgres) Keywords() map[string]bool { return postgresKeywords }

func (p *Postgres) Databases(ctx context.Context, db Queryer) ([]string, error) {
	rows, err := db.QueryContext(ctx, "SELECT datname FROM pg_database WHERE datistemplate = false")
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

func (p *Postgres) Views(ctx context.Context, db Queryer, database string) ([]ViewInfo, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT table_name, view_definition FROM information_schema.views WHERE table_schema = 'public'")
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

func (p *Postgres) Tables(ctx context.Context, db Queryer, database string) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT table_name FROM information_schema.tables WHERE table_schema = 'public' AND table_type = 'BASE TABLE' ORDER BY table_name")
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

func (p *Postgres) TableColumns(ctx context.Context, db Queryer, table, database string) ([]ColumnInfo, error) {
	q := `SELECT column_name, data_type, is_nullable, column_default,
		numeric_precision, numeric_scale, character_maximum_length, udt_name
		FROM information_schema.columns WHERE table_name = $1 AND table_schema = 'public'
		ORDER BY ordinal_position`
	rows, err := db.QueryContext(ctx, q, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ColumnInfo
	for rows.Next() {
		var (
			name, dataType, nullable, udtName string
			def                                *string
			precision, scale, charLen          *int
		)
		if err := rows.Scan(&name, &dataType, &nullable, &def, &precision, &scale, &charLen, &udtName); err != nil {
			return nil, err
		}
		t, err := p.TypeMapping(dataType)
		if err != nil {
			return nil, err
		}
		opts := ColumnOptions{NotNull: nullable != "YES", Default: def}
		if charLen != nil {
			opts.Length = charLen
		}
		if precision != nil {
			opts.Precision = *precision
		}
		if scale != nil {
			opts.Scale = *scale
		}
		if def != nil && strings.Contains(*def, "nextval(") {
			opts.Autoincrement = true
		}
		out = append(out, ColumnInfo{Name: name, Type: t, Options: opts})
	}
	return out, rows.Err()
}

func (p *Postgres) TableIndexes(ctx context.Context, db Queryer, table, database string) ([]IndexInfo, error) {
	q := `SELECT i.relname, a.attname, ix.indisunique, ix.indisprimary
		FROM pg_class t
		JOIN pg_index ix ON t.oid = ix.indrelid
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
		WHERE t.relname = $1
		ORDER BY i.relname, array_position(ix.indkey, a.attnum)`
	rows, err := db.QueryContext(ctx, q, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	order := []string{}
	byName := map[string]*IndexInfo{}
	for rows.Next() {
		var name, column string
		var unique, primary bool
		if err := rows.Scan(&name, &column, &unique, &primary); err != nil {
			return nil, err
		}
		idx, ok := byName[name]
		if !ok {
			idx = &IndexInfo{Name: name, Unique: unique, Primary: primary}
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

func (p *Postgres) TableForeignKeys(ctx context.Context, db Queryer, table, database string) ([]ForeignKeyInfo, error) {
	q := `SELECT tc.constraint_name, kcu.column_name, ccu.table_name, ccu.column_name,
		rc.update_rule, rc.delete_rule
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu ON tc.constraint_name = kcu.constraint_name
		JOIN information_schema.constraint_column_usage ccu ON tc.constraint_name = ccu.constraint_name
		JOIN information_schema.referential_constraints rc ON rc.constraint_name = tc.constraint_name
		WHERE tc.constraint_type = 'FOREIGN KEY' AND tc.table_name = $1
		ORDER BY tc.constraint_name, kcu.ordinal_position`
	rows, err := db.QueryContext(ctx, q, table)
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
			if updateRule != "" && updateRule != "NO ACTION" {
				fk.OnUpdate = updateRule
			}
			if deleteRule != "" && deleteRule != "NO ACTION" {
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

var _ Platform = (*Postgres)(nil)
