// Package builder implements the fluent SQL builder: SELECT/INSERT/UPDATE/
// DELETE statement assembly with dirty-flag SQL caching, composite boolean
// expressions, and named/positional parameter bookkeeping. It mirrors
// pydbal's builder.SQLBuilder and builder.ExpressionBuilder.
package builder

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/syssam/dbal/dbalerr"
)

// OpType is the statement kind a SQLBuilder is assembling.
type OpType int

const (
	// TypeSelect builds a SELECT statement.
	TypeSelect OpType = iota
	// TypeDelete builds a DELETE statement.
	TypeDelete
	// TypeUpdate builds an UPDATE statement.
	TypeUpdate
	// TypeInsert builds an INSERT statement.
	TypeInsert
)

// LimitOffsetPlatform is the slice of the platform contract SQLBuilder needs
// to encode LIMIT/OFFSET paging. Connection supplies its platform, which
// implements this structurally.
type LimitOffsetPlatform interface {
	ModifyLimitSQL(sql string, limit, offset *int) (string, error)
}

// Executor runs a finished builder against a live connection. Connection
// implements this so SQLBuilder.Execute can dispatch without builder
// importing the connection package.
type Executor interface {
	QueryParams(ctx context.Context, sql string, params map[any]any) (Rows, error)
	ExecuteParams(ctx context.Context, sql string, params map[any]any) (int64, error)
	LastInsertID() (int64, error)
}

// Rows is the minimal result-set handle SQLBuilder.Execute hands back for a
// SELECT; statement.Statement satisfies it.
type Rows interface{}

type fromEntry struct {
	table string
	alias string
}

type joinEntry struct {
	kind      string
	table     string
	alias     string
	condition *CompositeExpression
}

const dirty, clean = 0, 1

// SQLBuilder incrementally assembles one SQL statement. Mutators mark the
// builder dirty; SQL() re-renders only when dirty, matching pydbal's
// state-cached get_sql().
type SQLBuilder struct {
	platform LimitOffsetPlatform
	expr     *ExpressionBuilder
	executor Executor

	typ   OpType
	state int
	sql   string

	selectParts  []string
	fromParts    []fromEntry
	joinParts    map[string][]joinEntry
	setParts     []string
	wherePart    *CompositeExpression
	groupByParts []string
	havingPart   *CompositeExpression
	orderByParts []string
	valuesParts  map[string]string

	params       map[any]any
	paramCounter int

	firstResult *int
	maxResults  *int
}

// New returns an empty SQLBuilder bound to platform (for LIMIT/OFFSET
// rendering), expr (for building WHERE/HAVING conditions inline), and
// executor (for Execute).
func New(platform LimitOffsetPlatform, expr *ExpressionBuilder, executor Executor) *SQLBuilder {
	return &SQLBuilder{
		platform:  platform,
		expr:      expr,
		executor:  executor,
		joinParts: map[string][]joinEntry{},
		params:    map[any]any{},
	}
}

// Expr returns the expression builder this SQLBuilder was constructed with,
// for building WHERE/HAVING/join condition fragments inline.
func (b *SQLBuilder) Expr() *ExpressionBuilder { return b.expr }

// Copy returns an independent builder with the same parts; mutating the copy
// does not affect the original.
func (b *SQLBuilder) Copy() *SQLBuilder {
	cp := *b
	cp.selectParts = append([]string(nil), b.selectParts...)
	cp.fromParts = append([]fromEntry(nil), b.fromParts...)
	cp.joinParts = make(map[string][]joinEntry, len(b.joinParts))
	for k, v := range b.joinParts {
		cp.joinParts[k] = append([]joinEntry(nil), v...)
	}
	cp.setParts = append([]string(nil), b.setParts...)
	cp.groupByParts = append([]string(nil), b.groupByParts...)
	cp.orderByParts = append([]string(nil), b.orderByParts...)
	cp.valuesParts = make(map[string]string, len(b.valuesParts))
	for k, v := range b.valuesParts {
		cp.valuesParts[k] = v
	}
	cp.params = make(map[any]any, len(b.params))
	for k, v := range b.params {
		cp.params[k] = v
	}
	if b.wherePart != nil {
		cp.wherePart = b.wherePart.Copy()
	}
	if b.havingPart != nil {
		cp.havingPart = b.havingPart.Copy()
	}
	return &cp
}

func (b *SQLBuilder) markDirty() { b.state = dirty }

// SetParameter binds a value under key, which must be an int (positional) or
// a string (named; a leading ':' is stripped if present).
func (b *SQLBuilder) SetParameter(key any, value any) (*SQLBuilder, error) {
	switch k := key.(type) {
	case int:
		b.params[k] = value
	case string:
		b.params[strings.TrimPrefix(k, ":")] = value
	default:
		return b, fmt.Errorf("dbal: builder: parameter key must be int or string, got %T", key)
	}
	return b, nil
}

// SetParameters replaces every bound parameter at once.
func (b *SQLBuilder) SetParameters(params map[any]any) *SQLBuilder {
	b.params = params
	return b
}

// SetFirstResult sets the OFFSET row count.
func (b *SQLBuilder) SetFirstResult(n int) *SQLBuilder {
	b.firstResult = &n
	b.markDirty()
	return b
}

// SetMaxResults sets the LIMIT row count.
func (b *SQLBuilder) SetMaxResults(n int) *SQLBuilder {
	b.maxResults = &n
	b.markDirty()
	return b
}

// CreateNamedParameter binds value under a caller-chosen or auto-generated
// ":pyValueN" name and returns the placeholder (with leading colon).
func (b *SQLBuilder) CreateNamedParameter(value any, placeholder string) string {
	if placeholder == "" {
		placeholder = fmt.Sprintf(":pyValue%d", b.paramCounter)
		b.paramCounter++
	}
	b.params[strings.TrimPrefix(placeholder, ":")] = value
	return placeholder
}

// CreatePositionalParameter binds value under the next positional index and
// returns the bare "?" placeholder.
func (b *SQLBuilder) CreatePositionalParameter(value any) string {
	b.params[b.paramCounter] = value
	b.paramCounter++
	return "?"
}

// Select starts (or restarts) a SELECT, replacing any prior select list.
func (b *SQLBuilder) Select(cols ...string) *SQLBuilder {
	b.typ = TypeSelect
	b.selectParts = append([]string(nil), cols...)
	b.markDirty()
	return b
}

// AddSelect appends columns to the existing select list.
func (b *SQLBuilder) AddSelect(cols ...string) *SQLBuilder {
	b.typ = TypeSelect
	b.selectParts = append(b.selectParts, cols...)
	b.markDirty()
	return b
}

// From registers a table (optionally aliased) in the FROM clause. Multiple
// calls accumulate additional from-entries.
func (b *SQLBuilder) From(table, alias string) *SQLBuilder {
	b.fromParts = append(b.fromParts, fromEntry{table: table, alias: alias})
	b.markDirty()
	return b
}

// Insert starts an INSERT into table.
func (b *SQLBuilder) Insert(table string) *SQLBuilder {
	b.typ = TypeInsert
	b.fromParts = []fromEntry{{table: table}}
	b.markDirty()
	return b
}

// Update starts an UPDATE of table (optionally aliased).
func (b *SQLBuilder) Update(table, alias string) *SQLBuilder {
	b.typ = TypeUpdate
	b.fromParts = []fromEntry{{table: table, alias: alias}}
	b.markDirty()
	return b
}

// Delete starts a DELETE from table (optionally aliased).
func (b *SQLBuilder) Delete(table, alias string) *SQLBuilder {
	b.typ = TypeDelete
	b.fromParts = []fromEntry{{table: table, alias: alias}}
	b.markDirty()
	return b
}

func (b *SQLBuilder) join(kind, fromAlias, table, alias string, condition ...any) *SQLBuilder {
	cond := NewComposite(And, condition...)
	b.joinParts[fromAlias] = append(b.joinParts[fromAlias], joinEntry{kind: kind, table: table, alias: alias, condition: cond})
	b.markDirty()
	return b
}

// InnerJoin adds "INNER JOIN table alias ON condition" rooted at fromAlias.
func (b *SQLBuilder) InnerJoin(fromAlias, table, alias string, condition ...any) *SQLBuilder {
	return b.join("inner", fromAlias, table, alias, condition...)
}

// Join is an alias for InnerJoin.
func (b *SQLBuilder) Join(fromAlias, table, alias string, condition ...any) *SQLBuilder {
	return b.InnerJoin(fromAlias, table, alias, condition...)
}

// LeftJoin adds a LEFT JOIN rooted at fromAlias.
func (b *SQLBuilder) LeftJoin(fromAlias, table, alias string, condition ...any) *SQLBuilder {
	return b.join("left", fromAlias, table, alias, condition...)
}

// RightJoin adds a RIGHT JOIN rooted at fromAlias.
func (b *SQLBuilder) RightJoin(fromAlias, table, alias string, condition ...any) *SQLBuilder {
	return b.join("right", fromAlias, table, alias, condition...)
}

// Set appends a "column = value" assignment to an UPDATE's SET clause.
func (b *SQLBuilder) Set(column, value string) *SQLBuilder {
	b.setParts = append(b.setParts, column+" = "+value)
	b.markDirty()
	return b
}

// Where replaces the WHERE clause with an AND-composite of parts.
func (b *SQLBuilder) Where(parts ...any) *SQLBuilder {
	b.wherePart = NewComposite(And, parts...)
	b.markDirty()
	return b
}

func (b *SQLBuilder) foldWhere(kind CompositeKind, parts []any) *CompositeExpression {
	if b.wherePart != nil && b.wherePart.Len() > 0 {
		parts = append([]any{b.wherePart.String()}, parts...)
	}
	return NewComposite(kind, parts...)
}

// AndWhere folds the existing WHERE (if any) and parts into a new
// AND-composite, per pydbal's and_where.
func (b *SQLBuilder) AndWhere(parts ...any) *SQLBuilder {
	b.wherePart = b.foldWhere(And, parts)
	b.markDirty()
	return b
}

// OrWhere folds the existing WHERE (if any) and parts into a new
// OR-composite, per pydbal's or_where.
func (b *SQLBuilder) OrWhere(parts ...any) *SQLBuilder {
	b.wherePart = b.foldWhere(Or, parts)
	b.markDirty()
	return b
}

// GroupBy replaces the GROUP BY list.
func (b *SQLBuilder) GroupBy(cols ...string) *SQLBuilder {
	b.groupByParts = append([]string(nil), cols...)
	b.markDirty()
	return b
}

// AddGroupBy appends to the GROUP BY list.
func (b *SQLBuilder) AddGroupBy(cols ...string) *SQLBuilder {
	b.groupByParts = append(b.groupByParts, cols...)
	b.markDirty()
	return b
}

// SetValue sets a single INSERT column to value without touching any other
// column already set via SetValue or Values.
func (b *SQLBuilder) SetValue(column, value string) *SQLBuilder {
	if b.valuesParts == nil {
		b.valuesParts = map[string]string{}
	}
	b.valuesParts[column] = value
	b.markDirty()
	return b
}

// Values replaces the entire INSERT column/value map at once. Calling
// Values after SetValue discards what SetValue had added; calling SetValue
// after Values only adds to or overrides individual columns. This mirrors
// pydbal's builder.py exactly (values() resets then assigns; set_value()
// mutates in place) -- see DESIGN.md Open Question #1.
func (b *SQLBuilder) Values(values map[string]string) *SQLBuilder {
	m := make(map[string]string, len(values))
	for k, v := range values {
		m[k] = v
	}
	b.valuesParts = m
	b.markDirty()
	return b
}

// Having replaces the HAVING clause with an AND-composite of parts.
func (b *SQLBuilder) Having(parts ...any) *SQLBuilder {
	b.havingPart = NewComposite(And, parts...)
	b.markDirty()
	return b
}

func (b *SQLBuilder) foldHaving(kind CompositeKind, parts []any) *CompositeExpression {
	if b.havingPart != nil && b.havingPart.Len() > 0 {
		parts = append([]any{b.havingPart.String()}, parts...)
	}
	return NewComposite(kind, parts...)
}

// AndHaving folds the existing HAVING (if any) and parts into an AND-composite.
func (b *SQLBuilder) AndHaving(parts ...any) *SQLBuilder {
	b.havingPart = b.foldHaving(And, parts)
	b.markDirty()
	return b
}

// OrHaving folds the existing HAVING (if any) and parts into an OR-composite.
func (b *SQLBuilder) OrHaving(parts ...any) *SQLBuilder {
	b.havingPart = b.foldHaving(Or, parts)
	b.markDirty()
	return b
}

// OrderBy replaces the ORDER BY list with a single "sort order" entry.
func (b *SQLBuilder) OrderBy(sort, order string) *SQLBuilder {
	if order == "" {
		order = "ASC"
	}
	b.orderByParts = []string{sort + " " + order}
	b.markDirty()
	return b
}

// AddOrderBy appends a "sort order" entry to the ORDER BY list.
func (b *SQLBuilder) AddOrderBy(sortCol, order string) *SQLBuilder {
	if order == "" {
		order = "ASC"
	}
	b.orderByParts = append(b.orderByParts, sortCol+" "+order)
	b.markDirty()
	return b
}

// SQL renders the statement, reusing the cached text when the builder has
// not been mutated since the last render.
func (b *SQLBuilder) SQL() (string, error) {
	if b.state == clean && b.sql != "" {
		return b.sql, nil
	}
	var (
		out string
		err error
	)
	switch b.typ {
	case TypeInsert:
		out, err = b.sqlForInsert()
	case TypeUpdate:
		out, err = b.sqlForUpdate()
	case TypeDelete:
		out, err = b.sqlForDelete()
	default:
		out, err = b.sqlForSelect()
	}
	if err != nil {
		return "", err
	}
	b.sql = out
	b.state = clean
	return out, nil
}

func (b *SQLBuilder) sqlForSelect() (string, error) {
	from, err := b.getFromClauses()
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.WriteString("SELECT " + strings.Join(b.selectParts, ", ") + " FROM " + from)
	if b.wherePart != nil && b.wherePart.Len() > 0 {
		sb.WriteString(" WHERE " + b.wherePart.String())
	}
	if len(b.groupByParts) > 0 {
		sb.WriteString(" GROUP BY " + strings.Join(b.groupByParts, ", "))
	}
	if b.havingPart != nil && b.havingPart.Len() > 0 {
		sb.WriteString(" HAVING " + b.havingPart.String())
	}
	if len(b.orderByParts) > 0 {
		sb.WriteString(" ORDER BY " + strings.Join(b.orderByParts, ", "))
	}
	out := sb.String()
	if b.maxResults != nil || b.firstResult != nil {
		return b.platform.ModifyLimitSQL(out, b.maxResults, b.firstResult)
	}
	return out, nil
}

func (b *SQLBuilder) sqlForInsert() (string, error) {
	cols := make([]string, 0, len(b.valuesParts))
	for c := range b.valuesParts {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	vals := make([]string, len(cols))
	for i, c := range cols {
		vals[i] = b.valuesParts[c]
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES(%s)", b.fromParts[0].table, strings.Join(cols, ", "), strings.Join(vals, ", ")), nil
}

func (b *SQLBuilder) sqlForUpdate() (string, error) {
	var sb strings.Builder
	sb.WriteString("UPDATE " + b.fromParts[0].table)
	if b.fromParts[0].alias != "" {
		sb.WriteString(" " + b.fromParts[0].alias)
	}
	if len(b.setParts) > 0 {
		sb.WriteString(" SET " + strings.Join(b.setParts, ", "))
	}
	if b.wherePart != nil && b.wherePart.Len() > 0 {
		sb.WriteString(" WHERE " + b.wherePart.String())
	}
	return sb.String(), nil
}

func (b *SQLBuilder) sqlForDelete() (string, error) {
	var sb strings.Builder
	sb.WriteString("DELETE FROM " + b.fromParts[0].table)
	if b.fromParts[0].alias != "" {
		sb.WriteString(" " + b.fromParts[0].alias)
	}
	if b.wherePart != nil && b.wherePart.Len() > 0 {
		sb.WriteString(" WHERE " + b.wherePart.String())
	}
	return sb.String(), nil
}

func (b *SQLBuilder) getFromClauses() (string, error) {
	order := make([]string, 0, len(b.fromParts))
	clauses := map[string]string{}
	known := map[string]bool{}
	for _, f := range b.fromParts {
		ref := f.table
		if f.alias != "" {
			ref = f.alias
		}
		sql := f.table
		if f.alias != "" {
			sql += " " + f.alias
		}
		known[ref] = true
		order = append(order, ref)
		clauses[ref] = sql
	}
	for _, ref := range order {
		nested, err := b.getSQLForJoins(ref, known)
		if err != nil {
			return "", err
		}
		clauses[ref] += nested
	}
	for alias := range b.joinParts {
		if !known[alias] {
			return "", dbalerr.NewUnknownAliasError(alias, sortedKeys(known))
		}
	}
	parts := make([]string, len(order))
	for i, ref := range order {
		parts[i] = clauses[ref]
	}
	return strings.Join(parts, ", "), nil
}

func (b *SQLBuilder) getSQLForJoins(fromAlias string, known map[string]bool) (string, error) {
	entries := b.joinParts[fromAlias]
	var sb strings.Builder
	added := make([]string, 0, len(entries))
	for _, j := range entries {
		if known[j.alias] {
			return "", dbalerr.NewNonUniqueAliasError(j.alias, sortedKeys(known))
		}
		sb.WriteString(" " + strings.ToUpper(j.kind) + " JOIN " + j.table + " " + j.alias + " ON " + j.condition.String())
		known[j.alias] = true
		added = append(added, j.alias)
	}
	for _, alias := range added {
		nested, err := b.getSQLForJoins(alias, known)
		if err != nil {
			return "", err
		}
		sb.WriteString(nested)
	}
	return sb.String(), nil
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (b *SQLBuilder) prepareParams() map[any]any { return b.params }

// Execute runs the finished statement: a SELECT returns its Rows handle, an
// INSERT returns the last insert ID, and UPDATE/DELETE return the affected
// row count.
func (b *SQLBuilder) Execute(ctx context.Context) (any, error) {
	sql, err := b.SQL()
	if err != nil {
		return nil, err
	}
	params := b.prepareParams()
	if b.typ == TypeSelect {
		return b.executor.QueryParams(ctx, sql, params)
	}
	n, err := b.executor.ExecuteParams(ctx, sql, params)
	if err != nil {
		return nil, err
	}
	if b.typ == TypeInsert {
		return b.executor.LastInsertID()
	}
	return n, nil
}
