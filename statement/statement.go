// Package statement normalizes SQL placeholder syntax and row fetch shapes.
// It rewrites a mix of "?" and ":name" placeholders into whatever token
// style a driver expects, expanding list-valued parameters into repeated
// placeholders, then exposes an iterator over driver rows in one of several
// fetch modes. It mirrors pydbal's statement.Statement.
package statement

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/syssam/dbal/dbalerr"
)

// FetchMode selects the shape Statement.Fetch/FetchAll/Iterate project rows into.
type FetchMode int

const (
	// FetchDefault returns the raw Row (ordered name/value pairs).
	FetchDefault FetchMode = iota
	// FetchTuple returns a []any of values in column order.
	FetchTuple
	// FetchList is equivalent to FetchTuple; Go has no separate list/tuple type.
	FetchList
	// FetchDict returns a map[string]any; duplicate column names keep the last value.
	FetchDict
	// FetchObject returns a Row usable by name via Get or by position via At.
	FetchObject
	// FetchColumn returns a single column's value.
	FetchColumn
)

// NamedValue is one column's name and scanned value.
type NamedValue struct {
	Name  string
	Value any
}

// Row is a full result row as ordered name/value pairs, the FetchDefault shape.
type Row []NamedValue

// Get returns the value of the first column named name, for FetchObject mode.
func (r Row) Get(name string) (any, bool) {
	for _, nv := range r {
		if nv.Name == name {
			return nv.Value, true
		}
	}
	return nil, false
}

// At returns the value of the column at position i.
func (r Row) At(i int) any { return r[i].Value }

// RowIterator walks a driver's open cursor. Close must be safe to call
// multiple times.
type RowIterator interface {
	Next() (Row, bool, error)
	Close() error
}

// RowSource is the slice of the driver contract Statement needs: run a
// statement (as a query that yields rows, or as a plain exec), then iterate
// whatever cursor that left open. Placeholder returns the token to bind the
// parameter landing at the given 1-based position.
type RowSource interface {
	Execute(ctx context.Context, sql string, isQuery bool, params ...any) (int64, error)
	Iterate(ctx context.Context) (RowIterator, error)
	Placeholder(position int) string
}

// Statement executes one SQL statement against a RowSource and lets the
// caller pull rows back out in any FetchMode.
type Statement struct {
	source    RowSource
	fetchMode FetchMode
	affected  int64
	rows      RowIterator
}

// New returns a Statement bound to source with the given default fetch mode.
func New(source RowSource, fetchMode FetchMode) *Statement {
	return &Statement{source: source, fetchMode: fetchMode}
}

// Execute rewrites sqlText's placeholders against params, runs it through the
// bound RowSource, and returns the same Statement for chaining into
// Iterate/Fetch/FetchAll/FetchColumn.
func (s *Statement) Execute(ctx context.Context, sqlText string, params map[any]any, isQuery bool) (*Statement, error) {
	prepared, execParams, err := prepare(sqlText, params, s.source.Placeholder)
	if err != nil {
		return nil, err
	}
	affected, err := s.source.Execute(ctx, prepared, isQuery, execParams...)
	if err != nil {
		return nil, err
	}
	s.affected = affected
	if isQuery {
		rows, err := s.source.Iterate(ctx)
		if err != nil {
			return nil, err
		}
		s.rows = rows
	}
	return s, nil
}

// RowsAffected returns the affected-row count from the last Execute.
func (s *Statement) RowsAffected() int64 { return s.affected }

// Close releases the underlying cursor, if one is open.
func (s *Statement) Close() error {
	if s.rows == nil {
		return nil
	}
	return s.rows.Close()
}

func (s *Statement) transform(row Row, mode FetchMode, columnIndex int) any {
	switch mode {
	case FetchDict:
		m := make(map[string]any, len(row))
		for _, nv := range row {
			m[nv.Name] = nv.Value
		}
		return m
	case FetchColumn:
		return row[columnIndex].Value
	case FetchTuple, FetchList:
		vals := make([]any, len(row))
		for i, nv := range row {
			vals[i] = nv.Value
		}
		return vals
	case FetchObject:
		return row
	default:
		return row
	}
}

func (s *Statement) mode(override *FetchMode) FetchMode {
	if override != nil {
		return *override
	}
	return s.fetchMode
}

// Next advances the open cursor and projects the next row into mode (or the
// Statement's default fetch mode if mode is nil). ok is false once rows are
// exhausted.
func (s *Statement) Next(mode *FetchMode, columnIndex int) (any, bool, error) {
	if s.rows == nil {
		return nil, false, nil
	}
	row, ok, err := s.rows.Next()
	if err != nil || !ok {
		return nil, false, err
	}
	return s.transform(row, s.mode(mode), columnIndex), true, nil
}

// Fetch returns the next row, or ok=false if the cursor is exhausted.
func (s *Statement) Fetch(mode *FetchMode) (any, bool, error) {
	return s.Next(mode, 0)
}

// FetchAll drains every remaining row.
func (s *Statement) FetchAll(mode *FetchMode, columnIndex int) ([]any, error) {
	var out []any
	for {
		v, ok, err := s.Next(mode, columnIndex)
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, v)
	}
}

// FetchColumn returns columnIndex's value from the next row.
func (s *Statement) FetchColumn(columnIndex int) (any, bool, error) {
	col := FetchColumn
	return s.Next(&col, columnIndex)
}

// placeholderFunc returns the token used to bind the parameter placed at
// 1-based position pos.
type placeholderFunc func(pos int) string

func isIdentStart(r byte) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentPart(r byte) bool {
	return isIdentStart(r) || (r >= '0' && r <= '9')
}

// prepare scans sqlText for "?" and ":name" placeholders -- skipping any
// that fall inside a single- or double-quoted string literal -- and
// rewrites each into placeholderFor's token, expanding list-valued
// parameters into N repeated tokens joined by ", ". It mirrors pydbal's
// statement._re_params substitution without relying on lookaround regex,
// which Go's regexp does not support.
func prepare(sqlText string, params map[any]any, placeholderFor placeholderFunc) (string, []any, error) {
	var out strings.Builder
	var execParams []any
	positional := 0
	var quote byte

	n := len(sqlText)
	for i := 0; i < n; i++ {
		c := sqlText[i]

		if quote != 0 {
			out.WriteByte(c)
			if c == '\\' && i+1 < n {
				i++
				out.WriteByte(sqlText[i])
				continue
			}
			if c == quote {
				quote = 0
			}
			continue
		}

		switch {
		case c == '\'' || c == '"':
			quote = c
			out.WriteByte(c)
		case c == '?':
			key := any(positional)
			positional++
			tok, err := bindParam(key, params, &execParams, placeholderFor)
			if err != nil {
				return "", nil, err
			}
			out.WriteString(tok)
		case c == ':' && (i == 0 || sqlText[i-1] != ':') && i+1 < n && isIdentStart(sqlText[i+1]):
			j := i + 1
			for j < n && isIdentPart(sqlText[j]) {
				j++
			}
			name := sqlText[i+1 : j]
			tok, err := bindParam(name, params, &execParams, placeholderFor)
			if err != nil {
				return "", nil, err
			}
			out.WriteString(tok)
			i = j - 1
		default:
			out.WriteByte(c)
		}
	}
	return out.String(), execParams, nil
}

func bindParam(key any, params map[any]any, execParams *[]any, placeholderFor placeholderFunc) (string, error) {
	value, ok := params[key]
	if !ok {
		if idx, isInt := key.(int); isInt {
			return "", dbalerr.NewMissingPositionalParameterError(idx, params)
		}
		return "", dbalerr.NewMissingNamedParameterError(fmt.Sprint(key), params)
	}
	if list, ok := asSlice(value); ok {
		tokens := make([]string, len(list))
		for i, v := range list {
			*execParams = append(*execParams, v)
			tokens[i] = placeholderFor(len(*execParams))
		}
		return strings.Join(tokens, ", "), nil
	}
	*execParams = append(*execParams, value)
	return placeholderFor(len(*execParams)), nil
}

// asSlice reports whether value is a slice/array (and not a []byte, which
// binds as a single value), returning its elements as []any.
func asSlice(value any) ([]any, bool) {
	if _, isBytes := value.([]byte); isBytes {
		return nil, false
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
