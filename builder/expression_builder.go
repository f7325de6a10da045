package builder

import "strings"

// Comparison operators, mirroring pydbal's ExpressionBuilder constants.
const (
	OpEQ        = "="
	OpNEQ       = "<>"
	OpLT        = "<"
	OpLTE       = "<="
	OpGT        = ">"
	OpGTE       = ">="
	OpIsNull    = "IS NULL"
	OpIsNotNull = "IS NOT NULL"
	OpLike      = "LIKE"
	OpNotLike   = "NOT LIKE"
	OpIn        = "IN"
	OpNotIn     = "NOT IN"
)

// ExpressionBuilder renders SQL condition fragments. Its comparison helpers
// are pure string operations; Literal needs a connection's escaping rules,
// supplied via the escape function passed to New.
type ExpressionBuilder struct {
	escape func(string) string
}

// New returns an ExpressionBuilder whose Literal method escapes through escape.
func New(escape func(string) string) *ExpressionBuilder {
	return &ExpressionBuilder{escape: escape}
}

// And builds a CompositeExpression joining parts with AND.
func (b *ExpressionBuilder) And(parts ...any) *CompositeExpression { return NewComposite(And, parts...) }

// Or builds a CompositeExpression joining parts with OR.
func (b *ExpressionBuilder) Or(parts ...any) *CompositeExpression { return NewComposite(Or, parts...) }

func comparison(x, operator, y string) string {
	return x + " " + operator + " " + y
}

// Eq renders "x = y".
func (b *ExpressionBuilder) Eq(x, y string) string { return comparison(x, OpEQ, y) }

// Neq renders "x <> y".
func (b *ExpressionBuilder) Neq(x, y string) string { return comparison(x, OpNEQ, y) }

// Lt renders "x < y".
func (b *ExpressionBuilder) Lt(x, y string) string { return comparison(x, OpLT, y) }

// Lte renders "x <= y".
func (b *ExpressionBuilder) Lte(x, y string) string { return comparison(x, OpLTE, y) }

// Gt renders "x > y".
func (b *ExpressionBuilder) Gt(x, y string) string { return comparison(x, OpGT, y) }

// Gte renders "x >= y".
func (b *ExpressionBuilder) Gte(x, y string) string { return comparison(x, OpGTE, y) }

// Like renders "x LIKE y".
func (b *ExpressionBuilder) Like(x, y string) string { return comparison(x, OpLike, y) }

// NotLike renders "x NOT LIKE y".
func (b *ExpressionBuilder) NotLike(x, y string) string { return comparison(x, OpNotLike, y) }

// IsNull renders "x IS NULL".
func (b *ExpressionBuilder) IsNull(x string) string { return x + " " + OpIsNull }

// IsNotNull renders "x IS NOT NULL".
func (b *ExpressionBuilder) IsNotNull(x string) string { return x + " " + OpIsNotNull }

// In renders "x IN (y0, y1, ...)"; y entries are already-rendered SQL fragments
// (placeholders or literals), not raw values.
func (b *ExpressionBuilder) In(x string, y ...string) string {
	return comparison(x, OpIn, "("+strings.Join(y, ", ")+")")
}

// NotIn renders "x NOT IN (y0, y1, ...)".
func (b *ExpressionBuilder) NotIn(x string, y ...string) string {
	return comparison(x, OpNotIn, "("+strings.Join(y, ", ")+")")
}

// Literal escapes and single-quotes value for direct inclusion in SQL text.
func (b *ExpressionBuilder) Literal(value string) string {
	return b.escape(value)
}
