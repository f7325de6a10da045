package builder

import "strings"

// CompositeKind is the boolean connective joining a CompositeExpression's parts.
type CompositeKind string

const (
	// And joins parts with "AND".
	And CompositeKind = "AND"
	// Or joins parts with "OR".
	Or CompositeKind = "OR"
)

// stringer is satisfied by anything that renders to a single SQL fragment,
// including a nested *CompositeExpression.
type stringer interface {
	String() string
}

// CompositeExpression is a tree of SQL condition fragments joined by AND/OR.
// A single part renders unparenthesized; two or more render as
// "(p1) KIND (p2) KIND (p3)". Empty strings and empty nested composites are
// dropped on insertion, so a composite with no real parts renders as "".
type CompositeExpression struct {
	kind  CompositeKind
	parts []stringer
}

// rawString wraps a plain SQL fragment so it satisfies stringer.
type rawString string

func (r rawString) String() string { return string(r) }

// NewComposite builds a CompositeExpression of kind joining parts. Each part
// may be a string or another *CompositeExpression; falsy strings and
// zero-length composites are filtered out.
func NewComposite(kind CompositeKind, parts ...any) *CompositeExpression {
	c := &CompositeExpression{kind: kind}
	c.AddAll(parts...)
	return c
}

// Add appends a single part, applying the same filtering NewComposite does.
func (c *CompositeExpression) Add(part any) *CompositeExpression {
	switch p := part.(type) {
	case nil:
		return c
	case string:
		if p != "" {
			c.parts = append(c.parts, rawString(p))
		}
	case *CompositeExpression:
		if p != nil && p.Len() > 0 {
			c.parts = append(c.parts, p)
		}
	case stringer:
		c.parts = append(c.parts, p)
	}
	return c
}

// AddAll appends every part in order.
func (c *CompositeExpression) AddAll(parts ...any) *CompositeExpression {
	for _, p := range parts {
		c.Add(p)
	}
	return c
}

// Len returns the number of surviving (non-filtered) parts.
func (c *CompositeExpression) Len() int {
	if c == nil {
		return 0
	}
	return len(c.parts)
}

// Kind returns the connective this composite joins its parts with.
func (c *CompositeExpression) Kind() CompositeKind { return c.kind }

// Copy returns a shallow copy whose parts slice is independent of c's.
func (c *CompositeExpression) Copy() *CompositeExpression {
	cp := &CompositeExpression{kind: c.kind, parts: make([]stringer, len(c.parts))}
	copy(cp.parts, c.parts)
	return cp
}

// String renders the composite per the spec's single-part/multi-part rule.
func (c *CompositeExpression) String() string {
	if c == nil || len(c.parts) == 0 {
		return ""
	}
	if len(c.parts) == 1 {
		return c.parts[0].String()
	}
	rendered := make([]string, len(c.parts))
	for i, p := range c.parts {
		rendered[i] = p.String()
	}
	return "(" + strings.Join(rendered, ") "+string(c.kind)+" (") + ")"
}
