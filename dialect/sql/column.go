package sql

import (
	"reflect"
	"strings"

	"github.com/syssam/orma"
)

// Member is one resolved segment of a Go field path, e.g. Customer in
// Order.Customer.Name.
type Member struct {
	Name   string       // Go field name
	Column string       // mapped column name, empty for relationship members
	Type   reflect.Type // field type
	Index  []int        // field index path on the owning struct
}

// Column is an immutable projection or reference used by every clause.
// Exactly one of the kinds is set: a plain name (Table, Name), a raw
// expression, a literal, a sub-query, or a member path waiting to be
// resolved against a foreign-key tree.
type Column struct {
	Table     string
	Name      string
	Alias     string
	Raw       *Expression
	Literal   any
	Sub       *Query
	Path      []Member
	Calls     []Call
	Collation Collation

	literal bool
}

// NewColumn parses "col", "table.col", "t.*" or "*" with an optional alias.
func NewColumn(name string) (Column, error) {
	n, err := ParseName(name)
	if err != nil {
		return Column{}, err
	}
	c := Column{Alias: n.Alias}
	if i := strings.LastIndexByte(n.Name, '.'); i >= 0 {
		c.Table, c.Name = n.Name[:i], n.Name[i+1:]
	} else {
		c.Name = n.Name
	}
	return c, nil
}

// C returns the column for a static name. It panics on an invalid name.
func C(name string) Column {
	c, err := NewColumn(name)
	if err != nil {
		panic(err)
	}
	return c
}

// Col returns a column qualified by table. Both parts are validated.
func Col(table, name string) Column {
	if !ValidName(table) {
		panic(&orma.InvalidNameError{Kind: "identifier", Name: table})
	}
	if name != "*" && !ValidAlias(name) {
		panic(&orma.InvalidNameError{Kind: "identifier", Name: name})
	}
	return Column{Table: table, Name: name}
}

// Star selects every column, optionally of one table.
func Star(table ...string) Column {
	if len(table) > 0 {
		return Col(table[0], "*")
	}
	return Column{Name: "*"}
}

// RawColumn returns a column emitted verbatim. It is never validated.
func RawColumn(text string, args ...any) Column {
	e := Expr(text, args...)
	return Column{Raw: &e}
}

// Literal returns a column holding a constant sent as a parameter.
func Literal(v any) Column {
	return Column{Literal: v, literal: true}
}

// SubColumn returns a column projecting a scalar sub-query.
func SubColumn(q *Query) Column {
	return Column{Sub: q}
}

// MemberColumn returns an unresolved column for a Go field path with the
// calls applied innermost-first.
func MemberColumn(path []Member, calls ...Call) Column {
	return Column{
		Path:  append([]Member(nil), path...),
		Calls: append([]Call(nil), calls...),
	}
}

// StaticColumn returns a column whose value is a receiver-less operation
// such as the current time.
func StaticColumn(f Func, calls ...Call) Column {
	return Column{Calls: append([]Call{{Func: f}}, calls...)}
}

// As returns a copy with the alias set.
func (c Column) As(alias string) Column {
	c.Alias = alias
	return c
}

// Collate returns a copy with the collation set.
func (c Column) Collate(col Collation) Column {
	c.Collation = col
	return c
}

// Apply returns a copy with the call appended as the outermost operation.
func (c Column) Apply(f Func, args ...any) Column {
	c.Calls = append(append([]Call(nil), c.Calls...), Call{Func: f, Args: args})
	return c
}

// Resolved returns a copy pointing at table.name with the member path
// dropped. Calls, alias and collation are kept.
func (c Column) Resolved(table, name string) Column {
	c.Table, c.Name, c.Path = table, name, nil
	return c
}

// IsLiteral reports whether the column is a constant.
func (c Column) IsLiteral() bool { return c.literal }

// IsMember reports whether the column still needs member resolution.
func (c Column) IsMember() bool { return len(c.Path) > 0 }

// IsStatic reports whether the column starts with a receiver-less call.
func (c Column) IsStatic() bool {
	return c.Name == "" && len(c.Path) == 0 && len(c.Calls) > 0 && c.Calls[0].Func.Static()
}

// IsWildcard reports whether the column is * or t.*.
func (c Column) IsWildcard() bool {
	return c.Name == "*" && c.Raw == nil && len(c.Calls) == 0
}

// MemberPath returns the dotted Go field path, e.g. "Customer.Name".
func (c Column) MemberPath() string {
	names := make([]string, len(c.Path))
	for i, m := range c.Path {
		names[i] = m.Name
	}
	return strings.Join(names, ".")
}

// String returns the unquoted debug form.
func (c Column) String() string {
	var s string
	switch {
	case c.Raw != nil:
		s = c.Raw.Text
	case c.literal:
		s = "?"
	case c.Sub != nil:
		s = "(subquery)"
	case c.IsMember():
		s = c.MemberPath()
	case c.Table != "":
		s = c.Table + "." + c.Name
	default:
		s = c.Name
	}
	for _, call := range c.Calls {
		s += "." + call.String()
	}
	if c.Alias != "" {
		s += " AS " + c.Alias
	}
	return s
}

// Columns parses each name with NewColumn.
func Columns(names ...string) ([]Column, error) {
	cols := make([]Column, 0, len(names))
	for _, n := range names {
		c, err := NewColumn(n)
		if err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	return cols, nil
}
