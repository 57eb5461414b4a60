package sql

import "strings"

// Op is a comparison operator.
type Op string

// Comparison operators.
const (
	OpEQ         Op = "="
	OpNEQ        Op = "<>"
	OpLT         Op = "<"
	OpLTE        Op = "<="
	OpGT         Op = ">"
	OpGTE        Op = ">="
	OpLike       Op = "LIKE"
	OpNotLike    Op = "NOT LIKE"
	OpIn         Op = "IN"
	OpNotIn      Op = "NOT IN"
	OpIsNull     Op = "IS NULL"
	OpNotNull    Op = "IS NOT NULL"
	OpBetween    Op = "BETWEEN"
	OpNotBetween Op = "NOT BETWEEN"
)

// CondKind identifies the shape of a condition.
type CondKind int

// Condition shapes.
const (
	CondCompare CondKind = iota // Column Op Value
	CondRaw                     // Raw expression
	CondGroup                   // (Group)
	CondExists                  // EXISTS (Query)
)

// Cond is one node of a Where tree.
type Cond struct {
	Or     bool // joined to the previous node with OR instead of AND
	Not    bool
	Kind   CondKind
	Column Column
	Op     Op
	Value  any
	Raw    Expression
	Group  *Where
	// Escape marks LIKE patterns built with EscapeLike.
	Escape bool
	Query  *Query
}

// Where is an ordered tree of conditions. The zero value is empty and
// ready to use.
type Where struct {
	Conds []Cond
}

// NewWhere returns an empty tree.
func NewWhere() *Where { return &Where{} }

// IsEmpty reports whether the tree holds no condition.
func (w *Where) IsEmpty() bool { return w == nil || len(w.Conds) == 0 }

// HasOr reports whether a top-level node is joined with OR.
func (w *Where) HasOr() bool {
	if w == nil {
		return false
	}
	for _, c := range w.Conds[min(1, len(w.Conds)):] {
		if c.Or {
			return true
		}
	}
	return false
}

func (w *Where) add(c Cond) *Where {
	w.Conds = append(w.Conds, c)
	return w
}

// Cond adds "col op value" joined with AND.
func (w *Where) Cond(col Column, op Op, v any) *Where {
	return w.add(Cond{Kind: CondCompare, Column: col, Op: op, Value: v})
}

// OrCond adds "col op value" joined with OR.
func (w *Where) OrCond(col Column, op Op, v any) *Where {
	return w.add(Cond{Or: true, Kind: CondCompare, Column: col, Op: op, Value: v})
}

// EQ adds "col = v". A nil value compiles to IS NULL and a slice to IN.
func (w *Where) EQ(col Column, v any) *Where { return w.Cond(col, OpEQ, v) }

// NEQ adds "col <> v".
func (w *Where) NEQ(col Column, v any) *Where { return w.Cond(col, OpNEQ, v) }

// GT adds "col > v".
func (w *Where) GT(col Column, v any) *Where { return w.Cond(col, OpGT, v) }

// GTE adds "col >= v".
func (w *Where) GTE(col Column, v any) *Where { return w.Cond(col, OpGTE, v) }

// LT adds "col < v".
func (w *Where) LT(col Column, v any) *Where { return w.Cond(col, OpLT, v) }

// LTE adds "col <= v".
func (w *Where) LTE(col Column, v any) *Where { return w.Cond(col, OpLTE, v) }

// In adds "col IN (vs...)". An empty list never matches.
func (w *Where) In(col Column, vs ...any) *Where { return w.Cond(col, OpIn, vs) }

// NotIn adds "col NOT IN (vs...)". An empty list always matches.
func (w *Where) NotIn(col Column, vs ...any) *Where { return w.Cond(col, OpNotIn, vs) }

// InQuery adds "col IN (sub-query)".
func (w *Where) InQuery(col Column, q *Query) *Where { return w.Cond(col, OpIn, q) }

// IsNull adds "col IS NULL".
func (w *Where) IsNull(col Column) *Where { return w.Cond(col, OpIsNull, nil) }

// NotNull adds "col IS NOT NULL".
func (w *Where) NotNull(col Column) *Where { return w.Cond(col, OpNotNull, nil) }

// Between adds "col BETWEEN lo AND hi".
func (w *Where) Between(col Column, lo, hi any) *Where {
	return w.Cond(col, OpBetween, [2]any{lo, hi})
}

// Like adds "col LIKE pattern". The pattern is used as given.
func (w *Where) Like(col Column, pattern string) *Where { return w.Cond(col, OpLike, pattern) }

// Contains adds a LIKE matching the substring. Wildcards in s are escaped.
func (w *Where) Contains(col Column, s string) *Where {
	return w.likeEscaped(col, "%"+EscapeLike(s)+"%")
}

// StartsWith adds a LIKE matching the prefix.
func (w *Where) StartsWith(col Column, s string) *Where {
	return w.likeEscaped(col, EscapeLike(s)+"%")
}

// EndsWith adds a LIKE matching the suffix.
func (w *Where) EndsWith(col Column, s string) *Where {
	return w.likeEscaped(col, "%"+EscapeLike(s))
}

func (w *Where) likeEscaped(col Column, pattern string) *Where {
	return w.add(Cond{Kind: CondCompare, Column: col, Op: OpLike, Value: pattern, Escape: true})
}

// Raw adds an unchecked expression joined with AND.
func (w *Where) Raw(text string, args ...any) *Where {
	return w.add(Cond{Kind: CondRaw, Raw: Expr(text, args...)})
}

// OrRaw adds an unchecked expression joined with OR.
func (w *Where) OrRaw(text string, args ...any) *Where {
	return w.add(Cond{Or: true, Kind: CondRaw, Raw: Expr(text, args...)})
}

// Group adds a parenthesized sub-tree joined with AND.
func (w *Where) Group(fn func(*Where)) *Where {
	g := NewWhere()
	fn(g)
	if g.IsEmpty() {
		return w
	}
	return w.add(Cond{Kind: CondGroup, Group: g})
}

// OrGroup adds a parenthesized sub-tree joined with OR.
func (w *Where) OrGroup(fn func(*Where)) *Where {
	g := NewWhere()
	fn(g)
	if g.IsEmpty() {
		return w
	}
	return w.add(Cond{Or: true, Kind: CondGroup, Group: g})
}

// Not adds a negated sub-tree.
func (w *Where) Not(fn func(*Where)) *Where {
	g := NewWhere()
	fn(g)
	if g.IsEmpty() {
		return w
	}
	return w.add(Cond{Not: true, Kind: CondGroup, Group: g})
}

// Exists adds "EXISTS (q)".
func (w *Where) Exists(q *Query) *Where {
	return w.add(Cond{Kind: CondExists, Query: q})
}

// NotExists adds "NOT EXISTS (q)".
func (w *Where) NotExists(q *Query) *Where {
	return w.add(Cond{Not: true, Kind: CondExists, Query: q})
}

// And appends all nodes of o, parenthesized when o joins with OR.
func (w *Where) And(o *Where) *Where {
	if o.IsEmpty() {
		return w
	}
	if o.HasOr() && !w.IsEmpty() {
		return w.add(Cond{Kind: CondGroup, Group: o.Clone()})
	}
	w.Conds = append(w.Conds, o.Clone().Conds...)
	return w
}

// Clone deep-copies the tree.
func (w *Where) Clone() *Where {
	if w == nil {
		return nil
	}
	c := &Where{Conds: make([]Cond, len(w.Conds))}
	for i, n := range w.Conds {
		if n.Group != nil {
			n.Group = n.Group.Clone()
		}
		if n.Query != nil {
			n.Query = n.Query.Clone()
		}
		c.Conds[i] = n
	}
	return c
}

// Rewrite returns a copy with fn applied to every column of the tree,
// including columns used as comparison values. The first error stops the
// walk.
func (w *Where) Rewrite(fn func(Column) (Column, error)) (*Where, error) {
	if w == nil {
		return nil, nil
	}
	out := &Where{Conds: make([]Cond, len(w.Conds))}
	for i, n := range w.Conds {
		var err error
		switch n.Kind {
		case CondCompare:
			if n.Column, err = fn(n.Column); err != nil {
				return nil, err
			}
			if v, ok := n.Value.(Column); ok {
				if n.Value, err = fn(v); err != nil {
					return nil, err
				}
			}
		case CondGroup:
			if n.Group, err = n.Group.Rewrite(fn); err != nil {
				return nil, err
			}
		}
		out.Conds[i] = n
	}
	return out, nil
}

// EscapeLike escapes the LIKE wildcards and the escape character itself.
func EscapeLike(s string) string {
	if !strings.ContainsAny(s, `%_\[`) {
		return s
	}
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '%', '_', '\\', '[':
			sb.WriteByte('\\')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
