package sqlgrammar

import (
	"database/sql/driver"
	"fmt"
	"reflect"

	"github.com/syssam/orma"
	"github.com/syssam/orma/dialect/sql"
)

// Where writes the conditions of w, without the WHERE keyword.
func (b *builder) Where(w *sql.Where) *builder {
	if w.IsEmpty() {
		return b
	}
	for i, c := range w.Conds {
		if i > 0 {
			if c.Or {
				b.WriteString(" OR ")
			} else {
				b.WriteString(" AND ")
			}
		}
		b.Cond(c)
	}
	return b
}

// Cond writes one condition.
func (b *builder) Cond(c sql.Cond) *builder {
	switch c.Kind {
	case sql.CondRaw:
		if c.Not {
			b.WriteString("NOT ")
			return b.Wrap(func(b *builder) { b.Expr(c.Raw) })
		}
		return b.Expr(c.Raw)
	case sql.CondGroup:
		if c.Not {
			b.WriteString("NOT ")
		}
		return b.Wrap(func(b *builder) { b.Where(c.Group) })
	case sql.CondExists:
		if c.Not {
			b.WriteString("NOT ")
		}
		b.WriteString("EXISTS ")
		return b.Wrap(func(b *builder) { b.Select(c.Query) })
	case sql.CondCompare:
		if c.Not {
			b.WriteString("NOT ")
			return b.Wrap(func(b *builder) { b.compare(c) })
		}
		return b.compare(c)
	default:
		return b.AddError(&orma.InvalidOperationError{Op: "compile", Reason: fmt.Sprintf("unknown condition kind %d", c.Kind)})
	}
}

func (b *builder) compare(c sql.Cond) *builder {
	op, v := c.Op, c.Value
	null := isNull(v)
	switch {
	case null && op == sql.OpEQ:
		op = sql.OpIsNull
	case null && op == sql.OpNEQ:
		op = sql.OpNotNull
	case op == sql.OpEQ && isList(v):
		op = sql.OpIn
	case op == sql.OpNEQ && isList(v):
		op = sql.OpNotIn
	}
	switch op {
	case sql.OpIsNull, sql.OpNotNull:
		return b.Column(c.Column).Pad().WriteString(string(op))
	case sql.OpIn, sql.OpNotIn:
		if q, ok := v.(*sql.Query); ok {
			b.Column(c.Column).Pad().WriteString(string(op)).Pad()
			return b.Wrap(func(b *builder) { b.Select(q) })
		}
		items := listOf(v)
		if len(items) == 0 {
			if op == sql.OpIn {
				return b.WriteString("1=0")
			}
			return b.WriteString("1=1")
		}
		b.Column(c.Column).Pad().WriteString(string(op)).Pad()
		return b.Wrap(func(b *builder) {
			b.Join(len(items), func(i int) { b.Value(items[i]) })
		})
	case sql.OpBetween, sql.OpNotBetween:
		r, ok := v.([2]any)
		if !ok {
			return b.AddError(&orma.InvalidOperationError{Op: "compile", Reason: fmt.Sprintf("%s needs a [2]any range, got %T", op, v)})
		}
		b.Column(c.Column).Pad().WriteString(string(op)).Pad()
		return b.Value(r[0]).WriteString(" AND ").Value(r[1])
	case sql.OpEQ, sql.OpNEQ, sql.OpLT, sql.OpLTE, sql.OpGT, sql.OpGTE, sql.OpLike, sql.OpNotLike:
		b.Column(c.Column).Pad().WriteString(string(op)).Pad().Value(v)
		if c.Escape {
			b.WriteString(b.g.info.LikeEscape)
		}
		return b
	default:
		return b.AddError(&orma.InvalidOperationError{Op: "compile", Reason: fmt.Sprintf("unknown operator %q", op)})
	}
}

// Value writes a comparison operand: a column, a sub-query, an expression
// or a bound parameter.
func (b *builder) Value(v any) *builder {
	switch v := v.(type) {
	case *sql.Query:
		return b.Wrap(func(b *builder) { b.Select(v) })
	default:
		return b.Arg(v)
	}
}

// isNull reports whether v is a SQL NULL: nil, a nil pointer or
// interface, or a driver.Valuer producing nil.
func isNull(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return true
		}
	}
	if vr, ok := v.(driver.Valuer); ok {
		dv, err := vr.Value()
		return err == nil && dv == nil
	}
	return false
}

// isList reports whether v is a list of values rather than one value.
// Byte slices and driver.Valuer slices are single values.
func isList(v any) bool {
	switch v.(type) {
	case []byte, driver.Valuer:
		return false
	case []any:
		return true
	}
	return reflect.ValueOf(v).Kind() == reflect.Slice
}

// listOf expands v into its items.
func listOf(v any) []any {
	switch v := v.(type) {
	case nil:
		return nil
	case []any:
		return v
	}
	if !isList(v) {
		return []any{v}
	}
	rv := reflect.ValueOf(v)
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items
}
