package query

import (
	"fmt"
	"reflect"

	"github.com/syssam/orma"
	"github.com/syssam/orma/dialect"
	"github.com/syssam/orma/dialect/sql"
	"github.com/syssam/orma/dialect/sql/sqlgrammar"
	"github.com/syssam/orma/dialect/sql/sqlgraph"
	"github.com/syssam/orma/expr"
	"github.com/syssam/orma/schema"
)

// Query is the builder for querying and mutating T entities.
type Query[T any] struct {
	drv  dialect.ExecQuerier
	cfg  orma.Config
	g    *sqlgrammar.Grammar
	info *schema.TableInfo
	tree *sqlgraph.Tree

	sql *sql.Query
	// selected holds the projection set by Select; empty selects the
	// mapped columns of T and of its joined relationships.
	selected []sql.Column
	errs     []error
}

// New returns a query of T executed on drv. The dialect is taken from
// cfg, or from drv when cfg names none.
func New[T any](drv dialect.ExecQuerier, cfg orma.Config) (*Query[T], error) {
	cfg = cfg.WithDefaults()
	name := cfg.Dialect
	if name == "" {
		if d, ok := drv.(interface{ Dialect() string }); ok {
			name = d.Dialect()
		}
	}
	if name == "" {
		return nil, &orma.InvalidOperationError{Op: "query", Reason: "no dialect configured"}
	}
	cfg.Dialect = name
	g, err := sqlgrammar.New(name, sqlgrammar.FromConfig(cfg)...)
	if err != nil {
		return nil, err
	}
	info, err := schema.Of[T]()
	if err != nil {
		return nil, err
	}
	table, err := sql.ParseName(info.Name)
	if err != nil {
		return nil, err
	}
	tree := sqlgraph.NewTree(info)
	if err := tree.AddAll(cfg.ForeignDepth); err != nil {
		return nil, err
	}
	q := &Query[T]{drv: drv, cfg: cfg, g: g, info: info, tree: tree, sql: sql.From(table)}
	q.sql.SoftDelete = info.SoftDelete
	q.sql.Trashed = cfg.Trashed
	return q, nil
}

// MustNew is like New but panics on error.
func MustNew[T any](drv dialect.ExecQuerier, cfg orma.Config) *Query[T] {
	q, err := New[T](drv, cfg)
	if err != nil {
		panic(err)
	}
	return q
}

// Clone returns a copy of the clauses. Relationship declarations are
// shared with q.
func (q *Query[T]) Clone() *Query[T] {
	c := *q
	c.sql = q.sql.Clone()
	c.selected = append([]sql.Column(nil), q.selected...)
	c.errs = append([]error(nil), q.errs...)
	return &c
}

// Table returns the mapping of T.
func (q *Query[T]) Table() *schema.TableInfo { return q.info }

// Tree returns the relationship tree of the query.
func (q *Query[T]) Tree() *sqlgraph.Tree { return q.tree }

// ref is how the root table is referenced by qualified columns.
func (q *Query[T]) ref() string { return q.sql.Table.Ref() }

// column compiles a single-valued expression on T.
func (q *Query[T]) column(n expr.Node) (sql.Column, bool) {
	cols, err := expr.Compile(q.info.Type, n)
	if err != nil {
		q.errs = append(q.errs, err)
		return sql.Column{}, false
	}
	if len(cols) != 1 {
		q.errs = append(q.errs, &orma.InvalidExpressionError{Expr: n.String(), Reason: fmt.Sprintf("expected one value, got %d", len(cols))})
		return sql.Column{}, false
	}
	return cols[0], true
}

// value turns expression operands into columns and keeps other values.
func (q *Query[T]) value(v any) (any, bool) {
	n, ok := v.(expr.Node)
	if !ok {
		return v, true
	}
	return q.column(n)
}

// Where adds the condition n = v with AND. v may be an expression, which
// compares two columns.
func (q *Query[T]) Where(n expr.Node, v any) *Query[T] {
	return q.WhereOp(n, sql.OpEQ, v)
}

// WhereOp adds the condition n op v with AND.
func (q *Query[T]) WhereOp(n expr.Node, op sql.Op, v any) *Query[T] {
	col, ok := q.column(n)
	if !ok {
		return q
	}
	if v, ok = q.value(v); ok {
		q.sql.AddWhere(func(w *sql.Where) { w.Cond(col, op, v) })
	}
	return q
}

// OrWhere adds the condition n = v with OR.
func (q *Query[T]) OrWhere(n expr.Node, v any) *Query[T] {
	col, ok := q.column(n)
	if !ok {
		return q
	}
	if v, ok = q.value(v); ok {
		q.sql.AddWhere(func(w *sql.Where) { w.OrCond(col, sql.OpEQ, v) })
	}
	return q
}

// WhereIn adds the condition n IN (vs...).
func (q *Query[T]) WhereIn(n expr.Node, vs ...any) *Query[T] {
	if col, ok := q.column(n); ok {
		q.sql.AddWhere(func(w *sql.Where) { w.In(col, vs...) })
	}
	return q
}

// WhereNull adds the condition n IS NULL.
func (q *Query[T]) WhereNull(n expr.Node) *Query[T] {
	if col, ok := q.column(n); ok {
		q.sql.AddWhere(func(w *sql.Where) { w.IsNull(col) })
	}
	return q
}

// WhereRaw adds a verbatim condition. It is not validated.
func (q *Query[T]) WhereRaw(text string, args ...any) *Query[T] {
	q.sql.AddWhere(func(w *sql.Where) { w.Raw(text, args...) })
	return q
}

// WhereFunc adds conditions built directly on the where tree. Columns
// are rendered as given.
func (q *Query[T]) WhereFunc(fn func(*sql.Where)) *Query[T] {
	q.sql.AddWhere(fn)
	return q
}

// Filter adds typed field predicates with AND. Field columns are not
// qualified by table, so members of joined relationships go through
// WhereOp instead.
//
//	type CustomerPredicate func(*sql.Where)
//	var Name = sql.StringField[CustomerPredicate]("Name")
//	q.Filter(Name.HasPrefix("Jo"), Name.NEQ("John"))
func (q *Query[T]) Filter(ps ...func(*sql.Where)) *Query[T] {
	for _, p := range ps {
		if p != nil {
			q.sql.AddWhere(p)
		}
	}
	return q
}

// Join declares a relationship loaded by LEFT JOIN and returns its node.
// Members of joined relationships may be used in conditions and orders.
func (q *Query[T]) Join(path ...string) (*sqlgraph.Node, error) {
	return q.tree.Join(path...)
}

// Include declares a relationship loaded by secondary queries after the
// rows of T are read.
func (q *Query[T]) Include(path ...string) (*sqlgraph.Node, error) {
	return q.tree.Add(path...)
}

// AddForeign declares a relationship joined when every hop of the path
// is single-valued and included otherwise.
func (q *Query[T]) AddForeign(path ...string) (*sqlgraph.Node, error) {
	n, err := q.tree.Add(path...)
	if err != nil {
		return nil, err
	}
	for p := n; p != nil; p = p.Parent {
		if p.Collection {
			return n, nil
		}
	}
	return q.tree.Join(path...)
}

// OrderBy appends an ascending order term.
func (q *Query[T]) OrderBy(n expr.Node) *Query[T] {
	if col, ok := q.column(n); ok {
		q.sql.OrderBy(col, sql.Asc)
	}
	return q
}

// OrderByDesc appends a descending order term.
func (q *Query[T]) OrderByDesc(n expr.Node) *Query[T] {
	if col, ok := q.column(n); ok {
		q.sql.OrderBy(col, sql.Desc)
	}
	return q
}

// GroupBy appends grouping terms.
func (q *Query[T]) GroupBy(ns ...expr.Node) *Query[T] {
	for _, n := range ns {
		if col, ok := q.column(n); ok {
			q.sql.GroupBy = append(q.sql.GroupBy, col)
		}
	}
	return q
}

// Having adds conditions on the groups.
func (q *Query[T]) Having(fn func(*sql.Where)) *Query[T] {
	if q.sql.Having == nil {
		q.sql.Having = sql.NewWhere()
	}
	fn(q.sql.Having)
	return q
}

// Select replaces the projection with the columns n produces. A
// construction selects one column per member.
func (q *Query[T]) Select(n expr.Node) *Query[T] {
	cols, err := expr.Compile(q.info.Type, n)
	if err != nil {
		q.errs = append(q.errs, err)
		return q
	}
	q.selected = cols
	return q
}

// Limit the number of records to be returned by this query.
func (q *Query[T]) Limit(n int) *Query[T] {
	q.sql.SetLimit(n)
	return q
}

// Offset to start from.
func (q *Query[T]) Offset(n int) *Query[T] {
	q.sql.SetOffset(n)
	return q
}

// Distinct removes duplicate rows.
func (q *Query[T]) Distinct() *Query[T] {
	q.sql.SetDistinct(true)
	return q
}

// WithTrashed includes soft-deleted rows.
func (q *Query[T]) WithTrashed() *Query[T] {
	q.sql.Trashed = orma.TrashedWith
	return q
}

// OnlyTrashed selects soft-deleted rows only.
func (q *Query[T]) OnlyTrashed() *Query[T] {
	q.sql.Trashed = orma.TrashedOnly
	return q
}

// label is the entity name used in errors.
func (q *Query[T]) label() string {
	return q.info.Label()
}

// typed converts mapped instances into *T.
func typed[T any](vs []reflect.Value) []*T {
	out := make([]*T, len(vs))
	for i, v := range vs {
		out[i] = v.Interface().(*T)
	}
	return out
}
