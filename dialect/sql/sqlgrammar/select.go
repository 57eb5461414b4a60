package sqlgrammar

import (
	"strconv"

	"github.com/syssam/orma"
	"github.com/syssam/orma/dialect/sql"
)

const (
	rowNumberColumn  = "grammar_rownum"
	pageAlias        = "grammar_page"
	distinctAlias    = "grammar_distinct"
	pageColumnPrefix = "grammar_c"
	countAlias       = "count"
)

// Select compiles a SELECT statement.
func (g *Grammar) Select(q *sql.Query) (sql.Expression, error) {
	return g.builder().Select(q).Query()
}

// Count compiles a statement counting the rows Select would return,
// ignoring order and pagination. A single distinct column collapses to
// COUNT(DISTINCT col); other distinct or grouped shapes are counted over
// a derived table.
func (g *Grammar) Count(q *sql.Query) (sql.Expression, error) {
	b := g.builder()
	if !b.valid(q) {
		return b.Query()
	}
	inner := q.Clone()
	inner.Orders, inner.Limit, inner.Offset = nil, nil, nil
	switch {
	case len(q.GroupBy) > 0 || q.Distinct && (len(q.Columns) != 1 || q.Columns[0].IsWildcard()):
		if len(inner.Columns) == 0 && len(inner.GroupBy) > 0 {
			inner.Columns = inner.GroupBy
		}
		b.WriteString("SELECT COUNT(*) FROM ").Wrap(func(b *builder) { b.Select(inner) }).Pad().Ident(countAlias)
	case q.Distinct:
		b.WriteString("SELECT COUNT(DISTINCT ").Column(q.Columns[0]).Byte(')').from(inner)
	default:
		b.WriteString("SELECT COUNT(*)").from(inner)
	}
	return b.Query()
}

// Exists compiles a statement selecting whether any row matches.
func (g *Grammar) Exists(q *sql.Query) (sql.Expression, error) {
	b := g.builder()
	if !b.valid(q) {
		return b.Query()
	}
	inner := q.Clone()
	inner.Columns = []sql.Column{sql.RawColumn("1")}
	inner.Distinct = false
	inner.Orders, inner.Limit, inner.Offset = nil, nil, nil
	if g.info.ExistsCase {
		b.WriteString("SELECT CASE WHEN EXISTS ").Wrap(func(b *builder) { b.Select(inner) }).WriteString(" THEN 1 ELSE 0 END")
	} else {
		b.WriteString("SELECT EXISTS ").Wrap(func(b *builder) { b.Select(inner) })
	}
	return b.Query()
}

func (b *builder) valid(q *sql.Query) bool {
	if q == nil {
		b.AddError(&orma.InvalidOperationError{Op: "compile", Reason: "nil query"})
		return false
	}
	if err := q.Err(); err != nil {
		b.AddError(err)
		return false
	}
	if q.Table.IsZero() {
		b.AddError(&orma.InvalidOperationError{Op: "compile", Reason: "query has no table"})
		return false
	}
	return true
}

// Select writes a SELECT statement.
func (b *builder) Select(q *sql.Query) *builder {
	if !b.valid(q) {
		return b
	}
	if q.Offset != nil && b.g.info.Pagination == PaginateRowNumber {
		return b.rowNumber(q)
	}
	b.WriteString("SELECT ")
	if q.Distinct {
		b.WriteString("DISTINCT ")
	}
	if q.Limit != nil && q.Offset == nil && b.g.info.Pagination != PaginateLimitOffset {
		b.WriteString("TOP(").WriteString(strconv.Itoa(*q.Limit)).WriteString(") ")
	}
	b.Columns(q.Columns).from(q).groupBy(q).orderBy(q.Orders)
	return b.paginate(q)
}

// from writes the FROM, JOIN and WHERE clauses.
func (b *builder) from(q *sql.Query) *builder {
	b.WriteString(" FROM ").Name(q.Table)
	return b.joins(q.Joins).filter(q)
}

func (b *builder) joins(joins []*sql.Join) *builder {
	for _, j := range joins {
		b.Pad().WriteString(string(j.Type)).Pad().Name(j.Table)
		if j.Type != sql.CrossJoin && !j.On.IsEmpty() {
			b.WriteString(" ON ").Where(j.On)
		}
	}
	return b
}

// filter writes the WHERE clause including the soft-delete visibility
// predicate.
func (b *builder) filter(q *sql.Query) *builder {
	if w := b.g.visible(q); !w.IsEmpty() {
		b.WriteString(" WHERE ").Where(w)
	}
	return b
}

func (b *builder) groupBy(q *sql.Query) *builder {
	if len(q.GroupBy) > 0 {
		b.WriteString(" GROUP BY ").Join(len(q.GroupBy), func(i int) { b.Column(q.GroupBy[i]) })
	}
	if !q.Having.IsEmpty() {
		b.WriteString(" HAVING ").Where(q.Having)
	}
	return b
}

func (b *builder) orderBy(orders []sql.Order) *builder {
	if len(orders) == 0 {
		return b
	}
	b.WriteString(" ORDER BY ")
	return b.orders(orders)
}

func (b *builder) orders(orders []sql.Order) *builder {
	return b.Join(len(orders), func(i int) {
		dir := orders[i].Direction
		if dir == "" {
			dir = sql.Asc
		}
		b.Column(orders[i].Column).Pad().WriteString(string(dir))
	})
}

func (b *builder) paginate(q *sql.Query) *builder {
	if q.Limit == nil && q.Offset == nil {
		return b
	}
	switch b.g.info.Pagination {
	case PaginateLimitOffset:
		switch {
		case q.Limit != nil:
			b.WriteString(" LIMIT ").WriteString(strconv.Itoa(*q.Limit))
		case b.g.info.UnboundedLimit != "":
			b.WriteString(" LIMIT ").WriteString(b.g.info.UnboundedLimit)
		}
		if q.Offset != nil {
			b.WriteString(" OFFSET ").WriteString(strconv.Itoa(*q.Offset))
		}
	default:
		if q.Offset == nil {
			return b
		}
		if len(q.Orders) == 0 {
			b.WriteString(" ORDER BY (SELECT 0)")
		}
		b.WriteString(" OFFSET ").WriteString(strconv.Itoa(*q.Offset)).WriteString(" ROWS")
		if q.Limit != nil {
			b.WriteString(" FETCH NEXT ").WriteString(strconv.Itoa(*q.Limit)).WriteString(" ROWS ONLY")
		}
	}
	return b
}

// rowNumber writes the windowed pagination of servers without OFFSET.
// The outer select projects the page's own column names so the row
// number stays internal; a wildcard projection has no names to select and
// keeps *. Distinct rows are numbered over a derived table since the row
// number would make every row distinct. With legacy pagination on, every
// paged query takes this form and OFFSET/FETCH is never emitted.
func (b *builder) rowNumber(q *sql.Query) *builder {
	rn := b.g.Quote(rowNumberColumn)
	inner, outer, named := pageColumns(q.Columns)
	orders := q.Orders
	if q.Distinct {
		var ok bool
		if orders, ok = distinctOrders(q.Orders, inner, named); !ok {
			return b.AddError(b.g.notSupported("select", "ORDER BY items of a paged DISTINCT must be selected columns"))
		}
	}
	b.WriteString("SELECT ")
	if named {
		b.Columns(outer)
	} else {
		b.Byte('*')
	}
	b.WriteString(" FROM (SELECT ")
	switch {
	case !q.Distinct:
		b.Columns(inner)
	case named:
		b.Columns(outer)
	default:
		b.Byte('*')
	}
	b.WriteString(", ROW_NUMBER() OVER(ORDER BY ")
	if len(orders) == 0 {
		b.WriteString("(SELECT 0)")
	} else {
		b.orders(orders)
	}
	b.WriteString(") AS ").WriteString(rn)
	if q.Distinct {
		b.WriteString(" FROM (SELECT DISTINCT ").Columns(inner)
		b.from(q).groupBy(q)
		b.WriteString(") AS ").Ident(distinctAlias)
	} else {
		b.from(q).groupBy(q)
	}
	b.WriteString(") AS ").Ident(pageAlias).WriteString(" WHERE ").WriteString(rn).WriteString(" > ").WriteString(strconv.Itoa(*q.Offset))
	if q.Limit != nil {
		b.WriteString(" AND ").WriteString(rn).WriteString(" <= ").WriteString(strconv.Itoa(*q.Offset + *q.Limit))
	}
	return b.WriteString(" ORDER BY ").WriteString(rn)
}

// pageColumns names every column of a windowed page. inner is the
// projection with generated aliases where a column has no name of its
// own, outer selects those names from the derived table. named is false
// when the projection is empty or contains a wildcard.
func pageColumns(cols []sql.Column) (inner, outer []sql.Column, named bool) {
	if len(cols) == 0 {
		return cols, nil, false
	}
	for _, c := range cols {
		if c.IsWildcard() {
			return cols, nil, false
		}
	}
	inner = make([]sql.Column, len(cols))
	outer = make([]sql.Column, len(cols))
	for i, c := range cols {
		name := outputName(c)
		if name == "" {
			name = pageColumnPrefix + strconv.Itoa(i+1)
			c = c.As(name)
		}
		inner[i], outer[i] = c, sql.Column{Name: name}
	}
	return inner, outer, true
}

// outputName returns the result column name of c, or "" when the server
// would leave it unnamed.
func outputName(c sql.Column) string {
	switch {
	case c.Alias != "":
		return c.Alias
	case c.Raw == nil && c.Sub == nil && !c.IsLiteral() && len(c.Calls) == 0 && c.Name != "":
		return c.Name
	default:
		return ""
	}
}

// distinctOrders rewrites orders to reference the columns of the distinct
// derived table.
func distinctOrders(orders []sql.Order, inner []sql.Column, named bool) ([]sql.Order, bool) {
	out := make([]sql.Order, len(orders))
	for i, o := range orders {
		out[i] = o
		c := o.Column
		if !named {
			if c.Raw != nil || c.Sub != nil || c.IsLiteral() || len(c.Calls) > 0 || c.Name == "" {
				return nil, false
			}
			out[i].Column = sql.Column{Name: c.Name}
			continue
		}
		name := ""
		for _, p := range inner {
			if sameColumn(p, c) || (p.Alias != "" && c.Table == "" && c.Name == p.Alias && len(c.Calls) == 0) {
				name = outputName(p)
				break
			}
		}
		if name == "" {
			return nil, false
		}
		out[i].Column = sql.Column{Name: name}
	}
	return out, true
}

func sameColumn(a, b sql.Column) bool {
	return a.Raw == nil && b.Raw == nil && a.Sub == nil && b.Sub == nil &&
		!a.IsLiteral() && !b.IsLiteral() && len(a.Calls) == 0 && len(b.Calls) == 0 &&
		a.Table == b.Table && a.Name == b.Name && a.Name != ""
}

// visible returns the where tree of q with the soft-delete predicate of
// its visibility mode appended.
func (g *Grammar) visible(q *sql.Query) *sql.Where {
	pred, ok := g.trashed(q, q.Trashed)
	if !ok {
		return q.Where
	}
	return and(q.Where, pred)
}

// trashed returns the soft-delete predicate of mode, if any.
func (g *Grammar) trashed(q *sql.Query, mode orma.Trashed) (sql.Cond, bool) {
	if q.SoftDelete == nil || q.IgnoreTrashed {
		return sql.Cond{}, false
	}
	var v string
	switch mode {
	case orma.TrashedWith:
		return sql.Cond{}, false
	case orma.TrashedOnly:
		v = g.info.True
	default:
		v = g.info.False
	}
	col := sql.Column{Name: q.SoftDelete.Column}
	if len(q.Joins) > 0 {
		col.Table = q.Table.Ref()
	}
	return sql.Cond{Kind: sql.CondCompare, Column: col, Op: sql.OpEQ, Value: sql.Expr(v)}, true
}

// and returns w AND c, grouping w when it contains OR.
func and(w *sql.Where, c sql.Cond) *sql.Where {
	out := &sql.Where{}
	switch {
	case w.HasOr():
		out.Conds = append(out.Conds, sql.Cond{Kind: sql.CondGroup, Group: w})
	case !w.IsEmpty():
		out.Conds = append(out.Conds, w.Conds...)
	}
	if len(out.Conds) > 0 {
		c.Or = false
	}
	out.Conds = append(out.Conds, c)
	return out
}
