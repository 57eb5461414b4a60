package sqlgrammar

import (
	"fmt"
	"strconv"
	"time"

	"github.com/syssam/orma"
	"github.com/syssam/orma/dialect/sql"
)

// Insert compiles a single-row INSERT. When returning names the key
// column, the statement reads the generated key back where the dialect
// does that in SQL.
func (g *Grammar) Insert(q *sql.Query, cells []sql.Cell, returning string) (sql.Expression, error) {
	b := g.builder()
	if !b.valid(q) || !b.names(cells) {
		return b.Query()
	}
	b.WriteString("INSERT INTO ").Table(q.Table)
	if len(cells) == 0 {
		b.output(returning).Pad().WriteString(g.info.DefaultValues)
		return b.returning(returning).Query()
	}
	b.Pad().Wrap(func(b *builder) {
		b.Join(len(cells), func(i int) { b.Ident(cells[i].Name) })
	})
	b.output(returning).WriteString(" VALUES ").Wrap(func(b *builder) {
		b.Join(len(cells), func(i int) { b.Arg(cells[i].Value) })
	})
	return b.returning(returning).Query()
}

// InsertSelect compiles INSERT INTO q (columns) SELECT ... from src.
func (g *Grammar) InsertSelect(q *sql.Query, columns []string, src *sql.Query) (sql.Expression, error) {
	b := g.builder()
	if !b.valid(q) || !b.columnNames(columns) {
		return b.Query()
	}
	if len(columns) == 0 {
		return b.AddError(&orma.InvalidOperationError{Op: "insert", Reason: "no columns to insert"}).Query()
	}
	b.WriteString("INSERT INTO ").Table(q.Table).Pad().Wrap(func(b *builder) {
		b.Join(len(columns), func(i int) { b.Ident(columns[i]) })
	})
	return b.Pad().Select(src).Query()
}

// BulkInsert compiles rows into as few INSERT statements as the parameter
// and row limits of the dialect allow, preserving row order. Every row
// must have the columns of the first, in the same order.
func (g *Grammar) BulkInsert(q *sql.Query, rows []sql.Row, returning string) (*sql.Batch, error) {
	b := g.builder()
	if !b.valid(q) {
		return nil, b.Err()
	}
	cols, err := g.rowColumns("insert", rows, nil)
	if err != nil {
		return nil, err
	}
	head := func(b *builder) {
		b.WriteString("INSERT INTO ").Table(q.Table).Pad().Wrap(func(b *builder) {
			b.Join(len(cols), func(i int) { b.Ident(cols[i]) })
		})
		b.output(returning).WriteString(" VALUES ")
	}
	tail := func(b *builder) { b.returning(returning) }
	return g.batch("insert", rows, cols, head, tail)
}

// batch renders the VALUES lists of rows between head and tail, starting
// a new statement whenever the next row would exceed the limits.
func (g *Grammar) batch(op string, rows []sql.Row, cols []string, head, tail func(*builder)) (*sql.Batch, error) {
	var (
		out  = &sql.Batch{}
		stmt *builder
		n    int
	)
	flush := func() error {
		if stmt == nil {
			return nil
		}
		tail(stmt)
		e, err := stmt.Query()
		if err != nil {
			return err
		}
		out.Add(e)
		stmt, n = nil, 0
		return nil
	}
	for i, r := range rows {
		row := g.builder()
		row.Wrap(func(b *builder) {
			b.Join(len(cols), func(j int) { b.Arg(cellValue(r, cols[j])) })
		})
		if err := row.Err(); err != nil {
			return nil, err
		}
		if len(row.args) > g.info.MaxParams {
			return nil, &orma.InvalidOperationError{Op: op, Reason: fmt.Sprintf("row %d needs %d parameters, the limit is %d", i, len(row.args), g.info.MaxParams)}
		}
		full := stmt != nil && (len(stmt.args)+len(row.args) > g.info.MaxParams ||
			g.info.MaxInsertRows > 0 && n == g.info.MaxInsertRows)
		if full {
			if err := flush(); err != nil {
				return nil, err
			}
		}
		if stmt == nil {
			stmt = g.builder()
			head(stmt)
		} else {
			stmt.Comma()
		}
		stmt.Append(row)
		n++
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return out, nil
}

// rowColumns returns the column list of rows: want when given, the names
// of the first row otherwise. Every row must hold every column.
func (g *Grammar) rowColumns(op string, rows []sql.Row, want []string) ([]string, error) {
	if len(rows) == 0 {
		return nil, &orma.InvalidOperationError{Op: op, Reason: "no rows"}
	}
	cols := want
	if cols == nil {
		cols = rows[0].Names()
	}
	if len(cols) == 0 {
		return nil, &orma.InvalidOperationError{Op: op, Reason: "no columns"}
	}
	for _, c := range cols {
		if !sql.ValidName(c) || c == "*" {
			return nil, &orma.InvalidNameError{Kind: "identifier", Name: c}
		}
	}
	for i, r := range rows {
		if want == nil && len(r) != len(cols) {
			return nil, &orma.InvalidOperationError{Op: op, Reason: fmt.Sprintf("row %d has %d columns, want %d", i, len(r), len(cols))}
		}
		for _, c := range cols {
			if !hasCell(r, c) {
				return nil, &orma.InvalidOperationError{Op: op, Reason: fmt.Sprintf("row %d has no column %s", i, c)}
			}
		}
	}
	return cols, nil
}

func hasCell(r sql.Row, name string) bool {
	for _, c := range r {
		if c.Name == name {
			return true
		}
	}
	return false
}

func cellValue(r sql.Row, name string) any {
	for _, c := range r {
		if c.Name == name {
			return c.Value
		}
	}
	return nil
}

// Update compiles an UPDATE of the rows q selects.
func (g *Grammar) Update(q *sql.Query, cells []sql.Cell) (sql.Expression, error) {
	return g.update(q, cells, q.Trashed)
}

// SoftDelete compiles the UPDATE that marks the rows q selects as deleted.
// Rows already deleted are left untouched.
func (g *Grammar) SoftDelete(q *sql.Query, now time.Time) (sql.Expression, error) {
	if q == nil || q.SoftDelete == nil {
		return sql.Expression{}, &orma.InvalidOperationError{Op: "soft delete", Reason: "table is not soft-delete mapped"}
	}
	cells := []sql.Cell{{Name: q.SoftDelete.Column, Value: sql.Expr(g.info.True)}}
	if q.SoftDelete.DateColumn != "" {
		cells = append(cells, sql.Cell{Name: q.SoftDelete.DateColumn, Value: now})
	}
	q = q.Clone()
	q.IgnoreTrashed = false
	return g.update(q, cells, orma.TrashedExcept)
}

// Restore compiles the UPDATE that clears the delete mark of the deleted
// rows q selects.
func (g *Grammar) Restore(q *sql.Query) (sql.Expression, error) {
	if q == nil || q.SoftDelete == nil {
		return sql.Expression{}, &orma.InvalidOperationError{Op: "restore", Reason: "table is not soft-delete mapped"}
	}
	cells := []sql.Cell{{Name: q.SoftDelete.Column, Value: sql.Expr(g.info.False)}}
	if q.SoftDelete.DateColumn != "" {
		cells = append(cells, sql.Cell{Name: q.SoftDelete.DateColumn, Value: sql.Expr("NULL")})
	}
	q = q.Clone()
	q.IgnoreTrashed = false
	return g.update(q, cells, orma.TrashedOnly)
}

func (g *Grammar) update(q *sql.Query, cells []sql.Cell, mode orma.Trashed) (sql.Expression, error) {
	b := g.builder()
	if !b.valid(q) {
		return b.Query()
	}
	if len(cells) == 0 {
		return sql.Expression{}, &orma.InvalidOperationError{Op: "update", Reason: "no columns to set"}
	}
	if err := g.checkDML("update", q); err != nil {
		return sql.Expression{}, err
	}
	if !b.names(cells) {
		return b.Query()
	}
	w := q.Where
	if pred, ok := g.trashed(q, mode); ok {
		w = and(w, pred)
	}
	set := func(b *builder) {
		b.WriteString(" SET ").Join(len(cells), func(i int) {
			b.Ident(cells[i].Name).WriteString(" = ").Arg(cells[i].Value)
		})
	}
	b.WriteString("UPDATE ")
	switch {
	case g.fromForm(q):
		b.top(q).Ident(q.Table.Ref())
		set(b)
		b.WriteString(" FROM ").Name(q.Table).joins(q.Joins)
	case len(q.Joins) > 0:
		b.Name(q.Table).joins(q.Joins)
		set(b)
	default:
		b.top(q).Name(q.Table)
		set(b)
	}
	if !w.IsEmpty() {
		b.WriteString(" WHERE ").Where(w)
	}
	return b.ordered(q).Query()
}

// Delete compiles a DELETE of the rows q selects. Soft-delete mapped
// tables are deleted physically; use SoftDelete to mark them instead.
func (g *Grammar) Delete(q *sql.Query) (sql.Expression, error) {
	b := g.builder()
	if !b.valid(q) {
		return b.Query()
	}
	if err := g.checkDML("delete", q); err != nil {
		return sql.Expression{}, err
	}
	b.WriteString("DELETE ")
	if g.fromForm(q) || len(q.Joins) > 0 {
		b.top(q).Ident(q.Table.Ref()).WriteString(" FROM ").Name(q.Table).joins(q.Joins)
	} else {
		b.top(q).WriteString("FROM ").Name(q.Table)
	}
	return b.filter(q).ordered(q).Query()
}

// fromForm reports whether the statement names its target by reference
// and lists the table in a FROM clause.
func (g *Grammar) fromForm(q *sql.Query) bool {
	return g.info.MultiTableDML == DMLJoinsFrom && (len(q.Joins) > 0 || q.Table.Alias != "")
}

// checkDML rejects clause combinations the dialect cannot express in
// UPDATE or DELETE.
func (g *Grammar) checkDML(op string, q *sql.Query) error {
	joined := len(q.Joins) > 0
	switch {
	case joined && g.info.MultiTableDML == NoDMLJoins:
		return g.notSupported(op, "joins require multi-table "+op)
	case len(q.GroupBy) > 0 || !q.Having.IsEmpty():
		return &orma.InvalidOperationError{Op: op, Reason: "grouping is not allowed"}
	case q.Offset != nil:
		return g.notSupported(op, "offset is not allowed")
	case len(q.Orders) > 0 && !g.info.OrderedDML:
		return g.notSupported(op, "ORDER BY is not allowed")
	case q.Limit != nil && !g.info.OrderedDML && !g.info.TopDML:
		return g.notSupported(op, "LIMIT is not allowed")
	case joined && g.info.OrderedDML && (len(q.Orders) > 0 || q.Limit != nil) && !g.info.TopDML:
		return g.notSupported(op, "ORDER BY and LIMIT are not allowed with joins")
	}
	return nil
}

// top writes TOP(n) for dialects limiting DML that way.
func (b *builder) top(q *sql.Query) *builder {
	if q.Limit != nil && b.g.info.TopDML {
		b.WriteString("TOP(").WriteString(strconv.Itoa(*q.Limit)).WriteString(") ")
	}
	return b
}

// ordered writes ORDER BY and LIMIT for dialects accepting them in DML.
func (b *builder) ordered(q *sql.Query) *builder {
	if !b.g.info.OrderedDML {
		return b
	}
	b.orderBy(q.Orders)
	if q.Limit != nil {
		b.WriteString(" LIMIT ").WriteString(strconv.Itoa(*q.Limit))
	}
	return b
}

// Table writes a table name without its alias.
func (b *builder) Table(n sql.DbName) *builder {
	if n.Unsafe() {
		return b.WriteString(n.Name)
	}
	return b.Ident(n.Name)
}

func (b *builder) output(pk string) *builder {
	if pk != "" && b.g.info.Returning == ReturningOutput {
		b.WriteString(" OUTPUT INSERTED.").Ident(pk)
	}
	return b
}

func (b *builder) returning(pk string) *builder {
	if pk != "" && b.g.info.Returning == ReturningClause {
		b.WriteString(" RETURNING ").Ident(pk)
	}
	return b
}

// names validates the column names of cells.
func (b *builder) names(cells []sql.Cell) bool {
	for _, c := range cells {
		if !sql.ValidName(c.Name) || c.Name == "*" {
			b.AddError(&orma.InvalidNameError{Kind: "identifier", Name: c.Name})
			return false
		}
	}
	return true
}

func (b *builder) columnNames(cols []string) bool {
	for _, c := range cols {
		if !sql.ValidName(c) || c == "*" {
			b.AddError(&orma.InvalidNameError{Kind: "identifier", Name: c})
			return false
		}
	}
	return true
}
