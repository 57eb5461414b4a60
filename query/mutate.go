package query

import (
	"context"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/syssam/orma"
	"github.com/syssam/orma/dialect/sql"
	"github.com/syssam/orma/dialect/sql/sqlgrammar"
	"github.com/syssam/orma/schema"
)

// Insert writes v as a new row. Generated keys are stored back into v:
// zero keys with a generator are filled before the statement, auto
// increment keys are read back after it. Timestamp columns are set.
func (q *Query[T]) Insert(ctx context.Context, v *T) error {
	elem := reflect.ValueOf(v).Elem()
	cells, returning, err := q.insertCells(elem, q.cfg.Now())
	if err != nil {
		return q.mutationError("insert", err)
	}
	e, err := q.g.Insert(sql.From(q.sql.Table), cells, returning)
	if err != nil {
		return q.mutationError("insert", err)
	}
	if returning == "" {
		_, err := q.exec(ctx, "insert", e)
		return q.mutationError("insert", err)
	}
	var id any
	switch q.g.Info().Returning {
	case sqlgrammar.ReturningLastInsertID:
		res, err := q.exec(ctx, "insert", e)
		if err != nil {
			return q.mutationError("insert", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return q.mutationError("insert", err)
		}
	default:
		if id, err = q.scalar(ctx, "insert", e); err != nil {
			return q.mutationError("insert", err)
		}
	}
	if err := q.info.Key().Set(elem, id, nil); err != nil {
		return q.mutationError("insert", &orma.MappingError{Type: q.label(), Column: returning, Err: err})
	}
	return nil
}

// BulkInsert writes vs in as few statements as the dialect allows and
// returns the number of inserted rows. Auto increment keys are not read
// back. Rows leaving the key to the database and rows carrying their own
// key are inserted by separate statements, in order.
func (q *Query[T]) BulkInsert(ctx context.Context, vs []*T) (int64, error) {
	runs, err := q.runsOf(vs)
	if err != nil {
		return 0, q.mutationError("insert", err)
	}
	b := &sql.Batch{}
	for _, r := range runs {
		rb, err := q.g.BulkInsert(sql.From(q.sql.Table), r.rows, "")
		if err != nil {
			return 0, q.mutationError("insert", err)
		}
		b.Expressions = append(b.Expressions, rb.Expressions...)
	}
	n, err := q.affected(ctx, "insert", b)
	return n, q.mutationError("insert", err)
}

// Upsert inserts vs or updates the rows matching them on u.Keys, the
// primary key when u names none. It returns the affected row count as
// reported by the driver. Rows whose auto increment key is zero cannot
// match on it and are inserted.
func (q *Query[T]) Upsert(ctx context.Context, vs []*T, u sql.Upsert) (int64, error) {
	key := q.info.Key()
	if len(u.Keys) == 0 {
		if key == nil {
			return 0, q.mutationError("upsert", &orma.InvalidOperationError{Op: "upsert", Reason: q.label() + " has no primary key"})
		}
		u.Keys = []string{key.Name}
	}
	runs, err := q.runsOf(vs)
	if err != nil {
		return 0, q.mutationError("upsert", err)
	}
	b := &sql.Batch{}
	for _, r := range runs {
		var (
			rb  *sql.Batch
			err error
		)
		switch {
		case r.keyed:
			rb, err = q.g.Upsert(sql.From(q.sql.Table), r.rows, u)
		case slices.ContainsFunc(u.Keys, func(k string) bool { return strings.EqualFold(k, key.Name) }):
			rb, err = q.g.BulkInsert(sql.From(q.sql.Table), r.rows, "")
		default:
			ru := u
			ru.Insert = slices.DeleteFunc(slices.Clone(u.Insert), func(c string) bool { return strings.EqualFold(c, key.Name) })
			rb, err = q.g.Upsert(sql.From(q.sql.Table), r.rows, ru)
		}
		if err != nil {
			return 0, q.mutationError("upsert", err)
		}
		b.Expressions = append(b.Expressions, rb.Expressions...)
	}
	n, err := q.affected(ctx, "upsert", b)
	return n, q.mutationError("upsert", err)
}

// Update writes every column of v but the key, matching the row on the
// key. Deleted rows are updated too.
func (q *Query[T]) Update(ctx context.Context, v *T) (int64, error) {
	key := q.info.Key()
	if key == nil {
		return 0, q.mutationError("update", &orma.InvalidOperationError{Op: "update", Reason: q.label() + " has no primary key"})
	}
	elem := reflect.ValueOf(v).Elem()
	now := q.cfg.Now()
	var cells []sql.Cell
	for _, c := range q.info.Natives() {
		switch {
		case c.Key || c.ReadOnly || q.is(c, q.info.CreatedAt):
			continue
		case q.is(c, q.info.UpdatedAt):
			if err := c.Set(elem, now, nil); err != nil {
				return 0, q.mutationError("update", &orma.MappingError{Type: q.label(), Column: c.Name, Err: err})
			}
		}
		val, err := c.Value(elem, nil)
		if err != nil {
			return 0, q.mutationError("update", &orma.MappingError{Type: q.label(), Column: c.Name, Err: err})
		}
		cells = append(cells, sql.Cell{Name: c.Name, Value: val})
	}
	id, err := key.Value(elem, nil)
	if err != nil {
		return 0, q.mutationError("update", err)
	}
	target := sql.From(q.sql.Table)
	target.SoftDelete = q.info.SoftDelete
	target.IgnoreTrashed = true
	target.AddWhere(func(w *sql.Where) { w.EQ(sql.Column{Table: target.Table.Ref(), Name: key.Name}, id) })
	e, err := q.g.Update(target, cells)
	if err != nil {
		return 0, q.mutationError("update", err)
	}
	return q.rowsAffected(ctx, "update", e)
}

// UpdateCells sets cells on every row the query selects. The update
// timestamp is added unless cells set it.
func (q *Query[T]) UpdateCells(ctx context.Context, cells ...sql.Cell) (int64, error) {
	b, err := q.dml()
	if err != nil {
		return 0, q.mutationError("update", err)
	}
	if q.info.UpdatedAt != "" && !hasCell(cells, q.info.UpdatedAt) {
		cells = append(cells, sql.Cell{Name: q.info.UpdatedAt, Value: q.cfg.Now()})
	}
	e, err := q.g.Update(b, cells)
	if err != nil {
		return 0, q.mutationError("update", err)
	}
	return q.rowsAffected(ctx, "update", e)
}

// Delete removes the rows the query selects. Rows of soft-delete mapped
// tables are marked deleted instead.
func (q *Query[T]) Delete(ctx context.Context) (int64, error) {
	b, err := q.dml()
	if err != nil {
		return 0, q.mutationError("delete", err)
	}
	var e sql.Expression
	if b.SoftDelete != nil {
		e, err = q.g.SoftDelete(b, q.cfg.Now())
	} else {
		e, err = q.g.Delete(b)
	}
	if err != nil {
		return 0, q.mutationError("delete", err)
	}
	return q.rowsAffected(ctx, "delete", e)
}

// ForceDelete physically removes the rows the query selects, deleted or
// not.
func (q *Query[T]) ForceDelete(ctx context.Context) (int64, error) {
	b, err := q.dml()
	if err != nil {
		return 0, q.mutationError("delete", err)
	}
	b.IgnoreTrashed = true
	e, err := q.g.Delete(b)
	if err != nil {
		return 0, q.mutationError("delete", err)
	}
	return q.rowsAffected(ctx, "delete", e)
}

// Restore clears the delete mark of the deleted rows the query selects.
func (q *Query[T]) Restore(ctx context.Context) (int64, error) {
	b, err := q.dml()
	if err != nil {
		return 0, q.mutationError("restore", err)
	}
	e, err := q.g.Restore(b)
	if err != nil {
		return 0, q.mutationError("restore", err)
	}
	return q.rowsAffected(ctx, "restore", e)
}

func (q *Query[T]) rowsAffected(ctx context.Context, op string, e sql.Expression) (int64, error) {
	res, err := q.exec(ctx, op, e)
	if err != nil {
		return 0, q.mutationError(op, err)
	}
	n, err := res.RowsAffected()
	return n, q.mutationError(op, err)
}

// insertCells returns the cells inserting elem and the key column to read
// back, if any.
func (q *Query[T]) insertCells(elem reflect.Value, now time.Time) ([]sql.Cell, string, error) {
	var (
		cells     []sql.Cell
		returning string
		flagged   bool
	)
	for _, c := range q.info.Natives() {
		if c.ReadOnly {
			continue
		}
		if c.Key {
			if f := c.FieldOf(elem); f.IsValid() && f.IsZero() {
				switch {
				case c.Generate != nil:
					if err := c.SetValue(elem, c.Generate()); err != nil {
						return nil, "", &orma.MappingError{Type: q.label(), Column: c.Name, Err: err}
					}
				case c.AutoIncrement:
					returning = c.Name
					continue
				}
			}
		}
		if q.is(c, q.info.CreatedAt) || q.is(c, q.info.UpdatedAt) {
			if err := c.Set(elem, now, nil); err != nil {
				return nil, "", &orma.MappingError{Type: q.label(), Column: c.Name, Err: err}
			}
		}
		if sd := q.info.SoftDelete; sd != nil && strings.EqualFold(c.Name, sd.Column) {
			flagged = true
		}
		val, err := c.Value(elem, nil)
		if err != nil {
			return nil, "", &orma.MappingError{Type: q.label(), Column: c.Name, Err: err}
		}
		cells = append(cells, sql.Cell{Name: c.Name, Value: val})
	}
	if sd := q.info.SoftDelete; sd != nil && !flagged {
		cells = append(cells, sql.Cell{Name: sd.Column, Value: sql.Expr(q.g.Info().False)})
	}
	return cells, returning, nil
}

// keyRun is a run of consecutive insert rows agreeing on whether they
// carry the auto increment key.
type keyRun struct {
	rows  []sql.Row
	keyed bool
}

// runsOf returns the insert rows of vs split into key runs.
func (q *Query[T]) runsOf(vs []*T) ([]keyRun, error) {
	now := q.cfg.Now()
	var runs []keyRun
	for _, v := range vs {
		cells, generated, err := q.insertCells(reflect.ValueOf(v).Elem(), now)
		if err != nil {
			return nil, err
		}
		keyed := generated == ""
		if n := len(runs); n > 0 && runs[n-1].keyed == keyed {
			runs[n-1].rows = append(runs[n-1].rows, cells)
			continue
		}
		runs = append(runs, keyRun{rows: []sql.Row{cells}, keyed: keyed})
	}
	if len(runs) == 0 {
		return nil, &orma.InvalidOperationError{Op: "insert", Reason: "no rows"}
	}
	return runs, nil
}

// is reports whether c is the column named name.
func (q *Query[T]) is(c *schema.ColumnInfo, name string) bool {
	return name != "" && strings.EqualFold(c.Name, name)
}

func hasCell(cells []sql.Cell, name string) bool {
	for _, c := range cells {
		if strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}
