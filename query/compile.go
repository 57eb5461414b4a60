package query

import (
	"github.com/syssam/orma"
	"github.com/syssam/orma/dialect/sql"
	"github.com/syssam/orma/dialect/sql/sqlgraph"
)

// build returns the clause model with member columns resolved against
// the relationship tree and the projection filled in. Unregistered
// relationship members fail here, so declarations may follow the
// conditions that use them.
func (q *Query[T]) build() (*sql.Query, error) {
	if err := orma.NewAggregateError(q.errs...); err != nil {
		return nil, err
	}
	if err := q.sql.Err(); err != nil {
		return nil, err
	}
	ref := q.ref()
	out := q.sql.Clone()
	var err error
	if len(q.selected) > 0 {
		if out.Columns, err = q.tree.ResolveColumns(q.selected, ref); err != nil {
			return nil, err
		}
	} else {
		out.Columns = append(sqlgraph.Projection(q.info, ref), q.tree.Columns()...)
	}
	out.Joins = append(q.tree.Joins(ref), out.Joins...)
	if out.Where, err = q.tree.ResolveWhere(out.Where, ref); err != nil {
		return nil, err
	}
	if out.Having, err = q.tree.ResolveWhere(out.Having, ref); err != nil {
		return nil, err
	}
	if out.GroupBy, err = q.tree.ResolveColumns(out.GroupBy, ref); err != nil {
		return nil, err
	}
	for i, o := range out.Orders {
		if out.Orders[i].Column, err = q.tree.Resolve(o.Column, ref); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Grammar returns the SELECT statement the query executes, with "?"
// placeholders, for inspection.
func (q *Query[T]) Grammar() (sql.Expression, error) {
	b, err := q.build()
	if err != nil {
		return sql.Expression{}, err
	}
	return q.g.Select(b)
}

// CountGrammar returns the statement Count executes.
func (q *Query[T]) CountGrammar() (sql.Expression, error) {
	b, err := q.build()
	if err != nil {
		return sql.Expression{}, err
	}
	return q.g.Count(b)
}

// dml returns the built query without projection, for UPDATE and DELETE.
func (q *Query[T]) dml() (*sql.Query, error) {
	b, err := q.build()
	if err != nil {
		return nil, err
	}
	b.Columns = nil
	b.Distinct = false
	return b, nil
}

// nodeQuery returns the secondary query loading the rows of n whose
// column matches one of keys, with n's joined relationships.
func (q *Query[T]) nodeQuery(n *sqlgraph.Node, column string, keys []any) (*sql.Query, error) {
	table, err := sql.ParseName(n.Table.Name)
	if err != nil {
		return nil, err
	}
	ref := table.Ref()
	sq := sql.From(table)
	sq.Columns = append(sqlgraph.Projection(n.Table, ref), n.Columns()...)
	sq.Joins = n.Joins(ref)
	sq.SoftDelete = n.Table.SoftDelete
	sq.Trashed = q.cfg.Trashed
	col := sql.Column{Table: ref, Name: column}
	sq.AddWhere(func(w *sql.Where) {
		if len(keys) == 1 {
			w.EQ(col, keys[0])
		} else {
			w.In(col, keys...)
		}
	})
	return sq, nil
}
