package query

import (
	"context"
	"reflect"

	"github.com/syssam/orma"
	"github.com/syssam/orma/dialect/sql"
	"github.com/syssam/orma/dialect/sql/sqlgraph"
	"github.com/syssam/orma/schema"
)

// Get executes the query and returns the matching entities with their
// registered relationships loaded.
func (q *Query[T]) Get(ctx context.Context) ([]*T, error) {
	vs, err := q.get(ctx, "select")
	if err != nil {
		return nil, q.queryError("select", err)
	}
	return typed[T](vs), nil
}

// First returns the first entity, or a NotFoundError when none matches.
func (q *Query[T]) First(ctx context.Context) (*T, error) {
	vs, err := q.Clone().Limit(1).get(ctx, "first")
	if err != nil {
		return nil, q.queryError("first", err)
	}
	if len(vs) == 0 {
		return nil, orma.NewNotFoundError(q.label())
	}
	return vs[0].Interface().(*T), nil
}

// Only returns the single entity the query selects. It fails with a
// NotFoundError when none matches and a NotSingularError when more than
// one does.
func (q *Query[T]) Only(ctx context.Context) (*T, error) {
	vs, err := q.Clone().Limit(2).get(ctx, "only")
	if err != nil {
		return nil, q.queryError("only", err)
	}
	switch len(vs) {
	case 0:
		return nil, orma.NewNotFoundError(q.label())
	case 1:
		return vs[0].Interface().(*T), nil
	default:
		return nil, &orma.NotSingularError{Entity: q.label(), Seen: len(vs)}
	}
}

// Find returns the entity whose primary key is pk, with the other
// conditions of the query applied.
func (q *Query[T]) Find(ctx context.Context, pk any) (*T, error) {
	key := q.info.Key()
	if key == nil {
		return nil, q.queryError("find", &orma.InvalidOperationError{Op: "find", Reason: q.label() + " has no primary key"})
	}
	c := q.Clone()
	c.sql.AddWhere(func(w *sql.Where) {
		w.EQ(sql.Column{Table: c.ref(), Name: key.Name}, pk)
	})
	vs, err := c.Limit(1).get(ctx, "find")
	if err != nil {
		return nil, q.queryError("find", err)
	}
	if len(vs) == 0 {
		return nil, orma.NewNotFoundErrorWithID(q.label(), pk)
	}
	return vs[0].Interface().(*T), nil
}

// Count returns the number of rows the query selects.
func (q *Query[T]) Count(ctx context.Context) (int, error) {
	e, err := q.CountGrammar()
	if err != nil {
		return 0, q.queryError("count", err)
	}
	v, err := q.scalar(ctx, "count", e)
	if err != nil {
		return 0, q.queryError("count", err)
	}
	n, err := schema.Default.FromSQL(v, reflect.TypeFor[int]())
	if err != nil {
		return 0, q.queryError("count", err)
	}
	return n.(int), nil
}

// Exists reports whether the query selects any row.
func (q *Query[T]) Exists(ctx context.Context) (bool, error) {
	b, err := q.build()
	if err != nil {
		return false, q.queryError("exist", err)
	}
	e, err := q.g.Exists(b)
	if err != nil {
		return false, q.queryError("exist", err)
	}
	v, err := q.scalar(ctx, "exist", e)
	if err != nil {
		return false, q.queryError("exist", err)
	}
	ok, err := schema.Default.FromSQL(v, reflect.TypeFor[bool]())
	if err != nil {
		return false, q.queryError("exist", err)
	}
	return ok.(bool), nil
}

// Records executes the query and returns the rows as ordered records
// keyed by result column name. Relationships are not loaded.
func (q *Query[T]) Records(ctx context.Context) ([]*sqlgraph.Record, error) {
	e, err := q.Grammar()
	if err != nil {
		return nil, q.queryError("records", err)
	}
	rows, err := q.rows(ctx, "records", e)
	if err != nil {
		return nil, q.queryError("records", err)
	}
	recs, err := q.mapper().Records(ctx, rows)
	if err != nil {
		return nil, q.queryError("records", err)
	}
	return recs, nil
}

func (q *Query[T]) mapper() *sqlgraph.Mapper {
	return sqlgraph.NewMapper(q.tree,
		sqlgraph.WithStubs(q.cfg.CreateForeignIfNoDepth),
		sqlgraph.WithBatchSize(q.batchSize()),
	)
}

// batchSize bounds the configured batch size by the parameter limit of
// the dialect, since every key of a batch is one parameter.
func (q *Query[T]) batchSize() int {
	n := q.cfg.ForeignBatchSize
	if limit := q.g.Info().MaxParams; limit > 0 && n > limit {
		n = limit
	}
	return n
}

// get runs the SELECT, maps the rows and resolves the deferred
// relationships they reference.
func (q *Query[T]) get(ctx context.Context, op string) ([]reflect.Value, error) {
	e, err := q.Grammar()
	if err != nil {
		return nil, err
	}
	rows, err := q.rows(ctx, op, e)
	if err != nil {
		return nil, err
	}
	m := q.mapper()
	vs, err := m.Map(ctx, rows)
	if err != nil {
		return nil, err
	}
	if err := m.Resolve(ctx, q.loader(m)); err != nil {
		return nil, err
	}
	return vs, nil
}

// loader fetches the rows of a deferred node with the same grammar and
// maps them with m, so relationships below the node are queued on m.
func (q *Query[T]) loader(m *sqlgraph.Mapper) sqlgraph.Loader {
	return sqlgraph.LoaderFunc(func(ctx context.Context, n *sqlgraph.Node, column string, keys []any) ([]reflect.Value, error) {
		sq, err := q.nodeQuery(n, column, keys)
		if err != nil {
			return nil, err
		}
		e, err := q.g.Select(sq)
		if err != nil {
			return nil, err
		}
		rows, err := q.rows(ctx, "load "+n.Path(), e)
		if err != nil {
			return nil, err
		}
		return m.MapNode(ctx, rows, n)
	})
}
