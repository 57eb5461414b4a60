package query

import (
	"context"
	"log/slog"

	"github.com/syssam/orma"
	"github.com/syssam/orma/dialect/sql"
	"github.com/syssam/orma/dialect/sql/sqlgraph"
)

// rebind converts the "?" placeholders of a compiled statement into the
// style of the driver.
func (q *Query[T]) rebind(e sql.Expression) sql.Expression {
	return e.Rebind(q.g.Info().Placeholder)
}

func (q *Query[T]) log(ctx context.Context, op string, e sql.Expression) {
	q.cfg.Logger.DebugContext(ctx, "orma: "+op,
		slog.String("entity", q.label()),
		slog.String("dialect", q.g.Dialect()),
		slog.String("sql", e.Text),
		slog.Int("args", len(e.Args)),
	)
}

// rows runs a compiled SELECT and returns its stream.
func (q *Query[T]) rows(ctx context.Context, op string, e sql.Expression) (sqlgraph.RowStream, error) {
	e = q.rebind(e)
	ctx = sql.WithOp(ctx, op)
	q.log(ctx, op, e)
	var rows sql.Rows
	if err := q.drv.Query(ctx, e.Text, e.Args, &rows); err != nil {
		return nil, err
	}
	s, err := sqlgraph.FromRows(rows.ColumnScanner)
	if err != nil {
		rows.Close()
		return nil, err
	}
	return s, nil
}

// scalar runs a compiled statement returning one value.
func (q *Query[T]) scalar(ctx context.Context, op string, e sql.Expression) (any, error) {
	s, err := q.rows(ctx, op, e)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	ok, err := s.Next(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		if err := s.Err(); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return s.Value(0), s.Err()
}

// exec runs a compiled statement and returns its result.
func (q *Query[T]) exec(ctx context.Context, op string, e sql.Expression) (sql.Result, error) {
	e = q.rebind(e)
	ctx = sql.WithOp(ctx, op)
	q.log(ctx, op, e)
	var res sql.Result
	if err := q.drv.Exec(ctx, e.Text, e.Args, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// affected runs every statement of b and sums the affected rows.
func (q *Query[T]) affected(ctx context.Context, op string, b *sql.Batch) (int64, error) {
	var n int64
	for _, e := range b.Expressions {
		res, err := q.exec(ctx, op, e)
		if err != nil {
			return n, err
		}
		c, err := res.RowsAffected()
		if err != nil {
			return n, err
		}
		n += c
	}
	return n, nil
}

func (q *Query[T]) queryError(op string, err error) error {
	if err == nil {
		return nil
	}
	return orma.NewQueryError(q.label(), op, err)
}

func (q *Query[T]) mutationError(op string, err error) error {
	if err == nil {
		return nil
	}
	return orma.NewMutationError(q.label(), op, sqlgraph.WrapConstraint(err))
}
