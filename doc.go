// Package orma holds the settings and the error types shared by the orma
// packages.
//
// Queries are built with the query package, compiled by the grammars of
// dialect/sql/sqlgrammar and mapped back into structs, foreign
// relationships included, by dialect/sql/sqlgraph:
//
//	drv, err := sql.Open("sqlite", "file:app.db")
//	if err != nil {
//	    return err
//	}
//	q := query.MustNew[Order](drv, orma.NewConfig(dialect.SQLite))
//	if _, err := q.AddForeign("Customer", "Address"); err != nil {
//	    return err
//	}
//	orders, err := q.Where(expr.Field("Customer.Address.City"), "Porto").Get(ctx)
//
// Every error returned by the packages can be classified with the IsXxx
// helpers of this package, wrapped or not.
package orma
