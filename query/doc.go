// Package query is the typed entry point of orma. A Query[T] collects
// conditions, orders and relationship declarations on the mapped struct
// T, compiles them with the grammar of the driver's dialect and maps the
// results back into *T values.
//
//	q, err := query.New[Order](drv, orma.NewConfig(dialect.SQLite))
//	if err != nil {
//		return err
//	}
//	if _, err := q.Join("Customer"); err != nil {
//		return err
//	}
//	orders, err := q.Where(expr.Field("Customer.Name"), "alice").
//		OrderByDesc(expr.Field("Total")).
//		Get(ctx)
//
// Joined relationships are read in the same statement; included ones are
// loaded after the rows of T by one query per distinct key, or per batch
// of keys when orma.Config.ForeignBatchSize is set.
package query
