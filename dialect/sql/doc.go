// Package sql holds the dialect-neutral clause model and the database/sql
// backed driver.
//
// # Clause Model
//
// A Query is plain data: a table, projected Columns, Joins, a Where tree,
// grouping, ordering and pagination. The grammars in dialect/sql/sqlgrammar
// compile it into an Expression, a parameterized statement:
//
//	q := sql.NewQuery("Customers c").
//	    Select(sql.C("c.Id"), sql.C("c.Name")).
//	    AddWhere(func(w *sql.Where) {
//	        w.EQ(sql.C("c.Country"), "PT").Contains(sql.C("c.Name"), "50%")
//	    }).
//	    OrderBy(sql.C("c.Name"), sql.Asc).
//	    SetLimit(10)
//
// Identifiers are validated by ParseName; UnsafeName and RawColumn bypass
// validation and are emitted verbatim.
//
// # Expressions
//
// An Expression argument may itself be an Expression. Flatten splices the
// nested text and arguments into the parent so the placeholder count
// always matches the argument count:
//
//	inner := sql.Expr("UPPER(?)", "x")
//	sql.Expr("? = ?", inner, "X").Flatten() // UPPER(?) = ?  ["x" "X"]
//
// # Predicates
//
// Typed fields produce func(*Where) predicates:
//
//	var Name = sql.StringField[func(*sql.Where)]("name")
//	q.AddWhere(Name.HasPrefix("Jo"))
//
// # Drivers
//
// Driver wraps *database/sql.DB. StatsDriver and DebugDriver decorate any
// dialect.Driver with counters and log/slog output.
package sql
