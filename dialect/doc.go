// Package dialect names the database engines supported by orma and
// defines the executor interfaces the query layer runs statements through.
//
// # Supported Dialects
//
//	dialect.SQLServer = "sqlserver"
//	dialect.MySQL     = "mysql"
//	dialect.SQLite    = "sqlite"
//	dialect.Postgres  = "postgres"
//
// # ExecQuerier Interface
//
// ExecQuerier is implemented by both Driver and Tx:
//
//	type ExecQuerier interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	}
//
// Statements are produced by dialect/sql/sqlgrammar and are executed as-is;
// orma never opens or commits transactions on its own.
//
// # Sub-packages
//
//   - dialect/sql: clause model and the database/sql driver
//   - dialect/sql/sqlgrammar: per-dialect SQL compilation
//   - dialect/sql/sqlgraph: foreign-key trees and row mapping
package dialect
