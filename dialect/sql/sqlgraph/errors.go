package sqlgraph

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/syssam/orma"
)

// IsConstraintError returns true if the error resulted from a database constraint violation.
func IsConstraintError(err error) bool {
	var e orma.ConstraintError
	return errors.As(err, &e) ||
		IsUniqueConstraintError(err) ||
		IsForeignKeyConstraintError(err) ||
		IsCheckConstraintError(err)
}

// WrapConstraint wraps driver constraint violations into an
// orma.ConstraintError and returns other errors unchanged.
func WrapConstraint(err error) error {
	var e orma.ConstraintError
	switch {
	case err == nil, errors.As(err, &e):
		return err
	case IsUniqueConstraintError(err):
		return orma.NewConstraintError("unique: "+err.Error(), err)
	case IsForeignKeyConstraintError(err):
		return orma.NewConstraintError("foreign key: "+err.Error(), err)
	case IsCheckConstraintError(err):
		return orma.NewConstraintError("check: "+err.Error(), err)
	}
	return err
}

// sqliteCoder is implemented by modernc.org/sqlite errors.
type sqliteCoder interface {
	Code() int
}

// sqlServerNumberer is implemented by go-mssqldb errors.
type sqlServerNumberer interface {
	SQLErrorNumber() int32
}

// PostgreSQL SQLSTATE codes for constraint violations (Class 23).
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// MySQL error numbers for constraint violations.
const (
	mysqlDuplicateEntry         = 1062
	mysqlForeignKeyParent       = 1451 // Cannot delete or update a parent row
	mysqlForeignKeyChild        = 1452 // Cannot add or update a child row
	mysqlCheckConstraintViolate = 3819
)

// SQLite extended result codes.
const (
	sqliteConstraintCheck      = 275
	sqliteConstraintForeignKey = 787
	sqliteConstraintPrimaryKey = 1555
	sqliteConstraintUnique     = 2067
)

// SQL Server error numbers.
const (
	mssqlUniqueIndex      = 2601
	mssqlUniqueConstraint = 2627
	mssqlReference        = 547 // foreign key and check conflicts
)

// IsUniqueConstraintError reports if the error resulted from a DB uniqueness constraint violation.
// e.g. duplicate value in unique index.
func IsUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if code, ok := sqlState(err); ok {
		return code == pgUniqueViolation
	}
	if e, ok := asError[*mysql.MySQLError](err); ok {
		return e.Number == mysqlDuplicateEntry
	}
	if e, ok := asError[sqliteCoder](err); ok {
		if c := e.Code(); c == sqliteConstraintUnique || c == sqliteConstraintPrimaryKey {
			return true
		}
	}
	if e, ok := asError[sqlServerNumberer](err); ok {
		if n := e.SQLErrorNumber(); n == mssqlUniqueIndex || n == mssqlUniqueConstraint {
			return true
		}
	}
	// Fallback to string matching for drivers that don't implement interfaces
	return containsAny(err.Error(),
		"Error 1062",                 // MySQL (string fallback)
		"violates unique constraint", // Postgres (string fallback)
		"UNIQUE constraint failed",   // SQLite
	)
}

// IsForeignKeyConstraintError reports if the error resulted from a database foreign-key constraint violation.
// e.g. parent row does not exist.
func IsForeignKeyConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if code, ok := sqlState(err); ok {
		return code == pgForeignKeyViolation
	}
	if e, ok := asError[*mysql.MySQLError](err); ok {
		return e.Number == mysqlForeignKeyParent || e.Number == mysqlForeignKeyChild
	}
	if e, ok := asError[sqliteCoder](err); ok && e.Code() == sqliteConstraintForeignKey {
		return true
	}
	if e, ok := asError[sqlServerNumberer](err); ok && e.SQLErrorNumber() == mssqlReference {
		return strings.Contains(err.Error(), "FOREIGN KEY") || strings.Contains(err.Error(), "REFERENCE")
	}
	return containsAny(err.Error(),
		"Error 1451",                      // MySQL (Cannot delete or update a parent row)
		"Error 1452",                      // MySQL (Cannot add or update a child row)
		"violates foreign key constraint", // Postgres
		"FOREIGN KEY constraint failed",   // SQLite
	)
}

// IsCheckConstraintError reports if the error resulted from a database check constraint violation.
// e.g. a value does not satisfy a check condition.
func IsCheckConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if code, ok := sqlState(err); ok {
		return code == pgCheckViolation
	}
	if e, ok := asError[*mysql.MySQLError](err); ok {
		return e.Number == mysqlCheckConstraintViolate
	}
	if e, ok := asError[sqliteCoder](err); ok && e.Code() == sqliteConstraintCheck {
		return true
	}
	if e, ok := asError[sqlServerNumberer](err); ok && e.SQLErrorNumber() == mssqlReference {
		return strings.Contains(err.Error(), "CHECK")
	}
	return containsAny(err.Error(),
		"Error 3819",                // MySQL
		"violates check constraint", // Postgres
		"CHECK constraint failed",   // SQLite
	)
}

// sqlState returns the SQLSTATE of a lib/pq or pgx error.
func sqlState(err error) (string, bool) {
	if e, ok := asError[*pq.Error](err); ok {
		return string(e.Code), true
	}
	if e, ok := asError[*pgconn.PgError](err); ok {
		return e.Code, true
	}
	return "", false
}

// asError attempts to extract an error implementing interface T from the error chain.
func asError[T any](err error) (T, bool) {
	var target T
	for err != nil {
		if e, ok := err.(T); ok {
			return e, true
		}
		err = errors.Unwrap(err)
	}
	return target, false
}

// containsAny returns true if s contains any of the substrings.
func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
