package sql

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/syssam/orma/dialect"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenDB(t *testing.T) {
	tests := []struct {
		name    string
		driver  string
		dialect string
	}{
		{"Postgres", "postgres", dialect.Postgres},
		{"MySQL", "mysql", dialect.MySQL},
		{"SQLite", "sqlite", dialect.SQLite},
		{"SQLite3", "sqlite3", dialect.SQLite},
		{"SQLServer", "sqlserver", dialect.SQLServer},
		{"MSSQL", "mssql", dialect.SQLServer},
		{"Wrapped", "mysql-otel", dialect.MySQL},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, _, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			drv := OpenDB(tt.driver, db)
			assert.NotNil(t, drv)
			assert.Equal(t, tt.dialect, drv.Dialect())
		})
	}
}

func TestDriverQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv := OpenDB(dialect.SQLite, db)

	t.Run("simple_query", func(t *testing.T) {
		mock.ExpectQuery(`SELECT "Id", "Name" FROM "Customers"`).
			WillReturnRows(sqlmock.NewRows([]string{"Id", "Name"}).
				AddRow(1, "Alice").
				AddRow(2, "Bob"))

		rows := &Rows{}
		err := drv.Query(context.Background(), `SELECT "Id", "Name" FROM "Customers"`, []any{}, rows)
		require.NoError(t, err)
		require.NoError(t, rows.Close())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("expression_args", func(t *testing.T) {
		mock.ExpectQuery(`SELECT "Name" FROM "Customers" WHERE "Id" = \?`).
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"Name"}).AddRow("Alice"))

		e := Expr(`SELECT "Name" FROM "Customers" WHERE "Id" = ?`, 1)
		rows := &Rows{}
		err := drv.Query(context.Background(), e.Text, e, rows)
		require.NoError(t, err)
		require.NoError(t, rows.Close())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query_error", func(t *testing.T) {
		mock.ExpectQuery("SELECT").WillReturnError(errors.New("database error"))

		rows := &Rows{}
		err := drv.Query(context.Background(), "SELECT", []any{}, rows)
		require.Error(t, err)
		assert.True(t, strings.HasPrefix(err.Error(), "dialect/sql: query:"))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid_destination", func(t *testing.T) {
		err := drv.Query(context.Background(), "SELECT 1", []any{}, new(int))
		require.Error(t, err)
	})

	t.Run("invalid_args", func(t *testing.T) {
		err := drv.Query(context.Background(), "SELECT 1", 1, &Rows{})
		require.Error(t, err)
	})
}

func TestDriverExec(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv := OpenDB(dialect.MySQL, db)

	t.Run("simple_exec", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO `Customers`").
			WillReturnResult(sqlmock.NewResult(1, 1))

		err := drv.Exec(context.Background(), "INSERT INTO `Customers` (`Name`) VALUES ('test')", []any{}, nil)
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("exec_result", func(t *testing.T) {
		mock.ExpectExec("UPDATE `Customers` SET `Name` = \\? WHERE `Id` = \\?").
			WithArgs("Alice", 1).
			WillReturnResult(sqlmock.NewResult(0, 1))

		var res Result
		err := drv.Exec(context.Background(), "UPDATE `Customers` SET `Name` = ? WHERE `Id` = ?", []any{"Alice", 1}, &res)
		require.NoError(t, err)
		n, err := res.RowsAffected()
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("exec_error", func(t *testing.T) {
		mock.ExpectExec("DELETE").WillReturnError(errors.New("constraint violation"))

		err := drv.Exec(context.Background(), "DELETE FROM `Customers`", []any{}, nil)
		require.Error(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDriverTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv := OpenDB(dialect.SQLServer, db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO \[Customers\]`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tx, err := drv.Tx(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx.Exec(context.Background(), "INSERT INTO [Customers] DEFAULT VALUES", []any{}, nil))
	require.NoError(t, tx.Commit())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContextCancellation(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv := OpenDB(dialect.Postgres, db)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mock.ExpectQuery("SELECT").WillReturnError(context.Canceled)
	err = drv.Query(ctx, "SELECT 1", []any{}, &Rows{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEscapeStringValue(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"no_escaping_needed", "hello", "hello"},
		{"single_quote", "it's", "it''s"},
		{"backslash", `path\to\file`, `path\\to\\file`},
		{"both_quote_and_backslash", `it's a \test`, `it''s a \\test`},
		{"empty_string", "", ""},
		{"sql_injection_attempt", "'; DROP TABLE users; --", "''; DROP TABLE users; --"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, escapeStringValue(tt.input))
		})
	}
}

func TestStatsDriver(t *testing.T) {
	t.Run("Counters", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		var buf strings.Builder
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		drv := NewStatsDriver(OpenDB(dialect.SQLite, db),
			WithSlowThreshold(-1),
			WithSlowQueryLog(logger),
		)

		mock.ExpectQuery("SELECT id").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2).AddRow(3))
		mock.ExpectExec("DELETE").WillReturnError(errors.New("locked"))

		ctx := WithOp(context.Background(), "select")
		rows := &Rows{}
		require.NoError(t, drv.Query(ctx, "SELECT id FROM t", []any{}, rows))
		for rows.Next() {
		}
		require.NoError(t, rows.Close())
		require.Error(t, drv.Exec(context.Background(), "DELETE FROM t", []any{}, nil))

		s := drv.Stats()
		assert.Equal(t, int64(1), s.Queries)
		assert.Equal(t, int64(1), s.Execs)
		assert.Equal(t, int64(3), s.Rows)
		assert.Equal(t, int64(1), s.Errors)
		assert.Equal(t, int64(2), s.Slow)
		assert.Equal(t, map[string]int64{"select": 1}, s.Ops)
		assert.True(t, strings.HasPrefix(s.String(), "queries=1 execs=1 rows=3 slow=2 errors=1"))
		assert.True(t, strings.HasSuffix(s.String(), " ops=[select:1]"))
		assert.Contains(t, buf.String(), "slow query detected")
		assert.Contains(t, buf.String(), `query="DELETE FROM t"`)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("SnapshotIsolated", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		drv := NewStatsDriver(OpenDB(dialect.SQLite, db))
		mock.ExpectExec("UPDATE").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE").WillReturnResult(sqlmock.NewResult(0, 1))

		ctx := WithOp(context.Background(), "update")
		require.NoError(t, drv.Exec(ctx, "UPDATE t SET a = 1", []any{}, nil))
		before := drv.Stats()
		require.NoError(t, drv.Exec(ctx, "UPDATE t SET a = 2", []any{}, nil))
		assert.Equal(t, int64(1), before.Ops["update"])
		assert.Equal(t, int64(2), drv.Stats().Ops["update"])
		assert.Zero(t, drv.Stats().Slow)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOpOf(t *testing.T) {
	assert.Empty(t, OpOf(context.Background()))
	assert.Equal(t, "load Customer", OpOf(WithOp(context.Background(), "load Customer")))
}

func TestDebugDriver(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	var buf strings.Builder
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	drv := NewDebugDriver(OpenDB(dialect.SQLite, db), DebugWithLogger(logger))

	mock.ExpectExec("UPDATE t").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, drv.Exec(WithOp(context.Background(), "update"), "UPDATE t SET a = ?", []any{1}, nil))
	assert.Contains(t, buf.String(), `sql="UPDATE t SET a = ?"`)
	assert.Contains(t, buf.String(), "op=update")
	require.NoError(t, mock.ExpectationsWereMet())
}
