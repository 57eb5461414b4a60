package query

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/orma"
	"github.com/syssam/orma/contrib/mixin"
	"github.com/syssam/orma/dialect"
	"github.com/syssam/orma/dialect/sql"
	"github.com/syssam/orma/expr"
	"github.com/syssam/orma/schema"
)

type Address struct {
	ID   int64  `db:"Id,pk"`
	City string `db:"City"`
}

type Customer struct {
	ID        int64    `db:"Id,pk"`
	Name      string   `db:"Name"`
	AddressID *int64   `db:"AddressId"`
	Address   *Address `db:"AddressId,fk"`
	Orders    []*Order `db:"CustomerId,many"`
}

type Order struct {
	ID         int64     `db:"Id,pk"`
	CustomerID int64     `db:"CustomerId"`
	Total      float64   `db:"Total"`
	Customer   *Customer `db:"CustomerId,fk"`
}

type Note struct {
	ID        int64     `db:"id,pk"`
	Body      string    `db:"body"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (Note) Mixin() []schema.Mixin {
	return []schema.Mixin{mixin.Time{}, mixin.SoftDelete{}}
}

const (
	selectCustomer = `SELECT "Customer"."Id", "Customer"."Name", "Customer"."AddressId" FROM "Customer"`
	selectAddress  = `SELECT "Address"."Id", "Address"."City" FROM "Address"`
)

var clock = time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)

func mockDriver(t *testing.T, name string) (*sql.Driver, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return sql.OpenDB(name, db), mock
}

func newQuery[T any](t *testing.T, drv dialect.ExecQuerier, opts ...orma.Option) *Query[T] {
	t.Helper()
	q, err := New[T](drv, orma.NewConfig("", append([]orma.Option{orma.WithClock(func() time.Time { return clock })}, opts...)...))
	require.NoError(t, err)
	return q
}

func TestNew(t *testing.T) {
	t.Run("DialectFromDriver", func(t *testing.T) {
		drv, _ := mockDriver(t, dialect.MySQL)
		q := newQuery[Customer](t, drv)
		e, err := q.Grammar()
		require.NoError(t, err)
		assert.Equal(t, "SELECT `Customer`.`Id`, `Customer`.`Name`, `Customer`.`AddressId` FROM `Customer`", e.Text)
	})
	t.Run("NoDialect", func(t *testing.T) {
		_, err := New[Customer](nil, orma.Config{})
		assert.True(t, orma.IsInvalidOperation(err))
	})
	t.Run("UnknownDialect", func(t *testing.T) {
		_, err := New[Customer](nil, orma.Config{Dialect: "oracle"})
		assert.Error(t, err)
	})
	t.Run("ForeignDepth", func(t *testing.T) {
		drv, _ := mockDriver(t, dialect.SQLite)
		q := newQuery[Order](t, drv, orma.WithForeignDepth(2))
		_, ok := q.Tree().Node("Customer.Address")
		assert.True(t, ok)
	})
}

func TestQuery_Grammar(t *testing.T) {
	drv, _ := mockDriver(t, dialect.SQLite)

	t.Run("Clauses", func(t *testing.T) {
		q := newQuery[Customer](t, drv).
			Where(expr.Field("Name"), "alice").
			WhereOp(expr.Field("Id"), sql.OpGT, 3).
			OrderBy(expr.Field("Name")).
			Limit(10).
			Offset(20)
		e, err := q.Grammar()
		require.NoError(t, err)
		assert.Equal(t, selectCustomer+` WHERE "Customer"."Name" = ? AND "Customer"."Id" > ? ORDER BY "Customer"."Name" ASC LIMIT 10 OFFSET 20`, e.Text)
		assert.Equal(t, []any{"alice", 3}, e.Args)
	})

	t.Run("TypedFields", func(t *testing.T) {
		type customerPredicate func(*sql.Where)
		var (
			name = sql.StringField[customerPredicate]("Name")
			id   = sql.NumberField[customerPredicate, int64]("Id")
			addr = sql.NumberField[customerPredicate, int64]("AddressId")
		)
		q := newQuery[Customer](t, drv).Filter(name.EQ("alice"), id.GT(3), addr.IsNull(), nil)
		e, err := q.Grammar()
		require.NoError(t, err)
		assert.Equal(t, selectCustomer+` WHERE "Name" = ? AND "Id" > ? AND "AddressId" IS NULL`, e.Text)
		assert.Equal(t, []any{"alice", int64(3)}, e.Args)

		e, err = newQuery[Customer](t, drv).Filter(name.HasPrefix("Jo")).Grammar()
		require.NoError(t, err)
		assert.Contains(t, e.Text, `WHERE "Name" LIKE ?`)
		assert.Equal(t, []any{"Jo%"}, e.Args)
	})

	t.Run("ColumnOperand", func(t *testing.T) {
		q := newQuery[Order](t, drv).Where(expr.Field("Id"), expr.Field("CustomerId"))
		e, err := q.Grammar()
		require.NoError(t, err)
		assert.Contains(t, e.Text, `WHERE "Order"."Id" = "Order"."CustomerId"`)
		assert.Empty(t, e.Args)
	})

	t.Run("ForeignMember", func(t *testing.T) {
		q := newQuery[Customer](t, drv).Where(expr.Field("Address.City"), "Porto")
		_, err := q.Grammar()
		require.True(t, orma.IsForeignMember(err))
		assert.EqualError(t, err, `orma: member "Address.City": no include configured for the 'Address' table or for the 'Address' type`)

		_, err = q.Join("Address")
		require.NoError(t, err)
		e, err := q.Grammar()
		require.NoError(t, err)
		assert.Equal(t, `SELECT "Customer"."Id", "Customer"."Name", "Customer"."AddressId", `+
			`"fk_Address"."Id" AS "Address_c_Id", "fk_Address"."City" AS "Address_c_City" `+
			`FROM "Customer" LEFT JOIN "Address" AS "fk_Address" ON "fk_Address"."Id" = "Customer"."AddressId" `+
			`WHERE "fk_Address"."City" = ?`, e.Text)
	})

	t.Run("InvalidMember", func(t *testing.T) {
		q := newQuery[Customer](t, drv).Where(expr.Field("Nope"), 1).OrderBy(expr.Field("Missing"))
		_, err := q.Grammar()
		require.Error(t, err)
		assert.True(t, orma.IsInvalidExpression(err))
		var agg *orma.AggregateError
		require.ErrorAs(t, err, &agg)
		assert.Len(t, agg.Errors, 2)
	})

	t.Run("Select", func(t *testing.T) {
		q := newQuery[Customer](t, drv).Select(expr.New(expr.As("n", expr.Field("Name")))).Distinct()
		e, err := q.Grammar()
		require.NoError(t, err)
		assert.Equal(t, `SELECT DISTINCT "Customer"."Name" AS "n" FROM "Customer"`, e.Text)
	})

	t.Run("Count", func(t *testing.T) {
		e, err := newQuery[Customer](t, drv).WhereNull(expr.Field("AddressId")).OrderBy(expr.Field("Id")).CountGrammar()
		require.NoError(t, err)
		assert.Equal(t, `SELECT COUNT(*) FROM "Customer" WHERE "Customer"."AddressId" IS NULL`, e.Text)
	})

	t.Run("NilPointerValue", func(t *testing.T) {
		var none *int64
		e, err := newQuery[Customer](t, drv).Where(expr.Field("AddressId"), none).Grammar()
		require.NoError(t, err)
		assert.Equal(t, selectCustomer+` WHERE "Customer"."AddressId" IS NULL`, e.Text)
		assert.Empty(t, e.Args)
	})

	t.Run("LegacyDistinctPage", func(t *testing.T) {
		ms, _ := mockDriver(t, dialect.SQLServer)
		q := newQuery[Customer](t, ms, orma.WithLegacyPagination(true)).
			Select(expr.Field("Name")).Distinct().Offset(10).Limit(5)
		e, err := q.Grammar()
		require.NoError(t, err)
		assert.Equal(t, "SELECT [Name] FROM (SELECT [Name], ROW_NUMBER() OVER(ORDER BY (SELECT 0)) AS [grammar_rownum] "+
			"FROM (SELECT DISTINCT [Customer].[Name] FROM [Customer]) AS [grammar_distinct]) AS [grammar_page] "+
			"WHERE [grammar_rownum] > 10 AND [grammar_rownum] <= 15 ORDER BY [grammar_rownum]", e.Text)
	})

	t.Run("SoftDelete", func(t *testing.T) {
		q := newQuery[Note](t, drv)
		e, err := q.Clone().Grammar()
		require.NoError(t, err)
		assert.Equal(t, `SELECT "Note"."id", "Note"."body", "Note"."created_at", "Note"."updated_at" FROM "Note" WHERE "deleted" = 0`, e.Text)

		e, err = q.Clone().OnlyTrashed().Grammar()
		require.NoError(t, err)
		assert.Contains(t, e.Text, `WHERE "deleted" = 1`)

		e, err = q.Clone().WithTrashed().Grammar()
		require.NoError(t, err)
		assert.NotContains(t, e.Text, "WHERE")
	})

	t.Run("Clone", func(t *testing.T) {
		base := newQuery[Customer](t, drv).Where(expr.Field("Name"), "a")
		c := base.Clone().WhereIn(expr.Field("Id"), 1, 2)
		e1, err := base.Grammar()
		require.NoError(t, err)
		e2, err := c.Grammar()
		require.NoError(t, err)
		assert.NotContains(t, e1.Text, "IN")
		assert.Contains(t, e2.Text, `"Customer"."Id" IN (?, ?)`)
	})
}

func TestQuery_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("IncludeSharedKey", func(t *testing.T) {
		drv, mock := mockDriver(t, dialect.SQLite)
		mock.ExpectQuery(selectCustomer).WillReturnRows(sqlmock.NewRows([]string{"Id", "Name", "AddressId"}).
			AddRow(1, "a", 10).
			AddRow(2, "b", 10).
			AddRow(3, "c", nil))
		mock.ExpectQuery(selectAddress + ` WHERE "Address"."Id" = ?`).WithArgs(10).
			WillReturnRows(sqlmock.NewRows([]string{"Id", "City"}).AddRow(10, "Porto"))

		q := newQuery[Customer](t, drv)
		_, err := q.Include("Address")
		require.NoError(t, err)
		cs, err := q.Get(ctx)
		require.NoError(t, err)
		require.Len(t, cs, 3)
		require.NotNil(t, cs[0].Address)
		assert.Equal(t, "Porto", cs[0].Address.City)
		assert.Same(t, cs[0].Address, cs[1].Address)
		assert.Nil(t, cs[2].Address)
	})

	t.Run("BatchedCollection", func(t *testing.T) {
		drv, mock := mockDriver(t, dialect.SQLite)
		mock.ExpectQuery(selectCustomer).WillReturnRows(sqlmock.NewRows([]string{"Id", "Name", "AddressId"}).
			AddRow(1, "a", nil).
			AddRow(2, "b", nil))
		mock.ExpectQuery(`SELECT "Order"."Id", "Order"."CustomerId", "Order"."Total" FROM "Order" WHERE "Order"."CustomerId" IN (?, ?)`).
			WithArgs(1, 2).
			WillReturnRows(sqlmock.NewRows([]string{"Id", "CustomerId", "Total"}).
				AddRow(100, 2, 5.5).
				AddRow(101, 1, 7.0).
				AddRow(102, 2, 1.5))

		q := newQuery[Customer](t, drv, orma.WithForeignBatchSize(50))
		_, err := q.Include("Orders")
		require.NoError(t, err)
		cs, err := q.Get(ctx)
		require.NoError(t, err)
		require.Len(t, cs, 2)
		require.Len(t, cs[0].Orders, 1)
		assert.Equal(t, int64(101), cs[0].Orders[0].ID)
		require.Len(t, cs[1].Orders, 2)
		assert.Equal(t, []int64{100, 102}, []int64{cs[1].Orders[0].ID, cs[1].Orders[1].ID})
	})

	t.Run("JoinedThenIncluded", func(t *testing.T) {
		drv, mock := mockDriver(t, dialect.SQLite)
		mock.ExpectQuery(`SELECT "Order"."Id", "Order"."CustomerId", "Order"."Total", `+
			`"fk_Customer"."Id" AS "Customer_c_Id", "fk_Customer"."Name" AS "Customer_c_Name", "fk_Customer"."AddressId" AS "Customer_c_AddressId" `+
			`FROM "Order" LEFT JOIN "Customer" AS "fk_Customer" ON "fk_Customer"."Id" = "Order"."CustomerId"`).
			WillReturnRows(sqlmock.NewRows([]string{"Id", "CustomerId", "Total", "Customer_c_Id", "Customer_c_Name", "Customer_c_AddressId"}).
				AddRow(1, 7, 2.0, 7, "g", 3))
		mock.ExpectQuery(selectAddress + ` WHERE "Address"."Id" = ?`).WithArgs(3).
			WillReturnRows(sqlmock.NewRows([]string{"Id", "City"}).AddRow(3, "Braga"))

		q := newQuery[Order](t, drv)
		_, err := q.Join("Customer")
		require.NoError(t, err)
		_, err = q.Include("Customer", "Address")
		require.NoError(t, err)
		os, err := q.Get(ctx)
		require.NoError(t, err)
		require.Len(t, os, 1)
		require.NotNil(t, os[0].Customer)
		assert.Equal(t, "g", os[0].Customer.Name)
		require.NotNil(t, os[0].Customer.Address)
		assert.Equal(t, "Braga", os[0].Customer.Address.City)
	})

	t.Run("Stubs", func(t *testing.T) {
		drv, mock := mockDriver(t, dialect.SQLite)
		mock.ExpectQuery(`SELECT "Order"."Id", "Order"."CustomerId", "Order"."Total" FROM "Order"`).
			WillReturnRows(sqlmock.NewRows([]string{"Id", "CustomerId", "Total"}).AddRow(1, 7, 2.0))
		os, err := newQuery[Order](t, drv, orma.WithForeignStubs(true)).Get(ctx)
		require.NoError(t, err)
		require.NotNil(t, os[0].Customer)
		assert.Equal(t, int64(7), os[0].Customer.ID)
		assert.Empty(t, os[0].Customer.Name)
	})

	t.Run("DriverError", func(t *testing.T) {
		drv, mock := mockDriver(t, dialect.SQLite)
		mock.ExpectQuery(selectCustomer).WillReturnError(errors.New("boom"))
		_, err := newQuery[Customer](t, drv).Get(ctx)
		var qe *orma.QueryError
		require.ErrorAs(t, err, &qe)
		assert.Equal(t, "select", qe.Op)
		assert.Equal(t, "Customer", qe.Entity)
	})

	t.Run("Canceled", func(t *testing.T) {
		drv, _ := mockDriver(t, dialect.SQLite)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := newQuery[Customer](t, drv).Get(ctx)
		require.Error(t, err)
		assert.True(t, orma.IsCanceled(err))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestQuery_Stats(t *testing.T) {
	ctx := context.Background()
	drv, mock := mockDriver(t, dialect.SQLite)
	mock.ExpectQuery(`SELECT "Order"."Id", "Order"."CustomerId", "Order"."Total" FROM "Order"`).
		WillReturnRows(sqlmock.NewRows([]string{"Id", "CustomerId", "Total"}).
			AddRow(1, 7, 2.0).
			AddRow(2, 8, 3.0))
	mock.ExpectQuery(selectCustomer+` WHERE "Customer"."Id" IN (?, ?)`).WithArgs(7, 8).
		WillReturnRows(sqlmock.NewRows([]string{"Id", "Name", "AddressId"}).
			AddRow(7, "g", 3).
			AddRow(8, "h", 3))
	mock.ExpectQuery(selectAddress+` WHERE "Address"."Id" = ?`).WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"Id", "City"}).AddRow(3, "Braga"))

	stats := sql.NewStatsDriver(drv)
	q := newQuery[Order](t, stats)
	_, err := q.Include("Customer", "Address")
	require.NoError(t, err)
	os, err := q.Get(ctx)
	require.NoError(t, err)
	require.Len(t, os, 2)

	s := stats.Stats()
	assert.Equal(t, int64(3), s.Queries)
	assert.Equal(t, int64(5), s.Rows)
	assert.Equal(t, map[string]int64{
		"select":                1,
		"load Customer":         1,
		"load Customer.Address": 1,
	}, s.Ops)
}

func TestQuery_First(t *testing.T) {
	ctx := context.Background()
	drv, mock := mockDriver(t, dialect.SQLite)
	mock.ExpectQuery(selectCustomer + ` WHERE "Customer"."Name" = ? LIMIT 1`).WithArgs("x").
		WillReturnRows(sqlmock.NewRows([]string{"Id", "Name", "AddressId"}))
	mock.ExpectQuery(selectCustomer + ` WHERE "Customer"."Id" = ? LIMIT 1`).WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"Id", "Name", "AddressId"}).AddRow(5, "e", nil))

	q := newQuery[Customer](t, drv)
	_, err := q.Clone().Where(expr.Field("Name"), "x").First(ctx)
	assert.True(t, orma.IsNotFound(err))

	c, err := q.Find(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "e", c.Name)
	assert.Nil(t, q.sql.Limit, "Find does not modify the receiver")
}

func TestQuery_Only(t *testing.T) {
	ctx := context.Background()
	drv, mock := mockDriver(t, dialect.SQLite)
	cols := []string{"Id", "Name", "AddressId"}
	mock.ExpectQuery(selectCustomer + ` WHERE "Customer"."Name" = ? LIMIT 2`).WithArgs("one").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(1, "one", nil))
	mock.ExpectQuery(selectCustomer + ` WHERE "Customer"."Name" = ? LIMIT 2`).WithArgs("none").
		WillReturnRows(sqlmock.NewRows(cols))
	mock.ExpectQuery(selectCustomer + ` WHERE "Customer"."Name" = ? LIMIT 2`).WithArgs("many").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(2, "many", nil).AddRow(3, "many", nil))

	q := newQuery[Customer](t, drv)
	c, err := q.Clone().Where(expr.Field("Name"), "one").Only(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.ID)

	_, err = q.Clone().Where(expr.Field("Name"), "none").Only(ctx)
	assert.True(t, orma.IsNotFound(err))

	_, err = q.Clone().Where(expr.Field("Name"), "many").Only(ctx)
	require.True(t, orma.IsNotSingular(err))
	assert.EqualError(t, err, "orma: Customer not singular (read 2 rows, want 1)")
	assert.Nil(t, q.sql.Limit)
}

func TestQuery_CountExists(t *testing.T) {
	ctx := context.Background()

	t.Run("SQLite", func(t *testing.T) {
		drv, mock := mockDriver(t, dialect.SQLite)
		mock.ExpectQuery(`SELECT COUNT(*) FROM "Customer"`).WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(4))
		mock.ExpectQuery(`SELECT EXISTS (SELECT 1 FROM "Customer" WHERE "Customer"."Name" = ?)`).WithArgs("z").
			WillReturnRows(sqlmock.NewRows([]string{"e"}).AddRow(0))

		q := newQuery[Customer](t, drv)
		n, err := q.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 4, n)
		ok, err := q.Clone().Where(expr.Field("Name"), "z").Exists(ctx)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("PostgresRebind", func(t *testing.T) {
		drv, mock := mockDriver(t, dialect.Postgres)
		mock.ExpectQuery(`SELECT EXISTS (SELECT 1 FROM "Customer" WHERE "Customer"."Name" = $1 AND "Customer"."Id" > $2)`).
			WithArgs("z", 1).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		ok, err := newQuery[Customer](t, drv).
			Where(expr.Field("Name"), "z").
			WhereOp(expr.Field("Id"), sql.OpGT, 1).
			Exists(ctx)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestQuery_Records(t *testing.T) {
	drv, mock := mockDriver(t, dialect.SQLite)
	mock.ExpectQuery(`SELECT "Customer"."Name" AS "n", "Customer"."Id" AS "i" FROM "Customer"`).
		WillReturnRows(sqlmock.NewRows([]string{"n", "i"}).AddRow("a", 1))
	recs, err := newQuery[Customer](t, drv).
		Select(expr.New(expr.As("n", expr.Field("Name")), expr.As("i", expr.Field("Id")))).
		Records(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, []string{"n", "i"}, recs[0].Keys())
}

func TestQuery_Insert(t *testing.T) {
	ctx := context.Background()

	t.Run("Returning", func(t *testing.T) {
		drv, mock := mockDriver(t, dialect.SQLite)
		mock.ExpectQuery(`INSERT INTO "Customer" ("Name", "AddressId") VALUES (?, ?) RETURNING "Id"`).
			WithArgs("alice", nil).
			WillReturnRows(sqlmock.NewRows([]string{"Id"}).AddRow(12))
		c := &Customer{Name: "alice"}
		require.NoError(t, newQuery[Customer](t, drv).Insert(ctx, c))
		assert.Equal(t, int64(12), c.ID)
	})

	t.Run("Output", func(t *testing.T) {
		drv, mock := mockDriver(t, dialect.SQLServer)
		mock.ExpectQuery(`INSERT INTO [Customer] ([Name], [AddressId]) OUTPUT INSERTED.[Id] VALUES (?, ?)`).
			WithArgs("alice", nil).
			WillReturnRows(sqlmock.NewRows([]string{"Id"}).AddRow(3))
		c := &Customer{Name: "alice"}
		require.NoError(t, newQuery[Customer](t, drv).Insert(ctx, c))
		assert.Equal(t, int64(3), c.ID)
	})

	t.Run("LastInsertID", func(t *testing.T) {
		drv, mock := mockDriver(t, dialect.MySQL)
		mock.ExpectExec("INSERT INTO `Customer` (`Name`, `AddressId`) VALUES (?, ?)").
			WithArgs("bob", nil).
			WillReturnResult(sqlmock.NewResult(42, 1))
		c := &Customer{Name: "bob"}
		require.NoError(t, newQuery[Customer](t, drv).Insert(ctx, c))
		assert.Equal(t, int64(42), c.ID)
	})

	t.Run("ExplicitKey", func(t *testing.T) {
		drv, mock := mockDriver(t, dialect.SQLite)
		mock.ExpectExec(`INSERT INTO "Address" ("Id", "City") VALUES (?, ?)`).
			WithArgs(9, "Faro").
			WillReturnResult(sqlmock.NewResult(0, 1))
		require.NoError(t, newQuery[Address](t, drv).Insert(ctx, &Address{ID: 9, City: "Faro"}))
	})

	t.Run("TimestampsAndSoftDelete", func(t *testing.T) {
		drv, mock := mockDriver(t, dialect.SQLite)
		mock.ExpectQuery(`INSERT INTO "Note" ("body", "created_at", "updated_at", "deleted") VALUES (?, ?, ?, 0) RETURNING "id"`).
			WithArgs("hi", clock, clock).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
		n := &Note{Body: "hi"}
		require.NoError(t, newQuery[Note](t, drv).Insert(ctx, n))
		assert.Equal(t, clock, n.CreatedAt)
		assert.Equal(t, clock, n.UpdatedAt)
	})

	t.Run("Constraint", func(t *testing.T) {
		drv, mock := mockDriver(t, dialect.MySQL)
		mock.ExpectExec("INSERT INTO `Address` (`Id`, `City`) VALUES (?, ?)").
			WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry '9' for key 'PRIMARY'"})
		err := newQuery[Address](t, drv).Insert(ctx, &Address{ID: 9, City: "Faro"})
		require.Error(t, err)
		assert.True(t, orma.IsConstraintError(err))
		var me *orma.MutationError
		require.ErrorAs(t, err, &me)
		assert.Equal(t, "insert", me.Op)
		var myErr *mysql.MySQLError
		assert.ErrorAs(t, err, &myErr)
	})
}

func TestQuery_BulkInsertUpsert(t *testing.T) {
	ctx := context.Background()
	drv, mock := mockDriver(t, dialect.SQLite)
	mock.ExpectExec(`INSERT INTO "Address" ("Id", "City") VALUES (?, ?), (?, ?)`).
		WithArgs(1, "a", 2, "b").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`INSERT INTO "Address" ("Id", "City") VALUES (?, ?) ON CONFLICT ("Id") DO UPDATE SET "City" = excluded."City"`).
		WithArgs(1, "c").
		WillReturnResult(sqlmock.NewResult(0, 1))

	q := newQuery[Address](t, drv)
	n, err := q.BulkInsert(ctx, []*Address{{ID: 1, City: "a"}, {ID: 2, City: "b"}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = q.Upsert(ctx, []*Address{{ID: 1, City: "c"}}, sql.Upsert{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestQuery_BulkInsertMixedKeys(t *testing.T) {
	ctx := context.Background()
	drv, mock := mockDriver(t, dialect.SQLite)
	mock.ExpectExec(`INSERT INTO "Address" ("City") VALUES (?), (?)`).
		WithArgs("a", "b").
		WillReturnResult(sqlmock.NewResult(2, 2))
	mock.ExpectExec(`INSERT INTO "Address" ("Id", "City") VALUES (?, ?)`).
		WithArgs(9, "c").
		WillReturnResult(sqlmock.NewResult(9, 1))
	mock.ExpectExec(`INSERT INTO "Address" ("City") VALUES (?)`).
		WithArgs("d").
		WillReturnResult(sqlmock.NewResult(10, 1))

	n, err := newQuery[Address](t, drv).BulkInsert(ctx, []*Address{{City: "a"}, {City: "b"}, {ID: 9, City: "c"}, {City: "d"}})
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	_, err = newQuery[Address](t, drv).BulkInsert(ctx, nil)
	assert.True(t, orma.IsInvalidOperation(err))
}

func TestQuery_UpsertNewRows(t *testing.T) {
	ctx := context.Background()

	t.Run("PrimaryKey", func(t *testing.T) {
		drv, mock := mockDriver(t, dialect.SQLite)
		mock.ExpectExec(`INSERT INTO "Address" ("City") VALUES (?)`).
			WithArgs("new").
			WillReturnResult(sqlmock.NewResult(3, 1))
		mock.ExpectExec(`INSERT INTO "Address" ("Id", "City") VALUES (?, ?) ON CONFLICT ("Id") DO UPDATE SET "City" = excluded."City"`).
			WithArgs(1, "c").
			WillReturnResult(sqlmock.NewResult(0, 1))
		n, err := newQuery[Address](t, drv).Upsert(ctx, []*Address{{City: "new"}, {ID: 1, City: "c"}}, sql.Upsert{})
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})

	t.Run("SQLServer", func(t *testing.T) {
		drv, mock := mockDriver(t, dialect.SQLServer)
		mock.ExpectExec(`INSERT INTO [Address] ([City]) VALUES (?)`).
			WithArgs("new").
			WillReturnResult(sqlmock.NewResult(0, 1))
		n, err := newQuery[Address](t, drv).Upsert(ctx, []*Address{{City: "new"}}, sql.Upsert{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("UniqueColumn", func(t *testing.T) {
		drv, mock := mockDriver(t, dialect.SQLite)
		mock.ExpectExec(`INSERT INTO "Address" ("City") VALUES (?) ON CONFLICT ("City") DO NOTHING`).
			WithArgs("Lisbon").
			WillReturnResult(sqlmock.NewResult(0, 0))
		n, err := newQuery[Address](t, drv).Upsert(ctx, []*Address{{City: "Lisbon"}}, sql.Upsert{Keys: []string{"City"}})
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestQuery_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("Entity", func(t *testing.T) {
		drv, mock := mockDriver(t, dialect.SQLite)
		mock.ExpectExec(`UPDATE "Note" SET "body" = ?, "updated_at" = ? WHERE "Note"."id" = ?`).
			WithArgs("new", clock, 4).
			WillReturnResult(sqlmock.NewResult(0, 1))
		n := &Note{ID: 4, Body: "new"}
		affected, err := newQuery[Note](t, drv).Update(ctx, n)
		require.NoError(t, err)
		assert.Equal(t, int64(1), affected)
		assert.Equal(t, clock, n.UpdatedAt)
		assert.True(t, n.CreatedAt.IsZero())
	})

	t.Run("Cells", func(t *testing.T) {
		drv, mock := mockDriver(t, dialect.SQLite)
		mock.ExpectExec(`UPDATE "Note" SET "body" = ?, "updated_at" = ? WHERE "Note"."id" > ? AND "deleted" = 0`).
			WithArgs("x", clock, 10).
			WillReturnResult(sqlmock.NewResult(0, 3))
		n, err := newQuery[Note](t, drv).
			WhereOp(expr.Field("ID"), sql.OpGT, 10).
			UpdateCells(ctx, sql.Cell{Name: "body", Value: "x"})
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
	})

	t.Run("NoKey", func(t *testing.T) {
		type Log struct {
			Line string `db:"line"`
		}
		drv, _ := mockDriver(t, dialect.SQLite)
		_, err := newQuery[Log](t, drv).Update(ctx, &Log{Line: "x"})
		assert.True(t, orma.IsInvalidOperation(err))
	})
}

func TestQuery_Delete(t *testing.T) {
	ctx := context.Background()
	drv, mock := mockDriver(t, dialect.SQLite)
	mock.ExpectExec(`DELETE FROM "Customer" WHERE "Customer"."Id" = ?`).WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "Note" SET "deleted" = 1 WHERE "Note"."id" = ? AND "deleted" = 0`).WithArgs(2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "Note" SET "deleted" = 0 WHERE "Note"."id" = ? AND "deleted" = 1`).WithArgs(2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM "Note" WHERE "Note"."id" = ?`).WithArgs(2).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := newQuery[Customer](t, drv).Where(expr.Field("ID"), 1).Delete(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	notes := newQuery[Note](t, drv).Where(expr.Field("ID"), 2)
	_, err = notes.Delete(ctx)
	require.NoError(t, err)
	_, err = notes.Restore(ctx)
	require.NoError(t, err)
	_, err = notes.ForceDelete(ctx)
	require.NoError(t, err)

	_, err = newQuery[Customer](t, drv).Restore(ctx)
	assert.True(t, orma.IsInvalidOperation(err))
}

func TestQuery_Logging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	drv, mock := mockDriver(t, dialect.SQLite)
	mock.ExpectQuery(`SELECT COUNT(*) FROM "Customer"`).WillReturnRows(sqlmock.NewRows([]string{"c"}).AddRow(0))
	_, err := newQuery[Customer](t, drv, orma.WithLogger(logger)).Count(context.Background())
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "orma: count")
	assert.Contains(t, buf.String(), "entity=Customer")
	assert.Contains(t, buf.String(), "dialect=sqlite")
}
