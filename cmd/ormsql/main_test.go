package main

import (
	"bytes"
	stdsql "database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const customers = `
table: Customers c
columns: [c.Id, c.Name AS n]
joins:
  - {type: left, table: Orders o, on: [{column: o.CustomerId, ref: c.Id}]}
where:
  - {column: c.Country, value: PT}
  - {column: c.Name, op: contains, value: "50%"}
order_by: [{column: c.Name}]
`

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func queryFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "query.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestCompile(t *testing.T) {
	tests := []struct {
		name  string
		query string
		args  []string
		want  string
	}{
		{
			name:  "Select",
			query: customers,
			want: `-- sqlite
SELECT "c"."Id", "c"."Name" AS "n" FROM "Customers" AS "c" LEFT JOIN "Orders" AS "o" ON "o"."CustomerId" = "c"."Id" WHERE "c"."Country" = ? AND "c"."Name" LIKE ? ESCAPE '\' ORDER BY "c"."Name" ASC;
-- args: "PT", "%50\\%%"
`,
		},
		{
			name:  "SoftDelete",
			query: "table: Notes\nsoft_delete: {column: deleted}\n",
			want:  "-- sqlite\nSELECT * FROM \"Notes\" WHERE \"deleted\" = 0;\n",
		},
		{
			name:  "TrashedFlag",
			query: "table: Notes\nsoft_delete: {column: deleted}\n",
			args:  []string{"--trashed", "only"},
			want:  "-- sqlite\nSELECT * FROM \"Notes\" WHERE \"deleted\" = 1;\n",
		},
		{
			name:  "TrashedOverride",
			query: "table: Notes\nsoft_delete: {column: deleted}\ntrashed: with\n",
			args:  []string{"--trashed", "only"},
			want:  "-- sqlite\nSELECT * FROM \"Notes\";\n",
		},
		{
			name:  "Update",
			query: "statement: update\ntable: T\nset: [{column: Name, value: x}]\nwhere: [{column: Id, value: 1}]\n",
			want:  "-- sqlite\nUPDATE \"T\" SET \"Name\" = ? WHERE \"Id\" = ?;\n-- args: \"x\", 1\n",
		},
		{
			name:  "MySQL",
			query: "table: T\nwhere: [{column: Age, op: between, value: [18, 30]}]\n",
			args:  []string{"--dialect", "mysql"},
			want:  "-- mysql\nSELECT * FROM `T` WHERE `Age` BETWEEN ? AND ?;\n-- args: 18, 30\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"compile", queryFile(t, tt.query)}, tt.args...)
			out, err := run(t, "", args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestCompile_AllDialects(t *testing.T) {
	out, err := run(t, customers, "compile", "--all")
	require.NoError(t, err)
	for _, want := range []string{
		"-- mysql\nSELECT `c`.`Id`",
		"-- postgres\n",
		`WHERE "c"."Country" = $1 AND "c"."Name" LIKE $2`,
		"-- sqlite\n",
		"-- sqlserver\nSELECT [c].[Id], [c].[Name] AS [n] FROM [Customers] AS [c]",
	} {
		assert.Contains(t, out, want)
	}
	assert.Equal(t, 4, strings.Count(out, "-- args: "))
}

func TestCompile_LegacyPagination(t *testing.T) {
	out, err := run(t, "table: T\norder_by: [{column: Id}]\nlimit: 8\noffset: 0\n",
		"compile", "-", "--dialect", "sqlserver", "--legacy-pagination")
	require.NoError(t, err)
	assert.Contains(t, out, "ROW_NUMBER() OVER(ORDER BY [Id] ASC)")
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name  string
		query string
		args  []string
		want  string
	}{
		{name: "NoTable", query: "columns: [a]\n", want: "query has no table"},
		{name: "UnknownKey", query: "table: T\ncolumnz: [a]\n", want: "columnz"},
		{name: "Statement", query: "table: T\nstatement: merge\n", want: `unknown statement "merge"`},
		{name: "Operator", query: "table: T\nwhere: [{column: a, op: \"=~\"}]\n", want: "unknown operator"},
		{name: "Between", query: "table: T\nwhere: [{column: a, op: between, value: 1}]\n", want: "needs two values"},
		{name: "Name", query: "table: \"T; DROP\"\n", want: "invalid"},
		{name: "Dialect", query: "table: T\n", args: []string{"--dialect", "oracle"}, want: "unknown dialect"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.query, append([]string{"compile"}, tt.args...)...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDialects(t *testing.T) {
	out, err := run(t, "", "dialects")
	require.NoError(t, err)
	assert.Contains(t, out, "MAX PARAMS")
	assert.Regexp(t, `sqlserver\s*│\s*\[x\]\s*│\s*\?\s*│\s*2100\s*│\s*offset-fetch\s*│\s*merge\s*│\s*output`, out)
	assert.Regexp(t, `postgres\s*│\s*"x"\s*│\s*\$n\s*│\s*65535\s*│\s*limit-offset\s*│\s*on-conflict\s*│\s*returning`, out)
	assert.Regexp(t, "mysql\\s*│\\s*`x`", out)
	assert.Contains(t, out, "sqlite")
}

func TestPing(t *testing.T) {
	out, err := run(t, "", "ping", "--dialect", "sqlite")
	require.NoError(t, err)
	assert.Equal(t, "sqlite: ok\n", out)
}

func TestVersion(t *testing.T) {
	out, err := run(t, "", "version", "--dialect", "oracle")
	require.NoError(t, err, "version skips configuration")
	assert.True(t, strings.HasPrefix(out, "ormsql "))
}

func TestRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.db")
	db, err := stdsql.Open("sqlite", path)
	require.NoError(t, err)
	for _, stmt := range []string{
		`CREATE TABLE "Notes" ("id" INTEGER PRIMARY KEY, "body" TEXT, "deleted" INTEGER NOT NULL DEFAULT 0)`,
		`INSERT INTO "Notes" ("id", "body", "deleted") VALUES (1, 'kept', 0), (2, 'gone', 1), (3, NULL, 0)`,
	} {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	require.NoError(t, db.Close())

	notes := "table: Notes\ncolumns: [id, body]\nsoft_delete: {column: deleted}\norder_by: [{column: id}]\n"
	t.Run("Select", func(t *testing.T) {
		out, err := run(t, notes, "run", "--dialect", "sqlite", "--dsn", path)
		require.NoError(t, err)
		assert.Regexp(t, `│\s*ID\s*│\s*BODY\s*│`, out)
		assert.Regexp(t, `│\s*1\s*│\s*kept\s*│`, out)
		assert.Regexp(t, `│\s*3\s*│\s*NULL\s*│`, out)
		assert.NotContains(t, out, "gone")
		assert.True(t, strings.HasSuffix(out, "(2 rows)\n"))
	})

	t.Run("Stats", func(t *testing.T) {
		out, err := run(t, "statement: count\n"+notes, "run", "--dialect", "sqlite", "--dsn", path, "--trashed", "only", "--stats")
		require.NoError(t, err)
		assert.Contains(t, out, "COUNT(*)")
		assert.Regexp(t, `│\s*1\s*│`, out)
		assert.Contains(t, out, "-- queries=1 execs=0")
	})

	t.Run("Exec", func(t *testing.T) {
		out, err := run(t, "statement: soft_delete\ntable: Notes\nsoft_delete: {column: deleted}\nwhere: [{column: id, value: 3}]\n",
			"run", "--dialect", "sqlite", "--dsn", path)
		require.NoError(t, err)
		assert.Equal(t, "1 rows affected\n", out)

		out, err = run(t, notes, "run", "--dialect", "sqlite", "--dsn", path)
		require.NoError(t, err)
		assert.Regexp(t, `│\s*1\s*│\s*kept\s*│`, out)
		assert.NotContains(t, out, "NULL")
		assert.True(t, strings.HasSuffix(out, "(1 rows)\n"))
	})

	t.Run("Empty", func(t *testing.T) {
		out, err := run(t, "table: Notes\nwhere: [{column: id, value: 99}]\n", "run", "--dialect", "sqlite", "--dsn", path)
		require.NoError(t, err)
		assert.Equal(t, "(0 rows)\n", out)
	})
}
