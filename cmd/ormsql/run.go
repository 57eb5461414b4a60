package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/syssam/orma/dialect"
	"github.com/syssam/orma/dialect/sql"
	"github.com/syssam/orma/dialect/sql/sqlgraph"
	"github.com/syssam/orma/dialect/sql/sqlgrammar"
)

func (a *app) runCmd() *cobra.Command {
	var (
		stats bool
		slow  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "run [file]",
		Short: "Execute a YAML query description on the configured database",
		Long: `Execute a YAML query description on the configured database.

Rows of select, count and exists statements are printed as a table; other
statements print the number of affected rows. Statements are logged at
debug level and statements slower than --slow are logged as warnings.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var r io.Reader = cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			d, err := decodeDesc(r)
			if err != nil {
				return err
			}
			g, err := sqlgrammar.New(a.cfg.ORM.Dialect, sqlgrammar.FromConfig(a.cfg.ORM)...)
			if err != nil {
				return err
			}
			e, err := a.compile(g, d)
			if err != nil {
				return err
			}
			e = e.Rebind(g.Info().Placeholder)

			db, err := a.cfg.Open(ctx)
			if err != nil {
				return err
			}
			logger := a.cfg.Logger()
			drv := sql.NewStatsDriver(
				sql.NewDebugDriver(db, sql.DebugWithLogger(logger)),
				sql.WithSlowThreshold(slow),
				sql.WithSlowQueryLog(logger),
			)
			defer drv.Close()
			if stats {
				defer func() {
					fmt.Fprintf(cmd.ErrOrStderr(), "-- %s\n", drv.Stats())
				}()
			}

			out := cmd.OutOrStdout()
			op := strings.ToLower(d.Statement)
			if op == "" {
				op = "select"
			}
			ctx = sql.WithOp(ctx, "run "+op)
			switch op {
			case "select", "count", "exists":
				return printRows(ctx, out, drv, e)
			default:
				var res sql.Result
				if err := drv.Exec(ctx, e.Text, e.Args, &res); err != nil {
					return err
				}
				n, err := res.RowsAffected()
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%d rows affected\n", n)
				return nil
			}
		},
	}
	cmd.Flags().BoolVar(&stats, "stats", false, "print statement statistics to stderr")
	cmd.Flags().DurationVar(&slow, "slow", 100*time.Millisecond, "slow statement threshold")
	return cmd
}

func printRows(ctx context.Context, w io.Writer, drv dialect.ExecQuerier, e sql.Expression) error {
	var rows sql.Rows
	if err := drv.Query(ctx, e.Text, e.Args, &rows); err != nil {
		return err
	}
	rs, err := sqlgraph.FromRows(rows.ColumnScanner)
	if err != nil {
		rows.Close()
		return err
	}
	defer rs.Close()
	cols := rs.Columns()
	var data []table.Row
	for {
		ok, err := rs.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		row := make(table.Row, len(cols))
		for i := range cols {
			row[i] = cell(rs.Value(i))
		}
		data = append(data, row)
	}
	if err := rs.Err(); err != nil {
		return err
	}
	if len(data) == 0 {
		fmt.Fprintln(w, "(0 rows)")
		return nil
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	header := make(table.Row, len(cols))
	for i, c := range cols {
		header[i] = c
	}
	t.AppendHeader(header)
	t.AppendRows(data)
	t.Render()
	fmt.Fprintf(w, "(%d rows)\n", len(data))
	return nil
}

func cell(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}
