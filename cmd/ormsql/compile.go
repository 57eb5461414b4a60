package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/syssam/orma"
	"github.com/syssam/orma/dialect/sql"
	"github.com/syssam/orma/dialect/sql/sqlgrammar"
)

func (a *app) compileCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "compile [file]",
		Short: "Print the SQL of a YAML query description",
		Long: `Print the SQL of a YAML query description.

The description is read from file, or from stdin when file is "-" or
omitted. Statements: select (default), count, exists, update, delete,
soft_delete and restore. Placeholders are rebound to the style of each
dialect.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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
			names := []string{a.cfg.ORM.Dialect}
			if all {
				names = sqlgrammar.List()
			}
			for i, name := range names {
				g, err := sqlgrammar.New(name, sqlgrammar.FromConfig(a.cfg.ORM)...)
				if err != nil {
					return err
				}
				e, err := a.compile(g, d)
				if err != nil {
					return fmt.Errorf("%s: %w", name, err)
				}
				if i > 0 {
					fmt.Fprintln(cmd.OutOrStdout())
				}
				printExpr(cmd.OutOrStdout(), name, e.Rebind(g.Info().Placeholder))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "compile for every registered dialect")
	return cmd
}

func (a *app) compile(g *sqlgrammar.Grammar, d *queryDesc) (sql.Expression, error) {
	q, err := d.query(a.cfg.ORM.Trashed)
	if err != nil {
		return sql.Expression{}, err
	}
	switch strings.ToLower(d.Statement) {
	case "", "select":
		return g.Select(q)
	case "count":
		return g.Count(q)
	case "exists":
		return g.Exists(q)
	case "update":
		return g.Update(q, d.cells())
	case "delete":
		return g.Delete(q)
	case "soft_delete":
		return g.SoftDelete(q, a.now())
	case "restore":
		return g.Restore(q)
	default:
		return sql.Expression{}, &orma.InvalidOperationError{Op: "compile", Reason: fmt.Sprintf("unknown statement %q", d.Statement)}
	}
}

func (a *app) now() time.Time {
	if a.cfg.ORM.Now != nil {
		return a.cfg.ORM.Now()
	}
	return time.Now()
}

func printExpr(w io.Writer, name string, e sql.Expression) {
	fmt.Fprintf(w, "-- %s\n%s;\n", name, e.Text)
	if len(e.Args) > 0 {
		args := make([]string, len(e.Args))
		for i, v := range e.Args {
			args[i] = fmt.Sprintf("%#v", v)
		}
		fmt.Fprintf(w, "-- args: %s\n", strings.Join(args, ", "))
	}
}
