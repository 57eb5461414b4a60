package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/syssam/orma/dialect/sql"
	"github.com/syssam/orma/dialect/sql/sqlgrammar"
)

func (a *app) dialectsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dialects",
		Short: "List the registered dialects and their capabilities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Dialect", "Quote", "Placeholder", "Max Params", "Pagination", "Upsert", "Returning"})
			for _, name := range sqlgrammar.List() {
				g, err := sqlgrammar.New(name, sqlgrammar.FromConfig(a.cfg.ORM)...)
				if err != nil {
					return err
				}
				info := g.Info()
				t.AppendRow(table.Row{
					name, g.Quote("x"), placeholder(info.Placeholder), info.MaxParams,
					pagination(info.Pagination), upsert(info.Upsert), returning(info.Returning),
				})
			}
			t.Render()
			return nil
		},
	}
}

func placeholder(p sql.PlaceholderStyle) string {
	if p == sql.PlaceholderDollar {
		return "$n"
	}
	return "?"
}

func pagination(p sqlgrammar.Pagination) string {
	switch p {
	case sqlgrammar.PaginateOffsetFetch:
		return "offset-fetch"
	case sqlgrammar.PaginateRowNumber:
		return "row-number"
	default:
		return "limit-offset"
	}
}

func upsert(u sqlgrammar.UpsertStyle) string {
	switch u {
	case sqlgrammar.UpsertDuplicateKey:
		return "on-duplicate-key"
	case sqlgrammar.UpsertMerge:
		return "merge"
	default:
		return "on-conflict"
	}
}

func returning(r sqlgrammar.ReturningStyle) string {
	switch r {
	case sqlgrammar.ReturningOutput:
		return "output"
	case sqlgrammar.ReturningLastInsertID:
		return "last-insert-id"
	default:
		return "returning"
	}
}
