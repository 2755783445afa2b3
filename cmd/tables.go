package main

import (
	"fmt"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/okian/growthchart/internal/adapters/repository"
)

func newTablesCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List the reference partitions found in the data directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := e.service(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Stop()

			_, err = fmt.Fprintln(cmd.OutOrStdout(), renderPartitions(svc.Tables(cmd.Context())))
			return err
		},
	}
}

func renderPartitions(parts []repository.Partition) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Sex", "Metric", "Years", "Months", "Rows", "Source"})
	for _, p := range parts {
		t.AppendRow(table.Row{
			p.Sex,
			p.Metric,
			p.Range.String(),
			strconv.FormatFloat(p.Table.MinAge(), 'f', -1, 64) + "-" + strconv.FormatFloat(p.Table.MaxAge(), 'f', -1, 64),
			p.Table.Len(),
			p.Source,
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", len(parts), "partitions"})
	return t.Render()
}
