package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newSchemaCommand(ctx *commandContext) *cobra.Command {
	schemaCmd := &cobra.Command{
		Use:   "schema",
		Short: "Inspect the schema of the current instance",
	}

	var asJSON bool
	viewCmd := &cobra.Command{
		Use:   "view",
		Short: "List tables and columns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := ctx.manager()
			if err != nil {
				return err
			}
			tables, err := mgr.SchemaView(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, tables)
			}
			rows := make([][]string, 0, len(tables))
			for _, t := range tables {
				cols := make([]string, 0, len(t.Columns))
				for _, c := range t.Columns {
					label := c.Name
					if c.PrimaryKey {
						label += "*"
					}
					cols = append(cols, label)
				}
				rows = append(rows, []string{t.Name, strconv.Itoa(t.Rows), strings.Join(cols, ", ")})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Table", "Rows", "Columns"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
	viewCmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	schemaCmd.AddCommand(viewCmd)
	return schemaCmd
}
