package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"lamin/internal/setup"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations of the current instance",
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := ctx.manager()
			if err != nil {
				return err
			}
			statuses, err := mgr.MigrateStatus(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(statuses))
			for _, s := range statuses {
				state := "pending"
				if s.Applied {
					state = "applied"
				}
				rows = append(rows, []string{s.Version, state})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Migration", "State"}, rows, nil))
			return nil
		},
	})
	migrateCmd.AddCommand(&cobra.Command{
		Use:   "deploy",
		Short: "Apply pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := ctx.manager()
			if err != nil {
				return err
			}
			applied, err := mgr.MigrateDeploy(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(applied) == 0 {
				fmt.Fprintln(out, "No pending migrations")
				return nil
			}
			fmt.Fprintf(out, "Applied %d migrations: %s\n", len(applied), strings.Join(applied, ", "))
			return nil
		},
	})

	var dir string
	createCmd := &cobra.Command{
		Use:         "create <description>",
		Short:       "Scaffold a new numbered migration file",
		Args:        cobra.MinimumNArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := setup.CreateMigration(strings.Join(args, " "), dir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
			return nil
		},
	}
	createCmd.Flags().StringVar(&dir, "dir", "migrations", "Directory holding migration files")
	migrateCmd.AddCommand(createCmd)

	return migrateCmd
}
