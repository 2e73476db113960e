package main

import (
	"database/sql"
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/tarikstafford/reve-app-sub000/internal/platform/postgres"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or inspect database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDB(cmd.Context(), func(db *sql.DB, driver string) error {
				n, err := postgres.Migrate(cmd.Context(), db, driver, nil)
				if err != nil {
					return err
				}
				if n == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Database is up to date")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Applied %d %s\n", n, plural(n, "migration"))
				return nil
			})
		},
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDB(cmd.Context(), func(db *sql.DB, driver string) error {
				provider, err := postgres.NewMigrator(db, driver, nil)
				if err != nil {
					return err
				}
				statuses, err := provider.Status(cmd.Context())
				if err != nil {
					return fmt.Errorf("read migration status: %w", err)
				}
				rows := make([][]string, 0, len(statuses))
				for _, s := range statuses {
					applied := ""
					if !s.AppliedAt.IsZero() {
						applied = humanize.Time(s.AppliedAt)
					}
					rows = append(rows, []string{
						strconv.FormatInt(s.Source.Version, 10),
						s.Source.Path,
						string(s.State),
						applied,
					})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"Version", "File", "State", "Applied"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	})
	return migrateCmd
}
