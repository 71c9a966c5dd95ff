package main

import (
	"database/sql"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"careercatalyst/internal/config"
	"careercatalyst/internal/store"

	_ "modernc.org/sqlite"
)

func newMigrateCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or inspect database schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !dryRun {
				// Opening the store applies pending migrations.
				st, err := store.Open(cfg.DBPath)
				if err != nil {
					return fmt.Errorf("migrate: %w", err)
				}
				if err := st.Close(); err != nil {
					return err
				}
			}

			db, err := openRawDB(cfg.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()

			plan, err := store.MigrationPlan(db)
			if err != nil {
				return fmt.Errorf("inspect migrations: %w", err)
			}
			if *jsonOutput {
				return writeJSON(plan)
			}
			return writeMigrationPlan(plan, dryRun)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show pending migrations without applying")
	return cmd
}

func writeMigrationPlan(plan *store.MigrationStatus, dryRun bool) error {
	if !dryRun {
		return writePlain("schema at version %d\n", plan.CurrentVersion)
	}
	if err := writePlain("current version: %d\navailable version: %d\n", plan.CurrentVersion, plan.AvailableVersion); err != nil {
		return err
	}
	if len(plan.Pending) == 0 {
		return writePlain("no pending migrations\n")
	}
	for _, m := range plan.Pending {
		if err := writePlain("  pending %d: %s\n", m.Version, m.Description); err != nil {
			return err
		}
	}
	return nil
}

func openRawDB(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("db path is required")
	}
	u := url.URL{Scheme: "file", Path: path}
	return sql.Open("sqlite", u.String())
}
