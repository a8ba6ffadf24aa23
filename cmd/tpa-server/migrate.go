package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/garyjia/tpa-claims/migrations"
	"github.com/garyjia/tpa-claims/pkg/database"
)

func newMigrateCmd() *cobra.Command {
	var statusOnly bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			if dir := filepath.Dir(cfg.Database.Path); dir != "." {
				if err := os.MkdirAll(dir, 0755); err != nil {
					return fmt.Errorf("failed to create database directory: %w", err)
				}
			}

			db, err := database.New(database.Config{
				Path:        cfg.Database.Path,
				BusyTimeout: cfg.Database.BusyTimeout,
			}, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			migrator := database.NewMigrator(db, logger)
			out := cmd.OutOrStdout()

			if statusOnly {
				pending, err := migrator.Pending(cmd.Context(), migrations.FS)
				if err != nil {
					return fmt.Errorf("failed to check migrations: %w", err)
				}
				fmt.Fprintf(out, "%d pending migration(s) for %s\n", len(pending), cfg.Database.Path)
				for _, m := range pending {
					fmt.Fprintf(out, "  %03d %s\n", m.Version, m.Name)
				}
				return nil
			}

			applied, err := migrator.RunMigrations(cmd.Context(), migrations.FS)
			if err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}

			fmt.Fprintf(out, "applied %d migration(s) to %s\n", applied, cfg.Database.Path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&statusOnly, "status", false, "list pending migrations without applying them")
	return cmd
}
