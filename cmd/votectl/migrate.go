package main

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ideavote/internal/platform/db"
)

var migrateDir string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		pool, err := openPool(rootCtx)
		if err != nil {
			return err
		}
		defer pool.Close()

		dir := migrateDir
		if dir == "" {
			dir = cfg.MigrationsDir
		}
		if err := db.Migrate(rootCtx, pool, dir); err != nil {
			return err
		}
		color.Green("migrations applied from %s", dir)
		return nil
	},
}

func init() {
	migrateCmd.Flags().StringVar(&migrateDir, "dir", "", "migrations directory (default MIGRATIONS_DIR)")
}
