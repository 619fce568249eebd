package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"ideavote/internal/platform/config"
	"ideavote/internal/platform/db"
)

var (
	cfg     config.Config
	rootCtx context.Context
)

var rootCmd = &cobra.Command{
	Use:           "votectl",
	Short:         "Operator tooling for the idea voting service",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.Load()
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	rootCtx = ctx

	rootCmd.AddCommand(migrateCmd, importCmd, adminCmd, qrCmd, leaderboardCmd, pruneCmd)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		color.Red("error: %v", err)
		stop()
		os.Exit(1)
	}
}

func openPool(ctx context.Context) (*pgxpool.Pool, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	return db.Connect(ctx, cfg)
}
