package main

import (
	"errors"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ideavote/internal/platform/jobs"
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete stored import responses older than IDEMPOTENCY_TTL",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.IdempotencyTTL <= 0 {
			return errors.New("IDEMPOTENCY_TTL must be positive")
		}
		pool, err := openPool(rootCtx)
		if err != nil {
			return err
		}
		defer pool.Close()

		runner := jobs.New(pool, cfg)
		details, err := runner.RunNow(rootCtx, jobs.JobIdempotencyPrune, runner.PruneIdempotency)
		if err != nil {
			return err
		}
		deleted, _ := details.(map[string]any)["deleted"].(int64)
		color.Green("pruned %s idempotency keys older than %s", humanize.Comma(deleted), cfg.IdempotencyTTL)
		return nil
	},
}
