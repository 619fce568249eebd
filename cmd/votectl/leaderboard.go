package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ideavote/internal/domain/directory"
	"ideavote/internal/domain/leaderboard"
	"ideavote/internal/domain/ledger"
)

var leaderboardPDF string

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Print the current top ideas, or export them as PDF",
	RunE: func(cmd *cobra.Command, args []string) error {
		pool, err := openPool(rootCtx)
		if err != nil {
			return err
		}
		defer pool.Close()

		svc := leaderboard.NewService(
			directory.NewService(directory.NewStore(pool)),
			ledger.NewService(ledger.NewStore(pool), nil),
			nil,
		)
		board, err := svc.Current(rootCtx)
		if err != nil {
			return err
		}

		if leaderboardPDF != "" {
			f, err := os.Create(leaderboardPDF)
			if err != nil {
				return err
			}
			title := "Idea Leaderboard " + board.GeneratedAt.Format("2006-01-02 15:04 MST")
			if err := leaderboard.WritePDF(f, title, board); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			color.Green("leaderboard written to %s", leaderboardPDF)
			return nil
		}

		printBoard(cmd.OutOrStdout(), board)
		return nil
	},
}

func printBoard(w io.Writer, board leaderboard.Board) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tNAME\tGROUP\tIDEA\tVOTES")
	for _, e := range board.Entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", e.Rank, e.DisplayName, e.GroupName, e.SelectedIdea, humanize.Comma(int64(e.VoteCount)))
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "%s votes in total, computed %s\n", humanize.Comma(int64(board.TotalVotes)), humanize.Time(board.GeneratedAt))
}

func init() {
	leaderboardCmd.Flags().StringVar(&leaderboardPDF, "pdf", "", "write the leaderboard to this PDF file instead of printing it")
}
