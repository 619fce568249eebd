package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ideavote/internal/domain/directory"
	"ideavote/internal/domain/importer"
)

var importDryRun bool

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace the employee directory from a .csv, .xlsx or .xls file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			return err
		}
		fmt.Printf("reading %s (%s)\n", filepath.Base(path), humanize.Bytes(uint64(info.Size())))

		schema := importer.DefaultSchema()
		if cfg.ImportSchemaFile != "" {
			if schema, err = importer.LoadSchema(cfg.ImportSchemaFile); err != nil {
				return err
			}
		}

		if importDryRun {
			format, err := importer.DetectFormat(path)
			if err != nil {
				return err
			}
			data, err := io.ReadAll(f)
			if err != nil {
				return err
			}
			employees, report, err := importer.NewService(nil, nil, schema, cfg.MaxImportBytes).Parse(format, data)
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), report)
			color.Yellow("dry run: %s employees would be imported", humanize.Comma(int64(len(employees))))
			return nil
		}

		pool, err := openPool(rootCtx)
		if err != nil {
			return err
		}
		defer pool.Close()

		svc := importer.NewService(directory.NewService(directory.NewStore(pool)), nil, schema, cfg.MaxImportBytes)
		report, err := svc.Import(rootCtx, filepath.Base(path), f)
		printReport(cmd.OutOrStdout(), report)
		if err != nil {
			return err
		}
		color.Green("imported %s employees: %d new, %d updated, %d removed",
			humanize.Comma(int64(report.Accepted)), report.Result.Inserted, report.Result.Updated, report.Result.Removed)
		return nil
	},
}

func printReport(w io.Writer, report importer.Report) {
	if report.RowsRead == 0 {
		return
	}
	fmt.Fprintf(w, "format %s, %s rows read, %s accepted\n", report.Format, humanize.Comma(int64(report.RowsRead)), humanize.Comma(int64(report.Accepted)))
	skipped := color.New(color.FgYellow)
	for _, issue := range report.Skipped {
		skipped.Fprintf(w, "  row %d skipped: %s\n", issue.Row, issue.Reason)
	}
	for _, issue := range report.Duplicates {
		skipped.Fprintf(w, "  row %d (%s): %s\n", issue.Row, issue.EmployeeID, issue.Reason)
	}
}

func init() {
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "parse and report without touching the database")
}
