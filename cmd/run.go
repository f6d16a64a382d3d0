package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/medloom/internal/pipeline"
	"github.com/KaramelBytes/medloom/internal/records"
)

var (
	runSQLitePath string
	runTopN       int
)

var runCmd = &cobra.Command{
	Use:   "run [file]",
	Short: "Clean an appointments file and rebuild every artifact",
	Long: `Parse and clean the appointments file (CSV, TSV or XLSX), then write the four derived tables,
the cleaning report, the analytics knowledge base and the insights summary.
The input defaults to input_file from the configuration.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opt := pipelineOptions(args)
		if runSQLitePath != "" {
			opt.SQLitePath = runSQLitePath
		}
		res, err := pipeline.Run(cmd.Context(), opt)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		r := res.Report
		fmt.Fprintf(out, "✓ Processed %d rows from %s: %d accepted, %d rejected\n", r.Rows.Read, opt.InputFile, r.Rows.Accepted, r.Rows.Rejected)
		for _, c := range r.Checks {
			if !c.Passed {
				fmt.Fprintf(out, "⚠ Check %s: %s\n", c.Name, c.Detail)
			}
		}
		for _, p := range res.Artifacts {
			fmt.Fprintf(out, "  wrote %s\n", p)
		}
		return nil
	},
}

// pipelineOptions builds run options from the configuration and an optional input argument.
func pipelineOptions(args []string) pipeline.Options {
	opt := pipeline.Options{
		InputFile:  cfg.InputFile,
		CleanedDir: cfg.CleanedDir,
		KBDir:      cfg.KBDir,
		SQLitePath: cfg.SQLitePath,
		Parser:     records.Options{TimestampLayout: cfg.TimestampLayout, MaxAge: cfg.MaxAge},
		Areas:      cfg.Areas,
		TopN:       runTopN,
		Logger:     log,
	}
	if len(args) > 0 {
		opt.InputFile = args[0]
	}
	return opt
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runSQLitePath, "sqlite", "", "also mirror the derived tables into this SQLite database")
	runCmd.Flags().IntVar(&runTopN, "top", 0, "limit ranked lists in the knowledge base to the top N entries (0 keeps all)")
}
