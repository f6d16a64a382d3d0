package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/medloom/internal/pipeline"
	"github.com/KaramelBytes/medloom/internal/utils"
)

var reportJSON bool

var reportCmd = &cobra.Command{
	Use:   "report [file]",
	Short: "Print the data-quality report for an appointments file without writing anything",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := pipeline.Analyze(cmd.Context(), pipelineOptions(args))
		if err != nil {
			return err
		}
		if reportJSON {
			b, err := utils.PrettyJSON(res.Report)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(b)
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), res.Report.Markdown())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "print the report as JSON")
}
