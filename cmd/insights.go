package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/medloom/internal/kb"
)

var insightsContext bool

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Print the insights summary of the current knowledge base",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := kb.Load(kbPath())
		if err != nil {
			return fmt.Errorf("%w (run `medloom run` first)", err)
		}
		if insightsContext {
			fmt.Fprint(cmd.OutOrStdout(), kb.Context(doc))
			return nil
		}
		fmt.Fprint(cmd.OutOrStdout(), kb.Insights(doc))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(insightsCmd)
	insightsCmd.Flags().BoolVar(&insightsContext, "context", false, "print the sectioned text handed to external models instead")
}
