package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/medloom/internal/ai"
	"github.com/KaramelBytes/medloom/internal/kb"
)

var (
	askProvider string
	askModel    string
	askOffline  bool
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question about the analytics knowledge base",
	Long: `Ask the configured external model about the knowledge base. When the model is not
configured or the call fails, the answer comes from keyword matching over the knowledge base.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store := kb.NewStore(kbPath())
		if err := store.Load(); err != nil {
			return fmt.Errorf("%w (run `medloom run` first)", err)
		}
		provider := askProvider
		if askOffline {
			provider = ai.ProviderNone
		}
		r, err := newResponder(cfg, store, nil, provider, askModel)
		if err != nil {
			return err
		}
		ans, err := r.Answer(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, ans.Text)
		fmt.Fprintf(out, "\n[answered by: %s]\n", ans.Path)
		if ans.Err != nil {
			log.WithError(ans.Err).Debug("external model failed")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVar(&askProvider, "provider", "", "external model provider: gemini, openrouter, ollama or none (overrides config)")
	askCmd.Flags().StringVar(&askModel, "model", "", "model name (overrides config)")
	askCmd.Flags().BoolVar(&askOffline, "offline", false, "skip the external model and answer from the knowledge base")
}
