package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/medloom/internal/config"
	"github.com/KaramelBytes/medloom/internal/kb"
	"github.com/KaramelBytes/medloom/internal/logging"
)

var (
	// Global flags
	cfgFile            string
	debug              bool
	flagLogFormat      string
	flagHTTPTimeoutSec int
	flagCleanedDir     string
	flagKBDir          string

	// Loaded configuration
	cfg *cfgpkg.Global
	log *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:   "medloom",
	Short: "medloom: clean clinic appointment data and answer questions about it",
	Long: `medloom turns a medical-appointment CSV into cleaned tables, a data-quality report and an
analytics knowledge base, then answers questions about it from the command line or over HTTP.`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.medloom/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "log format: text or json (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagHTTPTimeoutSec, "http-timeout", 0, "HTTP client timeout in seconds for external models (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagCleanedDir, "cleaned-dir", "", "directory for cleaned tables and the cleaning report (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagKBDir, "kb-dir", "", "directory for the knowledge base and insights (overrides config)")
}

func loadConfig() {
	// .env is optional; it usually carries GEMINI_API_KEY / OPENROUTER_API_KEY.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to read .env: %v\n", err)
	}
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: fall back to defaults so read-only commands still work
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		c = &cfgpkg.Global{}
	}
	cfg = c

	f := rootCmd.PersistentFlags()
	if f.Changed("http-timeout") && flagHTTPTimeoutSec > 0 {
		cfg.HTTPTimeoutSec = flagHTTPTimeoutSec
	}
	if f.Changed("log-format") && flagLogFormat != "" {
		cfg.LogFormat = flagLogFormat
	}
	if flagCleanedDir != "" {
		cfg.CleanedDir = flagCleanedDir
	}
	if flagKBDir != "" {
		cfg.KBDir = flagKBDir
	}
	level := cfg.LogLevel
	if debug {
		level = "debug"
	}
	log = logging.New(logging.Options{Level: level, Format: cfg.LogFormat})
}

// kbPath is the knowledge-base file inside the configured kb directory.
func kbPath() string {
	return filepath.Join(cfg.KBDir, kb.FileName)
}
