package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/medloom/internal/ai"
	cfgpkg "github.com/KaramelBytes/medloom/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set medloom configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if cfg == nil {
			fmt.Fprintln(out, "No config loaded")
			return nil
		}
		fmt.Fprintf(out, "input_file: %s\n", cfg.InputFile)
		fmt.Fprintf(out, "cleaned_dir: %s\n", cfg.CleanedDir)
		fmt.Fprintf(out, "kb_dir: %s\n", cfg.KBDir)
		if cfg.SQLitePath != "" {
			fmt.Fprintf(out, "sqlite_path: %s\n", cfg.SQLitePath)
		}
		fmt.Fprintf(out, "timestamp_layout: %s\n", cfg.TimestampLayout)
		fmt.Fprintf(out, "max_age: %d\n", cfg.MaxAge)
		if len(cfg.Areas) > 0 {
			fmt.Fprintf(out, "areas: %d configured\n", len(cfg.Areas))
		}
		fmt.Fprintf(out, "provider: %s\n", cfg.Provider)
		fmt.Fprintf(out, "model: %s\n", cfg.Model)
		fmt.Fprintf(out, "api_key: %s\n", mask(cfg.APIKey))
		fmt.Fprintf(out, "gemini_api_key: %s\n", mask(cfg.GeminiAPIKey))
		fmt.Fprintf(out, "ollama_host: %s\n", cfg.OllamaHost)
		fmt.Fprintf(out, "query_timeout_sec: %d\n", cfg.QueryTimeoutSec)
		fmt.Fprintf(out, "max_tokens: %d\n", cfg.MaxTokens)
		fmt.Fprintf(out, "temperature: %.3f\n", cfg.Temperature)
		fmt.Fprintf(out, "context_token_limit: %d\n", cfg.ContextTokenLimit)
		fmt.Fprintf(out, "answer_cache_size: %d\n", cfg.AnswerCacheSize)
		fmt.Fprintf(out, "http_timeout_sec: %d\n", cfg.HTTPTimeoutSec)
		fmt.Fprintf(out, "listen_addr: %s\n", cfg.ListenAddr)
		fmt.Fprintf(out, "chat_rate_limit: %.3f\n", cfg.ChatRateLimit)
		fmt.Fprintf(out, "chat_burst: %d\n", cfg.ChatBurst)
		fmt.Fprintf(out, "log_level: %s\n", cfg.LogLevel)
		fmt.Fprintf(out, "log_format: %s\n", cfg.LogFormat)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		if err := setConfigValue(cfg, key, val); err != nil {
			return err
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func setConfigValue(c *cfgpkg.Global, key, val string) error {
	switch key {
	case "input_file":
		c.InputFile = val
	case "cleaned_dir":
		c.CleanedDir = val
	case "kb_dir":
		c.KBDir = val
	case "sqlite_path":
		c.SQLitePath = val
	case "timestamp_layout":
		c.TimestampLayout = val
	case "max_age":
		i, err := strconv.Atoi(val)
		if err != nil || i <= 0 {
			return fmt.Errorf("invalid positive int for max_age: %v", val)
		}
		c.MaxAge = i
	case "provider":
		p := strings.ToLower(strings.TrimSpace(val))
		switch p {
		case "local":
			p = ai.ProviderOllama
		case "google":
			p = ai.ProviderGemini
		}
		if p != ai.ProviderNone && !knownProvider(p) {
			return fmt.Errorf("invalid provider: %s (use %s or %s)", val, strings.Join(ai.Providers(), ", "), ai.ProviderNone)
		}
		c.Provider = p
	case "model":
		c.Model = val
	case "api_key":
		c.APIKey = val
	case "gemini_api_key":
		c.GeminiAPIKey = val
	case "ollama_host":
		c.OllamaHost = val
	case "query_timeout_sec", "max_tokens", "context_token_limit", "answer_cache_size", "http_timeout_sec", "chat_burst":
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return fmt.Errorf("invalid int for %s: %v", key, val)
		}
		switch key {
		case "query_timeout_sec":
			c.QueryTimeoutSec = i
		case "max_tokens":
			c.MaxTokens = i
		case "context_token_limit":
			c.ContextTokenLimit = i
		case "answer_cache_size":
			c.AnswerCacheSize = i
		case "http_timeout_sec":
			c.HTTPTimeoutSec = i
		case "chat_burst":
			c.ChatBurst = i
		}
	case "temperature":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || f < 0 || f > 2 {
			return fmt.Errorf("invalid float for temperature: %v", val)
		}
		c.Temperature = f
	case "chat_rate_limit":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || f < 0 {
			return fmt.Errorf("invalid float for chat_rate_limit: %v", val)
		}
		c.ChatRateLimit = f
	case "listen_addr":
		c.ListenAddr = val
	case "log_level":
		if _, err := logrus.ParseLevel(val); err != nil {
			return err
		}
		c.LogLevel = val
	case "log_format":
		if val != "text" && val != "json" {
			return fmt.Errorf("invalid log_format: %s (use text or json)", val)
		}
		c.LogFormat = val
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}

func knownProvider(name string) bool {
	for _, p := range ai.Providers() {
		if p == name {
			return true
		}
	}
	return false
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
