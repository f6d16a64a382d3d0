package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	// Pipeline inputs and artifact locations
	InputFile       string            `mapstructure:"input_file" yaml:"input_file"`
	CleanedDir      string            `mapstructure:"cleaned_dir" yaml:"cleaned_dir"`
	KBDir           string            `mapstructure:"kb_dir" yaml:"kb_dir"`
	SQLitePath      string            `mapstructure:"sqlite_path" yaml:"sqlite_path"`
	TimestampLayout string            `mapstructure:"timestamp_layout" yaml:"timestamp_layout"`
	MaxAge          int               `mapstructure:"max_age" yaml:"max_age"`
	Areas           map[string]string `mapstructure:"areas" yaml:"areas"`

	// External model
	Provider          string  `mapstructure:"provider" yaml:"provider"`
	Model             string  `mapstructure:"model" yaml:"model"`
	APIKey            string  `mapstructure:"api_key" yaml:"api_key"`
	GeminiAPIKey      string  `mapstructure:"gemini_api_key" yaml:"gemini_api_key"`
	OllamaHost        string  `mapstructure:"ollama_host" yaml:"ollama_host"`
	QueryTimeoutSec   int     `mapstructure:"query_timeout_sec" yaml:"query_timeout_sec"`
	MaxTokens         int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature       float64 `mapstructure:"temperature" yaml:"temperature"`
	ContextTokenLimit int     `mapstructure:"context_token_limit" yaml:"context_token_limit"`
	AnswerCacheSize   int     `mapstructure:"answer_cache_size" yaml:"answer_cache_size"`
	HTTPTimeoutSec    int     `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`

	// HTTP service
	ListenAddr    string  `mapstructure:"listen_addr" yaml:"listen_addr"`
	ChatRateLimit float64 `mapstructure:"chat_rate_limit" yaml:"chat_rate_limit"`
	ChatBurst     int     `mapstructure:"chat_burst" yaml:"chat_burst"`

	// Logging
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
}

// Dir returns the per-user configuration directory (~/.medloom).
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".medloom"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.medloom/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults. CLI flags are applied by the caller.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("MEDLOOM")
	v.AutomaticEnv()
	// Provider keys are commonly exported without the prefix.
	_ = v.BindEnv("api_key", "MEDLOOM_API_KEY", "OPENROUTER_API_KEY")
	_ = v.BindEnv("gemini_api_key", "MEDLOOM_GEMINI_API_KEY", "GEMINI_API_KEY")

	v.SetDefault("input_file", filepath.Join("data", "raw", "appointments.csv"))
	v.SetDefault("cleaned_dir", filepath.Join("data", "cleaned"))
	v.SetDefault("kb_dir", filepath.Join("data", "knowledge_base"))
	v.SetDefault("sqlite_path", "")
	v.SetDefault("timestamp_layout", "2/1/2006 15:04")
	v.SetDefault("max_age", 150)
	v.SetDefault("areas", map[string]string{})

	v.SetDefault("provider", "gemini")
	v.SetDefault("model", "gemini-1.5-flash")
	v.SetDefault("api_key", "")
	v.SetDefault("gemini_api_key", "")
	v.SetDefault("ollama_host", "http://127.0.0.1:11434")
	v.SetDefault("query_timeout_sec", 8)
	v.SetDefault("max_tokens", 1024)
	v.SetDefault("temperature", 0.2)
	v.SetDefault("context_token_limit", 6000)
	v.SetDefault("answer_cache_size", 128)
	v.SetDefault("http_timeout_sec", 30)

	v.SetDefault("listen_addr", ":8000")
	v.SetDefault("chat_rate_limit", 2.0)
	v.SetDefault("chat_burst", 5)

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.Areas == nil {
		c.Areas = map[string]string{}
	}
	return &c, nil
}
