// Package config loads arohi settings from flags, AROHI_* environment
// variables and an optional arohi.yaml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/RichardoC/arohi/internal/llm"
	"github.com/spf13/viper"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

type Config struct {
	DBPath   string        `mapstructure:"db"`
	Addr     string        `mapstructure:"addr"`
	WebDir   string        `mapstructure:"web_dir"`
	Provider string        `mapstructure:"provider"`
	Model    string        `mapstructure:"model"`
	BaseURL  string        `mapstructure:"base_url"`
	APIKey   string        `mapstructure:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout"`
	LogLevel string        `mapstructure:"log_level"`
}

// SetDefaults registers defaults and environment lookups on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("db", "arohi.db")
	v.SetDefault("addr", ":8100")
	v.SetDefault("web_dir", "web")
	v.SetDefault("provider", ProviderGemini)
	v.SetDefault("model", "")
	v.SetDefault("base_url", "")
	v.SetDefault("api_key", "")
	v.SetDefault("timeout", llm.DefaultTimeout)
	v.SetDefault("log_level", "info")

	v.SetEnvPrefix("arohi")
	v.AutomaticEnv()
}

// ReadFile reads path, or arohi.yaml from $HOME/.arohi and the working
// directory when path is empty. A missing default file is not an error.
func ReadFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config %s: %w", path, err)
		}
		return nil
	}

	v.SetConfigName("arohi")
	v.SetConfigType("yaml")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".arohi"))
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

// Load decodes v into a Config and fills in provider-specific defaults.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	switch cfg.Provider {
	case ProviderGemini:
		if cfg.Model == "" {
			cfg.Model = llm.DefaultModel
		}
		if cfg.APIKey == "" {
			cfg.APIKey = firstEnv("GEMINI_API_KEY", "API_KEY")
		}
	case ProviderOpenAI:
		if cfg.Model == "" {
			cfg.Model = "gpt-4o-mini"
		}
		if cfg.APIKey == "" {
			cfg.APIKey = firstEnv("OPENAI_API_KEY")
		}
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}

	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("timeout must not be negative, got %s", cfg.Timeout)
	}
	return &cfg, nil
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value := os.Getenv(key); value != "" {
			return value
		}
	}
	return ""
}
