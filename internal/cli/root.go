// Package cli wires configuration, logging, storage and the completion
// client into the arohi commands.
package cli

import (
	"context"
	"fmt"

	"github.com/RichardoC/arohi/internal/config"
	"github.com/RichardoC/arohi/internal/llm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type app struct {
	v       *viper.Viper
	cfgFile string
}

func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}
	config.SetDefaults(a.v)

	cmd := &cobra.Command{
		Use:           "arohi",
		Short:         "Chat with Arohi, a personal AI companion",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.ReadFile(a.v, a.cfgFile)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default $HOME/.arohi/arohi.yaml)")
	flags.String("db", "arohi.db", "path to the conversation database")
	flags.String("provider", config.ProviderGemini, "model provider: gemini or openai")
	flags.String("model", "", "model identifier")
	flags.String("base-url", "", "base URL for OpenAI-compatible endpoints")
	flags.Duration("timeout", llm.DefaultTimeout, "per-reply timeout")
	flags.String("log-level", "info", "log level")

	for key, flag := range map[string]string{
		"db":        "db",
		"provider":  "provider",
		"model":     "model",
		"base_url":  "base-url",
		"timeout":   "timeout",
		"log_level": "log-level",
	} {
		_ = a.v.BindPFlag(key, flags.Lookup(flag))
	}

	cmd.AddCommand(a.newServeCommand(), a.newChatCommand(), a.newAskCommand())
	return cmd
}

func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

func (a *app) load() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(a.v)
	if err != nil {
		return nil, nil, err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

// newCompletionService builds the configured backend. A backend that cannot
// be set up is logged and replaced so each reply degrades to llm.Apology.
func newCompletionService(ctx context.Context, cfg *config.Config, logger *zap.Logger) *llm.Service {
	var (
		gen llm.Generator
		err error
	)
	switch cfg.Provider {
	case config.ProviderOpenAI:
		gen, err = llm.NewOpenAIGenerator(cfg.BaseURL, cfg.APIKey, cfg.Model)
	default:
		gen, err = llm.NewGeminiGenerator(ctx, cfg.APIKey)
	}
	if err != nil {
		logger.Warn("Completion backend unavailable, replies will apologise",
			zap.String("provider", cfg.Provider),
			zap.Error(err))
		gen = llm.Unavailable(err)
	}

	return llm.New(gen, logger,
		llm.WithModel(cfg.Model),
		llm.WithTimeout(cfg.Timeout))
}
