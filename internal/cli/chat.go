package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/RichardoC/arohi/internal/chat"
	"github.com/RichardoC/arohi/internal/db"
	"github.com/RichardoC/arohi/internal/repl"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (a *app) newChatCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Chat with Arohi in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.chat(cmd.Context())
		},
	}
}

func (a *app) chat(ctx context.Context) error {
	cfg, logger, err := a.load()
	if err != nil {
		return err
	}
	defer logger.Sync()

	database, err := db.New(cfg.DBPath)
	if err != nil {
		logger.Error("failed to initialize database",
			zap.Error(err),
			zap.String("dbPath", cfg.DBPath))
		return err
	}
	defer database.Close()

	store := chat.New(database, newCompletionService(ctx, cfg, logger), logger)
	defer store.Wait()

	return repl.New(store, os.Stdout, logger).Run(ctx)
}

func (a *app) newAskCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <message>",
		Short: "Send one message without history and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := a.load()
			if err != nil {
				return err
			}
			defer logger.Sync()

			// nothing from a one-shot question is kept
			store := chat.New(db.NewMemoryKV(), newCompletionService(cmd.Context(), cfg, logger), logger)
			store.SetMemory(false)

			bot, ok := store.SendMessage(cmd.Context(), store.CreateSession(), strings.Join(args, " "))
			if !ok {
				return fmt.Errorf("no reply")
			}
			fmt.Fprintln(cmd.OutOrStdout(), bot.Text)
			return nil
		},
	}
}
