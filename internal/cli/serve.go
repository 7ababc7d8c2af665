package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/RichardoC/arohi/internal/api"
	"github.com/RichardoC/arohi/internal/chat"
	"github.com/RichardoC/arohi/internal/db"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func (a *app) newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat UI and JSON API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().String("addr", ":8100", "listen address")
	cmd.Flags().String("web-dir", "web", "directory with the static UI")
	_ = a.v.BindPFlag("addr", cmd.Flags().Lookup("addr"))
	_ = a.v.BindPFlag("web_dir", cmd.Flags().Lookup("web-dir"))
	return cmd
}

func (a *app) serve(ctx context.Context) error {
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

	mux := http.NewServeMux()
	api.NewHandler(store, logger).Routes(mux)
	mux.Handle("/", http.FileServer(http.Dir(cfg.WebDir)))

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		logger.Info("Starting server",
			zap.String("addr", cfg.Addr),
			zap.String("provider", cfg.Provider),
			zap.String("model", cfg.Model))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logger.Info("Shutting down server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
