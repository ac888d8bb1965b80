package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"brandstudio/internal/kb"
	"brandstudio/internal/logging"
	"brandstudio/internal/orchestrate"
	"brandstudio/internal/regen"
	"brandstudio/internal/server"
	"brandstudio/internal/store"
)

// serveCmd runs the HTTP API.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the campaign studio HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := store.Open(cfg.Store.DatabasePath)
		if err != nil {
			return fmt.Errorf("failed to open campaign store: %w", err)
		}
		defer st.Close()

		v, loader := newKBValidator()

		retriever, err := loadRetriever()
		if err != nil {
			return err
		}

		gen, err := newGenerator()
		if err != nil {
			return fmt.Errorf("failed to create generator: %w", err)
		}

		orchestrator := orchestrate.New(retriever, gen, v,
			regen.NewControllerFromKB(loader), st)

		srv := server.New(server.Config{
			Addr:           cfg.Addr(),
			Orchestrator:   orchestrator,
			Validator:      v,
			Store:          st,
			MaxAttempts:    cfg.Regeneration.MaxAttempts,
			Version:        cfg.Version,
			RequestTimeout: cfg.GetRequestTimeout(),
		})

		g, ctx := errgroup.WithContext(ctx)

		g.Go(srv.ListenAndServe)

		if cfg.Knowledge.Watch {
			watcher, err := kb.NewWatcher(loader)
			if err != nil {
				logging.Boot("WARN: knowledge base watcher unavailable: %v", err)
			} else if err := watcher.Start(ctx); err != nil {
				logging.Boot("WARN: knowledge base watcher failed to start: %v", err)
			} else {
				defer watcher.Stop()
			}
		}

		g.Go(func() error {
			<-ctx.Done()
			logging.Server("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})

		return g.Wait()
	},
}
