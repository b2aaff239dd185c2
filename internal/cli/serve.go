package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	h "github.com/openlaunch/resource-cache/internal/api/http"
	"github.com/openlaunch/resource-cache/internal/config"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the prefetch daemon with its REST API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			config.SetupLogger(cfg)
			slog.Info("configuration loaded successfully")

			resourceService, pool, err := buildService(cfg)
			if err != nil {
				return err
			}
			defer pool.Shutdown()

			router := h.NewRouter(resourceService, slog.Default())
			server := &http.Server{
				Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
				Handler:      router,
				ReadTimeout:  cfg.HTTPTimeout,
				WriteTimeout: cfg.HTTPTimeout,
				IdleTimeout:  cfg.HTTPTimeout,
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			go func() {
				slog.Info("server starting", "address", server.Addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					slog.Error("server failed to start", "error", err)
					os.Exit(1)
				}
			}()

			<-ctx.Done()
			slog.Info("shutdown signal received")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				slog.Error("server shutdown failed", "error", err)
				return err
			}
			slog.Info("server stopped gracefully")
			return nil
		},
	}
}
