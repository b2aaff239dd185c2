package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/juju/clock"
	"github.com/spf13/cobra"

	"github.com/openlaunch/resource-cache/internal/cache"
	"github.com/openlaunch/resource-cache/internal/config"
	"github.com/openlaunch/resource-cache/internal/downloader"
	"github.com/openlaunch/resource-cache/internal/service"
	"github.com/openlaunch/resource-cache/internal/transport"
)

// Execute runs the root cobra command.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetcher",
		Short: "Versioned resource fetcher with a shared on-disk cache",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
		},
	}

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newFetchCmd())

	return cmd
}

// buildService composes the fetch stack from configuration. The returned
// pool must be shut down to drain in-flight downloads.
func buildService(cfg *config.Config) (*service.ResourceService, *downloader.WorkerPool, error) {
	logger := slog.Default()

	store, err := cache.NewStore(cfg.CacheDir, clock.WallClock, cfg.LockDelay, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("initialize cache store: %w", err)
	}

	tr := transport.NewHTTPTransport(cfg.DownloadTimeout, logger)
	pool := downloader.NewWorkerPool(cfg.WorkerPoolSize)

	d := downloader.New(store, tr, pool, downloader.Policy{
		Offline:        cfg.Offline,
		ForceRefresh:   cfg.ForceRefresh,
		DescriptorPath: cfg.DescriptorPath,
		RequestTimeout: cfg.DownloadTimeout,
	}, logger)

	return service.NewResourceService(d, logger), pool, nil
}
