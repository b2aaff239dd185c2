package cli

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/openlaunch/resource-cache/internal/config"
	"github.com/openlaunch/resource-cache/internal/service"
)

func newFetchCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "fetch URL[@VERSION]...",
		Short: "Fetch resources into the cache and print their local paths",
		Long: `Fetch downloads each resource into the shared cache, reusing current
cached copies, and prints one local file path per resource. A version
constraint is appended after '@', e.g. http://host/lib.jar@1.4+.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			config.SetupLogger(cfg)

			resourceService, pool, err := buildService(cfg)
			if err != nil {
				return err
			}
			defer pool.Shutdown()

			if timeout <= 0 {
				timeout = cfg.DownloadTimeout
			}

			views := make([]*service.View, len(args))
			for i, arg := range args {
				rawURL, rawVersion := splitVersionSuffix(arg)
				v, err := resourceService.Ensure(cmd.Context(), &service.EnsureRequest{
					URL:     rawURL,
					Version: rawVersion,
				})
				if err != nil {
					return fmt.Errorf("fetch %s: %w", arg, err)
				}
				views[i] = v
			}

			var g errgroup.Group
			results := make([]*service.View, len(views))
			for i, v := range views {
				g.Go(func() error {
					final, err := resourceService.Await(cmd.Context(), v.ID, timeout)
					if err != nil {
						return fmt.Errorf("fetch %s: %w", v.URL, err)
					}
					results[i] = final
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			failed := 0
			for _, v := range results {
				if v.Failed {
					failed++
					slog.Error("resource failed", "url", v.URL, "version", v.Version)
					continue
				}
				fmt.Fprintln(cmd.OutOrStdout(), v.LocalPath)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d resources failed", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Maximum time to wait per resource (default: download timeout)")

	return cmd
}

// splitVersionSuffix splits a URL@VERSION argument. The separator is the
// last '@' after the final path slash, so URLs with userinfo still parse.
func splitVersionSuffix(arg string) (string, string) {
	at := strings.LastIndex(arg, "@")
	if at > strings.LastIndex(arg, "/") {
		return arg[:at], arg[at+1:]
	}
	return arg, ""
}
