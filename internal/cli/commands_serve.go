package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/mekedron/otter-menusync/internal/access"
	"github.com/mekedron/otter-menusync/internal/events"
	"github.com/mekedron/otter-menusync/internal/server"
)

func newServeCommand(deps Dependencies) *cobra.Command {
	var flags globalFlags
	var opts syncFlags
	var addr string
	var noScheduler bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and event stream alongside the periodic sync.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()
			logger := deps.logger()

			tokens, err := access.NewTokens(deps.Settings.APITokens)
			if err != nil {
				return fmt.Errorf("api tokens: %w", err)
			}
			if tokens.Len() == 0 {
				logger.Warn("no API tokens configured, every API request will be rejected")
			}

			hub := events.NewHub(logger, nil)
			defer hub.Close()

			engine, err := openEngine(ctx, deps, engineOptions{
				Profile:      flags.Profile,
				RestaurantID: strings.TrimSpace(opts.RestaurantID),
				DryRun:       opts.DryRun,
				Baseline:     opts.Baseline,
				Trace:        traceWriter(cmd, flags.Verbose),
				Publishers:   []events.Publisher{hub},
			})
			if err != nil {
				return err
			}
			defer engine.Close()

			service := engine.newService(ctx, "")
			var runs server.RunLister
			if engine.history != nil {
				runs = engine.history
			}
			listenAddr := strings.TrimSpace(addr)
			if listenAddr == "" {
				listenAddr = deps.Settings.ServeAddr
			}
			cfg := server.Config{
				Addr:        listenAddr,
				CORSOrigins: deps.Settings.CORSOrigins,
				Tokens:      tokens,
			}
			if deps.Profiles != nil {
				cfg.Profiles = deps.Profiles
			}
			srv := server.New(cfg, service, runs, hub, logger)

			schedulerCtx, cancelScheduler := context.WithCancel(ctx)
			defer cancelScheduler()
			var wg sync.WaitGroup
			if !noScheduler && deps.Settings.SyncEnabled {
				allProfiles := deps.Settings.SyncAllProfiles && strings.TrimSpace(flags.Profile) == ""
				scheduler := engine.scheduler(schedulerCtx, allProfiles, service)
				wg.Add(1)
				go func() {
					defer wg.Done()
					if err := scheduler.Run(schedulerCtx); err != nil && !errors.Is(err, context.Canceled) {
						logger.Error("menu sync scheduler stopped", "err", err)
					}
				}()
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Serving menu sync API on %s\n", listenAddr)
			err = srv.Run(ctx)
			cancelScheduler()
			wg.Wait()
			return err
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address; defaults to MENU_SYNC_ADDR or :8080.")
	cmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "Only serve the API; syncs run on POST /api/v1/sync.")
	addGlobalFlags(cmd, &flags)
	return cmd
}
