package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mekedron/otter-menusync/internal/domain"
	"github.com/mekedron/otter-menusync/internal/service/menusync"
	"github.com/mekedron/otter-menusync/internal/service/output"
)

type syncFlags struct {
	RestaurantID string
	DryRun       bool
	AllProfiles  bool
	Baseline     bool
}

func (f *syncFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.RestaurantID, "restaurant-id", "", "Restaurant ID to sync; defaults to the account menu.")
	cmd.Flags().BoolVar(&f.DryRun, "dry-run", false, "Detect changes without writing them to Otter.")
	cmd.Flags().BoolVar(&f.Baseline, "baseline", false, "Diff against the last snapshot stored in the sync history.")
}

func newSyncCommand(deps Dependencies) *cobra.Command {
	var flags globalFlags
	var opts syncFlags

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run a one-time menu synchronization.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := output.ParseFormat(flags.Format)
			if err != nil {
				return err
			}
			profileName := resolveProfileLabel(flags.Profile)
			engine, err := openEngine(cmd.Context(), deps, engineOptions{
				Profile:      flags.Profile,
				RestaurantID: strings.TrimSpace(opts.RestaurantID),
				DryRun:       opts.DryRun,
				Baseline:     opts.Baseline,
				Trace:        traceWriter(cmd, flags.Verbose),
			})
			if err != nil {
				return emitError(cmd, format, profileName, flags.Output, "MENUSYNC_RUNTIME_ERROR", err.Error())
			}
			defer engine.Close()

			allProfiles := opts.AllProfiles || (deps.Settings.SyncAllProfiles && strings.TrimSpace(flags.Profile) == "")
			if opts.DryRun && format == output.FormatTable {
				_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Running in dry-run mode - no changes will be applied")
			}

			results, err := engine.scheduler(cmd.Context(), allProfiles, nil).Tick(cmd.Context())
			if errors.Is(err, menusync.ErrNoProfiles) {
				return emitError(cmd, format, profileName, flags.Output, "MENUSYNC_NO_PROFILES", "No profiles configured")
			}
			if err != nil {
				return emitError(cmd, format, profileName, flags.Output, "MENUSYNC_PROFILE_ERROR", err.Error())
			}

			if format == output.FormatTable {
				if err := writeTable(cmd, buildSyncResultsTable(results, allProfiles), flags.Output); err != nil {
					return err
				}
			} else {
				summaries := make([]domain.SyncResult, 0, len(results))
				for _, result := range results {
					summaries = append(summaries, resultSummary(result))
				}
				env := output.BuildEnvelope(profileName, map[string]any{"results": summaries}, nil, nil)
				if err := writeMachinePayload(cmd, env, format, flags.Output); err != nil {
					return err
				}
			}
			if anyFailed(results) {
				return &exitError{code: 1}
			}
			return nil
		},
	}

	opts.register(cmd)
	cmd.Flags().BoolVar(&opts.AllProfiles, "all-profiles", false, "Sync every configured profile.")
	addGlobalFlags(cmd, &flags)
	return cmd
}

func buildSyncResultsTable(results []domain.SyncResult, allProfiles bool) string {
	if allProfiles {
		sections := []string{fmt.Sprintf("Synced %d profiles", len(results))}
		for _, result := range results {
			sections = append(sections, "Profile: "+resolveProfileLabel(result.Profile)+"\n"+output.SyncResultTable(result))
		}
		return strings.Join(sections, "\n\n")
	}
	sections := make([]string, 0, len(results))
	for _, result := range results {
		sections = append(sections, output.SyncResultTable(result))
	}
	return strings.Join(sections, "\n\n")
}

func newStartCommand(deps Dependencies) *cobra.Command {
	var flags globalFlags
	var opts syncFlags

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Run the periodic menu sync until interrupted.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			engine, err := openEngine(ctx, deps, engineOptions{
				Profile:      flags.Profile,
				RestaurantID: strings.TrimSpace(opts.RestaurantID),
				DryRun:       opts.DryRun,
				Baseline:     opts.Baseline,
				Trace:        traceWriter(cmd, flags.Verbose),
			})
			if err != nil {
				return err
			}
			defer engine.Close()

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintln(out, "Starting menu sync service")
			_, _ = fmt.Fprintf(out, "Sync interval: %d minutes\n", deps.Settings.SyncIntervalMinutes)
			_, _ = fmt.Fprintln(out, "Press Ctrl+C to stop")

			allProfiles := deps.Settings.SyncAllProfiles && strings.TrimSpace(flags.Profile) == ""
			if err := engine.scheduler(ctx, allProfiles, nil).Run(ctx); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(out, "Menu sync service stopped")
			return nil
		},
	}

	opts.register(cmd)
	addGlobalFlags(cmd, &flags)
	return cmd
}

func traceWriter(cmd *cobra.Command, verbose bool) io.Writer {
	if !verbose {
		return nil
	}
	_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "[verbose] http trace enabled")
	return cmd.ErrOrStderr()
}

// signalContext is overridden in tests.
var signalContext = func(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
