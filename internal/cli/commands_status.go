package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mekedron/otter-menusync/internal/service/output"
)

func newStatusCommand(deps Dependencies) *cobra.Command {
	var flags globalFlags

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current sync configuration.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := output.ParseFormat(flags.Format)
			if err != nil {
				return err
			}
			settings := deps.Settings
			profileFile := "-"
			if deps.Config != nil {
				profileFile = deps.Config.Path()
			}
			data := map[string]any{
				"otter_username":        settings.Username,
				"otter_base_url":        settings.BaseURL,
				"active_profile":        settings.ActiveProfile,
				"profile_file":          profileFile,
				"sync_interval_minutes": settings.SyncIntervalMinutes,
				"sync_enabled":          settings.SyncEnabled,
				"sync_all_profiles":     settings.SyncAllProfiles,
				"dry_run":               settings.DryRun,
				"log_level":             settings.LogLevel,
				"database_url":          redactURL(settings.DatabaseURL),
				"nats_url":              redactURL(settings.NATSURL),
				"api_tokens":            len(settings.APITokens),
			}

			if format == output.FormatTable {
				rows := [][]string{
					{"Otter Username", settings.Username},
					{"Otter Base URL", settings.BaseURL},
					{"Active Profile", resolveProfileLabel(settings.ActiveProfile)},
					{"Profile File", profileFile},
					{"Sync Interval", fmt.Sprintf("%d minutes", settings.SyncIntervalMinutes)},
					{"Sync Enabled", output.YesNo(settings.SyncEnabled)},
					{"Sync All Profiles", output.YesNo(settings.SyncAllProfiles)},
					{"Dry Run Mode", output.YesNo(settings.DryRun)},
					{"Log Level", settings.LogLevel},
					{"History Store", redactURL(settings.DatabaseURL)},
					{"NATS", redactURL(settings.NATSURL)},
					{"API Tokens", strconv.Itoa(len(settings.APITokens))},
				}
				return writeTable(cmd, output.RenderTable("Menu Sync Configuration", []string{"Setting", "Value"}, rows), flags.Output)
			}
			env := output.BuildEnvelope(resolveProfileLabel(flags.Profile), data, nil, nil)
			return writeMachinePayload(cmd, env, format, flags.Output)
		},
	}

	addGlobalFlags(cmd, &flags)
	return cmd
}

func newHistoryCommand(deps Dependencies) *cobra.Command {
	var flags globalFlags
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded sync runs, newest first.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := output.ParseFormat(flags.Format)
			if err != nil {
				return err
			}
			profileName := resolveProfileLabel(flags.Profile)
			if limit <= 0 {
				return emitError(cmd, format, profileName, flags.Output, "MENUSYNC_INVALID_ARGUMENT", "--limit must be a positive integer.")
			}
			if deps.OpenHistory == nil {
				return emitError(cmd, format, profileName, flags.Output, "MENUSYNC_HISTORY_ERROR", "Sync history is not configured.")
			}
			history, err := deps.OpenHistory(cmd.Context())
			if err != nil {
				return emitError(cmd, format, profileName, flags.Output, "MENUSYNC_HISTORY_ERROR", err.Error())
			}
			defer history.Close()

			runs, err := history.Recent(cmd.Context(), flags.Profile, limit)
			if err != nil {
				return emitError(cmd, format, profileName, flags.Output, "MENUSYNC_HISTORY_ERROR", err.Error())
			}

			if format == output.FormatTable {
				if len(runs) == 0 {
					return writeTable(cmd, "No sync runs recorded.", flags.Output)
				}
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					mode := ""
					if run.DryRun {
						mode = "dry-run"
					}
					rows = append(rows, []string{
						run.RunID,
						resolveProfileLabel(run.Profile),
						string(run.Status),
						strconv.Itoa(run.ItemsProcessed),
						strconv.Itoa(run.ItemsCreated),
						strconv.Itoa(run.ItemsUpdated),
						strconv.Itoa(run.ItemsDeleted),
						mode,
						output.Timestamp(run.StartedAt),
						run.Error,
					})
				}
				headers := []string{"Run ID", "Profile", "Status", "Processed", "Created", "Updated", "Deleted", "Mode", "Started", "Error"}
				return writeTable(cmd, output.RenderTable("Sync History", headers, rows), flags.Output)
			}
			env := output.BuildEnvelope(profileName, map[string]any{"runs": runs}, nil, nil)
			return writeMachinePayload(cmd, env, format, flags.Output)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to list.")
	addGlobalFlags(cmd, &flags)
	return cmd
}
