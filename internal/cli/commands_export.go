package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/mekedron/otter-menusync/internal/gateway/otter"
	"github.com/mekedron/otter-menusync/internal/service/output"
)

func newExportCommand(deps Dependencies) *cobra.Command {
	var flags globalFlags
	var restaurantID string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Fetch the current menu from Otter and print it.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := output.ParseFormat(flags.Format, output.FormatTable, output.FormatJSON, output.FormatYAML, output.FormatCSV)
			if err != nil {
				return err
			}
			profileName := resolveProfileLabel(flags.Profile)
			if deps.Profiles == nil {
				return emitError(cmd, format, profileName, flags.Output, "MENUSYNC_CONFIG_ERROR", "Profile resolver is not available.")
			}
			creds, err := deps.Profiles.Credentials(cmd.Context(), flags.Profile)
			if err != nil {
				return emitError(cmd, format, profileName, flags.Output, "MENUSYNC_CONFIG_ERROR", err.Error())
			}

			rt := &engine{deps: deps, opts: engineOptions{Trace: traceWriter(cmd, flags.Verbose)}, logger: deps.logger()}
			client := otter.NewClient(creds, rt.otterOptions()...)
			defer client.Close()

			if !client.Authenticate(cmd.Context()) {
				return emitError(cmd, format, profileName, flags.Output, "MENUSYNC_AUTH_ERROR", "Authentication failed")
			}
			menu, err := client.FetchMenuData(cmd.Context(), strings.TrimSpace(restaurantID))
			if err != nil || menu == nil {
				message := "Failed to fetch menu data"
				if err != nil && flags.Verbose {
					message += ": " + err.Error()
				}
				return emitError(cmd, format, profileName, flags.Output, "MENUSYNC_UPSTREAM_ERROR", message)
			}

			switch format {
			case output.FormatCSV:
				rendered, err := output.MenuCSV(menu)
				if err != nil {
					return err
				}
				return writeTable(cmd, rendered, flags.Output)
			case output.FormatTable:
				return writeTable(cmd, output.MenuTables(menu), flags.Output)
			default:
				env := output.BuildEnvelope(profileName, menu, nil, nil)
				return writeMachinePayload(cmd, env, format, flags.Output)
			}
		},
	}

	cmd.Flags().StringVar(&restaurantID, "restaurant-id", "", "Restaurant ID to export; defaults to the account menu.")
	addGlobalFlags(cmd, &flags)
	cmd.Flags().Lookup("format").Usage = "Output format: table, json, yaml, or csv."
	return cmd
}
