package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mekedron/otter-menusync/internal/config"
	"github.com/mekedron/otter-menusync/internal/domain"
	"github.com/mekedron/otter-menusync/internal/service/output"
)

func newProfileCommand(deps Dependencies) *cobra.Command {
	profile := &cobra.Command{
		Use:   "profile",
		Short: "Manage Otter account profiles.",
	}
	profile.AddCommand(newProfileAddCommand(deps))
	profile.AddCommand(newProfileListCommand(deps))
	profile.AddCommand(newProfileShowCommand(deps))
	profile.AddCommand(newProfileRemoveCommand(deps))
	return profile
}

func loadProfiles(ctx context.Context, deps Dependencies) (domain.Config, error) {
	if deps.Config == nil {
		return domain.Config{}, errors.New("profile file is not configured")
	}
	cfg, err := deps.Config.Load(ctx)
	if errors.Is(err, config.ErrConfigNotFound) {
		return domain.Config{}, nil
	}
	return cfg, err
}

func findProfileIndex(cfg domain.Config, name string) int {
	want := strings.ToLower(strings.TrimSpace(name))
	for i, profile := range cfg.Profiles {
		if strings.ToLower(profile.Name) == want {
			return i
		}
	}
	return -1
}

// profileView is the printable form of a profile; the password never leaves the profile file.
func profileView(profile domain.Profile) map[string]any {
	restaurantIDs := profile.RestaurantIDs
	if restaurantIDs == nil {
		restaurantIDs = []string{}
	}
	return map[string]any{
		"name":           profile.Name,
		"username":       profile.Username,
		"base_url":       profile.ResolvedBaseURL(),
		"description":    profile.Description,
		"restaurant_ids": restaurantIDs,
		"is_default":     profile.IsDefault,
	}
}

func newProfileAddCommand(deps Dependencies) *cobra.Command {
	var flags globalFlags
	var profile domain.Profile

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a new Otter account profile.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := output.ParseFormat(flags.Format)
			if err != nil {
				return err
			}
			profile.Name = strings.TrimSpace(profile.Name)
			profile.Username = strings.TrimSpace(profile.Username)
			label := resolveProfileLabel(profile.Name)
			if profile.Name == "" || profile.Username == "" {
				return emitError(cmd, format, label, flags.Output, "MENUSYNC_INVALID_ARGUMENT", "--name and --username are required.")
			}
			if profile.Password == "" {
				password, err := promptLine(cmd, "Password: ")
				if err != nil || password == "" {
					return emitError(cmd, format, label, flags.Output, "MENUSYNC_INVALID_ARGUMENT", "A password is required; pass --password or enter it when prompted.")
				}
				profile.Password = password
			}

			cfg, err := loadProfiles(cmd.Context(), deps)
			if err != nil {
				return emitError(cmd, format, label, flags.Output, "MENUSYNC_CONFIG_ERROR", err.Error())
			}
			if findProfileIndex(cfg, profile.Name) >= 0 {
				return emitError(cmd, format, label, flags.Output, "MENUSYNC_PROFILE_EXISTS", fmt.Sprintf("Profile '%s' already exists.", profile.Name))
			}
			if len(cfg.Profiles) == 0 {
				profile.IsDefault = true
			}
			if profile.IsDefault {
				for i := range cfg.Profiles {
					cfg.Profiles[i].IsDefault = false
				}
			}
			cfg.Profiles = append(cfg.Profiles, profile)
			if err := deps.Config.Save(cmd.Context(), cfg); err != nil {
				return emitError(cmd, format, label, flags.Output, "MENUSYNC_CONFIG_ERROR", err.Error())
			}

			if format == output.FormatTable {
				return writeTable(cmd, fmt.Sprintf("Profile '%s' added.", profile.Name), flags.Output)
			}
			env := output.BuildEnvelope(label, profileView(profile), nil, nil)
			return writeMachinePayload(cmd, env, format, flags.Output)
		},
	}

	cmd.Flags().StringVar(&profile.Name, "name", "", "Profile name.")
	cmd.Flags().StringVar(&profile.Username, "username", "", "Otter username or email.")
	cmd.Flags().StringVar(&profile.Password, "password", "", "Otter password; prompted when omitted.")
	cmd.Flags().StringVar(&profile.BaseURL, "base-url", "", "Otter API base URL override.")
	cmd.Flags().StringVar(&profile.Description, "description", "", "Profile description.")
	cmd.Flags().StringArrayVar(&profile.RestaurantIDs, "restaurant-id", nil, "Restaurant ID served by this account (repeatable).")
	cmd.Flags().BoolVar(&profile.IsDefault, "default", false, "Make this the default profile.")
	addGlobalFlags(cmd, &flags)
	return cmd
}

func promptLine(cmd *cobra.Command, prompt string) (string, error) {
	_, _ = fmt.Fprint(cmd.ErrOrStderr(), prompt)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newProfileListCommand(deps Dependencies) *cobra.Command {
	var flags globalFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List configured profiles.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := output.ParseFormat(flags.Format)
			if err != nil {
				return err
			}
			label := resolveProfileLabel(flags.Profile)
			cfg, err := loadProfiles(cmd.Context(), deps)
			if err != nil {
				return emitError(cmd, format, label, flags.Output, "MENUSYNC_CONFIG_ERROR", err.Error())
			}

			if format == output.FormatTable {
				if len(cfg.Profiles) == 0 {
					return writeTable(cmd, "No profiles configured\nUse 'profile add' to add a profile", flags.Output)
				}
				rows := make([][]string, 0, len(cfg.Profiles))
				for _, profile := range cfg.Profiles {
					marker := ""
					if profile.IsDefault {
						marker = "*"
					}
					rows = append(rows, []string{profile.Name, profile.Username, profile.Description, marker})
				}
				return writeTable(cmd, output.RenderTable("Configured Profiles", []string{"Name", "Username", "Description", "Default"}, rows), flags.Output)
			}
			views := make([]map[string]any, 0, len(cfg.Profiles))
			for _, profile := range cfg.Profiles {
				views = append(views, profileView(profile))
			}
			env := output.BuildEnvelope(label, map[string]any{"profiles": views}, nil, nil)
			return writeMachinePayload(cmd, env, format, flags.Output)
		},
	}

	addGlobalFlags(cmd, &flags)
	return cmd
}

func newProfileShowCommand(deps Dependencies) *cobra.Command {
	var flags globalFlags

	cmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Show details of a profile.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := output.ParseFormat(flags.Format)
			if err != nil {
				return err
			}
			name := strings.TrimSpace(args[0])
			cfg, err := loadProfiles(cmd.Context(), deps)
			if err != nil {
				return emitError(cmd, format, name, flags.Output, "MENUSYNC_CONFIG_ERROR", err.Error())
			}
			index := findProfileIndex(cfg, name)
			if index < 0 {
				return emitError(cmd, format, name, flags.Output, "MENUSYNC_PROFILE_NOT_FOUND", fmt.Sprintf("Profile '%s' not found.", name))
			}
			profile := cfg.Profiles[index]

			if format == output.FormatTable {
				rows := [][]string{
					{"Username", profile.Username},
					{"Base URL", profile.ResolvedBaseURL()},
					{"Description", profile.Description},
					{"Default", output.YesNo(profile.IsDefault)},
				}
				if len(profile.RestaurantIDs) > 0 {
					rows = append(rows, []string{"Restaurant IDs", strings.Join(profile.RestaurantIDs, ", ")})
				}
				return writeTable(cmd, output.RenderTable("Profile: "+profile.Name, []string{"Field", "Value"}, rows), flags.Output)
			}
			env := output.BuildEnvelope(profile.Name, profileView(profile), nil, nil)
			return writeMachinePayload(cmd, env, format, flags.Output)
		},
	}

	addGlobalFlags(cmd, &flags)
	return cmd
}

func newProfileRemoveCommand(deps Dependencies) *cobra.Command {
	var flags globalFlags

	cmd := &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a profile.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := output.ParseFormat(flags.Format)
			if err != nil {
				return err
			}
			name := strings.TrimSpace(args[0])
			cfg, err := loadProfiles(cmd.Context(), deps)
			if err != nil {
				return emitError(cmd, format, name, flags.Output, "MENUSYNC_CONFIG_ERROR", err.Error())
			}
			index := findProfileIndex(cfg, name)
			if index < 0 {
				return emitError(cmd, format, name, flags.Output, "MENUSYNC_PROFILE_NOT_FOUND", fmt.Sprintf("Profile '%s' not found.", name))
			}
			removed := cfg.Profiles[index]
			cfg.Profiles = append(cfg.Profiles[:index], cfg.Profiles[index+1:]...)
			if removed.IsDefault && len(cfg.Profiles) > 0 {
				cfg.Profiles[0].IsDefault = true
			}
			if err := deps.Config.Save(cmd.Context(), cfg); err != nil {
				return emitError(cmd, format, name, flags.Output, "MENUSYNC_CONFIG_ERROR", err.Error())
			}

			if format == output.FormatTable {
				return writeTable(cmd, fmt.Sprintf("Profile '%s' removed.", removed.Name), flags.Output)
			}
			env := output.BuildEnvelope(removed.Name, map[string]any{"removed": removed.Name}, nil, nil)
			return writeMachinePayload(cmd, env, format, flags.Output)
		},
	}

	addGlobalFlags(cmd, &flags)
	return cmd
}
