package cli

import (
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mekedron/otter-menusync/internal/domain"
	"github.com/mekedron/otter-menusync/internal/service/output"
)

type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return ""
}

type globalFlags struct {
	Format  string
	Profile string
	Output  string
	Verbose bool
}

const sharedGlobalFlagAnnotation = "menusync_shared_global"

func addGlobalFlags(cmd *cobra.Command, flags *globalFlags) {
	addSharedGlobalFlag(cmd, "format", func() {
		cmd.Flags().StringVar(&flags.Format, "format", "table", "Output format: table, json, or yaml.")
	})
	addSharedGlobalFlag(cmd, "profile", func() {
		cmd.Flags().StringVar(&flags.Profile, "profile", "", "Otter profile name from the profile file.")
	})
	addSharedGlobalFlag(cmd, "output", func() {
		cmd.Flags().StringVarP(&flags.Output, "output", "o", "", "Also write the rendered output to this file.")
	})
	addSharedGlobalFlag(cmd, "verbose", func() {
		cmd.Flags().BoolVar(&flags.Verbose, "verbose", false, "Print the Otter HTTP request trace to stderr.")
	})
}

func addSharedGlobalFlag(cmd *cobra.Command, name string, register func()) {
	if cmd.Flags().Lookup(name) != nil {
		return
	}
	register()
	flag := cmd.Flags().Lookup(name)
	if flag == nil {
		return
	}
	if flag.Annotations == nil {
		flag.Annotations = map[string][]string{}
	}
	flag.Annotations[sharedGlobalFlagAnnotation] = []string{"true"}
}

func resolveProfileLabel(profileName string) string {
	if profile := strings.TrimSpace(profileName); profile != "" {
		return profile
	}
	return "default"
}

func writeTable(cmd *cobra.Command, text string, outputPath string) error {
	return output.WriteOutput(cmd.OutOrStdout(), text, outputPath)
}

func writeMachinePayload(cmd *cobra.Command, env output.Envelope, format output.Format, outputPath string) error {
	rendered, err := output.RenderPayload(env, format)
	if err != nil {
		return err
	}
	return output.WriteOutput(cmd.OutOrStdout(), rendered, outputPath)
}

// emitError renders a failure in the requested format and exits with code 1.
func emitError(cmd *cobra.Command, format output.Format, profile string, outputPath string, code string, message string) error {
	if format == output.FormatTable || format == output.FormatCSV {
		if err := output.WriteOutput(cmd.OutOrStdout(), message, outputPath); err != nil {
			return err
		}
		return &exitError{code: 1}
	}
	env := output.BuildEnvelope(profile, nil, []string{}, map[string]any{
		"code":    code,
		"message": message,
	})
	if err := writeMachinePayload(cmd, env, format, outputPath); err != nil {
		return err
	}
	return &exitError{code: 1}
}

// resultSummary drops the menu payload so run listings stay compact.
func resultSummary(result domain.SyncResult) domain.SyncResult {
	result.Menu = nil
	return result
}

// redactURL hides passwords embedded in DSNs and server URLs.
func redactURL(raw string) string {
	if raw == "" {
		return "-"
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.User == nil {
		return raw
	}
	return parsed.Redacted()
}
