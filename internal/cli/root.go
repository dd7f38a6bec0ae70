package cli

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// sharedGlobalOptionOrder is the order global options appear in root help.
var sharedGlobalOptionOrder = []string{"format", "profile", "output", "verbose"}

// helpEnvironment lists the settings most deployments touch.
var helpEnvironment = [][2]string{
	{"OTTER_PROFILE", "profile used when --profile is omitted"},
	{"OTTER_USERNAME / OTTER_PASSWORD", "credentials when no profile file exists"},
	{"MENU_SYNC_INTERVAL_MINUTES", "minutes between scheduled syncs (30)"},
	{"MENU_SYNC_DRY_RUN", "detect changes without writing them"},
	{"DATABASE_URL", "sync history store, sqlite:// or postgres://"},
	{"NATS_URL", "publish sync events to NATS when set"},
	{"MENU_SYNC_API_TOKENS", "token:role pairs accepted by serve"},
}

// NewRootCommand builds the complete command tree.
func NewRootCommand(deps Dependencies) *cobra.Command {
	version := resolvedVersion(deps.Version)

	root := &cobra.Command{
		Use:           "menusync",
		Short:         "Synchronize restaurant menus from Otter.",
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if showVersion, _ := cmd.Flags().GetBool("version"); showVersion {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), version)
				return errVersionShown
			}
			return cmd.Help()
		},
	}
	root.Flags().BoolP("version", "v", false, "Show CLI version and exit.")
	root.SetHelpCommand(&cobra.Command{Hidden: true})
	defaultHelpFunc := root.HelpFunc()
	root.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		if cmd == root {
			renderRootHelp(cmd.OutOrStdout(), root)
			return
		}
		defaultHelpFunc(cmd, args)
	})

	root.AddCommand(newSyncCommand(deps))
	root.AddCommand(newStartCommand(deps))
	root.AddCommand(newServeCommand(deps))
	root.AddCommand(newStatusCommand(deps))
	root.AddCommand(newExportCommand(deps))
	root.AddCommand(newHistoryCommand(deps))
	root.AddCommand(newProfileCommand(deps))

	return root
}

func renderRootHelp(out io.Writer, root *cobra.Command) {
	_, _ = fmt.Fprintf(out, "%s: %s\n\n", root.Name(), root.Short)
	_, _ = fmt.Fprintf(out, "usage: %s <command> [options]\n\n", root.Name())

	_, _ = fmt.Fprintln(out, "global options:")
	for _, option := range rootOptions(root) {
		_, _ = fmt.Fprintf(out, "  %s: %s\n", option.token, option.usage)
	}

	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintln(out, "environment:")
	for _, entry := range helpEnvironment {
		_, _ = fmt.Fprintf(out, "  %s: %s\n", entry[0], entry[1])
	}

	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintln(out, "commands:")
	writeCommandTree(out, root, root.Name())
}

// writeCommandTree prints every visible command with its own options, depth first.
func writeCommandTree(out io.Writer, parent *cobra.Command, path string) {
	for _, cmd := range parent.Commands() {
		if cmd.Hidden {
			continue
		}
		_, _ = fmt.Fprintf(out, "  %s %s\n", path, cmd.Use)
		_, _ = fmt.Fprintf(out, "      %s\n", cmd.Short)
		for _, option := range commandOptions(cmd) {
			_, _ = fmt.Fprintf(out, "      %s: %s\n", option.token, option.usage)
		}
		writeCommandTree(out, cmd, path+" "+cmd.Name())
	}
}

type optionDoc struct {
	name   string
	token  string
	usage  string
	shared bool
}

func newOptionDoc(flag *pflag.Flag) optionDoc {
	token := "--" + flag.Name
	if flag.Shorthand != "" {
		token += "/-" + flag.Shorthand
	}
	shared := false
	if values := flag.Annotations[sharedGlobalFlagAnnotation]; len(values) > 0 {
		shared = values[0] == "true"
	}
	return optionDoc{
		name:   flag.Name,
		token:  token,
		usage:  strings.TrimSpace(flag.Usage),
		shared: shared,
	}
}

// rootOptions returns the root's own flags followed by the shared globals
// registered on subcommands, each listed once.
func rootOptions(root *cobra.Command) []optionDoc {
	options := commandOptions(root)
	found := map[string]optionDoc{}
	var walk func(*cobra.Command)
	walk = func(parent *cobra.Command) {
		for _, cmd := range parent.Commands() {
			cmd.LocalFlags().VisitAll(func(flag *pflag.Flag) {
				if _, ok := found[flag.Name]; ok || flag.Hidden {
					return
				}
				if option := newOptionDoc(flag); option.shared {
					found[flag.Name] = option
				}
			})
			walk(cmd)
		}
	}
	walk(root)
	for _, name := range sharedGlobalOptionOrder {
		if option, ok := found[name]; ok {
			options = append(options, option)
		}
	}
	return options
}

// commandOptions lists the flags specific to cmd, sorted by name.
func commandOptions(cmd *cobra.Command) []optionDoc {
	options := make([]optionDoc, 0)
	cmd.LocalFlags().VisitAll(func(flag *pflag.Flag) {
		if flag.Hidden || flag.Name == "help" {
			return
		}
		if option := newOptionDoc(flag); !option.shared {
			options = append(options, option)
		}
	})
	slices.SortFunc(options, func(a, b optionDoc) int {
		return cmp.Compare(a.name, b.name)
	})
	return options
}
