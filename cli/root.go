package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	EnvFile    string
	LogLevel   string
	LogFormat  string
	Metrics    bool
	Debug      bool
}

// CommandFactory builds an extra subcommand bound to the global options.
type CommandFactory func(*RootOptions) *cobra.Command

// ValidLogFormats defines the allowed log formats.
var ValidLogFormats = []string{"json", "text"}

// NewRootCommand creates the fieldcam root command. Extra commands, such as
// the preview window, are added by the binary so this package stays headless.
func NewRootCommand(extra ...CommandFactory) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "fieldcam",
		Short: "Field capture with a burned-in provenance overlay",
		Long: `fieldcam captures photos and videos of produce with the product, farmer,
location, time and brand logo burned into every frame.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.LogFormat != "" && !isValidLogFormat(opts.LogFormat) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid log format %q: must be one of %v", opts.LogFormat, ValidLogFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "fieldcam.json", "config file (.json, .yaml or .yml)")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "optional dotenv file with FIELDCAM_* overrides")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "", "log format (json|text)")
	cmd.PersistentFlags().BoolVar(&opts.Metrics, "metrics", false, "print metrics in Prometheus text format on exit")
	cmd.PersistentFlags().BoolVarP(&opts.Debug, "debug", "d", false, "debug logging and periodic runtime stats")

	cmd.AddCommand(NewSnapshotCommand(opts))
	cmd.AddCommand(NewRecordCommand(opts))
	cmd.AddCommand(NewDevicesCommand(opts))
	for _, f := range extra {
		cmd.AddCommand(f(opts))
	}

	return cmd
}

func isValidLogFormat(format string) bool {
	for _, f := range ValidLogFormats {
		if f == format {
			return true
		}
	}
	return false
}
