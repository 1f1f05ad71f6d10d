package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/soocke/fieldcam-go/config"
)

// SnapshotOptions holds flags for the snapshot command.
type SnapshotOptions struct {
	*RootOptions
	labels labelFlags
	Format string
}

// NewSnapshotCommand creates the snapshot command.
func NewSnapshotCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SnapshotOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Capture one photo with the overlay burned in",
		Long: `Open the configured camera, wait for a location fix and save one
composited still to the output directory.

Example:
  fieldcam snapshot --product Rice --farmer "A. Kumar" -o ./captures`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshot(cmd, opts)
		},
	}

	opts.labels.bind(cmd)
	cmd.Flags().StringVar(&opts.Format, "format", "", "image format (png|jpeg)")

	return cmd
}

func runSnapshot(cmd *cobra.Command, opts *SnapshotOptions) error {
	rt, err := Setup(cmd, opts.RootOptions, func(cfg *config.Config) {
		opts.labels.apply(cfg)
		if opts.Format != "" {
			cfg.SnapshotFormat = opts.Format
		}
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx := commandContext(cmd)
	rt.Studio.Start(ctx)
	if _, err := rt.OpenSource(ctx); err != nil {
		return err
	}
	art, path, err := rt.Studio.TakePhoto(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "snapshot failed", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", path, humanize.Bytes(uint64(len(art.Payload))))
	return nil
}
