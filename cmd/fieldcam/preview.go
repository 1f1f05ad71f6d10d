package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/soocke/fieldcam-go/cli"
	"github.com/soocke/fieldcam-go/config"
	"github.com/soocke/fieldcam-go/ui"
)

// newPreviewCommand lives in the binary so the headless cli package never
// links the Tk bindings.
func newPreviewCommand(opts *cli.RootOptions) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Open the live capture window",
		Long: `Open a window with the composited live preview, photo and recording
controls, camera and view zoom, and the overlay label form. Recordings are
driven by the window's own frame clock.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rt, err := cli.Setup(cmd, opts, nil)
			if err != nil {
				return err
			}
			defer rt.Close()

			if watch && opts.ConfigPath != "" {
				go func() {
					if err := config.Watch(ctx, opts.ConfigPath, rt.Logger, rt.Studio.ApplyConfig); err != nil {
						rt.Logger.Warn("config watch stopped", "error", err)
					}
				}()
			}
			if err := ui.Run(ctx, rt.Studio, rt.Config, opts.ConfigPath, rt.Logger); err != nil {
				return cli.WrapExitError(cli.ExitFailure, "preview failed", err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", true, "reload labels when the config file changes")
	return cmd
}
