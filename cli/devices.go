package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewDevicesCommand creates the devices command.
func NewDevicesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List capture drivers and recording formats",
		Long: `List the registered capture drivers and every container/codec pair the
recorder knows, with whether its encoder is usable on this machine.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDevices(cmd, rootOpts)
		},
	}
	return cmd
}

func runDevices(cmd *cobra.Command, opts *RootOptions) error {
	rt, err := Setup(cmd, opts, nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DRIVER\tSELECTED")
	for _, name := range rt.Studio.Drivers.Names() {
		sel := ""
		if name == rt.Config.Driver {
			sel = "*"
		}
		fmt.Fprintf(w, "%s\t%s\n", name, sel)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "FORMAT\tSTATUS")
	for _, f := range rt.Studio.Encoders.Formats() {
		container, codec, _ := strings.Cut(f, "/")
		status := "ok"
		if _, err := rt.Studio.Encoders.Negotiate(container, codec); err != nil {
			status = "unavailable"
		}
		fmt.Fprintf(w, "%s\t%s\n", f, status)
	}
	return w.Flush()
}
