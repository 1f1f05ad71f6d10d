package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/soocke/fieldcam-go/config"
	"github.com/soocke/fieldcam-go/domain/recording"
)

// errStopRequested ends the control loop without being reported as a failure.
var errStopRequested = errors.New("stop requested")

// RecordOptions holds flags for the record command.
type RecordOptions struct {
	*RootOptions
	labels    labelFlags
	Duration  time.Duration
	Container string
	Codec     string
	Watch     bool
}

// NewRecordCommand creates the record command.
func NewRecordCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RecordOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a video with the overlay burned into every frame",
		Long: `Record from the configured camera until the duration elapses, "s" is
entered on stdin or the process is interrupted. Enter "p" to pause and "r" to
resume. Label edits saved to the config file apply to the running take.

Example:
  fieldcam record --duration 30s --product Rice
  fieldcam record --container mp4 --codec h264`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecord(cmd, opts)
		},
	}

	opts.labels.bind(cmd)
	cmd.Flags().DurationVar(&opts.Duration, "duration", 0, "stop after this long (0 records until stopped)")
	cmd.Flags().StringVar(&opts.Container, "container", "", "container format (mjpeg|webm|mp4)")
	cmd.Flags().StringVar(&opts.Codec, "codec", "", "video codec for the container")
	cmd.Flags().BoolVar(&opts.Watch, "watch", true, "reload labels when the config file changes")

	return cmd
}

func runRecord(cmd *cobra.Command, opts *RecordOptions) error {
	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := Setup(cmd, opts.RootOptions, func(cfg *config.Config) {
		opts.labels.apply(cfg)
		if opts.Container != "" {
			// The codec is resolved from the encoder registry when omitted.
			cfg.Container, cfg.Codec = opts.Container, opts.Codec
		} else if opts.Codec != "" {
			cfg.Codec = opts.Codec
		}
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	rt.Studio.Start(ctx)
	if _, err := rt.OpenSource(ctx); err != nil {
		return err
	}
	sess, err := rt.Studio.StartRecording(ctx, recording.NewTickerClock(rt.Config.FPS))
	if err != nil {
		return WrapExitError(ExitFailure, "failed to start recording", err)
	}
	out := cmd.ErrOrStderr()
	fmt.Fprintf(out, "Recording %s/%s at %.0f fps. Enter p (pause), r (resume), s (stop).\n",
		rt.Config.Container, rt.Config.Codec, rt.Config.FPS)

	done := make(chan struct{})
	defer close(done)
	controls := readControls(cmd.InOrStdin(), done)

	g, gctx := errgroup.WithContext(ctx)
	if opts.Watch && opts.ConfigPath != "" {
		g.Go(func() error {
			return config.Watch(gctx, opts.ConfigPath, rt.Logger, rt.Studio.ApplyConfig)
		})
	}
	g.Go(func() error {
		var deadline <-chan time.Time
		if opts.Duration > 0 {
			t := time.NewTimer(opts.Duration)
			defer t.Stop()
			deadline = t.C
		}
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-deadline:
				return errStopRequested
			case <-sess.Done():
				return errStopRequested
			case c, ok := <-controls:
				if !ok {
					controls = nil
					continue
				}
				if handleControl(rt, c, out) {
					return errStopRequested
				}
			}
		}
	})
	if err := g.Wait(); err != nil && !errors.Is(err, errStopRequested) && !errors.Is(err, context.Canceled) {
		rt.Logger.Warn("recording interrupted", "error", err)
	}

	art, path, err := rt.Studio.StopRecording()
	if path != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", path, humanize.Bytes(uint64(len(art.Payload))))
	}
	if err != nil {
		return WrapExitError(ExitFailure, "failed to finalize recording", err)
	}
	stats := sess.Stats()
	rt.Logger.Info("recording finished",
		"session", sess.ID(),
		"frames", stats.FramesComposed,
		"blank", stats.FramesBlank,
		"elapsed", stats.Elapsed.String(),
	)
	return nil
}

// handleControl applies one stdin command and reports whether to stop.
func handleControl(rt *Runtime, c byte, out io.Writer) bool {
	var err error
	switch c {
	case 'p':
		if err = rt.Studio.PauseRecording(); err == nil {
			fmt.Fprintln(out, "Paused.")
		}
	case 'r':
		if err = rt.Studio.ResumeRecording(); err == nil {
			fmt.Fprintln(out, "Recording.")
		}
	case 's', 'q':
		return true
	default:
		fmt.Fprintf(out, "Unknown command %q.\n", c)
	}
	if err != nil {
		fmt.Fprintln(out, err)
	}
	return false
}

// readControls forwards the first letter of every non-empty stdin line. The
// reader goroutine may outlive the command while blocked on a terminal read.
func readControls(r io.Reader, done <-chan struct{}) <-chan byte {
	out := make(chan byte)
	go func() {
		defer close(out)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			line := strings.ToLower(strings.TrimSpace(sc.Text()))
			if line == "" {
				continue
			}
			select {
			case out <- line[0]:
			case <-done:
				return
			}
		}
	}()
	return out
}
