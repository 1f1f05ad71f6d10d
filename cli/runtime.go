package cli

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/soocke/fieldcam-go/app"
	"github.com/soocke/fieldcam-go/config"
	"github.com/soocke/fieldcam-go/debug"
	"github.com/soocke/fieldcam-go/domain/capture"
	"github.com/soocke/fieldcam-go/logger"
)

const runtimeLogInterval = 10 * time.Second

// Runtime is the loaded config, logger and studio shared by one command run.
type Runtime struct {
	Config  *config.Config
	Logger  *slog.Logger
	Studio  *app.Studio
	opts    *RootOptions
	cmd     *cobra.Command
	stopDbg context.CancelFunc
}

// LoadConfig resolves configuration: file, then FIELDCAM_* environment
// (optionally from the dotenv file), then global flags, then mutate.
func LoadConfig(cmd *cobra.Command, opts *RootOptions, mutate func(*config.Config)) (*config.Config, error) {
	if err := config.LoadEnv(opts.EnvFile); err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load env file", err)
	}
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid environment config", err)
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.LogLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = opts.LogFormat
	}
	if opts.Debug {
		cfg.Debug = true
		cfg.LogLevel = "debug"
	}
	if mutate != nil {
		mutate(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid config", err)
	}
	return cfg, nil
}

// Setup loads config, builds the logger on the command's stderr and
// assembles the studio. Callers must Close the runtime.
func Setup(cmd *cobra.Command, opts *RootOptions, mutate func(*config.Config), appOpts ...app.Option) (*Runtime, error) {
	cfg, err := LoadConfig(cmd, opts, mutate)
	if err != nil {
		return nil, err
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	studio, err := app.Build(cfg, log, appOpts...)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to build capture pipeline", err)
	}
	rt := &Runtime{Config: cfg, Logger: log, Studio: studio, opts: opts, cmd: cmd}
	if cfg.Debug {
		ctx, cancel := context.WithCancel(commandContext(cmd))
		rt.stopDbg = cancel
		debug.StartRuntimeLogger(ctx, runtimeLogInterval, log)
	}
	log.Debug("runtime ready", "config", opts.ConfigPath, "driver", cfg.Driver, "output_dir", cfg.OutputDir)
	return rt, nil
}

// Close releases the studio and dumps metrics when requested.
func (r *Runtime) Close() {
	if r == nil {
		return
	}
	if r.stopDbg != nil {
		r.stopDbg()
	}
	if err := r.Studio.Close(); err != nil {
		r.Logger.Warn("close failed", "error", err)
	}
	if r.opts.Metrics {
		if err := r.Studio.Metrics.WriteText(r.cmd.ErrOrStderr()); err != nil {
			r.Logger.Warn("metrics dump failed", "error", err)
		}
	}
}

// OpenSource opens the configured device and waits for its first frame.
func (r *Runtime) OpenSource(ctx context.Context) (*capture.MediaSource, error) {
	src, err := r.Studio.OpenSource(ctx)
	if err != nil {
		return nil, WrapExitError(ExitFailure, "failed to open capture device", err)
	}
	timeout := time.Duration(r.Config.SnapshotTimeoutSeconds) * time.Second
	if err := waitFirstFrame(ctx, src, timeout); err != nil {
		return nil, WrapExitError(ExitFailure, "no frames from capture device", err)
	}
	return src, nil
}

func waitFirstFrame(ctx context.Context, src *capture.MediaSource, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	t := time.NewTicker(10 * time.Millisecond)
	defer t.Stop()
	for src.LatestFrame().Empty() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// labelFlags are the overlay overrides shared by capture commands.
type labelFlags struct {
	product string
	farmer  string
	caption string
	out     string
}

func (l *labelFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&l.product, "product", "", "product name shown in the overlay")
	cmd.Flags().StringVar(&l.farmer, "farmer", "", "farmer name shown in the overlay")
	cmd.Flags().StringVar(&l.caption, "caption", "", "caption under the logo")
	cmd.Flags().StringVarP(&l.out, "out", "o", "", "output directory")
}

func (l *labelFlags) apply(cfg *config.Config) {
	if l.product != "" {
		cfg.ProductName = l.product
	}
	if l.farmer != "" {
		cfg.FarmerName = l.farmer
	}
	if l.caption != "" {
		cfg.Caption = l.caption
	}
	if l.out != "" {
		cfg.OutputDir = l.out
	}
}
