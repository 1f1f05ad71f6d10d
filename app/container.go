package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/soocke/fieldcam-go/assets"
	"github.com/soocke/fieldcam-go/config"
	"github.com/soocke/fieldcam-go/domain/artifact"
	"github.com/soocke/fieldcam-go/domain/capture"
	"github.com/soocke/fieldcam-go/domain/compose"
	"github.com/soocke/fieldcam-go/domain/overlay"
	"github.com/soocke/fieldcam-go/domain/recording"
	"github.com/soocke/fieldcam-go/domain/snapshot"
	"github.com/soocke/fieldcam-go/metrics"
)

// ErrRecordingActive is returned when an operation needs the recorder idle.
var ErrRecordingActive = errors.New("app: a recording is in progress")

// ErrNoRecording is returned by recording controls when nothing is recording.
var ErrNoRecording = errors.New("app: no recording in progress")

// Studio assembles capture, overlay, compositor, recorder and exporter into
// one owned object shared by the CLI and the preview window.
type Studio struct {
	Config     *config.Config
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
	Drivers    *capture.Registry
	Capture    *capture.Manager
	Labels     *overlay.Labels
	Logos      *overlay.LogoStore
	Refresher  *overlay.Refresher
	Overlay    *overlay.Provider
	Compositor *compose.Compositor
	Encoders   *recording.Registry
	Exporter   *snapshot.Exporter
	Sink       artifact.Sink

	mu        sync.Mutex
	session   *recording.Session
	runCancel context.CancelFunc
	runDone   chan error
	logoPath  string
}

// Option adjusts a Studio before it is returned by Build.
type Option func(*Studio)

// WithDrivers replaces the driver registry, mainly for tests.
func WithDrivers(drivers ...capture.Driver) Option {
	return func(s *Studio) { s.Drivers = capture.NewRegistry(drivers...) }
}

// WithLocation replaces the configured location source.
func WithLocation(src overlay.LocationSource) Option {
	return func(s *Studio) {
		s.Refresher = newRefresher(s.Config, src, s.Logger, s.Metrics)
		s.Overlay.Refresher = s.Refresher
	}
}

// WithSink replaces the directory sink.
func WithSink(sink artifact.Sink) Option {
	return func(s *Studio) { s.Sink = sink }
}

// Build constructs all components from cfg. No goroutines are started and
// no device is opened.
func Build(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Studio, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Studio{Config: cfg, Logger: logger, Metrics: metrics.New()}

	s.Drivers = capture.NewRegistry(
		capture.NewSyntheticDriver(capture.SyntheticOptions{
			Width:  cfg.Width,
			Height: cfg.Height,
			Facing: []capture.FacingMode{capture.FacingEnvironment, capture.FacingUser},
			Zoom:   &capture.ZoomRange{Min: 1, Max: 4, Step: 0.1},
		}),
		capture.NewScreenDriver(),
		&capture.V4L2Driver{FFmpeg: cfg.FFmpegPath, Devices: cfg.V4L2Devices, Logger: logger},
	)

	var fallback image.Image
	if img, err := assets.LogoImage(); err == nil {
		fallback = img
	} else if logger != nil {
		logger.Warn("bundled logo unavailable", "error", err)
	}
	s.Labels = overlay.NewLabels(cfg.ProductName, cfg.FarmerName, cfg.Caption)
	s.Logos = overlay.NewLogoStore(fallback, logger)

	src, err := locationSource(cfg)
	if err != nil {
		return nil, err
	}
	s.Refresher = newRefresher(cfg, src, logger, s.Metrics)
	policy, err := overlay.ParsePolicy(cfg.SnapshotPolicy)
	if err != nil {
		return nil, err
	}
	s.Overlay = overlay.NewProvider(s.Labels, s.Logos, s.Refresher, overlay.ProviderOptions{
		Policy:     policy,
		RequireFix: cfg.RequireFix,
	})

	comp, err := compose.New()
	if err != nil {
		return nil, err
	}
	s.Compositor = comp

	encoders := []recording.EncoderFactory{recording.MJPEGFactory{Quality: cfg.Quality}}
	encoders = append(encoders, recording.FFmpegFactories(cfg.FFmpegPath, logger)...)
	s.Encoders = recording.NewRegistry(encoders...)

	codec, err := snapshot.ParseCodec(cfg.SnapshotFormat)
	if err != nil {
		return nil, err
	}
	s.Exporter = &snapshot.Exporter{
		Compositor: comp,
		Codec:      codec,
		Quality:    cfg.SnapshotQuality,
		Timeout:    time.Duration(cfg.SnapshotTimeoutSeconds) * time.Second,
		Logger:     logger,
		Metrics:    s.Metrics,
	}
	s.Sink = artifact.DirSink{Dir: cfg.OutputDir}

	for _, o := range opts {
		o(s)
	}

	driver, err := s.Drivers.Get(cfg.Driver)
	if err != nil {
		return nil, err
	}
	s.Capture = capture.NewManager(driver, logger)

	if cfg.LogoPath != "" {
		if err := s.LoadLogo(cfg.LogoPath); err != nil && logger != nil {
			logger.Warn("logo load failed; using bundled logo", "path", cfg.LogoPath, "error", err)
		}
	}
	return s, nil
}

func locationSource(cfg *config.Config) (overlay.LocationSource, error) {
	switch cfg.LocationSource {
	case config.LocationStatic:
		return overlay.StaticLocation{Lat: cfg.Latitude, Lon: cfg.Longitude}, nil
	case config.LocationNMEA:
		return overlay.NMEALocation{Path: cfg.NMEAPath}, nil
	case config.LocationNone:
		return overlay.FailingLocation{}, nil
	}
	return nil, fmt.Errorf("app: unknown location source %q", cfg.LocationSource)
}

func newRefresher(cfg *config.Config, src overlay.LocationSource, logger *slog.Logger, m *metrics.Metrics) *overlay.Refresher {
	return overlay.NewRefresher(src,
		time.Duration(cfg.LocationRefreshSeconds)*time.Second,
		logger,
		overlay.WithFailureHook(func(error) { m.IncLocationFailures() }),
	)
}

// Start launches background location refresh. It is safe to call more than once.
func (s *Studio) Start(ctx context.Context) {
	s.Refresher.Start(ctx)
}

// OpenSource opens the configured device, replacing any active source, and
// applies the configured zoom when the device supports it.
func (s *Studio) OpenSource(ctx context.Context) (*capture.MediaSource, error) {
	return s.openWith(ctx, s.Config.Constraints())
}

func (s *Studio) openWith(ctx context.Context, c capture.Constraints) (*capture.MediaSource, error) {
	if s.Recording() {
		return nil, ErrRecordingActive
	}
	src, err := s.Capture.Open(ctx, c)
	if err != nil {
		return nil, err
	}
	if s.Config.Zoom > 1 {
		if _, _, err := src.ApplyZoom(s.Config.Zoom); err != nil && s.Logger != nil {
			s.Logger.Warn("initial zoom failed", "zoom", s.Config.Zoom, "error", err)
		}
	}
	return src, nil
}

// SwitchFacing closes the active source and reopens it facing the other way.
func (s *Studio) SwitchFacing(ctx context.Context) (*capture.MediaSource, error) {
	c := s.Config.Constraints()
	if active := s.Capture.Active(); active != nil {
		c = active.Constraints()
		if c.Facing == capture.FacingAny {
			c.Facing = active.Info().Facing
		}
	}
	if c.Facing == capture.FacingUser {
		c.Facing = capture.FacingEnvironment
	} else {
		c.Facing = capture.FacingUser
	}
	return s.openWith(ctx, c)
}

// Zoom applies a capture zoom level on the active source.
func (s *Studio) Zoom(level float64) (float64, bool, error) {
	src := s.Capture.Active()
	if src == nil {
		return 0, false, capture.ErrSourceClosed
	}
	return src.ApplyZoom(level)
}

// CaptureZoom returns the zoom level of the active source, 1 without one.
func (s *Studio) CaptureZoom() float64 {
	if src := s.Capture.Active(); src != nil && src.Zoom() > 0 {
		return src.Zoom()
	}
	return 1
}

// LoadLogo reads an image file and uploads it to the logo store. The decode
// finishes in the background; until then the bundled logo is drawn.
func (s *Studio) LoadLogo(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("app: read logo: %w", err)
	}
	s.mu.Lock()
	s.logoPath = path
	s.mu.Unlock()
	done := s.Logos.Upload(raw)
	go func() {
		if err := <-done; err != nil && !errors.Is(err, overlay.ErrUploadSuperseded) && s.Logger != nil {
			s.Logger.Warn("logo decode failed", "path", path, "error", err)
		}
	}()
	return nil
}

// ApplyConfig pushes label and logo edits from a reloaded config into the
// live overlay. Device and encoder settings need a restart and are ignored.
func (s *Studio) ApplyConfig(cfg *config.Config) {
	s.Labels.Set(cfg.ProductName, cfg.FarmerName)
	s.Labels.SetCaption(cfg.Caption)
	s.mu.Lock()
	changed := cfg.LogoPath != s.logoPath
	s.mu.Unlock()
	if !changed {
		return
	}
	if cfg.LogoPath == "" {
		s.mu.Lock()
		s.logoPath = ""
		s.mu.Unlock()
		s.Logos.Clear()
		return
	}
	if err := s.LoadLogo(cfg.LogoPath); err != nil && s.Logger != nil {
		s.Logger.Warn("logo reload failed", "path", cfg.LogoPath, "error", err)
	}
}

// TakePhoto captures one still from the active source and delivers it to
// the sink. The returned path is empty when there is no sink.
func (s *Studio) TakePhoto(ctx context.Context) (artifact.Artifact, string, error) {
	src := s.Capture.Active()
	if src == nil || !src.Live() {
		return artifact.Artifact{}, "", capture.ErrSourceClosed
	}
	art, err := s.Exporter.Capture(ctx, src, s.Overlay)
	if err != nil {
		return artifact.Artifact{}, "", err
	}
	return s.deliver(art)
}

func (s *Studio) deliver(art artifact.Artifact) (artifact.Artifact, string, error) {
	if s.Sink == nil {
		return art, "", nil
	}
	path, err := s.Sink.Deliver(art)
	if err != nil {
		return art, "", err
	}
	if s.Logger != nil {
		s.Logger.Info("artifact saved", "kind", art.Kind.String(), "path", path, "bytes", len(art.Payload))
	}
	return art, path, nil
}

// StartRecording negotiates the configured encoder, then starts a session on
// the active source. An empty codec is resolved to the container's default
// and written back to the config. With a nil clock the caller drives Session.Tick itself.
func (s *Studio) StartRecording(ctx context.Context, clock recording.Clock) (*recording.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil {
		return nil, ErrRecordingActive
	}
	factory, err := s.Encoders.Negotiate(s.Config.Container, s.Config.Codec)
	if err != nil {
		return nil, err
	}
	s.Config.Codec = factory.Format().Codec
	src := s.Capture.Active()
	if src == nil || !src.Live() {
		return nil, capture.ErrSourceClosed
	}
	sess, err := recording.NewSession(recording.Options{
		Source:     src,
		Overlay:    s.Overlay,
		Compositor: s.Compositor,
		Encoder:    factory.New(),
		FPS:        s.Config.FPS,
		Audio:      src.Constraints().Audio,
		Logger:     s.Logger,
		Metrics:    s.Metrics,
	})
	if err != nil {
		return nil, err
	}
	if err := sess.Start(); err != nil {
		sess.Discard()
		return nil, err
	}
	s.Refresher.Start(ctx)
	s.session = sess
	if clock != nil {
		runCtx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		s.runCancel, s.runDone = cancel, done
		go func() { done <- recording.Run(runCtx, sess, clock) }()
	}
	return sess, nil
}

// Session returns the current recording session or nil.
func (s *Studio) Session() *recording.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// Recording reports whether a session is in progress.
func (s *Studio) Recording() bool { return s.Session() != nil }

// RecordingState returns the state of the current session, StateIdle when
// nothing is recording.
func (s *Studio) RecordingState() recording.State {
	if sess := s.Session(); sess != nil {
		return sess.State()
	}
	return recording.StateIdle
}

// TickRecording composes one frame of the current session when the host
// drives the frame clock. It reports false when nothing is recording.
func (s *Studio) TickRecording(now time.Time) bool {
	sess := s.Session()
	if sess == nil {
		return false
	}
	return sess.Tick(now)
}

// PauseRecording pauses the current session.
func (s *Studio) PauseRecording() error {
	sess := s.Session()
	if sess == nil {
		return ErrNoRecording
	}
	return sess.Pause()
}

// ResumeRecording resumes the current session.
func (s *Studio) ResumeRecording() error {
	sess := s.Session()
	if sess == nil {
		return ErrNoRecording
	}
	return sess.Resume()
}

// StopRecording stops and finalizes the current session and delivers the
// video. The session is released even when finalizing fails. When only the
// encoder flush fails, the partial video is still delivered and the flush
// error is returned with it.
func (s *Studio) StopRecording() (artifact.Artifact, string, error) {
	s.mu.Lock()
	sess, cancel, done := s.session, s.runCancel, s.runDone
	s.session, s.runCancel, s.runDone = nil, nil, nil
	s.mu.Unlock()
	if sess == nil {
		return artifact.Artifact{}, "", ErrNoRecording
	}
	stopErr := sess.Stop()
	if cancel != nil {
		cancel()
		if err := <-done; err != nil && !errors.Is(err, context.Canceled) && s.Logger != nil {
			s.Logger.Warn("frame clock stopped", "error", err)
		}
	}
	if stopErr != nil && sess.State() != recording.StateStopped {
		sess.Discard()
		return artifact.Artifact{}, "", stopErr
	}
	// A failed flush still leaves the chunks collected so far; deliver them
	// and report the flush error with the result.
	art, err := sess.Finalize()
	if err != nil {
		return artifact.Artifact{}, "", errors.Join(stopErr, err)
	}
	art, path, err := s.deliver(art)
	if stopErr != nil {
		if s.Logger != nil {
			s.Logger.Warn("recording saved without encoder tail", "path", path, "error", stopErr)
		}
		return art, path, errors.Join(stopErr, err)
	}
	return art, path, err
}

// Preview composes the latest frame with the live overlay into a pooled
// surface of the given size. The caller recycles it with capture.RecycleFrame.
func (s *Studio) Preview(size image.Point) *image.RGBA {
	var frame image.Image
	if src := s.Capture.Active(); src != nil {
		if snap := src.LatestFrame(); !snap.Empty() {
			frame = snap.Image
		}
	}
	if size.X <= 0 || size.Y <= 0 {
		if frame == nil {
			return nil
		}
		size = frame.Bounds().Size()
	}
	return s.Compositor.ComposeInto(size, frame, s.Overlay.Now())
}

// Close discards any session, stops location refresh and closes the source.
func (s *Studio) Close() error {
	s.mu.Lock()
	sess, cancel, done := s.session, s.runCancel, s.runDone
	s.session, s.runCancel, s.runDone = nil, nil, nil
	s.mu.Unlock()
	if sess != nil {
		sess.Discard()
	}
	if cancel != nil {
		cancel()
		<-done
	}
	s.Refresher.Stop()
	return s.Capture.Close()
}
