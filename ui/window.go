package ui

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"

	"github.com/soocke/fieldcam-go/app"
	"github.com/soocke/fieldcam-go/config"
	"github.com/soocke/fieldcam-go/ui/model"
	"github.com/soocke/fieldcam-go/ui/presenter"
	"github.com/soocke/fieldcam-go/ui/theme"
	"github.com/soocke/fieldcam-go/ui/view"
)

const (
	previewInterval = 100 * time.Millisecond
	minTick         = 10 * time.Millisecond
)

// Host runs the studio in a Tk window. Its update loop is the frame clock
// for recordings started from the Record button.
type Host struct {
	ctx     context.Context
	cancel  context.CancelFunc
	studio  *app.Studio
	cfg     *config.Config
	logger  *slog.Logger
	tick    time.Duration
	afterID string
	closed  bool

	root *view.RootView
	loop *presenter.Loop
}

// NewHost configures the Tk root window.
func NewHost(ctx context.Context, title string, width, height int, studio *app.Studio, cfg *config.Config, cfgPath string, logger *slog.Logger) *Host {
	ctx, cancel := context.WithCancel(ctx)
	h := &Host{ctx: ctx, cancel: cancel, studio: studio, cfg: cfg, logger: logger}
	h.tick = frameTick(cfg.FPS)
	h.root = view.NewRootView(cfg, cfgPath, logger)

	App.WmTitle(title)
	WmProtocol(App, "WM_DELETE_WINDOW", h.exitHandler)
	WmGeometry(App, fmt.Sprintf("%dx%d+100+100", width, height))
	return h
}

// frameTick is the update loop period for fps, never below minTick.
func frameTick(fps float64) time.Duration {
	if fps <= 0 {
		return previewInterval
	}
	if d := time.Duration(float64(time.Second) / fps); d > minTick {
		return d
	}
	return minTick
}

// Start builds the widgets, opens the camera and runs the Tk event loop
// until the window is closed or ctx is cancelled.
func (h *Host) Start() error {
	theme.InitStyles()

	sess := model.NewSessionModel()
	states := presenter.NewStatePresenter(h.root)
	rec := presenter.NewRecordingPresenter(h.ctx, h.studio, h.root, sess, states.OnState)
	prev := presenter.NewPreviewPresenter(h.ctx, h.studio, &model.PreviewModel{}, h.root, previewInterval)
	sp := presenter.NewSessionPresenter(sess, h.studio, h.root)
	h.loop = presenter.NewLoop(rec, prev, sp, states, h.scheduleUpdate)

	h.root.Build(view.Handlers{
		Photo:        rec.Photo,
		Record:       rec.Record,
		PauseResume:  rec.TogglePause,
		Stop:         rec.Stop,
		ZoomIn:       func() { prev.ZoomCapture(1) },
		ZoomOut:      func() { prev.ZoomCapture(-1) },
		ViewZoomIn:   func() { prev.ZoomVisual(1) },
		ViewZoomOut:  func() { prev.ZoomVisual(-1) },
		SwitchCamera: prev.SwitchCamera,
		Exit:         h.exitHandler,
		ApplyLabels:  h.studio.ApplyConfig,
	})

	h.studio.Start(h.ctx)
	if _, err := h.studio.OpenSource(h.ctx); err != nil {
		h.root.ShowMessage("Camera unavailable: " + err.Error())
		if h.logger != nil {
			h.logger.Error("open source failed", "error", err)
		}
	}

	h.scheduleUpdate()
	App.Wait()
	h.cancel()
	return nil
}

func (h *Host) exitHandler() {
	if h.closed {
		return
	}
	h.closed = true
	if h.afterID != "" {
		TclAfterCancel(h.afterID)
		h.afterID = ""
	}
	if h.studio.Recording() {
		if _, path, err := h.studio.StopRecording(); err != nil {
			if h.logger != nil {
				h.logger.Error("stop on exit failed", "error", err)
			}
		} else if h.logger != nil {
			h.logger.Info("recording saved on exit", "path", path)
		}
	}
	h.cancel()
	Destroy(App)
}

func (h *Host) scheduleUpdate() {
	if h.closed {
		return
	}
	// TclAfter keeps the update on Tk's event loop thread. A cancelled
	// context closes the window from that thread too.
	h.afterID = TclAfter(h.tick, func() {
		if h.ctx.Err() != nil {
			h.exitHandler()
			return
		}
		h.loop.Tick()
	})
}

// Run opens the capture window and blocks until it is closed.
func Run(ctx context.Context, studio *app.Studio, cfg *config.Config, cfgPath string, logger *slog.Logger) error {
	return NewHost(ctx, "Field Camera", 900, 820, studio, cfg, cfgPath, logger).Start()
}
