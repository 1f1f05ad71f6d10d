package view

import (
	"image"
	"log/slog"
	"time"

	"github.com/soocke/fieldcam-go/config"
	"github.com/soocke/fieldcam-go/domain/recording"
	"github.com/soocke/fieldcam-go/ui/theme"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// Handlers are the user actions wired to buttons.
type Handlers struct {
	Photo        func()
	Record       func()
	PauseResume  func()
	Stop         func()
	ZoomIn       func()
	ZoomOut      func()
	ViewZoomIn   func()
	ViewZoomOut  func()
	SwitchCamera func()
	Exit         func()
	ApplyLabels  func(*config.Config)
}

// RootView composes the top-level layout. It implements the view contracts
// of all presenters.
type RootView struct {
	cfg     *config.Config
	cfgPath string
	logger  *slog.Logger

	// Subviews
	Session SessionStats
	Labels  LabelsPanel
	Preview CapturePreview

	// Widgets
	StateLabel   *TLabelWidget
	MessageLabel *LabelWidget
	ZoomLabel    *TLabelWidget
	recordBtn    *TButtonWidget
	pauseBtn     *ButtonWidget
	stopBtn      *TButtonWidget
}

func NewRootView(cfg *config.Config, cfgPath string, logger *slog.Logger) *RootView {
	return &RootView{cfg: cfg, cfgPath: cfgPath, logger: logger}
}

func noop() {}

func orNoop(f func()) func() {
	if f == nil {
		return noop
	}
	return f
}

// Build constructs the layout. Row 0 holds state and stats, row 1 the
// buttons, then the label form and the preview.
func (rv *RootView) Build(h Handlers) {
	if rv == nil {
		return
	}
	rv.StateLabel = TLabel(Txt("State: idle"), Style(theme.StyleStateLabel))
	Grid(rv.StateLabel, Row(0), Column(0), Sticky("we"), Padx("0.4m"), Pady("0.3m"))
	statsFrame := Frame()
	Grid(statsFrame, Row(0), Column(1), Columnspan(3), Sticky("w"), Padx("0.3m"), Pady("0.3m"))
	rv.Session = NewSessionStats(statsFrame, 0, 0)

	btnFrame := Frame()
	Grid(btnFrame, Row(1), Column(0), Columnspan(4), Sticky("we"), Padx("0.3m"), Pady("0.3m"))
	col := 0
	place := func(w Widget) {
		Grid(w, In(btnFrame), Row(0), Column(col), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
		col++
	}
	place(Button(Txt("Photo"), Command(orNoop(h.Photo))))
	rv.recordBtn = TButton(Txt("Record"), Style(theme.StylePrimaryButton), Command(orNoop(h.Record)))
	place(rv.recordBtn)
	rv.pauseBtn = Button(Txt("Pause"), Command(orNoop(h.PauseResume)))
	place(rv.pauseBtn)
	rv.stopBtn = TButton(Txt("Stop"), Style(theme.StyleDangerButton), Command(orNoop(h.Stop)))
	place(rv.stopBtn)
	place(Button(Txt("Zoom +"), Command(orNoop(h.ZoomIn))))
	place(Button(Txt("Zoom -"), Command(orNoop(h.ZoomOut))))
	place(Button(Txt("View +"), Command(orNoop(h.ViewZoomIn))))
	place(Button(Txt("View -"), Command(orNoop(h.ViewZoomOut))))
	place(Button(Txt("Switch Camera"), Command(orNoop(h.SwitchCamera))))
	var modeBtn *ButtonWidget
	modeBtn = Button(Txt("Dark"), Command(func() {
		if theme.ToggleDark() {
			modeBtn.Configure(Txt("Light"))
		} else {
			modeBtn.Configure(Txt("Dark"))
		}
	}))
	place(modeBtn)
	place(Button(Txt("Exit"), Command(orNoop(h.Exit))))

	rv.ZoomLabel = TLabel(Txt("Camera 1.0x  View 1.00x"), Style(theme.StyleAccentLabel))
	Grid(rv.ZoomLabel, Row(2), Column(0), Sticky("w"), Padx("0.4m"))
	rv.MessageLabel = Label(Txt(""), Anchor("w"))
	Grid(rv.MessageLabel, Row(2), Column(1), Columnspan(3), Sticky("we"), Padx("0.4m"))

	rv.Labels = NewLabelsPanel(rv.cfg, rv.cfgPath, rv.logger, h.ApplyLabels)
	endRow := rv.Labels.Build(3)
	rv.Preview = NewCapturePreview(endRow)
	rv.SetControls(recording.StateIdle, false)
}

// SetStateLabel updates the state label text.
func (rv *RootView) SetStateLabel(text string) {
	if rv != nil && rv.StateLabel != nil {
		rv.StateLabel.Configure(Txt(text))
	}
}

// SetControls enables the buttons that are valid in state.
func (rv *RootView) SetControls(state recording.State, busy bool) {
	if rv == nil || rv.recordBtn == nil {
		return
	}
	active := state == recording.StateRecording || state == recording.StatePaused
	enable := func(on bool) string {
		if on && !busy {
			return "normal"
		}
		return "disabled"
	}
	rv.recordBtn.Configure(State(enable(!active)))
	rv.pauseBtn.Configure(State(enable(active)))
	rv.stopBtn.Configure(State(enable(active)))
	if state == recording.StatePaused {
		rv.pauseBtn.Configure(Txt("Resume"))
	} else {
		rv.pauseBtn.Configure(Txt("Pause"))
	}
}

// ShowMessage shows a status line with the time it was posted.
func (rv *RootView) ShowMessage(msg string) {
	if rv != nil && rv.MessageLabel != nil {
		rv.MessageLabel.Configure(Txt(time.Now().Format("15:04:05") + "  " + msg))
	}
}

// SetZoomLabel updates the zoom readout.
func (rv *RootView) SetZoomLabel(text string) {
	if rv != nil && rv.ZoomLabel != nil {
		rv.ZoomLabel.Configure(Txt(text))
	}
}

// UpdatePreview proxies to the preview view.
func (rv *RootView) UpdatePreview(img image.Image) {
	if rv != nil && rv.Preview != nil {
		rv.Preview.UpdatePreview(img)
	}
}

// PreviewSize is the box the preview is fitted into.
func (rv *RootView) PreviewSize() image.Point {
	if rv == nil || rv.Preview == nil {
		return image.Pt(maxPreviewW, maxPreviewH)
	}
	return rv.Preview.Size()
}

// SetSession updates take and total durations.
func (rv *RootView) SetSession(take, total time.Duration) {
	if rv == nil || rv.Session == nil {
		return
	}
	rv.Session.SetTake(take)
	rv.Session.SetTotal(total)
}

// SetPhotos updates the photo counter.
func (rv *RootView) SetPhotos(n int) {
	if rv != nil && rv.Session != nil {
		rv.Session.SetPhotos(n)
	}
}
