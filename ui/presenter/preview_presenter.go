package presenter

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/soocke/fieldcam-go/domain/capture"
	"github.com/soocke/fieldcam-go/ui/images"
	"github.com/soocke/fieldcam-go/ui/model"
)

// CaptureZoomStep is the capture zoom change per button press.
const CaptureZoomStep = 0.5

// PreviewSource composes preview frames and controls the camera.
type PreviewSource interface {
	Preview(size image.Point) *image.RGBA
	Zoom(level float64) (float64, bool, error)
	CaptureZoom() float64
	SwitchFacing(ctx context.Context) (*capture.MediaSource, error)
}

// PreviewView shows the composed preview and zoom levels.
type PreviewView interface {
	UpdatePreview(img image.Image)
	PreviewSize() image.Point
	SetZoomLabel(text string)
	ShowMessage(msg string)
}

// PreviewPresenter renders the composed frame at native size, applies the
// visual zoom and scales it into the preview label. Capture zoom goes to the
// device and changes what is recorded; visual zoom does not.
type PreviewPresenter struct {
	ctx      context.Context
	src      PreviewSource
	model    *model.PreviewModel
	view     PreviewView
	Interval time.Duration

	last time.Time
}

func NewPreviewPresenter(ctx context.Context, src PreviewSource, m *model.PreviewModel, view PreviewView, interval time.Duration) *PreviewPresenter {
	return &PreviewPresenter{ctx: ctx, src: src, model: m, view: view, Interval: interval}
}

func (p *PreviewPresenter) ready() bool {
	return p != nil && p.src != nil && p.view != nil
}

// Tick renders one preview frame unless the last one is newer than Interval.
func (p *PreviewPresenter) Tick(now time.Time) {
	if !p.ready() {
		return
	}
	if p.Interval > 0 && !p.last.IsZero() && now.Sub(p.last) < p.Interval {
		return
	}
	p.last = now
	img := p.src.Preview(image.Point{})
	if img == nil {
		return
	}
	defer capture.RecycleFrame(img)
	shown := images.VisualZoom(img, p.model.Zoom())
	size := p.view.PreviewSize()
	p.view.UpdatePreview(images.ScaleToFit(shown, size.X, size.Y))
}

// ZoomCapture changes the device zoom by n steps.
func (p *PreviewPresenter) ZoomCapture(n int) {
	if !p.ready() {
		return
	}
	level, ok, err := p.src.Zoom(p.src.CaptureZoom() + float64(n)*CaptureZoomStep)
	switch {
	case err != nil:
		p.view.ShowMessage("Zoom failed: " + err.Error())
	case !ok:
		p.view.ShowMessage("This camera has no zoom")
	default:
		p.updateZoomLabel(level)
	}
}

// ZoomVisual changes the on-screen magnification by n steps.
func (p *PreviewPresenter) ZoomVisual(n int) {
	if !p.ready() {
		return
	}
	p.model.Step(n)
	p.updateZoomLabel(p.src.CaptureZoom())
}

func (p *PreviewPresenter) updateZoomLabel(captureZoom float64) {
	p.view.SetZoomLabel(fmt.Sprintf("Camera %.1fx  View %.2fx", captureZoom, p.model.Zoom()))
}

// SwitchCamera reopens the source facing the other way.
func (p *PreviewPresenter) SwitchCamera() {
	if !p.ready() {
		return
	}
	src, err := p.src.SwitchFacing(p.ctx)
	if err != nil {
		p.view.ShowMessage("Switch camera failed: " + err.Error())
		return
	}
	if src != nil {
		p.view.ShowMessage("Camera: " + src.Info().Label)
	}
	p.updateZoomLabel(p.src.CaptureZoom())
}
