package presenter

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/soocke/fieldcam-go/domain/capture"
	"github.com/soocke/fieldcam-go/ui/model"
)

type mockPreviewSource struct {
	frames  int
	zoom    float64
	noZoom  bool
	switchs int
}

func (s *mockPreviewSource) Preview(size image.Point) *image.RGBA {
	s.frames++
	return image.NewRGBA(image.Rect(0, 0, 640, 480))
}

func (s *mockPreviewSource) Zoom(level float64) (float64, bool, error) {
	if s.noZoom {
		return s.zoom, false, nil
	}
	s.zoom = level
	return level, true, nil
}

func (s *mockPreviewSource) CaptureZoom() float64 {
	if s.zoom == 0 {
		return 1
	}
	return s.zoom
}

func (s *mockPreviewSource) SwitchFacing(ctx context.Context) (*capture.MediaSource, error) {
	s.switchs++
	if s.switchs > 1 {
		return nil, errors.New("busy")
	}
	return nil, nil
}

type mockPreviewView struct {
	shown    []image.Rectangle
	zoomText string
	messages []string
}

func (v *mockPreviewView) UpdatePreview(img image.Image) { v.shown = append(v.shown, img.Bounds()) }
func (v *mockPreviewView) PreviewSize() image.Point      { return image.Pt(320, 320) }
func (v *mockPreviewView) SetZoomLabel(text string)      { v.zoomText = text }
func (v *mockPreviewView) ShowMessage(msg string)        { v.messages = append(v.messages, msg) }

func TestPreviewPresenter_ThrottlesAndScales(t *testing.T) {
	src := &mockPreviewSource{}
	view := &mockPreviewView{}
	p := NewPreviewPresenter(context.Background(), src, &model.PreviewModel{}, view, 100*time.Millisecond)

	base := time.Unix(0, 0)
	p.Tick(base)
	p.Tick(base.Add(50 * time.Millisecond))
	p.Tick(base.Add(100 * time.Millisecond))
	if src.frames != 2 || len(view.shown) != 2 {
		t.Fatalf("expected 2 rendered frames, got frames=%d shown=%d", src.frames, len(view.shown))
	}
	if view.shown[0].Dx() != 320 || view.shown[0].Dy() != 240 {
		t.Fatalf("preview should fit 320x320 keeping aspect, got %v", view.shown[0])
	}
}

func TestPreviewPresenter_VisualZoomLeavesCapture(t *testing.T) {
	src := &mockPreviewSource{}
	view := &mockPreviewView{}
	m := &model.PreviewModel{}
	p := NewPreviewPresenter(context.Background(), src, m, view, 0)

	p.ZoomVisual(4)
	if m.Zoom() != 2 || src.zoom != 0 {
		t.Fatalf("visual zoom must not touch the device: view=%v device=%v", m.Zoom(), src.zoom)
	}
	if view.zoomText != "Camera 1.0x  View 2.00x" {
		t.Fatalf("unexpected zoom label %q", view.zoomText)
	}
	p.Tick(time.Now())
	// 640x480 cropped to 320x240 fits without scaling
	if got := view.shown[0]; got.Dx() != 320 || got.Dy() != 240 {
		t.Fatalf("unexpected zoomed preview %v", got)
	}

	p.ZoomCapture(2)
	if src.zoom != 2 {
		t.Fatalf("capture zoom expected 2, got %v", src.zoom)
	}
	src.noZoom = true
	p.ZoomCapture(1)
	if len(view.messages) == 0 || view.messages[len(view.messages)-1] != "This camera has no zoom" {
		t.Fatalf("expected unsupported message, got %v", view.messages)
	}
}

func TestPreviewPresenter_SwitchCameraError(t *testing.T) {
	src := &mockPreviewSource{}
	view := &mockPreviewView{}
	p := NewPreviewPresenter(context.Background(), src, &model.PreviewModel{}, view, 0)
	p.SwitchCamera()
	p.SwitchCamera()
	if src.switchs != 2 || len(view.messages) != 1 || view.messages[0] != "Switch camera failed: busy" {
		t.Fatalf("unexpected switch handling: %d %v", src.switchs, view.messages)
	}
}
