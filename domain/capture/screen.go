//go:build linux || windows

package capture

import (
	"context"
	"fmt"
	"image"
	"math"
	"sync/atomic"

	"github.com/vova616/screenshot"
	xdraw "golang.org/x/image/draw"
)

// ScreenDriver uses the primary display as a video source. Zoom is real
// capture-level zoom: a centred sub-rectangle is grabbed and scaled back up.
type ScreenDriver struct {
	MaxZoom float64
}

func NewScreenDriver() *ScreenDriver { return &ScreenDriver{MaxZoom: 4} }

func (d *ScreenDriver) Name() string { return "screen" }

func (d *ScreenDriver) Open(ctx context.Context, c Constraints) (Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// A display has no facing direction; an exact request for one cannot be met.
	if c.FacingExact && c.Facing != FacingAny {
		return nil, fmt.Errorf("screen has no %s facing: %w", c.Facing, ErrDeviceUnavailable)
	}
	rect, err := screenshot.ScreenRect()
	if err != nil {
		return nil, fmt.Errorf("screen rect: %v: %w", err, ErrDeviceUnavailable)
	}
	if rect.Empty() {
		return nil, fmt.Errorf("screen rect empty: %w", ErrDeviceUnavailable)
	}
	maxZoom := d.MaxZoom
	if maxZoom < 1 {
		maxZoom = 1
	}
	dev := &screenDevice{
		rect: rect,
		rng:  ZoomRange{Min: 1, Max: maxZoom, Step: 0.1},
		info: DeviceInfo{
			ID:     "screen:0",
			Label:  "Primary display",
			Driver: d.Name(),
			Width:  rect.Dx(),
			Height: rect.Dy(),
		},
	}
	dev.zoomBits.Store(math.Float64bits(1))
	return dev, nil
}

type screenDevice struct {
	rect     image.Rectangle
	rng      ZoomRange
	info     DeviceInfo
	zoomBits atomic.Uint64
	closed   atomic.Bool
}

func (d *screenDevice) Grab() (*image.RGBA, error) {
	if d.closed.Load() {
		return nil, ErrSourceClosed
	}
	zoom := math.Float64frombits(d.zoomBits.Load())
	if zoom <= 1 {
		return screenshot.CaptureRect(d.rect)
	}
	crop := zoomRect(d.rect, zoom)
	part, err := screenshot.CaptureRect(crop)
	if err != nil {
		return nil, err
	}
	full := image.NewRGBA(image.Rect(0, 0, d.rect.Dx(), d.rect.Dy()))
	xdraw.ApproxBiLinear.Scale(full, full.Bounds(), part, part.Bounds(), xdraw.Src, nil)
	return full, nil
}

func (d *screenDevice) Info() DeviceInfo { return d.info }

func (d *screenDevice) Close() error {
	d.closed.Store(true)
	return nil
}

func (d *screenDevice) ZoomRange() ZoomRange { return d.rng }

func (d *screenDevice) SetZoom(level float64) error {
	if d.closed.Load() {
		return ErrSourceClosed
	}
	d.zoomBits.Store(math.Float64bits(level))
	return nil
}
