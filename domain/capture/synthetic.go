package capture

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"slices"
	"sync"
	"sync/atomic"
)

// SyntheticOptions configures the test pattern camera.
type SyntheticOptions struct {
	Width  int
	Height int
	// Facing lists the modes the fake device can serve. Empty means environment only.
	Facing []FacingMode
	// DenyPermission makes every Open fail with ErrPermissionDenied.
	DenyPermission bool
	// Zoom, when set, advertises a capture-level zoom capability.
	Zoom *ZoomRange
}

// SyntheticDriver is a deterministic colour-bar camera. It needs no hardware
// and is the default driver for headless runs.
type SyntheticDriver struct {
	opts  SyntheticOptions
	opens atomic.Int32
}

// NewSyntheticDriver returns a driver serving test pattern frames.
func NewSyntheticDriver(opts SyntheticOptions) *SyntheticDriver {
	if opts.Width <= 0 {
		opts.Width = 640
	}
	if opts.Height <= 0 {
		opts.Height = 480
	}
	if len(opts.Facing) == 0 {
		opts.Facing = []FacingMode{FacingEnvironment}
	}
	return &SyntheticDriver{opts: opts}
}

func (d *SyntheticDriver) Name() string { return "synthetic" }

// Opens counts calls to Open, successful or not.
func (d *SyntheticDriver) Opens() int { return int(d.opens.Load()) }

func (d *SyntheticDriver) Open(ctx context.Context, c Constraints) (Device, error) {
	d.opens.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.opts.DenyPermission {
		return nil, ErrPermissionDenied
	}
	facing := d.opts.Facing[0]
	if c.Facing != FacingAny {
		if slices.Contains(d.opts.Facing, c.Facing) {
			facing = c.Facing
		} else if c.FacingExact {
			return nil, fmt.Errorf("no %s camera: %w", c.Facing, ErrDeviceUnavailable)
		}
	}
	w, h := d.opts.Width, d.opts.Height
	if c.Width > 0 && c.Height > 0 {
		w, h = c.Width, c.Height
	}
	dev := &syntheticDevice{
		info: DeviceInfo{
			ID:          "synthetic:" + string(facing),
			Label:       "Synthetic " + string(facing) + " camera",
			Driver:      d.Name(),
			Facing:      facing,
			FacingModes: append([]FacingMode(nil), d.opts.Facing...),
			Width:       w,
			Height:      h,
		},
		zoom: 1,
	}
	if d.opts.Zoom != nil {
		dev.zoom = d.opts.Zoom.Min
		return &zoomableSyntheticDevice{syntheticDevice: dev, rng: *d.opts.Zoom}, nil
	}
	return dev, nil
}

type syntheticDevice struct {
	mu     sync.Mutex
	info   DeviceInfo
	frame  int
	zoom   float64
	closed bool
}

var syntheticBars = []color.RGBA{
	{235, 235, 235, 255},
	{235, 235, 16, 255},
	{16, 235, 235, 255},
	{16, 235, 16, 255},
	{235, 16, 235, 255},
	{235, 16, 16, 255},
	{16, 16, 235, 255},
}

// Grab draws colour bars with a sweeping marker so consecutive frames differ.
// Zoom narrows the visible bar span around the centre.
func (d *syntheticDevice) Grab() (*image.RGBA, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, ErrSourceClosed
	}
	w, h := d.info.Width, d.info.Height
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	zoom := d.zoom
	if zoom < 1 {
		zoom = 1
	}
	span := float64(w) / zoom
	offset := (float64(w) - span) / 2
	for x := 0; x < w; x++ {
		src := offset + float64(x)/zoom
		c := syntheticBars[int(src*float64(len(syntheticBars))/float64(w))%len(syntheticBars)]
		for y := 0; y < h; y++ {
			i := img.PixOffset(x, y)
			img.Pix[i+0] = c.R
			img.Pix[i+1] = c.G
			img.Pix[i+2] = c.B
			img.Pix[i+3] = 255
		}
	}
	marker := d.frame % w
	for y := 0; y < h; y++ {
		img.SetRGBA(marker, y, color.RGBA{0, 0, 0, 255})
	}
	d.frame++
	return img, nil
}

func (d *syntheticDevice) Info() DeviceInfo { return d.info }

func (d *syntheticDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

type zoomableSyntheticDevice struct {
	*syntheticDevice
	rng ZoomRange
}

func (d *zoomableSyntheticDevice) ZoomRange() ZoomRange { return d.rng }

func (d *zoomableSyntheticDevice) SetZoom(level float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrSourceClosed
	}
	d.zoom = level
	return nil
}
