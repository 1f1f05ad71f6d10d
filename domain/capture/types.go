package capture

import (
	"context"
	"errors"
	"image"
	"math"
	"slices"
)

var (
	// ErrDeviceUnavailable reports that no device satisfies the requested constraints.
	ErrDeviceUnavailable = errors.New("capture: device unavailable")
	// ErrPermissionDenied reports that the device exists but access was refused.
	ErrPermissionDenied = errors.New("capture: permission denied")
	// ErrSourceClosed is returned by operations on a closed MediaSource.
	ErrSourceClosed = errors.New("capture: source closed")
)

// FacingMode names the direction a camera points at.
type FacingMode string

const (
	FacingAny         FacingMode = ""
	FacingEnvironment FacingMode = "environment"
	FacingUser        FacingMode = "user"
)

// AudioConstraints mirror the audio processing hints requested alongside video.
type AudioConstraints struct {
	EchoCancellation bool
	NoiseSuppression bool
	SampleRate       int
}

// DefaultAudioConstraints returns the processing hints used for field recordings.
func DefaultAudioConstraints() *AudioConstraints {
	return &AudioConstraints{EchoCancellation: true, NoiseSuppression: true, SampleRate: 44100}
}

// Constraints describe the requested source. Facing is a preference unless
// FacingExact is set, in which case a driver must refuse devices facing elsewhere.
type Constraints struct {
	Facing      FacingMode
	FacingExact bool
	Width       int
	Height      int
	FPS         float64
	Audio       *AudioConstraints
}

// Relaxed drops the facing requirement, keeping every other constraint.
func (c Constraints) Relaxed() Constraints {
	c.Facing = FacingAny
	c.FacingExact = false
	return c
}

// ZoomRange is the zoom capability descriptor of a device.
type ZoomRange struct {
	Min  float64
	Max  float64
	Step float64
}

// Clamp limits level to the range and snaps it to the nearest step.
func (z ZoomRange) Clamp(level float64) float64 {
	if math.IsNaN(level) {
		return z.Min
	}
	if level < z.Min {
		level = z.Min
	}
	if level > z.Max {
		level = z.Max
	}
	if z.Step > 0 {
		steps := math.Round((level - z.Min) / z.Step)
		level = z.Min + steps*z.Step
		if level > z.Max {
			level = z.Max
		}
	}
	return level
}

// zoomRect returns the centred sub-rectangle of r covering 1/zoom of each side.
func zoomRect(r image.Rectangle, zoom float64) image.Rectangle {
	w := int(float64(r.Dx()) / zoom)
	h := int(float64(r.Dy()) / zoom)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	x0 := r.Min.X + (r.Dx()-w)/2
	y0 := r.Min.Y + (r.Dy()-h)/2
	return image.Rect(x0, y0, x0+w, y0+h)
}

// Capabilities is what callers may query about an open source. Zoom is nil
// when the device cannot zoom at capture level.
type Capabilities struct {
	Zoom        *ZoomRange
	FacingModes []FacingMode
}

// SupportsFacing reports whether mode is among the advertised facing modes.
func (c Capabilities) SupportsFacing(mode FacingMode) bool {
	return slices.Contains(c.FacingModes, mode)
}

// DeviceInfo describes an opened device.
type DeviceInfo struct {
	ID          string
	Label       string
	Driver      string
	Facing      FacingMode
	FacingModes []FacingMode
	Width       int
	Height      int
	// AudioInput is an ffmpeg style "format:device" audio input, empty when
	// the device carries no audio.
	AudioInput string
}

// Device is one opened capture device. Grab returns the current frame and
// must be safe to call from a single goroutine other than the one calling Close.
type Device interface {
	Grab() (*image.RGBA, error)
	Info() DeviceInfo
	Close() error
}

// Zoomer is the optional capture-level zoom capability of a Device.
type Zoomer interface {
	ZoomRange() ZoomRange
	SetZoom(level float64) error
}

// Driver opens devices matching constraints.
type Driver interface {
	Name() string
	Open(ctx context.Context, c Constraints) (Device, error)
}
