package capture

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
)

// MediaSource is the one live capture source of a Manager. It owns the
// device handle and the frame pump feeding LatestFrame.
type MediaSource struct {
	dev         Device
	info        DeviceInfo
	constraints Constraints
	pump        *frameService
	logger      *slog.Logger

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
	zoomBits  atomic.Uint64
}

func newMediaSource(dev Device, c Constraints, logger *slog.Logger) *MediaSource {
	s := &MediaSource{dev: dev, info: dev.Info(), constraints: c, logger: logger}
	s.pump = newFrameService(dev.Grab, c.FPS, logger)
	if z, ok := dev.(Zoomer); ok {
		s.zoomBits.Store(math.Float64bits(z.ZoomRange().Min))
	} else {
		s.zoomBits.Store(math.Float64bits(1))
	}
	return s
}

func (s *MediaSource) start() { s.pump.Start() }

// Info describes the underlying device.
func (s *MediaSource) Info() DeviceInfo { return s.info }

// Constraints returns the constraints the source was finally opened with,
// which are the relaxed ones after a fallback.
func (s *MediaSource) Constraints() Constraints { return s.constraints }

// Capabilities reports optional features. Callers must test Zoom for nil.
func (s *MediaSource) Capabilities() Capabilities {
	caps := Capabilities{FacingModes: append([]FacingMode(nil), s.info.FacingModes...)}
	if z, ok := s.dev.(Zoomer); ok {
		r := z.ZoomRange()
		caps.Zoom = &r
	}
	return caps
}

// Live reports whether the source is open.
func (s *MediaSource) Live() bool { return s != nil && !s.closed.Load() }

// LatestFrame returns the freshest grabbed frame; empty until the first grab.
func (s *MediaSource) LatestFrame() FrameSnapshot {
	if !s.Live() {
		return FrameSnapshot{}
	}
	return s.pump.LatestFrame()
}

// Stats exposes frame pump counters.
func (s *MediaSource) Stats() CaptureStats { return s.pump.Stats() }

// Zoom returns the last applied capture zoom level.
func (s *MediaSource) Zoom() float64 { return math.Float64frombits(s.zoomBits.Load()) }

// ApplyZoom sets the capture-level zoom. Without the capability it is a
// no-op and reports applied=false; preview scaling is handled by the UI and
// never touches captured pixels.
func (s *MediaSource) ApplyZoom(level float64) (float64, bool, error) {
	if !s.Live() {
		return 0, false, ErrSourceClosed
	}
	z, ok := s.dev.(Zoomer)
	if !ok {
		if s.logger != nil {
			s.logger.Debug("capture.zoom unsupported", "device", s.info.ID)
		}
		return s.Zoom(), false, nil
	}
	level = z.ZoomRange().Clamp(level)
	if err := z.SetZoom(level); err != nil {
		return s.Zoom(), false, fmt.Errorf("capture: zoom %s: %w", s.info.ID, err)
	}
	s.zoomBits.Store(math.Float64bits(level))
	return level, true, nil
}

// Close stops the pump and releases the device. Safe to call repeatedly.
func (s *MediaSource) Close() error {
	if s == nil {
		return nil
	}
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.pump.Stop()
		s.closeErr = s.dev.Close()
		if s.logger != nil {
			s.logger.Info("capture source closed", "device", s.info.ID, "driver", s.info.Driver)
		}
	})
	return nil
}

// CloseError returns the device close error observed by the first Close.
func (s *MediaSource) CloseError() error { return s.closeErr }
