package capture

import (
	"image"
	"time"
)

// FrameSnapshot carries the latest grabbed frame and metadata.
type FrameSnapshot struct {
	Image      *image.RGBA
	CapturedAt time.Time
	Sequence   uint64
}

// Empty reports whether no frame has been grabbed yet.
func (s FrameSnapshot) Empty() bool { return s.Image == nil }

// CaptureStats summarises frame pump behaviour for instrumentation.
type CaptureStats struct {
	Captures         uint64
	Failures         uint64
	AvgCapture       time.Duration
	AvgCaptureMicros float64
	LastCapture      time.Time
	LatestFrameAge   time.Duration
	Sequence         uint64
}
