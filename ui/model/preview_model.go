package model

import (
	"math"
	"sync/atomic"
)

// Visual zoom bounds of the preview. This zoom only magnifies what is shown
// on screen; it never changes what the camera captures.
const (
	MinVisualZoom  = 1.0
	MaxVisualZoom  = 3.0
	VisualZoomStep = 0.25
)

// PreviewModel holds the on-screen zoom factor. The zero value is 1x and usable.
// Concurrency-safe because Tk callbacks and presenter ticks may race.
type PreviewModel struct{ bits atomic.Uint64 }

// Zoom returns the current visual zoom factor.
func (m *PreviewModel) Zoom() float64 {
	if m == nil {
		return MinVisualZoom
	}
	z := math.Float64frombits(m.bits.Load())
	if z < MinVisualZoom {
		return MinVisualZoom
	}
	return z
}

// SetZoom stores z clamped to the allowed range and returns the stored value.
func (m *PreviewModel) SetZoom(z float64) float64 {
	if m == nil {
		return MinVisualZoom
	}
	z = math.Max(MinVisualZoom, math.Min(MaxVisualZoom, z))
	m.bits.Store(math.Float64bits(z))
	return z
}

// Step changes the zoom by n steps (negative zooms out).
func (m *PreviewModel) Step(n int) float64 {
	return m.SetZoom(m.Zoom() + float64(n)*VisualZoomStep)
}
