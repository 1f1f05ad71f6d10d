package capture

import (
	"image"
	"sync"
)

// Reusable RGBA surfaces for the steady recording loop. Each tick composes
// into a surface of the same size, so recycling after the encoder has copied
// the pixels removes one large allocation per frame. Callers that never
// recycle simply fall back to plain allocation.

var framePool sync.Pool // stores *image.RGBA

// AcquireFrame returns a reusable RGBA image sized to rect. Pix length is
// exactly rect area * 4 and Stride is width*4. Pixel contents are undefined.
func AcquireFrame(rect image.Rectangle) *image.RGBA {
	w, h := rect.Dx(), rect.Dy()
	if w <= 0 || h <= 0 {
		return &image.RGBA{Rect: rect}
	}
	needed := w * h * 4
	var img *image.RGBA
	if v := framePool.Get(); v != nil {
		img = v.(*image.RGBA)
	}
	if img == nil || cap(img.Pix) < needed {
		img = &image.RGBA{Pix: make([]byte, needed), Stride: w * 4, Rect: rect}
	} else {
		img.Stride = w * 4
		img.Rect = rect
		img.Pix = img.Pix[:needed]
	}
	return img
}

// RecycleFrame returns the frame to the pool. The caller must not touch the
// frame afterwards.
func RecycleFrame(img *image.RGBA) {
	if img == nil || img.Pix == nil {
		return
	}
	framePool.Put(img)
}
