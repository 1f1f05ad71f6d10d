package images

import (
	"bytes"
	"image"
	"image/png"

	"github.com/disintegration/imaging"
	xdraw "golang.org/x/image/draw"
)

// EncodePNG encodes an image to PNG bytes for a Tk photo. It favours speed
// over size. Errors are ignored and may return an empty slice.
func EncodePNG(img image.Image) []byte {
	if img == nil {
		return nil
	}
	var buf bytes.Buffer
	_ = imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(png.BestSpeed))
	return buf.Bytes()
}

// ScaleToFit scales src so that it fits within maxW x maxH preserving aspect
// ratio. If the source already fits, the original is returned.
func ScaleToFit(src image.Image, maxW, maxH int) image.Image {
	if src == nil {
		return nil
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxW && h <= maxH {
		return src
	}
	maxW, maxH = max(maxW, 1), max(maxH, 1)
	ratio := min(float64(maxW)/float64(w), float64(maxH)/float64(h))
	newW := max(int(float64(w)*ratio+0.5), 1)
	newH := max(int(float64(h)*ratio+0.5), 1)
	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)
	return dst
}

// VisualZoom crops the centre 1/factor of src for on-screen magnification.
// It is display only; factors <= 1 return src unchanged.
func VisualZoom(src image.Image, factor float64) image.Image {
	if src == nil || factor <= 1 {
		return src
	}
	b := src.Bounds()
	w := max(int(float64(b.Dx())/factor), 1)
	h := max(int(float64(b.Dy())/factor), 1)
	return imaging.CropCenter(src, w, h)
}
