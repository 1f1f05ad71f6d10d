package images

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func quadrants(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.RGBA{0, 0, 0, 255}
			if x >= w/4 && x < 3*w/4 && y >= h/4 && y < 3*h/4 {
				c = color.RGBA{255, 0, 0, 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestScaleToFit(t *testing.T) {
	src := quadrants(400, 200)
	if got := ScaleToFit(src, 800, 800); got != image.Image(src) {
		t.Fatalf("image that fits should be returned as is")
	}
	got := ScaleToFit(src, 100, 100)
	if got.Bounds().Dx() != 100 || got.Bounds().Dy() != 50 {
		t.Fatalf("unexpected size %v", got.Bounds())
	}
	if ScaleToFit(nil, 10, 10) != nil {
		t.Fatal("nil in, nil out")
	}
}

func TestVisualZoomCropsCentre(t *testing.T) {
	src := quadrants(100, 80)
	if VisualZoom(src, 1) != image.Image(src) {
		t.Fatal("1x should not crop")
	}
	z := VisualZoom(src, 2)
	if z.Bounds().Dx() != 50 || z.Bounds().Dy() != 40 {
		t.Fatalf("unexpected crop %v", z.Bounds())
	}
	// the centre half of the source is solid red
	r, g, b, _ := z.At(z.Bounds().Min.X, z.Bounds().Min.Y).RGBA()
	if r>>8 != 255 || g != 0 || b != 0 {
		t.Fatalf("expected red corner after crop, got %d,%d,%d", r>>8, g>>8, b>>8)
	}
}

func TestEncodePNG(t *testing.T) {
	data := EncodePNG(quadrants(8, 8))
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != 8 {
		t.Fatalf("unexpected bounds %v", img.Bounds())
	}
	if EncodePNG(nil) != nil {
		t.Fatal("nil image should encode to nil")
	}
}
