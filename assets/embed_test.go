package assets

import "testing"

func TestLogoImage(t *testing.T) {
	img, err := LogoImage()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		t.Fatalf("empty logo bounds %v", b)
	}
}
