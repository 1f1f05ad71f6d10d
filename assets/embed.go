package assets

import (
	"bytes"
	_ "embed"
	"fmt"
	"image"
	"image/png"
)

// LogoPNG contains the raw PNG bytes of the bundled brand logo.
//
//go:embed logo.png
var LogoPNG []byte

// LogoImage decodes the embedded PNG into an image.Image.
func LogoImage() (image.Image, error) {
	if len(LogoPNG) == 0 {
		return nil, fmt.Errorf("embedded logo.png is empty")
	}
	img, err := png.Decode(bytes.NewReader(LogoPNG))
	if err != nil {
		return nil, err
	}
	return img, nil
}
