package compose

import (
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/soocke/fieldcam-go/domain/capture"
	"github.com/soocke/fieldcam-go/domain/overlay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func riceSpec() overlay.Spec {
	return overlay.Spec{
		ProductName: "Rice",
		FarmerName:  "A.Kumar",
		Position:    &overlay.Position{Lat: 12.97160, Lon: 77.59460},
		Timestamp:   time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC),
	}
}

func TestComposeOnce_FooterText(t *testing.T) {
	c := MustNew()
	frame := solid(640, 480, color.RGBA{0, 64, 0, 255})

	out, plan, err := c.ComposeOnce(frame, riceSpec())
	require.NoError(t, err)
	assert.Equal(t, frame.Bounds(), out.Bounds())

	want := []string{
		"Product: Rice",
		"Name: A.Kumar",
		"Lat: 12.97160, Lon: 77.59460",
		"Timestamp: 2024-05-01 09:30:00",
	}
	if diff := cmp.Diff(want, plan.FooterText()); diff != "" {
		t.Fatalf("footer mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, plan.LogoRect.Empty())
	assert.Nil(t, plan.Caption)
	// input frame untouched
	assert.Equal(t, uint8(64), frame.Pix[1])
}

func TestLayout_FooterAnchoredToBottom(t *testing.T) {
	for _, size := range []image.Point{{640, 480}, {1920, 1080}} {
		plan := Layout(image.Rect(0, 0, size.X, size.Y), riceSpec(), nil)
		require.Len(t, plan.Footer, 4)
		last := plan.Footer[3].Dot
		assert.Equal(t, image.Pt(Margin, size.Y-FooterBaseline), last)
		for i := 1; i < 4; i++ {
			assert.Equal(t, LineHeight, plan.Footer[i].Dot.Y-plan.Footer[i-1].Dot.Y)
		}
	}
}

func TestLayout_LogoAndCaption(t *testing.T) {
	spec := riceSpec()
	spec.Logo = solid(160, 80, color.RGBA{255, 0, 0, 255})
	spec.Caption = "VHUMI.IN"
	plan := Layout(image.Rect(0, 0, 640, 480), spec, func(s string) int { return 40 })

	assert.Equal(t, image.Rect(640-Margin-80, Margin, 640-Margin, Margin+40), plan.LogoRect)
	require.NotNil(t, plan.Caption)
	assert.Equal(t, image.Pt(640-Margin-LogoSize/2-20, Margin+LogoSize+CaptionGap), plan.Caption.Dot)

	spec.Logo = nil
	plan = Layout(image.Rect(0, 0, 640, 480), spec, nil)
	assert.True(t, plan.LogoRect.Empty())
	assert.Nil(t, plan.Caption)
}

func TestDraw_ZOrder(t *testing.T) {
	c := MustNew()
	spec := riceSpec()
	spec.Logo = solid(80, 80, color.RGBA{255, 0, 0, 255})
	dst := image.NewRGBA(image.Rect(0, 0, 320, 240))

	plan := c.Draw(dst, solid(320, 240, color.RGBA{0, 0, 255, 255}), spec)

	// logo covers video
	inside := plan.LogoRect.Min.Add(image.Pt(5, 5))
	assert.Equal(t, color.RGBA{255, 0, 0, 255}, dst.RGBAAt(inside.X, inside.Y))
	// video elsewhere
	assert.Equal(t, color.RGBA{0, 0, 255, 255}, dst.RGBAAt(160, 20))
	// footer text leaves bright pixels over the blue background
	assert.True(t, hasBright(dst, image.Rect(0, 240-FooterBaseline-3*LineHeight-FontSize, 320, 240)))
}

func hasBright(img *image.RGBA, r image.Rectangle) bool {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			c := img.RGBAAt(x, y)
			if c.R > 200 && c.G > 200 {
				return true
			}
		}
	}
	return false
}

func TestDraw_NilFrameAndScaling(t *testing.T) {
	c := MustNew()
	dst := image.NewRGBA(image.Rect(0, 0, 200, 200))
	c.Draw(dst, nil, overlay.Spec{})
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, dst.RGBAAt(190, 5))

	c.Draw(dst, solid(16, 12, color.RGBA{0, 200, 0, 255}), overlay.Spec{})
	assert.Equal(t, color.RGBA{0, 200, 0, 255}, dst.RGBAAt(190, 5))
}

func TestComposeInto_PooledSurface(t *testing.T) {
	c := MustNew()
	out := c.ComposeInto(image.Pt(100, 50), solid(200, 100, color.RGBA{10, 10, 10, 255}), riceSpec())
	assert.Equal(t, image.Rect(0, 0, 100, 50), out.Bounds())
	assert.Len(t, out.Pix, 100*50*4)
	capture.RecycleFrame(out)
}

func TestComposeOnce_RejectsNilFrame(t *testing.T) {
	_, _, err := MustNew().ComposeOnce(nil, riceSpec())
	assert.Error(t, err)
}
