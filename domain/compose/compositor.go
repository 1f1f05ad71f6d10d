package compose

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/soocke/fieldcam-go/domain/capture"
	"github.com/soocke/fieldcam-go/domain/overlay"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

var (
	textColor   = image.NewUniform(color.RGBA{255, 255, 255, 255})
	shadowColor = image.NewUniform(color.RGBA{0, 0, 0, 160})
)

// Compositor draws a video frame plus its overlay onto a surface. One
// Compositor serves both the recording loop and snapshots.
type Compositor struct {
	mu   sync.Mutex // font.Face is not safe for concurrent use
	face font.Face
}

// New parses the bundled Go Regular font at FontSize.
func New() (*Compositor, error) {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("compose: parse font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: FontSize, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, fmt.Errorf("compose: font face: %w", err)
	}
	return &Compositor{face: face}, nil
}

// MustNew is New for package-level setup where the embedded font cannot fail.
func MustNew() *Compositor {
	c, err := New()
	if err != nil {
		panic(err)
	}
	return c
}

// Measure returns the advance width of s in pixels.
func (c *Compositor) Measure(s string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return font.MeasureString(c.face, s).Ceil()
}

// Draw composes frame and spec onto dst in fixed z-order: video, footer
// text, logo, caption. A nil frame paints black. A frame of another size is
// scaled to fill dst.
func (c *Compositor) Draw(dst *image.RGBA, frame image.Image, spec overlay.Spec) Plan {
	b := dst.Bounds()
	switch {
	case frame == nil:
		draw.Draw(dst, b, image.Black, image.Point{}, draw.Src)
	case frame.Bounds().Size() == b.Size():
		draw.Draw(dst, b, frame, frame.Bounds().Min, draw.Src)
	default:
		xdraw.ApproxBiLinear.Scale(dst, b, frame, frame.Bounds(), xdraw.Src, nil)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	plan := Layout(b, spec, func(s string) int { return font.MeasureString(c.face, s).Ceil() })
	for _, it := range plan.Footer {
		c.text(dst, it)
	}
	if !plan.LogoRect.Empty() {
		logo := spec.Logo
		lb := logo.Bounds()
		if lb.Size() == plan.LogoRect.Size() {
			draw.Draw(dst, plan.LogoRect, logo, lb.Min, draw.Over)
		} else {
			xdraw.CatmullRom.Scale(dst, plan.LogoRect, logo, lb, xdraw.Over, nil)
		}
	}
	if plan.Caption != nil {
		c.text(dst, *plan.Caption)
	}
	return plan
}

// text draws one item with a 1px shadow; caller holds c.mu.
func (c *Compositor) text(dst *image.RGBA, it TextItem) {
	d := font.Drawer{Dst: dst, Src: shadowColor, Face: c.face}
	d.Dot = fixed.P(it.Dot.X+1, it.Dot.Y+1)
	d.DrawString(it.Text)
	d.Src = textColor
	d.Dot = fixed.P(it.Dot.X, it.Dot.Y)
	d.DrawString(it.Text)
}

// ComposeOnce draws at the frame's native resolution into a new surface.
// Used for snapshots, independent of any recording session.
func (c *Compositor) ComposeOnce(frame image.Image, spec overlay.Spec) (*image.RGBA, Plan, error) {
	if frame == nil {
		return nil, Plan{}, fmt.Errorf("compose: nil frame")
	}
	fb := frame.Bounds()
	if fb.Empty() {
		return nil, Plan{}, fmt.Errorf("compose: empty frame %v", fb)
	}
	dst := image.NewRGBA(image.Rect(0, 0, fb.Dx(), fb.Dy()))
	plan := c.Draw(dst, frame, spec)
	return dst, plan, nil
}

// ComposeInto draws into a pooled surface of the given size for the steady
// loop. The caller returns the surface with capture.RecycleFrame once the
// encoder no longer needs it.
func (c *Compositor) ComposeInto(size image.Point, frame image.Image, spec overlay.Spec) *image.RGBA {
	dst := capture.AcquireFrame(image.Rect(0, 0, size.X, size.Y))
	c.Draw(dst, frame, spec)
	return dst
}
