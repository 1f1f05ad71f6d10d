package compose

import (
	"image"

	"github.com/soocke/fieldcam-go/domain/overlay"
)

// Fixed overlay geometry in pixels. Sizes do not adapt to the frame
// resolution, so text on a 4K frame is as small as on 640x480.
const (
	FontSize       = 20
	Margin         = 10
	LineHeight     = 30
	FooterBaseline = 30 // distance of the last footer baseline from the bottom edge
	LogoSize       = overlay.LogoSize
	CaptionGap     = 20
)

// TextItem is one string drawn with its baseline origin at Dot.
type TextItem struct {
	Text string
	Dot  image.Point
}

// Plan is the resolved placement of every overlay element on one surface.
type Plan struct {
	Footer   []TextItem
	LogoRect image.Rectangle // empty when no logo is drawn
	Caption  *TextItem
}

// FooterText returns the footer strings in draw order.
func (p Plan) FooterText() []string {
	out := make([]string, len(p.Footer))
	for i, it := range p.Footer {
		out[i] = it.Text
	}
	return out
}

// Layout places the overlay on a surface with the given bounds. The footer
// block is anchored to the bottom edge. The logo sits in the top-right corner,
// aspect-fitted into LogoSize, with the caption centred below it. The caption
// is only placed when a logo is.
func Layout(bounds image.Rectangle, spec overlay.Spec, measure func(string) int) Plan {
	var plan Plan
	lines := spec.FooterLines()
	last := bounds.Max.Y - FooterBaseline
	for i, line := range lines {
		y := last - (len(lines)-1-i)*LineHeight
		plan.Footer = append(plan.Footer, TextItem{Text: line, Dot: image.Pt(bounds.Min.X+Margin, y)})
	}

	if spec.Logo == nil {
		return plan
	}
	lb := spec.Logo.Bounds()
	if lb.Empty() {
		return plan
	}
	w, h := fitInto(lb.Dx(), lb.Dy(), LogoSize)
	x1 := bounds.Max.X - Margin
	y0 := bounds.Min.Y + Margin
	plan.LogoRect = image.Rect(x1-w, y0, x1, y0+h)

	if spec.Caption != "" {
		cx := x1 - LogoSize/2
		tw := 0
		if measure != nil {
			tw = measure(spec.Caption)
		}
		plan.Caption = &TextItem{
			Text: spec.Caption,
			Dot:  image.Pt(cx-tw/2, y0+LogoSize+CaptionGap),
		}
	}
	return plan
}

// fitInto scales w x h to fit a size x size box keeping aspect ratio.
func fitInto(w, h, size int) (int, int) {
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	if w >= h {
		nh := h * size / w
		if nh < 1 {
			nh = 1
		}
		return size, nh
	}
	nw := w * size / h
	if nw < 1 {
		nw = 1
	}
	return nw, size
}
