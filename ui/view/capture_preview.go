package view

import (
	"image"

	"github.com/soocke/fieldcam-go/ui/images"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// CapturePreview shows the composed preview frame in one label.
type CapturePreview interface {
	UpdatePreview(img image.Image)
	Size() image.Point
	Reset()
}

type capturePreview struct {
	label     *LabelWidget
	targetW   int
	targetH   int
	prevPhoto *Img // last Tk photo image, deleted before it is replaced
}

const (
	// Max preview dimensions; frames are scaled down proportionally.
	maxPreviewW = 640
	maxPreviewH = 360
)

// NewCapturePreview creates the preview label spanning columns 0-3 of row.
func NewCapturePreview(row int) CapturePreview {
	v := &capturePreview{targetW: maxPreviewW, targetH: maxPreviewH}
	v.prevPhoto = NewPhoto(Data(placeholderPNG()))
	v.label = Label(Image(v.prevPhoto), Borderwidth(1), Relief("sunken"))
	Grid(v.label, Row(row), Column(0), Columnspan(4), Sticky("we"), Padx("0.4m"), Pady("0.4m"))
	return v
}

func placeholderPNG() []byte {
	return images.EncodePNG(image.NewRGBA(image.Rect(0, 0, maxPreviewW, maxPreviewH)))
}

func (v *capturePreview) UpdatePreview(img image.Image) {
	if v.label == nil || img == nil {
		return
	}
	if v.prevPhoto != nil {
		v.prevPhoto.Delete()
	}
	v.prevPhoto = NewPhoto(Data(images.EncodePNG(img)))
	v.label.Configure(Image(v.prevPhoto))
}

// Size is the box preview frames are fitted into.
func (v *capturePreview) Size() image.Point { return image.Pt(v.targetW, v.targetH) }

func (v *capturePreview) Reset() {
	if v.label == nil {
		return
	}
	if v.prevPhoto != nil {
		v.prevPhoto.Delete()
	}
	v.prevPhoto = NewPhoto(Data(placeholderPNG()))
	v.label.Configure(Image(v.prevPhoto))
}
