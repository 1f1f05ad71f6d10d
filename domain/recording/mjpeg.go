package recording

import (
	"bytes"
	"errors"
	"image"
	"time"

	"github.com/disintegration/imaging"
)

var errNotBegun = errors.New("recording: encoder not begun")

// MJPEGFormat is the pure Go fallback container: concatenated JPEG frames.
var MJPEGFormat = Format{Container: "mjpeg", Codec: "mjpeg", MIME: "video/x-motion-jpeg", Extension: ".mjpeg"}

// MJPEGFactory builds MJPEG encoders at a fixed JPEG quality.
type MJPEGFactory struct {
	Quality int
}

func (f MJPEGFactory) Format() Format   { return MJPEGFormat }
func (f MJPEGFactory) Available() error { return nil }
func (f MJPEGFactory) New() Encoder     { return &MJPEGEncoder{Quality: f.Quality} }

// MJPEGEncoder emits one JPEG per frame; every Encode returns a full chunk.
type MJPEGEncoder struct {
	Quality int

	begun  bool
	paused bool
	closed bool
	buf    bytes.Buffer
}

func (e *MJPEGEncoder) Format() Format { return MJPEGFormat }

func (e *MJPEGEncoder) Begin(info StreamInfo) error {
	if e.closed {
		return errors.New("recording: mjpeg encoder closed")
	}
	if e.Quality <= 0 || e.Quality > 100 {
		e.Quality = 85
	}
	e.begun = true
	return nil
}

func (e *MJPEGEncoder) Encode(frame *image.RGBA, pts time.Duration) ([]byte, error) {
	if !e.begun || e.closed {
		return nil, errNotBegun
	}
	if e.paused {
		return nil, nil
	}
	e.buf.Reset()
	if err := imaging.Encode(&e.buf, frame, imaging.JPEG, imaging.JPEGQuality(e.Quality)); err != nil {
		return nil, err
	}
	return bytes.Clone(e.buf.Bytes()), nil
}

func (e *MJPEGEncoder) Pause()  { e.paused = true }
func (e *MJPEGEncoder) Resume() { e.paused = false }

func (e *MJPEGEncoder) Flush() ([]byte, error) {
	if !e.begun {
		return nil, errNotBegun
	}
	return nil, nil
}

func (e *MJPEGEncoder) Close() error {
	e.closed = true
	return nil
}
