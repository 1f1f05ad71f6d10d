package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/soocke/fieldcam-go/domain/artifact"
	"github.com/soocke/fieldcam-go/domain/capture"
	"github.com/soocke/fieldcam-go/domain/compose"
	"github.com/soocke/fieldcam-go/domain/overlay"
	"github.com/soocke/fieldcam-go/metrics"
)

// ErrNoFrame reports that the source has not produced a frame yet.
var ErrNoFrame = errors.New("snapshot: no frame available")

// DefaultTimeout bounds the location wait of one snapshot.
const DefaultTimeout = 10 * time.Second

// SuggestedImageStem is the base name of snapshot artifacts.
const SuggestedImageStem = "captured_image"

// FrameSource is the live source a snapshot is taken from.
type FrameSource interface {
	LatestFrame() capture.FrameSnapshot
}

// OverlayFactory resolves a fresh overlay; it may block until ctx ends.
type OverlayFactory interface {
	Fresh(ctx context.Context) (overlay.Spec, error)
}

// Codec is the still image serialization.
type Codec string

const (
	CodecPNG  Codec = "png"
	CodecJPEG Codec = "jpeg"
)

// ParseCodec maps config strings onto a Codec.
func ParseCodec(s string) (Codec, error) {
	switch strings.ToLower(s) {
	case "", "png":
		return CodecPNG, nil
	case "jpg", "jpeg":
		return CodecJPEG, nil
	}
	return "", fmt.Errorf("snapshot: unknown image codec %q", s)
}

// Exporter performs one-shot compose and serialize, independent of any
// recording session.
type Exporter struct {
	Compositor *compose.Compositor
	Codec      Codec
	Quality    int
	Timeout    time.Duration
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
}

// Capture waits for a fresh overlay, composes it onto the latest frame at
// native resolution and serializes the result. Location failures surface as
// overlay.ErrLocationUnavailable when the factory requires a fix.
func (e *Exporter) Capture(ctx context.Context, src FrameSource, factory OverlayFactory) (artifact.Artifact, error) {
	started := time.Now()
	if src == nil {
		return artifact.Artifact{}, ErrNoFrame
	}
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	fctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	spec, err := factory.Fresh(fctx)
	if err != nil {
		if e.Logger != nil {
			e.Logger.Warn("snapshot aborted", "error", err)
		}
		return artifact.Artifact{}, fmt.Errorf("snapshot: overlay: %w", err)
	}

	// The frame is read after the location wait so it is as close as possible
	// to the stamped time.
	snap := src.LatestFrame()
	if snap.Image == nil {
		return artifact.Artifact{}, ErrNoFrame
	}
	img, _, err := e.Compositor.ComposeOnce(snap.Image, spec)
	if err != nil {
		return artifact.Artifact{}, fmt.Errorf("snapshot: %w", err)
	}

	var buf bytes.Buffer
	codec := e.Codec
	if codec == "" {
		codec = CodecPNG
	}
	art := artifact.Artifact{Kind: artifact.KindImage, CreatedAt: spec.Timestamp}
	switch codec {
	case CodecJPEG:
		q := e.Quality
		if q <= 0 || q > 100 {
			q = 92
		}
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(q))
		art.MIME, art.SuggestedName = "image/jpeg", SuggestedImageStem+".jpg"
	default:
		err = imaging.Encode(&buf, img, imaging.PNG)
		art.MIME, art.SuggestedName = "image/png", SuggestedImageStem+".png"
	}
	if err != nil {
		return artifact.Artifact{}, fmt.Errorf("snapshot: encode %s: %w", codec, err)
	}
	art.Payload = buf.Bytes()

	elapsed := time.Since(started)
	e.Metrics.ObserveSnapshot(elapsed)
	e.Metrics.IncArtifacts(artifact.KindImage.String())
	if e.Logger != nil {
		e.Logger.Info("snapshot captured",
			"codec", string(codec),
			"width", img.Bounds().Dx(),
			"height", img.Bounds().Dy(),
			"bytes", len(art.Payload),
			"elapsed", elapsed,
		)
	}
	return art, nil
}
