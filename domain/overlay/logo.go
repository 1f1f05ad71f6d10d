package overlay

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync/atomic"

	"github.com/disintegration/imaging"
)

// LogoSize is the square box uploaded logos are fitted into.
const LogoSize = 80

var (
	errEmptyUpload = errors.New("overlay: empty logo upload")
	// ErrUploadSuperseded is reported by an upload replaced before it resolved.
	ErrUploadSuperseded = errors.New("overlay: logo upload superseded")
)

// LogoStore resolves uploaded logo bytes into an image handle off the compose
// path and serves the current logo to every compose call.
type LogoStore struct {
	logger   *slog.Logger
	fallback image.Image

	uploaded   atomic.Pointer[image.NRGBA]
	generation atomic.Uint64
	pending    atomic.Bool
}

// NewLogoStore returns a store serving fallback until an upload resolves.
// fallback may be nil.
func NewLogoStore(fallback image.Image, logger *slog.Logger) *LogoStore {
	if fallback != nil {
		fallback = imaging.Fit(fallback, LogoSize, LogoSize, imaging.Lanczos)
	}
	return &LogoStore{logger: logger, fallback: fallback}
}

// Upload starts decoding raw in the background. Until it resolves the
// uploaded logo is not ready and Current serves the fallback. The returned
// channel yields the decode result once. A newer Upload supersedes an older
// one still in flight.
func (s *LogoStore) Upload(raw []byte) <-chan error {
	gen := s.generation.Add(1)
	s.uploaded.Store(nil)
	s.pending.Store(true)
	done := make(chan error, 1)
	buf := append([]byte(nil), raw...)
	go func() {
		img, err := decodeLogo(buf)
		if s.generation.Load() != gen {
			done <- ErrUploadSuperseded
			return
		}
		if err != nil {
			s.pending.Store(false)
			if s.logger != nil {
				s.logger.Warn("logo upload rejected", "error", err)
			}
			done <- err
			return
		}
		s.uploaded.Store(img)
		s.pending.Store(false)
		if s.logger != nil {
			s.logger.Info("logo upload ready", "width", img.Bounds().Dx(), "height", img.Bounds().Dy())
		}
		done <- nil
	}()
	return done
}

func decodeLogo(raw []byte) (*image.NRGBA, error) {
	if len(raw) == 0 {
		return nil, errEmptyUpload
	}
	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("overlay: decode logo: %w", err)
	}
	return imaging.Fit(img, LogoSize, LogoSize, imaging.Lanczos), nil
}

// Ready reports whether an uploaded logo has fully resolved.
func (s *LogoStore) Ready() bool { return s.uploaded.Load() != nil }

// Pending reports whether an upload is still decoding.
func (s *LogoStore) Pending() bool { return s.pending.Load() }

// Current picks the uploaded logo when ready, else the bundled fallback,
// else nil.
func (s *LogoStore) Current() image.Image {
	if img := s.uploaded.Load(); img != nil {
		return img
	}
	if s.fallback != nil {
		return s.fallback
	}
	return nil
}

// Clear drops the uploaded logo and cancels any in-flight upload.
func (s *LogoStore) Clear() {
	s.generation.Add(1)
	s.uploaded.Store(nil)
	s.pending.Store(false)
}
