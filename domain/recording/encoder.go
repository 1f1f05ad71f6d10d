package recording

import (
	"fmt"
	"image"
	"sort"
	"strings"
	"time"

	"github.com/soocke/fieldcam-go/domain/capture"
)

// Format is the negotiated container/codec pair of a recording.
type Format struct {
	Container string
	Codec     string
	MIME      string
	Extension string
}

func (f Format) String() string { return f.Container + "/" + f.Codec }

// StreamInfo is fixed for the lifetime of one encoder.
type StreamInfo struct {
	Width  int
	Height int
	FPS    float64
	Audio  *capture.AudioConstraints
	// AudioInput is the ffmpeg "format:device" of the source's audio, if any.
	AudioInput string
}

// Encoder turns composed frames into container chunks. Encode may return a
// nil chunk when output is buffered; Flush returns whatever remains. The
// frame passed to Encode may be reused by the caller once Encode returns.
type Encoder interface {
	Format() Format
	Begin(info StreamInfo) error
	Encode(frame *image.RGBA, pts time.Duration) ([]byte, error)
	Pause()
	Resume()
	Flush() ([]byte, error)
	Close() error
}

// EncoderFactory builds a fresh encoder for one session.
type EncoderFactory interface {
	Format() Format
	// Available reports whether the encoder can run on this host.
	Available() error
	New() Encoder
}

// Registry maps container/codec pairs onto encoder factories.
type Registry struct {
	factories map[string]EncoderFactory
}

func NewRegistry(factories ...EncoderFactory) *Registry {
	r := &Registry{factories: make(map[string]EncoderFactory)}
	for _, f := range factories {
		r.Register(f)
	}
	return r
}

func (r *Registry) Register(f EncoderFactory) {
	r.factories[key(f.Format().Container, f.Format().Codec)] = f
}

func key(container, codec string) string {
	return strings.ToLower(container) + "/" + strings.ToLower(codec)
}

// Negotiate validates a container/codec pair before a session starts. An
// empty codec picks the container's default. An unknown pair or an
// unavailable encoder yields ErrEncoderUnsupported.
func (r *Registry) Negotiate(container, codec string) (EncoderFactory, error) {
	if codec == "" {
		if c, ok := r.DefaultCodec(container); ok {
			codec = c
		}
	}
	f, ok := r.factories[key(container, codec)]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s (have %s)", ErrEncoderUnsupported, container, codec, strings.Join(r.Formats(), ", "))
	}
	if err := f.Available(); err != nil {
		return nil, fmt.Errorf("%w: %s/%s: %v", ErrEncoderUnsupported, container, codec, err)
	}
	return f, nil
}

// DefaultCodec returns the codec of the first registered pair, in sorted
// order, whose container matches.
func (r *Registry) DefaultCodec(container string) (string, bool) {
	prefix := strings.ToLower(container) + "/"
	for _, k := range r.Formats() {
		if strings.HasPrefix(k, prefix) {
			return r.factories[k].Format().Codec, true
		}
	}
	return "", false
}

// Formats lists registered pairs in sorted order.
func (r *Registry) Formats() []string {
	out := make([]string, 0, len(r.factories))
	for k := range r.factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
