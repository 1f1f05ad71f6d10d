package recording

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/soocke/fieldcam-go/proc"
)

// ffmpegProfile is the codec argument set of one container/codec pair.
type ffmpegProfile struct {
	format Format
	video  []string
	audio  []string
	muxer  []string
}

var ffmpegProfiles = []ffmpegProfile{
	{
		format: Format{Container: "mp4", Codec: "h264", MIME: "video/mp4", Extension: ".mp4"},
		video:  []string{"-c:v", "libx264", "-preset", "veryfast", "-tune", "zerolatency", "-pix_fmt", "yuv420p"},
		audio:  []string{"-c:a", "aac"},
		muxer:  []string{"-movflags", "frag_keyframe+empty_moov+default_base_moof", "-f", "mp4"},
	},
	{
		format: Format{Container: "webm", Codec: "vp8", MIME: "video/webm", Extension: ".webm"},
		video:  []string{"-c:v", "libvpx", "-deadline", "realtime", "-b:v", "2M"},
		audio:  []string{"-c:a", "libopus"},
		muxer:  []string{"-f", "webm"},
	},
	{
		format: Format{Container: "mkv", Codec: "h264", MIME: "video/x-matroska", Extension: ".mkv"},
		video:  []string{"-c:v", "libx264", "-preset", "veryfast", "-pix_fmt", "yuv420p"},
		audio:  []string{"-c:a", "aac"},
		muxer:  []string{"-f", "matroska"},
	},
}

// FFmpegFactories returns one factory per supported ffmpeg container/codec.
func FFmpegFactories(bin string, logger *slog.Logger) []EncoderFactory {
	out := make([]EncoderFactory, 0, len(ffmpegProfiles))
	for _, p := range ffmpegProfiles {
		out = append(out, FFmpegFactory{Bin: bin, profile: p, Logger: logger})
	}
	return out
}

// FFmpegFactory builds ffmpeg encoders for one profile.
type FFmpegFactory struct {
	Bin     string
	Logger  *slog.Logger
	profile ffmpegProfile
}

func (f FFmpegFactory) Format() Format { return f.profile.format }

func (f FFmpegFactory) Available() error {
	_, err := exec.LookPath(f.bin())
	return err
}

func (f FFmpegFactory) New() Encoder {
	return &FFmpegEncoder{bin: f.bin(), profile: f.profile, logger: f.Logger}
}

func (f FFmpegFactory) bin() string {
	if f.Bin == "" {
		return "ffmpeg"
	}
	return f.Bin
}

const (
	ffmpegQueue    = 8
	stderrTailSize = 4096
)

// FFmpegEncoder pipes raw RGBA frames into an ffmpeg subprocess and
// collects the fragmented container it writes to stdout. Encode never
// blocks on ffmpeg: when the input queue is full the frame is dropped.
type FFmpegEncoder struct {
	bin     string
	profile ffmpegProfile
	logger  *slog.Logger

	cmd     *exec.Cmd
	waitCh  <-chan error
	frames  chan []byte
	written chan struct{}
	stderr  tailBuffer
	out     chunkBuffer

	paused  atomic.Bool
	dropped atomic.Uint64
	frameSz int
	state   int // 0 new, 1 running, 2 flushed, 3 closed
}

func (e *FFmpegEncoder) Format() Format { return e.profile.format }

// Args returns the ffmpeg argument list for info.
func (e *FFmpegEncoder) Args(info StreamInfo) []string {
	fps := info.FPS
	if fps <= 0 {
		fps = 30
	}
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-f", "rawvideo", "-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", info.Width, info.Height),
		"-framerate", strconv.FormatFloat(fps, 'f', -1, 64),
		"-i", "pipe:0",
	}
	audio := info.Audio != nil && info.AudioInput != ""
	if audio {
		format, device, ok := strings.Cut(info.AudioInput, ":")
		if !ok {
			format, device = "alsa", info.AudioInput
		}
		args = append(args, "-f", format, "-i", device)
		if info.Audio.SampleRate > 0 {
			args = append(args, "-ar", strconv.Itoa(info.Audio.SampleRate))
		}
		if info.Audio.NoiseSuppression {
			args = append(args, "-af", "afftdn")
		}
		args = append(args, "-map", "0:v", "-map", "1:a")
		args = append(args, e.profile.audio...)
		args = append(args, "-shortest")
	}
	args = append(args, e.profile.video...)
	args = append(args, e.profile.muxer...)
	return append(args, "pipe:1")
}

func (e *FFmpegEncoder) Begin(info StreamInfo) error {
	if e.state != 0 {
		return fmt.Errorf("recording: ffmpeg encoder already begun")
	}
	if info.Width <= 0 || info.Height <= 0 {
		return fmt.Errorf("recording: invalid stream size %dx%d", info.Width, info.Height)
	}
	// yuv420p needs even dimensions
	if strings.Contains(strings.Join(e.profile.video, " "), "yuv420p") && (info.Width%2 != 0 || info.Height%2 != 0) {
		return fmt.Errorf("recording: %s needs even frame size, got %dx%d", e.profile.format, info.Width, info.Height)
	}
	args := e.Args(info)
	e.cmd = exec.Command(e.bin, args...)
	stdin, err := e.cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("recording: ffmpeg stdin: %w", err)
	}
	// exec copies stdout into out; Wait returns only after the copy ends.
	e.cmd.Stdout = &e.out
	e.cmd.Stderr = &e.stderr
	e.waitCh, err = proc.Start(e.cmd)
	if err != nil {
		return fmt.Errorf("recording: start ffmpeg: %w", err)
	}
	e.frameSz = info.Width * info.Height * 4
	e.frames = make(chan []byte, ffmpegQueue)
	e.written = make(chan struct{})
	e.state = 1
	go e.write(stdin)
	if e.logger != nil {
		e.logger.Debug("recording.ffmpeg started", "format", e.profile.format.String(), "args", args)
	}
	return nil
}

func (e *FFmpegEncoder) write(stdin io.WriteCloser) {
	defer close(e.written)
	defer stdin.Close()
	broken := false
	for buf := range e.frames {
		if broken {
			continue
		}
		if _, err := stdin.Write(buf); err != nil {
			broken = true
			if e.logger != nil {
				e.logger.Warn("ffmpeg stdin write", "error", err)
			}
		}
	}
}

func (e *FFmpegEncoder) Encode(frame *image.RGBA, pts time.Duration) ([]byte, error) {
	if e.state != 1 {
		return nil, errNotBegun
	}
	if e.paused.Load() {
		return nil, nil
	}
	if len(frame.Pix) != e.frameSz {
		return nil, fmt.Errorf("recording: frame size %d, stream expects %d", len(frame.Pix), e.frameSz)
	}
	buf := bytes.Clone(frame.Pix)
	select {
	case e.frames <- buf:
	default:
		if n := e.dropped.Add(1); e.logger != nil && n%30 == 1 {
			e.logger.Warn("ffmpeg input queue full; dropping frame", "dropped", n)
		}
	}
	return e.out.take(), nil
}

func (e *FFmpegEncoder) Pause()  { e.paused.Store(true) }
func (e *FFmpegEncoder) Resume() { e.paused.Store(false) }

// Dropped counts frames discarded because ffmpeg fell behind.
func (e *FFmpegEncoder) Dropped() uint64 { return e.dropped.Load() }

// Flush closes the input, waits for ffmpeg to finish the container and
// returns the remaining output.
func (e *FFmpegEncoder) Flush() ([]byte, error) {
	if e.state != 1 {
		return nil, errNotBegun
	}
	e.state = 2
	close(e.frames)
	<-e.written
	waitErr := <-e.waitCh
	e.waitCh = nil
	tail := e.out.take()
	if waitErr != nil {
		return tail, fmt.Errorf("recording: ffmpeg exited: %w: %s", waitErr, e.stderr.String())
	}
	if e.logger != nil {
		e.logger.Debug("recording.ffmpeg flushed", "tail", humanize.Bytes(uint64(len(tail))), "dropped", e.dropped.Load())
	}
	return tail, nil
}

// Close stops ffmpeg if Flush was never called. Safe to call repeatedly.
func (e *FFmpegEncoder) Close() error {
	switch e.state {
	case 1:
		e.state = 3
		close(e.frames)
		err := proc.Terminate(e.cmd, e.waitCh, proc.DefaultGrace)
		<-e.written
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil
		}
		return err
	default:
		e.state = 3
		return nil
	}
}

// chunkBuffer collects ffmpeg output between Encode calls.
type chunkBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (c *chunkBuffer) Write(p []byte) (int, error) {
	c.mu.Lock()
	c.buf = append(c.buf, p...)
	c.mu.Unlock()
	return len(p), nil
}

func (c *chunkBuffer) take() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.buf
	c.buf = nil
	return out
}

// tailBuffer keeps the last stderrTailSize bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - stderrTailSize; over > 0 {
		t.buf = t.buf[over:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.TrimSpace(string(t.buf))
}
