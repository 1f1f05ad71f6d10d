//go:build linux

package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/soocke/fieldcam-go/proc"
	"golang.org/x/sys/unix"
)

// V4L2Device maps one /dev/videoN node to the facing direction it points at.
type V4L2Device struct {
	Path       string `json:"path" yaml:"path"`
	Facing     string `json:"facing" yaml:"facing"`
	AudioInput string `json:"audio_input,omitempty" yaml:"audio_input,omitempty"`
}

// V4L2Driver reads cameras through an ffmpeg subprocess emitting raw RGBA.
type V4L2Driver struct {
	FFmpeg  string
	Devices []V4L2Device
	Logger  *slog.Logger
}

func (d *V4L2Driver) Name() string { return "v4l2" }

func (d *V4L2Driver) Open(ctx context.Context, c Constraints) (Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dev, ok := d.pick(c)
	if !ok {
		return nil, fmt.Errorf("no v4l2 device facing %q: %w", c.Facing, ErrDeviceUnavailable)
	}
	if err := checkAccess(dev.Path); err != nil {
		return nil, err
	}
	bin := d.FFmpeg
	if bin == "" {
		bin = "ffmpeg"
	}
	if _, err := exec.LookPath(bin); err != nil {
		return nil, fmt.Errorf("ffmpeg not found: %v: %w", err, ErrDeviceUnavailable)
	}
	w, h := c.Width, c.Height
	if w <= 0 || h <= 0 {
		w, h = 1280, 720
	}
	fps := c.FPS
	if fps <= 0 {
		fps = 30
	}
	modes := make([]FacingMode, 0, len(d.Devices))
	for _, cand := range d.Devices {
		if cand.Facing != "" {
			modes = append(modes, FacingMode(cand.Facing))
		}
	}
	v := &v4l2Device{
		info: DeviceInfo{
			ID:          dev.Path,
			Label:       "V4L2 " + dev.Path,
			Driver:      d.Name(),
			Facing:      FacingMode(dev.Facing),
			FacingModes: modes,
			Width:       w,
			Height:      h,
			AudioInput:  dev.AudioInput,
		},
		logger: d.Logger,
	}
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-f", "v4l2",
		"-framerate", strconv.FormatFloat(fps, 'f', -1, 64),
		"-video_size", fmt.Sprintf("%dx%d", w, h),
		"-i", dev.Path,
		"-f", "rawvideo", "-pix_fmt", "rgba",
		"-",
	}
	v.cmd = exec.Command(bin, args...)
	v.cmd.Stdout = &frameSplitter{w: w, h: h, publish: v.publish}
	waitCh, err := proc.Start(v.cmd)
	if err != nil {
		return nil, fmt.Errorf("start ffmpeg for %s: %v: %w", dev.Path, err, ErrDeviceUnavailable)
	}
	// forward the exit so both Grab and Close can observe it
	fwd := make(chan error, 1)
	v.waitCh = fwd
	go func() {
		err := <-waitCh
		if err == nil {
			err = io.EOF
		}
		v.exitErr.Store(&err)
		fwd <- err
	}()
	if d.Logger != nil {
		d.Logger.Debug("capture.v4l2 started", "device", dev.Path, "args", args)
	}
	return v, nil
}

func (d *V4L2Driver) pick(c Constraints) (V4L2Device, bool) {
	if len(d.Devices) == 0 {
		return V4L2Device{}, false
	}
	if c.Facing == FacingAny {
		return d.Devices[0], true
	}
	for _, dev := range d.Devices {
		if FacingMode(dev.Facing) == c.Facing {
			return dev, true
		}
	}
	if c.FacingExact {
		return V4L2Device{}, false
	}
	return d.Devices[0], true
}

// checkAccess maps device node access errors onto the capture taxonomy.
func checkAccess(path string) error {
	err := unix.Access(path, unix.R_OK|unix.W_OK)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, unix.EACCES), errors.Is(err, unix.EPERM):
		return fmt.Errorf("%s: %w", path, ErrPermissionDenied)
	case errors.Is(err, unix.ENOENT), errors.Is(err, unix.ENODEV), errors.Is(err, unix.ENXIO):
		return fmt.Errorf("%s: %w", path, ErrDeviceUnavailable)
	default:
		return fmt.Errorf("%s: %v: %w", path, err, ErrDeviceUnavailable)
	}
}

type v4l2Device struct {
	info   DeviceInfo
	logger *slog.Logger
	cmd    *exec.Cmd
	waitCh <-chan error

	latest    atomic.Pointer[image.RGBA]
	exitErr   atomic.Pointer[error]
	closeOnce sync.Once
}

func (v *v4l2Device) publish(img *image.RGBA) { v.latest.Store(img) }

// frameSplitter cuts the raw RGBA stream into whole frames. Published frames
// are never written again.
type frameSplitter struct {
	w, h    int
	buf     []byte
	publish func(*image.RGBA)
}

func (f *frameSplitter) Write(p []byte) (int, error) {
	size := f.w * f.h * 4
	f.buf = append(f.buf, p...)
	for len(f.buf) >= size {
		img := image.NewRGBA(image.Rect(0, 0, f.w, f.h))
		copy(img.Pix, f.buf[:size])
		f.buf = f.buf[size:]
		f.publish(img)
	}
	if len(f.buf) == 0 {
		f.buf = nil
	}
	return len(p), nil
}

func (v *v4l2Device) Grab() (*image.RGBA, error) {
	if errp := v.exitErr.Load(); errp != nil {
		return nil, fmt.Errorf("v4l2 %s stopped: %w", v.info.ID, *errp)
	}
	return v.latest.Load(), nil
}

func (v *v4l2Device) Info() DeviceInfo { return v.info }

func (v *v4l2Device) Close() error {
	var err error
	v.closeOnce.Do(func() {
		err = proc.Terminate(v.cmd, v.waitCh, proc.DefaultGrace)
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) || errors.Is(err, io.EOF) {
			err = nil
		}
	})
	return err
}
