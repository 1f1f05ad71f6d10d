//go:build !linux

package capture

import (
	"context"
	"fmt"
	"log/slog"
)

// V4L2Device maps one /dev/videoN node to the facing direction it points at.
type V4L2Device struct {
	Path       string `json:"path" yaml:"path"`
	Facing     string `json:"facing" yaml:"facing"`
	AudioInput string `json:"audio_input,omitempty" yaml:"audio_input,omitempty"`
}

// V4L2Driver is only available on linux.
type V4L2Driver struct {
	FFmpeg  string
	Devices []V4L2Device
	Logger  *slog.Logger
}

func (d *V4L2Driver) Name() string { return "v4l2" }

func (d *V4L2Driver) Open(ctx context.Context, c Constraints) (Device, error) {
	return nil, fmt.Errorf("v4l2 unsupported on this platform: %w", ErrDeviceUnavailable)
}
