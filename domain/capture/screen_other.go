//go:build !linux && !windows

package capture

import (
	"context"
	"fmt"
)

// ScreenDriver is unavailable on this platform.
type ScreenDriver struct {
	MaxZoom float64
}

func NewScreenDriver() *ScreenDriver { return &ScreenDriver{MaxZoom: 4} }

func (d *ScreenDriver) Name() string { return "screen" }

func (d *ScreenDriver) Open(ctx context.Context, c Constraints) (Device, error) {
	return nil, fmt.Errorf("screen capture unsupported on this platform: %w", ErrDeviceUnavailable)
}
