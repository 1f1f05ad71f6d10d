package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Manager acquires and releases the single live MediaSource.
type Manager struct {
	mu     sync.Mutex
	driver Driver
	logger *slog.Logger
	active *MediaSource
}

// NewManager returns a manager opening sources through driver.
func NewManager(driver Driver, logger *slog.Logger) *Manager {
	return &Manager{driver: driver, logger: logger}
}

// Open closes any active source and opens a new one. When the driver has no
// device for an exact facing mode, exactly one more attempt is made with the
// facing requirement dropped. Permission errors are terminal.
func (m *Manager) Open(ctx context.Context, c Constraints) (*MediaSource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.driver == nil {
		return nil, fmt.Errorf("capture: no driver: %w", ErrDeviceUnavailable)
	}
	if m.active != nil {
		_ = m.active.Close()
		m.active = nil
	}

	dev, err := m.driver.Open(ctx, c)
	if err != nil && c.FacingExact && errors.Is(err, ErrDeviceUnavailable) && ctx.Err() == nil {
		if m.logger != nil {
			m.logger.Warn("capture open fallback", "driver", m.driver.Name(), "facing", string(c.Facing), "error", err)
		}
		relaxed := c.Relaxed()
		dev, err = m.driver.Open(ctx, relaxed)
		if err == nil {
			c = relaxed
		}
	}
	if err != nil {
		return nil, fmt.Errorf("capture: open %s: %w", m.driver.Name(), err)
	}

	src := newMediaSource(dev, c, m.logger)
	src.start()
	m.active = src
	if m.logger != nil {
		info := src.Info()
		m.logger.Info("capture source opened",
			"driver", info.Driver,
			"device", info.ID,
			"facing", string(info.Facing),
			"width", info.Width,
			"height", info.Height,
		)
	}
	return src, nil
}

// Active returns the live source or nil.
func (m *Manager) Active() *MediaSource {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active != nil && !m.active.Live() {
		m.active = nil
	}
	return m.active
}

// SetDriver switches drivers. The active source is closed; callers reopen.
func (m *Manager) SetDriver(d Driver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active != nil {
		_ = m.active.Close()
		m.active = nil
	}
	m.driver = d
}

// Close releases the active source, if any.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return nil
	}
	err := m.active.Close()
	m.active = nil
	return err
}
