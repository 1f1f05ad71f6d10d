package capture

import (
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const captureStatsLogInterval = 5 * time.Second

// frameService pulls frames from a device on its own goroutine and publishes
// the freshest one. Readers never wait on the device.
type frameService struct {
	grab     func() (*image.RGBA, error)
	interval time.Duration
	logger   *slog.Logger

	running      atomic.Bool
	latest       atomic.Pointer[FrameSnapshot]
	captures     atomic.Uint64
	failures     atomic.Uint64
	captureNanos atomic.Uint64
	sequence     atomic.Uint64

	done chan struct{}
	wg   sync.WaitGroup
}

func newFrameService(grab func() (*image.RGBA, error), fps float64, logger *slog.Logger) *frameService {
	interval := time.Second / 30
	if fps > 0 {
		interval = time.Duration(float64(time.Second) / fps)
	}
	return &frameService{grab: grab, interval: interval, logger: logger}
}

func (s *frameService) LatestFrame() FrameSnapshot {
	snap := s.latest.Load()
	if snap == nil {
		return FrameSnapshot{}
	}
	return *snap
}

func (s *frameService) Running() bool { return s.running.Load() }

func (s *frameService) Stats() CaptureStats {
	captures := s.captures.Load()
	total := s.captureNanos.Load()
	var avg time.Duration
	avgMicros := 0.0
	if captures > 0 && total > 0 {
		avg = time.Duration(total / captures)
		avgMicros = float64(avg) / float64(time.Microsecond)
	}
	snapshot := s.LatestFrame()
	age := time.Duration(0)
	if !snapshot.CapturedAt.IsZero() {
		age = time.Since(snapshot.CapturedAt)
	}
	return CaptureStats{
		Captures:         captures,
		Failures:         s.failures.Load(),
		AvgCapture:       avg,
		AvgCaptureMicros: avgMicros,
		LastCapture:      snapshot.CapturedAt,
		LatestFrameAge:   age,
		Sequence:         snapshot.Sequence,
	}
}

func (s *frameService) Start() {
	if s.running.Swap(true) {
		return
	}
	s.done = make(chan struct{})
	s.wg.Add(1)
	go s.loop(s.done)
}

// Stop halts the loop and waits for an in-flight grab to return, so the
// device can be closed right after.
func (s *frameService) Stop() {
	if !s.running.Swap(false) {
		return
	}
	close(s.done)
	s.wg.Wait()
}

func (s *frameService) loop(done <-chan struct{}) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	logTicker := time.NewTicker(captureStatsLogInterval)
	defer logTicker.Stop()

	s.grabOnce()
	for {
		select {
		case <-done:
			return
		case <-logTicker.C:
			s.logStats()
		case <-ticker.C:
			s.grabOnce()
		}
	}
}

func (s *frameService) grabOnce() {
	start := time.Now()
	img, err := s.grab()
	if err != nil || img == nil {
		if s.failures.Add(1) == 1 && s.logger != nil && err != nil {
			s.logger.Warn("capture grab", "error", err)
		}
		return
	}
	elapsed := time.Since(start)
	s.captureNanos.Add(uint64(elapsed.Nanoseconds()))
	s.captures.Add(1)
	seq := s.sequence.Add(1)
	s.latest.Store(&FrameSnapshot{Image: img, CapturedAt: time.Now(), Sequence: seq})
}

func (s *frameService) logStats() {
	if s.logger == nil {
		return
	}
	stats := s.Stats()
	s.logger.Debug("capture.stats",
		"captures", stats.Captures,
		"failures", stats.Failures,
		"avg_capture", stats.AvgCapture,
		"age", stats.LatestFrameAge,
	)
}
