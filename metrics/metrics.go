package metrics

import (
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Metrics holds Prometheus counters and gauges for capture, compose and
// recording. All methods are safe on a nil receiver so components can run
// without instrumentation.
type Metrics struct {
	registry           *prometheus.Registry
	framesComposed     prometheus.Counter
	framesBlank        prometheus.Counter
	framesRepeated     prometheus.Counter
	encoderErrors      prometheus.Counter
	encoderBytes       prometheus.Counter
	artifacts          *prometheus.CounterVec
	locationFailures   prometheus.Counter
	activeSessions     prometheus.Gauge
	sessionTransitions *prometheus.CounterVec
	snapshotSeconds    prometheus.Histogram
}

// New creates and registers metrics on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	framesComposed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fieldcam_frames_composed_total",
		Help: "Frames composed and pushed to the encoder",
	})
	framesBlank := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fieldcam_frames_blank_total",
		Help: "Frames composed without a source frame",
	})
	framesRepeated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fieldcam_frames_repeated_total",
		Help: "Frames composed from a source frame already used by the previous tick",
	})
	encoderErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fieldcam_encoder_errors_total",
		Help: "Encoder failures while recording",
	})
	encoderBytes := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fieldcam_encoder_bytes_total",
		Help: "Bytes of encoded chunks collected",
	})
	artifacts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fieldcam_artifacts_total",
		Help: "Artifacts produced by kind",
	}, []string{"kind"})
	locationFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fieldcam_location_failures_total",
		Help: "Failed location fetches",
	})
	activeSessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fieldcam_active_sessions",
		Help: "Recording sessions not yet finalized or discarded",
	})
	sessionTransitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fieldcam_session_transitions_total",
		Help: "Recording state transitions",
	}, []string{"from", "to"})
	snapshotSeconds := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "fieldcam_snapshot_seconds",
		Help:    "Snapshot capture latency including the location fetch",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})

	registry.MustRegister(
		framesComposed,
		framesBlank,
		framesRepeated,
		encoderErrors,
		encoderBytes,
		artifacts,
		locationFailures,
		activeSessions,
		sessionTransitions,
		snapshotSeconds,
	)

	return &Metrics{
		registry:           registry,
		framesComposed:     framesComposed,
		framesBlank:        framesBlank,
		framesRepeated:     framesRepeated,
		encoderErrors:      encoderErrors,
		encoderBytes:       encoderBytes,
		artifacts:          artifacts,
		locationFailures:   locationFailures,
		activeSessions:     activeSessions,
		sessionTransitions: sessionTransitions,
		snapshotSeconds:    snapshotSeconds,
	}
}

// Registry exposes the private registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// IncFramesComposed counts one composed frame. blank marks a frame drawn
// without source video; repeated marks a reused source frame.
func (m *Metrics) IncFramesComposed(blank, repeated bool) {
	if m == nil {
		return
	}
	m.framesComposed.Inc()
	if blank {
		m.framesBlank.Inc()
	}
	if repeated {
		m.framesRepeated.Inc()
	}
}

func (m *Metrics) IncEncoderErrors() {
	if m == nil {
		return
	}
	m.encoderErrors.Inc()
}

func (m *Metrics) AddEncoderBytes(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.encoderBytes.Add(float64(n))
}

// IncArtifacts counts one delivered artifact of kind.
func (m *Metrics) IncArtifacts(kind string) {
	if m == nil {
		return
	}
	m.artifacts.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncLocationFailures() {
	if m == nil {
		return
	}
	m.locationFailures.Inc()
}

// SessionOpened and SessionClosed move the active sessions gauge.
func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.activeSessions.Inc()
}

func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
}

func (m *Metrics) IncTransition(from, to string) {
	if m == nil {
		return
	}
	m.sessionTransitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) ObserveSnapshot(d time.Duration) {
	if m == nil {
		return
	}
	m.snapshotSeconds.Observe(d.Seconds())
}

// WriteText dumps every registered family in the Prometheus text format.
func (m *Metrics) WriteText(w io.Writer) error {
	if m == nil {
		return nil
	}
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("metrics: gather: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("metrics: write %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
