package recording

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/soocke/fieldcam-go/domain/artifact"
	"github.com/soocke/fieldcam-go/domain/capture"
	"github.com/soocke/fieldcam-go/domain/overlay"
	"github.com/soocke/fieldcam-go/metrics"
	"golang.org/x/time/rate"
)

// SuggestedVideoStem is the base name of finalized recordings.
const SuggestedVideoStem = "video_recording"

// FrameSource is the live source a session pulls frames from.
type FrameSource interface {
	LatestFrame() capture.FrameSnapshot
	Live() bool
	Info() capture.DeviceInfo
}

// OverlaySource builds the overlay for one compose call without blocking.
type OverlaySource interface {
	Current(now time.Time) overlay.Spec
}

// Composer draws one frame plus overlay into a pooled surface.
type Composer interface {
	ComposeInto(size image.Point, frame image.Image, spec overlay.Spec) *image.RGBA
}

// Options wires a session to its collaborators.
type Options struct {
	Source     FrameSource
	Overlay    OverlaySource
	Compositor Composer
	Encoder    Encoder
	FPS        float64
	Audio      *capture.AudioConstraints
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
	Now        func() time.Time
}

// Stats is a point-in-time view of a session.
type Stats struct {
	ID             string
	State          State
	Format         Format
	FramesComposed uint64
	FramesBlank    uint64
	FramesRepeated uint64
	EncoderErrors  uint64
	Segments       int
	Bytes          int
	Elapsed        time.Duration // recording time excluding pauses
	Size           image.Point
}

// StateListener observes transitions. Listeners run on the session goroutine
// and must not call back into the session.
type StateListener func(prev, next State)

// Session is one recording lifecycle. All state lives on a single actor
// goroutine; public methods send a request and wait for its reply.
type Session struct {
	id      uuid.UUID
	opts    Options
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	events    chan any
	done      chan struct{}
	closeOnce sync.Once
	stats     atomic.Pointer[Stats]

	// owned by the actor goroutine
	state       State
	segments    [][]byte
	size        image.Point
	frameStep   time.Duration
	composed    uint64
	blank       uint64
	repeated    uint64
	encErrors   uint64
	bytes       int
	lastSeq     uint64
	startedAt   time.Time
	pausedAt    time.Time
	pausedTotal time.Duration
	stoppedAt   time.Time
	encoderOpen bool
	listeners   []StateListener
	warn        rate.Sometimes
}

type (
	evtControl struct {
		ev    Event
		reply chan error
	}
	evtTick struct {
		now   time.Time
		reply chan bool
	}
	evtFinalize struct {
		reply chan finalizeResult
	}
	evtDiscard     struct{ reply chan struct{} }
	evtAddListener struct{ l StateListener }
)

type finalizeResult struct {
	art artifact.Artifact
	err error
}

// NewSession validates collaborators and starts the actor in Idle.
func NewSession(opts Options) (*Session, error) {
	if opts.Source == nil || opts.Overlay == nil || opts.Compositor == nil || opts.Encoder == nil {
		return nil, errors.New("recording: session needs source, overlay, compositor and encoder")
	}
	if opts.FPS <= 0 {
		opts.FPS = 30
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	s := &Session{
		id:        uuid.New(),
		opts:      opts,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		now:       now,
		events:    make(chan any, 16),
		done:      make(chan struct{}),
		state:     StateIdle,
		frameStep: time.Duration(float64(time.Second) / opts.FPS),
		warn:      rate.Sometimes{First: 1, Interval: 5 * time.Second},
	}
	s.publish()
	s.metrics.SessionOpened()
	go func() {
		defer s.closeOnce.Do(func() { close(s.done) })
		defer func() {
			if r := recover(); r != nil {
				if s.logger != nil {
					s.logger.Error("recording session panic", "error", r, "stack", string(debug.Stack()))
				}
				s.shutdown()
			}
		}()
		s.loop()
	}()
	return s, nil
}

// loop publishes stats before replying so callers observe their own effect.
func (s *Session) loop() {
	for {
		ev := <-s.events
		switch e := ev.(type) {
		case evtControl:
			err := s.handleControl(e.ev)
			s.publish()
			e.reply <- err
		case evtTick:
			ok := s.handleTick(e.now)
			s.publish()
			e.reply <- ok
		case evtFinalize:
			res := s.handleFinalize()
			e.reply <- res
			if res.err == nil {
				return
			}
		case evtDiscard:
			s.shutdown()
			close(e.reply)
			return
		case evtAddListener:
			s.listeners = append(s.listeners, e.l)
		}
	}
}

func (s *Session) handleControl(ev Event) error {
	target, ok := next(s.state, ev)
	if !ok {
		if s.logger != nil {
			s.logger.Debug("recording.rejected", "session", s.id.String(), "state", s.state.String(), "event", string(ev))
		}
		return &TransitionError{From: s.state, Event: ev}
	}
	now := s.now()
	switch ev {
	case EventStart:
		if !s.opts.Source.Live() {
			return fmt.Errorf("recording: start: %w", capture.ErrSourceClosed)
		}
		size := s.streamSize()
		if size.X <= 0 || size.Y <= 0 {
			return fmt.Errorf("recording: start: unknown frame size: %w", capture.ErrDeviceUnavailable)
		}
		info := StreamInfo{
			Width:      size.X,
			Height:     size.Y,
			FPS:        s.opts.FPS,
			Audio:      s.opts.Audio,
			AudioInput: s.opts.Source.Info().AudioInput,
		}
		if err := s.opts.Encoder.Begin(info); err != nil {
			return fmt.Errorf("recording: begin %s: %w", s.opts.Encoder.Format(), err)
		}
		s.encoderOpen = true
		s.size = size
		s.startedAt = now
	case EventPause:
		s.opts.Encoder.Pause()
		s.pausedAt = now
	case EventResume:
		s.opts.Encoder.Resume()
		s.pausedTotal += now.Sub(s.pausedAt)
		s.pausedAt = time.Time{}
	case EventStop:
		if s.state == StatePaused {
			s.pausedTotal += now.Sub(s.pausedAt)
			s.pausedAt = time.Time{}
			s.opts.Encoder.Resume()
		}
		s.stoppedAt = now
		// The tail is committed as part of the stop transition, before the
		// state leaves Recording/Paused.
		tail, err := s.opts.Encoder.Flush()
		s.appendChunk(tail)
		closeErr := s.opts.Encoder.Close()
		s.encoderOpen = false
		s.transition(target)
		if err != nil {
			s.encErrors++
			s.metrics.IncEncoderErrors()
			return fmt.Errorf("recording: flush: %w", err)
		}
		if closeErr != nil {
			return fmt.Errorf("recording: close encoder: %w", closeErr)
		}
		return nil
	}
	s.transition(target)
	return nil
}

// streamSize prefers the live frame size and falls back to the device info.
func (s *Session) streamSize() image.Point {
	if snap := s.opts.Source.LatestFrame(); snap.Image != nil {
		return snap.Image.Bounds().Size()
	}
	info := s.opts.Source.Info()
	return image.Pt(info.Width, info.Height)
}

func (s *Session) transition(next State) {
	prev := s.state
	if prev == next {
		return
	}
	s.state = next
	s.metrics.IncTransition(prev.String(), next.String())
	if s.logger != nil {
		s.logger.Info("recording state transition", "session", s.id.String(), "from", prev.String(), "to", next.String())
	}
	for _, l := range s.listeners {
		l(prev, next)
	}
}

// handleTick composes and encodes exactly one frame while Recording. It
// reports whether the host should keep scheduling ticks.
func (s *Session) handleTick(now time.Time) bool {
	switch s.state {
	case StateStopped:
		return false
	case StateIdle, StatePaused:
		return true
	}
	snap := s.opts.Source.LatestFrame()
	blank := snap.Image == nil || !s.opts.Source.Live()
	repeated := !blank && snap.Sequence == s.lastSeq
	var frame image.Image
	if !blank {
		frame = snap.Image
		s.lastSeq = snap.Sequence
	}
	spec := s.opts.Overlay.Current(now)
	surface := s.opts.Compositor.ComposeInto(s.size, frame, spec)
	pts := time.Duration(s.composed) * s.frameStep
	chunk, err := s.opts.Encoder.Encode(surface, pts)
	capture.RecycleFrame(surface)
	s.composed++
	if blank {
		s.blank++
	}
	if repeated {
		s.repeated++
	}
	s.metrics.IncFramesComposed(blank, repeated)
	if err != nil {
		s.encErrors++
		s.metrics.IncEncoderErrors()
		s.warn.Do(func() {
			if s.logger != nil {
				s.logger.Warn("recording encode failed", "session", s.id.String(), "error", err, "errors", s.encErrors)
			}
		})
		return true
	}
	s.appendChunk(chunk)
	return true
}

func (s *Session) appendChunk(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	s.segments = append(s.segments, chunk)
	s.bytes += len(chunk)
	s.metrics.AddEncoderBytes(len(chunk))
}

func (s *Session) handleFinalize() finalizeResult {
	if s.state != StateStopped {
		return finalizeResult{err: &TransitionError{From: s.state, Event: EventFinalize}}
	}
	format := s.opts.Encoder.Format()
	payload := bytes.Join(s.segments, nil)
	art := artifact.Artifact{
		Kind:          artifact.KindVideo,
		Payload:       payload,
		SuggestedName: SuggestedVideoStem + format.Extension,
		MIME:          format.MIME,
		CreatedAt:     s.stoppedAt,
	}
	if s.logger != nil {
		s.logger.Info("recording finalized",
			"session", s.id.String(),
			"format", format.String(),
			"frames", s.composed,
			"segments", len(s.segments),
			"bytes", len(payload),
		)
	}
	s.metrics.IncArtifacts(artifact.KindVideo.String())
	s.publish()
	s.shutdown()
	return finalizeResult{art: art}
}

// shutdown releases the encoder and the segment buffer. Runs once, on the
// actor goroutine, right before it exits.
func (s *Session) shutdown() {
	if s.encoderOpen {
		_ = s.opts.Encoder.Close()
		s.encoderOpen = false
	}
	s.segments = nil
	s.metrics.SessionClosed()
}

func (s *Session) publish() {
	st := Stats{
		ID:             s.id.String(),
		State:          s.state,
		Format:         s.opts.Encoder.Format(),
		FramesComposed: s.composed,
		FramesBlank:    s.blank,
		FramesRepeated: s.repeated,
		EncoderErrors:  s.encErrors,
		Segments:       len(s.segments),
		Bytes:          s.bytes,
		Size:           s.size,
	}
	if !s.startedAt.IsZero() {
		end := s.now()
		switch s.state {
		case StatePaused:
			end = s.pausedAt
		case StateStopped:
			end = s.stoppedAt
		}
		st.Elapsed = end.Sub(s.startedAt) - s.pausedTotal
	}
	s.stats.Store(&st)
}

func (s *Session) control(ev Event) error {
	reply := make(chan error, 1)
	select {
	case s.events <- evtControl{ev: ev, reply: reply}:
	case <-s.done:
		return ErrSessionDiscarded
	}
	select {
	case err := <-reply:
		return err
	case <-s.done:
		return ErrSessionDiscarded
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id.String() }

// State returns the last published state without a round trip.
func (s *Session) State() State { return s.stats.Load().State }

// Stats returns the last published counters.
func (s *Session) Stats() Stats { return *s.stats.Load() }

// Done is closed once the session is finalized or discarded.
func (s *Session) Done() <-chan struct{} { return s.done }

// Start begins recording. It needs a live source and a working encoder.
func (s *Session) Start() error { return s.control(EventStart) }

// Pause suspends frame production; ticks become no-ops.
func (s *Session) Pause() error { return s.control(EventPause) }

// Resume continues recording at the next tick.
func (s *Session) Resume() error { return s.control(EventResume) }

// Stop halts recording and flushes the encoder. Stopped is terminal.
func (s *Session) Stop() error { return s.control(EventStop) }

// Tick is the host frame clock signal. It returns false once the session is
// stopped or gone, telling the host to stop scheduling.
func (s *Session) Tick(now time.Time) bool {
	reply := make(chan bool, 1)
	select {
	case s.events <- evtTick{now: now, reply: reply}:
	case <-s.done:
		return false
	}
	select {
	case ok := <-reply:
		return ok
	case <-s.done:
		return false
	}
}

// Finalize joins the collected chunks into exactly one artifact and discards
// the session. It fails before Stop, and with ErrSessionDiscarded on any
// later call.
func (s *Session) Finalize() (artifact.Artifact, error) {
	reply := make(chan finalizeResult, 1)
	select {
	case s.events <- evtFinalize{reply: reply}:
	case <-s.done:
		return artifact.Artifact{}, ErrSessionDiscarded
	}
	select {
	case res := <-reply:
		return res.art, res.err
	case <-s.done:
		// the actor may have replied right before exiting
		select {
		case res := <-reply:
			return res.art, res.err
		default:
			return artifact.Artifact{}, ErrSessionDiscarded
		}
	}
}

// Discard abandons the session without producing an artifact.
func (s *Session) Discard() {
	reply := make(chan struct{})
	select {
	case s.events <- evtDiscard{reply: reply}:
		<-s.done
	case <-s.done:
	}
}

// AddListener registers a transition observer.
func (s *Session) AddListener(l StateListener) {
	select {
	case s.events <- evtAddListener{l: l}:
	case <-s.done:
	}
}
