package recording

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/soocke/fieldcam-go/domain/capture"
	"github.com/soocke/fieldcam-go/domain/compose"
	"github.com/soocke/fieldcam-go/domain/overlay"
	"github.com/soocke/fieldcam-go/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type fakeSource struct {
	live atomic.Bool
	seq  atomic.Uint64
	img  *image.RGBA
}

func newFakeSource(w, h int) *fakeSource {
	s := &fakeSource{img: image.NewRGBA(image.Rect(0, 0, w, h))}
	s.live.Store(true)
	return s
}

func (s *fakeSource) LatestFrame() capture.FrameSnapshot {
	return capture.FrameSnapshot{Image: s.img, Sequence: s.seq.Add(1), CapturedAt: time.Now()}
}
func (s *fakeSource) Live() bool { return s.live.Load() }
func (s *fakeSource) Info() capture.DeviceInfo {
	return capture.DeviceInfo{ID: "fake", Width: s.img.Rect.Dx(), Height: s.img.Rect.Dy()}
}

type fakeOverlay struct{ calls atomic.Int32 }

func (o *fakeOverlay) Current(now time.Time) overlay.Spec {
	o.calls.Add(1)
	return overlay.Spec{ProductName: "Rice", FarmerName: "A.Kumar", Timestamp: now}
}

// countingComposer hands out plain surfaces and counts compose calls.
type countingComposer struct{ n atomic.Int32 }

func (c *countingComposer) ComposeInto(size image.Point, frame image.Image, spec overlay.Spec) *image.RGBA {
	c.n.Add(1)
	return image.NewRGBA(image.Rectangle{Max: size})
}

// recordingEncoder records calls and emits one byte per frame.
type recordingEncoder struct {
	mu       sync.Mutex
	begun    bool
	encoded  int
	pauses   int
	flushed  bool
	closed   int
	failNext bool
	beginErr error
}

func (e *recordingEncoder) Format() Format { return Format{Container: "test", Codec: "raw", MIME: "video/x-test", Extension: ".bin"} }
func (e *recordingEncoder) Begin(StreamInfo) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.beginErr != nil {
		return e.beginErr
	}
	e.begun = true
	return nil
}
func (e *recordingEncoder) Encode(frame *image.RGBA, pts time.Duration) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.failNext {
		e.failNext = false
		return nil, errors.New("boom")
	}
	e.encoded++
	return []byte{byte(e.encoded)}, nil
}
func (e *recordingEncoder) Pause()  { e.mu.Lock(); e.pauses++; e.mu.Unlock() }
func (e *recordingEncoder) Resume() {}
func (e *recordingEncoder) Flush() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.flushed = true
	return []byte("tail"), nil
}
func (e *recordingEncoder) Close() error { e.mu.Lock(); e.closed++; e.mu.Unlock(); return nil }

func newTestSession(t *testing.T, enc Encoder, src FrameSource) (*Session, *countingComposer) {
	t.Helper()
	comp := &countingComposer{}
	s, err := NewSession(Options{
		Source:     src,
		Overlay:    &fakeOverlay{},
		Compositor: comp,
		Encoder:    enc,
		Logger:     discardLogger(),
		Metrics:    metrics.New(),
	})
	require.NoError(t, err)
	return s, comp
}

func TestSession_PauseFromIdleIsPreconditionFailure(t *testing.T) {
	s, _ := newTestSession(t, &recordingEncoder{}, newFakeSource(8, 8))
	defer s.Discard()

	err := s.Pause()
	require.ErrorIs(t, err, ErrInvalidTransition)
	var te *TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, StateIdle, te.From)
	assert.Equal(t, EventPause, te.Event)
	assert.Equal(t, StateIdle, s.State())

	assert.ErrorIs(t, s.Resume(), ErrInvalidTransition)
	assert.ErrorIs(t, s.Stop(), ErrInvalidTransition)
	assert.Equal(t, StateIdle, s.State())
}

func TestSession_StartRequiresLiveSource(t *testing.T) {
	src := newFakeSource(8, 8)
	src.live.Store(false)
	enc := &recordingEncoder{}
	s, _ := newTestSession(t, enc, src)
	defer s.Discard()

	assert.ErrorIs(t, s.Start(), capture.ErrSourceClosed)
	assert.Equal(t, StateIdle, s.State())
	assert.False(t, enc.begun)
}

func TestSession_BeginFailureLeavesIdle(t *testing.T) {
	s, _ := newTestSession(t, &recordingEncoder{beginErr: errors.New("no codec")}, newFakeSource(8, 8))
	defer s.Discard()
	require.Error(t, s.Start())
	assert.Equal(t, StateIdle, s.State())
}

func TestSession_ComposedCountOnlyGrowsWhileRecording(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	events := []func(*Session) error{(*Session).Pause, (*Session).Resume}

	for round := 0; round < 20; round++ {
		enc := &recordingEncoder{}
		s, comp := newTestSession(t, enc, newFakeSource(8, 8))
		now := time.Unix(0, 0)

		// ticks before start never compose
		require.True(t, s.Tick(now))
		require.Equal(t, int32(0), comp.n.Load())
		require.NoError(t, s.Start())

		for step := 0; step < 40; step++ {
			if rng.Intn(3) == 0 {
				_ = events[rng.Intn(len(events))](s)
			}
			state := s.State()
			before := comp.n.Load()
			now = now.Add(33 * time.Millisecond)
			require.True(t, s.Tick(now))
			after := comp.n.Load()
			if state == StateRecording {
				require.Equal(t, before+1, after, "round %d step %d", round, step)
			} else {
				require.Equal(t, before, after, "round %d step %d state %s", round, step, state)
			}
		}
		require.NoError(t, s.Stop())
		require.False(t, s.Tick(now))
		require.Equal(t, uint64(comp.n.Load()), s.Stats().FramesComposed)
		s.Discard()
	}
}

func TestSession_StopThenFinalizeYieldsOneArtifact(t *testing.T) {
	enc := &recordingEncoder{}
	s, _ := newTestSession(t, enc, newFakeSource(8, 8))

	require.NoError(t, s.Start())
	require.True(t, s.Tick(time.Now()))
	require.True(t, s.Tick(time.Now()))
	require.NoError(t, s.Pause())
	require.NoError(t, s.Stop())
	assert.Equal(t, StateStopped, s.State())
	assert.True(t, enc.flushed)
	assert.Equal(t, 1, enc.closed)

	art, err := s.Finalize()
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 't', 'a', 'i', 'l'}, art.Payload)
	assert.Equal(t, "video_recording.bin", art.SuggestedName)
	assert.Equal(t, "video/x-test", art.MIME)

	_, err = s.Finalize()
	assert.ErrorIs(t, err, ErrSessionDiscarded)
	assert.ErrorIs(t, s.Start(), ErrSessionDiscarded)
	assert.False(t, s.Tick(time.Now()))
	<-s.Done()
}

func TestSession_FinalizeBeforeStopFails(t *testing.T) {
	s, _ := newTestSession(t, &recordingEncoder{}, newFakeSource(8, 8))
	defer s.Discard()
	require.NoError(t, s.Start())
	_, err := s.Finalize()
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StateRecording, s.State())
}

func TestSession_StartFromStoppedRejected(t *testing.T) {
	s, _ := newTestSession(t, &recordingEncoder{}, newFakeSource(8, 8))
	defer s.Discard()
	require.NoError(t, s.Start())
	require.NoError(t, s.Stop())
	assert.ErrorIs(t, s.Start(), ErrInvalidTransition)
	assert.Equal(t, StateStopped, s.State())
}

func TestSession_EncoderErrorDoesNotAbort(t *testing.T) {
	enc := &recordingEncoder{failNext: true}
	s, _ := newTestSession(t, enc, newFakeSource(8, 8))
	defer s.Discard()
	require.NoError(t, s.Start())
	require.True(t, s.Tick(time.Now()))
	require.True(t, s.Tick(time.Now()))
	st := s.Stats()
	assert.Equal(t, uint64(1), st.EncoderErrors)
	assert.Equal(t, 1, st.Segments)
	assert.Equal(t, StateRecording, st.State)
}

func TestSession_ListenerSeesTransitions(t *testing.T) {
	s, _ := newTestSession(t, &recordingEncoder{}, newFakeSource(8, 8))
	defer s.Discard()
	var mu sync.Mutex
	var seen []State
	s.AddListener(func(prev, next State) {
		mu.Lock()
		seen = append(seen, next)
		mu.Unlock()
	})
	require.NoError(t, s.Start())
	require.NoError(t, s.Pause())
	require.NoError(t, s.Resume())
	require.NoError(t, s.Stop())
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []State{StateRecording, StatePaused, StateRecording, StateStopped}, seen)
}

func TestSession_ElapsedExcludesPauses(t *testing.T) {
	var mu sync.Mutex
	clock := time.Unix(100, 0)
	now := func() time.Time { mu.Lock(); defer mu.Unlock(); return clock }
	advance := func(d time.Duration) { mu.Lock(); clock = clock.Add(d); mu.Unlock() }

	s, err := NewSession(Options{
		Source: newFakeSource(8, 8), Overlay: &fakeOverlay{}, Compositor: &countingComposer{},
		Encoder: &recordingEncoder{}, Now: now,
	})
	require.NoError(t, err)
	defer s.Discard()

	require.NoError(t, s.Start())
	advance(2 * time.Second)
	require.NoError(t, s.Pause())
	advance(5 * time.Second)
	require.NoError(t, s.Resume())
	advance(time.Second)
	require.NoError(t, s.Stop())
	assert.Equal(t, 3*time.Second, s.Stats().Elapsed)
}

func TestRun_StopsWhenSessionStops(t *testing.T) {
	s, comp := newTestSession(t, &recordingEncoder{}, newFakeSource(8, 8))
	defer s.Discard()
	clock := NewManualClock(time.Unix(0, 0))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	errc := make(chan error, 1)
	go func() { errc <- Run(ctx, s, clock) }()

	require.NoError(t, s.Start())
	for i := 0; i < 3; i++ {
		require.True(t, clock.Advance(ctx, 33*time.Millisecond))
	}
	require.Eventually(t, func() bool { return comp.n.Load() == 3 }, 2*time.Second, time.Millisecond)
	require.NoError(t, s.Stop())
	require.True(t, clock.Advance(ctx, 33*time.Millisecond))
	require.NoError(t, <-errc)
	assert.Equal(t, int32(3), comp.n.Load())
}

func TestRun_CancelledContext(t *testing.T) {
	s, _ := newTestSession(t, &recordingEncoder{}, newFakeSource(8, 8))
	defer s.Discard()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Run(ctx, s, NewTickerClock(30)), context.Canceled)
}

func TestSession_MJPEGEndToEnd(t *testing.T) {
	comp := compose.MustNew()
	enc := MJPEGFactory{Quality: 70}.New()
	s, err := NewSession(Options{
		Source:     newFakeSource(64, 48),
		Overlay:    &fakeOverlay{},
		Compositor: comp,
		Encoder:    enc,
	})
	require.NoError(t, err)

	require.NoError(t, s.Start())
	for i := 0; i < 3; i++ {
		s.Tick(time.Now())
	}
	require.NoError(t, s.Stop())
	art, err := s.Finalize()
	require.NoError(t, err)
	assert.Equal(t, "video_recording.mjpeg", art.SuggestedName)
	assert.Equal(t, 3, bytes.Count(art.Payload, []byte{0xFF, 0xD8}))
	img, err := jpeg.Decode(bytes.NewReader(art.Payload))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 64, 48), img.Bounds())
}

func TestRegistry_Negotiate(t *testing.T) {
	r := NewRegistry(MJPEGFactory{}, FFmpegFactory{Bin: "/nonexistent/ffmpeg", profile: ffmpegProfiles[0]})

	f, err := r.Negotiate("MJPEG", "mjpeg")
	require.NoError(t, err)
	assert.Equal(t, MJPEGFormat, f.Format())

	_, err = r.Negotiate("avi", "xvid")
	assert.ErrorIs(t, err, ErrEncoderUnsupported)

	_, err = r.Negotiate("mp4", "h264")
	assert.ErrorIs(t, err, ErrEncoderUnsupported)
	assert.Equal(t, []string{"mjpeg/mjpeg", "mp4/h264"}, r.Formats())
}

func TestRegistry_DefaultCodecByContainer(t *testing.T) {
	r := NewRegistry(append([]EncoderFactory{MJPEGFactory{}}, FFmpegFactories("/nonexistent/ffmpeg", nil)...)...)

	for container, want := range map[string]string{"webm": "vp8", "MP4": "h264", "mkv": "h264", "mjpeg": "mjpeg"} {
		got, ok := r.DefaultCodec(container)
		require.True(t, ok, container)
		assert.Equal(t, want, got, container)
	}
	_, ok := r.DefaultCodec("avi")
	assert.False(t, ok)

	f, err := r.Negotiate("mjpeg", "")
	require.NoError(t, err)
	assert.Equal(t, MJPEGFormat, f.Format())

	// Resolution picks the pair; availability is still checked.
	_, err = r.Negotiate("webm", "")
	assert.ErrorIs(t, err, ErrEncoderUnsupported)
	assert.Contains(t, err.Error(), "webm/vp8")
}
