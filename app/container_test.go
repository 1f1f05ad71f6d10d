package app

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/soocke/fieldcam-go/config"
	"github.com/soocke/fieldcam-go/domain/artifact"
	"github.com/soocke/fieldcam-go/domain/capture"
	"github.com/soocke/fieldcam-go/domain/overlay"
	"github.com/soocke/fieldcam-go/domain/recording"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testConfig(t *testing.T) *config.Config {
	cfg := config.DefaultConfig()
	cfg.OutputDir = t.TempDir()
	cfg.Width, cfg.Height = 64, 48
	cfg.ProductName = "Rice"
	cfg.FarmerName = "A.Kumar"
	return cfg
}

func buildStudio(t *testing.T, cfg *config.Config, opts ...Option) *Studio {
	t.Helper()
	s, err := Build(cfg, nil, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func openAndWait(t *testing.T, s *Studio) *capture.MediaSource {
	t.Helper()
	src, err := s.OpenSource(context.Background())
	require.NoError(t, err)
	require.Eventually(t, func() bool { return !src.LatestFrame().Empty() }, 2*time.Second, 5*time.Millisecond)
	return src
}

func TestBuildAcceptsDefaultConfig(t *testing.T) {
	s, err := Build(config.DefaultConfig(), nil)
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestBuildRejectsUnknownDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.Driver = "floppy"
	_, err := Build(cfg, nil)
	assert.ErrorIs(t, err, capture.ErrDeviceUnavailable)
}

func TestTakePhotoWritesFile(t *testing.T) {
	cfg := testConfig(t)
	s := buildStudio(t, cfg)
	openAndWait(t, s)

	art, path, err := s.TakePhoto(context.Background())
	require.NoError(t, err)
	assert.Equal(t, artifact.KindImage, art.Kind)
	assert.Equal(t, "captured_image.png", art.SuggestedName)
	assert.True(t, strings.HasSuffix(path, "_captured_image.png"), path)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(len(art.Payload)), info.Size())
	assert.Equal(t, cfg.OutputDir, filepath.Dir(path))
}

func TestTakePhotoWithoutSource(t *testing.T) {
	s := buildStudio(t, testConfig(t))
	_, _, err := s.TakePhoto(context.Background())
	assert.ErrorIs(t, err, capture.ErrSourceClosed)
}

func TestTakePhotoRequiresFix(t *testing.T) {
	cfg := testConfig(t)
	s := buildStudio(t, cfg, WithLocation(overlay.FailingLocation{}))
	openAndWait(t, s)

	_, _, err := s.TakePhoto(context.Background())
	assert.ErrorIs(t, err, overlay.ErrLocationUnavailable)

	entries, err := os.ReadDir(cfg.OutputDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRecordingLifecycle(t *testing.T) {
	cfg := testConfig(t)
	var delivered []artifact.Artifact
	s := buildStudio(t, cfg, WithSink(artifact.SinkFunc(func(a artifact.Artifact) (string, error) {
		delivered = append(delivered, a)
		return "mem://" + a.SuggestedName, nil
	})))
	openAndWait(t, s)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	clock := recording.NewManualClock(time.Unix(0, 0))
	sess, err := s.StartRecording(ctx, clock)
	require.NoError(t, err)
	assert.True(t, s.Recording())
	assert.Equal(t, recording.StateRecording, sess.State())

	_, err = s.StartRecording(ctx, clock)
	assert.ErrorIs(t, err, ErrRecordingActive)
	_, err = s.OpenSource(ctx)
	assert.ErrorIs(t, err, ErrRecordingActive)

	for i := 0; i < 3; i++ {
		require.True(t, clock.Advance(ctx, 33*time.Millisecond))
	}
	require.Eventually(t, func() bool { return sess.Stats().FramesComposed == 3 }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.PauseRecording())
	require.True(t, clock.Advance(ctx, 33*time.Millisecond))
	require.NoError(t, s.ResumeRecording())

	art, path, err := s.StopRecording()
	require.NoError(t, err)
	assert.Equal(t, "mem://video_recording.mjpeg", path)
	assert.Equal(t, artifact.KindVideo, art.Kind)
	assert.Equal(t, "video/x-motion-jpeg", art.MIME)
	assert.NotEmpty(t, art.Payload)
	require.Len(t, delivered, 1)
	assert.False(t, s.Recording())

	_, _, err = s.StopRecording()
	assert.ErrorIs(t, err, ErrNoRecording)
	assert.ErrorIs(t, s.PauseRecording(), ErrNoRecording)
}

func TestStartRecordingNegotiatesFirst(t *testing.T) {
	cfg := testConfig(t)
	cfg.Container, cfg.Codec = "avi", "divx"
	s := buildStudio(t, cfg)
	openAndWait(t, s)

	_, err := s.StartRecording(context.Background(), nil)
	assert.ErrorIs(t, err, recording.ErrEncoderUnsupported)
	assert.False(t, s.Recording())
}

func TestStartRecordingNeedsSource(t *testing.T) {
	s := buildStudio(t, testConfig(t))
	_, err := s.StartRecording(context.Background(), nil)
	assert.ErrorIs(t, err, capture.ErrSourceClosed)
}

func TestSwitchFacingReopens(t *testing.T) {
	s := buildStudio(t, testConfig(t))
	first := openAndWait(t, s)
	assert.Equal(t, capture.FacingEnvironment, first.Info().Facing)

	second, err := s.SwitchFacing(context.Background())
	require.NoError(t, err)
	assert.False(t, first.Live())
	assert.Equal(t, capture.FacingUser, second.Info().Facing)
	assert.Same(t, second, s.Capture.Active())
}

func TestZoomAndPreview(t *testing.T) {
	s := buildStudio(t, testConfig(t))
	_, _, err := s.Zoom(2)
	assert.ErrorIs(t, err, capture.ErrSourceClosed)

	openAndWait(t, s)
	level, ok, err := s.Zoom(2)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.InDelta(t, 2.0, level, 1e-9)

	img := s.Preview(image.Point{})
	require.NotNil(t, img)
	assert.Equal(t, 64, img.Bounds().Dx())
	capture.RecycleFrame(img)
}

func TestApplyConfigUpdatesLabels(t *testing.T) {
	s := buildStudio(t, testConfig(t))
	next := testConfig(t)
	next.ProductName = "Wheat"
	next.Caption = "FARM.CO"
	s.ApplyConfig(next)

	spec := s.Overlay.Now()
	assert.Equal(t, "Wheat", spec.ProductName)
	assert.Equal(t, "A.Kumar", spec.FarmerName)
	assert.Equal(t, "FARM.CO", spec.Caption)
}

func TestTickRecordingHostClock(t *testing.T) {
	cfg := testConfig(t)
	var delivered int
	s := buildStudio(t, cfg, WithSink(artifact.SinkFunc(func(a artifact.Artifact) (string, error) {
		delivered++
		return "mem://" + a.SuggestedName, nil
	})))
	assert.False(t, s.TickRecording(time.Now()))
	assert.Equal(t, recording.StateIdle, s.RecordingState())
	openAndWait(t, s)

	sess, err := s.StartRecording(context.Background(), nil)
	require.NoError(t, err)
	now := time.Unix(100, 0)
	for i := 0; i < 4; i++ {
		now = now.Add(50 * time.Millisecond)
		assert.True(t, s.TickRecording(now))
	}
	assert.Equal(t, uint64(4), sess.Stats().FramesComposed)

	require.NoError(t, s.PauseRecording())
	assert.Equal(t, recording.StatePaused, s.RecordingState())
	s.TickRecording(now.Add(50 * time.Millisecond))
	assert.Equal(t, uint64(4), sess.Stats().FramesComposed)
	require.NoError(t, s.ResumeRecording())

	_, _, err = s.StopRecording()
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)
	assert.False(t, s.TickRecording(now))
}

// tailFailFactory builds MJPEG encoders whose final flush fails.
type tailFailFactory struct{ recording.MJPEGFactory }

func (f tailFailFactory) New() recording.Encoder { return tailFailEncoder{f.MJPEGFactory.New()} }

type tailFailEncoder struct{ recording.Encoder }

var errDiskFull = errors.New("disk full")

func (tailFailEncoder) Flush() ([]byte, error) { return nil, errDiskFull }

func TestStopRecordingKeepsFramesWhenFlushFails(t *testing.T) {
	cfg := testConfig(t)
	s := buildStudio(t, cfg)
	s.Encoders = recording.NewRegistry(tailFailFactory{recording.MJPEGFactory{Quality: 80}})
	openAndWait(t, s)

	_, err := s.StartRecording(context.Background(), nil)
	require.NoError(t, err)
	now := time.Unix(100, 0)
	for i := 0; i < 3; i++ {
		now = now.Add(50 * time.Millisecond)
		s.TickRecording(now)
	}

	art, path, err := s.StopRecording()
	assert.ErrorIs(t, err, errDiskFull)
	assert.NotEmpty(t, art.Payload)
	require.NotEmpty(t, path)
	info, statErr := os.Stat(path)
	require.NoError(t, statErr)
	assert.Equal(t, int64(len(art.Payload)), info.Size())
	assert.False(t, s.Recording())
}
