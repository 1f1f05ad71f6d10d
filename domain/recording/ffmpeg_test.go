package recording

import (
	"image"
	"strings"
	"testing"

	"github.com/soocke/fieldcam-go/domain/capture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFFmpegArgs(t *testing.T) {
	facts := FFmpegFactories("ffmpeg", nil)
	require.Len(t, facts, 3)
	enc := facts[0].New().(*FFmpegEncoder)

	args := strings.Join(enc.Args(StreamInfo{Width: 640, Height: 480, FPS: 30}), " ")
	assert.Contains(t, args, "-f rawvideo -pix_fmt rgba -s 640x480 -framerate 30 -i pipe:0")
	assert.Contains(t, args, "-c:v libx264")
	assert.Contains(t, args, "frag_keyframe")
	assert.True(t, strings.HasSuffix(args, "pipe:1"))
	assert.NotContains(t, args, "-c:a")

	args = strings.Join(enc.Args(StreamInfo{
		Width: 640, Height: 480, FPS: 30,
		Audio:      capture.DefaultAudioConstraints(),
		AudioInput: "pulse:default",
	}), " ")
	assert.Contains(t, args, "-f pulse -i default -ar 44100 -af afftdn")
	assert.Contains(t, args, "-c:a aac")
}

func TestFFmpegBeginValidatesSize(t *testing.T) {
	enc := FFmpegFactory{profile: ffmpegProfiles[0]}.New()
	assert.Error(t, enc.Begin(StreamInfo{Width: 641, Height: 480}))
	assert.Error(t, enc.Begin(StreamInfo{}))
	_, err := enc.Encode(image.NewRGBA(image.Rect(0, 0, 2, 2)), 0)
	assert.Error(t, err)
	assert.NoError(t, enc.Close())
}

func TestMJPEGEncoderPauseSkipsFrames(t *testing.T) {
	enc := &MJPEGEncoder{}
	_, err := enc.Encode(image.NewRGBA(image.Rect(0, 0, 4, 4)), 0)
	require.Error(t, err)

	require.NoError(t, enc.Begin(StreamInfo{Width: 4, Height: 4}))
	chunk, err := enc.Encode(image.NewRGBA(image.Rect(0, 0, 4, 4)), 0)
	require.NoError(t, err)
	assert.NotEmpty(t, chunk)

	enc.Pause()
	chunk, err = enc.Encode(image.NewRGBA(image.Rect(0, 0, 4, 4)), 0)
	require.NoError(t, err)
	assert.Nil(t, chunk)
	enc.Resume()
	tail, err := enc.Flush()
	require.NoError(t, err)
	assert.Nil(t, tail)
	require.NoError(t, enc.Close())
}
