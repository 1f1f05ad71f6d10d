package artifact

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirSink_NeverOverwrites(t *testing.T) {
	dir := t.TempDir()
	fixed := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	sink := DirSink{Dir: filepath.Join(dir, "out"), Now: func() time.Time { return fixed }}

	a := Artifact{Kind: KindImage, Payload: []byte("one"), SuggestedName: "captured_image.png"}
	p1, err := sink.Deliver(a)
	require.NoError(t, err)
	a.Payload = []byte("two")
	p2, err := sink.Deliver(a)
	require.NoError(t, err)

	assert.Equal(t, "20240601-080000_captured_image.png", filepath.Base(p1))
	assert.Equal(t, "20240601-080000_captured_image-1.png", filepath.Base(p2))
	b1, _ := os.ReadFile(p1)
	b2, _ := os.ReadFile(p2)
	assert.Equal(t, "one", string(b1))
	assert.Equal(t, "two", string(b2))
}

func TestDirSink_StripsDirectories(t *testing.T) {
	dir := t.TempDir()
	p, err := DirSink{Dir: dir}.Deliver(Artifact{Kind: KindVideo, Payload: []byte{1}, SuggestedName: "../../video_recording.mp4"})
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(p))
}

func TestDirSink_RejectsEmptyPayload(t *testing.T) {
	_, err := DirSink{Dir: t.TempDir()}.Deliver(Artifact{Kind: KindImage})
	assert.Error(t, err)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "image", KindImage.String())
	assert.Equal(t, "video", KindVideo.String())
}
