package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/soocke/fieldcam-go/domain/overlay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestValidateClamps(t *testing.T) {
	cfg := &Config{
		LogLevel:        "LOUD",
		Width:           -1,
		FPS:             500,
		Zoom:            0.2,
		Quality:         0,
		Latitude:        200,
		SnapshotFormat:  "JPG",
		SnapshotQuality: 101,
	}
	require.NoError(t, cfg.Validate())
	d := DefaultConfig()
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, d.Width, cfg.Width)
	assert.Equal(t, d.Height, cfg.Height)
	assert.Equal(t, d.FPS, cfg.FPS)
	assert.Equal(t, 1.0, cfg.Zoom)
	assert.Equal(t, d.Quality, cfg.Quality)
	assert.Equal(t, d.Latitude, cfg.Latitude)
	assert.Equal(t, "jpeg", cfg.SnapshotFormat)
	assert.Equal(t, d.SnapshotQuality, cfg.SnapshotQuality)
	assert.Equal(t, LocationStatic, cfg.LocationSource)
}

func TestDefaultSnapshotPolicyParses(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	p, err := overlay.ParsePolicy(cfg.SnapshotPolicy)
	require.NoError(t, err)
	assert.Equal(t, overlay.PolicyPerSnapshot, p)

	cfg.SnapshotPolicy = "Per-Snapshot"
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "per_snapshot", cfg.SnapshotPolicy)
}

func TestValidateRejects(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SnapshotPolicy = "hourly"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Facing = "sideways"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.LocationSource = LocationNMEA
	assert.Error(t, cfg.Validate())
	cfg.NMEAPath = "/dev/ttyACM0"
	assert.NoError(t, cfg.Validate())
}

func TestSaveLoadYAMLAndJSON(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"fieldcam.json", "fieldcam.yaml"} {
		cfg := DefaultConfig()
		cfg.ProductName = "Turmeric"
		cfg.FarmerName = "S. Devi"
		cfg.Driver = "v4l2"
		path := filepath.Join(dir, name)
		require.NoError(t, cfg.Save(path))

		got, err := Load(path)
		require.NoError(t, err, name)
		assert.Equal(t, cfg, got, name)
	}
}

func TestLoadBadFileReturnsDefaultsWithError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yml")
	require.NoError(t, os.WriteFile(path, []byte("width: [oops"), 0o644))
	cfg, err := Load(path)
	assert.Error(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestConstraints(t *testing.T) {
	cfg := DefaultConfig()
	c := cfg.Constraints()
	assert.Equal(t, 1280, c.Width)
	assert.True(t, c.FacingExact)
	assert.Nil(t, c.Audio)

	cfg.Audio = true
	require.NotNil(t, cfg.Constraints().Audio)
	assert.Equal(t, 44100, cfg.Constraints().Audio.SampleRate)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("FIELDCAM_PRODUCT_NAME", "Coffee")
	t.Setenv("FIELDCAM_WIDTH", "640")
	t.Setenv("FIELDCAM_HEIGHT", "not-a-number")
	t.Setenv("FIELDCAM_REQUIRE_FIX", "false")
	t.Setenv("FIELDCAM_LATITUDE", "-33.5")

	cfg := DefaultConfig()
	require.NoError(t, cfg.ApplyEnv())
	assert.Equal(t, "Coffee", cfg.ProductName)
	assert.Equal(t, 640, cfg.Width)
	assert.Equal(t, 720, cfg.Height)
	assert.False(t, cfg.RequireFix)
	assert.Equal(t, -33.5, cfg.Latitude)
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("FIELDCAM_FARMER_NAME=R. Patil\n"), 0o644))
	t.Setenv("FIELDCAM_FARMER_NAME", "")
	os.Unsetenv("FIELDCAM_FARMER_NAME")

	require.NoError(t, LoadEnv(filepath.Join(dir, "missing.env"), path))
	assert.Equal(t, "R. Patil", GetEnv("FARMER_NAME", ""))
}

func TestWatchReloadsOnWrite(t *testing.T) {
	old := WatchDebounce
	WatchDebounce = 20 * time.Millisecond
	t.Cleanup(func() { WatchDebounce = old })

	path := filepath.Join(t.TempDir(), "fieldcam.json")
	require.NoError(t, DefaultConfig().Save(path))

	ctx, cancel := context.WithCancel(context.Background())
	changes := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, nil, func(c *Config) {
			select {
			case changes <- c:
			default:
			}
		})
	}()

	cfg := DefaultConfig()
	cfg.ProductName = "Cardamom"
	require.Eventually(t, func() bool {
		_ = cfg.Save(path)
		select {
		case got := <-changes:
			return got.ProductName == "Cardamom"
		case <-time.After(100 * time.Millisecond):
			return false
		}
	}, 3*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
