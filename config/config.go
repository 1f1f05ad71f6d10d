package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/soocke/fieldcam-go/domain/capture"
	"github.com/soocke/fieldcam-go/domain/overlay"
	"gopkg.in/yaml.v3"
)

// Config holds runtime configuration for capture, overlay and export.
// Fields may be loaded from a JSON or YAML file, overridden by FIELDCAM_*
// environment variables and finally by command-line flags.
type Config struct {
	Debug     bool   `json:"debug" yaml:"debug"`
	LogLevel  string `json:"log_level" yaml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format"`
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// Overlay labels
	ProductName string `json:"product_name" yaml:"product_name"`
	FarmerName  string `json:"farmer_name" yaml:"farmer_name"`
	Caption     string `json:"caption" yaml:"caption"`
	LogoPath    string `json:"logo_path" yaml:"logo_path"`

	// Capture device
	Driver      string               `json:"driver" yaml:"driver"`
	Facing      string               `json:"facing" yaml:"facing"`
	FacingExact bool                 `json:"facing_exact" yaml:"facing_exact"`
	Width       int                  `json:"width" yaml:"width"`
	Height      int                  `json:"height" yaml:"height"`
	FPS         float64              `json:"fps" yaml:"fps"`
	Zoom        float64              `json:"zoom" yaml:"zoom"`
	Audio       bool                 `json:"audio" yaml:"audio"`
	V4L2Devices []capture.V4L2Device `json:"v4l2_devices,omitempty" yaml:"v4l2_devices,omitempty"`

	// Recording
	FFmpegPath string `json:"ffmpeg_path" yaml:"ffmpeg_path"`
	Container  string `json:"container" yaml:"container"`
	Codec      string `json:"codec" yaml:"codec"`
	Quality    int    `json:"quality" yaml:"quality"`

	// Location
	LocationSource         string  `json:"location_source" yaml:"location_source"`
	Latitude               float64 `json:"latitude" yaml:"latitude"`
	Longitude              float64 `json:"longitude" yaml:"longitude"`
	NMEAPath               string  `json:"nmea_path" yaml:"nmea_path"`
	LocationRefreshSeconds int     `json:"location_refresh_seconds" yaml:"location_refresh_seconds"`
	SnapshotTimeoutSeconds int     `json:"snapshot_timeout_seconds" yaml:"snapshot_timeout_seconds"`
	SnapshotPolicy         string  `json:"snapshot_policy" yaml:"snapshot_policy"`
	RequireFix             bool    `json:"require_fix" yaml:"require_fix"`

	// Snapshot
	SnapshotFormat  string `json:"snapshot_format" yaml:"snapshot_format"`
	SnapshotQuality int    `json:"snapshot_quality" yaml:"snapshot_quality"`
}

// Location source names.
const (
	LocationStatic = "static"
	LocationNMEA   = "nmea"
	LocationNone   = "none"
)

// DefaultConfig returns a Config populated with standard defaults.
func DefaultConfig() *Config {
	return &Config{
		Debug:                  false,
		LogLevel:               "info",
		LogFormat:              "json",
		OutputDir:              ".",
		ProductName:            "",
		FarmerName:             "",
		Caption:                "VHUMI.IN",
		Driver:                 "synthetic",
		Facing:                 string(capture.FacingEnvironment),
		FacingExact:            true,
		Width:                  1280,
		Height:                 720,
		FPS:                    30,
		Zoom:                   1,
		FFmpegPath:             "ffmpeg",
		Container:              "mjpeg",
		Codec:                  "mjpeg",
		Quality:                85,
		LocationSource:         LocationStatic,
		Latitude:               12.9716,
		Longitude:              77.5946,
		LocationRefreshSeconds: 10,
		SnapshotTimeoutSeconds: 10,
		SnapshotPolicy:         overlay.PolicyPerSnapshot.String(),
		RequireFix:             true,
		SnapshotFormat:         "png",
		SnapshotQuality:        92,
	}
}

// Validate clamps/normalizes values to safe ranges. It only fails for values
// that have no sensible fallback.
func (c *Config) Validate() error {
	d := DefaultConfig()
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		c.LogLevel = d.LogLevel
	}
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	if c.LogFormat != "json" && c.LogFormat != "text" {
		c.LogFormat = d.LogFormat
	}
	if c.OutputDir == "" {
		c.OutputDir = d.OutputDir
	}
	if c.Driver == "" {
		c.Driver = d.Driver
	}
	switch capture.FacingMode(c.Facing) {
	case capture.FacingAny, capture.FacingEnvironment, capture.FacingUser:
	default:
		return fmt.Errorf("config: unknown facing %q", c.Facing)
	}
	if c.Width <= 0 || c.Height <= 0 {
		c.Width, c.Height = d.Width, d.Height
	}
	if c.FPS <= 0 || c.FPS > 120 {
		c.FPS = d.FPS
	}
	if c.Zoom < 1 {
		c.Zoom = 1
	}
	if c.FFmpegPath == "" {
		c.FFmpegPath = d.FFmpegPath
	}
	if c.Container == "" {
		c.Container, c.Codec = d.Container, d.Codec
	}
	if c.Quality < 1 || c.Quality > 100 {
		c.Quality = d.Quality
	}
	if c.SnapshotQuality < 1 || c.SnapshotQuality > 100 {
		c.SnapshotQuality = d.SnapshotQuality
	}
	switch c.LocationSource {
	case LocationStatic, LocationNone:
	case LocationNMEA:
		if c.NMEAPath == "" {
			return fmt.Errorf("config: location_source nmea needs nmea_path")
		}
	case "":
		c.LocationSource = d.LocationSource
	default:
		return fmt.Errorf("config: unknown location_source %q", c.LocationSource)
	}
	if c.Latitude < -90 || c.Latitude > 90 || c.Longitude < -180 || c.Longitude > 180 {
		c.Latitude, c.Longitude = d.Latitude, d.Longitude
	}
	if c.LocationRefreshSeconds <= 0 {
		c.LocationRefreshSeconds = d.LocationRefreshSeconds
	}
	if c.SnapshotTimeoutSeconds <= 0 {
		c.SnapshotTimeoutSeconds = d.SnapshotTimeoutSeconds
	}
	c.SnapshotPolicy = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(c.SnapshotPolicy)), "-", "_")
	if c.SnapshotPolicy == "" {
		c.SnapshotPolicy = d.SnapshotPolicy
	}
	if _, err := overlay.ParsePolicy(c.SnapshotPolicy); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	c.SnapshotFormat = strings.ToLower(c.SnapshotFormat)
	if c.SnapshotFormat == "jpg" {
		c.SnapshotFormat = "jpeg"
	}
	if c.SnapshotFormat != "png" && c.SnapshotFormat != "jpeg" {
		c.SnapshotFormat = d.SnapshotFormat
	}
	return nil
}

// Constraints converts the capture settings into driver constraints.
func (c *Config) Constraints() capture.Constraints {
	out := capture.Constraints{
		Facing:      capture.FacingMode(c.Facing),
		FacingExact: c.FacingExact,
		Width:       c.Width,
		Height:      c.Height,
		FPS:         c.FPS,
	}
	if c.Audio {
		out.Audio = capture.DefaultAudioConstraints()
	}
	return out
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Load attempts to read configuration from the given JSON or YAML file path.
// If the file does not exist it returns DefaultConfig(). On decode error it
// returns defaults with the error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := decode(path, raw, cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("config: decode %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return DefaultConfig(), err
	}
	return cfg, nil
}

func decode(path string, raw []byte, cfg *Config) error {
	if isYAML(path) {
		return yaml.Unmarshal(raw, cfg)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	return dec.Decode(cfg)
}

// Save writes the configuration to the given path, as YAML for .yaml/.yml
// paths and indented JSON otherwise.
func (c *Config) Save(path string) error {
	_ = c.Validate()
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if isYAML(path) {
		enc := yaml.NewEncoder(f)
		enc.SetIndent(2)
		if err := enc.Encode(c); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}
