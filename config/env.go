package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FIELDCAM_"

// LoadEnv loads .env style files into the process environment. Missing files
// are skipped; variables already set in the environment win.
func LoadEnv(paths ...string) error {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("config: load env %s: %w", p, err)
		}
	}
	return nil
}

// GetEnv returns the value of FIELDCAM_<key> or fallback when unset.
func GetEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(EnvPrefix + key); ok {
		return v
	}
	return fallback
}

// GetEnvInt returns FIELDCAM_<key> parsed as int, or fallback when unset or
// malformed.
func GetEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(EnvPrefix + key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return fallback
}

// GetEnvFloat is GetEnvInt for floating point values.
func GetEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(EnvPrefix + key); ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return fallback
}

// GetEnvBool is GetEnvInt for booleans.
func GetEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(EnvPrefix + key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return fallback
}

// ApplyEnv overlays FIELDCAM_* variables onto c and re-validates.
func (c *Config) ApplyEnv() error {
	c.Debug = GetEnvBool("DEBUG", c.Debug)
	c.LogLevel = GetEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = GetEnv("LOG_FORMAT", c.LogFormat)
	c.OutputDir = GetEnv("OUTPUT_DIR", c.OutputDir)
	c.ProductName = GetEnv("PRODUCT_NAME", c.ProductName)
	c.FarmerName = GetEnv("FARMER_NAME", c.FarmerName)
	c.Caption = GetEnv("CAPTION", c.Caption)
	c.LogoPath = GetEnv("LOGO_PATH", c.LogoPath)
	c.Driver = GetEnv("DRIVER", c.Driver)
	c.Facing = GetEnv("FACING", c.Facing)
	c.FacingExact = GetEnvBool("FACING_EXACT", c.FacingExact)
	c.Width = GetEnvInt("WIDTH", c.Width)
	c.Height = GetEnvInt("HEIGHT", c.Height)
	c.FPS = GetEnvFloat("FPS", c.FPS)
	c.Zoom = GetEnvFloat("ZOOM", c.Zoom)
	c.Audio = GetEnvBool("AUDIO", c.Audio)
	c.FFmpegPath = GetEnv("FFMPEG_PATH", c.FFmpegPath)
	c.Container = GetEnv("CONTAINER", c.Container)
	c.Codec = GetEnv("CODEC", c.Codec)
	c.Quality = GetEnvInt("QUALITY", c.Quality)
	c.LocationSource = GetEnv("LOCATION_SOURCE", c.LocationSource)
	c.Latitude = GetEnvFloat("LATITUDE", c.Latitude)
	c.Longitude = GetEnvFloat("LONGITUDE", c.Longitude)
	c.NMEAPath = GetEnv("NMEA_PATH", c.NMEAPath)
	c.LocationRefreshSeconds = GetEnvInt("LOCATION_REFRESH_SECONDS", c.LocationRefreshSeconds)
	c.SnapshotTimeoutSeconds = GetEnvInt("SNAPSHOT_TIMEOUT_SECONDS", c.SnapshotTimeoutSeconds)
	c.SnapshotPolicy = GetEnv("SNAPSHOT_POLICY", c.SnapshotPolicy)
	c.RequireFix = GetEnvBool("REQUIRE_FIX", c.RequireFix)
	c.SnapshotFormat = GetEnv("SNAPSHOT_FORMAT", c.SnapshotFormat)
	c.SnapshotQuality = GetEnvInt("SNAPSHOT_QUALITY", c.SnapshotQuality)
	return c.Validate()
}
