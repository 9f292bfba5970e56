// Package config holds the YAML-based application configuration,
// including first-run config creation with 0600 permissions.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	// SPIPort is the SPI port name for periph.io; empty selects the
	// platform default (typically /dev/spidev0.0).
	SPIPort string `yaml:"spi_port" json:"spi_port"`

	// SPIHz is the bus clock in hertz.
	SPIHz int `yaml:"spi_hz" json:"spi_hz"`

	// BCM pin numbers for the control lines. Zero selects the vendor
	// HAT defaults (DC 25, BUSY 24, RESET 17).
	PinDC    int `yaml:"pin_dc" json:"pin_dc"`
	PinBusy  int `yaml:"pin_busy" json:"pin_busy"`
	PinReset int `yaml:"pin_reset" json:"pin_reset"`

	// PollMs is the busy-line sampling period in milliseconds.
	PollMs int `yaml:"poll_ms" json:"poll_ms"`

	// BusyTimeoutSec bounds each busy wait. Zero waits forever, which
	// matches the panel's documented handshake but hangs on a dead
	// panel.
	BusyTimeoutSec int `yaml:"busy_timeout_sec" json:"busy_timeout_sec"`

	// Image is an optional path to a 600x448 BMP or PNG drawn instead
	// of the embedded default.
	Image string `yaml:"image" json:"image"`

	// CaptureURL, if set, is rendered in headless Chromium and drawn
	// instead of an image file.
	CaptureURL string `yaml:"capture_url" json:"capture_url"`

	// RefreshCron is a cron-style schedule (e.g. "0 * * * *"). When
	// set, the process stays up and redraws on the schedule instead of
	// drawing once and exiting.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		SPIPort:        "",
		SPIHz:          5_000_000,
		PollMs:         10,
		BusyTimeoutSec: 30,
		LogLevel:       "info",
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.SPIHz <= 0 {
		c.SPIHz = 5_000_000
	}
	if c.PollMs <= 0 {
		c.PollMs = 10
	}
	if c.BusyTimeoutSec < 0 {
		c.BusyTimeoutSec = 0
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		c.LogLevel = "info"
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist: create parent directory if needed,
//     write a default config with 0600 perms, and return the default.
//   - If the file exists: read YAML, unmarshal, normalize defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with the error so the
				// caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path atomically
// (temp file + rename) with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".epdpaint-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save delegates to the package-level Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
