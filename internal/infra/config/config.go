// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Box      BoxConfig      `yaml:"box"`
	Database DatabaseConfig `yaml:"database"`
	Reader   ReaderConfig   `yaml:"reader"`
	Audio    AudioConfig    `yaml:"audio"`
	Playback PlaybackConfig `yaml:"playback"`
}

// BoxConfig represents general appliance configuration.
type BoxConfig struct {
	MediaDir string      `yaml:"media_dir" default:"media" validate:"required"`
	Hooks    HooksConfig `yaml:"hooks"`
}

// HooksConfig represents lifecycle hooks configuration. Hooks are shell
// commands, typically amixer calls to unmute the output on startup.
type HooksConfig struct {
	OnStarted []string `yaml:"on_started"`
	OnStopped []string `yaml:"on_stopped"`
}

// DatabaseConfig represents persistence configuration.
type DatabaseConfig struct {
	Path string `yaml:"path" default:"bertibox.db" validate:"required"`
}

// ReaderConfig represents RFID reader configuration. Settings is decoded
// by the selected reader backend with mapstructure.
type ReaderConfig struct {
	Type           string         `yaml:"type" default:"serial" validate:"oneof=serial stdin"`
	PollIntervalMs int            `yaml:"poll_interval_ms" default:"500" validate:"gte=50,lte=5000"`
	TagTimeoutMs   int            `yaml:"tag_timeout_ms" default:"1000" validate:"gte=100,lte=10000"`
	Settings       map[string]any `yaml:"settings,omitempty"`
}

// AudioConfig represents audio backend configuration. Settings is decoded
// by the selected backend with mapstructure.
type AudioConfig struct {
	Type          string         `yaml:"type" default:"beep" validate:"oneof=beep"`
	DefaultVolume float64        `yaml:"default_volume" default:"0.8" validate:"gte=0,lte=1"`
	Settings      map[string]any `yaml:"settings,omitempty"`
}

// PlaybackConfig represents playback control configuration.
type PlaybackConfig struct {
	MonitorIntervalMs int `yaml:"monitor_interval_ms" default:"200" validate:"gte=50,lte=2000"`
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults so the box can boot on a fresh system. Environment variables
// take precedence over file values for filesystem paths.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, errors.Wrap(err, "failed to parse config file")
		}
	case os.IsNotExist(err):
		// Defaults only
	default:
		return nil, errors.Wrap(err, "failed to read config file")
	}

	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("BERTIBOX_MEDIA_DIR"); v != "" {
		c.Box.MediaDir = v
	}
	if v := os.Getenv("BERTIBOX_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("BERTIBOX_READER_TYPE"); v != "" {
		c.Reader.Type = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	return nil
}

// PollInterval returns the reader poll interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Reader.PollIntervalMs) * time.Millisecond
}

// TagTimeout returns the reader tag timeout as a duration.
func (c *Config) TagTimeout() time.Duration {
	return time.Duration(c.Reader.TagTimeoutMs) * time.Millisecond
}

// MonitorInterval returns the playback monitor interval as a duration.
func (c *Config) MonitorInterval() time.Duration {
	return time.Duration(c.Playback.MonitorIntervalMs) * time.Millisecond
}
