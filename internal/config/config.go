// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file and GROWTH_* environment variables over the defaults.
// - External errors are wrapped with this package's sentinels.
package config

import (
	"fmt"
	"strings"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DataDir holds the WHO reference table files.
	DataDir string `koanf:"data_dir"`

	// StrictTables makes unrecognised files in DataDir a load error instead of being skipped.
	StrictTables bool `koanf:"strict_tables"`

	// ManifestPath optionally replaces the built-in download manifest (YAML or JSON).
	ManifestPath string `koanf:"manifest_path"`

	// DownloadConcurrency bounds parallel dataset downloads.
	DownloadConcurrency int `koanf:"download_concurrency"`

	// DownloadTimeoutSec bounds each dataset download.
	DownloadTimeoutSec int `koanf:"download_timeout_sec"`

	// MaxBatchSize caps the measurements accepted by POST /percentiles.
	MaxBatchSize int `koanf:"max_batch_size"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		DataDir:             "data",
		DownloadConcurrency: 4,
		DownloadTimeoutSec:  60,
		MaxBatchSize:        1000,
	}
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.DataDir) == "":
		return fmt.Errorf("%w: data_dir must not be empty", ErrInvalidConfig)
	case c.DownloadConcurrency <= 0:
		return fmt.Errorf("%w: download_concurrency must be positive", ErrInvalidConfig)
	case c.DownloadTimeoutSec <= 0:
		return fmt.Errorf("%w: download_timeout_sec must be positive", ErrInvalidConfig)
	case c.MaxBatchSize <= 0:
		return fmt.Errorf("%w: max_batch_size must be positive", ErrInvalidConfig)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log_format %q, want text or json", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}
