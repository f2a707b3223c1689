// Package config loads run settings from an optional YAML file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/had-nu/credsweep/internal/rules"
)

// Duration wraps time.Duration so YAML can carry values like "5s" or
// "250ms". A bare integer is read as seconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Tag == "!!int" {
		var n int64
		if err := value.Decode(&n); err != nil {
			return fmt.Errorf("parse duration: %w", err)
		}
		*d = Duration(time.Duration(n) * time.Second)
		return nil
	}
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"5s\" or a number of seconds: %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config holds the run settings for a scan.
type Config struct {
	// Concurrency is the number of files scanned at once per batch.
	Concurrency int `yaml:"concurrency"`

	// RetryBackoff is the wait before the single retry after a
	// resource-exhaustion failure.
	RetryBackoff Duration `yaml:"retry_backoff"`

	// Format selects the report rendering: table, json or csv.
	Format string `yaml:"format"`

	// LogLevel sets logging verbosity (trace, debug, info, warn, error).
	LogLevel string `yaml:"log_level"`

	// IgnoreFile is the ignore listing consulted under the scan root.
	IgnoreFile string `yaml:"ignore_file"`

	// SaveReports controls whether JSON/CSV report artifacts are written
	// next to the scan root when findings exist.
	SaveReports bool `yaml:"save_reports"`

	// Rules are extra scan rules applied on top of the built-in set.
	Rules []rules.Spec `yaml:"rules"`
}

// Default returns a Config with the stock settings.
func Default() *Config {
	return &Config{
		Concurrency:  100,
		RetryBackoff: Duration(5 * time.Second),
		Format:       "table",
		LogLevel:     "info",
		IgnoreFile:   ".gitignore",
		SaveReports:  true,
	}
}

// Load reads configuration from path. A missing file returns the defaults
// without error; a malformed file returns an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks field values that have a closed domain.
func (c *Config) Validate() error {
	switch c.Format {
	case "table", "json", "csv":
	default:
		return fmt.Errorf("unknown format %q (want table, json or csv)", c.Format)
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative")
	}
	return nil
}
