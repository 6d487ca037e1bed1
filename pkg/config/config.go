// Package config provides configuration file support for ito.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ito-project/ito/pkg/errclass"
	"github.com/ito-project/ito/pkg/fsutil"
)

// FileName is the config file inside the ito directory.
const FileName = "config.yaml"

// Config represents the ito configuration.
type Config struct {
	Audit   AuditConfig   `yaml:"audit"`
	Logging LoggingConfig `yaml:"logging"`
}

// AuditConfig configures the audit log.
type AuditConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Stream   StreamConfig   `yaml:"stream"`
	Validate ValidateConfig `yaml:"validate"`
}

// StreamConfig configures `ito audit stream`.
type StreamConfig struct {
	PollInterval       Duration `yaml:"poll_interval"`
	RediscoverInterval Duration `yaml:"rediscover_interval"`
	Last               int      `yaml:"last"`
}

// ValidateConfig configures `ito audit validate`.
type ValidateConfig struct {
	Strict bool `yaml:"strict"`
}

// LoggingConfig configures logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json, text
}

// Duration is a time.Duration written as a Go duration string ("500ms").
type Duration time.Duration

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Audit: AuditConfig{
			Enabled: true,
			Stream: StreamConfig{
				PollInterval:       Duration(500 * time.Millisecond),
				RediscoverInterval: Duration(5 * time.Second),
				Last:               10,
			},
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// Path returns the config file path inside itoDir.
func Path(itoDir string) string {
	return filepath.Join(itoDir, FileName)
}

// Load loads configuration from <itoDir>/config.yaml.
// Returns default config if file doesn't exist.
func Load(itoDir string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(Path(itoDir))
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

// Save replaces <itoDir>/config.yaml with cfg. A crash mid-save leaves the
// previous file in place.
func Save(itoDir string, cfg *Config) error {
	err := fsutil.WriteFile(Path(itoDir), 0644, func(w io.Writer) error {
		enc := yaml.NewEncoder(w)
		if err := enc.Encode(cfg); err != nil {
			return err
		}
		return enc.Close()
	})
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

type keySpec struct {
	get func(*Config) string
	set func(*Config, string) error
}

var keys = map[string]keySpec{
	"audit.enabled": {
		get: func(c *Config) string { return strconv.FormatBool(c.Audit.Enabled) },
		set: func(c *Config, v string) error { return setBool(&c.Audit.Enabled, v) },
	},
	"audit.stream.poll_interval": {
		get: func(c *Config) string { return c.Audit.Stream.PollInterval.Std().String() },
		set: func(c *Config, v string) error { return setDuration(&c.Audit.Stream.PollInterval, v) },
	},
	"audit.stream.rediscover_interval": {
		get: func(c *Config) string { return c.Audit.Stream.RediscoverInterval.Std().String() },
		set: func(c *Config, v string) error { return setDuration(&c.Audit.Stream.RediscoverInterval, v) },
	},
	"audit.stream.last": {
		get: func(c *Config) string { return strconv.Itoa(c.Audit.Stream.Last) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return fmt.Errorf("expected a non-negative integer, got %q", v)
			}
			c.Audit.Stream.Last = n
			return nil
		},
	},
	"audit.validate.strict": {
		get: func(c *Config) string { return strconv.FormatBool(c.Audit.Validate.Strict) },
		set: func(c *Config, v string) error { return setBool(&c.Audit.Validate.Strict, v) },
	},
	"logging.level": {
		get: func(c *Config) string { return c.Logging.Level },
		set: func(c *Config, v string) error {
			switch v {
			case "debug", "info", "warn", "error":
				c.Logging.Level = v
				return nil
			}
			return fmt.Errorf("expected debug, info, warn or error, got %q", v)
		},
	},
	"logging.format": {
		get: func(c *Config) string { return c.Logging.Format },
		set: func(c *Config, v string) error {
			if v != "text" && v != "json" {
				return fmt.Errorf("expected text or json, got %q", v)
			}
			c.Logging.Format = v
			return nil
		},
	},
}

// Keys returns every settable dotted key in a stable order.
func Keys() []string {
	return []string{
		"audit.enabled",
		"audit.stream.poll_interval",
		"audit.stream.rediscover_interval",
		"audit.stream.last",
		"audit.validate.strict",
		"logging.level",
		"logging.format",
	}
}

// Get returns the string form of a dotted key.
func (c *Config) Get(key string) (string, error) {
	spec, ok := keys[key]
	if !ok {
		return "", errclass.ErrConfigKeyUnknown.WithMessagef("unknown config key %q", key)
	}
	return spec.get(c), nil
}

// Set parses value and assigns it to a dotted key.
func (c *Config) Set(key, value string) error {
	spec, ok := keys[key]
	if !ok {
		return errclass.ErrConfigKeyUnknown.WithMessagef("unknown config key %q", key)
	}
	if err := spec.set(c, value); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func setBool(dst *bool, v string) error {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("expected a boolean, got %q", v)
	}
	*dst = b
	return nil
}

func setDuration(dst *Duration, v string) error {
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fmt.Errorf("expected a positive duration, got %q", v)
	}
	*dst = Duration(d)
	return nil
}
