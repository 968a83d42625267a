package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variable names.
const (
	EnvPrefix     = "JACKTRACK_"
	EnvConfigFile = "JACKTRACK_CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if JACKTRACK_CONFIG is set
//  3. env (prefix JACKTRACK_)
func Load(ctx context.Context) (*Config, error) {
	return LoadFile(ctx, os.Getenv(EnvConfigFile))
}

// LoadFile is Load with an explicit config path; an empty path skips the
// file layer. Used by the --config flag.
func LoadFile(ctx context.Context, path string) (*Config, error) {
	return LoadWith(ctx, path, nil)
}

// LoadWith is LoadFile with command line overrides applied on top of the
// env layer, before validation.
func LoadWith(_ context.Context, path string, override func(*Config)) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// JACKTRACK_QUEUE_SIZE -> queue_size (flat keys, underscores kept).
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}
	// The config path itself is not a config key.
	k.Delete("config")

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if override != nil {
		override(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.EventQueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.ConnectTimeoutMS <= 0:
		return fmt.Errorf("%w: connect_timeout_ms must be positive", ErrInvalidConfig)
	case c.ScanStopPolicy != ScanStopMarkLost && c.ScanStopPolicy != ScanStopRetain:
		return fmt.Errorf("%w: scan_stop_policy must be %q or %q", ErrInvalidConfig, ScanStopMarkLost, ScanStopRetain)
	case !c.Demo && c.CourseFile == "":
		return fmt.Errorf("%w: course_file is required outside demo mode", ErrInvalidConfig)
	}
	switch c.CourseFormat {
	case "", CourseFormatYAML, CourseFormatHTML, CourseFormatPDF:
	default:
		return fmt.Errorf("%w: unknown course_format %q", ErrInvalidConfig, c.CourseFormat)
	}
	return nil
}
