// SPDX-License-Identifier: MIT

// Package config loads the settings of the coherent CLI.
//
// Sources, lowest precedence first: Defaults, an optional YAML file, then
// COHERENT_* environment variables (COHERENT_PD_THRESHOLD → pd_threshold).
// Command-line flags are layered on top by the CLI itself.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"go.uber.org/zap/zapcore"

	"github.com/katalvlaran/coherent/reconcile"
)

// EnvPrefix is the prefix of the environment variables read by Load.
const EnvPrefix = "COHERENT_"

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("config: invalid configuration")

// Sparse backend settings.
const (
	SparseAuto  = "auto"
	SparseTrue  = "true"
	SparseFalse = "false"
)

// Config is the CLI configuration.
type Config struct {
	LogLevel    string  `koanf:"log_level"`
	Strategy    string  `koanf:"strategy"`
	Method      string  `koanf:"method"`
	Sparse      string  `koanf:"sparse"`
	Horizon     int     `koanf:"horizon"`
	PDThreshold float64 `koanf:"pd_threshold"`
	MetricsFile string  `koanf:"metrics_file"`
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() Config {
	return Config{
		LogLevel:    "info",
		Strategy:    reconcile.NameMinTrace,
		Method:      string(reconcile.MethodWLSVar),
		Sparse:      SparseAuto,
		Horizon:     1,
		PDThreshold: reconcile.DefaultPDThreshold,
	}
}

// Load layers Defaults, the YAML file at path (skipped when path is empty) and the
// environment, then validates the result.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", path, err)
		}
	}
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("config: environment: %w", err)
	}

	cfg := Defaults()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("config: %v: %w", err, ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks every field.
func (c *Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: log_level %q: %w", c.LogLevel, ErrInvalidConfig)
	}
	if _, err := c.ReconcileStrategy(); err != nil {
		return fmt.Errorf("config: %v: %w", err, ErrInvalidConfig)
	}
	switch c.Sparse {
	case SparseAuto, SparseTrue, SparseFalse:
	default:
		return fmt.Errorf("config: sparse %q (want auto, true or false): %w", c.Sparse, ErrInvalidConfig)
	}
	if c.Horizon <= 0 {
		return fmt.Errorf("config: horizon %d must be positive: %w", c.Horizon, ErrInvalidConfig)
	}
	if !(c.PDThreshold > 0) {
		return fmt.Errorf("config: pd_threshold %g must be positive: %w", c.PDThreshold, ErrInvalidConfig)
	}

	return nil
}

// SparseOverride returns nil for auto, otherwise the forced backend choice.
func (c *Config) SparseOverride() *bool {
	switch c.Sparse {
	case SparseTrue:
		v := true
		return &v
	case SparseFalse:
		v := false
		return &v
	default:
		return nil
	}
}

// ReconcileStrategy parses Strategy and Method.
func (c *Config) ReconcileStrategy() (reconcile.Strategy, error) {
	return reconcile.ParseStrategy(c.Strategy, c.Method, c.SparseOverride())
}

// Level returns the parsed log level (info when LogLevel is invalid).
func (c *Config) Level() zapcore.Level {
	lvl, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel
	}

	return lvl
}
