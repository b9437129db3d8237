// Package fconfig provides configuration management for the reflection and
// deserialization engine: the handful of knobs the spec leaves as
// "default X, overridable" rather than hard-coded (§4.6 coroutine stack
// size, §4.8 matcher thresholds, the struct-level deny-unknown-fields
// default).
package fconfig

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// LogFormat selects the slog handler format used by internal/flog.
type LogFormat string

const (
	LogFormatJSON    LogFormat = "json"
	LogFormatLogfmt  LogFormat = "logfmt"
	LogFormatDisable LogFormat = "disabled"
)

// IsValid reports whether the log format is one this package understands.
func (f LogFormat) IsValid() bool {
	switch f {
	case LogFormatJSON, LogFormatLogfmt, LogFormatDisable:
		return true
	default:
		return false
	}
}

// Config is the complete engine configuration.
type Config struct {
	Deser DeserConfig `toml:"deser"`
	Diff  DiffConfig  `toml:"diff"`
	Log   LogConfig   `toml:"log"`
}

// DeserConfig controls the coroutine-based deserializer (C6).
type DeserConfig struct {
	// DenyUnknownFieldsDefault makes deser reject an unknown key in a
	// struct with no flatten field (ferrors.UnknownField) instead of
	// skipping it. Shapes carry no deny_unknown_fields attribute of their
	// own, so it applies to every such struct; in a struct with a flatten
	// field, keys that no flatten target resolves are dropped either way.
	DenyUnknownFieldsDefault bool `toml:"deny_unknown_fields_default"`

	// CoroutineStackSize is the nominal size in bytes of the deserializer's
	// coroutine stack; default mirrors the reference implementation's
	// 2 MiB fiber stack (§4.6). Go goroutine stacks grow automatically, so
	// the deser engine does not read it; only Validate checks it.
	CoroutineStackSize int `toml:"coroutine_stack_size"`

	// MaxProbeDepth is a limit on nested flatten probes (§4.6 "struct with
	// flatten"). deser.Start copies it into each engine context, but no
	// code path compares probe nesting against it, so nesting is not
	// bounded.
	MaxProbeDepth int `toml:"max_probe_depth"`
}

// DiffConfig controls the GumTree matcher (C8).
type DiffConfig struct {
	// SimilarityThreshold is the default Dice/property-similarity cutoff
	// (§4.8, default 0.5).
	SimilarityThreshold float64 `toml:"similarity_threshold"`

	// MinHeight is the minimum subtree height considered during top-down
	// matching (§4.8, default 1).
	MinHeight int `toml:"min_height"`

	// ParallelDescendants enables parallel descendant-set precomputation
	// (§5) via golang.org/x/sync/errgroup once a tree has at least
	// ParallelThreshold nodes.
	ParallelDescendants bool `toml:"parallel_descendants"`
	ParallelThreshold   int  `toml:"parallel_threshold"`
}

// LogConfig controls internal/flog's slog handler.
type LogConfig struct {
	Level  string    `toml:"level"`
	Format LogFormat `toml:"format"`
}

// Default returns the built-in configuration used when no file overrides
// it.
func Default() *Config {
	return &Config{
		Deser: DeserConfig{
			DenyUnknownFieldsDefault: false,
			CoroutineStackSize:       2 * 1024 * 1024,
			MaxProbeDepth:            64,
		},
		Diff: DiffConfig{
			SimilarityThreshold: 0.5,
			MinHeight:           1,
			ParallelDescendants: true,
			ParallelThreshold:   512,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: LogFormatDisable,
		},
	}
}

// Load reads configuration with precedence:
//  1. overrides (highest priority, e.g. programmatic or flag-sourced)
//  2. a facet.toml file at path, if it exists
//  3. Default() (lowest priority)
func Load(path string, overrides *Config) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}
	}

	if overrides != nil {
		applyOverrides(cfg, overrides)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("parsing toml: %w", err)
	}

	return nil
}

func applyOverrides(cfg *Config, overrides *Config) {
	if overrides.Deser.CoroutineStackSize != 0 {
		cfg.Deser.CoroutineStackSize = overrides.Deser.CoroutineStackSize
	}
	if overrides.Deser.MaxProbeDepth != 0 {
		cfg.Deser.MaxProbeDepth = overrides.Deser.MaxProbeDepth
	}
	cfg.Deser.DenyUnknownFieldsDefault = overrides.Deser.DenyUnknownFieldsDefault

	if overrides.Diff.SimilarityThreshold != 0 {
		cfg.Diff.SimilarityThreshold = overrides.Diff.SimilarityThreshold
	}
	if overrides.Diff.MinHeight != 0 {
		cfg.Diff.MinHeight = overrides.Diff.MinHeight
	}
	if overrides.Log.Format != "" {
		cfg.Log.Format = overrides.Log.Format
	}
	if overrides.Log.Level != "" {
		cfg.Log.Level = overrides.Log.Level
	}
}

// Validate checks that every enum-like field holds a recognized value and
// that numeric knobs are in sane ranges.
func (c *Config) Validate() error {
	if c.Diff.SimilarityThreshold < 0 || c.Diff.SimilarityThreshold > 1 {
		return fmt.Errorf("diff.similarity_threshold must be in [0,1], got %v", c.Diff.SimilarityThreshold)
	}
	if c.Diff.MinHeight < 0 {
		return fmt.Errorf("diff.min_height must be >= 0, got %d", c.Diff.MinHeight)
	}
	if c.Deser.CoroutineStackSize <= 0 {
		return fmt.Errorf("deser.coroutine_stack_size must be > 0, got %d", c.Deser.CoroutineStackSize)
	}
	if !c.Log.Format.IsValid() {
		return fmt.Errorf("invalid log.format: %q (must be 'json', 'logfmt', or 'disabled')", c.Log.Format)
	}
	return nil
}
