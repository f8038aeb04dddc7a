// Package config holds language-wide constants and the optional fallen.yaml
// runtime configuration loaded from a script's directory.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the top-level fallen.yaml structure.
type Config struct {
	Limits Limits `yaml:"limits"`
	Output Output `yaml:"output"`
}

// Limits guards against runaway scripts.
type Limits struct {
	// MaxCallDepth bounds the call stack; 0 falls back to the default.
	MaxCallDepth int `yaml:"max_call_depth"`
	// MaxSteps aborts execution after this many instructions; 0 disables.
	MaxSteps int `yaml:"max_steps"`
}

// Output controls console behavior of the write builtin.
type Output struct {
	// Color is "auto" (default, on when stdout is a terminal), "always"
	// or "never".
	Color string `yaml:"color"`
}

// Default returns the configuration used when no fallen.yaml exists.
func Default() Config {
	return Config{
		Limits: Limits{MaxCallDepth: DefaultMaxCallDepth, MaxSteps: DefaultMaxSteps},
		Output: Output{Color: "auto"},
	}
}

// Load reads fallen.yaml from dir, if present. A missing file is not an
// error; a malformed one is.
func Load(dir string) (Config, error) {
	cfg := Default()

	path := filepath.Join(dir, ConfigFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}

	if cfg.Limits.MaxCallDepth <= 0 {
		cfg.Limits.MaxCallDepth = DefaultMaxCallDepth
	}
	if cfg.Limits.MaxSteps < 0 {
		cfg.Limits.MaxSteps = 0
	}
	switch cfg.Output.Color {
	case "", "auto":
		cfg.Output.Color = "auto"
	case "always", "never":
	default:
		return cfg, fmt.Errorf("%s: output.color must be auto, always or never, got %q", path, cfg.Output.Color)
	}
	return cfg, nil
}
