// Package config handles loading and managing fmtcheck configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fmtcheck/fmtcheck/internal/check"
)

// Config is the check configuration, read from YAML.
type Config struct {
	Check    CheckConfig    `yaml:"check"`
	Scalafmt ScalafmtConfig `yaml:"scalafmt"`
	Status   StatusConfig   `yaml:"status"`
}

// CheckConfig controls which files are checked.
type CheckConfig struct {
	Extensions      []string `yaml:"extensions"`
	BuildExtensions []string `yaml:"build_extensions"` // checked with the sbt dialect
	ConfigPath      string   `yaml:"config_path"`      // format config inside the checked repository
}

// ScalafmtConfig controls the formatter process.
type ScalafmtConfig struct {
	Binary  string `yaml:"binary"`
	Timeout int    `yaml:"timeout"` // seconds per file, 0 for none
}

// StatusConfig controls the published commit status.
type StatusConfig struct {
	Context   string `yaml:"context"`
	TargetURL string `yaml:"target_url"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	opts := check.DefaultOptions()
	return &Config{
		Check: CheckConfig{
			Extensions:      opts.Extensions,
			BuildExtensions: opts.BuildExtensions,
			ConfigPath:      opts.ConfigPath,
		},
		Scalafmt: ScalafmtConfig{
			Binary:  "scalafmt",
			Timeout: 60,
		},
		Status: StatusConfig{
			Context: "scalafmt",
		},
	}
}

// Load reads a config file from the given path.
// If the file does not exist, it returns the default config.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if len(c.Check.Extensions) == 0 {
		return fmt.Errorf("check.extensions must not be empty")
	}
	for _, ext := range append(append([]string(nil), c.Check.Extensions...), c.Check.BuildExtensions...) {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			return fmt.Errorf("extension %q must start with a dot", ext)
		}
	}
	if c.Check.ConfigPath == "" {
		return fmt.Errorf("check.config_path is required")
	}
	if c.Scalafmt.Timeout < 0 {
		return fmt.Errorf("scalafmt.timeout must not be negative")
	}
	if c.Status.Context == "" {
		return fmt.Errorf("status.context is required")
	}
	return nil
}

// Options converts the check section into workflow options.
func (c *Config) Options() check.Options {
	return check.Options{
		Extensions:      c.Check.Extensions,
		BuildExtensions: c.Check.BuildExtensions,
		ConfigPath:      c.Check.ConfigPath,
	}
}

// ScalafmtTimeout returns the per-file formatter timeout.
func (c *Config) ScalafmtTimeout() time.Duration {
	return time.Duration(c.Scalafmt.Timeout) * time.Second
}

// FindConfigFile looks for .fmtcheck/config.yaml in the given directory
// and its parents, returning the path if found, or "" if not.
func FindConfigFile(dir string) string {
	for {
		candidate := filepath.Join(dir, ".fmtcheck", "config.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}
