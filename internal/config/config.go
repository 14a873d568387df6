// Package config loads compiler configuration from TOML or YAML files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config is the global configuration every compiler pass sees.
type Config struct {
	Compiler Compiler `toml:"compiler" yaml:"compiler"`
	Runtime  Runtime  `toml:"runtime" yaml:"runtime"`

	// Path is the file the configuration was loaded from (set at load time).
	Path string `toml:"-" yaml:"-"`
}

// Compiler configures compilation.
type Compiler struct {
	// UseLineNumbers enables line number tracking. Shadow frames are only
	// generated when it is set.
	UseLineNumbers bool `toml:"use-line-numbers" yaml:"use-line-numbers"`

	// Workers bounds how many functions are transformed in parallel.
	// 1 runs passes sequentially.
	Workers int `toml:"workers" yaml:"workers"`
}

// Runtime configures the reference interpreter.
type Runtime struct {
	// Entry is the function run with -r.
	Entry string `toml:"entry" yaml:"entry"`

	// MaxSteps aborts execution after this many instructions, 0 for no limit.
	MaxSteps int `toml:"max-steps" yaml:"max-steps"`
}

const (
	DefaultWorkers  = 1
	DefaultEntry    = "main"
	DefaultMaxSteps = 1_000_000
)

// Default returns the configuration used when no file is given
func Default() *Config {
	c := initial()
	c.applyDefaults()
	return &c
}

// Load parses a configuration file. The format is chosen by extension:
// .toml, or .yaml/.yml. Keys absent from the file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c := initial()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if err := toml.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("parse error in %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("parse error in %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q for %s", ext, path)
	}

	c.Path = path
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return &c, nil
}

// Validate reports settings that cannot be satisfied
func (c *Config) Validate() error {
	if c.Compiler.Workers < 1 {
		return fmt.Errorf("compiler.workers must be at least 1, got %d", c.Compiler.Workers)
	}
	if c.Runtime.MaxSteps < 0 {
		return fmt.Errorf("runtime.max-steps must not be negative, got %d", c.Runtime.MaxSteps)
	}
	return nil
}

// LineNumbersEnabled reports whether line number tracking is on.
func (c *Config) LineNumbersEnabled() bool {
	return c != nil && c.Compiler.UseLineNumbers
}

// initial holds the defaults a file can override, including with zero
// values.
func initial() Config {
	return Config{
		Compiler: Compiler{UseLineNumbers: true},
		Runtime:  Runtime{MaxSteps: DefaultMaxSteps},
	}
}

func (c *Config) applyDefaults() {
	if c.Compiler.Workers == 0 {
		c.Compiler.Workers = DefaultWorkers
	}
	if c.Runtime.Entry == "" {
		c.Runtime.Entry = DefaultEntry
	}
}
