// Package config loads project settings from .grafema/config.yaml or
// grafema.toml in the project root.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"

	"github.com/Disentinel/grafema-sub012/internal/diag"
)

// Candidate config files, in lookup order.
var configFiles = []string{
	filepath.Join(".grafema", "config.yaml"),
	filepath.Join(".grafema", "config.yml"),
	"grafema.toml",
}

// DefaultDatabase is the graph database path relative to the project root.
var DefaultDatabase = filepath.Join(".grafema", "graph.db")

// Config holds user-overridable settings.
type Config struct {
	Strict bool `yaml:"strict" toml:"strict"`
	// Workers bounds how many analysis units run at once. 0 means NumCPU.
	Workers  int    `yaml:"workers" toml:"workers"`
	Database string `yaml:"database" toml:"database"`
	// Plugins enables a subset of the builtin plugins. Empty enables all.
	Plugins []string `yaml:"plugins" toml:"plugins"`
	// Exclude holds extra glob patterns skipped during file discovery.
	Exclude []string          `yaml:"exclude" toml:"exclude"`
	Ignore  []diag.IgnoreRule `yaml:"ignore" toml:"ignore"`
	Watch   WatchConfig       `yaml:"watch" toml:"watch"`

	// Source is the file the config was read from, empty for defaults.
	Source string `yaml:"-" toml:"-"`
}

// WatchConfig tunes `analyze --watch`.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce" toml:"debounce"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads the first config file found in projectRoot, applies defaults and
// GRAFEMA_* environment overrides, and validates the result. A missing file
// is not an error; a malformed one is.
func Load(projectRoot string) (*Config, error) {
	for _, name := range configFiles {
		path := filepath.Join(projectRoot, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
	}
	cfg := Default()
	ApplyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads one config file. The format follows the extension.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("config %s: unsupported format", path)
	}
	cfg.Source = path

	applyDefaults(&cfg)
	ApplyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	slog.Debug("config.loaded", "path", path, "strict", cfg.Strict, "workers", cfg.Workers)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if strings.TrimSpace(cfg.Database) == "" {
		cfg.Database = DefaultDatabase
	}
	if cfg.Watch.Debounce <= 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
}

// Validate checks value ranges and compiles every glob once.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1, got %d", c.Workers)
	}
	for _, p := range c.Exclude {
		if _, err := glob.Compile(p, '/'); err != nil {
			return fmt.Errorf("exclude %q: %w", p, err)
		}
	}
	if _, err := diag.CompileIgnoreRules(c.Ignore); err != nil {
		return err
	}
	seen := make(map[string]bool, len(c.Plugins))
	for _, name := range c.Plugins {
		if seen[name] {
			return fmt.Errorf("plugin %q listed twice", name)
		}
		seen[name] = true
	}
	return nil
}

// IgnoreRules compiles the ignore section.
func (c *Config) IgnoreRules() (*diag.IgnoreRules, error) {
	return diag.CompileIgnoreRules(c.Ignore)
}

// DatabasePath resolves Database against projectRoot.
func (c *Config) DatabasePath(projectRoot string) string {
	if filepath.IsAbs(c.Database) {
		return c.Database
	}
	return filepath.Join(projectRoot, c.Database)
}
