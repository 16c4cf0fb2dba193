// Package config loads the optional .slicer.yml project file. The file maps
// artifact filename patterns to schemas and carries the settings shared by
// the validate, watch, and dashboard commands.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is the config file looked up in the working directory.
const DefaultFileName = ".slicer.yml"

// Rule maps a filename glob to a schema name. The first matching rule wins.
type Rule struct {
	Pattern string `yaml:"pattern"`
	Schema  string `yaml:"schema"`
}

// WatchConfig tunes the watch daemon.
type WatchConfig struct {
	// DebounceMs is the quiet period after a file event before revalidation.
	DebounceMs int `yaml:"debounce_ms"`
}

// DashboardConfig configures the dashboard HTTP server.
type DashboardConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Config is the parsed .slicer.yml.
type Config struct {
	Version       int             `yaml:"version"`
	ArtifactsDir  string          `yaml:"artifacts_dir"`
	DefaultSchema string          `yaml:"default_schema"`
	HistoryDB     string          `yaml:"history_db"`
	Strict        bool            `yaml:"strict"`
	Rules         []Rule          `yaml:"rules"`
	Watch         WatchConfig     `yaml:"watch"`
	Dashboard     DashboardConfig `yaml:"dashboard"`
}

// Default returns the configuration used when no .slicer.yml exists.
func Default() *Config {
	return &Config{
		Version:       1,
		ArtifactsDir:  ".",
		DefaultSchema: "slice-map",
		HistoryDB:     ".slicer/history.db",
		Rules: []Rule{
			{Pattern: "*slice-map*.json", Schema: "slice-map"},
			{Pattern: "*issue-bundle*.json", Schema: "issue-bundle"},
		},
		Watch:     WatchConfig{DebounceMs: 500},
		Dashboard: DashboardConfig{Host: "127.0.0.1", Port: 8844},
	}
}

// Load reads and validates a config file. Unknown keys are rejected so a
// typoed setting fails loudly instead of being silently ignored.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()

	cfg, err := parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault loads DefaultFileName from dir, falling back to Default
// when the file does not exist. A present-but-broken file is an error.
func LoadOrDefault(dir string) (*Config, error) {
	path := filepath.Join(dir, DefaultFileName)
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func parse(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		// An empty file means "all defaults".
		if errors.Is(err, io.EOF) {
			return cfg, nil
		}
		return nil, err
	}
	return cfg, nil
}

// Validate checks the loaded values for internal consistency.
func (c *Config) Validate() error {
	if c.Version != 1 {
		return fmt.Errorf("unsupported config version %d (expected 1)", c.Version)
	}
	if c.DefaultSchema == "" {
		return errors.New("default_schema must not be empty")
	}
	if c.Watch.DebounceMs < 0 {
		return fmt.Errorf("watch.debounce_ms must not be negative (got %d)", c.Watch.DebounceMs)
	}
	if c.Dashboard.Port < 0 || c.Dashboard.Port > 65535 {
		return fmt.Errorf("dashboard.port %d out of range", c.Dashboard.Port)
	}
	for i, rule := range c.Rules {
		if rule.Pattern == "" {
			return fmt.Errorf("rules[%d]: pattern must not be empty", i)
		}
		if _, err := filepath.Match(rule.Pattern, "probe.json"); err != nil {
			return fmt.Errorf("rules[%d]: bad pattern %q: %w", i, rule.Pattern, err)
		}
		if rule.Schema == "" {
			return fmt.Errorf("rules[%d]: schema must not be empty", i)
		}
	}
	return nil
}

// SchemaFor picks the schema for an artifact path: the first rule whose
// pattern matches the base name wins, otherwise the default schema applies.
func (c *Config) SchemaFor(path string) string {
	base := filepath.Base(path)
	for _, rule := range c.Rules {
		if ok, _ := filepath.Match(rule.Pattern, base); ok {
			return rule.Schema
		}
	}
	return c.DefaultSchema
}
