// Package config loads smiteclick's YAML (or TOML) configuration file.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/tturner/smiteclick/internal/errors"
	"github.com/tturner/smiteclick/internal/logging"
	"github.com/tturner/smiteclick/internal/settings"
)

// Backends accepted in the backend field.
var Backends = []string{"auto", "x11", "robotgo", "dry-run"}

// Config is the on-disk configuration.
type Config struct {
	Database    string          `yaml:"database" toml:"database"`
	Backend     string          `yaml:"backend" toml:"backend"`
	ProfilesDir string          `yaml:"profiles_dir" toml:"profiles_dir"`
	Logging     LoggingConfig   `yaml:"logging" toml:"logging"`
	API         APIConfig       `yaml:"api" toml:"api"`
	Watch       bool            `yaml:"watch" toml:"watch"`
	DryRun      DryRunConfig    `yaml:"dry_run,omitempty" toml:"dry_run,omitempty"`
	Settings    settings.Record `yaml:"settings,omitempty" toml:"settings,omitempty"`
}

// DryRunConfig describes the virtual desktop of the dry-run backend.
type DryRunConfig struct {
	Windows []WindowConfig `yaml:"windows,omitempty" toml:"windows,omitempty"`
}

// WindowConfig is one virtual window, in screen pixels.
type WindowConfig struct {
	Title  string `yaml:"title" toml:"title"`
	Left   int    `yaml:"left" toml:"left"`
	Top    int    `yaml:"top" toml:"top"`
	Width  int    `yaml:"width" toml:"width"`
	Height int    `yaml:"height" toml:"height"`
}

type LoggingConfig struct {
	Level string `yaml:"level" toml:"level"`
	File  string `yaml:"file,omitempty" toml:"file,omitempty"`
}

// APIConfig configures the local HTTP control API.
type APIConfig struct {
	Enable         bool    `yaml:"enable" toml:"enable"`
	Listen         string  `yaml:"listen" toml:"listen"`
	Token          string  `yaml:"token,omitempty" toml:"token,omitempty"`
	RateLimitRPS   float64 `yaml:"rate_limit_rps" toml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst" toml:"rate_limit_burst"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Database:    "smiteclick.db",
		Backend:     "auto",
		ProfilesDir: "profiles",
		Logging:     LoggingConfig{Level: "info"},
		API: APIConfig{
			Listen:         "127.0.0.1:8765",
			RateLimitRPS:   20,
			RateLimitBurst: 40,
		},
		Watch: true,
	}
}

// DefaultDir is the per-user configuration directory.
func DefaultDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "smiteclick")
	}
	return "."
}

// DefaultPath is the config file used when --config is not given.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.yaml")
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// Marshal encodes cfg in the format implied by path's extension.
func Marshal(cfg *Config, path string) ([]byte, error) {
	if isTOML(path) {
		return toml.Marshal(cfg)
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write stores cfg at path, creating the directory if needed.
func Write(cfg *Config, path string) error {
	data, err := Marshal(cfg, path)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// WriteDefault writes Default() to path.
func WriteDefault(path string) error {
	return Write(Default(), path)
}

// Load reads, defaults and validates the config at path. With autoCreate a
// missing file is created from Default. Relative paths inside the file are
// resolved against the file's directory.
func Load(path string, autoCreate bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, errors.WrapConfigError(fmt.Errorf("read config file: %w", err), path)
		}
		if !autoCreate {
			return nil, errors.WrapConfigError(fmt.Errorf("config file not found: %s", path), path)
		}
		if err := WriteDefault(path); err != nil {
			return nil, fmt.Errorf("create default config: %w", err)
		}
		if data, err = os.ReadFile(path); err != nil {
			return nil, errors.WrapConfigError(fmt.Errorf("read created config file: %w", err), path)
		}
	}

	cfg, err := Parse(data, path)
	if err != nil {
		return nil, errors.WrapConfigError(err, path)
	}
	cfg.Resolve(filepath.Dir(path))
	return cfg, nil
}

// Parse decodes, defaults and validates raw config bytes. path only selects
// the format.
func Parse(data []byte, path string) (*Config, error) {
	cfg := Default()
	if isTOML(path) {
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse TOML: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse YAML: %w", err)
		}
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Database == "" {
		cfg.Database = def.Database
	}
	if cfg.Backend == "" {
		cfg.Backend = def.Backend
	}
	if cfg.ProfilesDir == "" {
		cfg.ProfilesDir = def.ProfilesDir
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Logging.Level
	}
	if cfg.API.Listen == "" {
		cfg.API.Listen = def.API.Listen
	}
	if cfg.API.RateLimitRPS == 0 {
		cfg.API.RateLimitRPS = def.API.RateLimitRPS
	}
	if cfg.API.RateLimitBurst == 0 {
		cfg.API.RateLimitBurst = def.API.RateLimitBurst
	}
}

// Resolve makes relative file paths absolute against baseDir.
func (c *Config) Resolve(baseDir string) {
	abs := func(p string) string {
		if p == "" || p == ":memory:" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(baseDir, p)
	}
	c.Database = abs(c.Database)
	c.ProfilesDir = abs(c.ProfilesDir)
	c.Logging.File = abs(c.Logging.File)
}

// Validate checks every section. Unknown keys in the settings section are
// rejected here, unlike profile loads, so typos surface at startup.
func Validate(cfg *Config) error {
	valid := false
	for _, b := range Backends {
		if cfg.Backend == b {
			valid = true
		}
	}
	if !valid {
		return fmt.Errorf("backend %q is not one of %s", cfg.Backend, strings.Join(Backends, ", "))
	}
	if _, err := logging.ParseLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if cfg.API.RateLimitRPS < 0 {
		return fmt.Errorf("api: rate_limit_rps must be >= 0")
	}
	if cfg.API.RateLimitBurst < 0 {
		return fmt.Errorf("api: rate_limit_burst must be >= 0")
	}
	if cfg.API.Enable && cfg.API.Listen == "" {
		return fmt.Errorf("api: listen address is required when enabled")
	}
	for i, w := range cfg.DryRun.Windows {
		if strings.TrimSpace(w.Title) == "" {
			return fmt.Errorf("dry_run: window %d has no title", i+1)
		}
		if w.Width <= 0 || w.Height <= 0 {
			return fmt.Errorf("dry_run: window %q needs a positive width and height", w.Title)
		}
	}
	if _, err := cfg.InitialSettings(); err != nil {
		return err
	}
	return nil
}

// InitialSettings applies the settings section on top of the defaults.
func (c *Config) InitialSettings() (settings.Settings, error) {
	s, err := settings.Defaults().ApplyRecord(c.Settings)
	if err != nil {
		return s, fmt.Errorf("settings: %w", err)
	}
	return s, nil
}
