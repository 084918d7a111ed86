package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tturner/smiteclick/internal/settings"
)

func TestLoadAutoCreate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	cfg, err := Load(path, true)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if cfg.Backend != "auto" || cfg.Logging.Level != "info" || !cfg.Watch {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Database != filepath.Join(dir, "nested", "smiteclick.db") {
		t.Errorf("database = %s, want it resolved next to the config", cfg.Database)
	}
}

func TestLoadMissingWithoutCreate(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), false)
	if err == nil || !strings.Contains(err.Error(), "config file not found") {
		t.Errorf("err = %v", err)
	}
}

func TestParseYAML(t *testing.T) {
	data := []byte(`
database: /var/lib/smiteclick.db
backend: dry-run
logging:
  level: debug
api:
  enable: true
  listen: 127.0.0.1:9000
dry_run:
  windows:
    - title: Game
      width: 800
      height: 600
settings:
  cps: 25
  hotkey_mode: Hold
  start_hotkey: F8
`)
	cfg, err := Parse(data, "config.yaml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Backend != "dry-run" || !cfg.API.Enable || cfg.API.Listen != "127.0.0.1:9000" {
		t.Errorf("cfg = %+v", cfg)
	}
	if len(cfg.DryRun.Windows) != 1 || cfg.DryRun.Windows[0].Title != "Game" || cfg.DryRun.Windows[0].Width != 800 {
		t.Errorf("dry_run windows = %+v", cfg.DryRun.Windows)
	}
	if cfg.API.RateLimitRPS != 20 {
		t.Errorf("rate limit default not applied: %v", cfg.API.RateLimitRPS)
	}
	s, err := cfg.InitialSettings()
	if err != nil {
		t.Fatalf("InitialSettings: %v", err)
	}
	if s.CPS != 25 || s.HotkeyMode != settings.HotkeyHold || s.StartHotkey != "Key.f8" {
		t.Errorf("settings = %+v", s)
	}
}

func TestParseTOML(t *testing.T) {
	data := []byte(`
backend = "robotgo"
watch = false

[logging]
level = "verbose"

[settings]
cps = 12
click_limit_enabled = true
click_limit_count = 50
`)
	cfg, err := Parse(data, "config.toml")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Backend != "robotgo" || cfg.Watch || cfg.Logging.Level != "verbose" {
		t.Errorf("cfg = %+v", cfg)
	}
	s, err := cfg.InitialSettings()
	if err != nil {
		t.Fatal(err)
	}
	if !s.ClickLimitEnabled || s.ClickLimitCount != 50 || s.CPS != 12 {
		t.Errorf("settings = %+v", s)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"bad backend", func(c *Config) { c.Backend = "wayland" }, "backend"},
		{"bad level", func(c *Config) { c.Logging.Level = "chatty" }, "logging"},
		{"negative rps", func(c *Config) { c.API.RateLimitRPS = -1 }, "rate_limit_rps"},
		{"api without listen", func(c *Config) { c.API.Enable = true; c.API.Listen = "" }, "listen"},
		{"unknown setting", func(c *Config) { c.Settings = settings.Record{"cpss": 3} }, "unknown key"},
		{"bad setting", func(c *Config) { c.Settings = settings.Record{"cps": -3} }, "cps"},
		{"hotkey conflict", func(c *Config) { c.Settings = settings.Record{"stop_hotkey": "f6"} }, "both"},
		{"untitled window", func(c *Config) { c.DryRun.Windows = []WindowConfig{{Width: 10, Height: 10}} }, "no title"},
		{"empty window", func(c *Config) { c.DryRun.Windows = []WindowConfig{{Title: "Game"}} }, "positive width"},
		{"window", func(c *Config) { c.DryRun.Windows = []WindowConfig{{Title: "Game", Width: 10, Height: 10}} }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestWriteRoundTrip(t *testing.T) {
	for _, name := range []string{"c.yaml", "c.toml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			cfg := Default()
			cfg.Backend = "x11"
			cfg.Settings = settings.Record{"cps": 33.0, "cps_mode": "Fast"}
			if err := Write(cfg, path); err != nil {
				t.Fatalf("Write: %v", err)
			}
			got, err := Load(path, false)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			s, _ := got.InitialSettings()
			if got.Backend != "x11" || s.CPS != 33 || s.CPSMode != settings.ModeFast {
				t.Errorf("got %+v / %+v", got, s)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvBackend, "dry-run")
	t.Setenv(EnvAPIEnable, "true")
	t.Setenv(EnvAPIToken, "s3cret")
	t.Setenv(EnvLogLevel, "debug")

	cfg := Default()
	if err := ApplyEnv(cfg); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.Backend != "dry-run" || !cfg.API.Enable || cfg.API.Token != "s3cret" || cfg.Logging.Level != "debug" {
		t.Errorf("cfg = %+v", cfg)
	}

	t.Setenv(EnvAPIEnable, "sometimes")
	if err := ApplyEnv(Default()); err == nil {
		t.Error("expected error for bad bool")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("SMITECLICK_TEST_DOTENV=from-file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SMITECLICK_TEST_DOTENV", "")
	os.Unsetenv("SMITECLICK_TEST_DOTENV")

	if err := LoadDotEnv(envFile, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("SMITECLICK_TEST_DOTENV"); got != "from-file" {
		t.Errorf("env = %q, want from-file", got)
	}
}

func TestWatchReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got := make(chan *Config, 4)
	errc := make(chan error, 1)
	go func() {
		errc <- Watch(ctx, path, nil, func(c *Config) { got <- c })
	}()

	// give the watcher time to register before editing
	time.Sleep(100 * time.Millisecond)
	cfg := Default()
	cfg.Settings = settings.Record{"cps": 17}
	if err := Write(cfg, path); err != nil {
		t.Fatal(err)
	}

	select {
	case c := <-got:
		s, _ := c.InitialSettings()
		if s.CPS != 17 {
			t.Errorf("reloaded cps = %v, want 17", s.CPS)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload observed")
	}

	cancel()
	if err := <-errc; err != nil {
		t.Errorf("Watch: %v", err)
	}
}
