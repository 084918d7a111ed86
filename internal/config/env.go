package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment overrides, applied after the file is loaded.
const (
	EnvConfig    = "SMITECLICK_CONFIG"
	EnvDatabase  = "SMITECLICK_DB"
	EnvBackend   = "SMITECLICK_BACKEND"
	EnvLogLevel  = "SMITECLICK_LOG_LEVEL"
	EnvLogFile   = "SMITECLICK_LOG_FILE"
	EnvAPIEnable = "SMITECLICK_API_ENABLE"
	EnvAPIListen = "SMITECLICK_API_LISTEN"
	EnvAPIToken  = "SMITECLICK_API_TOKEN"
)

// LoadDotEnv reads KEY=value pairs from the given files (default ".env")
// into the process environment without overriding variables already set.
// Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides cfg from SMITECLICK_* variables and revalidates.
func ApplyEnv(cfg *Config) error {
	if v := os.Getenv(EnvDatabase); v != "" {
		cfg.Database = v
	}
	if v := os.Getenv(EnvBackend); v != "" {
		cfg.Backend = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv(EnvLogFile); v != "" {
		cfg.Logging.File = v
	}
	if v := os.Getenv(EnvAPIEnable); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvAPIEnable, err)
		}
		cfg.API.Enable = b
	}
	if v := os.Getenv(EnvAPIListen); v != "" {
		cfg.API.Listen = v
	}
	if v := os.Getenv(EnvAPIToken); v != "" {
		cfg.API.Token = v
	}
	if err := Validate(cfg); err != nil {
		return fmt.Errorf("environment overrides: %w", err)
	}
	return nil
}
