package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tturner/smiteclick/internal/clicker"
	"github.com/tturner/smiteclick/internal/config"
	"github.com/tturner/smiteclick/internal/errors"
	"github.com/tturner/smiteclick/internal/logging"
	"github.com/tturner/smiteclick/internal/platform"
	"github.com/tturner/smiteclick/internal/settings"
	"github.com/tturner/smiteclick/internal/store"
)

const commandTimeout = 10 * time.Second

type rootFlags struct {
	configPath string
	database   string
	backend    string
	logLevel   string
	logFile    string
	envFile    string
}

func registerRootFlags(cmd *cobra.Command, flags *rootFlags) {
	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "Config file (default $SMITECLICK_CONFIG or the user config dir)")
	pf.StringVar(&flags.database, "db", "", "SQLite database for profiles and session logs")
	pf.StringVar(&flags.backend, "backend", "", fmt.Sprintf("Input backend (%s)", strings.Join(platform.Names(), ", ")))
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level: silent, error, info, verbose, debug")
	pf.StringVar(&flags.logFile, "log-file", "", "Also write log lines to this file")
	pf.StringVar(&flags.envFile, "env-file", ".env", "Dotenv file with SMITECLICK_* overrides")
}

// env is the resolved configuration shared by every command.
type env struct {
	cfg     *config.Config
	cfgPath string
	log     *logging.Logger
}

func (f *rootFlags) resolveConfigPath() string {
	if f.configPath != "" {
		return f.configPath
	}
	if v := os.Getenv(config.EnvConfig); v != "" {
		return v
	}
	return config.DefaultPath()
}

// loadEnv reads .env, the config file, environment overrides and flags,
// in that order, and opens the logger.
func loadEnv(flags *rootFlags) (*env, error) {
	if err := config.LoadDotEnv(flags.envFile); err != nil {
		return nil, err
	}
	path := flags.resolveConfigPath()
	cfg, err := config.Load(path, true)
	if err != nil {
		return nil, err
	}
	if err := config.ApplyEnv(cfg); err != nil {
		return nil, errors.WrapConfigError(err, path)
	}
	if flags.database != "" {
		cfg.Database = flags.database
	}
	if flags.backend != "" {
		cfg.Backend = flags.backend
	}
	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}
	if flags.logFile != "" {
		cfg.Logging.File = flags.logFile
	}
	if err := config.Validate(cfg); err != nil {
		return nil, errors.WrapConfigError(err, path)
	}

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	log, err := logging.NewLogger(level, cfg.Logging.File)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, cfgPath: path, log: log}, nil
}

func (e *env) Close() {
	_ = e.log.Close()
}

func (e *env) openStore() (*store.Store, error) {
	st, err := store.Open(e.cfg.Database)
	if err != nil {
		return nil, errors.WrapStorageError(err, e.cfg.Database)
	}
	return st, nil
}

func (e *env) openBackend() (*platform.Backend, error) {
	windows := make(map[string]clicker.Rect, len(e.cfg.DryRun.Windows))
	for _, w := range e.cfg.DryRun.Windows {
		windows[w.Title] = clicker.Rect{Left: w.Left, Top: w.Top, Width: w.Width, Height: w.Height}
	}
	b, err := platform.Open(e.cfg.Backend, platform.Options{Logger: e.log, Windows: windows})
	if err != nil {
		return nil, errors.WrapPlatformError(err, e.cfg.Backend)
	}
	return b, nil
}

// initialSettings is the config file's settings section over the defaults.
func (e *env) initialSettings() (settings.Settings, error) {
	s, err := e.cfg.InitialSettings()
	if err != nil {
		return s, errors.WrapConfigError(err, e.cfgPath)
	}
	return s, nil
}

func cmdContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, commandTimeout)
}
