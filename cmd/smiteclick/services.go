package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/tturner/smiteclick/internal/clicker"
	"github.com/tturner/smiteclick/internal/config"
	"github.com/tturner/smiteclick/internal/hotkey"
	"github.com/tturner/smiteclick/internal/orch"
	"github.com/tturner/smiteclick/internal/platform"
	"github.com/tturner/smiteclick/internal/settings"
	"github.com/tturner/smiteclick/internal/store"
)

const shutdownTimeout = 5 * time.Second

// services is everything a clicking process runs: storage, the shared
// settings record, the input backend, the orchestrator and the hotkey
// listener. It is built once and handed to the dashboard or the headless
// loop.
type services struct {
	env      *env
	store    *store.Store
	settings *settings.Store
	backend  *platform.Backend
	orch     *orch.Orchestrator
	hotkeys  *hotkey.Controller

	enforce *settings.Subscription
}

func startServices(e *env) (*services, error) {
	initial, err := e.initialSettings()
	if err != nil {
		return nil, err
	}
	st, err := e.openStore()
	if err != nil {
		return nil, err
	}
	backend, err := e.openBackend()
	if err != nil {
		st.Close()
		return nil, err
	}

	set := settings.NewStore(initial)
	s := &services{
		env:      e,
		store:    st,
		settings: set,
		backend:  backend,
		enforce:  set.EnforceModeRange(),
	}
	engine := clicker.New(backend.Pointer, backend.Windows, clicker.Options{Logger: e.log})
	s.orch = orch.New(engine, set, st, orch.Options{Logger: e.log})
	s.hotkeys = hotkey.NewController(set, backend.Keys, e.log)
	if err := s.hotkeys.Start(); err != nil {
		s.Close()
		return nil, fmt.Errorf("start hotkey listener: %w", err)
	}
	e.log.LogStartup(backend.Name, e.cfg.Database, e.cfgPath, apiListen(e.cfg))
	return s, nil
}

func apiListen(cfg *config.Config) string {
	if !cfg.API.Enable {
		return ""
	}
	return cfg.API.Listen
}

// run applies hotkey intents until ctx is done, then stops any session and
// waits for it to be recorded.
func (s *services) run(ctx context.Context) error {
	err := s.orch.Run(ctx, s.hotkeys.Intents())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if serr := s.orch.Shutdown(shutdownCtx); serr != nil {
		return serr
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// watchConfig reapplies the settings section each time the config file
// changes. The section is laid over the defaults so removed keys revert.
func (s *services) watchConfig(ctx context.Context) {
	if !s.env.cfg.Watch {
		return
	}
	if _, err := os.Stat(s.env.cfgPath); err != nil {
		return
	}
	go func() {
		err := config.Watch(ctx, s.env.cfgPath, s.env.log, func(cfg *config.Config) {
			next, err := cfg.InitialSettings()
			if err != nil {
				s.env.log.Error("config reload: %v", err)
				return
			}
			if err := s.settings.LoadProfile(next.Record()); err != nil {
				s.env.log.Error("config reload: %v", err)
				return
			}
			s.env.log.Info("settings reloaded from %s", s.env.cfgPath)
		})
		if err != nil && ctx.Err() == nil {
			s.env.log.Error("config watch: %v", err)
		}
	}()
}

func (s *services) Close() {
	if s.hotkeys != nil {
		if err := s.hotkeys.Close(); err != nil {
			s.env.log.Verbose("close hotkeys: %v", err)
		}
	}
	if s.enforce != nil {
		s.enforce.Unsubscribe()
	}
	if err := s.backend.Close(); err != nil {
		s.env.log.Verbose("close backend: %v", err)
	}
	if err := s.store.Close(); err != nil {
		s.env.log.Error("close store: %v", err)
	}
}
