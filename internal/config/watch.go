package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tturner/smiteclick/internal/logging"
)

// Debounce collapses the burst of events editors produce on save.
const Debounce = 200 * time.Millisecond

// Watch calls onChange with the reloaded config every time the file at
// path changes, until ctx is done. The parent directory is watched so
// editors that save by rename are still seen. Invalid edits are logged and
// skipped.
func Watch(ctx context.Context, path string, log *logging.Logger, onChange func(*Config)) error {
	if log == nil {
		log = logging.Discard()
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(absPath)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(absPath), err)
	}

	timer := time.NewTimer(Debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != absPath {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			timer.Reset(Debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Error("config watcher: %v", err)
		case <-timer.C:
			cfg, err := Load(absPath, false)
			if err != nil {
				log.Error("reload %s: %v", absPath, err)
				continue
			}
			log.Info("reloaded %s", absPath)
			onChange(cfg)
		}
	}
}
