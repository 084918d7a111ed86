// Package platform opens the input backends that move the cursor, inject
// clicks, locate windows and report global key events.
package platform

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/tturner/smiteclick/internal/clicker"
	"github.com/tturner/smiteclick/internal/hotkey"
	"github.com/tturner/smiteclick/internal/logging"
)

// Backend names accepted by Open.
const (
	BackendAuto    = "auto"
	BackendX11     = "x11"
	BackendRobotgo = "robotgo"
	BackendDryRun  = "dry-run"
)

// Names lists the selectable backends.
func Names() []string {
	return []string{BackendAuto, BackendX11, BackendRobotgo, BackendDryRun}
}

// Backend bundles the capabilities one platform provides.
type Backend struct {
	Name    string
	Pointer clicker.Pointer
	Windows clicker.WindowFinder
	Keys    hotkey.Source

	closeFn func() error
}

// Close releases the backend's display connection, if any.
func (b *Backend) Close() error {
	if b.closeFn == nil {
		return nil
	}
	return b.closeFn()
}

// Options configures Open.
type Options struct {
	Logger *logging.Logger
	// Windows seeds the dry-run backend's virtual windows by title.
	Windows map[string]clicker.Rect
}

// Open returns the named backend. "auto" prefers x11 when a display is
// available and falls back to robotgo.
func Open(name string, opts Options) (*Backend, error) {
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", BackendAuto:
		if runtime.GOOS == "linux" && os.Getenv("DISPLAY") != "" {
			b, err := openX11()
			if err == nil {
				log.Verbose("platform: using x11 backend")
				return b, nil
			}
			log.Verbose("platform: x11 unavailable (%v), falling back to robotgo", err)
		}
		return openRobotgo(), nil
	case BackendX11:
		return openX11()
	case BackendRobotgo:
		return openRobotgo(), nil
	case BackendDryRun:
		return openDryRun(log, opts.Windows), nil
	}
	return nil, fmt.Errorf("unknown backend %q (want one of %s)", name, strings.Join(Names(), ", "))
}
