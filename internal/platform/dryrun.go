package platform

import (
	"sort"
	"sync"

	"github.com/tturner/smiteclick/internal/clicker"
	"github.com/tturner/smiteclick/internal/hotkey"
	"github.com/tturner/smiteclick/internal/logging"
	"github.com/tturner/smiteclick/internal/settings"
)

// DryRun tracks a virtual cursor and logs clicks instead of injecting them.
// Hotkeys come from a channel source so the API and TUI can drive it.
type DryRun struct {
	mu      sync.Mutex
	x, y    int
	clicks  int64
	windows map[string]clicker.Rect
	log     *logging.Logger
}

func openDryRun(log *logging.Logger, windows map[string]clicker.Rect) *Backend {
	d := NewDryRun(log)
	for title, r := range windows {
		d.AddWindow(title, r)
	}
	if len(windows) > 0 {
		log.Verbose("dry-run: %d virtual windows", len(windows))
	}
	return &Backend{
		Name:    BackendDryRun,
		Pointer: d,
		Windows: d,
		Keys:    hotkey.NewChanSource(),
	}
}

func NewDryRun(log *logging.Logger) *DryRun {
	if log == nil {
		log = logging.Discard()
	}
	return &DryRun{windows: make(map[string]clicker.Rect), log: log}
}

// AddWindow registers a virtual window for targeting.
func (d *DryRun) AddWindow(title string, r clicker.Rect) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.windows[title] = r
}

func (d *DryRun) Clicks() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.clicks
}

func (d *DryRun) MoveCursor(x, y int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.x, d.y = x, y
	return nil
}

func (d *DryRun) Click(button settings.MouseButton, clickType settings.ClickType) error {
	d.mu.Lock()
	d.clicks++
	x, y := d.x, d.y
	d.mu.Unlock()
	d.log.Debug("dry-run: %s %s click at (%d, %d)", clickType, button, x, y)
	return nil
}

func (d *DryRun) CurrentPosition() (int, int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.x, d.y, nil
}

func (d *DryRun) ListWindowTitles() ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	titles := make([]string, 0, len(d.windows))
	for t := range d.windows {
		titles = append(titles, t)
	}
	sort.Strings(titles)
	return uniqueTitles(titles), nil
}

func (d *DryRun) FindWindowByTitle(title string) (clicker.Rect, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	titles := make([]string, 0, len(d.windows))
	for t := range d.windows {
		titles = append(titles, t)
	}
	sort.Strings(titles)
	i := MatchTitle(titles, title)
	if i < 0 {
		return clicker.Rect{}, clicker.ErrWindowNotFound
	}
	return d.windows[titles[i]], nil
}
