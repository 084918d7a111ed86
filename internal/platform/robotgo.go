package platform

import (
	"sync"

	"github.com/go-vgo/robotgo"

	"github.com/tturner/smiteclick/internal/clicker"
	"github.com/tturner/smiteclick/internal/settings"
)

// robotgoPointer covers Windows, macOS and X11 through robotgo's native
// bindings.
type robotgoPointer struct {
	mu sync.Mutex
}

func openRobotgo() *Backend {
	p := &robotgoPointer{}
	return &Backend{
		Name:    BackendRobotgo,
		Pointer: p,
		Windows: p,
		Keys:    NewHookSource(),
	}
}

func (p *robotgoPointer) MoveCursor(x, y int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	robotgo.Move(x, y)
	return nil
}

func (p *robotgoPointer) Click(button settings.MouseButton, clickType settings.ClickType) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	robotgo.Click(string(button), clickType == settings.ClickDouble)
	return nil
}

func (p *robotgoPointer) CurrentPosition() (int, int, error) {
	x, y := robotgo.Location()
	return x, y, nil
}

type robotgoWindow struct {
	pid   int
	title string
}

func (p *robotgoPointer) windows() ([]robotgoWindow, error) {
	pids, err := robotgo.Pids()
	if err != nil {
		return nil, err
	}
	out := make([]robotgoWindow, 0, len(pids))
	for _, pid := range pids {
		if t := robotgo.GetTitle(pid); t != "" {
			out = append(out, robotgoWindow{pid: pid, title: t})
		}
	}
	return out, nil
}

func (p *robotgoPointer) ListWindowTitles() ([]string, error) {
	wins, err := p.windows()
	if err != nil {
		return nil, err
	}
	titles := make([]string, len(wins))
	for i, w := range wins {
		titles[i] = w.title
	}
	return uniqueTitles(titles), nil
}

func (p *robotgoPointer) FindWindowByTitle(title string) (clicker.Rect, error) {
	wins, err := p.windows()
	if err != nil {
		return clicker.Rect{}, err
	}
	titles := make([]string, len(wins))
	for i, w := range wins {
		titles[i] = w.title
	}
	i := MatchTitle(titles, title)
	if i < 0 {
		return clicker.Rect{}, clicker.ErrWindowNotFound
	}
	x, y, w, h := robotgo.GetBounds(wins[i].pid)
	if w <= 0 || h <= 0 {
		return clicker.Rect{}, clicker.ErrWindowNotFound
	}
	return clicker.Rect{Left: x, Top: y, Width: w, Height: h}, nil
}
