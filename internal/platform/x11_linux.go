//go:build linux

package platform

import (
	"fmt"
	"sync"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgb/xtest"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xwindow"

	"github.com/tturner/smiteclick/internal/clicker"
	"github.com/tturner/smiteclick/internal/settings"
)

// x11 drives the pointer through XTEST and reads window geometry through
// EWMH. It talks to the X server directly, without cgo.
type x11 struct {
	mu   sync.Mutex
	xu   *xgbutil.XUtil
	conn *xgb.Conn
	root xproto.Window
}

func openX11() (*Backend, error) {
	xu, err := xgbutil.NewConn()
	if err != nil {
		return nil, fmt.Errorf("connect to X server: %w", err)
	}
	conn := xu.Conn()
	if err := xtest.Init(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("init XTEST extension: %w", err)
	}
	x := &x11{xu: xu, conn: conn, root: xu.RootWin()}
	return &Backend{
		Name:    BackendX11,
		Pointer: x,
		Windows: x,
		Keys:    NewHookSource(),
		closeFn: func() error {
			conn.Close()
			return nil
		},
	}, nil
}

func (x *x11) CurrentPosition() (int, int, error) {
	reply, err := xproto.QueryPointer(x.conn, x.root).Reply()
	if err != nil {
		return 0, 0, fmt.Errorf("query pointer: %w", err)
	}
	return int(reply.RootX), int(reply.RootY), nil
}

func (x *x11) MoveCursor(px, py int) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	return xproto.WarpPointerChecked(
		x.conn,
		xproto.WindowNone,
		x.root,
		0,
		0,
		0,
		0,
		clampInt16(px),
		clampInt16(py),
	).Check()
}

func (x *x11) Click(button settings.MouseButton, clickType settings.ClickType) error {
	detail := xButton(button)

	x.mu.Lock()
	defer x.mu.Unlock()
	for i := 0; i < clickType.Presses(); i++ {
		for _, kind := range []byte{xproto.ButtonPress, xproto.ButtonRelease} {
			if err := xtest.FakeInputChecked(
				x.conn,
				kind,
				detail,
				xproto.TimeCurrentTime,
				x.root,
				0,
				0,
				0,
			).Check(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (x *x11) ListWindowTitles() ([]string, error) {
	_, titles, err := x.clients()
	if err != nil {
		return nil, err
	}
	return uniqueTitles(titles), nil
}

func (x *x11) FindWindowByTitle(title string) (clicker.Rect, error) {
	wins, titles, err := x.clients()
	if err != nil {
		return clicker.Rect{}, err
	}
	i := MatchTitle(titles, title)
	if i < 0 {
		return clicker.Rect{}, clicker.ErrWindowNotFound
	}
	geom, err := xwindow.New(x.xu, wins[i]).DecorGeometry()
	if err != nil {
		// the window can vanish between listing and the geometry query
		return clicker.Rect{}, clicker.ErrWindowNotFound
	}
	return clicker.Rect{Left: geom.X(), Top: geom.Y(), Width: geom.Width(), Height: geom.Height()}, nil
}

// clients lists managed top-level windows that are not minimized.
func (x *x11) clients() ([]xproto.Window, []string, error) {
	ids, err := ewmh.ClientListGet(x.xu)
	if err != nil {
		return nil, nil, fmt.Errorf("read _NET_CLIENT_LIST: %w", err)
	}
	wins := make([]xproto.Window, 0, len(ids))
	titles := make([]string, 0, len(ids))
	for _, w := range ids {
		if x.hidden(w) {
			continue
		}
		wins = append(wins, w)
		titles = append(titles, x.title(w))
	}
	return wins, titles, nil
}

func (x *x11) title(w xproto.Window) string {
	if name, err := ewmh.WmNameGet(x.xu, w); err == nil && name != "" {
		return name
	}
	if name, err := icccm.WmNameGet(x.xu, w); err == nil {
		return name
	}
	return ""
}

func (x *x11) hidden(w xproto.Window) bool {
	states, err := ewmh.WmStateGet(x.xu, w)
	if err != nil {
		return false
	}
	for _, s := range states {
		if s == "_NET_WM_STATE_HIDDEN" {
			return true
		}
	}
	return false
}

func xButton(b settings.MouseButton) byte {
	switch b {
	case settings.ButtonMiddle:
		return byte(xproto.ButtonIndex2)
	case settings.ButtonRight:
		return byte(xproto.ButtonIndex3)
	default:
		return byte(xproto.ButtonIndex1)
	}
}

func clampInt16(v int) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}
