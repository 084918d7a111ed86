package platform

import (
	"errors"
	"sort"
	"sync"

	hook "github.com/robotn/gohook"

	"github.com/tturner/smiteclick/internal/hotkey"
	"github.com/tturner/smiteclick/internal/keys"
)

var errHookRunning = errors.New("keyboard hook already running")

// HookSource reports global key transitions through gohook. The hook is
// process-wide, so only one HookSource may run at a time.
type HookSource struct {
	mu      sync.Mutex
	running bool
	done    chan struct{}
}

func NewHookSource() *HookSource {
	return &HookSource{}
}

var (
	hookMu      sync.Mutex
	hookRunning bool
)

func (h *HookSource) Start() (<-chan hotkey.KeyEvent, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return nil, errHookRunning
	}
	hookMu.Lock()
	if hookRunning {
		hookMu.Unlock()
		return nil, errHookRunning
	}
	hookRunning = true
	hookMu.Unlock()

	raw := hook.Start()
	out := make(chan hotkey.KeyEvent, 32)
	done := make(chan struct{})
	h.done = done
	h.running = true

	go func() {
		defer close(out)
		for {
			select {
			case <-done:
				return
			case ev, ok := <-raw:
				if !ok {
					return
				}
				ke, ok := translate(ev)
				if !ok {
					continue
				}
				select {
				case out <- ke:
				case <-done:
					return
				}
			}
		}
	}()
	return out, nil
}

func (h *HookSource) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.running {
		return nil
	}
	h.running = false
	close(h.done)
	hook.End()

	hookMu.Lock()
	hookRunning = false
	hookMu.Unlock()
	return nil
}

// translate maps a gohook event to a key transition. KeyHold is the
// physical press; KeyDown is the typed-character event and is ignored so
// each press is seen once.
func translate(ev hook.Event) (hotkey.KeyEvent, bool) {
	var action hotkey.Action
	switch ev.Kind {
	case hook.KeyHold:
		action = hotkey.KeyDown
	case hook.KeyUp:
		action = hotkey.KeyUp
	default:
		return hotkey.KeyEvent{}, false
	}
	return hotkey.KeyEvent{Action: action, Key: keyID(ev.Keycode, ev.Keychar)}, true
}

var (
	codeNamesOnce sync.Once
	codeNames     map[uint16]string
)

// keyID resolves a keycode to a canonical id, falling back to the typed
// character. It returns "" for keys with no canonical form.
func keyID(code uint16, char rune) string {
	codeNamesOnce.Do(buildCodeNames)
	if id, ok := codeNames[code]; ok {
		return id
	}
	if char != hook.CharUndefined && char != 0 {
		if id, err := keys.Printable(char); err == nil {
			return id
		}
	}
	return ""
}

// uiohook virtual key codes for named keys. gohook's own Keycode table
// covers printable keys but not the function row or navigation block.
var namedCodes = map[string]uint16{
	"f1": 0x003B, "f2": 0x003C, "f3": 0x003D, "f4": 0x003E, "f5": 0x003F, "f6": 0x0040,
	"f7": 0x0041, "f8": 0x0042, "f9": 0x0043, "f10": 0x0044, "f11": 0x0057, "f12": 0x0058,
	"f13": 0x005B, "f14": 0x005C, "f15": 0x005D, "f16": 0x0063, "f17": 0x0064, "f18": 0x0065,
	"f19": 0x0066, "f20": 0x0067, "f21": 0x0068, "f22": 0x0069, "f23": 0x006A, "f24": 0x006B,
	"esc": 0x0001, "backspace": 0x000E, "tab": 0x000F, "enter": 0x001C, "space": 0x0039,
	"caps_lock": 0x003A, "num_lock": 0x0045, "scroll_lock": 0x0046,
	"print_screen": 0x0E37, "pause": 0x0E45, "menu": 0x0E5D,
	"insert": 0x0E52, "delete": 0x0E53, "home": 0x0E47, "end": 0x0E4F,
	"page_up": 0x0E49, "page_down": 0x0E51,
	"up": 0xE048, "down": 0xE050, "left": 0xE04B, "right": 0xE04D,
	"shift": 0x002A, "shift_r": 0x0036, "ctrl": 0x001D, "ctrl_r": 0x0E1D,
	"alt": 0x0038, "alt_r": 0x0E38, "cmd": 0x0E5B, "cmd_r": 0x0E5C,
}

func buildCodeNames() {
	codeNames = make(map[uint16]string, len(namedCodes)+len(hook.Keycode))
	for name, code := range namedCodes {
		codeNames[code] = keys.Prefix + name
	}

	names := make([]string, 0, len(hook.Keycode))
	for name := range hook.Keycode {
		names = append(names, name)
	}
	// several names can share a keycode; the sorted walk keeps the choice
	// stable between runs
	sort.Strings(names)
	for _, name := range names {
		code := hook.Keycode[name]
		if _, taken := codeNames[code]; taken {
			continue
		}
		if id, err := keys.Canonical(name); err == nil {
			codeNames[code] = id
		}
	}
}
