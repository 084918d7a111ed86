// Package keys normalizes keyboard key identifiers to one canonical string
// form shared by settings, profiles and the hotkey listener.
//
// Named keys are written "Key.<name>" (Key.f6, Key.space, Key.page_up).
// Printable keys are the character itself; ASCII letters are folded to lower
// case so a hotkey bound to "a" also fires with shift held.
package keys

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Prefix marks a named (non-printable) key.
const Prefix = "Key."

var (
	ErrEmptyKey   = errors.New("empty key")
	ErrUnknownKey = errors.New("unknown key")
)

// Named keys that can be bound as hotkeys.
var named = map[string]struct{}{}

var aliases = map[string]string{
	"escape":      "esc",
	"return":      "enter",
	"cr":          "enter",
	"bs":          "backspace",
	"del":         "delete",
	"ins":         "insert",
	"pgup":        "page_up",
	"pageup":      "page_up",
	"pgdn":        "page_down",
	"pagedown":    "page_down",
	"control":     "ctrl",
	"option":      "alt",
	"super":       "cmd",
	"win":         "cmd",
	"meta":        "cmd",
	"capslock":    "caps_lock",
	"printscreen": "print_screen",
	"prtsc":       "print_screen",
	"scrolllock":  "scroll_lock",
	"numlock":     "num_lock",
	"arrowup":     "up",
	"arrowdown":   "down",
	"arrowleft":   "left",
	"arrowright":  "right",
}

func init() {
	for i := 1; i <= 24; i++ {
		named[fmt.Sprintf("f%d", i)] = struct{}{}
	}
	for _, n := range []string{
		"esc", "space", "enter", "tab", "backspace", "delete", "insert",
		"home", "end", "page_up", "page_down", "up", "down", "left", "right",
		"shift", "shift_r", "ctrl", "ctrl_r", "alt", "alt_r", "alt_gr", "cmd", "cmd_r",
		"caps_lock", "print_screen", "scroll_lock", "pause", "num_lock", "menu",
	} {
		named[n] = struct{}{}
	}
}

// Canonical normalizes a user-supplied key name. Accepted spellings for a
// named key include "Key.f6", "f6", "F6" and "<F6>".
func Canonical(in string) (string, error) {
	s := strings.TrimSpace(in)
	if s == "" {
		// a bare space is a printable key
		if in == " " {
			return Prefix + "space", nil
		}
		return "", ErrEmptyKey
	}
	if strings.HasPrefix(s, "<") && strings.HasSuffix(s, ">") && len(s) > 2 {
		s = s[1 : len(s)-1]
	}
	s = strings.TrimPrefix(s, Prefix)

	if utf8.RuneCountInString(s) == 1 {
		r, _ := utf8.DecodeRuneInString(s)
		return Printable(r)
	}

	name := strings.ToLower(s)
	name = strings.ReplaceAll(name, "-", "_")
	if a, ok := aliases[strings.ReplaceAll(name, "_", "")]; ok {
		name = a
	}
	if _, ok := named[name]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKey, in)
	}
	return Prefix + name, nil
}

// Printable returns the canonical id for a typed character.
func Printable(r rune) (string, error) {
	switch {
	case r == ' ':
		return Prefix + "space", nil
	case r == '\t':
		return Prefix + "tab", nil
	case r == '\r' || r == '\n':
		return Prefix + "enter", nil
	case r < utf8.RuneSelf && unicode.IsLetter(r):
		return string(unicode.ToLower(r)), nil
	case unicode.IsPrint(r):
		return string(r), nil
	}
	return "", fmt.Errorf("%w: %U", ErrUnknownKey, r)
}

// Named builds the canonical id of a named key, or "" if the name is unknown.
func Named(name string) string {
	id, err := Canonical(Prefix + name)
	if err != nil || !IsNamed(id) {
		return ""
	}
	return id
}

// IsNamed reports whether id is a canonical named key.
func IsNamed(id string) bool {
	return strings.HasPrefix(id, Prefix) && len(id) > len(Prefix)
}

// Display strips the Key. prefix for presentation.
func Display(id string) string {
	if IsNamed(id) {
		return strings.TrimPrefix(id, Prefix)
	}
	return id
}

// Names lists every named key without the prefix, sorted.
func Names() []string {
	out := make([]string, 0, len(named))
	for n := range named {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
