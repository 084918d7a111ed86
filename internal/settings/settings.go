// Package settings holds the clicker configuration record and the store that
// shares it between the control surface, the hotkey listener and the click
// loop.
package settings

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/tturner/smiteclick/internal/keys"
)

// ErrInvalidSetting is returned for unknown keys and out-of-domain values.
var ErrInvalidSetting = errors.New("invalid setting")

// ErrHotkeyConflict is returned by ApplyRecord when start and stop end up
// on the same key.
var ErrHotkeyConflict = errors.New("hotkey conflict")

// Key names one field of the settings record.
type Key string

const (
	KeyCPS                    Key = "cps"
	KeyCPSMode                Key = "cps_mode"
	KeyRandomDelay            Key = "random_delay"
	KeyMouseButton            Key = "mouse_button"
	KeyClickType              Key = "click_type"
	KeyTargetMode             Key = "target_mode"
	KeySpecificPos            Key = "specific_pos"
	KeySpecificPosX           Key = "specific_pos_x"
	KeySpecificPosY           Key = "specific_pos_y"
	KeyWindowTargetingEnabled Key = "window_targeting_enabled"
	KeyTargetWindow           Key = "target_window"
	KeyClickLimitEnabled      Key = "click_limit_enabled"
	KeyClickLimitCount        Key = "click_limit_count"
	KeyHotkeyMode             Key = "hotkey_mode"
	KeyStartHotkey            Key = "start_hotkey"
	KeyStopHotkey             Key = "stop_hotkey"
)

// recordKeys is the persisted field set, in display order. KeySpecificPos is
// an update-only alias for the x/y pair.
var recordKeys = []Key{
	KeyCPS, KeyCPSMode, KeyRandomDelay, KeyMouseButton, KeyClickType,
	KeyTargetMode, KeySpecificPosX, KeySpecificPosY,
	KeyWindowTargetingEnabled, KeyTargetWindow,
	KeyClickLimitEnabled, KeyClickLimitCount,
	KeyHotkeyMode, KeyStartHotkey, KeyStopHotkey,
}

// Keys returns the persisted keys in display order.
func Keys() []Key {
	out := make([]Key, len(recordKeys))
	copy(out, recordKeys)
	return out
}

// ParseKey resolves a key name. Unknown names yield ErrInvalidSetting.
func ParseKey(name string) (Key, error) {
	k := Key(name)
	if k == KeySpecificPos {
		return k, nil
	}
	for _, rk := range recordKeys {
		if rk == k {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: unknown key %q", ErrInvalidSetting, name)
}

type MouseButton string

const (
	ButtonLeft   MouseButton = "left"
	ButtonRight  MouseButton = "right"
	ButtonMiddle MouseButton = "middle"
)

type ClickType string

const (
	ClickSingle ClickType = "single"
	ClickDouble ClickType = "double"
)

// Presses is the number of press/release pairs per click.
func (c ClickType) Presses() int {
	if c == ClickDouble {
		return 2
	}
	return 1
}

type TargetMode string

const (
	TargetCurrent  TargetMode = "current_pos"
	TargetSpecific TargetMode = "specific_pos"
)

type HotkeyMode string

const (
	HotkeyToggle HotkeyMode = "Toggle"
	HotkeyHold   HotkeyMode = "Hold"
)

// Point is a raw screen coordinate.
type Point struct {
	X int
	Y int
}

func (p Point) String() string { return fmt.Sprintf("(%d, %d)", p.X, p.Y) }

// Settings is a complete configuration snapshot. It has no reference
// fields, so assigning it copies it.
type Settings struct {
	CPS                    float64
	CPSMode                CPSMode
	RandomDelay            bool
	MouseButton            MouseButton
	ClickType              ClickType
	TargetMode             TargetMode
	SpecificPos            Point
	WindowTargetingEnabled bool
	TargetWindow           string
	ClickLimitEnabled      bool
	ClickLimitCount        int
	HotkeyMode             HotkeyMode
	StartHotkey            string
	StopHotkey             string
}

// Defaults returns the startup configuration.
func Defaults() Settings {
	return Settings{
		CPS:             10,
		CPSMode:         ModeNormal,
		MouseButton:     ButtonLeft,
		ClickType:       ClickSingle,
		TargetMode:      TargetCurrent,
		SpecificPos:     Point{X: 100, Y: 100},
		ClickLimitCount: 1000,
		HotkeyMode:      HotkeyToggle,
		StartHotkey:     keys.Prefix + "f6",
		StopHotkey:      keys.Prefix + "f7",
	}
}

// Validate checks every field against its domain.
func (s Settings) Validate() error {
	var errs []error
	if math.IsNaN(s.CPS) || math.IsInf(s.CPS, 0) || s.CPS < 0 {
		errs = append(errs, fmt.Errorf("cps must be a finite number >= 0, got %v", s.CPS))
	}
	if _, ok := s.CPSMode.Info(); !ok {
		errs = append(errs, fmt.Errorf("unknown cps_mode %q", s.CPSMode))
	}
	switch s.MouseButton {
	case ButtonLeft, ButtonRight, ButtonMiddle:
	default:
		errs = append(errs, fmt.Errorf("unknown mouse_button %q", s.MouseButton))
	}
	switch s.ClickType {
	case ClickSingle, ClickDouble:
	default:
		errs = append(errs, fmt.Errorf("unknown click_type %q", s.ClickType))
	}
	switch s.TargetMode {
	case TargetCurrent, TargetSpecific:
	default:
		errs = append(errs, fmt.Errorf("unknown target_mode %q", s.TargetMode))
	}
	if s.ClickLimitCount < 1 {
		errs = append(errs, fmt.Errorf("click_limit_count must be >= 1, got %d", s.ClickLimitCount))
	}
	switch s.HotkeyMode {
	case HotkeyToggle, HotkeyHold:
	default:
		errs = append(errs, fmt.Errorf("unknown hotkey_mode %q", s.HotkeyMode))
	}
	for _, hk := range []string{s.StartHotkey, s.StopHotkey} {
		if c, err := keys.Canonical(hk); err != nil || c != hk {
			errs = append(errs, fmt.Errorf("hotkey %q is not a canonical key id", hk))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidSetting, errors.Join(errs...))
	}
	return nil
}

// HotkeyConflict reports whether start and stop are bound to the same key.
// Only Toggle mode uses the stop key, but control surfaces reject the
// collision in both modes.
func (s Settings) HotkeyConflict() bool {
	return s.StartHotkey == s.StopHotkey
}

// Record is the order-independent key/value form used by persistence,
// profile files, config overrides and the HTTP API.
type Record map[string]any

// Record converts the snapshot to its persisted form.
func (s Settings) Record() Record {
	return Record{
		string(KeyCPS):                    s.CPS,
		string(KeyCPSMode):                string(s.CPSMode),
		string(KeyRandomDelay):            s.RandomDelay,
		string(KeyMouseButton):            string(s.MouseButton),
		string(KeyClickType):              string(s.ClickType),
		string(KeyTargetMode):             string(s.TargetMode),
		string(KeySpecificPosX):           s.SpecificPos.X,
		string(KeySpecificPosY):           s.SpecificPos.Y,
		string(KeyWindowTargetingEnabled): s.WindowTargetingEnabled,
		string(KeyTargetWindow):           s.TargetWindow,
		string(KeyClickLimitEnabled):      s.ClickLimitEnabled,
		string(KeyClickLimitCount):        s.ClickLimitCount,
		string(KeyHotkeyMode):             string(s.HotkeyMode),
		string(KeyStartHotkey):            s.StartHotkey,
		string(KeyStopHotkey):             s.StopHotkey,
	}
}

// SortedKeys returns the record's keys in lexical order.
func (r Record) SortedKeys() []string {
	out := make([]string, 0, len(r))
	for k := range r {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Get returns the current value of key in its record form.
func (s Settings) Get(key Key) (any, bool) {
	if key == KeySpecificPos {
		return s.SpecificPos, true
	}
	v, ok := s.Record()[string(key)]
	return v, ok
}

// Apply returns a copy of s with one field changed. s is left untouched
// when the value is rejected.
func (s Settings) Apply(key Key, value any) (Settings, error) {
	next := s
	if err := next.set(key, value); err != nil {
		return s, fmt.Errorf("%w: %s: %w", ErrInvalidSetting, key, err)
	}
	return next, nil
}

// ApplyRecord applies every entry of rec in key order and checks the result
// for a hotkey collision. Unknown keys are errors here, unlike
// Store.LoadProfile.
func (s Settings) ApplyRecord(rec Record) (Settings, error) {
	next := s
	for _, name := range rec.SortedKeys() {
		k, err := ParseKey(name)
		if err != nil {
			return s, err
		}
		if next, err = next.Apply(k, rec[name]); err != nil {
			return s, err
		}
	}
	if next.HotkeyConflict() {
		return s, fmt.Errorf("%w: start_hotkey and stop_hotkey are both %s", ErrHotkeyConflict, next.StartHotkey)
	}
	return next, nil
}

// Diff lists the persisted keys whose values differ between a and b, in
// display order.
func Diff(a, b Settings) []Key {
	ra, rb := a.Record(), b.Record()
	var out []Key
	for _, k := range recordKeys {
		if ra[string(k)] != rb[string(k)] {
			out = append(out, k)
		}
	}
	return out
}

func (s *Settings) set(key Key, value any) error {
	switch key {
	case KeyCPS:
		f, err := toFloat(value)
		if err != nil {
			return err
		}
		if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
			return fmt.Errorf("must be a finite number >= 0, got %v", f)
		}
		s.CPS = f
	case KeyCPSMode:
		str, err := toString(value)
		if err != nil {
			return err
		}
		m, ok := ParseCPSMode(str)
		if !ok {
			return fmt.Errorf("unknown mode %q", str)
		}
		s.CPSMode = m
	case KeyRandomDelay:
		return setBool(&s.RandomDelay, value)
	case KeyMouseButton:
		str, err := toString(value)
		if err != nil {
			return err
		}
		b := MouseButton(lower(str))
		switch b {
		case ButtonLeft, ButtonRight, ButtonMiddle:
			s.MouseButton = b
		default:
			return fmt.Errorf("want left, right or middle, got %q", str)
		}
	case KeyClickType:
		ct, err := toClickType(value)
		if err != nil {
			return err
		}
		s.ClickType = ct
	case KeyTargetMode:
		str, err := toString(value)
		if err != nil {
			return err
		}
		m := TargetMode(lower(str))
		switch m {
		case TargetCurrent, TargetSpecific:
			s.TargetMode = m
		default:
			return fmt.Errorf("want current_pos or specific_pos, got %q", str)
		}
	case KeySpecificPos:
		p, err := toPoint(value)
		if err != nil {
			return err
		}
		s.SpecificPos = p
	case KeySpecificPosX:
		return setInt(&s.SpecificPos.X, value)
	case KeySpecificPosY:
		return setInt(&s.SpecificPos.Y, value)
	case KeyWindowTargetingEnabled:
		return setBool(&s.WindowTargetingEnabled, value)
	case KeyTargetWindow:
		if value == nil {
			s.TargetWindow = ""
			return nil
		}
		str, err := toString(value)
		if err != nil {
			return err
		}
		s.TargetWindow = str
	case KeyClickLimitEnabled:
		return setBool(&s.ClickLimitEnabled, value)
	case KeyClickLimitCount:
		n, err := toInt(value)
		if err != nil {
			return err
		}
		if n < 1 {
			return fmt.Errorf("must be >= 1, got %d", n)
		}
		s.ClickLimitCount = n
	case KeyHotkeyMode:
		str, err := toString(value)
		if err != nil {
			return err
		}
		m, ok := parseHotkeyMode(str)
		if !ok {
			return fmt.Errorf("want Toggle or Hold, got %q", str)
		}
		s.HotkeyMode = m
	case KeyStartHotkey:
		return setHotkey(&s.StartHotkey, value)
	case KeyStopHotkey:
		return setHotkey(&s.StopHotkey, value)
	default:
		return fmt.Errorf("unknown key")
	}
	return nil
}

func parseHotkeyMode(s string) (HotkeyMode, bool) {
	switch lower(s) {
	case "toggle":
		return HotkeyToggle, true
	case "hold":
		return HotkeyHold, true
	}
	return "", false
}

func setBool(dst *bool, value any) error {
	b, err := toBool(value)
	if err != nil {
		return err
	}
	*dst = b
	return nil
}

func setInt(dst *int, value any) error {
	n, err := toInt(value)
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

func setHotkey(dst *string, value any) error {
	str, err := toString(value)
	if err != nil {
		return err
	}
	id, err := keys.Canonical(str)
	if err != nil {
		return err
	}
	*dst = id
	return nil
}
