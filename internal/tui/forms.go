package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/samber/lo"

	"github.com/tturner/smiteclick/internal/keys"
	"github.com/tturner/smiteclick/internal/settings"
)

// settingsDraft holds the form's editable values as strings and bools so
// huh can bind to them.
type settingsDraft struct {
	mode          string
	cps           string
	randomDelay   bool
	button        string
	clickType     string
	target        string
	x, y          string
	windowEnabled bool
	window        string
	limitEnabled  bool
	limit         string
	hotkeyMode    string
	start, stop   string
}

func draftFrom(s settings.Settings) *settingsDraft {
	return &settingsDraft{
		mode:          string(s.CPSMode),
		cps:           strconv.FormatFloat(s.CPS, 'f', -1, 64),
		randomDelay:   s.RandomDelay,
		button:        string(s.MouseButton),
		clickType:     string(s.ClickType),
		target:        string(s.TargetMode),
		x:             strconv.Itoa(s.SpecificPos.X),
		y:             strconv.Itoa(s.SpecificPos.Y),
		windowEnabled: s.WindowTargetingEnabled,
		window:        s.TargetWindow,
		limitEnabled:  s.ClickLimitEnabled,
		limit:         strconv.Itoa(s.ClickLimitCount),
		hotkeyMode:    string(s.HotkeyMode),
		start:         keys.Display(s.StartHotkey),
		stop:          keys.Display(s.StopHotkey),
	}
}

// record converts the draft into a settings record. cps is clamped into
// the chosen mode's band.
func (d *settingsDraft) record() (settings.Record, error) {
	cps, err := strconv.ParseFloat(strings.TrimSpace(d.cps), 64)
	if err != nil {
		return nil, fmt.Errorf("cps: %q is not a number", d.cps)
	}
	mode, ok := settings.ParseCPSMode(d.mode)
	if !ok {
		return nil, fmt.Errorf("cps mode: unknown %q", d.mode)
	}
	return settings.Record{
		string(settings.KeyCPSMode):                string(mode),
		string(settings.KeyCPS):                    settings.ClampToMode(cps, mode),
		string(settings.KeyRandomDelay):            d.randomDelay,
		string(settings.KeyMouseButton):            d.button,
		string(settings.KeyClickType):              d.clickType,
		string(settings.KeyTargetMode):             d.target,
		string(settings.KeySpecificPosX):           strings.TrimSpace(d.x),
		string(settings.KeySpecificPosY):           strings.TrimSpace(d.y),
		string(settings.KeyWindowTargetingEnabled): d.windowEnabled,
		string(settings.KeyTargetWindow):           strings.TrimSpace(d.window),
		string(settings.KeyClickLimitEnabled):      d.limitEnabled,
		string(settings.KeyClickLimitCount):        strings.TrimSpace(d.limit),
		string(settings.KeyHotkeyMode):             d.hotkeyMode,
		string(settings.KeyStartHotkey):            d.start,
		string(settings.KeyStopHotkey):             d.stop,
	}, nil
}

func validateNumber(min float64) func(string) error {
	return func(s string) error {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fmt.Errorf("enter a number")
		}
		if f < min {
			return fmt.Errorf("must be at least %v", min)
		}
		return nil
	}
}

func validateInt(min int) func(string) error {
	return func(s string) error {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("enter a whole number")
		}
		if n < min {
			return fmt.Errorf("must be at least %d", min)
		}
		return nil
	}
}

func validateKey(s string) error {
	_, err := keys.Canonical(s)
	return err
}

func buildSettingsForm(d *settingsDraft) *huh.Form {
	modeOptions := lo.Map(settings.Modes(), func(m settings.ModeInfo, _ int) huh.Option[string] {
		return huh.NewOption(fmt.Sprintf("%s (%g-%g cps)", m.Mode, m.Min, m.Max), string(m.Mode))
	})

	speed := huh.NewGroup(
		huh.NewSelect[string]().
			Title("CPS mode").
			Description("Faster modes ask for confirmation.").
			Options(modeOptions...).
			Value(&d.mode),
		huh.NewInput().
			Title("Clicks per second").
			Description("Clamped into the selected mode's range.").
			Validate(validateNumber(0)).
			Value(&d.cps),
		huh.NewConfirm().
			Title("Random delay").
			Description("Jitter each interval by up to 25%.").
			Value(&d.randomDelay),
	)

	click := huh.NewGroup(
		huh.NewSelect[string]().
			Title("Mouse button").
			Options(huh.NewOptions("left", "right", "middle")...).
			Value(&d.button),
		huh.NewSelect[string]().
			Title("Click type").
			Options(huh.NewOptions("single", "double")...).
			Value(&d.clickType),
		huh.NewSelect[string]().
			Title("Target").
			Options(
				huh.NewOption("Current cursor position", string(settings.TargetCurrent)),
				huh.NewOption("Specific position", string(settings.TargetSpecific)),
			).
			Value(&d.target),
	)

	position := huh.NewGroup(
		huh.NewInput().Title("X").Validate(validateInt(-1<<15)).Value(&d.x),
		huh.NewInput().Title("Y").Validate(validateInt(-1<<15)).Value(&d.y),
	).WithHideFunc(func() bool { return d.target != string(settings.TargetSpecific) })

	window := huh.NewGroup(
		huh.NewConfirm().
			Title("Only click inside a window").
			Value(&d.windowEnabled),
		huh.NewInput().
			Title("Window title").
			Description("Exact title, or a case-insensitive part of it.").
			Value(&d.window),
	)

	limit := huh.NewGroup(
		huh.NewConfirm().
			Title("Stop after a number of clicks").
			Value(&d.limitEnabled),
		huh.NewInput().
			Title("Click limit").
			Validate(validateInt(1)).
			Value(&d.limit),
	)

	hotkeys := huh.NewGroup(
		huh.NewSelect[string]().
			Title("Hotkey mode").
			Options(
				huh.NewOption("Toggle (press start, press stop)", string(settings.HotkeyToggle)),
				huh.NewOption("Hold (click while held)", string(settings.HotkeyHold)),
			).
			Value(&d.hotkeyMode),
		huh.NewInput().
			Title("Start hotkey").
			Description("e.g. f6, ctrl, q").
			Validate(validateKey).
			Value(&d.start),
		huh.NewInput().
			Title("Stop hotkey").
			Validate(validateKey).
			Value(&d.stop),
	)

	return huh.NewForm(speed, click, position, window, limit, hotkeys).WithShowHelp(true)
}

func buildSaveProfileForm(name *string) *huh.Form {
	return huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("Profile name").
			Description("Saves the current settings.").
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return fmt.Errorf("name is required")
				}
				return nil
			}).
			Value(name),
	))
}

func buildConfirmForm(title, description string, ok *bool) *huh.Form {
	return huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(title).
			Description(description).
			Affirmative("Yes").
			Negative("No").
			Value(ok),
	))
}

func buildWindowForm(titles []string, current string, choice *string) *huh.Form {
	*choice = current
	opts := huh.NewOptions(titles...)
	return huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title("Target window").
			Options(opts...).
			Value(choice),
	))
}

// commit validates rec as a whole and writes the fields that changed in a
// single store update.
func commit(st *settings.Store, rec settings.Record) ([]settings.Key, error) {
	return st.UpdateRecord(rec)
}
