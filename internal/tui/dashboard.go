package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tturner/smiteclick/internal/keys"
	"github.com/tturner/smiteclick/internal/orch"
	"github.com/tturner/smiteclick/internal/progress"
	"github.com/tturner/smiteclick/internal/settings"
)

func (m model) updateDashboard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, dashKeys.Quit):
		return m, tea.Quit
	case key.Matches(msg, dashKeys.Start):
		if !m.deps.Control.Start() {
			m.notify("Already clicking")
		}
		m.refresh()
	case key.Matches(msg, dashKeys.Stop):
		if !m.deps.Control.Stop() {
			m.notify("Not clicking")
		}
		m.refresh()
	case key.Matches(msg, dashKeys.Toggle):
		m.deps.Control.Toggle()
		m.refresh()
	case key.Matches(msg, dashKeys.Settings):
		m.draft = draftFrom(m.deps.Settings.Snapshot())
		return m, m.openForm(formSettings, buildSettingsForm(m.draft))
	case key.Matches(msg, dashKeys.Profiles):
		m.screen = screenProfiles
		m.cursor = 0
		return m, m.loadProfilesCmd()
	case key.Matches(msg, dashKeys.Logs):
		m.screen = screenLogs
		m.cursor = 0
		return m, m.loadLogsCmd()
	case key.Matches(msg, dashKeys.Window):
		return m, m.listWindowsCmd()
	case key.Matches(msg, dashKeys.CopyPos):
		return m, m.copyPositionCmd()
	case key.Matches(msg, dashKeys.MarkPos):
		return m, m.markPositionCmd()
	case key.Matches(msg, dashKeys.StartKey):
		m.capturing = settings.KeyStartHotkey
		m.notify("Press the new start hotkey...")
		return m, m.captureCmd(settings.KeyStartHotkey)
	case key.Matches(msg, dashKeys.StopKey):
		m.capturing = settings.KeyStopHotkey
		m.notify("Press the new stop hotkey...")
		return m, m.captureCmd(settings.KeyStopHotkey)
	}
	return m, nil
}

var errNoPointer = errors.New("cursor position is not available on this backend")

func (m model) copyPositionCmd() tea.Cmd {
	ptr := m.deps.Pointer
	return func() tea.Msg {
		if ptr == nil {
			return doneMsg{err: errNoPointer}
		}
		x, y, err := ptr.CurrentPosition()
		if err != nil {
			return doneMsg{err: fmt.Errorf("cursor position: %w", err)}
		}
		text := fmt.Sprintf("%d, %d", x, y)
		if err := clipboard.WriteAll(text); err != nil {
			return doneMsg{err: fmt.Errorf("copy to clipboard: %w", err)}
		}
		return doneMsg{text: "Copied " + text}
	}
}

// markPositionCmd targets the current cursor position for future clicks.
func (m model) markPositionCmd() tea.Cmd {
	ptr, st := m.deps.Pointer, m.deps.Settings
	return func() tea.Msg {
		if ptr == nil {
			return doneMsg{err: errNoPointer}
		}
		x, y, err := ptr.CurrentPosition()
		if err != nil {
			return doneMsg{err: fmt.Errorf("cursor position: %w", err)}
		}
		_, err = commit(st, settings.Record{
			string(settings.KeyTargetMode):   string(settings.TargetSpecific),
			string(settings.KeySpecificPosX): x,
			string(settings.KeySpecificPosY): y,
		})
		if err != nil {
			return doneMsg{err: err}
		}
		return doneMsg{text: fmt.Sprintf("Clicking at (%d, %d)", x, y)}
	}
}

func (m model) listWindowsCmd() tea.Cmd {
	w := m.deps.Windows
	return func() tea.Msg {
		if w == nil {
			return windowsMsg{err: errors.New("window listing is not available on this backend")}
		}
		titles, err := w.ListWindowTitles()
		return windowsMsg{titles: titles, err: err}
	}
}

func (m model) openWindowPicker(msg windowsMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.fail(msg.err)
		return m, nil
	}
	if len(msg.titles) == 0 {
		m.fail(errors.New("no windows found"))
		return m, nil
	}
	return m, m.openForm(formWindow, buildWindowForm(msg.titles, m.snap.TargetWindow, &m.vals.choice))
}

func (m model) viewDashboard() string {
	s := m.styles
	var b strings.Builder

	b.WriteString(m.viewStatus())
	b.WriteString("\n\n")

	rows := [][2]string{
		{"Speed", m.speedLabel()},
		{"Button", fmt.Sprintf("%s, %s click", m.snap.MouseButton, m.snap.ClickType)},
		{"Target", m.targetLabel()},
		{"Window", m.windowLabel()},
		{"Limit", m.limitLabel()},
		{"Hotkeys", fmt.Sprintf("%s start, %s stop (%s)",
			keys.Display(m.snap.StartHotkey), keys.Display(m.snap.StopHotkey), m.snap.HotkeyMode)},
	}
	var box strings.Builder
	for i, r := range rows {
		if i > 0 {
			box.WriteString("\n")
		}
		box.WriteString(s.Label.Render(r[0]))
		box.WriteString(s.Base.Render(r[1]))
	}
	b.WriteString(s.Box.Render(box.String()))
	b.WriteString("\n\n")

	if m.capturing != "" {
		b.WriteString(s.Warning.Render(fmt.Sprintf("Recording %s: press any key", m.capturing)))
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(dashKeys))
	return b.String()
}

func (m model) viewStatus() string {
	s := m.styles
	st := m.status
	line := PhaseIcon(string(st.Phase), s) + " "
	switch st.Phase {
	case orch.PhaseRunning, orch.PhaseStopping:
		elapsed := m.now().Sub(st.StartedAt)
		line += s.Running.Render(strings.ToUpper(string(st.Phase)))
		line += s.Base.Render(fmt.Sprintf("  %d clicks  %s", st.Count, progress.FormatDuration(elapsed)))
		if m.snap.ClickLimitEnabled && m.snap.ClickLimitCount > 0 {
			pct := float64(st.Count) / float64(m.snap.ClickLimitCount)
			if pct > 1 {
				pct = 1
			}
			line += "\n" + m.bar.ViewAs(pct)
		}
	default:
		line += s.Dim.Render("IDLE")
	}
	return line
}

func (m model) speedLabel() string {
	label := strconv.FormatFloat(m.snap.CPS, 'f', -1, 64) + " cps (" + string(m.snap.CPSMode) + ")"
	if m.snap.RandomDelay {
		label += ", random delay"
	}
	return label
}

func (m model) targetLabel() string {
	if m.snap.TargetMode == settings.TargetSpecific {
		return "at " + m.snap.SpecificPos.String()
	}
	return "current cursor position"
}

func (m model) windowLabel() string {
	if !m.snap.WindowTargetingEnabled {
		return CheckboxIcon(false, m.styles) + " any window"
	}
	title := m.snap.TargetWindow
	if title == "" {
		title = "(no title set)"
	}
	return CheckboxIcon(true, m.styles) + " " + title
}

func (m model) limitLabel() string {
	if !m.snap.ClickLimitEnabled {
		return CheckboxIcon(false, m.styles) + " unlimited"
	}
	return CheckboxIcon(true, m.styles) + " " + strconv.Itoa(m.snap.ClickLimitCount) + " clicks"
}

