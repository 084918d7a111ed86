// Package tui is the interactive terminal dashboard: live session status,
// a settings editor, profile and log management, and hotkey recording.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/samber/lo"

	"github.com/tturner/smiteclick/internal/clicker"
	"github.com/tturner/smiteclick/internal/hotkey"
	"github.com/tturner/smiteclick/internal/logging"
	"github.com/tturner/smiteclick/internal/orch"
	"github.com/tturner/smiteclick/internal/settings"
	"github.com/tturner/smiteclick/internal/store"
)

const (
	tickInterval   = 200 * time.Millisecond
	storeTimeout   = 5 * time.Second
	captureTimeout = 10 * time.Second
)

// Controller is the part of the orchestrator the dashboard drives.
type Controller interface {
	Start() bool
	Stop() bool
	Toggle()
	Status() orch.Status
}

// Deps are the services the dashboard works against. Store, Pointer,
// Windows, Hotkeys and KeySource may be nil; the matching actions then
// report that they are unavailable.
type Deps struct {
	Control   Controller
	Settings  *settings.Store
	Store     *store.Store
	Pointer   clicker.Pointer
	Windows   clicker.WindowFinder
	Hotkeys   *hotkey.Controller
	KeySource hotkey.Source
	Logger    *logging.Logger
	Version   string
}

// Run shows the dashboard until the user quits.
func Run(deps Deps) error {
	if deps.Logger != nil {
		deps.Logger.SetOutput(io.Discard, io.Discard)
	}
	program := tea.NewProgram(newModel(deps), tea.WithAltScreen())
	_, err := program.Run()
	return err
}

type screen int

const (
	screenDashboard screen = iota
	screenProfiles
	screenLogs
)

type formKind int

const (
	formNone formKind = iota
	formSettings
	formSaveProfile
	formDeleteProfile
	formDeleteLog
	formClearLogs
	formWindow
)

type (
	tickMsg     time.Time
	profilesMsg struct {
		items []store.ProfileSummary
		err   error
	}
	logsMsg struct {
		items []store.LogEntry
		err   error
	}
	windowsMsg struct {
		titles []string
		err    error
	}
	capturedMsg struct {
		key settings.Key
		id  string
		err error
	}
	// doneMsg reports the outcome of a background action.
	doneMsg struct {
		text string
		err  error
	}
)

// formValues lives on the heap so huh fields stay bound across the model
// copies bubbletea makes.
type formValues struct {
	name    string
	confirm bool
	choice  string
}

type model struct {
	deps   Deps
	styles Styles
	now    func() time.Time

	screen   screen
	status   orch.Status
	snap     settings.Settings
	lastSeen string

	message string
	isErr   bool

	form     *huh.Form
	formKind formKind
	draft    *settingsDraft
	vals     *formValues
	dialog   *warningDialog

	profiles []store.ProfileSummary
	logs     []store.LogEntry
	cursor   int

	capturing settings.Key

	bar   progress.Model
	help  help.Model
	width int
}

func newModel(deps Deps) model {
	m := model{
		deps:   deps,
		styles: DefaultStyles,
		now:    time.Now,
		vals:   &formValues{},
		bar:    progress.New(progress.WithGradient(DefaultStyles.BarFrom, DefaultStyles.BarTo), progress.WithWidth(40)),
		help:   help.New(),
	}
	m.refresh()
	if m.status.Last != nil {
		m.lastSeen = m.status.Last.SessionID
	}
	return m
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func storeCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), storeTimeout)
}

func (m model) Init() tea.Cmd {
	return tick()
}

func (m *model) refresh() {
	if m.deps.Control != nil {
		m.status = m.deps.Control.Status()
	}
	m.snap = m.deps.Settings.Snapshot()

	if last := m.status.Last; last != nil && last.SessionID != m.lastSeen {
		m.lastSeen = last.SessionID
		m.notify(sessionSummary(*last))
	}
}

func sessionSummary(r clicker.Result) string {
	s := fmt.Sprintf("Session finished: %d clicks in %s (%s)",
		r.Count, r.Duration().Round(100*time.Millisecond), r.Reason)
	if r.Err != nil {
		s += ": " + r.Err.Error()
	}
	return s
}

func (m *model) notify(text string) {
	m.message = text
	m.isErr = false
}

func (m *model) fail(err error) {
	m.message = err.Error()
	m.isErr = true
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.refresh()
		return m, tick()
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
	case capturedMsg:
		return m.finishCapture(msg)
	case windowsMsg:
		return m.openWindowPicker(msg)
	case profilesMsg:
		if msg.err != nil {
			m.fail(msg.err)
			return m, nil
		}
		m.profiles = msg.items
		m.clampCursor(len(m.profiles))
		return m, nil
	case logsMsg:
		if msg.err != nil {
			m.fail(msg.err)
			return m, nil
		}
		m.logs = msg.items
		m.clampCursor(len(m.logs))
		return m, nil
	case doneMsg:
		if msg.err != nil {
			m.fail(msg.err)
		} else {
			m.notify(msg.text)
		}
		m.refresh()
		return m, m.reload()
	}

	if m.form != nil {
		return m.updateForm(msg)
	}
	if m.dialog != nil {
		return m.updateDialog(msg)
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	if m.capturing != "" {
		return m, nil
	}
	switch m.screen {
	case screenProfiles:
		return m.updateProfiles(keyMsg)
	case screenLogs:
		return m.updateLogs(keyMsg)
	default:
		return m.updateDashboard(keyMsg)
	}
}

func (m model) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok && k.String() == "esc" {
		m.closeForm()
		m.notify("Cancelled")
		return m, nil
	}

	formModel, cmd := m.form.Update(msg)
	if f, ok := formModel.(*huh.Form); ok {
		m.form = f
	}
	switch m.form.State {
	case huh.StateCompleted:
		kind := m.formKind
		m.closeForm()
		next, follow := m.submitForm(kind)
		return next, follow
	case huh.StateAborted:
		m.closeForm()
		return m, nil
	}
	return m, cmd
}

func (m *model) openForm(kind formKind, f *huh.Form) tea.Cmd {
	m.form = f
	m.formKind = kind
	return f.Init()
}

func (m *model) closeForm() {
	m.form = nil
	m.formKind = formNone
}

func (m model) submitForm(kind formKind) (model, tea.Cmd) {
	switch kind {
	case formSettings:
		return m.submitSettings()
	case formSaveProfile:
		return m, m.saveProfileCmd(strings.TrimSpace(m.vals.name))
	case formDeleteProfile:
		if !m.vals.confirm || m.cursor >= len(m.profiles) {
			return m, nil
		}
		return m, m.deleteProfileCmd(m.profiles[m.cursor])
	case formDeleteLog:
		if !m.vals.confirm || m.cursor >= len(m.logs) {
			return m, nil
		}
		return m, m.deleteLogCmd(m.logs[m.cursor].ID)
	case formClearLogs:
		if !m.vals.confirm {
			return m, nil
		}
		return m, m.clearLogsCmd()
	case formWindow:
		return m.apply(settings.Record{
			string(settings.KeyTargetWindow):           m.vals.choice,
			string(settings.KeyWindowTargetingEnabled): true,
		}, "Target window set")
	}
	return m, nil
}

// submitSettings commits the edited draft. Moving into a mode that carries
// a warning goes through the confirmation dialog first.
func (m model) submitSettings() (model, tea.Cmd) {
	rec, err := m.draft.record()
	if err != nil {
		m.fail(err)
		return m, nil
	}
	prev := m.deps.Settings.Snapshot().CPSMode
	next, _ := settings.ParseCPSMode(rec[string(settings.KeyCPSMode)].(string))
	if next != prev {
		if info, ok := next.Info(); ok && info.Warning != "" {
			m.dialog = newWarningDialog(info, prev, rec, m.now)
			return m, nil
		}
	}
	return m.apply(rec, "Settings saved")
}

func (m model) apply(rec settings.Record, okText string) (model, tea.Cmd) {
	changed, err := commit(m.deps.Settings, rec)
	if err != nil {
		m.fail(err)
		return m, nil
	}
	m.snap = m.deps.Settings.Snapshot()
	if len(changed) == 0 {
		m.notify("No changes")
		return m, nil
	}
	names := lo.Map(changed, func(k settings.Key, _ int) string { return string(k) })
	m.notify(fmt.Sprintf("%s: %s", okText, strings.Join(names, ", ")))
	return m, nil
}

func (m model) updateDialog(msg tea.Msg) (tea.Model, tea.Cmd) {
	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	d := m.dialog
	switch k.String() {
	case "enter", "y", "o":
		if !d.ready() {
			return m, nil
		}
		m.dialog = nil
		return m.apply(d.accepted(), fmt.Sprintf("%s mode enabled", d.info.Mode))
	case "esc", "n", "c":
		m.dialog = nil
		return m.apply(d.declined(), fmt.Sprintf("Kept %s mode", d.prev))
	}
	return m, nil
}

func (m *model) clampCursor(n int) {
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m model) reload() tea.Cmd {
	switch m.screen {
	case screenProfiles:
		return m.loadProfilesCmd()
	case screenLogs:
		return m.loadLogsCmd()
	}
	return nil
}

// captureCmd pauses the hotkey listener, waits for one key press and
// resumes listening.
func (m model) captureCmd(k settings.Key) tea.Cmd {
	hk, src, log := m.deps.Hotkeys, m.deps.KeySource, m.deps.Logger
	return func() tea.Msg {
		if src == nil {
			return capturedMsg{key: k, err: errors.New("no key source available")}
		}
		if hk != nil {
			if err := hk.Stop(); err != nil && log != nil {
				log.Verbose("pause hotkeys: %v", err)
			}
		}
		ctx, cancel := context.WithTimeout(context.Background(), captureTimeout)
		defer cancel()
		id, err := hotkey.Capture(ctx, src)
		if hk != nil {
			if serr := hk.Start(); serr != nil && err == nil {
				err = fmt.Errorf("resume hotkeys: %w", serr)
			}
		}
		return capturedMsg{key: k, id: id, err: err}
	}
}

func (m model) finishCapture(msg capturedMsg) (tea.Model, tea.Cmd) {
	m.capturing = ""
	if errors.Is(msg.err, context.DeadlineExceeded) {
		m.fail(errors.New("no key pressed"))
		return m, nil
	}
	if msg.err != nil {
		m.fail(msg.err)
		return m, nil
	}
	return m.apply(settings.Record{string(msg.key): msg.id}, "Hotkey recorded")
}

func (m model) View() string {
	var body string
	switch {
	case m.dialog != nil:
		body = m.dialog.view(m.styles)
	case m.form != nil:
		body = m.form.View()
	case m.screen == screenProfiles:
		body = m.viewProfiles()
	case m.screen == screenLogs:
		body = m.viewLogs()
	default:
		body = m.viewDashboard()
	}

	var b strings.Builder
	title := "smiteclick"
	if m.deps.Version != "" {
		title += " " + m.deps.Version
	}
	b.WriteString(m.styles.Title.Render(title))
	b.WriteString("\n\n")
	b.WriteString(body)
	b.WriteString("\n")
	if m.message != "" {
		style := m.styles.Info
		if m.isErr {
			style = m.styles.Error
		}
		b.WriteString("\n")
		b.WriteString(style.Render(m.message))
		b.WriteString("\n")
	}
	return b.String()
}
