package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tturner/smiteclick/internal/metrics"
	"github.com/tturner/smiteclick/internal/progress"
	"github.com/tturner/smiteclick/internal/store"
)

var (
	profileKeys = newProfileKeys()
	logKeys     = newLogKeys()

	errNoStore = errors.New("no database is open")
)

const maxListRows = 15

func (m *model) moveCursor(msg tea.KeyMsg, keys listKeys, n int) bool {
	switch {
	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return true
	case key.Matches(msg, keys.Down):
		if m.cursor < n-1 {
			m.cursor++
		}
		return true
	}
	return false
}

func (m model) updateProfiles(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.moveCursor(msg, profileKeys, len(m.profiles)) {
		return m, nil
	}
	switch {
	case key.Matches(msg, profileKeys.Back):
		m.screen = screenDashboard
	case key.Matches(msg, profileKeys.Select):
		if m.cursor < len(m.profiles) {
			return m, m.loadProfileCmd(m.profiles[m.cursor])
		}
	case key.Matches(msg, profileKeys.New):
		m.vals.name = ""
		return m, m.openForm(formSaveProfile, buildSaveProfileForm(&m.vals.name))
	case key.Matches(msg, profileKeys.Delete):
		if m.cursor < len(m.profiles) {
			m.vals.confirm = false
			p := m.profiles[m.cursor]
			return m, m.openForm(formDeleteProfile,
				buildConfirmForm(fmt.Sprintf("Delete profile %q?", p.Name), "This cannot be undone.", &m.vals.confirm))
		}
	}
	return m, nil
}

func (m model) updateLogs(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.moveCursor(msg, logKeys, len(m.logs)) {
		return m, nil
	}
	switch {
	case key.Matches(msg, logKeys.Back):
		m.screen = screenDashboard
	case key.Matches(msg, logKeys.Delete):
		if m.cursor < len(m.logs) {
			m.vals.confirm = false
			return m, m.openForm(formDeleteLog,
				buildConfirmForm(fmt.Sprintf("Delete log #%d?", m.logs[m.cursor].ID), "", &m.vals.confirm))
		}
	case key.Matches(msg, logKeys.Clear):
		if len(m.logs) > 0 {
			m.vals.confirm = false
			return m, m.openForm(formClearLogs,
				buildConfirmForm("Clear all session logs?", fmt.Sprintf("%d entries will be removed.", len(m.logs)), &m.vals.confirm))
		}
	}
	return m, nil
}

func (m model) loadProfilesCmd() tea.Cmd {
	st := m.deps.Store
	return func() tea.Msg {
		if st == nil {
			return profilesMsg{err: errNoStore}
		}
		ctx, cancel := storeCtx()
		defer cancel()
		items, err := st.ListProfiles(ctx)
		return profilesMsg{items: items, err: err}
	}
}

func (m model) loadLogsCmd() tea.Cmd {
	st := m.deps.Store
	return func() tea.Msg {
		if st == nil {
			return logsMsg{err: errNoStore}
		}
		ctx, cancel := storeCtx()
		defer cancel()
		items, err := st.ListLogs(ctx)
		return logsMsg{items: items, err: err}
	}
}

// loadProfileCmd applies a saved profile. Fields with bad values are
// skipped and reported while the rest still load.
func (m model) loadProfileCmd(p store.ProfileSummary) tea.Cmd {
	st, set := m.deps.Store, m.deps.Settings
	return func() tea.Msg {
		if st == nil {
			return doneMsg{err: errNoStore}
		}
		ctx, cancel := storeCtx()
		defer cancel()
		prof, err := st.GetProfile(ctx, p.ID)
		if err != nil {
			return doneMsg{err: err}
		}
		if err := set.LoadProfile(prof.Settings); err != nil {
			return doneMsg{err: fmt.Errorf("profile %q loaded with errors: %w", prof.Name, err)}
		}
		return doneMsg{text: fmt.Sprintf("Loaded profile %q", prof.Name)}
	}
}

func (m model) saveProfileCmd(name string) tea.Cmd {
	st, set := m.deps.Store, m.deps.Settings
	return func() tea.Msg {
		if st == nil {
			return doneMsg{err: errNoStore}
		}
		ctx, cancel := storeCtx()
		defer cancel()
		if _, err := st.SaveProfile(ctx, name, set.Record()); err != nil {
			if errors.Is(err, store.ErrProfileNameConflict) {
				return doneMsg{err: fmt.Errorf("a profile named %q already exists", name)}
			}
			return doneMsg{err: err}
		}
		return doneMsg{text: fmt.Sprintf("Saved profile %q", name)}
	}
}

func (m model) deleteProfileCmd(p store.ProfileSummary) tea.Cmd {
	st := m.deps.Store
	return func() tea.Msg {
		if st == nil {
			return doneMsg{err: errNoStore}
		}
		ctx, cancel := storeCtx()
		defer cancel()
		if err := st.DeleteProfile(ctx, p.ID); err != nil {
			return doneMsg{err: err}
		}
		return doneMsg{text: fmt.Sprintf("Deleted profile %q", p.Name)}
	}
}

func (m model) deleteLogCmd(id int64) tea.Cmd {
	st := m.deps.Store
	return func() tea.Msg {
		if st == nil {
			return doneMsg{err: errNoStore}
		}
		ctx, cancel := storeCtx()
		defer cancel()
		if err := st.DeleteLog(ctx, id); err != nil {
			return doneMsg{err: err}
		}
		return doneMsg{text: fmt.Sprintf("Deleted log #%d", id)}
	}
}

func (m model) clearLogsCmd() tea.Cmd {
	st := m.deps.Store
	return func() tea.Msg {
		if st == nil {
			return doneMsg{err: errNoStore}
		}
		ctx, cancel := storeCtx()
		defer cancel()
		n, err := st.ClearLogs(ctx)
		if err != nil {
			return doneMsg{err: err}
		}
		return doneMsg{text: fmt.Sprintf("Cleared %d logs", n)}
	}
}

// visibleRange returns the slice bounds that keep the cursor visible.
func visibleRange(cursor, n, size int) (int, int) {
	if n <= size {
		return 0, n
	}
	start := cursor - size/2
	if start < 0 {
		start = 0
	}
	if start+size > n {
		start = n - size
	}
	return start, start + size
}

func (m model) viewProfiles() string {
	s := m.styles
	var b strings.Builder
	b.WriteString(s.Header.Render("Profiles"))
	b.WriteString("\n\n")
	if len(m.profiles) == 0 {
		b.WriteString(s.Dim.Render("No saved profiles. Press n to save the current settings."))
	}
	first, last := visibleRange(m.cursor, len(m.profiles), maxListRows)
	for i := first; i < last; i++ {
		p := m.profiles[i]
		line := fmt.Sprintf("%-4d %s", p.ID, p.Name)
		if i == m.cursor {
			b.WriteString(s.Selected.Render("> " + line))
		} else {
			b.WriteString(s.Base.Render("  " + line))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(profileKeys))
	return b.String()
}

func (m model) viewLogs() string {
	s := m.styles
	var b strings.Builder
	b.WriteString(s.Header.Render("Session logs"))
	b.WriteString("\n\n")
	if len(m.logs) == 0 {
		b.WriteString(s.Dim.Render("No sessions recorded yet."))
		b.WriteString("\n")
	} else {
		sum := metrics.Summarize(m.logs)
		b.WriteString(s.Info.Render(fmt.Sprintf("%d sessions • %d clicks • %s • avg %.1f cps • best %.1f cps",
			sum.Sessions, sum.TotalClicks, progress.FormatDuration(sum.TotalDuration), sum.AvgCPS, sum.MaxCPS)))
		b.WriteString("\n\n")
		b.WriteString(s.Dim.Render(fmt.Sprintf("  %-6s %-19s %10s %8s %8s", "ID", "STARTED", "DURATION", "CLICKS", "CPS")))
		b.WriteString("\n")
	}
	first, last := visibleRange(m.cursor, len(m.logs), maxListRows)
	for i := first; i < last; i++ {
		e := m.logs[i]
		line := fmt.Sprintf("%-6d %-19s %10s %8d %8.1f",
			e.ID, e.StartTime.Local().Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%.1fs", e.DurationSeconds), e.ClickCount, metrics.SessionCPS(e))
		if i == m.cursor {
			b.WriteString(s.Selected.Render("> " + line))
		} else {
			b.WriteString(s.Base.Render("  " + line))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(logKeys))
	return b.String()
}
