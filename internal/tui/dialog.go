package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/tturner/smiteclick/internal/settings"
)

// warningDialog asks the user to confirm a switch into a fast cps mode.
// OK stays disabled until the mode's cooldown has elapsed.
type warningDialog struct {
	info     settings.ModeInfo
	prev     settings.CPSMode
	pending  settings.Record
	deadline time.Time
	now      func() time.Time
}

func newWarningDialog(info settings.ModeInfo, prev settings.CPSMode, pending settings.Record, now func() time.Time) *warningDialog {
	if now == nil {
		now = time.Now
	}
	return &warningDialog{
		info:     info,
		prev:     prev,
		pending:  pending,
		deadline: now().Add(info.Cooldown),
		now:      now,
	}
}

// remaining is the number of whole seconds left before OK unlocks.
func (d *warningDialog) remaining() int {
	left := d.deadline.Sub(d.now())
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Seconds()))
}

func (d *warningDialog) ready() bool { return d.remaining() == 0 }

func (d *warningDialog) okLabel() string {
	if n := d.remaining(); n > 0 {
		return fmt.Sprintf("OK (%d)", n)
	}
	return "OK"
}

// accepted returns the record to commit when the user confirms.
func (d *warningDialog) accepted() settings.Record {
	return d.pending
}

// declined returns the pending record with the mode put back. cps is
// clamped into the previous mode so the pair stays consistent.
func (d *warningDialog) declined() settings.Record {
	out := make(settings.Record, len(d.pending))
	for k, v := range d.pending {
		out[k] = v
	}
	out[string(settings.KeyCPSMode)] = string(d.prev)
	if cps, ok := d.pending[string(settings.KeyCPS)].(float64); ok {
		out[string(settings.KeyCPS)] = settings.ClampToMode(cps, d.prev)
	}
	return out
}

func (d *warningDialog) view(s Styles) string {
	var b strings.Builder
	b.WriteString(s.Warning.Render(fmt.Sprintf("⚠ Switch to %s mode?", d.info.Mode)))
	b.WriteString("\n\n")
	b.WriteString(s.Base.Render(d.info.Warning))
	b.WriteString("\n\n")

	ok := d.okLabel()
	if d.ready() {
		ok = s.Cursor.Render(" " + ok + " ")
	} else {
		ok = s.Dim.Render(" " + ok + " ")
	}
	cancel := s.KeyHint.Render(" Cancel ")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, ok, "  ", cancel))
	b.WriteString("\n\n")
	b.WriteString(s.Footer.Render("enter confirm • esc keep " + string(d.prev)))
	return s.Dialog.Render(b.String())
}
