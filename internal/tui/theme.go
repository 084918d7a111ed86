package tui

import "github.com/charmbracelet/lipgloss"

// Palette holds the dashboard colors.
type Palette struct {
	Background lipgloss.Color
	Text       lipgloss.Color
	Faint      lipgloss.Color
	Frame      lipgloss.Color

	Accent  lipgloss.Color
	Good    lipgloss.Color
	Caution lipgloss.Color
	Bad     lipgloss.Color
	Note    lipgloss.Color

	// shown while a session is clicking
	Active lipgloss.Color
}

// Gruvbox dark.
var DefaultPalette = Palette{
	Background: lipgloss.Color("#282828"),
	Text:       lipgloss.Color("#ebdbb2"),
	Faint:      lipgloss.Color("#928374"),
	Frame:      lipgloss.Color("#504945"),

	Accent:  lipgloss.Color("#83a598"),
	Good:    lipgloss.Color("#b8bb26"),
	Caution: lipgloss.Color("#fabd2f"),
	Bad:     lipgloss.Color("#fb4934"),
	Note:    lipgloss.Color("#8ec07c"),

	Active: lipgloss.Color("#fe8019"),
}

type Styles struct {
	Base   lipgloss.Style
	Dim    lipgloss.Style
	Title  lipgloss.Style
	Header lipgloss.Style
	Label  lipgloss.Style

	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Info    lipgloss.Style
	Running lipgloss.Style

	Selected lipgloss.Style
	Cursor   lipgloss.Style
	KeyHint  lipgloss.Style
	Footer   lipgloss.Style

	Box    lipgloss.Style
	Dialog lipgloss.Style

	// endpoints of the limit progress gradient
	BarFrom, BarTo string
}

func fg(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }

// NewStyles derives every dashboard style from p.
func NewStyles(p Palette) Styles {
	s := Styles{
		Base:   fg(p.Text),
		Dim:    fg(p.Faint),
		Header: fg(p.Accent).Bold(true),
		Label:  fg(p.Faint).Width(16),

		Success: fg(p.Good),
		Warning: fg(p.Caution),
		Error:   fg(p.Bad).Bold(true),
		Info:    fg(p.Note),
		Running: fg(p.Active).Bold(true),

		KeyHint: fg(p.Faint).Italic(true),
		Footer:  fg(p.Faint),

		BarFrom: string(p.Accent),
		BarTo:   string(p.Active),
	}
	s.Title = s.Header.Padding(0, 1).Background(p.Frame)
	s.Selected = s.Header.Underline(true)
	s.Cursor = lipgloss.NewStyle().Foreground(p.Background).Background(p.Accent)
	s.Box = lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(p.Frame).
		Padding(0, 2)
	s.Dialog = lipgloss.NewStyle().
		Border(lipgloss.ThickBorder()).
		BorderForeground(p.Caution).
		Padding(1, 2).
		Width(60)
	return s
}

var DefaultStyles = NewStyles(DefaultPalette)

// PhaseIcon marks an orchestrator phase.
func PhaseIcon(phase string, s Styles) string {
	switch phase {
	case "running":
		return s.Running.Render("▶")
	case "stopping":
		return s.Warning.Render("■")
	}
	return s.Dim.Render("·")
}

func CheckboxIcon(checked bool, s Styles) string {
	if checked {
		return s.Success.Render("(x)")
	}
	return s.Dim.Render("( )")
}
