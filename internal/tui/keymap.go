package tui

import "github.com/charmbracelet/bubbles/key"

type dashboardKeys struct {
	Start    key.Binding
	Stop     key.Binding
	Toggle   key.Binding
	Settings key.Binding
	Profiles key.Binding
	Logs     key.Binding
	Window   key.Binding
	CopyPos  key.Binding
	MarkPos  key.Binding
	StartKey key.Binding
	StopKey  key.Binding
	Quit     key.Binding
}

func (k dashboardKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Start, k.Stop, k.Toggle, k.Settings, k.Profiles, k.Logs, k.Quit}
}

func (k dashboardKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Start, k.Stop, k.Toggle},
		{k.Settings, k.Profiles, k.Logs, k.Window},
		{k.CopyPos, k.MarkPos, k.StartKey, k.StopKey},
		{k.Quit},
	}
}

var dashKeys = dashboardKeys{
	Start:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "start")),
	Stop:     key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "stop")),
	Toggle:   key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle")),
	Settings: key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "settings")),
	Profiles: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "profiles")),
	Logs:     key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "logs")),
	Window:   key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "pick window")),
	CopyPos:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "copy cursor pos")),
	MarkPos:  key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "use cursor pos")),
	StartKey: key.NewBinding(key.WithKeys("k"), key.WithHelp("k", "record start key")),
	StopKey:  key.NewBinding(key.WithKeys("K"), key.WithHelp("K", "record stop key")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

type listKeys struct {
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	New    key.Binding
	Delete key.Binding
	Clear  key.Binding
	Back   key.Binding
}

func (k listKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Select, k.New, k.Delete, k.Clear, k.Back}
}

func (k listKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

func newProfileKeys() listKeys {
	k := baseListKeys()
	k.Select = key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "load"))
	k.New = key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "save current"))
	k.Clear.SetEnabled(false)
	return k
}

func newLogKeys() listKeys {
	k := baseListKeys()
	k.Select.SetEnabled(false)
	k.New.SetEnabled(false)
	return k
}

func baseListKeys() listKeys {
	return listKeys{
		Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Select: key.NewBinding(key.WithKeys("enter")),
		New:    key.NewBinding(key.WithKeys("n")),
		Delete: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		Clear:  key.NewBinding(key.WithKeys("C"), key.WithHelp("C", "clear all")),
		Back:   key.NewBinding(key.WithKeys("esc", "q"), key.WithHelp("esc", "back")),
	}
}
