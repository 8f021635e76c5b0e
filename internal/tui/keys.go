package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Switch   key.Binding
	Toggle   key.Binding
	Open     key.Binding
	Back     key.Binding
	Put      key.Binding
	Get      key.Binding
	Delete   key.Binding
	Mkdir    key.Binding
	Run      key.Binding
	Reset    key.Binding
	Refresh  key.Binding
	Connect  key.Binding
	Clear    key.Binding
	LocalDir key.Binding
	Port     key.Binding
	Baud     key.Binding
	Delay    key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Up:       key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("↓/j", "down")),
		Switch:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch pane")),
		Toggle:   key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "select")),
		Open:     key.NewBinding(key.WithKeys("enter", "l", "right"), key.WithHelp("enter", "open dir")),
		Back:     key.NewBinding(key.WithKeys("backspace", "h", "left"), key.WithHelp("h", "parent")),
		Put:      key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "put")),
		Get:      key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "get")),
		Delete:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		Mkdir:    key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "mkdir")),
		Run:      key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "run")),
		Reset:    key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "reset board")),
		Refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Connect:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "connect")),
		Clear:    key.NewBinding(key.WithKeys("C"), key.WithHelp("C", "clear log")),
		LocalDir: key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "local dir")),
		Port:     key.NewBinding(key.WithKeys("P"), key.WithHelp("P", "port")),
		Baud:     key.NewBinding(key.WithKeys("B"), key.WithHelp("B", "baud")),
		Delay:    key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "delay")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Switch, k.Toggle, k.Put, k.Get, k.Delete, k.Run, k.Connect, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Switch, k.Toggle, k.Open, k.Back},
		{k.Put, k.Get, k.Delete, k.Mkdir, k.Run, k.Reset},
		{k.Refresh, k.Connect, k.Clear, k.LocalDir},
		{k.Port, k.Baud, k.Delay, k.Help, k.Quit},
	}
}
