package tui

import "github.com/charmbracelet/bubbles/key"

type consoleKeys struct {
	Start      key.Binding
	Stop       key.Binding
	Reinit     key.Binding
	Clear      key.Binding
	AutoScroll key.Binding
	Up         key.Binding
	Down       key.Binding
	Confirm    key.Binding
	Cancel     key.Binding
	Quit       key.Binding
}

func newConsoleKeys() consoleKeys {
	return consoleKeys{
		Start:      key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "start")),
		Stop:       key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "stop")),
		Reinit:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "re-initialize")),
		Clear:      key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear logs")),
		AutoScroll: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "auto-scroll")),
		Up:         key.NewBinding(key.WithKeys("k", "up", "pgup"), key.WithHelp("↑/k", "scroll up")),
		Down:       key.NewBinding(key.WithKeys("j", "down", "pgdown"), key.WithHelp("↓/j", "scroll down")),
		Confirm:    key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "confirm")),
		Cancel:     key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n/esc", "cancel")),
		Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k consoleKeys) help() []key.Binding {
	return []key.Binding{k.Start, k.Stop, k.Reinit, k.Clear, k.AutoScroll, k.Quit}
}

type wizardKeys struct {
	Next     key.Binding
	Back     key.Binding
	Focus    key.Binding
	Unfocus  key.Binding
	Test     key.Binding
	Refresh  key.Binding
	Save     key.Binding
	Up       key.Binding
	Down     key.Binding
	Choose   key.Binding
	InitFrom key.Binding
	Quit     key.Binding
}

func newWizardKeys() wizardKeys {
	return wizardKeys{
		Next:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "next")),
		Back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Focus:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
		Unfocus:  key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "previous field")),
		Test:     key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "test")),
		Refresh:  key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "refresh")),
		Save:     key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Choose:   key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "choose")),
		InitFrom: key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "toggle init source")),
		Quit:     key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

func renderHelp(bindings []key.Binding) string {
	out := ""
	for i, b := range bindings {
		if !b.Enabled() {
			continue
		}
		if i > 0 && out != "" {
			out += subtleStyle.Render(" • ")
		}
		h := b.Help()
		out += h.Key + " " + subtleStyle.Render(h.Desc)
	}
	return out
}
