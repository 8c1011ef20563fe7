package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap holds the global bindings. Map-only bindings live in mapKeyMap.
type keyMap struct {
	Earlier  key.Binding
	Later    key.Binding
	StepUp   key.Binding
	StepDown key.Binding
	Reset    key.Binding
	NextView key.Binding
	Help     key.Binding
	Quit     key.Binding

	Map mapKeyMap
}

type mapKeyMap struct {
	FocusNext    key.Binding
	FocusPrev    key.Binding
	ToggleAC     key.Binding
	ToggleDC     key.Binding
	ToggleMC     key.Binding
	ToggleIC     key.Binding
	ToggleParans key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Earlier:  key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "earlier")),
		Later:    key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "later")),
		StepUp:   key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "larger step")),
		StepDown: key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "smaller step")),
		Reset:    key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "reset time")),
		NextView: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch view")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Map:      defaultMapKeyMap(),
	}
}

func defaultMapKeyMap() mapKeyMap {
	return mapKeyMap{
		FocusNext:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("j/k", "focus body")),
		FocusPrev:    key.NewBinding(key.WithKeys("up", "k")),
		ToggleAC:     key.NewBinding(key.WithKeys("1"), key.WithHelp("1-4", "AC/DC/MC/IC")),
		ToggleDC:     key.NewBinding(key.WithKeys("2")),
		ToggleMC:     key.NewBinding(key.WithKeys("3")),
		ToggleIC:     key.NewBinding(key.WithKeys("4")),
		ToggleParans: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "parans")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Earlier, k.Later, k.NextView, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Earlier, k.Later, k.StepUp, k.StepDown, k.Reset},
		{k.Map.FocusNext, k.Map.ToggleAC, k.Map.ToggleParans},
		{k.NextView, k.Help, k.Quit},
	}
}
