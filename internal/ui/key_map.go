package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up       key.Binding
	down     key.Binding
	rename   key.Binding
	replace  key.Binding
	cancel   key.Binding
	applyAll key.Binding
	edit     key.Binding
	enter    key.Binding
	back     key.Binding
	quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		rename:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rename")),
		replace:  key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "replace/update/merge")),
		cancel:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "skip")),
		applyAll: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "apply to all")),
		edit:     key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit name")),
		enter:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "save")),
		back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.rename, k.replace, k.cancel, k.applyAll, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down},
		{k.rename, k.replace, k.cancel},
		{k.applyAll, k.edit, k.quit},
	}
}
