package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Recognize   key.Binding
	Abort       key.Binding
	Delete      key.Binding
	Insert      key.Binding
	Preview     key.Binding
	Play        key.Binding
	Search      key.Binding
	SearchNext  key.Binding
	SearchPrev  key.Binding
	ExportSRT   key.Binding
	ExportVTT   key.Binding
	Models      key.Binding
	ZoneOnly    key.Binding
	ShowLog     key.Binding
	Left        key.Binding
	Right       key.Binding
	Up          key.Binding
	Down        key.Binding
	SelectLeft  key.Binding
	SelectRight key.Binding
	SelectUp    key.Binding
	SelectDown  key.Binding
	PageUp      key.Binding
	PageDown    key.Binding
	Help        key.Binding
	Quit        key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Recognize:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "recognize")),
		Abort:       key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "abort")),
		Delete:      key.NewBinding(key.WithKeys("d", "delete", "backspace"), key.WithHelp("d", "delete")),
		Insert:      key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "insert")),
		Preview:     key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "preview")),
		Play:        key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play block")),
		Search:      key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		SearchNext:  key.NewBinding(key.WithKeys("n"), key.WithHelp("n/N", "next/prev match")),
		SearchPrev:  key.NewBinding(key.WithKeys("N")),
		ExportSRT:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s/S", "export srt/vtt")),
		ExportVTT:   key.NewBinding(key.WithKeys("S")),
		Models:      key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "language model")),
		ZoneOnly:    key.NewBinding(key.WithKeys("z"), key.WithHelp("z", "zone only")),
		ShowLog:     key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "show log")),
		Left:        key.NewBinding(key.WithKeys("left")),
		Right:       key.NewBinding(key.WithKeys("right")),
		Up:          key.NewBinding(key.WithKeys("up", "k")),
		Down:        key.NewBinding(key.WithKeys("down", "j")),
		SelectLeft:  key.NewBinding(key.WithKeys("shift+left"), key.WithHelp("shift+arrows", "select")),
		SelectRight: key.NewBinding(key.WithKeys("shift+right")),
		SelectUp:    key.NewBinding(key.WithKeys("shift+up")),
		SelectDown:  key.NewBinding(key.WithKeys("shift+down")),
		PageUp:      key.NewBinding(key.WithKeys("pgup")),
		PageDown:    key.NewBinding(key.WithKeys("pgdown")),
		Help:        key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more")),
		Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Recognize, k.Search, k.Delete, k.Insert, k.Preview, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Recognize, k.Abort, k.Models, k.ZoneOnly, k.ShowLog},
		{k.Search, k.SearchNext, k.SelectLeft, k.Play},
		{k.Delete, k.Insert, k.Preview, k.ExportSRT},
		{k.Help, k.Quit},
	}
}
