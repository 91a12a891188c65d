// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up         key.Binding
	Down       key.Binding
	Connect    key.Binding
	Switch     key.Binding
	Disconnect key.Binding
	Refresh    key.Binding
	New        key.Binding
	Complete   key.Binding
	Delegate   key.Binding
	Delete     key.Binding
	Mint       key.Binding
	Submit     key.Binding
	Cancel     key.Binding
	Help       key.Binding
	Quit       key.Binding
	ForceQuit  key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Up:         key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:       key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Connect:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "connect wallet")),
		Switch:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "switch network")),
		Disconnect: key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "disconnect")),
		Refresh:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		New:        key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new task")),
		Complete:   key.NewBinding(key.WithKeys("x", " "), key.WithHelp("x", "complete")),
		Delegate:   key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "delegate")),
		Delete:     key.NewBinding(key.WithKeys("d", "delete"), key.WithHelp("d", "delete")),
		Mint:       key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "mint NFT")),
		Submit:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "confirm")),
		Cancel:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:       key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		ForceQuit:  key.NewBinding(key.WithKeys("ctrl+c")),
	}
}

// shortHelp lists the bindings relevant to a screen.
func (k keyMap) shortHelp(connected, tasksView bool) []key.Binding {
	if !connected {
		return []key.Binding{k.Connect, k.Help, k.Quit}
	}
	if !tasksView {
		return []key.Binding{k.Switch, k.Disconnect, k.Help, k.Quit}
	}
	return []key.Binding{k.New, k.Complete, k.Delegate, k.Delete, k.Mint, k.Refresh, k.Quit}
}

// fullHelp implements the help overlay.
func (k keyMap) fullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Refresh},
		{k.New, k.Complete, k.Delegate, k.Delete, k.Mint},
		{k.Connect, k.Switch, k.Disconnect},
		{k.Submit, k.Cancel, k.Help, k.Quit},
	}
}
