// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tui is the terminal front end: a bubbletea program that renders
// the wallet status, the gating panels, the account's stats and task cards,
// and drives task actions through the tasks service.
package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/koustavx08/web3-todo-dapp/services/ledger"
	"github.com/koustavx08/web3-todo-dapp/services/notify"
	"github.com/koustavx08/web3-todo-dapp/services/tasks"
	"github.com/koustavx08/web3-todo-dapp/services/wallet"
)

// mode is the input mode of the model.
type mode int

const (
	modeBrowse mode = iota
	modeCreateTitle
	modeCreateDescription
	modeDelegate
	modeHelp
)

// Config wires the model to the application.
type Config struct {
	// Session and Service are required.
	Session *wallet.Session
	Service *tasks.Service

	// Bus, when set, feeds the notification line.
	Bus *notify.Bus
}

// Model is the root bubbletea model.
//
// # Description
//
// All chain access happens in commands; Update only records results. The
// model subscribes to the session, the service snapshot and the
// notification bus, and re-arms each subscription after every message.
//
// # Thread Safety
//
// Model is a value type owned by the bubbletea runtime.
type Model struct {
	ctx     context.Context
	session *wallet.Session
	svc     *tasks.Service

	stateCh chan wallet.State
	snapCh  chan tasks.Snapshot
	noteCh  chan notify.Notification
	bus     *notify.Bus

	state   wallet.State
	snap    tasks.Snapshot
	note    *notify.Notification
	cursor  int
	mode    mode
	pending int

	title       textinput.Model
	description textinput.Model
	delegate    textinput.Model
	spinner     spinner.Model
	help        help.Model
	keys        keyMap

	width    int
	height   int
	quitting bool
}

// New creates the model and subscribes it. Call Close when the program
// exits.
func New(ctx context.Context, cfg Config) Model {
	title := textinput.New()
	title.Placeholder = "Task title"
	title.CharLimit = 120

	description := textinput.New()
	description.Placeholder = "Description (optional)"
	description.CharLimit = 2000

	delegate := textinput.New()
	delegate.Placeholder = "Enter wallet address to delegate to..."
	delegate.CharLimit = 42

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.accent

	m := Model{
		ctx:         ctx,
		session:     cfg.Session,
		svc:         cfg.Service,
		stateCh:     cfg.Session.Subscribe(),
		snapCh:      cfg.Service.Subscribe(),
		bus:         cfg.Bus,
		state:       cfg.Session.State(),
		snap:        cfg.Service.Snapshot(),
		title:       title,
		description: description,
		delegate:    delegate,
		spinner:     sp,
		help:        help.New(),
		keys:        defaultKeys(),
	}
	if cfg.Bus != nil {
		m.noteCh = cfg.Bus.Subscribe()
	}
	return m
}

// Close releases the model's subscriptions.
func (m Model) Close() {
	m.session.Unsubscribe(m.stateCh)
	m.svc.Unsubscribe(m.snapCh)
	if m.bus != nil {
		m.bus.Unsubscribe(m.noteCh)
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		waitForState(m.stateCh),
		waitForSnapshot(m.snapCh),
		waitForNote(m.noteCh),
		m.checkCmd(),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		return m, nil

	case stateMsg:
		m.state = msg.State
		return m, waitForState(m.stateCh)

	case snapshotMsg:
		m.snap = msg.Snapshot
		m.clampCursor()
		return m, waitForSnapshot(m.snapCh)

	case noteMsg:
		n := msg.Note
		m.note = &n
		return m, waitForNote(m.noteCh)

	case opDoneMsg:
		if m.pending > 0 {
			m.pending--
		}
		if errors.Is(msg.Err, tasks.ErrInvalidInput) {
			m.note = &notify.Notification{Level: notify.LevelError, Message: msg.Err.Error()}
		}
		if msg.Op == "check" || msg.Op == "connect" || msg.Op == "switch" {
			m.state = m.session.State()
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.ForceQuit) {
			m.quitting = true
			return m, tea.Quit
		}
		switch m.mode {
		case modeCreateTitle, modeCreateDescription, modeDelegate:
			return m.updateInput(msg)
		case modeHelp:
			if key.Matches(msg, m.keys.Help, m.keys.Cancel, m.keys.Quit) {
				m.mode = modeBrowse
			}
			return m, nil
		}
		return m.updateBrowse(msg)
	}
	return m, nil
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	view := m.currentView()
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.mode = modeHelp
		return m, nil
	case key.Matches(msg, m.keys.Connect) && !m.state.Connected:
		return m.start(m.connectCmd())
	case key.Matches(msg, m.keys.Switch) && view == tasks.ViewNetworkWarning:
		return m.start(m.switchCmd())
	case key.Matches(msg, m.keys.Disconnect) && m.state.Connected:
		m.session.Disconnect()
		m.state = m.session.State()
		return m, nil
	}

	if view != tasks.ViewTasks {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.snap.Tasks)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Refresh):
		return m.start(m.refreshCmd())
	case key.Matches(msg, m.keys.New):
		m.mode = modeCreateTitle
		m.title.Reset()
		m.description.Reset()
		return m, m.title.Focus()
	}

	task, ok := m.selected()
	if !ok {
		return m, nil
	}
	caps := tasks.CapabilitiesFor(task, m.state.AccountAddress())
	switch {
	case key.Matches(msg, m.keys.Complete) && caps.Complete:
		return m.start(m.completeCmd(task.ID))
	case key.Matches(msg, m.keys.Delegate) && caps.Delegate:
		m.mode = modeDelegate
		m.delegate.Reset()
		return m, m.delegate.Focus()
	case key.Matches(msg, m.keys.Delete) && caps.Delete:
		return m.start(m.deleteCmd(task.ID))
	case key.Matches(msg, m.keys.Mint) && caps.Mint:
		return m.start(m.mintCmd(task.ID))
	}
	return m, nil
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Cancel) {
		m.blurInputs()
		m.mode = modeBrowse
		return m, nil
	}

	if key.Matches(msg, m.keys.Submit) {
		switch m.mode {
		case modeCreateTitle:
			if strings.TrimSpace(m.title.Value()) == "" {
				return m, nil
			}
			m.title.Blur()
			m.mode = modeCreateDescription
			return m, m.description.Focus()
		case modeCreateDescription:
			title, description := m.title.Value(), m.description.Value()
			m.blurInputs()
			m.mode = modeBrowse
			return m.start(m.createCmd(title, description))
		case modeDelegate:
			to := strings.TrimSpace(m.delegate.Value())
			task, ok := m.selected()
			if to == "" || !ok {
				return m, nil
			}
			m.blurInputs()
			m.mode = modeBrowse
			return m.start(m.delegateCmd(task.ID, to))
		}
	}

	var cmd tea.Cmd
	switch m.mode {
	case modeCreateTitle:
		m.title, cmd = m.title.Update(msg)
	case modeCreateDescription:
		m.description, cmd = m.description.Update(msg)
	case modeDelegate:
		m.delegate, cmd = m.delegate.Update(msg)
	}
	return m, cmd
}

// start counts an action as pending and runs it.
func (m Model) start(cmd tea.Cmd) (tea.Model, tea.Cmd) {
	m.pending++
	return m, cmd
}

func (m *Model) blurInputs() {
	m.title.Blur()
	m.description.Blur()
	m.delegate.Blur()
}

func (m *Model) clampCursor() {
	if m.cursor >= len(m.snap.Tasks) {
		m.cursor = max(len(m.snap.Tasks)-1, 0)
	}
}

func (m Model) selected() (ledger.Task, bool) {
	if m.cursor < 0 || m.cursor >= len(m.snap.Tasks) {
		return ledger.Task{}, false
	}
	return m.snap.Tasks[m.cursor], true
}

func (m Model) currentView() tasks.View {
	return tasks.Gate(m.state, m.svc.ContractAddress())
}

// busy reports whether a spinner should show.
func (m Model) busy() bool {
	return m.pending > 0 || m.snap.Loading
}

// Run starts the program on the terminal and blocks until the user quits.
func Run(ctx context.Context, cfg Config, opts ...tea.ProgramOption) error {
	m := New(ctx, cfg)
	defer m.Close()
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	_, err := tea.NewProgram(m, opts...).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
