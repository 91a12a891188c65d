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

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/koustavx08/web3-todo-dapp/services/notify"
	"github.com/koustavx08/web3-todo-dapp/services/tasks"
	"github.com/koustavx08/web3-todo-dapp/services/wallet"
)

// =============================================================================
// Messages
// =============================================================================

// stateMsg carries a wallet state change.
type stateMsg struct {
	State wallet.State
}

// snapshotMsg carries a new task snapshot.
type snapshotMsg struct {
	Snapshot tasks.Snapshot
}

// noteMsg carries a notification from the bus.
type noteMsg struct {
	Note notify.Notification
}

// opDoneMsg reports the end of a user action. Failures have already been
// published as notifications by the service.
type opDoneMsg struct {
	Op  string
	Err error
}

// closedMsg reports that a subscription channel was closed.
type closedMsg struct{}

// =============================================================================
// Subscriptions
// =============================================================================

func waitForState(ch <-chan wallet.State) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return closedMsg{}
		}
		return stateMsg{State: s}
	}
}

func waitForSnapshot(ch <-chan tasks.Snapshot) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return closedMsg{}
		}
		return snapshotMsg{Snapshot: s}
	}
}

func waitForNote(ch <-chan notify.Notification) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		n, ok := <-ch
		if !ok {
			return closedMsg{}
		}
		return noteMsg{Note: n}
	}
}

// =============================================================================
// Actions
// =============================================================================

// run wraps a blocking action into a command reporting opDoneMsg.
func run(op string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		return opDoneMsg{Op: op, Err: fn()}
	}
}

func (m Model) connectCmd() tea.Cmd {
	return run("connect", func() error { return m.session.Connect(m.ctx) })
}

func (m Model) switchCmd() tea.Cmd {
	return run("switch", func() error { return m.session.SwitchNetwork(m.ctx) })
}

func (m Model) checkCmd() tea.Cmd {
	return run("check", func() error { return m.session.CheckConnection(m.ctx) })
}

func (m Model) refreshCmd() tea.Cmd {
	return run("refresh", func() error { return m.svc.Refresh(m.ctx) })
}

func (m Model) createCmd(title, description string) tea.Cmd {
	return run("create", func() error {
		_, err := m.svc.CreateTask(m.ctx, title, description)
		return err
	})
}

func (m Model) completeCmd(id uint64) tea.Cmd {
	return run("complete", func() error {
		_, err := m.svc.CompleteTask(m.ctx, id)
		return err
	})
}

func (m Model) delegateCmd(id uint64, to string) tea.Cmd {
	return run("delegate", func() error {
		_, err := m.svc.DelegateTask(m.ctx, id, to)
		return err
	})
}

func (m Model) deleteCmd(id uint64) tea.Cmd {
	return run("delete", func() error {
		_, err := m.svc.DeleteTask(m.ctx, id)
		return err
	})
}

func (m Model) mintCmd(id uint64) tea.Cmd {
	return run("mint", func() error {
		_, err := m.svc.MintTaskAsNFT(m.ctx, id)
		return err
	})
}
