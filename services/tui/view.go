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
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/koustavx08/web3-todo-dapp/pkg/ux"
	"github.com/koustavx08/web3-todo-dapp/services/ledger"
	"github.com/koustavx08/web3-todo-dapp/services/notify"
	"github.com/koustavx08/web3-todo-dapp/services/tasks"
)

const dateLayout = "Jan 2, 2006"

var styles = struct {
	header    lipgloss.Style
	accent    lipgloss.Style
	muted     lipgloss.Style
	done      lipgloss.Style
	card      lipgloss.Style
	selected  lipgloss.Style
	statCard  lipgloss.Style
	statValue lipgloss.Style
	input     lipgloss.Style
	success   lipgloss.Style
	warning   lipgloss.Style
	errorText lipgloss.Style
}{
	header:    ux.Styles.Title.Padding(0, 1),
	accent:    ux.Styles.Highlight,
	muted:     ux.Styles.Muted,
	done:      ux.Styles.Muted.Strikethrough(true),
	card:      ux.Styles.Box.Width(72),
	selected:  ux.Styles.Box.BorderForeground(ux.ColorAccent).Width(72),
	statCard:  ux.Styles.Box.Width(20).Align(lipgloss.Center),
	statValue: ux.Styles.Bold.Foreground(ux.ColorPrimary),
	input:     ux.Styles.Box.BorderForeground(ux.ColorAccent).Width(72),
	success:   ux.Styles.Success,
	warning:   ux.Styles.Warning,
	errorText: ux.Styles.Error,
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	if m.mode == modeHelp {
		b.WriteString(m.help.FullHelpView(m.keys.fullHelp()))
		b.WriteString("\n")
		return b.String()
	}

	switch view := m.currentView(); view {
	case tasks.ViewConnectPrompt:
		b.WriteString(m.renderWelcome())
	case tasks.ViewNetworkWarning:
		b.WriteString(m.renderNetworkWarning())
	case tasks.ViewContractWarning:
		b.WriteString(m.renderContractWarning())
	default:
		b.WriteString(m.renderTasks())
	}

	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) renderHeader() string {
	title := styles.header.Render(string(ux.IconChain) + " Web3 To-Do")
	var status string
	switch {
	case !m.state.Connected:
		status = styles.muted.Render("Not connected")
	case !m.state.CorrectNetwork:
		status = styles.warning.Render(m.state.ShortAccount() + " · Wrong network")
	default:
		status = styles.success.Render(m.state.ShortAccount()) + styles.muted.Render(" · "+m.session.Network().Name)
	}
	return lipgloss.JoinHorizontal(lipgloss.Center, title, "  ", status)
}

func (m Model) renderWelcome() string {
	body := strings.Join([]string{
		"Manage your tasks on the blockchain with complete ownership and transparency.",
		"",
		ux.IconBullet.Render() + " Tasks live in a smart contract owned by your wallet",
		ux.IconBullet.Render() + " Delegate tasks to other addresses",
		ux.IconBullet.Render() + " Mint completed tasks as NFTs",
		"",
		"Press " + styles.accent.Render("c") + " to connect your wallet.",
	}, "\n")
	return ux.Styles.Box.Width(72).Render(ux.Styles.Title.Render("Welcome to Web3 To-Do") + "\n\n" + body)
}

func (m Model) renderNetworkWarning() string {
	name := m.session.Network().Name
	body := fmt.Sprintf("This dApp runs on %s.\nPress %s to switch your wallet to %s.",
		name, styles.accent.Render("s"), name)
	return ux.Styles.WarningBox.Width(72).Render(styles.warning.Bold(true).Render("Wrong Network") + "\n\n" + body)
}

func (m Model) renderContractWarning() string {
	body := strings.Join([]string{
		"No TodoList contract address is configured.",
		"",
		"1. Deploy the contract with `todo deploy`",
		"2. Set contract.address in the config file or TODO_CONTRACT_ADDRESS",
		"3. The task list appears once the address is picked up",
	}, "\n")
	return ux.Styles.WarningBox.Width(72).Render(styles.warning.Bold(true).Render("Contract Not Deployed") + "\n\n" + body)
}

func (m Model) renderTasks() string {
	var b strings.Builder
	if m.snap.Stats != nil {
		b.WriteString(renderStats(*m.snap.Stats))
		b.WriteString("\n")
	}

	switch m.mode {
	case modeCreateTitle, modeCreateDescription:
		b.WriteString(m.renderCreateForm())
		b.WriteString("\n")
	}

	if len(m.snap.Tasks) == 0 {
		if m.snap.Loading {
			b.WriteString(styles.muted.Render("Loading tasks..."))
		} else {
			b.WriteString(styles.muted.Render("No tasks yet. Press n to create your first task."))
		}
		b.WriteString("\n")
		return b.String()
	}

	account := m.state.AccountAddress()
	for i, t := range m.snap.Tasks {
		card := renderTask(t, tasks.CapabilitiesFor(t, account), m.explorerLink(t))
		if i == m.cursor && m.mode == modeDelegate {
			card += "\n" + m.delegate.View()
		}
		if i == m.cursor {
			b.WriteString(styles.selected.Render(card))
		} else {
			b.WriteString(styles.card.Render(card))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderCreateForm() string {
	hint := styles.muted.Render("Long descriptions will be stored on IPFS")
	if m.svc.NeedsUpload(m.description.Value()) {
		hint = styles.accent.Render("This description will be stored on IPFS")
	}
	form := strings.Join([]string{
		ux.Styles.Bold.Render("Create New Task"),
		m.title.View(),
		m.description.View(),
		hint,
	}, "\n")
	return styles.input.Render(form)
}

func (m Model) explorerLink(t ledger.Task) string {
	if !t.IsNFT {
		return ""
	}
	return m.session.Network().ExplorerTokenURL(m.svc.ContractAddress().Hex(), t.NFTTokenID)
}

func renderStats(s ledger.UserStats) string {
	card := func(label, value string) string {
		return styles.statCard.Render(styles.statValue.Render(value) + "\n" + styles.muted.Render(label))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		card("Total Tasks", fmt.Sprint(s.TotalTasks)),
		card("Completed", fmt.Sprint(s.CompletedTasks)),
		card("Current Streak", fmt.Sprintf("%d days", s.CurrentStreak)),
		card("Completion Rate", fmt.Sprintf("%d%%", s.CompletionRate())),
	)
}

func renderTask(t ledger.Task, caps tasks.Capabilities, explorer string) string {
	check := ux.IconPending.Render()
	title := ux.Styles.Bold.Render(t.Title)
	if t.Completed {
		check = ux.IconSuccess.Render()
		title = styles.done.Render(t.Title)
	}

	line := check + " " + title
	if t.IsNFT {
		line += " " + ux.Styles.NFTBadge.Render("★ NFT")
	}
	if t.IsDelegated() {
		line += " " + ux.Styles.Badge.Render("Delegated")
	}

	lines := []string{line}
	if t.Description != "" {
		lines = append(lines, "  "+t.Description)
	}

	dates := "Created: " + formatDate(t.CreatedAt)
	if t.Completed {
		dates += " • Completed: " + formatDate(t.CompletedAt)
	}
	lines = append(lines, "  "+styles.muted.Render(dates))

	if t.IsDelegated() {
		lines = append(lines, "  "+styles.muted.Render("Delegated to: "+shortAddress(t.DelegatedTo.Hex())))
	}
	if t.IPFSHash != "" {
		lines = append(lines, "  "+styles.muted.Render("IPFS: "+t.IPFSHash))
	}

	var actions []string
	if caps.Complete {
		actions = append(actions, "[x] complete")
	}
	if caps.Mint {
		actions = append(actions, "[m] mint as NFT")
	}
	if caps.Delegate {
		actions = append(actions, "[g] delegate")
	}
	if caps.Delete {
		actions = append(actions, "[d] delete")
	}
	if len(actions) > 0 {
		lines = append(lines, "  "+styles.accent.Render(strings.Join(actions, "  ")))
	}
	if explorer != "" {
		lines = append(lines, "  "+styles.muted.Render("View NFT: "+explorer))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderFooter() string {
	var parts []string
	if m.busy() {
		parts = append(parts, m.spinner.View())
	}
	if m.note != nil {
		parts = append(parts, renderNote(*m.note))
	}
	status := strings.Join(parts, " ")

	bindings := m.keys.shortHelp(m.state.Connected, m.currentView() == tasks.ViewTasks)
	if m.mode != modeBrowse {
		bindings = []key.Binding{m.keys.Submit, m.keys.Cancel}
	}
	return status + "\n" + m.help.ShortHelpView(bindings)
}

func renderNote(n notify.Notification) string {
	switch n.Level {
	case notify.LevelSuccess:
		return ux.IconSuccess.Render() + " " + styles.success.Render(n.Message)
	case notify.LevelError:
		return ux.IconError.Render() + " " + styles.errorText.Render(n.Message)
	case notify.LevelLoading:
		return styles.accent.Render(n.Message)
	default:
		return styles.muted.Render(n.Message)
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(dateLayout)
}

// shortAddress renders 0x1234...abcd.
func shortAddress(hex string) string {
	if len(hex) < 10 {
		return hex
	}
	return hex[:6] + "..." + hex[len(hex)-4:]
}
