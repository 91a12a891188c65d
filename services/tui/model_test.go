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
	"context"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"

	"github.com/koustavx08/web3-todo-dapp/services/ledger"
	"github.com/koustavx08/web3-todo-dapp/services/ledger/ledgertest"
	"github.com/koustavx08/web3-todo-dapp/services/notify"
	"github.com/koustavx08/web3-todo-dapp/services/tasks"
	"github.com/koustavx08/web3-todo-dapp/services/wallet"
	"github.com/koustavx08/web3-todo-dapp/services/wallet/wallettest"
)

var (
	testContract = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	alice        = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob          = common.HexToAddress("0x00000000000000000000000000000000000000b2")
)

type fixture struct {
	model   Model
	chain   *ledgertest.Chain
	session *wallet.Session
	svc     *tasks.Service
	bus     *notify.Bus

	mu      sync.Mutex
	chainID string
}

func newFixture(t *testing.T, contract common.Address) *fixture {
	t.Helper()
	f := &fixture{chain: ledgertest.New(testContract), bus: notify.NewBus(), chainID: "0xa869"}

	p := wallettest.New()
	p.Return("eth_accounts", []string{alice.Hex()})
	p.Return("eth_requestAccounts", []string{alice.Hex()})
	p.Handle("eth_chainId", func([]any) (any, error) {
		f.mu.Lock()
		defer f.mu.Unlock()
		return f.chainID, nil
	})
	p.Return("wallet_switchEthereumChain", nil)

	f.session = wallet.NewSession(wallet.SessionConfig{Provider: p, Network: wallet.Fuji(), Notifier: f.bus})
	svc, err := tasks.NewService(tasks.Config{
		Session:         f.session,
		ContractAddress: contract,
		Bind:            func(_, from common.Address) ledger.Contract { return f.chain.As(from) },
		Notifier:        f.bus,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	f.svc = svc
	f.model = New(context.Background(), Config{Session: f.session, Service: svc, Bus: f.bus})
	t.Cleanup(f.model.Close)
	return f
}

// send feeds msg through Update and returns the resulting model and
// command.
func send(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return model, cmd
}

// exec runs cmd and feeds its message back, as the runtime would.
func exec(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	m, _ = send(t, m, cmd())
	return m
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return m
}

// =============================================================================
// Gating
// =============================================================================

func TestView_ConnectPrompt(t *testing.T) {
	f := newFixture(t, testContract)
	out := f.model.View()
	if !strings.Contains(out, "Welcome to Web3 To-Do") {
		t.Errorf("welcome panel missing:\n%s", out)
	}
	if !strings.Contains(out, "Not connected") {
		t.Errorf("header should show disconnected:\n%s", out)
	}
}

func TestView_NetworkWarning(t *testing.T) {
	f := newFixture(t, testContract)
	f.mu.Lock()
	f.chainID = "0x1"
	f.mu.Unlock()

	m, cmd := send(t, f.model, keyPress("c"))
	if m.pending != 1 {
		t.Errorf("pending = %d, want 1", m.pending)
	}
	m = exec(t, m, cmd)
	if got := m.currentView(); got != tasks.ViewNetworkWarning {
		// Connect switched networks; the fake wallet stays on chain 1.
		t.Fatalf("view = %v, want network-warning", got)
	}
	if !strings.Contains(m.View(), "Wrong Network") {
		t.Errorf("network warning missing:\n%s", m.View())
	}

	f.mu.Lock()
	f.chainID = "0xa869"
	f.mu.Unlock()
	m, cmd = send(t, m, keyPress("s"))
	m = exec(t, m, cmd)
	if got := m.currentView(); got != tasks.ViewTasks {
		t.Errorf("view after switch = %v, want tasks", got)
	}
}

func TestView_ContractWarning(t *testing.T) {
	f := newFixture(t, common.Address{})
	m := exec(t, f.model, f.model.connectCmd())
	if !strings.Contains(m.View(), "Contract Not Deployed") {
		t.Errorf("contract warning missing:\n%s", m.View())
	}
}

// =============================================================================
// Task actions
// =============================================================================

func connected(t *testing.T, f *fixture) Model {
	t.Helper()
	m := exec(t, f.model, f.model.connectCmd())
	if m.currentView() != tasks.ViewTasks {
		t.Fatalf("view = %v, want tasks", m.currentView())
	}
	return m
}

func TestCreateTaskFlow(t *testing.T) {
	f := newFixture(t, testContract)
	m := connected(t, f)

	m, _ = send(t, m, keyPress("n"))
	if m.mode != modeCreateTitle {
		t.Fatalf("mode = %v, want create title", m.mode)
	}
	if !strings.Contains(m.View(), "Long descriptions will be stored on IPFS") {
		t.Errorf("IPFS hint missing:\n%s", m.View())
	}

	// Empty titles are not accepted.
	m, cmd := send(t, m, keyPress("enter"))
	if cmd != nil || m.mode != modeCreateTitle {
		t.Fatal("empty title should keep the form open")
	}

	m = typeText(t, m, "Buy milk")
	m, _ = send(t, m, keyPress("enter"))
	if m.mode != modeCreateDescription {
		t.Fatalf("mode = %v, want description", m.mode)
	}
	m = typeText(t, m, "Two litres")
	m, cmd = send(t, m, keyPress("enter"))
	if m.mode != modeBrowse {
		t.Errorf("form should close after submit")
	}
	m = exec(t, m, cmd)
	if m.pending != 0 {
		t.Errorf("pending = %d after completion", m.pending)
	}

	task, ok := f.chain.Task(1)
	if !ok || task.Title != "Buy milk" || task.Description != "Two litres" {
		t.Fatalf("task not created: %+v", task)
	}

	m, _ = send(t, m, snapshotMsg{Snapshot: f.svc.Snapshot()})
	out := m.View()
	for _, want := range []string{"Buy milk", "Two litres", "Total Tasks", "Completion Rate", "[x] complete", "[d] delete"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q:\n%s", want, out)
		}
	}
}

func TestCreateTask_Cancel(t *testing.T) {
	f := newFixture(t, testContract)
	m := connected(t, f)

	m, _ = send(t, m, keyPress("n"))
	m = typeText(t, m, "draft")
	m, cmd := send(t, m, keyPress("esc"))
	if m.mode != modeBrowse || cmd != nil {
		t.Errorf("esc should close the form without a command")
	}
	if f.chain.Calls(ledger.MethodCreateTask) != 0 {
		t.Error("cancelled form must not create a task")
	}
}

func TestActionsFollowCapabilities(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testContract)
	m := connected(t, f)

	// Bob owns a task delegated to Alice.
	if _, err := f.chain.As(bob).CreateTask(ctx, "Bob's task", "", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := f.chain.As(bob).DelegateTask(ctx, 1, alice); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	m, _ = send(t, m, snapshotMsg{Snapshot: f.svc.Snapshot()})

	out := m.View()
	if !strings.Contains(strings.ToLower(out), "delegated to: 0x0000...00a1") {
		t.Errorf("delegate line missing:\n%s", out)
	}
	if strings.Contains(out, "[d] delete") {
		t.Errorf("delegate must not be offered delete:\n%s", out)
	}

	for _, k := range []string{"d", "g", "m"} {
		if _, cmd := send(t, m, keyPress(k)); cmd != nil {
			t.Errorf("key %q should be ignored for a delegate", k)
		}
	}

	m, cmd := send(t, m, keyPress("x"))
	m = exec(t, m, cmd)
	if task, _ := f.chain.Task(1); !task.Completed {
		t.Error("delegate should be able to complete")
	}
	_ = m
}

func TestDelegateFlow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testContract)
	m := connected(t, f)
	if _, err := f.svc.CreateTask(ctx, "share me", ""); err != nil {
		t.Fatal(err)
	}
	m, _ = send(t, m, snapshotMsg{Snapshot: f.svc.Snapshot()})

	m, _ = send(t, m, keyPress("g"))
	if m.mode != modeDelegate {
		t.Fatalf("mode = %v, want delegate", m.mode)
	}
	m = typeText(t, m, bob.Hex())
	m, cmd := send(t, m, keyPress("enter"))
	m = exec(t, m, cmd)

	task, _ := f.chain.Task(1)
	if task.DelegatedTo != bob {
		t.Errorf("DelegatedTo = %s, want %s", task.DelegatedTo.Hex(), bob.Hex())
	}
	_ = m
}

func TestDelegate_InvalidAddressShowsError(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testContract)
	m := connected(t, f)
	if _, err := f.svc.CreateTask(ctx, "share me", ""); err != nil {
		t.Fatal(err)
	}
	m, _ = send(t, m, snapshotMsg{Snapshot: f.svc.Snapshot()})

	m, _ = send(t, m, keyPress("g"))
	m = typeText(t, m, "nope")
	m, cmd := send(t, m, keyPress("enter"))
	m = exec(t, m, cmd)
	if m.note == nil || m.note.Level != notify.LevelError {
		t.Fatalf("expected an error note, got %+v", m.note)
	}
}

// =============================================================================
// Messages
// =============================================================================

func TestNotificationLine(t *testing.T) {
	f := newFixture(t, testContract)
	m, _ := send(t, f.model, noteMsg{Note: notify.Notification{Level: notify.LevelSuccess, Message: "Task created successfully!"}})
	if !strings.Contains(m.View(), "Task created successfully!") {
		t.Errorf("notification missing:\n%s", m.View())
	}
}

func TestSubscriptionsRearm(t *testing.T) {
	f := newFixture(t, testContract)
	_, cmd := send(t, f.model, stateMsg{State: f.session.State()})
	if cmd == nil {
		t.Error("state subscription should re-arm")
	}
	_, cmd = send(t, f.model, snapshotMsg{})
	if cmd == nil {
		t.Error("snapshot subscription should re-arm")
	}
}

func TestQuit(t *testing.T) {
	f := newFixture(t, testContract)
	m, cmd := send(t, f.model, keyPress("q"))
	if !m.quitting {
		t.Error("expected quitting")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.Quit")
	}
	if m.View() != "" {
		t.Error("quitting view should be empty")
	}
}

func TestHelpOverlay(t *testing.T) {
	f := newFixture(t, testContract)
	m, _ := send(t, f.model, keyPress("?"))
	if m.mode != modeHelp {
		t.Fatalf("mode = %v, want help", m.mode)
	}
	if !strings.Contains(m.View(), "mint NFT") {
		t.Errorf("full help missing bindings:\n%s", m.View())
	}
	m, _ = send(t, m, keyPress("esc"))
	if m.mode != modeBrowse {
		t.Error("esc should close help")
	}
}

func TestShortAddress(t *testing.T) {
	if got := shortAddress(bob.Hex()); !strings.EqualFold(got, "0x0000...00b2") {
		t.Errorf("shortAddress = %q", got)
	}
	if got := shortAddress("0x12"); got != "0x12" {
		t.Errorf("short input changed: %q", got)
	}
}
