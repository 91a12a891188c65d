// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/koustavx08/web3-todo-dapp/internal/app"
	"github.com/koustavx08/web3-todo-dapp/pkg/ux"
	"github.com/koustavx08/web3-todo-dapp/services/notify"
	"github.com/koustavx08/web3-todo-dapp/services/tasks"
)

// reportedError marks an error the user has already been shown as a
// notification, so main does not print it twice.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

func reported(err error) error {
	if err == nil {
		return nil
	}
	return &reportedError{err: err}
}

// appOptions controls how withApp builds the client.
type appOptions struct {
	// terminal owns the screen; notifications and logs stay off stdout.
	terminal bool
	service  string
}

// withApp builds the client for one command and closes it afterwards.
func withApp(cmd *cobra.Command, opts appOptions, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.service == "" {
		opts.service = "web3todo-cli"
	}

	var sink notify.Notifier
	if !opts.terminal && !jsonOutput {
		term := ux.NewNotifier()
		defer term.Close()
		sink = term
	}

	a, err := app.New(ctx, app.Options{
		ConfigPath: configPath,
		Service:    opts.service,
		Sink:       sink,
		Quiet:      opts.terminal || ux.Level() != ux.PersonalityMachine,
	})
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

// ensureConnected reads the wallet's connection passively and prompts for
// access only when no account is exposed yet.
func ensureConnected(ctx context.Context, a *app.App) error {
	if err := a.Session.CheckConnection(ctx); err != nil {
		return err
	}
	if a.Session.State().Connected {
		return nil
	}
	return reported(a.Session.Connect(ctx))
}

// ensureTasksView connects and checks that the task list is reachable,
// explaining what to do when it is not. The snapshot is loaded so
// per-task permission checks apply.
func ensureTasksView(ctx context.Context, a *app.App) error {
	if err := ensureConnected(ctx, a); err != nil {
		return err
	}
	switch a.Service.View() {
	case tasks.ViewTasks:
	case tasks.ViewNetworkWarning:
		ux.WarningBox("Wrong network",
			fmt.Sprintf("Please switch to %s to use this dApp.\nRun `todo wallet switch`.", a.Session.Network().Name))
		return reported(tasks.ErrContractUnavailable)
	case tasks.ViewContractWarning:
		ux.WarningBox("Contract not deployed",
			fmt.Sprintf("Set contract.address in %s or %s,\nor run `todo deploy`.", a.ConfigPath, "TODO_CONTRACT_ADDRESS"))
		return reported(tasks.ErrContractUnavailable)
	default:
		return reported(tasks.ErrContractUnavailable)
	}
	return reported(a.Service.Refresh(ctx))
}

func parseTaskID(arg string) (uint64, error) {
	id, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimSpace(arg), "#"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: task id must be a non-negative integer, got %q", tasks.ErrInvalidInput, arg)
	}
	return id, nil
}

func shortAddress(hex string) string {
	if len(hex) < 10 {
		return hex
	}
	return hex[:6] + "..." + hex[len(hex)-4:]
}
