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

	"github.com/spf13/cobra"

	"github.com/koustavx08/web3-todo-dapp/internal/app"
	"github.com/koustavx08/web3-todo-dapp/pkg/ux"
	"github.com/koustavx08/web3-todo-dapp/services/tui"
)

// runUI opens the terminal UI. The session watch loop, the service's view
// tracking and the config watcher run beside it and stop when it exits.
func runUI(cmd *cobra.Command, args []string) error {
	return withApp(cmd, appOptions{terminal: true, service: "web3todo-ui"}, func(ctx context.Context, a *app.App) error {
		if err := a.Session.CheckConnection(ctx); err != nil {
			a.Logger.Warn("initial wallet check failed", "error", err)
		}
		return a.Background(ctx, func(ctx context.Context) error {
			return tui.Run(ctx, tui.Config{
				Session: a.Session,
				Service: a.Service,
				Bus:     a.Bus,
			})
		})
	})
}

// runServe serves the HTTP gateway until interrupted.
func runServe(cmd *cobra.Command, args []string) error {
	return withApp(cmd, appOptions{service: "web3todo-gateway"}, func(ctx context.Context, a *app.App) error {
		if err := a.Session.CheckConnection(ctx); err != nil {
			a.Logger.Warn("initial wallet check failed", "error", err)
		}
		ux.Success("Gateway listening on http://" + a.Config.Gateway.Addr)
		return a.Background(ctx, a.Gateway().Run)
	})
}
