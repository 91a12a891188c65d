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
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/koustavx08/web3-todo-dapp/internal/app"
	"github.com/koustavx08/web3-todo-dapp/pkg/ux"
	"github.com/koustavx08/web3-todo-dapp/services/tasks"
	"github.com/koustavx08/web3-todo-dapp/services/wallet"
)

// walletStatus is the machine-readable form of `todo wallet status`.
type walletStatus struct {
	wallet.State
	Network  string     `json:"network"`
	Expected uint64     `json:"expectedChainId"`
	Contract string     `json:"contract,omitempty"`
	View     tasks.View `json:"view"`
	Provider bool       `json:"providerAvailable"`
}

func runWalletConnect(cmd *cobra.Command, args []string) error {
	return withApp(cmd, appOptions{}, func(ctx context.Context, a *app.App) error {
		if err := a.Session.Connect(ctx); err != nil {
			return reported(err)
		}
		return printWallet(a)
	})
}

func runWalletStatus(cmd *cobra.Command, args []string) error {
	return withApp(cmd, appOptions{}, func(ctx context.Context, a *app.App) error {
		if err := a.Session.CheckConnection(ctx); err != nil {
			return err
		}
		return printWallet(a)
	})
}

func runWalletSwitch(cmd *cobra.Command, args []string) error {
	return withApp(cmd, appOptions{}, func(ctx context.Context, a *app.App) error {
		if err := ensureConnected(ctx, a); err != nil {
			return err
		}
		if a.Session.State().CorrectNetwork {
			ux.Success("Already on " + a.Session.Network().Name)
			return nil
		}
		if err := a.Session.SwitchNetwork(ctx); err != nil {
			return reported(err)
		}
		return printWallet(a)
	})
}

// runWalletDisconnect clears the local session. The wallet keeps its
// permission grant; revoke it in the wallet itself.
func runWalletDisconnect(cmd *cobra.Command, args []string) error {
	return withApp(cmd, appOptions{}, func(ctx context.Context, a *app.App) error {
		a.Session.Disconnect()
		a.Service.Clear()
		ux.Success("Disconnected")
		ux.Muted("The wallet still lists this site as connected until you revoke it there.")
		return nil
	})
}

func printWallet(a *app.App) error {
	state := a.Session.State()
	status := walletStatus{
		State:    state,
		Network:  a.Session.Network().Name,
		Expected: a.Session.Network().ChainID,
		View:     a.Service.View(),
		Provider: a.HasWallet(),
	}
	if addr := a.Service.ContractAddress(); addr != (common.Address{}) {
		status.Contract = addr.Hex()
	}
	if jsonOutput {
		return ux.JSON(status)
	}

	ux.Title(ux.IconChain.Render() + " Wallet")
	connected := "Not connected"
	if !status.Provider {
		connected = "No wallet provider"
	} else if state.Connected {
		connected = "Connected"
	}
	chain := "unknown"
	if state.ChainID != nil {
		chain = strconv.FormatUint(*state.ChainID, 10)
		if !state.CorrectNetwork {
			chain += " (wrong network)"
		}
	}
	contract := status.Contract
	if contract == "" {
		contract = "not configured"
	}
	ux.KeyValue([][2]string{
		{"Status", connected},
		{"Account", state.ShortAccount()},
		{"Chain", chain},
		{"Network", status.Network + " (" + strconv.FormatUint(status.Expected, 10) + ")"},
		{"Contract", contract},
		{"View", status.View.String()},
	})
	return nil
}
