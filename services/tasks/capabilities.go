// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tasks

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/koustavx08/web3-todo-dapp/services/ledger"
	"github.com/koustavx08/web3-todo-dapp/services/wallet"
)

// Capabilities lists the actions an account may take on one task. The
// contract enforces the same rules; these only decide what to offer.
type Capabilities struct {
	Complete bool `json:"canComplete"`
	Delegate bool `json:"canDelegate"`
	Delete   bool `json:"canDelete"`
	Mint     bool `json:"canMint"`
}

// CapabilitiesFor returns what actor may do with t. The zero address may
// do nothing.
func CapabilitiesFor(t ledger.Task, actor common.Address) Capabilities {
	if actor == (common.Address{}) {
		return Capabilities{}
	}
	isOwner := t.Owner == actor
	isDelegate := t.IsDelegated() && t.DelegatedTo == actor
	return Capabilities{
		Complete: !t.Completed && (isOwner || isDelegate),
		Delegate: isOwner && !t.Completed,
		Delete:   isOwner && !t.IsNFT,
		Mint:     isOwner && t.Completed && !t.IsNFT,
	}
}

// View is the top-level screen a client should render.
type View int

const (
	// ViewConnectPrompt asks the user to connect a wallet.
	ViewConnectPrompt View = iota
	// ViewNetworkWarning asks the user to switch networks.
	ViewNetworkWarning
	// ViewContractWarning explains that no contract address is configured.
	ViewContractWarning
	// ViewTasks shows the task list.
	ViewTasks
)

func (v View) String() string {
	switch v {
	case ViewConnectPrompt:
		return "connect"
	case ViewNetworkWarning:
		return "network-warning"
	case ViewContractWarning:
		return "contract-warning"
	case ViewTasks:
		return "tasks"
	default:
		return "unknown"
	}
}

// MarshalText renders the view name in JSON.
func (v View) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// Gate picks the view for a wallet state and configured contract address.
// Conditions are checked in order: connection, network, contract.
func Gate(state wallet.State, contract common.Address) View {
	switch {
	case !state.Connected:
		return ViewConnectPrompt
	case !state.CorrectNetwork:
		return ViewNetworkWarning
	case contract == (common.Address{}):
		return ViewContractWarning
	default:
		return ViewTasks
	}
}
