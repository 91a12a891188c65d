// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ledger binds the TodoList contract to a wallet provider.
//
// The contract is the source of truth for tasks, ownership, delegation,
// streaks and NFT issuance. This package only encodes calls, submits them
// through the wallet, and decodes results, receipts and events.
package ledger

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// Contract is the TodoList contract surface.
//
// Write methods return once the wallet has accepted and broadcast the
// transaction. Call Wait on the result to block for confirmation.
type Contract interface {
	// Address is the contract address.
	Address() common.Address

	CreateTask(ctx context.Context, title, description, ipfsHash string) (PendingTx, error)
	CompleteTask(ctx context.Context, id uint64) (PendingTx, error)
	DelegateTask(ctx context.Context, id uint64, to common.Address) (PendingTx, error)
	DeleteTask(ctx context.Context, id uint64) (PendingTx, error)
	MintTaskAsNFT(ctx context.Context, id uint64, tokenURI string) (PendingTx, error)

	GetUserTasks(ctx context.Context, user common.Address) ([]uint64, error)
	GetTask(ctx context.Context, id uint64) (Task, error)
	GetUserStats(ctx context.Context, user common.Address) (UserStats, error)
}

// PendingTx is a submitted transaction.
type PendingTx interface {
	Hash() common.Hash

	// Wait blocks until the transaction has one confirmation or ctx ends.
	// A reverted transaction returns its receipt and an error matching
	// ErrTransactionReverted.
	Wait(ctx context.Context) (*Receipt, error)
}

// Receipt is the subset of a transaction receipt the client uses.
type Receipt struct {
	TxHash          common.Hash     `json:"transactionHash"`
	BlockNumber     uint64          `json:"blockNumber"`
	Status          uint64          `json:"status"`
	GasUsed         uint64          `json:"gasUsed"`
	ContractAddress *common.Address `json:"contractAddress,omitempty"`
	Events          []Event         `json:"events,omitempty"`
}

// Succeeded reports a status of 1.
func (r *Receipt) Succeeded() bool {
	return r != nil && r.Status == 1
}

// Event returns the first decoded event with the given name.
func (r *Receipt) Event(name string) (Event, bool) {
	if r == nil {
		return Event{}, false
	}
	for _, ev := range r.Events {
		if ev.Name == name {
			return ev, true
		}
	}
	return Event{}, false
}

// Event is a decoded contract event. Fields that the event does not carry
// are left zero.
type Event struct {
	Name    string         `json:"name"`
	TaskID  uint64         `json:"taskId,omitempty"`
	Account common.Address `json:"account"`
	To      common.Address `json:"to,omitzero"`
	TokenID uint64         `json:"tokenId,omitempty"`
	Title   string         `json:"title,omitempty"`

	CurrentStreak uint64 `json:"currentStreak,omitempty"`
	MaxStreak     uint64 `json:"maxStreak,omitempty"`
}
