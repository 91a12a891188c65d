// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ledgertest

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustavx08/web3-todo-dapp/services/ledger"
)

var (
	alice = common.HexToAddress("0xa1")
	bob   = common.HexToAddress("0xb2")
)

// mine waits for a write: mine(t)(contract.CreateTask(...)).
func mine(t *testing.T) func(ledger.PendingTx, error) *ledger.Receipt {
	return func(tx ledger.PendingTx, err error) *ledger.Receipt {
		t.Helper()
		require.NoError(t, err)
		r, err := tx.Wait(context.Background())
		require.NoError(t, err)
		return r
	}
}

func TestChain_Rules(t *testing.T) {
	ctx := context.Background()
	chain := New(common.HexToAddress("0xc0"))
	a, b := chain.As(alice), chain.As(bob)

	r := mine(t)(a.CreateTask(ctx, "Buy milk", "", ""))
	ev, ok := r.Event(ledger.EventTaskCreated)
	require.True(t, ok)
	id := ev.TaskID

	_, err := b.CompleteTask(ctx, id)
	assert.Equal(t, "execution reverted: Not authorized", ledger.Reason(err))

	_, err = b.DelegateTask(ctx, id, bob)
	require.Error(t, err)

	mine(t)(a.DelegateTask(ctx, id, bob))
	ids, err := b.GetUserTasks(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, []uint64{id}, ids)

	_, err = a.MintTaskAsNFT(ctx, id, "uri")
	assert.Contains(t, ledger.Reason(err), "must be completed")

	mine(t)(b.CompleteTask(ctx, id))
	task, _ := chain.Task(id)
	assert.True(t, task.Completed)
	assert.False(t, task.CompletedAt.IsZero())

	r = mine(t)(a.MintTaskAsNFT(ctx, id, "uri"))
	ev, ok = r.Event(ledger.EventTaskMintedAsNFT)
	require.True(t, ok)
	assert.Equal(t, uint64(1), ev.TokenID)

	_, err = a.DeleteTask(ctx, id)
	assert.Contains(t, ledger.Reason(err), "Cannot delete NFT task")

	stats, err := a.GetUserStats(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats.TotalTasks)
	assert.Equal(t, uint64(1), stats.CompletedTasks)
	assert.Equal(t, uint64(1), stats.CurrentStreak)
}

func TestChain_Streaks(t *testing.T) {
	ctx := context.Background()
	chain := New(common.HexToAddress("0xc0"))
	a := chain.As(alice)
	day := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	chain.SetClock(func() time.Time { return day })

	for i := 0; i < 4; i++ {
		mine(t)(a.CreateTask(ctx, "t", "", ""))
	}
	mine(t)(a.CompleteTask(ctx, 1))
	day = day.Add(24 * time.Hour)
	mine(t)(a.CompleteTask(ctx, 2))
	day = day.Add(72 * time.Hour)
	mine(t)(a.CompleteTask(ctx, 3))

	stats, _ := a.GetUserStats(ctx, alice)
	assert.Equal(t, uint64(1), stats.CurrentStreak)
	assert.Equal(t, uint64(2), stats.MaxStreak)
}

func TestChain_FailuresAndReverts(t *testing.T) {
	ctx := context.Background()
	chain := New(common.HexToAddress("0xc0"))
	a := chain.As(alice)

	chain.FailNext(ledger.MethodGetUserTasks, Revert("rpc down"))
	_, err := a.GetUserTasks(ctx, alice)
	require.Error(t, err)
	_, err = a.GetUserTasks(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 2, chain.Calls(ledger.MethodGetUserTasks))

	chain.RevertNext(ledger.MethodCreateTask, "out of gas")
	tx, err := a.CreateTask(ctx, "x", "", "")
	require.NoError(t, err)
	_, err = tx.Wait(ctx)
	require.ErrorIs(t, err, ledger.ErrTransactionReverted)
	_, ok := chain.Task(1)
	assert.False(t, ok)
}

func TestChain_DeleteRemovesFromList(t *testing.T) {
	ctx := context.Background()
	chain := New(common.HexToAddress("0xc0"))
	a := chain.As(alice)
	mine(t)(a.CreateTask(ctx, "one", "", ""))
	mine(t)(a.CreateTask(ctx, "two", "", ""))
	mine(t)(a.DeleteTask(ctx, 1))

	ids, err := a.GetUserTasks(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, []uint64{2}, ids)
}
