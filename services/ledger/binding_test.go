// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustavx08/web3-todo-dapp/services/wallet"
	"github.com/koustavx08/web3-todo-dapp/services/wallet/wallettest"
)

var (
	contractAddr = common.HexToAddress("0xFa296AEC34aE2838b2587963cC43deB60E25c80c")
	alice        = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob          = common.HexToAddress("0x00000000000000000000000000000000000000b2")
)

type callArgs struct {
	From *common.Address `json:"from"`
	To   *common.Address `json:"to"`
	Data hexutil.Bytes   `json:"data"`
}

// viewHandler answers eth_call by dispatching on the method selector.
func viewHandler(t *testing.T, answer func(m *abi.Method, args []any) []any) wallettest.HandlerFunc {
	return func(params []any) (any, error) {
		var call callArgs
		require.NoError(t, wallettest.DecodeParam(params, 0, &call))
		require.NotNil(t, call.To)
		assert.Equal(t, contractAddr, *call.To)

		m, err := contractABI.MethodById(call.Data[:4])
		require.NoError(t, err)
		args, err := m.Inputs.Unpack(call.Data[4:])
		require.NoError(t, err)

		out, err := m.Outputs.Pack(answer(m, args)...)
		require.NoError(t, err)
		return hexutil.Bytes(out), nil
	}
}

func revertData(t *testing.T, reason string) string {
	t.Helper()
	strType, err := abi.NewType("string", "", nil)
	require.NoError(t, err)
	packed, err := abi.Arguments{{Type: strType}}.Pack(reason)
	require.NoError(t, err)
	selector := crypto.Keccak256([]byte("Error(string)"))[:4]
	return hexutil.Encode(append(selector, packed...))
}

func newTestBinding(p wallet.Provider, from common.Address) *Binding {
	return NewBinding(BindingConfig{
		Provider:     p,
		Address:      contractAddr,
		From:         from,
		PollInterval: 5 * time.Millisecond,
	})
}

// =============================================================================
// Views
// =============================================================================

func TestBinding_GetUserTasks(t *testing.T) {
	p := wallettest.New().Handle("eth_call", viewHandler(t, func(m *abi.Method, args []any) []any {
		require.Equal(t, MethodGetUserTasks, m.Name)
		assert.Equal(t, alice, args[0].(common.Address))
		return []any{[]*big.Int{big.NewInt(1), big.NewInt(4), big.NewInt(9)}}
	}))

	ids, err := newTestBinding(p, alice).GetUserTasks(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 4, 9}, ids)
}

func TestBinding_GetTask(t *testing.T) {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	p := wallettest.New().Handle("eth_call", viewHandler(t, func(m *abi.Method, args []any) []any {
		require.Equal(t, MethodGetTask, m.Name)
		assert.Equal(t, int64(7), args[0].(*big.Int).Int64())
		return []any{rawTask{
			Id:          big.NewInt(7),
			Title:       "Buy milk",
			Description: "two litres, skimmed",
			IpfsHash:    "",
			Completed:   false,
			CreatedAt:   big.NewInt(created.Unix()),
			CompletedAt: big.NewInt(0),
			Owner:       alice,
			DelegatedTo: bob,
			IsNFT:       false,
			NftTokenId:  big.NewInt(0),
		}}
	}))

	task, err := newTestBinding(p, alice).GetTask(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), task.ID)
	assert.Equal(t, "Buy milk", task.Title)
	assert.Equal(t, created, task.CreatedAt)
	assert.True(t, task.CompletedAt.IsZero())
	assert.Equal(t, alice, task.Owner)
	assert.True(t, task.IsDelegated())
	assert.Equal(t, bob, task.DelegatedTo)
}

func TestBinding_GetUserStats(t *testing.T) {
	p := wallettest.New().Handle("eth_call", viewHandler(t, func(m *abi.Method, args []any) []any {
		require.Equal(t, MethodGetUserStats, m.Name)
		return []any{rawStats{
			TotalTasks:         big.NewInt(3),
			CompletedTasks:     big.NewInt(2),
			CurrentStreak:      big.NewInt(1),
			LastCompletionDate: big.NewInt(1714564800),
			MaxStreak:          big.NewInt(4),
		}}
	}))

	stats, err := newTestBinding(p, common.Address{}).GetUserStats(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), stats.TotalTasks)
	assert.Equal(t, uint64(2), stats.CompletedTasks)
	assert.Equal(t, uint64(4), stats.MaxStreak)
	assert.Equal(t, int64(1714564800), stats.LastCompletionDate.Unix())
	assert.Equal(t, 67, stats.CompletionRate())
}

func TestBinding_ViewOmitsEmptySender(t *testing.T) {
	var sawFrom atomic.Bool
	p := wallettest.New().Handle("eth_call", func(params []any) (any, error) {
		var call callArgs
		require.NoError(t, wallettest.DecodeParam(params, 0, &call))
		sawFrom.Store(call.From != nil)
		out, err := contractABI.Methods[MethodGetUserTasks].Outputs.Pack([]*big.Int{})
		require.NoError(t, err)
		return hexutil.Bytes(out), nil
	})

	_, err := newTestBinding(p, common.Address{}).GetUserTasks(context.Background(), alice)
	require.NoError(t, err)
	assert.False(t, sawFrom.Load())
}

func TestBinding_ViewError(t *testing.T) {
	p := wallettest.New().Handle("eth_call", func([]any) (any, error) {
		data, _ := json.Marshal(revertData(t, "Task does not exist"))
		return nil, &wallet.ProviderError{Code: 3, Message: "execution reverted", Data: data}
	})

	_, err := newTestBinding(p, alice).GetTask(context.Background(), 99)
	require.Error(t, err)
	assert.Equal(t, "Task does not exist", Reason(err))
}

// =============================================================================
// Writes
// =============================================================================

func TestBinding_CreateTaskAndWait(t *testing.T) {
	txHash := common.HexToHash("0x1234")
	var polls atomic.Int32

	created := contractABI.Events[EventTaskCreated]
	titleData, err := created.Inputs.NonIndexed().Pack("Buy milk")
	require.NoError(t, err)

	p := wallettest.New().
		Handle("eth_sendTransaction", func(params []any) (any, error) {
			var tx callArgs
			require.NoError(t, wallettest.DecodeParam(params, 0, &tx))
			require.NotNil(t, tx.From)
			assert.Equal(t, alice, *tx.From)
			assert.Equal(t, contractAddr, *tx.To)

			m, err := contractABI.MethodById(tx.Data[:4])
			require.NoError(t, err)
			assert.Equal(t, MethodCreateTask, m.Name)
			args, err := m.Inputs.Unpack(tx.Data[4:])
			require.NoError(t, err)
			assert.Equal(t, []any{"Buy milk", "short", ""}, args)
			return txHash, nil
		}).
		Handle("eth_getTransactionReceipt", func(params []any) (any, error) {
			if polls.Add(1) < 3 {
				return nil, nil
			}
			return map[string]any{
				"transactionHash": txHash,
				"blockNumber":     "0x10",
				"status":          "0x1",
				"gasUsed":         "0x5208",
				"contractAddress": nil,
				"logs": []map[string]any{
					{
						"address": contractAddr,
						"topics": []common.Hash{
							created.ID,
							common.BigToHash(big.NewInt(5)),
							common.BytesToHash(alice.Bytes()),
						},
						"data": hexutil.Bytes(titleData),
					},
					{
						"address": bob,
						"topics":  []common.Hash{created.ID},
						"data":    "0x",
					},
				},
			}, nil
		})

	tx, err := newTestBinding(p, alice).CreateTask(context.Background(), "Buy milk", "short", "")
	require.NoError(t, err)
	assert.Equal(t, txHash, tx.Hash())

	receipt, err := tx.Wait(context.Background())
	require.NoError(t, err)
	assert.True(t, receipt.Succeeded())
	assert.Equal(t, uint64(16), receipt.BlockNumber)
	assert.GreaterOrEqual(t, polls.Load(), int32(3))

	require.Len(t, receipt.Events, 1, "logs from other addresses are ignored")
	ev, ok := receipt.Event(EventTaskCreated)
	require.True(t, ok)
	assert.Equal(t, uint64(5), ev.TaskID)
	assert.Equal(t, alice, ev.Account)
	assert.Equal(t, "Buy milk", ev.Title)
}

func TestBinding_WriteRequiresSender(t *testing.T) {
	p := wallettest.New()
	_, err := newTestBinding(p, common.Address{}).CompleteTask(context.Background(), 1)
	require.ErrorIs(t, err, wallet.ErrNotConnected)
	assert.Zero(t, p.Count("eth_sendTransaction"))
}

func TestBinding_WriteRejectedByUser(t *testing.T) {
	p := wallettest.New().Fail("eth_sendTransaction", wallet.CodeUserRejected, "User denied transaction signature.")
	_, err := newTestBinding(p, alice).DeleteTask(context.Background(), 1)
	require.ErrorIs(t, err, wallet.ErrUserRejected)
	assert.Equal(t, "User denied transaction signature.", Reason(err))
}

func TestBinding_WaitReverted(t *testing.T) {
	txHash := common.HexToHash("0xdead")
	p := wallettest.New().
		Return("eth_sendTransaction", txHash).
		Return("eth_getTransactionReceipt", map[string]any{
			"transactionHash": txHash,
			"blockNumber":     "0x2a",
			"status":          "0x0",
			"gasUsed":         "0x1",
			"logs":            []any{},
		}).
		Handle("eth_call", func(params []any) (any, error) {
			var block string
			require.NoError(t, wallettest.DecodeParam(params, 1, &block))
			assert.Equal(t, "0x2a", block)
			data, _ := json.Marshal(revertData(t, "Only task owner can delegate"))
			return nil, &wallet.ProviderError{Code: 3, Message: "execution reverted", Data: data}
		})

	tx, err := newTestBinding(p, bob).DelegateTask(context.Background(), 1, alice)
	require.NoError(t, err)

	receipt, err := tx.Wait(context.Background())
	require.ErrorIs(t, err, ErrTransactionReverted)
	require.NotNil(t, receipt)
	assert.False(t, receipt.Succeeded())
	assert.Equal(t, "Only task owner can delegate", Reason(err))
}

func TestBinding_WaitHonoursContext(t *testing.T) {
	p := wallettest.New().
		Return("eth_sendTransaction", common.HexToHash("0x01")).
		Return("eth_getTransactionReceipt", nil)

	tx, err := newTestBinding(p, alice).MintTaskAsNFT(context.Background(), 1, "ipfs://x")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = tx.Wait(ctx)
	require.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
}

func TestTransactor_NoProvider(t *testing.T) {
	tr := NewTransactor(nil, 0, nil)
	_, err := tr.Send(context.Background(), alice, nil, []byte{0x60})
	require.ErrorIs(t, err, wallet.ErrProviderUnavailable)
	_, err = tr.Call(context.Background(), nil, contractAddr, nil)
	require.ErrorIs(t, err, wallet.ErrProviderUnavailable)
}

// =============================================================================
// Events and errors
// =============================================================================

func TestDecodeLog_AllEvents(t *testing.T) {
	id := common.BigToHash(big.NewInt(3))
	a := common.BytesToHash(alice.Bytes())
	b := common.BytesToHash(bob.Bytes())

	streakData, err := contractABI.Events[EventStreakUpdated].Inputs.NonIndexed().Pack(big.NewInt(2), big.NewInt(5))
	require.NoError(t, err)

	tests := []struct {
		name string
		log  rpcLog
		want Event
	}{
		{
			name: EventTaskCompleted,
			log:  rpcLog{Topics: []common.Hash{contractABI.Events[EventTaskCompleted].ID, id, b}},
			want: Event{Name: EventTaskCompleted, TaskID: 3, Account: bob},
		},
		{
			name: EventTaskDeleted,
			log:  rpcLog{Topics: []common.Hash{contractABI.Events[EventTaskDeleted].ID, id, a}},
			want: Event{Name: EventTaskDeleted, TaskID: 3, Account: alice},
		},
		{
			name: EventTaskDelegated,
			log:  rpcLog{Topics: []common.Hash{contractABI.Events[EventTaskDelegated].ID, id, a, b}},
			want: Event{Name: EventTaskDelegated, TaskID: 3, Account: alice, To: bob},
		},
		{
			name: EventTaskMintedAsNFT,
			log:  rpcLog{Topics: []common.Hash{contractABI.Events[EventTaskMintedAsNFT].ID, id, common.BigToHash(big.NewInt(11)), a}},
			want: Event{Name: EventTaskMintedAsNFT, TaskID: 3, TokenID: 11, Account: alice},
		},
		{
			name: EventStreakUpdated,
			log:  rpcLog{Topics: []common.Hash{contractABI.Events[EventStreakUpdated].ID, a}, Data: streakData},
			want: Event{Name: EventStreakUpdated, Account: alice, CurrentStreak: 2, MaxStreak: 5},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeLog(tt.log)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeLog_Unknown(t *testing.T) {
	_, err := decodeLog(rpcLog{})
	assert.ErrorIs(t, err, errUnknownEvent)
	_, err = decodeLog(rpcLog{Topics: []common.Hash{common.HexToHash("0xbeef")}})
	assert.ErrorIs(t, err, errUnknownEvent)
}

func TestReason(t *testing.T) {
	withData := func(v any) error {
		data, _ := json.Marshal(v)
		return fmt.Errorf("wrapped: %w", &wallet.ProviderError{Code: -32603, Message: "Internal JSON-RPC error.", Data: data})
	}

	assert.Empty(t, Reason(nil))
	assert.Empty(t, Reason(errors.New("dial tcp: refused")))
	assert.Equal(t, "execution reverted: Not authorized",
		Reason(withData(map[string]string{"message": "execution reverted: Not authorized"})))
	assert.Equal(t, "Already minted", Reason(withData(revertData(t, "Already minted"))))
	assert.Equal(t, "Internal JSON-RPC error.", Reason(withData("not-hex")))
	assert.Equal(t, "boom", Reason(&RevertError{Reason: "boom"}))

	re := &RevertError{TxHash: common.HexToHash("0x01")}
	assert.True(t, errors.Is(re, ErrTransactionReverted))
	assert.Contains(t, re.Error(), "reverted")
}

// =============================================================================
// Types
// =============================================================================

func TestUserStats_CompletionRate(t *testing.T) {
	assert.Equal(t, 0, UserStats{}.CompletionRate())
	assert.Equal(t, 50, UserStats{TotalTasks: 2, CompletedTasks: 1}.CompletionRate())
	assert.Equal(t, 33, UserStats{TotalTasks: 3, CompletedTasks: 1}.CompletionRate())
	assert.Equal(t, 100, UserStats{TotalTasks: 4, CompletedTasks: 4}.CompletionRate())
}

func TestBigToUint64(t *testing.T) {
	assert.Equal(t, uint64(0), bigToUint64(nil))
	assert.Equal(t, uint64(0), bigToUint64(big.NewInt(-1)))
	assert.Equal(t, uint64(42), bigToUint64(big.NewInt(42)))
	huge := new(big.Int).Lsh(big.NewInt(1), 80)
	assert.Equal(t, ^uint64(0), bigToUint64(huge))
}

func TestUnixTime(t *testing.T) {
	assert.True(t, unixTime(big.NewInt(0)).IsZero())
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), unixTime(big.NewInt(1700000000)))
}
