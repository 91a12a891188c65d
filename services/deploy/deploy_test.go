// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package deploy

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustavx08/web3-todo-dapp/services/ledger"
	"github.com/koustavx08/web3-todo-dapp/services/notify"
	"github.com/koustavx08/web3-todo-dapp/services/wallet"
	"github.com/koustavx08/web3-todo-dapp/services/wallet/wallettest"
)

var (
	deployer = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	deployed = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	txHash   = common.HexToHash("0xbeef")
)

func todoArtifact(bytecode string) Artifact {
	return Artifact{
		ContractName: "TodoList",
		SourceName:   "contracts/TodoList.sol",
		ABI:          json.RawMessage(ledger.TodoABI),
		Bytecode:     bytecode,
	}
}

type collector struct {
	mu    sync.Mutex
	items []notify.Notification
}

func (c *collector) Notify(n notify.Notification) {
	c.mu.Lock()
	c.items = append(c.items, n)
	c.mu.Unlock()
}

func (c *collector) last() notify.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.items) == 0 {
		return notify.Notification{}
	}
	return c.items[len(c.items)-1]
}

func newProvider(chainID string, receipt map[string]any) *wallettest.Provider {
	return wallettest.New().
		Return("eth_requestAccounts", []string{deployer.Hex()}).
		Return("eth_chainId", chainID).
		Return("eth_sendTransaction", txHash).
		Return("eth_getTransactionReceipt", receipt)
}

func newDeployer(t *testing.T, p *wallettest.Provider, rec *collector) *Deployer {
	t.Helper()
	session := wallet.NewSession(wallet.SessionConfig{Provider: p, Network: wallet.Fuji()})
	d, err := NewDeployer(Config{Session: session, PollInterval: time.Millisecond, Notifier: rec})
	require.NoError(t, err)
	return d
}

// =============================================================================
// Artifact
// =============================================================================

func TestLoadArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "TodoList.json")
	data, err := json.Marshal(todoArtifact("0x6080604052"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	a, err := LoadArtifact(path)
	require.NoError(t, err)
	assert.Equal(t, "TodoList", a.ContractName)

	code, err := a.Code()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x60, 0x80, 0x60, 0x40, 0x52}, code)
	assert.NoError(t, a.CheckABI())
}

func TestLoadArtifact_Missing(t *testing.T) {
	_, err := LoadArtifact(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestArtifact_Code(t *testing.T) {
	tests := []struct {
		name     string
		bytecode string
		wantErr  error
		want     []byte
	}{
		{"empty", "", ErrNoBytecode, nil},
		{"bare prefix", "0x", ErrNoBytecode, nil},
		{"no prefix", "6080", nil, []byte{0x60, 0x80}},
		{"prefixed", "0x6080", nil, []byte{0x60, 0x80}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := Artifact{Bytecode: tt.bytecode}.Code()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, code)
		})
	}

	_, err := Artifact{Bytecode: "0xzz"}.Code()
	assert.Error(t, err)
}

func TestArtifact_CheckABI_Incompatible(t *testing.T) {
	a := todoArtifact("0x6080")
	a.ABI = json.RawMessage(`[{"type":"function","name":"createTask","inputs":[{"name":"title","type":"string"}],"outputs":[],"stateMutability":"nonpayable"}]`)

	err := a.CheckABI()
	require.ErrorIs(t, err, ErrIncompatibleABI)
	assert.Contains(t, err.Error(), "completeTask(uint256)")
}

// =============================================================================
// Deploy
// =============================================================================

func TestDeploy_Success(t *testing.T) {
	rec := &collector{}
	p := newProvider("0xa869", map[string]any{
		"transactionHash": txHash,
		"blockNumber":     "0x7",
		"status":          "0x1",
		"gasUsed":         "0x1",
		"contractAddress": deployed,
		"logs":            []any{},
	})
	d := newDeployer(t, p, rec)

	res, err := d.Deploy(context.Background(), todoArtifact("0x6080604052"))
	require.NoError(t, err)
	assert.Equal(t, deployed, res.Address)
	assert.Equal(t, txHash, res.TxHash)
	assert.Equal(t, uint64(7), res.BlockNumber)
	assert.Equal(t, deployer, res.Deployer)

	calls := p.Calls()
	var sent map[string]any
	for _, c := range calls {
		if c.Method == "eth_sendTransaction" {
			require.NoError(t, wallettest.DecodeParam(c.Params, 0, &sent))
		}
	}
	require.NotNil(t, sent)
	_, hasTo := sent["to"]
	assert.False(t, hasTo, "creation transaction must not set to")
	assert.Equal(t, "0x6080604052", sent["data"])

	last := rec.last()
	assert.Equal(t, notify.LevelSuccess, last.Level)
	assert.Equal(t, notify.IDDeploy, last.ID)
	assert.Contains(t, last.Message, "TodoList deployed to: ")
}

func TestDeploy_NoContractAddress(t *testing.T) {
	p := newProvider("0xa869", map[string]any{
		"transactionHash": txHash,
		"blockNumber":     "0x7",
		"status":          "0x1",
		"gasUsed":         "0x1",
		"logs":            []any{},
	})
	_, err := newDeployer(t, p, &collector{}).Deploy(context.Background(), todoArtifact("0x6080"))
	assert.ErrorIs(t, err, ErrNoContractAddress)
}

func TestDeploy_Reverted(t *testing.T) {
	p := newProvider("0xa869", map[string]any{
		"transactionHash": txHash,
		"blockNumber":     "0x7",
		"status":          "0x0",
		"gasUsed":         "0x1",
		"logs":            []any{},
	})
	_, err := newDeployer(t, p, &collector{}).Deploy(context.Background(), todoArtifact("0x6080"))
	assert.ErrorIs(t, err, ledger.ErrTransactionReverted)
}

func TestDeploy_WrongNetwork(t *testing.T) {
	p := newProvider("0x1", nil)
	rec := &collector{}
	_, err := newDeployer(t, p, rec).Deploy(context.Background(), todoArtifact("0x6080"))
	assert.ErrorIs(t, err, wallet.ErrNetworkMismatch)
	assert.Zero(t, p.Count("eth_sendTransaction"))
	assert.Contains(t, rec.last().Message, "Avalanche Fuji Testnet")
}

func TestDeploy_UserRejected(t *testing.T) {
	p := newProvider("0xa869", nil)
	p.Fail("eth_sendTransaction", wallet.CodeUserRejected, "User denied transaction signature.")
	rec := &collector{}

	_, err := newDeployer(t, p, rec).Deploy(context.Background(), todoArtifact("0x6080"))
	assert.ErrorIs(t, err, wallet.ErrUserRejected)
	assert.Equal(t, "Deployment failed: User denied transaction signature.", rec.last().Message)
}

func TestDeploy_NoBytecodeSendsNothing(t *testing.T) {
	p := newProvider("0xa869", nil)
	_, err := newDeployer(t, p, &collector{}).Deploy(context.Background(), todoArtifact(""))
	assert.ErrorIs(t, err, ErrNoBytecode)
	assert.Empty(t, p.Calls())
}

func TestNewDeployer_RequiresSession(t *testing.T) {
	_, err := NewDeployer(Config{})
	assert.Error(t, err)
}
