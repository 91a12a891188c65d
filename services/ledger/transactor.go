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
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/koustavx08/web3-todo-dapp/pkg/logging"
	"github.com/koustavx08/web3-todo-dapp/services/wallet"
)

// DefaultPollInterval is how often a pending transaction's receipt is
// polled.
const DefaultPollInterval = 2 * time.Second

// Transactor submits transactions through a wallet provider and waits for
// their receipts. The wallet estimates gas and signs.
type Transactor struct {
	provider     wallet.Provider
	pollInterval time.Duration
	logger       *logging.Logger
}

// NewTransactor creates a Transactor. A non-positive pollInterval selects
// DefaultPollInterval.
func NewTransactor(provider wallet.Provider, pollInterval time.Duration, logger *logging.Logger) *Transactor {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Transactor{provider: provider, pollInterval: pollInterval, logger: logger}
}

// txArgs is the eth_sendTransaction / eth_call parameter object.
type txArgs struct {
	From  *common.Address `json:"from,omitempty"`
	To    *common.Address `json:"to,omitempty"`
	Data  hexutil.Bytes   `json:"data"`
	Value *hexutil.Big    `json:"value,omitempty"`
}

// Send submits a transaction. A nil to creates a contract.
func (t *Transactor) Send(ctx context.Context, from common.Address, to *common.Address, data []byte) (PendingTx, error) {
	if t.provider == nil {
		return nil, wallet.ErrProviderUnavailable
	}
	args := txArgs{From: &from, To: to, Data: data}

	var hash common.Hash
	if err := t.provider.Request(ctx, "eth_sendTransaction", []any{args}, &hash); err != nil {
		return nil, fmt.Errorf("eth_sendTransaction: %w", err)
	}
	t.logger.Debug("transaction submitted", "hash", hash.Hex())
	return &pendingTx{transactor: t, hash: hash, args: args}, nil
}

// Call runs a read-only eth_call against the latest block.
func (t *Transactor) Call(ctx context.Context, from *common.Address, to common.Address, data []byte) ([]byte, error) {
	return t.callAt(ctx, txArgs{From: from, To: &to, Data: data}, "latest")
}

func (t *Transactor) callAt(ctx context.Context, args txArgs, block string) ([]byte, error) {
	if t.provider == nil {
		return nil, wallet.ErrProviderUnavailable
	}
	var out hexutil.Bytes
	if err := t.provider.Request(ctx, "eth_call", []any{args, block}, &out); err != nil {
		return nil, fmt.Errorf("eth_call: %w", err)
	}
	return out, nil
}

// rpcReceipt is the JSON shape of eth_getTransactionReceipt.
type rpcReceipt struct {
	TxHash          common.Hash     `json:"transactionHash"`
	BlockNumber     hexutil.Uint64  `json:"blockNumber"`
	Status          hexutil.Uint64  `json:"status"`
	GasUsed         hexutil.Uint64  `json:"gasUsed"`
	ContractAddress *common.Address `json:"contractAddress"`
	Logs            []rpcLog        `json:"logs"`
}

type rpcLog struct {
	Address common.Address `json:"address"`
	Topics  []common.Hash  `json:"topics"`
	Data    hexutil.Bytes  `json:"data"`
}

type pendingTx struct {
	transactor *Transactor
	hash       common.Hash
	args       txArgs
}

func (p *pendingTx) Hash() common.Hash { return p.hash }

// Wait polls for the receipt. There is no timeout beyond ctx.
func (p *pendingTx) Wait(ctx context.Context) (*Receipt, error) {
	t := p.transactor
	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	for {
		var raw *rpcReceipt
		if err := t.provider.Request(ctx, "eth_getTransactionReceipt", []any{p.hash}, &raw); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("eth_getTransactionReceipt: %w", err)
		}
		if raw != nil {
			return p.finish(ctx, raw)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (p *pendingTx) finish(ctx context.Context, raw *rpcReceipt) (*Receipt, error) {
	receipt := &Receipt{
		TxHash:          raw.TxHash,
		BlockNumber:     uint64(raw.BlockNumber),
		Status:          uint64(raw.Status),
		GasUsed:         uint64(raw.GasUsed),
		ContractAddress: raw.ContractAddress,
	}
	for _, l := range raw.Logs {
		if p.args.To != nil && l.Address != *p.args.To {
			continue
		}
		ev, err := decodeLog(l)
		if err != nil {
			if !errors.Is(err, errUnknownEvent) {
				p.transactor.logger.Warn("undecodable log", "tx", p.hash.Hex(), "error", err)
			}
			continue
		}
		receipt.Events = append(receipt.Events, ev)
	}
	if receipt.Succeeded() {
		return receipt, nil
	}

	// Replay at the receipt's block to recover the revert reason.
	reason := ""
	if p.args.To != nil {
		_, err := p.transactor.callAt(ctx, p.args, hexutil.EncodeUint64(receipt.BlockNumber))
		if err != nil {
			reason = Reason(err)
		}
	}
	return receipt, &RevertError{TxHash: p.hash, Reason: reason}
}
