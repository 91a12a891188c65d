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
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/koustavx08/web3-todo-dapp/pkg/logging"
	"github.com/koustavx08/web3-todo-dapp/services/wallet"
)

// BindingConfig configures NewBinding.
type BindingConfig struct {
	Provider wallet.Provider
	Address  common.Address

	// From is the account that signs writes. Views are sent without a
	// sender when it is zero.
	From common.Address

	// PollInterval between receipt polls. Default: DefaultPollInterval.
	PollInterval time.Duration

	Logger *logging.Logger
}

// Binding implements Contract over a wallet provider.
//
// # Description
//
// Views are encoded with the contract ABI and sent as eth_call. Writes are
// sent as eth_sendTransaction so the wallet prompts, signs and broadcasts.
// Binding holds no state besides its configuration and is safe for
// concurrent use.
type Binding struct {
	*Transactor
	address common.Address
	from    common.Address
	logger  *logging.Logger
}

var _ Contract = (*Binding)(nil)

// NewBinding creates a Binding.
func NewBinding(cfg BindingConfig) *Binding {
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}
	logger := cfg.Logger.With("component", "ledger", "contract", cfg.Address.Hex())
	return &Binding{
		Transactor: NewTransactor(cfg.Provider, cfg.PollInterval, logger),
		address:    cfg.Address,
		from:       cfg.From,
		logger:     logger,
	}
}

// Address implements Contract.
func (b *Binding) Address() common.Address { return b.address }

// From returns the signing account.
func (b *Binding) From() common.Address { return b.from }

// CreateTask implements Contract.
func (b *Binding) CreateTask(ctx context.Context, title, description, ipfsHash string) (PendingTx, error) {
	return b.transact(ctx, MethodCreateTask, title, description, ipfsHash)
}

// CompleteTask implements Contract.
func (b *Binding) CompleteTask(ctx context.Context, id uint64) (PendingTx, error) {
	return b.transact(ctx, MethodCompleteTask, new(big.Int).SetUint64(id))
}

// DelegateTask implements Contract.
func (b *Binding) DelegateTask(ctx context.Context, id uint64, to common.Address) (PendingTx, error) {
	return b.transact(ctx, MethodDelegateTask, new(big.Int).SetUint64(id), to)
}

// DeleteTask implements Contract.
func (b *Binding) DeleteTask(ctx context.Context, id uint64) (PendingTx, error) {
	return b.transact(ctx, MethodDeleteTask, new(big.Int).SetUint64(id))
}

// MintTaskAsNFT implements Contract.
func (b *Binding) MintTaskAsNFT(ctx context.Context, id uint64, tokenURI string) (PendingTx, error) {
	return b.transact(ctx, MethodMintTaskAsNFT, new(big.Int).SetUint64(id), tokenURI)
}

// GetUserTasks implements Contract.
func (b *Binding) GetUserTasks(ctx context.Context, user common.Address) ([]uint64, error) {
	out, err := b.view(ctx, MethodGetUserTasks, user)
	if err != nil {
		return nil, err
	}
	raw := *abi.ConvertType(out[0], new([]*big.Int)).(*[]*big.Int)
	ids := make([]uint64, len(raw))
	for i, v := range raw {
		ids[i] = bigToUint64(v)
	}
	return ids, nil
}

// GetTask implements Contract.
func (b *Binding) GetTask(ctx context.Context, id uint64) (Task, error) {
	out, err := b.view(ctx, MethodGetTask, new(big.Int).SetUint64(id))
	if err != nil {
		return Task{}, err
	}
	raw := *abi.ConvertType(out[0], new(rawTask)).(*rawTask)
	return raw.task(), nil
}

// GetUserStats implements Contract.
func (b *Binding) GetUserStats(ctx context.Context, user common.Address) (UserStats, error) {
	out, err := b.view(ctx, MethodGetUserStats, user)
	if err != nil {
		return UserStats{}, err
	}
	raw := *abi.ConvertType(out[0], new(rawStats)).(*rawStats)
	return raw.stats(), nil
}

func (b *Binding) transact(ctx context.Context, method string, args ...any) (PendingTx, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	if b.from == (common.Address{}) {
		return nil, fmt.Errorf("%s: %w", method, wallet.ErrNotConnected)
	}
	to := b.address
	tx, err := b.Send(ctx, b.from, &to, data)
	if err != nil {
		b.logger.Warn("transaction rejected", "method", method, "error", err)
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	b.logger.Info("transaction submitted", "method", method, "hash", tx.Hash().Hex())
	return tx, nil
}

func (b *Binding) view(ctx context.Context, method string, args ...any) ([]any, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	var from *common.Address
	if b.from != (common.Address{}) {
		f := b.from
		from = &f
	}
	raw, err := b.Call(ctx, from, b.address, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	out, err := contractABI.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("unpack %s: empty result", method)
	}
	return out, nil
}
