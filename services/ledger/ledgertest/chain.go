// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ledgertest provides an in-memory TodoList contract for tests.
//
// Chain enforces the same ownership, delegation and minting rules as the
// deployed contract and rejects violations at submission time, the way a
// wallet's gas estimation does.
package ledgertest

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/koustavx08/web3-todo-dapp/services/ledger"
	"github.com/koustavx08/web3-todo-dapp/services/wallet"
)

// Chain is the shared state behind every account's view of the contract.
type Chain struct {
	mu        sync.Mutex
	address   common.Address
	now       func() time.Time
	nextID    uint64
	nextToken uint64
	nonce     uint64
	tasks     map[uint64]*ledger.Task
	owned     map[common.Address][]uint64
	uris      map[uint64]string
	stats     map[common.Address]*ledger.UserStats
	calls     map[string]int
	failures  map[string]error
	waitErr   map[string]error
}

// New creates an empty Chain at address.
func New(address common.Address) *Chain {
	return &Chain{
		address:   address,
		now:       time.Now,
		nextID:    1,
		nextToken: 1,
		tasks:     make(map[uint64]*ledger.Task),
		owned:     make(map[common.Address][]uint64),
		uris:      make(map[uint64]string),
		stats:     make(map[common.Address]*ledger.UserStats),
		calls:     make(map[string]int),
		failures:  make(map[string]error),
		waitErr:   make(map[string]error),
	}
}

// SetClock replaces the block timestamp source.
func (c *Chain) SetClock(now func() time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

// FailNext makes the next call of method fail with err at submission.
func (c *Chain) FailNext(method string, err error) {
	c.mu.Lock()
	c.failures[method] = err
	c.mu.Unlock()
}

// RevertNext makes the next write of method mine with status 0.
func (c *Chain) RevertNext(method, reason string) {
	c.mu.Lock()
	c.waitErr[method] = &ledger.RevertError{Reason: reason}
	c.mu.Unlock()
}

// Calls returns how many times method was invoked.
func (c *Chain) Calls(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[method]
}

// Task returns a copy of the stored task.
func (c *Chain) Task(id uint64) (ledger.Task, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tasks[id]
	if !ok {
		return ledger.Task{}, false
	}
	return *t, true
}

// TokenURI returns the URI the token was minted with.
func (c *Chain) TokenURI(token uint64) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.uris[token]
}

// As returns the contract as seen by account from.
func (c *Chain) As(from common.Address) *Contract {
	return &Contract{chain: c, from: from}
}

// Revert builds the wallet error for a rejected write.
func Revert(reason string) error {
	data, _ := json.Marshal(map[string]string{"message": "execution reverted: " + reason})
	return &wallet.ProviderError{Code: wallet.CodeInternal, Message: "execution reverted", Data: data}
}

// Contract is one account's handle on a Chain.
type Contract struct {
	chain *Chain
	from  common.Address
}

var _ ledger.Contract = (*Contract)(nil)

// Address implements ledger.Contract.
func (k *Contract) Address() common.Address { return k.chain.address }

// From returns the acting account.
func (k *Contract) From() common.Address { return k.from }

// CreateTask implements ledger.Contract.
func (k *Contract) CreateTask(_ context.Context, title, description, ipfsHash string) (ledger.PendingTx, error) {
	return k.write(ledger.MethodCreateTask, func(c *Chain) ([]ledger.Event, error) {
		if title == "" {
			return nil, Revert("Title cannot be empty")
		}
		id := c.nextID
		c.nextID++
		c.tasks[id] = &ledger.Task{
			ID:          id,
			Title:       title,
			Description: description,
			IPFSHash:    ipfsHash,
			CreatedAt:   c.now().UTC().Truncate(time.Second),
			Owner:       k.from,
		}
		c.owned[k.from] = append(c.owned[k.from], id)
		c.userStats(k.from).TotalTasks++
		return []ledger.Event{{Name: ledger.EventTaskCreated, TaskID: id, Account: k.from, Title: title}}, nil
	})
}

// CompleteTask implements ledger.Contract.
func (k *Contract) CompleteTask(_ context.Context, id uint64) (ledger.PendingTx, error) {
	return k.write(ledger.MethodCompleteTask, func(c *Chain) ([]ledger.Event, error) {
		t, ok := c.tasks[id]
		if !ok {
			return nil, Revert("Task does not exist")
		}
		if t.Owner != k.from && t.DelegatedTo != k.from {
			return nil, Revert("Not authorized")
		}
		if t.Completed {
			return nil, Revert("Task already completed")
		}
		now := c.now().UTC().Truncate(time.Second)
		t.Completed = true
		t.CompletedAt = now

		s := c.userStats(t.Owner)
		s.CompletedTasks++
		day := now.Truncate(24 * time.Hour)
		last := s.LastCompletionDate.Truncate(24 * time.Hour)
		switch {
		case s.LastCompletionDate.IsZero() || day.Sub(last) > 24*time.Hour:
			s.CurrentStreak = 1
		case day.Sub(last) == 24*time.Hour:
			s.CurrentStreak++
		}
		if s.CurrentStreak > s.MaxStreak {
			s.MaxStreak = s.CurrentStreak
		}
		s.LastCompletionDate = now

		return []ledger.Event{
			{Name: ledger.EventTaskCompleted, TaskID: id, Account: k.from},
			{Name: ledger.EventStreakUpdated, Account: t.Owner, CurrentStreak: s.CurrentStreak, MaxStreak: s.MaxStreak},
		}, nil
	})
}

// DelegateTask implements ledger.Contract.
func (k *Contract) DelegateTask(_ context.Context, id uint64, to common.Address) (ledger.PendingTx, error) {
	return k.write(ledger.MethodDelegateTask, func(c *Chain) ([]ledger.Event, error) {
		t, ok := c.tasks[id]
		if !ok {
			return nil, Revert("Task does not exist")
		}
		if t.Owner != k.from {
			return nil, Revert("Only task owner can delegate")
		}
		if t.Completed {
			return nil, Revert("Cannot delegate completed task")
		}
		if to == (common.Address{}) {
			return nil, Revert("Invalid address")
		}
		t.DelegatedTo = to
		return []ledger.Event{{Name: ledger.EventTaskDelegated, TaskID: id, Account: k.from, To: to}}, nil
	})
}

// DeleteTask implements ledger.Contract.
func (k *Contract) DeleteTask(_ context.Context, id uint64) (ledger.PendingTx, error) {
	return k.write(ledger.MethodDeleteTask, func(c *Chain) ([]ledger.Event, error) {
		t, ok := c.tasks[id]
		if !ok {
			return nil, Revert("Task does not exist")
		}
		if t.Owner != k.from {
			return nil, Revert("Only task owner can delete")
		}
		if t.IsNFT {
			return nil, Revert("Cannot delete NFT task")
		}
		delete(c.tasks, id)
		ids := c.owned[k.from]
		for i, v := range ids {
			if v == id {
				c.owned[k.from] = append(ids[:i:i], ids[i+1:]...)
				break
			}
		}
		return []ledger.Event{{Name: ledger.EventTaskDeleted, TaskID: id, Account: k.from}}, nil
	})
}

// MintTaskAsNFT implements ledger.Contract.
func (k *Contract) MintTaskAsNFT(_ context.Context, id uint64, tokenURI string) (ledger.PendingTx, error) {
	return k.write(ledger.MethodMintTaskAsNFT, func(c *Chain) ([]ledger.Event, error) {
		t, ok := c.tasks[id]
		if !ok {
			return nil, Revert("Task does not exist")
		}
		if t.Owner != k.from {
			return nil, Revert("Only task owner can mint")
		}
		if !t.Completed {
			return nil, Revert("Task must be completed")
		}
		if t.IsNFT {
			return nil, Revert("Already minted")
		}
		if tokenURI == "" {
			return nil, Revert("Token URI required")
		}
		token := c.nextToken
		c.nextToken++
		t.IsNFT = true
		t.NFTTokenID = token
		c.uris[token] = tokenURI
		return []ledger.Event{{Name: ledger.EventTaskMintedAsNFT, TaskID: id, TokenID: token, Account: k.from}}, nil
	})
}

// GetUserTasks implements ledger.Contract. Delegated tasks are listed for
// the delegate as well as the owner.
func (k *Contract) GetUserTasks(_ context.Context, user common.Address) ([]uint64, error) {
	c := k.chain
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.take(ledger.MethodGetUserTasks); err != nil {
		return nil, err
	}
	ids := append([]uint64(nil), c.owned[user]...)
	var delegated []uint64
	for id, t := range c.tasks {
		if t.DelegatedTo == user && t.Owner != user {
			delegated = append(delegated, id)
		}
	}
	sort.Slice(delegated, func(i, j int) bool { return delegated[i] < delegated[j] })
	return append(ids, delegated...), nil
}

// GetTask implements ledger.Contract.
func (k *Contract) GetTask(_ context.Context, id uint64) (ledger.Task, error) {
	c := k.chain
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.take(ledger.MethodGetTask); err != nil {
		return ledger.Task{}, err
	}
	t, ok := c.tasks[id]
	if !ok {
		return ledger.Task{}, Revert("Task does not exist")
	}
	return *t, nil
}

// GetUserStats implements ledger.Contract.
func (k *Contract) GetUserStats(_ context.Context, user common.Address) (ledger.UserStats, error) {
	c := k.chain
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.take(ledger.MethodGetUserStats); err != nil {
		return ledger.UserStats{}, err
	}
	return *c.userStats(user), nil
}

func (k *Contract) write(method string, apply func(*Chain) ([]ledger.Event, error)) (ledger.PendingTx, error) {
	c := k.chain
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.take(method); err != nil {
		return nil, err
	}
	c.nonce++
	hash := crypto.Keccak256Hash([]byte(fmt.Sprintf("%s/%d", method, c.nonce)))

	if err, ok := c.waitErr[method]; ok {
		delete(c.waitErr, method)
		if re, ok := err.(*ledger.RevertError); ok {
			re.TxHash = hash
		}
		return &pendingTx{hash: hash, receipt: &ledger.Receipt{TxHash: hash}, err: err}, nil
	}

	events, err := apply(c)
	if err != nil {
		return nil, err
	}
	return &pendingTx{
		hash:    hash,
		receipt: &ledger.Receipt{TxHash: hash, Status: 1, BlockNumber: c.nonce, Events: events},
	}, nil
}

func (c *Chain) take(method string) error {
	c.calls[method]++
	if err, ok := c.failures[method]; ok {
		delete(c.failures, method)
		return err
	}
	return nil
}

func (c *Chain) userStats(user common.Address) *ledger.UserStats {
	s, ok := c.stats[user]
	if !ok {
		s = &ledger.UserStats{}
		c.stats[user] = s
	}
	return s
}

type pendingTx struct {
	hash    common.Hash
	receipt *ledger.Receipt
	err     error
}

func (p *pendingTx) Hash() common.Hash { return p.hash }

func (p *pendingTx) Wait(ctx context.Context) (*ledger.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.receipt, p.err
}
