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
	"math"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Task mirrors one on-chain task record.
//
// The client never persists Tasks; they are refetched after every write.
// CreatedAt and CompletedAt are zero when the contract reports 0.
type Task struct {
	ID          uint64         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	IPFSHash    string         `json:"ipfsHash"`
	Completed   bool           `json:"completed"`
	CreatedAt   time.Time      `json:"createdAt,omitzero"`
	CompletedAt time.Time      `json:"completedAt,omitzero"`
	Owner       common.Address `json:"owner"`
	DelegatedTo common.Address `json:"delegatedTo"`
	IsNFT       bool           `json:"isNFT"`
	NFTTokenID  uint64         `json:"nftTokenId"`
}

// IsDelegated reports whether the task has a delegate.
func (t Task) IsDelegated() bool {
	return t.DelegatedTo != (common.Address{})
}

// UserStats holds the contract's aggregates for one account.
type UserStats struct {
	TotalTasks         uint64    `json:"totalTasks"`
	CompletedTasks     uint64    `json:"completedTasks"`
	CurrentStreak      uint64    `json:"currentStreak"`
	LastCompletionDate time.Time `json:"lastCompletionDate,omitzero"`
	MaxStreak          uint64    `json:"maxStreak"`
}

// CompletionRate returns completed/total as a rounded percentage, 0 when
// there are no tasks.
func (s UserStats) CompletionRate() int {
	if s.TotalTasks == 0 {
		return 0
	}
	return int(math.Round(float64(s.CompletedTasks) / float64(s.TotalTasks) * 100))
}

// rawTask and rawStats match the ABI tuple component names so
// abi.ConvertType can fill them.
type rawTask struct {
	Id          *big.Int
	Title       string
	Description string
	IpfsHash    string
	Completed   bool
	CreatedAt   *big.Int
	CompletedAt *big.Int
	Owner       common.Address
	DelegatedTo common.Address
	IsNFT       bool
	NftTokenId  *big.Int
}

func (r rawTask) task() Task {
	return Task{
		ID:          bigToUint64(r.Id),
		Title:       r.Title,
		Description: r.Description,
		IPFSHash:    r.IpfsHash,
		Completed:   r.Completed,
		CreatedAt:   unixTime(r.CreatedAt),
		CompletedAt: unixTime(r.CompletedAt),
		Owner:       r.Owner,
		DelegatedTo: r.DelegatedTo,
		IsNFT:       r.IsNFT,
		NFTTokenID:  bigToUint64(r.NftTokenId),
	}
}

type rawStats struct {
	TotalTasks         *big.Int
	CompletedTasks     *big.Int
	CurrentStreak      *big.Int
	LastCompletionDate *big.Int
	MaxStreak          *big.Int
}

func (r rawStats) stats() UserStats {
	return UserStats{
		TotalTasks:         bigToUint64(r.TotalTasks),
		CompletedTasks:     bigToUint64(r.CompletedTasks),
		CurrentStreak:      bigToUint64(r.CurrentStreak),
		LastCompletionDate: unixTime(r.LastCompletionDate),
		MaxStreak:          bigToUint64(r.MaxStreak),
	}
}

// bigToUint64 saturates values that do not fit.
func bigToUint64(v *big.Int) uint64 {
	if v == nil || v.Sign() <= 0 {
		return 0
	}
	if !v.IsUint64() {
		return math.MaxUint64
	}
	return v.Uint64()
}

func unixTime(v *big.Int) time.Time {
	secs := bigToUint64(v)
	if secs == 0 || secs > math.MaxInt64 {
		return time.Time{}
	}
	return time.Unix(int64(secs), 0).UTC()
}
