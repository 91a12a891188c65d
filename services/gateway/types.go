// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package gateway

import (
	"github.com/koustavx08/web3-todo-dapp/pkg/logging"
	"github.com/koustavx08/web3-todo-dapp/services/ledger"
	"github.com/koustavx08/web3-todo-dapp/services/notify"
	"github.com/koustavx08/web3-todo-dapp/services/tasks"
	"github.com/koustavx08/web3-todo-dapp/services/wallet"
)

// =============================================================================
// Requests
// =============================================================================

// CreateTaskRequest is the body of POST /v1/tasks.
type CreateTaskRequest struct {
	Title       string `json:"title" binding:"required,max=200"`
	Description string `json:"description"`
}

// DelegateRequest is the body of POST /v1/tasks/:id/delegate.
type DelegateRequest struct {
	To string `json:"to" binding:"required,eth_addr"`
}

// =============================================================================
// Responses
// =============================================================================

// ErrorResponse is returned for every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Network  string `json:"network"`
	Contract string `json:"contract,omitempty"`
	Storage  string `json:"storage"`
}

// WalletResponse describes the wallet session and the screen it unlocks.
type WalletResponse struct {
	wallet.State
	ShortAccount string         `json:"shortAccount,omitempty"`
	Network      wallet.Network `json:"network"`
	View         tasks.View     `json:"view"`
}

// ViewResponse is returned by GET /v1/view.
type ViewResponse struct {
	View     tasks.View `json:"view"`
	Contract string     `json:"contract,omitempty"`
}

// TaskResponse is one task plus what the connected account may do with it.
type TaskResponse struct {
	ledger.Task
	tasks.Capabilities
	ExplorerURL string `json:"explorerUrl,omitempty"`
}

// TasksResponse is returned by GET /v1/tasks.
type TasksResponse struct {
	Tasks   []TaskResponse    `json:"tasks"`
	Stats   *ledger.UserStats `json:"stats,omitempty"`
	Loading bool              `json:"loading"`
}

// StatsResponse is returned by GET /v1/stats.
type StatsResponse struct {
	ledger.UserStats
	CompletionRate int `json:"completionRate"`
}

// TxResponse is returned by every write once its transaction is mined.
type TxResponse struct {
	TxHash      string         `json:"transactionHash"`
	BlockNumber uint64         `json:"blockNumber"`
	Events      []ledger.Event `json:"events,omitempty"`
	TokenID     *uint64        `json:"tokenId,omitempty"`
	ExplorerURL string         `json:"explorerUrl,omitempty"`
}

// LogsResponse is returned by GET /v1/logs.
type LogsResponse struct {
	Entries []logging.Entry `json:"entries"`
}

// NotificationsResponse is returned by GET /v1/notifications.
type NotificationsResponse struct {
	Notifications []notify.Notification `json:"notifications"`
}
