// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Provider is the wallet's request interface.
//
// # Description
//
// Provider is the Go shape of an EIP-1193 provider: a single Request method
// for JSON-RPC calls (including the wallet_* and eth_requestAccounts
// permission methods) and a stream of account/chain change events. The
// wallet owns the keys; eth_sendTransaction is signed and broadcast by it.
//
// # Thread Safety
//
// Implementations must allow concurrent Request calls.
type Provider interface {
	// Request performs one JSON-RPC call and decodes the result into
	// result (which may be nil to discard it). Wallet-side failures are
	// returned as *ProviderError.
	Request(ctx context.Context, method string, params []any, result any) error

	// Events returns the provider's notification stream. The channel is
	// closed when the provider is closed.
	Events() <-chan Event

	// Close releases the underlying connection.
	Close() error
}

// EventKind identifies a provider notification.
type EventKind string

const (
	EventAccountsChanged EventKind = "accountsChanged"
	EventChainChanged    EventKind = "chainChanged"
	EventDisconnect      EventKind = "disconnect"
)

// Event is a provider notification.
type Event struct {
	Kind     EventKind
	Accounts []string
	ChainID  string
}

// =============================================================================
// Errors
// =============================================================================

// EIP-1193 and EIP-1474 error codes the session reacts to.
const (
	CodeUserRejected      = 4001
	CodeUnauthorized      = 4100
	CodeUnsupported       = 4200
	CodeDisconnected      = 4900
	CodeUnrecognizedChain = 4902
	CodeInternal          = -32603
)

var (
	// ErrProviderUnavailable means no wallet provider is configured or
	// reachable.
	ErrProviderUnavailable = errors.New("wallet provider not found")

	// ErrUserRejected means the user declined a wallet prompt.
	ErrUserRejected = errors.New("user rejected the request")

	// ErrNotConnected means an operation needs a connected account.
	ErrNotConnected = errors.New("wallet not connected")

	// ErrNetworkMismatch means the wallet is on a different chain than
	// the configured network.
	ErrNetworkMismatch = errors.New("wallet is on the wrong network")
)

// ProviderError is a JSON-RPC error object returned by the wallet.
type ProviderError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Error implements error.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error %d: %s", e.Code, e.Message)
}

// Is maps well-known codes onto the package sentinels so callers can use
// errors.Is(err, ErrUserRejected).
func (e *ProviderError) Is(target error) bool {
	switch target {
	case ErrUserRejected:
		return e.Code == CodeUserRejected
	case ErrNotConnected:
		return e.Code == CodeUnauthorized || e.Code == CodeDisconnected
	}
	return false
}

// DataMessage returns data.message when the wallet attached one. Wallets
// put the contract's revert reason there.
func (e *ProviderError) DataMessage() string {
	if len(e.Data) == 0 {
		return ""
	}
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(e.Data, &payload); err != nil {
		return ""
	}
	return payload.Message
}

// AsProviderError unwraps err into a *ProviderError.
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
