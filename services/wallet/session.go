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
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/koustavx08/web3-todo-dapp/pkg/logging"
	"github.com/koustavx08/web3-todo-dapp/services/notify"
)

// =============================================================================
// State
// =============================================================================

// State is the in-memory wallet connection state.
//
// Account and ChainID are nil when unknown. The zero State is the
// disconnected state.
type State struct {
	Account        *common.Address `json:"account"`
	Connected      bool            `json:"isConnected"`
	ChainID        *uint64         `json:"chainId"`
	CorrectNetwork bool            `json:"isCorrectNetwork"`
}

// AccountAddress returns the connected account or the zero address.
func (s State) AccountAddress() common.Address {
	if s.Account == nil {
		return common.Address{}
	}
	return *s.Account
}

// ShortAccount renders the account as 0x1234...abcd, or "" when none.
func (s State) ShortAccount() string {
	if s.Account == nil {
		return ""
	}
	hex := s.Account.Hex()
	return hex[:6] + "..." + hex[len(hex)-4:]
}

// =============================================================================
// Session
// =============================================================================

// SessionConfig configures a Session.
type SessionConfig struct {
	// Provider is the wallet. Nil means no wallet is available; Connect
	// then reports ErrProviderUnavailable.
	Provider Provider

	// Network is the only network the client accepts.
	Network Network

	// Notifier receives user-facing feedback. Default: notify.Discard.
	Notifier notify.Notifier

	// Logger receives diagnostics. Default: logging.Discard().
	Logger *logging.Logger
}

// Session tracks the wallet connection for one client run.
//
// # Description
//
// Session replaces the browser's global wallet hook with an explicit
// object: UI surfaces hold a *Session, read State(), and subscribe to
// changes. State is populated from the provider on CheckConnection or
// Connect, kept current by Watch, and cleared by Disconnect. Disconnect
// only forgets local state; the wallet's own permission grant stays.
//
// No call is retried. Every rejection becomes a notification and an error
// return, and the session stays usable.
//
// # Thread Safety
//
// All methods are safe for concurrent use.
type Session struct {
	provider Provider
	network  Network
	notifier notify.Notifier
	logger   *logging.Logger

	mu    sync.RWMutex
	state State
	subs  map[chan State]struct{}
}

// NewSession creates a disconnected Session.
func NewSession(cfg SessionConfig) *Session {
	if cfg.Notifier == nil {
		cfg.Notifier = notify.Discard
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}
	return &Session{
		provider: cfg.Provider,
		network:  cfg.Network,
		notifier: cfg.Notifier,
		logger:   cfg.Logger.With("component", "wallet"),
		subs:     make(map[chan State]struct{}),
	}
}

// Provider returns the wallet provider, which may be nil.
func (s *Session) Provider() Provider {
	return s.provider
}

// Network returns the expected network.
func (s *Session) Network() Network {
	return s.network
}

// State returns a copy of the current state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// CheckConnection passively reads accounts and chain from the wallet
// without prompting the user. When the wallet exposes no account the
// state is left unchanged.
func (s *Session) CheckConnection(ctx context.Context) error {
	if s.provider == nil {
		return nil
	}

	var accounts []string
	if err := s.provider.Request(ctx, "eth_accounts", nil, &accounts); err != nil {
		s.logger.Error("checking wallet connection", "error", err)
		return fmt.Errorf("eth_accounts: %w", err)
	}
	chainID, err := s.readChainID(ctx)
	if err != nil {
		s.logger.Error("checking wallet connection", "error", err)
		return err
	}
	if len(accounts) == 0 {
		return nil
	}

	account, err := parseAccount(accounts[0])
	if err != nil {
		s.logger.Error("checking wallet connection", "error", err)
		return err
	}
	s.setState(s.connectedState(account, chainID))
	return nil
}

// Connect asks the wallet for account access and validates the network.
//
// # Description
//
// Sends eth_requestAccounts (which may prompt the user), reads the chain
// id and stores the connected state. If the wallet is on another chain,
// SwitchNetwork is attempted and its error returned.
//
// # Outputs
//
//   - error: ErrProviderUnavailable, ErrUserRejected (wrapped), or the
//     provider's error. A notification has already been published.
func (s *Session) Connect(ctx context.Context) error {
	if s.provider == nil {
		notify.Error(s.notifier, notify.IDWallet, "Wallet provider not found. Start your wallet and configure its RPC endpoint to continue.")
		return ErrProviderUnavailable
	}

	account, err := s.requestAccounts(ctx)
	if err != nil {
		s.logger.Error("connecting wallet", "error", err)
		notify.Error(s.notifier, notify.IDWallet, "Failed to connect wallet")
		return err
	}
	chainID, err := s.readChainID(ctx)
	if err != nil {
		s.logger.Error("connecting wallet", "error", err)
		notify.Error(s.notifier, notify.IDWallet, "Failed to connect wallet")
		return err
	}

	s.setState(s.connectedState(account, chainID))
	s.logger.Info("wallet connected", "account", account.Hex(), "chain_id", chainID)

	if chainID != s.network.ChainID {
		return s.SwitchNetwork(ctx)
	}
	notify.Success(s.notifier, notify.IDWallet, "Wallet connected successfully!")
	return nil
}

// RequestAccounts re-requests account access and updates the account in
// the state. The chain is re-read as well.
func (s *Session) RequestAccounts(ctx context.Context) (common.Address, error) {
	if s.provider == nil {
		return common.Address{}, ErrProviderUnavailable
	}
	account, err := s.requestAccounts(ctx)
	if err != nil {
		return common.Address{}, err
	}
	chainID, err := s.readChainID(ctx)
	if err != nil {
		return common.Address{}, err
	}
	s.setState(s.connectedState(account, chainID))
	return account, nil
}

// SwitchNetwork asks the wallet to switch to the configured network,
// proposing to add it when the wallet does not recognize it.
func (s *Session) SwitchNetwork(ctx context.Context) error {
	if s.provider == nil {
		return ErrProviderUnavailable
	}

	params := []any{map[string]any{"chainId": s.network.HexChainID()}}
	err := s.provider.Request(ctx, "wallet_switchEthereumChain", params, nil)
	switch {
	case err == nil:
		notify.Success(s.notifier, notify.IDNetwork, "Switched to "+s.network.Name)
	case isUnrecognizedChain(err):
		addErr := s.provider.Request(ctx, "wallet_addEthereumChain", []any{s.network.AddChainParams()}, nil)
		if addErr != nil {
			s.logger.Error("adding network", "chain_id", s.network.ChainID, "error", addErr)
			notify.Error(s.notifier, notify.IDNetwork, "Failed to add "+s.network.Name)
			return fmt.Errorf("wallet_addEthereumChain: %w", addErr)
		}
		notify.Success(s.notifier, notify.IDNetwork, "Added and switched to "+s.network.Name)
	default:
		s.logger.Error("switching network", "chain_id", s.network.ChainID, "error", err)
		notify.Error(s.notifier, notify.IDNetwork, "Failed to switch network")
		return fmt.Errorf("wallet_switchEthereumChain: %w", err)
	}

	// The chainChanged event will follow, but callers without a Watch
	// loop still expect an accurate state on return.
	if s.State().Connected {
		if err := s.CheckConnection(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Disconnect forgets the connection. The wallet's permission grant is not
// revoked.
func (s *Session) Disconnect() {
	s.setState(State{})
	s.logger.Info("wallet disconnected")
	notify.Success(s.notifier, notify.IDWallet, "Wallet disconnected")
}

// Watch keeps the state in sync with provider events until ctx ends or the
// event stream closes.
//
// An accountsChanged event with no accounts disconnects; any other account
// or chain change re-reads the connection.
func (s *Session) Watch(ctx context.Context) error {
	if s.provider == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	events := s.provider.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			s.handleEvent(ctx, ev)
		}
	}
}

func (s *Session) handleEvent(ctx context.Context, ev Event) {
	s.logger.Debug("provider event", "kind", string(ev.Kind))
	switch ev.Kind {
	case EventAccountsChanged:
		if len(ev.Accounts) == 0 {
			s.Disconnect()
			return
		}
		_ = s.CheckConnection(ctx)
	case EventChainChanged:
		_ = s.CheckConnection(ctx)
	case EventDisconnect:
		if s.State().Connected {
			s.Disconnect()
		}
	}
}

// Subscribe returns a channel receiving every state change.
func (s *Session) Subscribe() chan State {
	ch := make(chan State, 16)
	s.mu.Lock()
	s.subs[ch] = struct{}{}
	s.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (s *Session) Unsubscribe(ch chan State) {
	s.mu.Lock()
	if _, ok := s.subs[ch]; ok {
		delete(s.subs, ch)
		close(ch)
	}
	s.mu.Unlock()
}

// =============================================================================
// Internals
// =============================================================================

func (s *Session) requestAccounts(ctx context.Context) (common.Address, error) {
	var accounts []string
	if err := s.provider.Request(ctx, "eth_requestAccounts", nil, &accounts); err != nil {
		return common.Address{}, fmt.Errorf("eth_requestAccounts: %w", err)
	}
	if len(accounts) == 0 {
		return common.Address{}, fmt.Errorf("eth_requestAccounts: %w", ErrNotConnected)
	}
	return parseAccount(accounts[0])
}

func (s *Session) readChainID(ctx context.Context) (uint64, error) {
	var raw string
	if err := s.provider.Request(ctx, "eth_chainId", nil, &raw); err != nil {
		return 0, fmt.Errorf("eth_chainId: %w", err)
	}
	id, err := ParseChainID(raw)
	if err != nil {
		return 0, fmt.Errorf("parse chain id %q: %w", raw, err)
	}
	return id, nil
}

func (s *Session) connectedState(account common.Address, chainID uint64) State {
	return State{
		Account:        &account,
		Connected:      true,
		ChainID:        &chainID,
		CorrectNetwork: chainID == s.network.ChainID,
	}
}

func (s *Session) setState(next State) {
	s.mu.Lock()
	s.state = next
	for ch := range s.subs {
		offerLatest(ch, next)
	}
	s.mu.Unlock()
}

// offerLatest sends v without blocking. When ch is full its oldest value is
// dropped so the newest state is always delivered.
func offerLatest[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

func parseAccount(raw string) (common.Address, error) {
	raw = strings.TrimSpace(raw)
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("wallet returned invalid account %q", raw)
	}
	return common.HexToAddress(raw), nil
}

func isUnrecognizedChain(err error) bool {
	pe, ok := AsProviderError(err)
	return ok && pe.Code == CodeUnrecognizedChain
}

// IsUserRejection reports whether err is a declined wallet prompt.
func IsUserRejection(err error) bool {
	return errors.Is(err, ErrUserRejected)
}
