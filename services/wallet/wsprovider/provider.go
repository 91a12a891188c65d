// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package wsprovider connects to a wallet that exposes an EIP-1193 style
// JSON-RPC endpoint over WebSocket, such as a desktop wallet's local RPC
// port. Requests are signed and approved inside the wallet; this package
// never sees a private key.
package wsprovider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/koustavx08/web3-todo-dapp/pkg/logging"
	"github.com/koustavx08/web3-todo-dapp/services/wallet"
)

// Config configures Dial.
type Config struct {
	// URL is the wallet endpoint, for example ws://127.0.0.1:1248.
	URL string

	// Origin is sent as the Origin header so the wallet can attribute
	// permission grants. Default: "web3todo".
	Origin string

	// DialTimeout bounds the handshake. Default: 5s.
	DialTimeout time.Duration

	// RequestsPerSecond caps outgoing calls. Zero disables the cap.
	RequestsPerSecond float64

	// Subscribe subscribes to accountsChanged and chainChanged after
	// connecting. Wallets that reject eth_subscribe still work; events are
	// then simply never delivered.
	Subscribe bool

	Logger *logging.Logger
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcMessage struct {
	ID     *uint64               `json:"id,omitempty"`
	Method string                `json:"method,omitempty"`
	Params json.RawMessage       `json:"params,omitempty"`
	Result json.RawMessage       `json:"result,omitempty"`
	Error  *wallet.ProviderError `json:"error,omitempty"`
}

type subscriptionParams struct {
	Subscription string          `json:"subscription"`
	Result       json.RawMessage `json:"result"`
}

type response struct {
	result json.RawMessage
	err    error
}

// Provider is a wallet.Provider over one WebSocket connection.
//
// # Thread Safety
//
// Request may be called from many goroutines; writes are serialized and
// responses are correlated by id.
type Provider struct {
	conn    *websocket.Conn
	limiter *rate.Limiter
	logger  *logging.Logger

	nextID atomic.Uint64

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[uint64]chan response
	subs    map[string]wallet.EventKind
	closed  bool
	readErr error

	events    chan wallet.Event
	done      chan struct{}
	closeOnce sync.Once
}

var _ wallet.Provider = (*Provider)(nil)

// Dial connects to the wallet and starts the read loop.
func Dial(ctx context.Context, cfg Config) (*Provider, error) {
	if cfg.URL == "" {
		return nil, wallet.ErrProviderUnavailable
	}
	if cfg.Origin == "" {
		cfg.Origin = "web3todo"
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}

	dialer := websocket.Dialer{HandshakeTimeout: cfg.DialTimeout}
	header := http.Header{}
	header.Set("Origin", cfg.Origin)

	conn, _, err := dialer.DialContext(ctx, cfg.URL, header)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", wallet.ErrProviderUnavailable, cfg.URL, err)
	}

	p := &Provider{
		conn:    conn,
		logger:  cfg.Logger.With("component", "wsprovider"),
		pending: make(map[uint64]chan response),
		subs:    make(map[string]wallet.EventKind),
		events:  make(chan wallet.Event, 32),
		done:    make(chan struct{}),
	}
	if cfg.RequestsPerSecond > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	go p.readLoop()

	if cfg.Subscribe {
		for _, kind := range []wallet.EventKind{wallet.EventAccountsChanged, wallet.EventChainChanged} {
			if err := p.subscribe(ctx, kind); err != nil {
				p.logger.Warn("wallet rejected subscription", "event", string(kind), "error", err)
			}
		}
	}
	p.logger.Info("connected to wallet", "url", cfg.URL)
	return p, nil
}

// Request implements wallet.Provider.
func (p *Provider) Request(ctx context.Context, method string, params []any, result any) error {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	if params == nil {
		params = []any{}
	}

	id := p.nextID.Add(1)
	ch := make(chan response, 1)

	p.mu.Lock()
	if p.closed {
		err := p.readErr
		p.mu.Unlock()
		return closedError(err)
	}
	p.pending[id] = ch
	p.mu.Unlock()

	req := rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params}
	p.writeMu.Lock()
	err := p.conn.WriteJSON(req)
	p.writeMu.Unlock()
	if err != nil {
		p.forget(id)
		return fmt.Errorf("%w: write %s: %v", wallet.ErrNotConnected, method, err)
	}

	select {
	case <-ctx.Done():
		p.forget(id)
		return ctx.Err()
	case resp := <-ch:
		if resp.err != nil {
			return resp.err
		}
		if result == nil || len(resp.result) == 0 {
			return nil
		}
		if err := json.Unmarshal(resp.result, result); err != nil {
			return fmt.Errorf("decode %s result: %w", method, err)
		}
		return nil
	}
}

// Events implements wallet.Provider.
func (p *Provider) Events() <-chan wallet.Event {
	return p.events
}

// Close closes the connection and fails every pending request.
func (p *Provider) Close() error {
	var err error
	p.closeOnce.Do(func() {
		p.writeMu.Lock()
		_ = p.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		p.writeMu.Unlock()
		err = p.conn.Close()
		<-p.done
	})
	return err
}

func (p *Provider) subscribe(ctx context.Context, kind wallet.EventKind) error {
	var id string
	if err := p.Request(ctx, "eth_subscribe", []any{string(kind)}, &id); err != nil {
		return err
	}
	p.mu.Lock()
	p.subs[id] = kind
	p.mu.Unlock()
	return nil
}

func (p *Provider) forget(id uint64) {
	p.mu.Lock()
	delete(p.pending, id)
	p.mu.Unlock()
}

func (p *Provider) readLoop() {
	defer close(p.done)
	for {
		var msg rpcMessage
		if err := p.conn.ReadJSON(&msg); err != nil {
			p.shutdown(err)
			return
		}
		switch {
		case msg.ID != nil:
			p.deliver(msg)
		case msg.Method == "eth_subscription":
			p.dispatch(msg.Params)
		}
	}
}

func (p *Provider) deliver(msg rpcMessage) {
	p.mu.Lock()
	ch, ok := p.pending[*msg.ID]
	delete(p.pending, *msg.ID)
	p.mu.Unlock()
	if !ok {
		return
	}
	if msg.Error != nil {
		ch <- response{err: msg.Error}
		return
	}
	ch <- response{result: msg.Result}
}

func (p *Provider) dispatch(raw json.RawMessage) {
	var params subscriptionParams
	if err := json.Unmarshal(raw, &params); err != nil {
		p.logger.Warn("malformed subscription message", "error", err)
		return
	}
	p.mu.Lock()
	kind, ok := p.subs[params.Subscription]
	p.mu.Unlock()
	if !ok {
		return
	}

	ev := wallet.Event{Kind: kind}
	switch kind {
	case wallet.EventAccountsChanged:
		if err := json.Unmarshal(params.Result, &ev.Accounts); err != nil {
			p.logger.Warn("malformed accountsChanged payload", "error", err)
			return
		}
	case wallet.EventChainChanged:
		if err := json.Unmarshal(params.Result, &ev.ChainID); err != nil {
			p.logger.Warn("malformed chainChanged payload", "error", err)
			return
		}
	}

	select {
	case p.events <- ev:
	default:
		p.logger.Warn("dropping wallet event, consumer is slow", "event", string(kind))
	}
}

func (p *Provider) shutdown(err error) {
	p.mu.Lock()
	p.closed = true
	p.readErr = err
	pending := p.pending
	p.pending = make(map[uint64]chan response)
	p.mu.Unlock()

	for _, ch := range pending {
		ch <- response{err: closedError(err)}
	}

	select {
	case p.events <- wallet.Event{Kind: wallet.EventDisconnect}:
	default:
	}
	close(p.events)

	if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure) {
		p.logger.Warn("wallet connection lost", "error", err)
	}
}

func closedError(err error) error {
	if err == nil || errors.Is(err, websocket.ErrCloseSent) {
		return wallet.ErrNotConnected
	}
	return fmt.Errorf("%w: %v", wallet.ErrNotConnected, err)
}
