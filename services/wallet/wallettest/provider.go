// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package wallettest provides an in-memory wallet provider for tests.
package wallettest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/koustavx08/web3-todo-dapp/services/wallet"
)

// HandlerFunc answers one JSON-RPC method. The returned value is
// JSON-encoded and decoded into the caller's result.
type HandlerFunc func(params []any) (any, error)

// Call records one Request.
type Call struct {
	Method string
	Params []any
}

// Provider is a scriptable wallet.Provider.
type Provider struct {
	mu       sync.Mutex
	handlers map[string]HandlerFunc
	calls    []Call
	events   chan wallet.Event
	closed   bool
}

var _ wallet.Provider = (*Provider)(nil)

// New creates a Provider with no handlers. Unhandled methods fail with
// code 4200.
func New() *Provider {
	return &Provider{
		handlers: make(map[string]HandlerFunc),
		events:   make(chan wallet.Event, 16),
	}
}

// Handle registers the handler for method.
func (p *Provider) Handle(method string, h HandlerFunc) *Provider {
	p.mu.Lock()
	p.handlers[method] = h
	p.mu.Unlock()
	return p
}

// Return registers a handler that always answers v.
func (p *Provider) Return(method string, v any) *Provider {
	return p.Handle(method, func([]any) (any, error) { return v, nil })
}

// Fail registers a handler that always fails with a ProviderError.
func (p *Provider) Fail(method string, code int, message string) *Provider {
	return p.Handle(method, func([]any) (any, error) {
		return nil, &wallet.ProviderError{Code: code, Message: message}
	})
}

// Request implements wallet.Provider.
func (p *Provider) Request(ctx context.Context, method string, params []any, result any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return wallet.ErrNotConnected
	}
	p.calls = append(p.calls, Call{Method: method, Params: params})
	h, ok := p.handlers[method]
	p.mu.Unlock()

	if !ok {
		return &wallet.ProviderError{Code: wallet.CodeUnsupported, Message: fmt.Sprintf("method %s not supported", method)}
	}
	v, err := h(params)
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, result)
}

// Events implements wallet.Provider.
func (p *Provider) Events() <-chan wallet.Event {
	return p.events
}

// Emit pushes a provider event.
func (p *Provider) Emit(ev wallet.Event) {
	p.events <- ev
}

// Close implements wallet.Provider.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.events)
	}
	return nil
}

// Calls returns the recorded requests.
func (p *Provider) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Call, len(p.calls))
	copy(out, p.calls)
	return out
}

// Methods returns the recorded method names in order.
func (p *Provider) Methods() []string {
	calls := p.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.Method
	}
	return out
}

// Count returns how many times method was requested.
func (p *Provider) Count(method string) int {
	n := 0
	for _, c := range p.Calls() {
		if c.Method == method {
			n++
		}
	}
	return n
}

// DecodeParam JSON round-trips params[i] into v, the way a real wallet
// would see it on the wire.
func DecodeParam(params []any, i int, v any) error {
	if i >= len(params) {
		return fmt.Errorf("param %d missing (have %d)", i, len(params))
	}
	raw, err := json.Marshal(params[i])
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}
