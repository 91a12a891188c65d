// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package wsprovider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustavx08/web3-todo-dapp/services/wallet"
)

// fakeWallet answers JSON-RPC over a WebSocket. Pushes are written through
// the push channel so tests can emit subscription notifications.
type fakeWallet struct {
	t      *testing.T
	srv    *httptest.Server
	push   chan any
	origin chan string

	mu      sync.Mutex
	silence map[string]bool
}

func newFakeWallet(t *testing.T) *fakeWallet {
	t.Helper()
	fw := &fakeWallet{
		t:       t,
		push:    make(chan any, 8),
		origin:  make(chan string, 1),
		silence: make(map[string]bool),
	}
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	fw.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fw.origin <- r.Header.Get("Origin")
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()

		var writeMu sync.Mutex
		write := func(v any) error {
			writeMu.Lock()
			defer writeMu.Unlock()
			return ws.WriteJSON(v)
		}
		stop := make(chan struct{})
		defer close(stop)
		go func() {
			for {
				select {
				case v := <-fw.push:
					if v == nil {
						writeMu.Lock()
						_ = ws.WriteMessage(websocket.CloseMessage,
							websocket.FormatCloseMessage(websocket.CloseGoingAway, "bye"))
						writeMu.Unlock()
						return
					}
					_ = write(v)
				case <-stop:
					return
				}
			}
		}()

		for {
			var req rpcRequest
			if err := ws.ReadJSON(&req); err != nil {
				return
			}
			fw.mu.Lock()
			quiet := fw.silence[req.Method]
			fw.mu.Unlock()
			if quiet {
				continue
			}
			_ = write(fw.answer(req))
		}
	}))
	t.Cleanup(fw.srv.Close)
	return fw
}

func (fw *fakeWallet) answer(req rpcRequest) map[string]any {
	resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
	switch req.Method {
	case "eth_chainId":
		resp["result"] = "0xa869"
	case "eth_accounts":
		resp["result"] = []string{"0x00000000000000000000000000000000000000a1"}
	case "eth_subscribe":
		resp["result"] = "sub-" + req.Params[0].(string)
	case "eth_requestAccounts":
		resp["error"] = map[string]any{"code": 4001, "message": "User rejected the request."}
	case "eth_sendTransaction":
		resp["error"] = map[string]any{
			"code":    -32603,
			"message": "execution reverted",
			"data":    map[string]any{"message": "execution reverted: Not task owner"},
		}
	default:
		resp["error"] = map[string]any{"code": 4200, "message": "unsupported"}
	}
	return resp
}

func (fw *fakeWallet) url() string {
	return "ws" + strings.TrimPrefix(fw.srv.URL, "http")
}

func TestDial_EmptyURL(t *testing.T) {
	_, err := Dial(context.Background(), Config{})
	require.ErrorIs(t, err, wallet.ErrProviderUnavailable)
}

func TestDial_Unreachable(t *testing.T) {
	_, err := Dial(context.Background(), Config{URL: "ws://127.0.0.1:1", DialTimeout: 200 * time.Millisecond})
	require.ErrorIs(t, err, wallet.ErrProviderUnavailable)
}

func TestProvider_Request(t *testing.T) {
	fw := newFakeWallet(t)
	p, err := Dial(context.Background(), Config{URL: fw.url()})
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, "web3todo", <-fw.origin)

	var chain string
	require.NoError(t, p.Request(context.Background(), "eth_chainId", nil, &chain))
	assert.Equal(t, "0xa869", chain)

	var accounts []string
	require.NoError(t, p.Request(context.Background(), "eth_accounts", nil, &accounts))
	assert.Len(t, accounts, 1)
}

func TestProvider_ConcurrentRequests(t *testing.T) {
	fw := newFakeWallet(t)
	p, err := Dial(context.Background(), Config{URL: fw.url()})
	require.NoError(t, err)
	defer p.Close()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var chain string
			if err := p.Request(context.Background(), "eth_chainId", nil, &chain); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("request failed: %v", err)
	}
}

func TestProvider_ErrorMapping(t *testing.T) {
	fw := newFakeWallet(t)
	p, err := Dial(context.Background(), Config{URL: fw.url()})
	require.NoError(t, err)
	defer p.Close()

	err = p.Request(context.Background(), "eth_requestAccounts", nil, nil)
	require.ErrorIs(t, err, wallet.ErrUserRejected)

	err = p.Request(context.Background(), "eth_sendTransaction", []any{map[string]any{}}, nil)
	pe, ok := wallet.AsProviderError(err)
	require.True(t, ok)
	assert.Equal(t, wallet.CodeInternal, pe.Code)
	assert.Equal(t, "execution reverted: Not task owner", pe.DataMessage())
}

func TestProvider_ContextCancel(t *testing.T) {
	fw := newFakeWallet(t)
	fw.silence["eth_blockNumber"] = true
	p, err := Dial(context.Background(), Config{URL: fw.url()})
	require.NoError(t, err)
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err = p.Request(ctx, "eth_blockNumber", nil, nil)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	p.mu.Lock()
	assert.Empty(t, p.pending)
	p.mu.Unlock()
}

func TestProvider_SubscriptionEvents(t *testing.T) {
	fw := newFakeWallet(t)
	p, err := Dial(context.Background(), Config{URL: fw.url(), Subscribe: true})
	require.NoError(t, err)
	defer p.Close()

	fw.push <- map[string]any{
		"jsonrpc": "2.0",
		"method":  "eth_subscription",
		"params": map[string]any{
			"subscription": "sub-chainChanged",
			"result":       "0x1",
		},
	}
	fw.push <- map[string]any{
		"jsonrpc": "2.0",
		"method":  "eth_subscription",
		"params": map[string]any{
			"subscription": "sub-accountsChanged",
			"result":       []string{},
		},
	}

	select {
	case ev := <-p.Events():
		assert.Equal(t, wallet.EventChainChanged, ev.Kind)
		assert.Equal(t, "0x1", ev.ChainID)
	case <-time.After(time.Second):
		t.Fatal("no chainChanged event")
	}
	select {
	case ev := <-p.Events():
		assert.Equal(t, wallet.EventAccountsChanged, ev.Kind)
		assert.Empty(t, ev.Accounts)
	case <-time.After(time.Second):
		t.Fatal("no accountsChanged event")
	}
}

func TestProvider_ServerCloseFailsPending(t *testing.T) {
	fw := newFakeWallet(t)
	fw.silence["eth_blockNumber"] = true
	p, err := Dial(context.Background(), Config{URL: fw.url()})
	require.NoError(t, err)
	defer p.Close()

	done := make(chan error, 1)
	go func() { done <- p.Request(context.Background(), "eth_blockNumber", nil, nil) }()

	// Let the request reach the wallet before it hangs up.
	time.Sleep(50 * time.Millisecond)
	fw.push <- nil

	select {
	case err := <-done:
		require.ErrorIs(t, err, wallet.ErrNotConnected)
	case <-time.After(time.Second):
		t.Fatal("pending request not failed")
	}

	var sawDisconnect bool
	for ev := range p.Events() {
		if ev.Kind == wallet.EventDisconnect {
			sawDisconnect = true
		}
	}
	assert.True(t, sawDisconnect)

	err = p.Request(context.Background(), "eth_chainId", nil, nil)
	require.ErrorIs(t, err, wallet.ErrNotConnected)
}

func TestRPCMessage_Decode(t *testing.T) {
	var msg rpcMessage
	require.NoError(t, json.Unmarshal([]byte(`{"jsonrpc":"2.0","id":3,"result":"0x1"}`), &msg))
	require.NotNil(t, msg.ID)
	assert.Equal(t, uint64(3), *msg.ID)
	assert.JSONEq(t, `"0x1"`, string(msg.Result))
}
