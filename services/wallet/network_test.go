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
	"errors"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuji(t *testing.T) {
	n := Fuji()
	assert.Equal(t, uint64(43113), n.ChainID)
	assert.Equal(t, "0xa869", n.HexChainID())
	assert.Equal(t, "AVAX", n.CurrencySymbol)
	require.NoError(t, validator.New().Struct(n))
}

func TestNetwork_AddChainParams(t *testing.T) {
	params := Fuji().AddChainParams()
	assert.Equal(t, "0xa869", params["chainId"])
	assert.Equal(t, "Avalanche Fuji Testnet", params["chainName"])
	currency := params["nativeCurrency"].(map[string]any)
	assert.Equal(t, uint8(18), currency["decimals"])
	assert.Contains(t, params, "blockExplorerUrls")

	n := Fuji()
	n.ExplorerURLs = nil
	assert.NotContains(t, n.AddChainParams(), "blockExplorerUrls")
}

func TestNetwork_ExplorerTokenURL(t *testing.T) {
	got := Fuji().ExplorerTokenURL("0xabc", 5)
	assert.Equal(t, "https://testnet.snowtrace.io/token/0xabc?a=5", got)

	n := Fuji()
	n.ExplorerURLs = nil
	assert.Empty(t, n.ExplorerTokenURL("0xabc", 5))
}

func TestParseChainID(t *testing.T) {
	tests := []struct {
		in      string
		want    uint64
		wantErr bool
	}{
		{"0xa869", 43113, false},
		{"0XA869", 43113, false},
		{"43113", 43113, false},
		{" 0x1 ", 1, false},
		{"0x", 0, true},
		{"fuji", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseChainID(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProviderError_Is(t *testing.T) {
	rejected := fmt.Errorf("send: %w", &ProviderError{Code: CodeUserRejected, Message: "denied"})
	assert.True(t, errors.Is(rejected, ErrUserRejected))
	assert.False(t, errors.Is(rejected, ErrNotConnected))

	disconnected := &ProviderError{Code: CodeDisconnected}
	assert.True(t, errors.Is(disconnected, ErrNotConnected))

	pe, ok := AsProviderError(rejected)
	require.True(t, ok)
	assert.Equal(t, "denied", pe.Message)

	_, ok = AsProviderError(errors.New("plain"))
	assert.False(t, ok)
}

func TestProviderError_DataMessage(t *testing.T) {
	pe := &ProviderError{Code: CodeInternal, Data: []byte(`{"message":"execution reverted: Task not found"}`)}
	assert.Equal(t, "execution reverted: Task not found", pe.DataMessage())

	assert.Empty(t, (&ProviderError{}).DataMessage())
	assert.Empty(t, (&ProviderError{Data: []byte(`"0x08c379a0"`)}).DataMessage())
}
