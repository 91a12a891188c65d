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
	"fmt"
	"strconv"
	"strings"
)

// Network describes the single chain the client is meant to run against.
//
// The field set mirrors the wallet_addEthereumChain parameter object so a
// Network can be proposed to a wallet that does not know the chain yet.
type Network struct {
	ChainID        uint64   `yaml:"chain_id" json:"-" validate:"required,gt=0"`
	Name           string   `yaml:"name" json:"chainName" validate:"required"`
	CurrencyName   string   `yaml:"currency_name" json:"-" validate:"required"`
	CurrencySymbol string   `yaml:"currency_symbol" json:"-" validate:"required"`
	Decimals       uint8    `yaml:"decimals" json:"-"`
	RPCURLs        []string `yaml:"rpc_urls" json:"rpcUrls" validate:"required,min=1,dive,url"`
	ExplorerURLs   []string `yaml:"explorer_urls" json:"blockExplorerUrls,omitempty" validate:"dive,url"`
}

// Fuji is the Avalanche Fuji C-Chain test network.
func Fuji() Network {
	return Network{
		ChainID:        43113,
		Name:           "Avalanche Fuji Testnet",
		CurrencyName:   "Avalanche Fuji",
		CurrencySymbol: "AVAX",
		Decimals:       18,
		RPCURLs:        []string{"https://api.avax-test.network/ext/bc/C/rpc"},
		ExplorerURLs:   []string{"https://testnet.snowtrace.io/"},
	}
}

// HexChainID returns the chain id as a 0x-prefixed lowercase hex quantity.
func (n Network) HexChainID() string {
	return "0x" + strconv.FormatUint(n.ChainID, 16)
}

// AddChainParams returns the wallet_addEthereumChain parameter object.
func (n Network) AddChainParams() map[string]any {
	params := map[string]any{
		"chainId":   n.HexChainID(),
		"chainName": n.Name,
		"nativeCurrency": map[string]any{
			"name":     n.CurrencyName,
			"symbol":   n.CurrencySymbol,
			"decimals": n.Decimals,
		},
		"rpcUrls": n.RPCURLs,
	}
	if len(n.ExplorerURLs) > 0 {
		params["blockExplorerUrls"] = n.ExplorerURLs
	}
	return params
}

// ExplorerTokenURL links to a token id on the first configured explorer,
// or returns "" when the network has no explorer.
func (n Network) ExplorerTokenURL(contract string, tokenID uint64) string {
	if len(n.ExplorerURLs) == 0 {
		return ""
	}
	base := strings.TrimRight(n.ExplorerURLs[0], "/")
	return fmt.Sprintf("%s/token/%s?a=%d", base, contract, tokenID)
}

// ParseChainID parses an eth_chainId result. Wallets return hex quantities;
// some return decimal strings.
func ParseChainID(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return strconv.ParseUint(s[2:], 16, 64)
	}
	return strconv.ParseUint(s, 10, 64)
}
