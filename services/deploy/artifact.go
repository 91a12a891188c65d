// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package deploy publishes the TodoList contract through the wallet.
//
// The compiled contract comes from a Hardhat artifact. Deployment is a
// single contract-creation transaction signed by the wallet's selected
// account; the package never handles keys.
package deploy

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/koustavx08/web3-todo-dapp/services/ledger"
)

var (
	// ErrNoBytecode means the artifact carries no creation bytecode, as for
	// an interface or an abstract contract.
	ErrNoBytecode = errors.New("artifact has no bytecode")

	// ErrIncompatibleABI means the artifact does not expose the methods the
	// client calls.
	ErrIncompatibleABI = errors.New("artifact ABI is not a TodoList")

	// ErrNoContractAddress means the creation receipt named no contract.
	ErrNoContractAddress = errors.New("receipt has no contract address")
)

// Artifact is the subset of a Hardhat compilation artifact used here.
type Artifact struct {
	ContractName string          `json:"contractName"`
	SourceName   string          `json:"sourceName"`
	ABI          json.RawMessage `json:"abi"`
	Bytecode     string          `json:"bytecode"`
}

// LoadArtifact reads and decodes the artifact at path.
func LoadArtifact(path string) (Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Artifact{}, fmt.Errorf("reading artifact: %w", err)
	}
	return ParseArtifact(data)
}

// ParseArtifact decodes artifact JSON.
func ParseArtifact(data []byte) (Artifact, error) {
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return Artifact{}, fmt.Errorf("decoding artifact: %w", err)
	}
	return a, nil
}

// Code returns the decoded creation bytecode.
func (a Artifact) Code() ([]byte, error) {
	raw := strings.TrimSpace(a.Bytecode)
	if raw == "" || raw == "0x" {
		return nil, ErrNoBytecode
	}
	if !strings.HasPrefix(raw, "0x") {
		raw = "0x" + raw
	}
	code, err := hexutil.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("decoding bytecode: %w", err)
	}
	return code, nil
}

// CheckABI verifies that the artifact declares every method the client
// calls, with the same selector. An artifact without an ABI passes.
func (a Artifact) CheckABI() error {
	if len(bytes.TrimSpace(a.ABI)) == 0 {
		return nil
	}
	parsed, err := abi.JSON(bytes.NewReader(a.ABI))
	if err != nil {
		return fmt.Errorf("parsing artifact ABI: %w", err)
	}
	want := ledger.ABI()
	var missing []string
	for name, m := range want.Methods {
		got, ok := parsed.Methods[name]
		if !ok || !bytes.Equal(got.ID, m.ID) {
			missing = append(missing, m.Sig)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrIncompatibleABI, strings.Join(missing, ", "))
	}
	return nil
}
