// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustavx08/web3-todo-dapp/pkg/config"
	"github.com/koustavx08/web3-todo-dapp/pkg/ux"
	"github.com/koustavx08/web3-todo-dapp/services/ledger"
	"github.com/koustavx08/web3-todo-dapp/services/tasks"
)

var (
	owner    = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	delegate = common.HexToAddress("0x1234567890123456789012345678901234567890")
)

func machineOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	ux.SetLevel(ux.PersonalityMachine)
	ux.SetOutput(&buf, &buf)
	t.Cleanup(func() {
		ux.SetOutput(os.Stdout, os.Stderr)
		ux.SetLevel(ux.PersonalityFull)
	})
	return &buf
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestParseTaskID(t *testing.T) {
	tests := []struct {
		in      string
		want    uint64
		wantErr bool
	}{
		{"1", 1, false},
		{" 42 ", 42, false},
		{"#7", 7, false},
		{"-1", 0, true},
		{"abc", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseTaskID(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, tasks.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReportedError(t *testing.T) {
	err := reported(tasks.ErrNotPermitted)

	var rep *reportedError
	assert.True(t, errors.As(err, &rep))
	assert.ErrorIs(t, err, tasks.ErrNotPermitted)
	assert.Nil(t, reported(nil))
}

func TestShortAddress(t *testing.T) {
	assert.Equal(t, "0x1234...7890", shortAddress(delegate.Hex()))
	assert.Equal(t, "0x12", shortAddress("0x12"))
}

func TestRenderTask(t *testing.T) {
	machineOutput(t)

	created := time.Date(2024, 3, 5, 12, 0, 0, 0, time.Local)
	task := ledger.Task{
		ID:          3,
		Title:       "Ship release",
		Description: "Tag and publish",
		IPFSHash:    "bafkreigh2akiscaildc",
		CreatedAt:   created,
		Owner:       owner,
		DelegatedTo: delegate,
	}

	out := renderTask(task, owner, true)
	assert.Contains(t, out, "#3 Ship release")
	assert.Contains(t, out, "Delegated")
	assert.Contains(t, out, "Delegated to: 0x1234...7890")
	assert.Contains(t, out, "Created: Mar 5, 2024")
	assert.Contains(t, out, "IPFS: bafkreigh2akiscaildc")
	assert.Contains(t, out, "Actions: complete, delegate, delete")

	task.Completed = true
	task.CompletedAt = created.Add(24 * time.Hour)
	task.IsNFT = true
	task.NFTTokenID = 9
	out = renderTask(task, delegate, false)
	assert.Contains(t, out, "NFT #9")
	assert.Contains(t, out, "Completed: Mar 6, 2024")
	assert.NotContains(t, out, "Actions:")
}

func TestPrintStats(t *testing.T) {
	buf := machineOutput(t)

	printStats(ledger.UserStats{TotalTasks: 4, CompletedTasks: 3, CurrentStreak: 2, MaxStreak: 5})

	out := buf.String()
	assert.Contains(t, out, "total_tasks=4")
	assert.Contains(t, out, "current_streak=2 days")
	assert.Contains(t, out, "completion_rate=75% 75%")
}

func TestConfigCommands(t *testing.T) {
	machineOutput(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	_, err := execute(t, "config", "init", "--config", path, "--personality", "machine")
	require.NoError(t, err)
	_, err = os.Stat(path)
	require.NoError(t, err)

	_, err = execute(t, "config", "init", "--config", path, "--personality", "machine")
	assert.ErrorContains(t, err, "already exists")

	t.Setenv(config.EnvContractAddress, "")
	out, err := execute(t, "config", "show", "--config", path, "--personality", "machine")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "# "+path))
	assert.Contains(t, out, "provider_url: ws://127.0.0.1:1248")
	assert.Contains(t, out, "description_threshold: 101")
}

func TestSaveContractAddress(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, config.CreateDefault(path))

	addr := common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3").Hex()
	require.NoError(t, saveContractAddress(path, addr))

	cfg, err := config.Read(path, nil)
	require.NoError(t, err)
	assert.Equal(t, addr, cfg.Contract.Address)
}
