// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"time"

	"github.com/koustavx08/web3-todo-dapp/pkg/logging"
	"github.com/koustavx08/web3-todo-dapp/services/observability"
	"github.com/koustavx08/web3-todo-dapp/services/storage"
	"github.com/koustavx08/web3-todo-dapp/services/wallet"
)

// Config is the on-disk configuration shared by the CLI, the terminal UI
// and the gateway.
type Config struct {
	// Wallet: how to reach the user's wallet.
	Wallet WalletConfig `yaml:"wallet"`

	// Network: the one chain the dApp runs on.
	Network wallet.Network `yaml:"network"`

	// Contract: the deployed TodoList.
	Contract ContractConfig `yaml:"contract"`

	Tasks     TasksConfig          `yaml:"tasks"`
	Storage   storage.Config       `yaml:"storage"`
	Telemetry observability.Config `yaml:"telemetry"`
	Logging   LoggingConfig        `yaml:"logging"`
	Gateway   GatewayConfig        `yaml:"gateway"`
}

type WalletConfig struct {
	// ProviderURL is the wallet's JSON-RPC WebSocket endpoint.
	ProviderURL string `yaml:"provider_url" validate:"required,url"`

	// RequestsPerSecond caps outgoing wallet requests. 0 disables the cap.
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"gte=0"`

	// PollInterval is how often a pending transaction's receipt is polled.
	PollInterval time.Duration `yaml:"poll_interval" validate:"gte=0"`
}

type ContractConfig struct {
	// Address is empty until the contract has been deployed.
	Address string `yaml:"address" validate:"omitempty,eth_addr"`

	// Artifact is the compiled contract used by `todo deploy`.
	Artifact string `yaml:"artifact"`
}

type TasksConfig struct {
	// DescriptionThreshold is the description length, in characters, from
	// which descriptions are also uploaded to content storage.
	DescriptionThreshold int `yaml:"description_threshold" validate:"gte=1"`

	// ContentPolicy screens new task text for secrets: off, warn or block.
	ContentPolicy string `yaml:"content_policy" validate:"omitempty,oneof=off warn block"`

	// PatternFile replaces the built-in screening patterns.
	PatternFile string `yaml:"pattern_file"`
}

type LoggingConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	JSON  bool   `yaml:"json"`
	Dir   string `yaml:"dir"`

	// Recent is how many entries the gateway's /v1/logs endpoint keeps.
	Recent int `yaml:"recent" validate:"gte=0"`
}

// Logger builds the logger described by c. quiet keeps records off the
// console; they still reach the log directory and sink. sink may be nil.
func (c LoggingConfig) Logger(service string, quiet bool, sink logging.Sink) *logging.Logger {
	return logging.New(logging.Config{
		Level:   logging.ParseLevel(c.Level),
		JSON:    c.JSON,
		LogDir:  c.Dir,
		Service: service,
		Quiet:   quiet,
		Sink:    sink,
	})
}

type GatewayConfig struct {
	Addr            string        `yaml:"addr" validate:"required,hostname_port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DefaultConfig returns a configuration for a local wallet on Fuji with no
// contract deployed and no content storage.
func DefaultConfig() Config {
	return Config{
		Wallet: WalletConfig{
			ProviderURL:       "ws://127.0.0.1:1248",
			RequestsPerSecond: 10,
			PollInterval:      2 * time.Second,
		},
		Network: wallet.Fuji(),
		Contract: ContractConfig{
			Artifact: "artifacts/contracts/TodoList.sol/TodoList.json",
		},
		Tasks: TasksConfig{DescriptionThreshold: 101, ContentPolicy: "warn"},
		Storage: storage.Config{
			Backend: storage.BackendNone,
			Web3Storage: storage.Web3StorageConfig{
				Endpoint: "https://api.web3.storage",
				Gateway:  "https://w3s.link",
			},
			GCS:    storage.GCSConfig{Prefix: "web3todo"},
			Badger: storage.DefaultBadgerConfig("~/.web3todo/content"),
		},
		Telemetry: observability.Config{
			ServiceName:   "web3todo",
			TraceExporter: "none",
			OTLPEndpoint:  "localhost:4317",
		},
		Logging: LoggingConfig{Level: "info", Recent: logging.DefaultRecentSize},
		Gateway: GatewayConfig{
			Addr:            "127.0.0.1:8787",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    0,
			ShutdownTimeout: 10 * time.Second,
		},
	}
}
