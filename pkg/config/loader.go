// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the YAML configuration file, applies environment
// overrides and validates the result.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Environment overrides.
const (
	EnvContractAddress  = "TODO_CONTRACT_ADDRESS"
	EnvProviderURL      = "TODO_PROVIDER_URL"
	EnvWeb3StorageToken = "WEB3_STORAGE_TOKEN"
	EnvStorageBackend   = "TODO_STORAGE_BACKEND"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

var validate = validator.New()

// DefaultPath returns ~/.web3todo/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not find the user's home directory: %w", err)
	}
	return filepath.Join(home, ".web3todo", "config.yaml"), nil
}

// Load reads the configuration at path, creating it with defaults on first
// run. An empty path selects DefaultPath. Environment overrides are applied
// before validation.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := CreateDefault(path); err != nil {
			return nil, err
		}
	}
	return Read(path, os.LookupEnv)
}

// Read parses the file at path over DefaultConfig without creating it.
// lookup supplies environment overrides and may be nil.
func Read(path string, lookup func(string) (string, bool)) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read the config file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if lookup != nil {
		ApplyEnv(cfg, lookup)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML over DefaultConfig. Keys absent from data keep their
// defaults.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse the config: %w", err)
	}
	cfg.Storage.Badger.Path = expandHome(cfg.Storage.Badger.Path)
	return &cfg, nil
}

// ApplyEnv overrides fields from the environment.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvContractAddress); ok {
		cfg.Contract.Address = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvProviderURL); ok && v != "" {
		cfg.Wallet.ProviderURL = v
	}
	if v, ok := lookup(EnvWeb3StorageToken); ok {
		cfg.Storage.Web3Storage.Token = v
		if v != "" && (cfg.Storage.Backend == "" || cfg.Storage.Backend == "none") {
			cfg.Storage.Backend = "web3storage"
		}
	}
	if v, ok := lookup(EnvStorageBackend); ok && v != "" {
		cfg.Storage.Backend = v
	}
}

// Validate checks struct tags and cross-field rules.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if cfg.Storage.Backend == "gcs" && cfg.Storage.GCS.Bucket == "" {
		return fmt.Errorf("%w: storage.gcs.bucket is required for the gcs backend", ErrInvalid)
	}
	return nil
}

// ContractAddress returns the configured contract, or the zero address
// when none is set.
func (c *Config) ContractAddress() common.Address {
	if !common.IsHexAddress(c.Contract.Address) {
		return common.Address{}
	}
	return common.HexToAddress(c.Contract.Address)
}

// CreateDefault writes DefaultConfig to path, creating parent directories.
func CreateDefault(path string) error {
	return Save(path, DefaultConfig())
}

// Save writes cfg to path. Secrets are not written.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create the config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode the config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
