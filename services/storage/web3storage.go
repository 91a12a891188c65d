// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/awnumar/memguard"
)

// BackendWeb3Storage names the remote pinning backend.
const BackendWeb3Storage = "web3storage"

// maxFetchBytes bounds gateway downloads.
const maxFetchBytes = 10 << 20

// Web3StorageConfig configures the remote pinning backend.
type Web3StorageConfig struct {
	// Token is the API token. It is moved into protected memory and the
	// caller's copy should be discarded.
	Token string `yaml:"-" json:"-"`

	// Endpoint is the upload API base. Default: https://api.web3.storage.
	Endpoint string `yaml:"endpoint" validate:"omitempty,url"`

	// Gateway is the retrieval gateway base. Default: https://w3s.link.
	Gateway string `yaml:"gateway" validate:"omitempty,url"`

	// Timeout bounds each HTTP request. Default: 30s.
	Timeout time.Duration `yaml:"timeout"`
}

// Web3Storage uploads through a web3.storage compatible HTTP API and reads
// back through an IPFS gateway.
//
// # Description
//
// The API token lives in a memguard enclave and is decrypted only for the
// duration of a request. CIDs are assigned by the service (UnixFS), so
// fetched bytes are not re-hashed locally.
//
// # Thread Safety
//
// Safe for concurrent use.
type Web3Storage struct {
	token    *memguard.Enclave
	endpoint string
	gateway  string
	client   *http.Client
	maxFetch int64
}

var _ Store = (*Web3Storage)(nil)

// NewWeb3Storage creates the backend. An empty token returns
// ErrUnavailable.
func NewWeb3Storage(cfg Web3StorageConfig) (*Web3Storage, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, fmt.Errorf("%w: web3.storage client not initialized, add your API token", ErrUnavailable)
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://api.web3.storage"
	}
	if cfg.Gateway == "" {
		cfg.Gateway = "https://w3s.link"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Web3Storage{
		token:    memguard.NewEnclave([]byte(cfg.Token)),
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		gateway:  strings.TrimRight(cfg.Gateway, "/"),
		client:   &http.Client{Timeout: cfg.Timeout},
		maxFetch: maxFetchBytes,
	}, nil
}

// Backend implements Store.
func (s *Web3Storage) Backend() string { return BackendWeb3Storage }

// Put implements Store.
func (s *Web3Storage) Put(ctx context.Context, name string, data []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint+"/upload", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if name != "" {
		req.Header.Set("X-Name", url.PathEscape(name))
	}

	token, err := s.token.Open()
	if err != nil {
		return "", fmt.Errorf("open token enclave: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.String())
	token.Destroy()

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload to %s: %w", s.endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read upload response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("upload failed: %s: %s", resp.Status, apiMessage(body))
	}

	var out struct {
		CID string `json:"cid"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if _, err := ParseCID(out.CID); err != nil {
		return "", fmt.Errorf("upload response: %w", err)
	}
	return out.CID, nil
}

// Get implements Store.
func (s *Web3Storage) Get(ctx context.Context, id string) ([]byte, error) {
	if _, err := ParseCID(id); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.gateway+"/ipfs/"+id, nil)
	if err != nil {
		return nil, fmt.Errorf("build fetch request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to get data from IPFS: %s", resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, s.maxFetch+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", id, err)
	}
	if int64(len(data)) > s.maxFetch {
		return nil, fmt.Errorf("%w: %s is over %d bytes", ErrTooLarge, id, s.maxFetch)
	}
	return data, nil
}

// apiMessage extracts {"message": ...} from an error body, falling back to
// the raw text.
func apiMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return strings.TrimSpace(string(body))
}
