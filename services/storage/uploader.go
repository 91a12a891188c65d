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
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/koustavx08/web3-todo-dapp/pkg/logging"
	"github.com/koustavx08/web3-todo-dapp/services/observability"
)

// BackendNone disables content storage.
const BackendNone = "none"

// DefaultFileName is the file name payloads are uploaded under.
const DefaultFileName = "task-data.json"

// Config selects and configures a backend.
type Config struct {
	Backend     string            `yaml:"backend" validate:"omitempty,oneof=none web3storage gcs badger"`
	Web3Storage Web3StorageConfig `yaml:"web3storage"`
	GCS         GCSConfig         `yaml:"gcs"`
	Badger      BadgerConfig      `yaml:"badger"`
}

// Open builds the configured Store. Backend "none" (or empty) returns a
// nil Store and no error. A web3storage backend without a token is also
// treated as unconfigured.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", BackendNone:
		return nil, nil
	case BackendWeb3Storage:
		s, err := NewWeb3Storage(cfg.Web3Storage)
		if err != nil {
			return nil, nil
		}
		return s, nil
	case BackendGCS:
		s, err := NewGCS(ctx, cfg.GCS)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendBadger:
		s, err := OpenBadger(cfg.Badger)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// Close closes s when it holds resources.
func Close(s Store) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Uploader serializes payloads to JSON and stores them.
//
// # Description
//
// A nil store makes the Uploader unavailable: Upload and Fetch return
// ErrUnavailable. Callers treat every error as non-fatal and fall back to
// an empty or inline value.
//
// # Thread Safety
//
// Safe for concurrent use when the Store is.
type Uploader struct {
	store   Store
	logger  *logging.Logger
	metrics *observability.Metrics
}

// NewUploader wraps store. logger and metrics may be nil.
func NewUploader(store Store, logger *logging.Logger, metrics *observability.Metrics) *Uploader {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Uploader{store: store, logger: logger.With("component", "storage"), metrics: metrics}
}

// Available reports whether a backend is configured.
func (u *Uploader) Available() bool {
	return u != nil && u.store != nil
}

// Backend names the configured backend, or "none".
func (u *Uploader) Backend() string {
	if !u.Available() {
		return BackendNone
	}
	return u.store.Backend()
}

// Upload stores payload as task-data.json and returns its CID.
func (u *Uploader) Upload(ctx context.Context, payload any) (string, error) {
	return u.UploadNamed(ctx, DefaultFileName, payload)
}

// UploadNamed stores payload under name and returns its CID.
func (u *Uploader) UploadNamed(ctx context.Context, name string, payload any) (string, error) {
	if !u.Available() {
		return "", ErrUnavailable
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	return u.PutBytes(ctx, name, data)
}

// PutBytes stores raw bytes.
func (u *Uploader) PutBytes(ctx context.Context, name string, data []byte) (string, error) {
	if !u.Available() {
		return "", ErrUnavailable
	}
	id, err := u.store.Put(ctx, name, data)
	u.metrics.StorageOp(u.store.Backend(), "put", err)
	if err != nil {
		u.logger.Error("error uploading content", "backend", u.store.Backend(), "error", err)
		return "", err
	}
	u.logger.Debug("content uploaded", "backend", u.store.Backend(), "cid", id, "bytes", len(data))
	return id, nil
}

// Fetch reads cid and decodes its JSON into v.
func (u *Uploader) Fetch(ctx context.Context, cid string, v any) error {
	data, err := u.GetBytes(ctx, cid)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", cid, err)
	}
	return nil
}

// GetBytes reads the raw bytes stored under cid.
func (u *Uploader) GetBytes(ctx context.Context, cid string) ([]byte, error) {
	if !u.Available() {
		return nil, ErrUnavailable
	}
	data, err := u.store.Get(ctx, cid)
	u.metrics.StorageOp(u.store.Backend(), "get", err)
	if err != nil {
		u.logger.Error("error getting content", "backend", u.store.Backend(), "cid", cid, "error", err)
		return nil, err
	}
	return data, nil
}
