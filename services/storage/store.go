// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package storage uploads task payloads to content-addressed storage.
//
// A Store puts bytes and returns their content identifier (CID). The
// Uploader on top serializes payloads to JSON and is what the task service
// uses; every Uploader failure is meant to be non-fatal to its caller.
//
// Backends:
//
//	web3storage  remote pinning API with a bearer token
//	gcs          Google Cloud Storage bucket, objects keyed by CID
//	badger       embedded BadgerDB, keyed by CID
package storage

import (
	"context"
	"errors"
)

var (
	// ErrUnavailable means no backend is configured.
	ErrUnavailable = errors.New("content storage not configured")

	// ErrNotFound means the CID is not stored.
	ErrNotFound = errors.New("content not found")

	// ErrTooLarge means fetched content exceeds the download limit.
	ErrTooLarge = errors.New("content exceeds download limit")

	// ErrIntegrity means fetched bytes do not hash to the requested CID.
	ErrIntegrity = errors.New("content does not match CID")
)

// Store is a content-addressed blob store.
type Store interface {
	// Put stores data under the given file name and returns its CID.
	Put(ctx context.Context, name string, data []byte) (string, error)

	// Get returns the bytes stored under cid.
	Get(ctx context.Context, cid string) ([]byte, error)

	// Backend names the implementation for logs and metrics.
	Backend() string
}
