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
	"errors"
	"fmt"
	"io"
	"os"
	"path"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// BackendGCS names the Cloud Storage backend.
const BackendGCS = "gcs"

// GCSConfig configures a Cloud Storage content store.
type GCSConfig struct {
	Bucket string `yaml:"bucket"`

	// Prefix is prepended to object names. Default: "web3todo".
	Prefix string `yaml:"prefix"`

	// CredentialsFile is a service account key. Empty uses application
	// default credentials.
	CredentialsFile string `yaml:"credentials_file"`
}

// GCSStore keeps content blocks as objects named <prefix>/<cid>.
type GCSStore struct {
	client *gcs.Client
	bucket string
	prefix string
}

var _ Store = (*GCSStore)(nil)

// NewGCS creates a GCSStore.
func NewGCS(ctx context.Context, cfg GCSConfig, opts ...option.ClientOption) (*GCSStore, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("gcs store: bucket is required")
	}
	if cfg.CredentialsFile != "" {
		if _, err := os.Stat(cfg.CredentialsFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("service account key not found at path: %s", cfg.CredentialsFile)
		}
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create GCS client: %w", err)
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "web3todo"
	}
	return &GCSStore{client: client, bucket: cfg.Bucket, prefix: prefix}, nil
}

// Backend implements Store.
func (s *GCSStore) Backend() string { return BackendGCS }

// Put implements Store. The file name is kept as object metadata.
func (s *GCSStore) Put(ctx context.Context, name string, data []byte) (string, error) {
	id, err := ComputeCID(data)
	if err != nil {
		return "", err
	}

	w := s.client.Bucket(s.bucket).Object(s.objectName(id)).NewWriter(ctx)
	w.ContentType = "application/json"
	w.CacheControl = "public, max-age=31536000, immutable"
	if name != "" {
		w.Metadata = map[string]string{"name": name}
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write gs://%s/%s: %w", s.bucket, s.objectName(id), err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close gs://%s/%s: %w", s.bucket, s.objectName(id), err)
	}
	return id, nil
}

// Get implements Store.
func (s *GCSStore) Get(ctx context.Context, id string) ([]byte, error) {
	if _, err := ParseCID(id); err != nil {
		return nil, err
	}
	r, err := s.client.Bucket(s.bucket).Object(s.objectName(id)).NewReader(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("read gs://%s/%s: %w", s.bucket, s.objectName(id), err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read gs://%s/%s: %w", s.bucket, s.objectName(id), err)
	}
	if err := VerifyCID(id, data); err != nil {
		return nil, err
	}
	return data, nil
}

// Close releases the client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}

func (s *GCSStore) objectName(id string) string {
	return path.Join(s.prefix, id)
}
