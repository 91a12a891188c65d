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
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// BackendBadger names the embedded backend.
const BackendBadger = "badger"

// keyPrefix namespaces content blocks inside the database.
var keyPrefix = []byte("cid/")

// BadgerConfig configures an embedded content store.
type BadgerConfig struct {
	// Path is the database directory. Ignored when InMemory is true.
	Path string `yaml:"path"`

	// InMemory keeps everything in RAM. Used by tests.
	InMemory bool `yaml:"in_memory"`

	// SyncWrites fsyncs every write.
	SyncWrites bool `yaml:"sync_writes"`

	// GCInterval is how often value log GC runs. Zero disables it.
	GCInterval time.Duration `yaml:"gc_interval"`

	// GCDiscardRatio is the garbage ratio that triggers a rewrite.
	GCDiscardRatio float64 `yaml:"gc_discard_ratio"`

	// Logger receives BadgerDB's own messages. Nil silences them.
	Logger *slog.Logger `yaml:"-"`
}

// DefaultBadgerConfig returns production settings for path.
func DefaultBadgerConfig(path string) BadgerConfig {
	return BadgerConfig{
		Path:           path,
		SyncWrites:     true,
		GCInterval:     10 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryBadgerConfig returns settings for tests.
func InMemoryBadgerConfig() BadgerConfig {
	return BadgerConfig{InMemory: true}
}

// badgerLogger adapts slog to badger.Logger.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// BadgerStore keeps content blocks in an embedded BadgerDB.
//
// # Description
//
// Keys are "cid/<cid>", values the raw bytes. Put is idempotent: the same
// bytes always land on the same key. Get re-hashes what it reads and
// refuses content that does not match the CID.
//
// # Thread Safety
//
// Safe for concurrent use.
type BadgerStore struct {
	db     *badger.DB
	gcStop chan struct{}
	gcDone chan struct{}
	logger *slog.Logger
}

var _ Store = (*BadgerStore)(nil)

// OpenBadger opens (creating if needed) a content store.
func OpenBadger(cfg BadgerConfig) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("badger store: path is required")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create store directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger store: %w", err)
	}

	s := &BadgerStore{db: db, logger: cfg.Logger}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		ratio := cfg.GCDiscardRatio
		if ratio <= 0 || ratio >= 1 {
			ratio = 0.5
		}
		s.gcStop = make(chan struct{})
		s.gcDone = make(chan struct{})
		go s.runGC(cfg.GCInterval, ratio)
	}
	return s, nil
}

// Backend implements Store.
func (s *BadgerStore) Backend() string { return BackendBadger }

// Put implements Store. The name is not stored; CIDs address bytes only.
func (s *BadgerStore) Put(ctx context.Context, _ string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id, err := ComputeCID(data)
	if err != nil {
		return "", err
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(blockKey(id), data)
	})
	if err != nil {
		return "", fmt.Errorf("badger put %s: %w", id, err)
	}
	return id, nil
}

// Get implements Store.
func (s *BadgerStore) Get(ctx context.Context, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := ParseCID(id); err != nil {
		return nil, err
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(blockKey(id))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("badger get %s: %w", id, err)
	}
	if err := VerifyCID(id, data); err != nil {
		return nil, err
	}
	return data, nil
}

// List returns every stored CID.
func (s *BadgerStore) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var ids []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = keyPrefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			ids = append(ids, string(it.Item().Key()[len(keyPrefix):]))
		}
		return nil
	})
	return ids, err
}

// Close stops GC and closes the database.
func (s *BadgerStore) Close() error {
	if s.gcStop != nil {
		close(s.gcStop)
		<-s.gcDone
		s.gcStop = nil
	}
	return s.db.Close()
}

func (s *BadgerStore) runGC(interval time.Duration, ratio float64) {
	defer close(s.gcDone)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.gcStop:
			return
		case <-ticker.C:
			// ErrNoRewrite only means there was nothing to collect.
			if err := s.db.RunValueLogGC(ratio); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				if s.logger != nil {
					s.logger.Warn("badger value log GC failed", "error", err)
				}
			}
		}
	}
}

func blockKey(id string) []byte {
	return append(append([]byte(nil), keyPrefix...), id...)
}
