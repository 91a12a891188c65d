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
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/koustavx08/web3-todo-dapp/pkg/logging"
)

// DefaultDebounce is how long the watcher waits for a burst of writes to
// settle before reloading.
const DefaultDebounce = 100 * time.Millisecond

// ChangeHandler receives each successfully reloaded configuration.
type ChangeHandler func(*Config)

// Watcher reloads the configuration file when it changes on disk.
//
// # Description
//
// The parent directory is watched rather than the file so that editors
// which save by rename are picked up. A reload that fails to parse or
// validate is logged and the previous configuration stays in effect.
//
// # Thread Safety
//
// Run must be called once. The handler is invoked from Run's goroutine.
type Watcher struct {
	path     string
	handler  ChangeHandler
	logger   *logging.Logger
	debounce time.Duration
	lookup   func(string) (string, bool)
}

// NewWatcher creates a Watcher for path. logger may be nil.
func NewWatcher(path string, handler ChangeHandler, logger *logging.Logger) *Watcher {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Watcher{
		path:     filepath.Clean(path),
		handler:  handler,
		logger:   logger.With("component", "config"),
		debounce: DefaultDebounce,
		lookup:   os.LookupEnv,
	}
}

// SetDebounce overrides DefaultDebounce.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Run watches until ctx ends.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}
	w.logger.Debug("watching config", "path", w.path)

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				timer.Reset(w.debounce)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("config watcher error", "error", err)
		case <-timer.C:
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Read(w.path, w.lookup)
	if err != nil {
		w.logger.Warn("config reload failed, keeping previous", "path", w.path, "error", err)
		return
	}
	w.logger.Info("config reloaded", "path", w.path, "contract", cfg.Contract.Address)
	if w.handler != nil {
		w.handler(cfg)
	}
}
