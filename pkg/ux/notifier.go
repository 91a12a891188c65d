// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"sync"

	"github.com/koustavx08/web3-todo-dapp/services/notify"
)

// Notifier renders notifications on the terminal. A loading notification
// starts a spinner for its id; a further loading notification for the same
// id updates that spinner's message, and any other level stops it.
type Notifier struct {
	mu       sync.Mutex
	spinners map[string]*Spinner
}

var _ notify.Notifier = (*Notifier)(nil)

// NewNotifier creates a terminal Notifier.
func NewNotifier() *Notifier {
	return &Notifier{spinners: make(map[string]*Spinner)}
}

// Notify implements notify.Notifier.
func (n *Notifier) Notify(note notify.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()

	spin, ok := n.spinners[note.ID]
	if ok && note.Level == notify.LevelLoading && spin.Running() {
		spin.UpdateMessage(note.Message)
		return
	}
	if ok {
		spin.Stop()
		delete(n.spinners, note.ID)
	}

	switch note.Level {
	case notify.LevelLoading:
		spin := NewSpinner(note.Message)
		n.spinners[note.ID] = spin
		spin.Start()
	case notify.LevelSuccess:
		Success(note.Message)
	case notify.LevelError:
		Error(note.Message)
	default:
		Info(note.Message)
	}
}

// Close stops every running spinner.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for id, spin := range n.spinners {
		spin.Stop()
		delete(n.spinners, id)
	}
}
