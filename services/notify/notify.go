// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package notify carries transient user-facing feedback.
//
// # Description
//
// Every user action reports its progress as notifications: a loading
// notification when a transaction is submitted, then a success or error
// notification with the same ID once it settles. Sinks (the CLI spinner,
// the terminal UI status line, the gateway WebSocket stream) subscribe to a
// Bus and decide how to render them. A notification with an ID replaces the
// previous notification with the same ID.
//
// # Thread Safety
//
// Bus is safe for concurrent use. Publish never blocks on a slow
// subscriber; notifications to a full subscriber channel are dropped.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Level is the kind of a notification.
type Level string

const (
	LevelLoading Level = "loading"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// Well-known notification IDs, one per user action.
const (
	IDCreateTask   = "create-task"
	IDCompleteTask = "complete-task"
	IDDelegateTask = "delegate-task"
	IDDeleteTask   = "delete-task"
	IDMintNFT      = "mint-nft"
	IDWallet       = "wallet"
	IDNetwork      = "network"
	IDFetchTasks   = "fetch-tasks"
	IDDeploy       = "deploy"
	IDScreen       = "content-screen"
)

// Notification is one piece of transient user feedback.
type Notification struct {
	ID      string    `json:"id"`
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// Notifier accepts notifications.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

// Notify calls f(n).
func (f NotifierFunc) Notify(n Notification) { f(n) }

// Discard drops every notification.
var Discard Notifier = NotifierFunc(func(Notification) {})

// Loading publishes a loading notification under id.
func Loading(n Notifier, id, message string) {
	send(n, id, LevelLoading, message)
}

// Success publishes a success notification under id.
func Success(n Notifier, id, message string) {
	send(n, id, LevelSuccess, message)
}

// Error publishes an error notification under id.
func Error(n Notifier, id, message string) {
	send(n, id, LevelError, message)
}

// Info publishes an informational notification under id.
func Info(n Notifier, id, message string) {
	send(n, id, LevelInfo, message)
}

func send(n Notifier, id string, level Level, message string) {
	if n == nil {
		return
	}
	if id == "" {
		id = uuid.NewString()
	}
	n.Notify(Notification{
		ID:      id,
		Level:   level,
		Message: message,
		Time:    time.Now(),
	})
}

// =============================================================================
// Bus
// =============================================================================

// subscriberBuffer is the channel capacity handed to each subscriber.
const subscriberBuffer = 64

// Bus fans notifications out to subscribers and remembers the latest
// notification per ID.
type Bus struct {
	mu     sync.RWMutex
	subs   map[chan Notification]struct{}
	latest map[string]Notification
	order  []string
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{
		subs:   make(map[chan Notification]struct{}),
		latest: make(map[string]Notification),
	}
}

// Notify records n and delivers it to every subscriber.
func (b *Bus) Notify(n Notification) {
	b.mu.Lock()
	if _, seen := b.latest[n.ID]; !seen {
		b.order = append(b.order, n.ID)
	}
	b.latest[n.ID] = n
	for ch := range b.subs {
		select {
		case ch <- n:
		default:
			// subscriber is behind; drop rather than block the action
		}
	}
	b.mu.Unlock()
}

// Subscribe returns a buffered channel receiving every new notification.
func (b *Bus) Subscribe() chan Notification {
	ch := make(chan Notification, subscriberBuffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Bus) Unsubscribe(ch chan Notification) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}

// Latest returns the current notification for id.
func (b *Bus) Latest(id string) (Notification, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n, ok := b.latest[id]
	return n, ok
}

// Active returns the latest notification of every ID, oldest ID first.
func (b *Bus) Active() []Notification {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Notification, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.latest[id])
	}
	return out
}

var _ Notifier = (*Bus)(nil)

// =============================================================================
// Fan-out
// =============================================================================

// Multi delivers each notification to every non-nil notifier in order.
func Multi(notifiers ...Notifier) Notifier {
	return NotifierFunc(func(n Notification) {
		for _, target := range notifiers {
			if target != nil {
				target.Notify(n)
			}
		}
	})
}
