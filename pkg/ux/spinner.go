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
	"fmt"
	"sync"
	"time"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const spinnerInterval = 80 * time.Millisecond

// Spinner is an animated loading indicator shown while a transaction
// confirms. In machine mode it prints one PROGRESS line per message
// instead of animating.
type Spinner struct {
	mu      sync.Mutex
	message string
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// NewSpinner creates a spinner with the given message.
func NewSpinner(message string) *Spinner {
	return &Spinner{message: message}
}

// Start begins the animation. Starting a running spinner does nothing.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	out, _ := writers()
	if Level() == PersonalityMachine {
		fmt.Fprintf(out, "PROGRESS: %s\n", s.message)
		close(s.done)
		return
	}
	go s.animate(s.stop, s.done)
}

func (s *Spinner) animate(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	out, _ := writers()
	ticker := time.NewTicker(spinnerInterval)
	defer ticker.Stop()

	for frame := 0; ; frame = (frame + 1) % len(spinnerFrames) {
		select {
		case <-stop:
			fmt.Fprint(out, "\r\033[K")
			return
		case <-ticker.C:
		}
		s.mu.Lock()
		msg := s.message
		s.mu.Unlock()
		fmt.Fprintf(out, "\r%s %s\033[K", Styles.Highlight.Render(spinnerFrames[frame]), msg)
	}
}

// Stop halts the animation and clears the line.
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	stop, done := s.stop, s.done
	s.mu.Unlock()

	close(stop)
	<-done
}

// Running reports whether the spinner has been started and not stopped.
func (s *Spinner) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// UpdateMessage replaces the message of a running spinner.
func (s *Spinner) UpdateMessage(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.message == message {
		return
	}
	s.message = message
	if s.running && Level() == PersonalityMachine {
		out, _ := writers()
		fmt.Fprintf(out, "PROGRESS: %s\n", message)
	}
}

// StopWithSuccess stops and prints a success message.
func (s *Spinner) StopWithSuccess(message string) {
	s.Stop()
	Success(message)
}

// StopWithError stops and prints an error message.
func (s *Spinner) StopWithError(message string) {
	s.Stop()
	Error(message)
}

// WithSpinner runs fn under a spinner and reports its outcome.
func WithSpinner(message string, fn func() error) error {
	spin := NewSpinner(message)
	spin.Start()

	if err := fn(); err != nil {
		spin.StopWithError(fmt.Sprintf("%s: %v", message, err))
		return err
	}
	spin.StopWithSuccess(message)
	return nil
}
