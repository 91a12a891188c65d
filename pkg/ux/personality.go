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
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
)

// PersonalityLevel defines the verbosity and richness of CLI output.
type PersonalityLevel string

const (
	// PersonalityFull enables colors, icons, boxes and spinners.
	PersonalityFull PersonalityLevel = "full"

	// PersonalityMinimal uses icons and plain text.
	PersonalityMinimal PersonalityLevel = "minimal"

	// PersonalityMachine outputs plain prefixed lines suitable for scripts.
	PersonalityMachine PersonalityLevel = "machine"
)

// EnvPersonality selects the personality level.
const EnvPersonality = "WEB3TODO_PERSONALITY"

var (
	currentLevel  = PersonalityFull
	personalityMu sync.RWMutex

	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// Level returns the current personality level.
func Level() PersonalityLevel {
	personalityMu.RLock()
	defer personalityMu.RUnlock()
	return currentLevel
}

// SetLevel updates the personality level.
func SetLevel(level PersonalityLevel) {
	personalityMu.Lock()
	defer personalityMu.Unlock()
	currentLevel = level
}

// SetOutput redirects standard and error output. Nil leaves a stream
// unchanged.
func SetOutput(out, errOut io.Writer) {
	personalityMu.Lock()
	defer personalityMu.Unlock()
	if out != nil {
		stdout = out
	}
	if errOut != nil {
		stderr = errOut
	}
}

func writers() (io.Writer, io.Writer) {
	personalityMu.RLock()
	defer personalityMu.RUnlock()
	return stdout, stderr
}

// ParseLevel converts a string to a PersonalityLevel. Unknown values
// select PersonalityFull.
func ParseLevel(s string) PersonalityLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "minimal", "min", "m":
		return PersonalityMinimal
	case "machine", "quiet", "q", "json":
		return PersonalityMachine
	default:
		return PersonalityFull
	}
}

// InitPersonality picks the level from WEB3TODO_PERSONALITY, falling back
// to machine output when stdout is not a terminal.
func InitPersonality() {
	if env := os.Getenv(EnvPersonality); env != "" {
		SetLevel(ParseLevel(env))
		return
	}
	if !IsTerminal(os.Stdout) {
		SetLevel(PersonalityMachine)
		return
	}
	SetLevel(PersonalityFull)
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// IsInteractive reports whether interactive prompts may be shown.
func IsInteractive() bool {
	return Level() != PersonalityMachine && IsTerminal(os.Stdin) && IsTerminal(os.Stdout)
}
