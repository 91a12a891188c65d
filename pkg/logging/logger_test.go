// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package logging

import (
	"bytes"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
)

// =============================================================================
// Level Tests
// =============================================================================

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(42), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.level.String(); got != tt.want {
				t.Errorf("Level.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{" DEBUG ", LevelDebug},
		{"info", LevelInfo},
		{"warning", LevelWarn},
		{"warn", LevelWarn},
		{"error", LevelError},
		{"", LevelInfo},
		{"verbose", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

// =============================================================================
// Constructor Tests
// =============================================================================

func TestNew_OutputWriter(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf, Service: "todo-test"})
	defer logger.Close()

	logger.Info("task created", "task_id", 7)

	out := buf.String()
	if !strings.Contains(out, "task created") {
		t.Errorf("output missing message: %q", out)
	}
	if !strings.Contains(out, "service=todo-test") {
		t.Errorf("output missing service attribute: %q", out)
	}
	if !strings.Contains(out, "task_id=7") {
		t.Errorf("output missing task_id attribute: %q", out)
	}
}

func TestNew_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf, JSON: true})
	defer logger.Close()

	logger.Warn("upload failed")

	if !strings.Contains(buf.String(), `"msg":"upload failed"`) {
		t.Errorf("expected JSON record, got %q", buf.String())
	}
}

func TestNew_LevelFilteringOnConsole(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf, Level: LevelWarn})
	defer logger.Close()

	logger.Debug("hidden-debug")
	logger.Info("hidden-info")
	logger.Error("visible-error")

	out := buf.String()
	if strings.Contains(out, "hidden-") {
		t.Errorf("records below Warn were written: %q", out)
	}
	if !strings.Contains(out, "visible-error") {
		t.Errorf("error record missing: %q", out)
	}
}

func TestNew_WithLogDir(t *testing.T) {
	tmpDir := t.TempDir()
	logger := New(Config{LogDir: tmpDir, Service: "todo-ui", Quiet: true})

	logger.Info("hello file")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	files, err := os.ReadDir(tmpDir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("expected 1 log file, got %d", len(files))
	}
	if !strings.HasPrefix(files[0].Name(), "todo-ui_") {
		t.Errorf("log file name = %s, want prefix todo-ui_", files[0].Name())
	}
}

func TestNew_WithLogDir_DefaultServiceName(t *testing.T) {
	tmpDir := t.TempDir()
	logger := New(Config{LogDir: tmpDir, Quiet: true})
	defer logger.Close()

	files, err := os.ReadDir(tmpDir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(files) == 0 || !strings.HasPrefix(files[0].Name(), "web3todo_") {
		t.Errorf("expected a web3todo_ log file, got %v", files)
	}
}

func TestDefault(t *testing.T) {
	logger := Default()
	defer logger.Close()

	if logger.level != LevelInfo {
		t.Errorf("Default level = %v, want LevelInfo", logger.level)
	}
	if logger.svc != "web3todo" {
		t.Errorf("Default service = %v, want web3todo", logger.svc)
	}
}

// =============================================================================
// Sink Tests
// =============================================================================

func TestLogger_RecordsToSink(t *testing.T) {
	recent := NewRecent(10)
	logger := New(Config{Output: io.Discard, Sink: recent, Service: "svc"})
	defer logger.Close()

	logger.Info("tx confirmed", "hash", "0xabc", "error", errors.New("none"))

	entries := recent.Entries(LevelDebug, 0)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Message != "tx confirmed" {
		t.Errorf("Message = %q", entries[0].Message)
	}
	if entries[0].Service != "svc" {
		t.Errorf("Service = %q", entries[0].Service)
	}
	if entries[0].Attrs["hash"] != "0xabc" {
		t.Errorf("Attrs[hash] = %v", entries[0].Attrs["hash"])
	}
	if entries[0].Attrs["error"] != "none" {
		t.Errorf("errors should be flattened to text, got %v", entries[0].Attrs["error"])
	}
}

func TestLogger_SinkRespectsLevel(t *testing.T) {
	recent := NewRecent(10)
	logger := New(Config{Output: io.Discard, Sink: recent, Level: LevelWarn})
	defer logger.Close()

	logger.Debug("debug")
	logger.Info("info")
	logger.Warn("warn")
	logger.Error("error")

	if got := len(recent.Entries(LevelDebug, 0)); got != 2 {
		t.Errorf("expected 2 recorded entries, got %d", got)
	}
}

func TestLogger_ChildAttrsReachSink(t *testing.T) {
	recent := NewRecent(10)
	logger := New(Config{Output: io.Discard, Sink: recent})

	logger.With("component", "tasks").Warn("refetch failed", "task_id", 3)

	entries := recent.Entries(LevelDebug, 0)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Attrs["component"] != "tasks" || entries[0].Attrs["task_id"] != 3 {
		t.Errorf("Attrs = %v", entries[0].Attrs)
	}
}

func TestRecent_RingKeepsNewest(t *testing.T) {
	recent := NewRecent(3)
	for i, level := range []Level{LevelInfo, LevelWarn, LevelInfo, LevelError, LevelWarn} {
		recent.Record(Entry{Level: level, Message: string(rune('a' + i))})
	}

	all := recent.Entries(LevelDebug, 0)
	if len(all) != 3 || all[0].Message != "c" || all[2].Message != "e" {
		t.Fatalf("Entries = %+v, want c d e", all)
	}
	warn := recent.Entries(LevelWarn, 0)
	if len(warn) != 2 || warn[0].Message != "d" {
		t.Errorf("warn entries = %+v, want d e", warn)
	}
	last := recent.Entries(LevelDebug, 1)
	if len(last) != 1 || last[0].Message != "e" {
		t.Errorf("limit 1 = %+v, want e", last)
	}
}

func TestRecent_DefaultSize(t *testing.T) {
	if got := len(NewRecent(0).entries); got != DefaultRecentSize {
		t.Errorf("size = %d, want %d", got, DefaultRecentSize)
	}
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf})
	defer logger.Close()

	child := logger.With("operation", "delegate")
	child.Info("submitted")

	if !strings.Contains(buf.String(), "operation=delegate") {
		t.Errorf("child attributes missing: %q", buf.String())
	}
}

func TestLogger_CloseIsIdempotent(t *testing.T) {
	logger := New(Config{LogDir: t.TempDir(), Quiet: true})
	if err := logger.Close(); err != nil {
		t.Fatalf("first Close() = %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("second Close() = %v", err)
	}
}

func TestLevel_TextRoundTrip(t *testing.T) {
	b, err := LevelWarn.MarshalText()
	if err != nil || string(b) != "WARN" {
		t.Errorf("MarshalText = %q, %v", b, err)
	}
	var l Level
	if err := l.UnmarshalText([]byte("ERROR")); err != nil || l != LevelError {
		t.Errorf("UnmarshalText = %v, %v", l, err)
	}
}

// =============================================================================
// Helper Tests
// =============================================================================

func TestArgsToMap(t *testing.T) {
	m := argsToMap([]any{"a", 1, "b", "two", 3, "skipped", "dangling"})
	if m["a"] != 1 || m["b"] != "two" {
		t.Errorf("unexpected map: %v", m)
	}
	if _, ok := m["dangling"]; ok {
		t.Error("dangling key should be dropped")
	}
	if len(m) != 2 {
		t.Errorf("len = %d, want 2", len(m))
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := expandPath("~/.web3todo/logs"); !strings.HasPrefix(got, home) {
		t.Errorf("expandPath = %s, want prefix %s", got, home)
	}
	if got := expandPath("/var/log"); got != "/var/log" {
		t.Errorf("expandPath changed absolute path: %s", got)
	}
}
