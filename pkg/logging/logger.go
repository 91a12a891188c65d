// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package logging provides structured logging for the todo client components.
//
// The logger is a thin layer over log/slog with three destinations:
// Package logging is the structured logger shared by every web3todo
// component.
//
// A Logger writes each record to up to three places:
//
//   - Console: stderr by default, or any io.Writer (the terminal UI routes
//     console output away from the screen it owns)
//   - File: optional JSON log file per service and day
//   - Sink: optional in-process receiver, such as Recent, which keeps the
//     last entries for the gateway's /v1/logs endpoint
//
// # Basic Usage
//
//	logger := logging.Default()
//	logger.Info("wallet connected", "account", account.Hex())
//
// # File Logging
//
//	logger := logging.New(logging.Config{
//	    Level:   logging.LevelDebug,
//	    LogDir:  "~/.web3todo/logs",
//	    Service: "todo-ui",
//	})
//	defer logger.Close()
//
// # Security Considerations
//
// Nothing is redacted automatically. Never log storage tokens; log their
// presence instead:
//
//	logger.Info("storage configured", "token_present", token != "")
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level is a log severity. Debug < Info < Warn < Error.
type Level int

const (
	// LevelDebug traces individual RPC calls and receipt polling.
	LevelDebug Level = iota

	// LevelInfo records state changes (connected, task created, refetched).
	LevelInfo

	// LevelWarn records recoverable problems such as a storage upload
	// falling back to an inline value or a single task record failing.
	LevelWarn

	// LevelError records failed user actions.
	LevelError
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

// String returns "DEBUG", "INFO", "WARN", "ERROR", or "UNKNOWN".
func (l Level) String() string {
	if l < LevelDebug || l > LevelError {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// MarshalText encodes the level by name.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText decodes a level name with ParseLevel.
func (l *Level) UnmarshalText(text []byte) error {
	*l = ParseLevel(string(text))
	return nil
}

// ParseLevel converts a config string into a Level. Unknown values map to
// LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Config configures a Logger. The zero value logs Info+ as text to stderr.
type Config struct {
	// Level is the minimum level written. Default: LevelInfo.
	Level Level

	// LogDir enables JSON file logging to "{Service}_{YYYY-MM-DD}.log".
	// Supports a leading ~. Default: "" (disabled).
	LogDir string

	// Service is attached to every record as the "service" attribute.
	Service string

	// JSON switches console output from text to JSON. File output is
	// always JSON.
	JSON bool

	// Quiet disables console output. When no other destination is
	// configured, records go to stderr anyway.
	Quiet bool

	// Output replaces stderr as the console destination.
	Output io.Writer

	// Sink receives every entry at or above Level.
	Sink Sink
}

// Sink receives log entries in-process. Record is called synchronously
// from the logging goroutine and must not block.
type Sink interface {
	Record(entry Entry)
}

// Entry is the in-process form of a log record.
type Entry struct {
	Time    time.Time      `json:"time"`
	Level   Level          `json:"level"`
	Message string         `json:"message"`
	Service string         `json:"service,omitempty"`
	Attrs   map[string]any `json:"attrs,omitempty"`
}

// Logger provides structured logging with multi-destination output.
//
// # Thread Safety
//
// Logger is safe for concurrent use. Child loggers created with With share
// the file handle and sink of their parent; only the root should be
// closed.
type Logger struct {
	slog  *slog.Logger
	level Level
	svc   string
	sink  Sink
	attrs []any

	// shared with children
	out *output
}

type output struct {
	mu   sync.Mutex
	file *os.File
}

// New creates a Logger from config. Call Close when done if LogDir is set.
func New(config Config) *Logger {
	opts := &slog.HandlerOptions{Level: config.Level.slogLevel()}
	out := &output{}

	var handlers []slog.Handler
	if !config.Quiet {
		w := config.Output
		if w == nil {
			w = os.Stderr
		}
		if config.JSON {
			handlers = append(handlers, slog.NewJSONHandler(w, opts))
		} else {
			handlers = append(handlers, slog.NewTextHandler(w, opts))
		}
	}
	if config.LogDir != "" {
		if file, err := openLogFile(config); err == nil {
			out.file = file
			handlers = append(handlers, slog.NewJSONHandler(file, opts))
		}
	}

	var handler slog.Handler
	switch len(handlers) {
	case 0:
		handler = slog.NewTextHandler(os.Stderr, opts)
	case 1:
		handler = handlers[0]
	default:
		handler = fanout(handlers)
	}
	if config.Service != "" {
		handler = handler.WithAttrs([]slog.Attr{slog.String("service", config.Service)})
	}

	return &Logger{
		slog:  slog.New(handler),
		level: config.Level,
		svc:   config.Service,
		sink:  config.Sink,
		out:   out,
	}
}

// Default returns an Info-level stderr logger for the "web3todo" service.
func Default() *Logger {
	return New(Config{Level: LevelInfo, Service: "web3todo"})
}

// Discard returns a logger that drops everything. Intended for tests.
func Discard() *Logger {
	return New(Config{Output: io.Discard})
}

func (l *Logger) Debug(msg string, args ...any) { l.log(LevelDebug, msg, args) }
func (l *Logger) Info(msg string, args ...any)  { l.log(LevelInfo, msg, args) }
func (l *Logger) Warn(msg string, args ...any)  { l.log(LevelWarn, msg, args) }
func (l *Logger) Error(msg string, args ...any) { l.log(LevelError, msg, args) }

// With returns a child logger carrying additional attributes.
//
//	txLogger := logger.With("operation", "complete", "task_id", id)
func (l *Logger) With(args ...any) *Logger {
	child := *l
	child.slog = l.slog.With(args...)
	child.attrs = append(append([]any(nil), l.attrs...), args...)
	return &child
}

// Close syncs and closes the log file.
func (l *Logger) Close() error {
	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	if l.out.file == nil {
		return nil
	}
	err := errors.Join(l.out.file.Sync(), l.out.file.Close())
	l.out.file = nil
	if err != nil {
		return fmt.Errorf("close log file: %w", err)
	}
	return nil
}

func (l *Logger) log(level Level, msg string, args []any) {
	l.slog.Log(context.Background(), level.slogLevel(), msg, args...)

	if l.sink == nil || level < l.level {
		return
	}
	attrs := argsToMap(l.attrs)
	for k, v := range argsToMap(args) {
		attrs[k] = v
	}
	l.sink.Record(Entry{
		Time:    time.Now(),
		Level:   level,
		Message: msg,
		Service: l.svc,
		Attrs:   attrs,
	})
}

func openLogFile(config Config) (*os.File, error) {
	logDir := expandPath(config.LogDir)
	if err := os.MkdirAll(logDir, 0750); err != nil {
		return nil, err
	}
	service := config.Service
	if service == "" {
		service = "web3todo"
	}
	name := fmt.Sprintf("%s_%s.log", service, time.Now().Format("2006-01-02"))
	return os.OpenFile(filepath.Join(logDir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
}

// fanout sends each record to every handler that accepts its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make(fanout, len(f))
	for i, h := range f {
		next[i] = h.WithAttrs(attrs)
	}
	return next
}

func (f fanout) WithGroup(name string) slog.Handler {
	next := make(fanout, len(f))
	for i, h := range f {
		next[i] = h.WithGroup(name)
	}
	return next
}

// expandPath expands a leading ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// argsToMap converts slog-style key/value pairs to a map. A trailing key
// without a value is dropped. Errors and Stringers are flattened to text so
// the map always encodes as JSON.
func argsToMap(args []any) map[string]any {
	result := make(map[string]any, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}
		switch v := args[i+1].(type) {
		case error:
			result[key] = v.Error()
		case fmt.Stringer:
			result[key] = v.String()
		default:
			result[key] = v
		}
	}
	return result
}
