// Copyright (C) 2026 Harbor Labs (dev@harborlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package logging provides structured logging for handbookrag binaries.
//
// It is a thin layer over slog that gives the CLI and the orchestrator
// one place to agree on level parsing, output format, and optional file
// output. The CLI uses Default(), which writes human-readable text to
// stderr; the orchestrator builds a JSON logger with New and installs it
// process-wide via SetDefault so that package-level slog calls inherit
// the same handler.
//
//	logger, err := logging.New(logging.Config{
//	    Level:   logging.ParseLevel(os.Getenv("LOG_LEVEL")),
//	    Service: "handbookrag-orchestrator",
//	    JSON:    true,
//	    LogDir:  os.Getenv("LOG_DIR"), // optional, "" disables file output
//	})
//	defer logger.Close()
//	logger.SetDefault()
//
// When LogDir is set the logger also appends JSON lines to
// {service}_{YYYY-MM-DD}.log inside that directory, creating it if
// needed.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Level is the minimum severity a logger emits.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the lowercase level name.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
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

// ParseLevel maps a level name to a Level. Unknown or empty input
// falls back to Info so a missing LOG_LEVEL never breaks startup.
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

// Config controls how a Logger is built.
type Config struct {
	// Level is the minimum severity emitted.
	Level Level

	// Service tags every record and names the log file.
	Service string

	// JSON selects JSON output on stderr instead of text.
	JSON bool

	// LogDir enables file output when non-empty. The file is always
	// JSON regardless of the stderr format.
	LogDir string
}

// Logger wraps slog with a configured handler and an optional log file.
type Logger struct {
	slog *slog.Logger
	file *os.File
}

// New builds a Logger from cfg. The only error case is the log file:
// when cfg.LogDir cannot be created or opened, New returns the error
// and the caller decides whether to continue without file output.
func New(cfg Config) (*Logger, error) {
	if cfg.Service == "" {
		cfg.Service = "handbookrag"
	}

	var file *os.File
	out := io.Writer(os.Stderr)
	if cfg.LogDir != "" {
		if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		name := fmt.Sprintf("%s_%s.log", cfg.Service, time.Now().Format("2006-01-02"))
		f, err := os.OpenFile(filepath.Join(cfg.LogDir, name),
			os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		file = f
		out = io.MultiWriter(os.Stderr, f)
	}

	opts := &slog.HandlerOptions{Level: cfg.Level.slogLevel()}
	var handler slog.Handler
	if cfg.JSON || file != nil {
		// Mixing a text stderr stream into a shared JSON file would
		// corrupt the file, so file output forces JSON everywhere.
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	return &Logger{
		slog: slog.New(handler).With("service", cfg.Service),
		file: file,
	}, nil
}

// Default returns a text logger on stderr at Info level, tagged with
// the handbookrag service name. It never fails.
func Default() *Logger {
	l, _ := New(Config{Level: LevelInfo, Service: "handbookrag"})
	return l
}

func (l *Logger) Debug(msg string, args ...any) { l.slog.Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.slog.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.slog.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.slog.Error(msg, args...) }

// With returns a logger carrying additional attributes. The derived
// logger shares the parent's log file.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{slog: l.slog.With(args...), file: l.file}
}

// Slog exposes the underlying slog.Logger for APIs that want one.
func (l *Logger) Slog() *slog.Logger { return l.slog }

// SetDefault installs this logger as the process-wide slog default.
func (l *Logger) SetDefault() { slog.SetDefault(l.slog) }

// Close syncs and closes the log file, if any. Safe on a logger
// without file output and safe to call more than once.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	f := l.file
	l.file = nil
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
