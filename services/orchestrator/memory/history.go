// Copyright (C) 2026 Harbor Labs (dev@harborlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package memory persists conversation history for the orchestrator.
package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/harborlabs/handbookrag/services/pipeline"
)

// DefaultHistoryLimit bounds the stored history to the most recent turns.
const DefaultHistoryLimit = 30

// HistoryStore appends and reads conversation turns.
//
// Known limitation: history is a single global sequence, not scoped by
// thread_id. The thread identifier at the API boundary exists for
// clients, but all threads currently share one history file.
type HistoryStore interface {
	// Append atomically adds one turn. Concurrent appends must not
	// lose turns.
	Append(user, assistant string) error

	// Recent returns up to n most recent turns, oldest first.
	Recent(n int) ([]pipeline.Turn, error)
}

// FileHistoryStore is a JSON-file backed HistoryStore.
//
// # Thread Safety
//
// Safe for concurrent use within one process: a mutex serializes the
// read-modify-write of the history file, and writes go through a temp
// file plus rename so readers never observe a partial file.
type FileHistoryStore struct {
	mu    sync.Mutex
	path  string
	limit int
}

// NewFileHistoryStore creates a store at path, creating parent
// directories as needed. A limit of 0 uses DefaultHistoryLimit.
func NewFileHistoryStore(path string, limit int) (*FileHistoryStore, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}
	return &FileHistoryStore{path: path, limit: limit}, nil
}

// Append adds one turn and trims the file to the most recent turns.
func (s *FileHistoryStore) Append(user, assistant string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns, err := s.load()
	if err != nil {
		return err
	}
	turns = append(turns, pipeline.Turn{User: user, Assistant: assistant})
	if len(turns) > s.limit {
		turns = turns[len(turns)-s.limit:]
	}
	return s.save(turns)
}

// Recent returns up to n most recent turns, oldest first.
func (s *FileHistoryStore) Recent(n int) ([]pipeline.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns, err := s.load()
	if err != nil {
		return nil, err
	}
	if n > 0 && len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	return turns, nil
}

// load reads the history file. A missing file is an empty history.
func (s *FileHistoryStore) load() ([]pipeline.Turn, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading history file: %w", err)
	}
	var turns []pipeline.Turn
	if err := json.Unmarshal(data, &turns); err != nil {
		return nil, fmt.Errorf("parsing history file: %w", err)
	}
	return turns, nil
}

// save writes the history atomically via temp file and rename.
func (s *FileHistoryStore) save(turns []pipeline.Turn) error {
	data, err := json.MarshalIndent(turns, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding history: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".history-*.json")
	if err != nil {
		return fmt.Errorf("creating temp history file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp history file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp history file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing history file: %w", err)
	}
	return nil
}

// Compile-time interface implementation check.
var _ HistoryStore = (*FileHistoryStore)(nil)
