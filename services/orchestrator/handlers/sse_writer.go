// Copyright (C) 2026 Harbor Labs (dev@harborlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/harborlabs/handbookrag/services/orchestrator/datatypes"
)

// SSEWriter writes server-sent events for the streaming chat endpoint.
//
// # Thread Safety
//
// Safe for concurrent use; a mutex serializes event writes so
// interleaved events never corrupt the stream.
type SSEWriter struct {
	mu      sync.Mutex
	writer  http.ResponseWriter
	flusher http.Flusher
}

// NewSSEWriter wraps a ResponseWriter for SSE output. Fails if the
// writer does not support flushing, since SSE requires immediate
// delivery of each event.
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("ResponseWriter does not support http.Flusher")
	}
	return &SSEWriter{writer: w, flusher: flusher}, nil
}

// WriteEvent serializes one event in SSE format and flushes it.
func (w *SSEWriter) WriteEvent(event datatypes.StreamEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(w.writer, "event: %s\ndata: %s\n\n", event.Type, data); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	w.flusher.Flush()
	return nil
}

// WriteStatus reports pipeline progress.
func (w *SSEWriter) WriteStatus(message string) error {
	return w.WriteEvent(datatypes.StreamEvent{Type: datatypes.StreamEventStatus, Content: message})
}

// WriteToken streams a piece of the answer text.
func (w *SSEWriter) WriteToken(content string) error {
	return w.WriteEvent(datatypes.StreamEvent{Type: datatypes.StreamEventToken, Content: content})
}

// WriteSources sends the parsed citation list.
func (w *SSEWriter) WriteSources(sources []datatypes.SourceInfo) error {
	return w.WriteEvent(datatypes.StreamEvent{Type: datatypes.StreamEventSources, Sources: sources})
}

// WriteError reports a terminal failure on the stream.
func (w *SSEWriter) WriteError(errMsg string) error {
	return w.WriteEvent(datatypes.StreamEvent{Type: datatypes.StreamEventError, Content: errMsg})
}

// WriteDone closes the logical stream, echoing the thread id.
func (w *SSEWriter) WriteDone(threadID string) error {
	return w.WriteEvent(datatypes.StreamEvent{Type: datatypes.StreamEventDone, ThreadID: threadID})
}

// SetSSEHeaders sets the response headers required for SSE. Must be
// called before any event is written.
func SetSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}
