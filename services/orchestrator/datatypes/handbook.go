// Copyright (C) 2026 Harbor Labs (dev@harborlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes provides request and response types for the
// orchestrator's HTTP surface.
package datatypes

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxQueryBytes is the maximum size of a chat query. Oversized queries
// are rejected before they reach the pipeline.
const MaxQueryBytes = 8 * 1024

// chatValidate is the validator instance for chat datatypes.
var chatValidate *validator.Validate

func init() {
	chatValidate = validator.New()
	_ = chatValidate.RegisterValidation("maxbytes", validateMaxBytes)
	_ = chatValidate.RegisterValidation("notblank", validateNotBlank)
}

// validateMaxBytes bounds a string field by byte length, not rune
// count, since oversized payloads are a memory concern.
func validateMaxBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxQueryBytes
}

// validateNotBlank rejects strings that are empty after trimming.
func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// ChatRequest is the body of POST /v1/chat.
//
// ThreadID is optional; when empty the orchestrator creates a new
// thread and returns its id so the client can continue the
// conversation.
type ChatRequest struct {
	Query    string `json:"query" binding:"required" validate:"notblank,maxbytes"`
	ThreadID string `json:"thread_id"`
}

// Validate checks the request beyond JSON binding: the query must be
// non-blank and within MaxQueryBytes.
func (r *ChatRequest) Validate() error {
	if err := chatValidate.Struct(r); err != nil {
		return fmt.Errorf("invalid chat request: %w", err)
	}
	return nil
}

// SourceInfo is one citation line from the answer's Sources section.
type SourceInfo struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

// ChatResponse is the body of a successful POST /v1/chat.
type ChatResponse struct {
	ThreadID        string       `json:"thread_id"`
	Answer          string       `json:"answer"`
	IsGrounded      bool         `json:"is_grounded"`
	Confidence      int          `json:"confidence"`
	Issues          []string     `json:"issues,omitempty"`
	Intent          string       `json:"intent"`
	RewrittenQuery  string       `json:"rewritten_query"`
	PrimaryHandbook string       `json:"primary_handbook"`
	ActionOutput    string       `json:"action_output,omitempty"`
	Sources         []SourceInfo `json:"sources"`
	StreamLog       []string     `json:"stream_log,omitempty"`
}

// IngestDocumentRequest is the body of POST /v1/documents.
//
// Source names the handbook file (its extension selects the text
// splitter), Collection names the handbook the chunks belong to, and
// Page records where in the source the content came from.
type IngestDocumentRequest struct {
	Content    string `json:"content" binding:"required"`
	Source     string `json:"source" binding:"required"`
	Collection string `json:"collection"`
	Page       int    `json:"page"`
}

// IngestDocumentResponse reports how many chunks were stored.
type IngestDocumentResponse struct {
	Source        string `json:"source"`
	ChunksCreated int    `json:"chunks_created"`
}

// StreamEvent is one server-sent event on the streaming chat endpoint.
type StreamEvent struct {
	Type     string       `json:"type"`
	Content  string       `json:"content,omitempty"`
	Sources  []SourceInfo `json:"sources,omitempty"`
	ThreadID string       `json:"thread_id,omitempty"`
}

// Stream event types.
const (
	StreamEventStatus  = "status"
	StreamEventToken   = "token"
	StreamEventSources = "sources"
	StreamEventError   = "error"
	StreamEventDone    = "done"
)
