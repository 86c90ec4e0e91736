// Copyright (C) 2026 Harbor Labs (dev@harborlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"

	"github.com/harborlabs/handbookrag/services/orchestrator/datatypes"
	"github.com/harborlabs/handbookrag/services/orchestrator/memory"
	"github.com/harborlabs/handbookrag/services/pipeline"
)

// HandleChatStream answers one handbook question over SSE.
//
// The pipeline runs to completion before any SSE bytes are written, so
// infrastructure failures still surface as plain JSON errors with a real
// status code. On success the stage log is replayed as status events, the
// answer is streamed as token events line by line, then sources and a
// done event follow.
func HandleChatStream(pipe *pipeline.Pipeline, store memory.HistoryStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := chatTracer.Start(c.Request.Context(), "HandleChatStream")
		defer span.End()

		var request datatypes.ChatRequest
		if err := c.BindJSON(&request); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		if err := request.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		threadID := request.ThreadID
		if threadID == "" {
			threadID = uuid.New().String()
		}

		history, err := store.Recent(historyPromptTurns)
		if err != nil {
			slog.Warn("Failed to load conversation history", "error", err)
			history = nil
		}

		st, err := pipe.Run(ctx, request.Query, history)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Pipeline run failed on stream", "error", err)
			status := http.StatusInternalServerError
			if pipeline.IsStageError(err) {
				status = http.StatusBadGateway
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		SetSSEHeaders(c.Writer)
		writer, err := NewSSEWriter(c.Writer)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Streaming unsupported"})
			return
		}

		for _, entry := range st.StreamLog {
			if err := writer.WriteStatus(entry); err != nil {
				slog.Warn("Client dropped mid-stream", "error", err)
				return
			}
		}
		for _, line := range strings.SplitAfter(st.Answer, "\n") {
			if line == "" {
				continue
			}
			if err := writer.WriteToken(line); err != nil {
				slog.Warn("Client dropped mid-stream", "error", err)
				return
			}
		}
		if err := writer.WriteSources(ParseSources(st.Answer)); err != nil {
			return
		}

		if err := store.Append(request.Query, st.Answer); err != nil {
			slog.Warn("Failed to append conversation history", "error", err)
		}
		_ = writer.WriteDone(threadID)
	}
}
