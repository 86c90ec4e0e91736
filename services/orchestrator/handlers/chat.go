// Copyright (C) 2026 Harbor Labs (dev@harborlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package handlers implements the orchestrator's HTTP endpoints.
package handlers

import (
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/harborlabs/handbookrag/services/orchestrator/datatypes"
	"github.com/harborlabs/handbookrag/services/orchestrator/memory"
	"github.com/harborlabs/handbookrag/services/pipeline"
)

var chatTracer = otel.Tracer("handbookrag.orchestrator.handlers")

// historyPromptTurns is how many recent turns are handed to the
// pipeline as conversational context.
const historyPromptTurns = 6

// sourceLinePattern matches one citation line: "[3] hr_handbook (page 2, chunk 1)".
var sourceLinePattern = regexp.MustCompile(`^\[(\d+)\]\s+(.*)$`)

// HandleChat answers one handbook question.
//
// Infrastructure failures inside a pipeline stage map to 502; a
// low-confidence or not-found answer is still a 200 with is_grounded
// false.
func HandleChat(pipe *pipeline.Pipeline, store memory.HistoryStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := chatTracer.Start(c.Request.Context(), "HandleChat")
		defer span.End()

		var request datatypes.ChatRequest
		if err := c.BindJSON(&request); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Failed to bind chat request JSON", "error", err)
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
			span.SetAttributes(attribute.String("thread_id_new", threadID))
			slog.Info("No thread_id provided, creating a new one", "thread_id", threadID)
		}
		span.SetAttributes(attribute.String("thread_id", threadID))

		history, err := store.Recent(historyPromptTurns)
		if err != nil {
			slog.Warn("Failed to load conversation history", "error", err)
			history = nil
		}

		st, err := pipe.Run(ctx, request.Query, history)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			if pipeline.IsStageError(err) {
				slog.Error("Pipeline stage failed", "error", err)
				c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
				return
			}
			slog.Error("Pipeline run failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		if err := store.Append(request.Query, st.Answer); err != nil {
			slog.Warn("Failed to append conversation history", "error", err)
		}

		c.JSON(http.StatusOK, buildChatResponse(threadID, st))
	}
}

// buildChatResponse maps a finished pipeline run onto the wire type.
func buildChatResponse(threadID string, st *pipeline.RequestState) datatypes.ChatResponse {
	return datatypes.ChatResponse{
		ThreadID:        threadID,
		Answer:          st.Answer,
		IsGrounded:      st.Verification.IsGrounded,
		Confidence:      st.Verification.Confidence,
		Issues:          st.Verification.Issues,
		Intent:          st.Understanding.Intent,
		RewrittenQuery:  st.RewrittenQuery,
		PrimaryHandbook: st.PrimaryHandbook,
		ActionOutput:    st.ActionOutput,
		Sources:         ParseSources(st.Answer),
		StreamLog:       st.StreamLog,
	}
}

// ParseSources extracts the citation entries from an answer's trailing
// "Sources:" section. Lines that do not look like citations are
// skipped; an answer without a Sources section yields no entries.
func ParseSources(answer string) []datatypes.SourceInfo {
	idx := strings.LastIndex(answer, pipeline.SourcesHeading)
	if idx < 0 {
		return []datatypes.SourceInfo{}
	}

	sources := []datatypes.SourceInfo{}
	for _, line := range strings.Split(answer[idx+len(pipeline.SourcesHeading):], "\n") {
		m := sourceLinePattern.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		id, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		sources = append(sources, datatypes.SourceInfo{ID: id, Text: m[2]})
	}
	return sources
}
