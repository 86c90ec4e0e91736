// Copyright (C) 2026 Harbor Labs (dev@harborlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package routes wires the orchestrator's HTTP endpoints.
package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/harborlabs/handbookrag/services/corpus"
	"github.com/harborlabs/handbookrag/services/embedding"
	"github.com/harborlabs/handbookrag/services/orchestrator/handlers"
	"github.com/harborlabs/handbookrag/services/orchestrator/memory"
	"github.com/harborlabs/handbookrag/services/pipeline"
)

func SetupRoutes(router *gin.Engine, pipe *pipeline.Pipeline, index *corpus.Index,
	embedder *embedding.Client, store memory.HistoryStore) {

	router.GET("/health", handlers.HealthCheck)

	// API version 1 group
	v1 := router.Group("/v1")
	{
		v1.POST("/chat", handlers.HandleChat(pipe, store))
		v1.POST("/chat/stream", handlers.HandleChatStream(pipe, store))
		v1.POST("/documents", handlers.HandleIngestDocument(index, embedder))
	}
}
