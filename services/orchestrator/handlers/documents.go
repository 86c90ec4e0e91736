// Copyright (C) 2026 Harbor Labs (dev@harborlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tmc/langchaingo/textsplitter"
	"go.opentelemetry.io/otel/codes"

	"github.com/harborlabs/handbookrag/services/corpus"
	"github.com/harborlabs/handbookrag/services/embedding"
	"github.com/harborlabs/handbookrag/services/orchestrator/datatypes"
	"github.com/harborlabs/handbookrag/services/pipeline"
)

const (
	chunkSize    = 1000
	chunkOverlap = 100
)

var (
	defaultSeparators = []string{"\n\n", "\n", " ", ""}

	markdownSeparators = []string{
		"\n# ", "\n## ", "\n### ", "\n#### ", "\n##### ", "\n###### ",
		"\n\n", "\n", " ", "",
	}
)

// HandleIngestDocument receives handbook text, splits it into chunks,
// embeds them, and stores them in the corpus.
func HandleIngestDocument(index *corpus.Index, embedder *embedding.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := chatTracer.Start(c.Request.Context(), "HandleIngestDocument")
		defer span.End()

		var request datatypes.IngestDocumentRequest
		if err := c.BindJSON(&request); err != nil {
			slog.Error("Failed to bind ingest request JSON", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		created, err := RunIngestion(ctx, index, embedder, request)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Ingestion failed", "source", request.Source, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, datatypes.IngestDocumentResponse{
			Source:        request.Source,
			ChunksCreated: created,
		})
	}
}

// RunIngestion splits, embeds, and stores one document. Returns the
// number of chunks stored.
func RunIngestion(ctx context.Context, index *corpus.Index, embedder *embedding.Client, req datatypes.IngestDocumentRequest) (int, error) {
	slog.Info("Ingestion request received", "source", req.Source, "collection", req.Collection)

	splitter := splitterForFile(req.Source)
	chunks, err := splitter.SplitText(req.Content)
	if err != nil {
		return 0, fmt.Errorf("splitting content: %w", err)
	}
	if len(chunks) == 0 {
		slog.Warn("No chunks produced after splitting", "source", req.Source)
		return 0, nil
	}
	slog.Info("Split document into chunks", "source", req.Source, "chunk_count", len(chunks))

	vectors, err := embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("embedding chunks: %w", err)
	}

	collection := req.Collection
	if collection == "" {
		collection = collectionFromSource(req.Source)
	}
	docs := make([]pipeline.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = pipeline.Document{
			Content:          chunk,
			SourceCollection: collection,
			Page:             req.Page,
			ChunkIndex:       i,
		}
	}

	stored, err := index.AddChunkBatch(ctx, docs, vectors)
	if err != nil {
		return 0, fmt.Errorf("storing chunks: %w", err)
	}
	if stored < len(docs) {
		slog.Warn("Some chunks were not stored", "source", req.Source,
			"stored", stored, "expected", len(docs))
	}
	slog.Info("Successfully processed document", "source", req.Source, "chunks_processed", stored)
	return stored, nil
}

// splitterForFile picks a splitter by file extension. Handbooks arrive
// as markdown or plain text.
func splitterForFile(filename string) textsplitter.TextSplitter {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".md", ".markdown":
		return textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
			textsplitter.WithSeparators(markdownSeparators),
		)
	default:
		return textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
			textsplitter.WithSeparators(defaultSeparators),
		)
	}
}

// collectionFromSource derives a handbook name from a filename, e.g.
// "docs/hr_handbook.md" becomes "hr_handbook".
func collectionFromSource(source string) string {
	base := filepath.Base(source)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if name == "" {
		return pipeline.UnknownCollection
	}
	return name
}
