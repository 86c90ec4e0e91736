// Copyright (C) 2026 Harbor Labs (dev@harborlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package corpus stores and searches handbook chunks in Weaviate.
//
// The Index type implements pipeline.CorpusIndex over a single Weaviate
// class holding pre-embedded chunks (Vectorizer "none"; the embedding
// sidecar computes vectors, Weaviate only stores them).
package corpus

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/harborlabs/handbookrag/services/pipeline"
)

var tracer = otel.Tracer("handbookrag.corpus")

// HandbookChunkClassName is the Weaviate class holding handbook chunks.
const HandbookChunkClassName = "HandbookChunk"

// snapshotPageSize is the page size used when enumerating the full corpus.
const snapshotPageSize = 200

// Index is a Weaviate-backed handbook corpus.
//
// # Thread Safety
//
// Safe for concurrent use; it holds no state beyond the client.
type Index struct {
	client *weaviate.Client
}

// Compile-time interface implementation check.
var _ pipeline.CorpusIndex = (*Index)(nil)

// NewIndex creates an Index over an existing Weaviate client.
func NewIndex(client *weaviate.Client) *Index {
	return &Index{client: client}
}

// Search returns the k nearest chunks to the query vector, best first.
func (ix *Index) Search(ctx context.Context, vector []float32, k int) ([]pipeline.Document, error) {
	ctx, span := tracer.Start(ctx, "Index.Search")
	defer span.End()
	span.SetAttributes(attribute.Int("k", k))

	nearVector := ix.client.GraphQL().NearVectorArgBuilder().
		WithVector(vector)

	result, err := ix.client.GraphQL().Get().
		WithClassName(HandbookChunkClassName).
		WithFields(chunkFields()...).
		WithNearVector(nearVector).
		WithLimit(k).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("near-vector search: %w", err)
	}
	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("near-vector search: %s", result.Errors[0].Message)
	}

	docs := parseDocuments(result)
	span.SetAttributes(attribute.Int("result_count", len(docs)))
	return docs, nil
}

// AllDocuments enumerates the full corpus snapshot, paging through the
// class in insertion-stable id order.
func (ix *Index) AllDocuments(ctx context.Context) ([]pipeline.Document, error) {
	ctx, span := tracer.Start(ctx, "Index.AllDocuments")
	defer span.End()

	var docs []pipeline.Document
	for offset := 0; ; offset += snapshotPageSize {
		result, err := ix.client.GraphQL().Get().
			WithClassName(HandbookChunkClassName).
			WithFields(chunkFields()...).
			WithSort(graphql.Sort{Path: []string{"_id"}, Order: graphql.Asc}).
			WithLimit(snapshotPageSize).
			WithOffset(offset).
			Do(ctx)
		if err != nil {
			return nil, fmt.Errorf("corpus snapshot at offset %d: %w", offset, err)
		}
		if len(result.Errors) > 0 {
			return nil, fmt.Errorf("corpus snapshot: %s", result.Errors[0].Message)
		}

		page := parseDocuments(result)
		docs = append(docs, page...)
		if len(page) < snapshotPageSize {
			break
		}
	}

	span.SetAttributes(attribute.Int("document_count", len(docs)))
	return docs, nil
}

// AddChunk stores one pre-embedded chunk.
func (ix *Index) AddChunk(ctx context.Context, doc pipeline.Document, vector []float32) error {
	ctx, span := tracer.Start(ctx, "Index.AddChunk")
	defer span.End()

	_, err := ix.client.Data().Creator().
		WithClassName(HandbookChunkClassName).
		WithProperties(map[string]interface{}{
			"content":          doc.Content,
			"sourceCollection": doc.Collection(),
			"page":             doc.Page,
			"chunkIndex":       doc.ChunkIndex,
		}).
		WithVector(vector).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("storing chunk %s: %w", doc.Key(), err)
	}
	return nil
}

// AddChunkBatch stores a batch of pre-embedded chunks in one request.
// Chunk ids are derived from the content hash, so re-ingesting the same
// document overwrites rather than duplicates. Returns the number of
// chunks Weaviate accepted.
func (ix *Index) AddChunkBatch(ctx context.Context, docs []pipeline.Document, vectors [][]float32) (int, error) {
	ctx, span := tracer.Start(ctx, "Index.AddChunkBatch")
	defer span.End()
	span.SetAttributes(attribute.Int("chunk_count", len(docs)))

	if len(docs) != len(vectors) {
		return 0, fmt.Errorf("chunk/vector count mismatch: %d vs %d", len(docs), len(vectors))
	}
	if len(docs) == 0 {
		return 0, nil
	}

	objects := make([]*models.Object, len(docs))
	for i, doc := range docs {
		hash := sha256.Sum256([]byte(doc.Key() + "|" + doc.Content))
		chunkUUID, _ := uuid.FromBytes(hash[:16])
		objects[i] = &models.Object{
			Class:  HandbookChunkClassName,
			ID:     strfmt.UUID(chunkUUID.String()),
			Vector: vectors[i],
			Properties: map[string]interface{}{
				"content":          doc.Content,
				"sourceCollection": doc.Collection(),
				"page":             doc.Page,
				"chunkIndex":       doc.ChunkIndex,
			},
		}
	}

	resp, err := ix.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("batch import: %w", err)
	}

	stored := 0
	for _, item := range resp {
		if item.Result != nil && item.Result.Status != nil && *item.Result.Status == "SUCCESS" {
			stored++
			continue
		}
		if item.Result != nil && item.Result.Errors != nil {
			for _, errItem := range item.Result.Errors.Error {
				slog.Warn("Weaviate rejected batch item", "error", errItem.Message)
			}
		}
	}
	return stored, nil
}

// chunkFields lists the GraphQL fields fetched for a chunk.
func chunkFields() []graphql.Field {
	return []graphql.Field{
		{Name: "content"},
		{Name: "sourceCollection"},
		{Name: "page"},
		{Name: "chunkIndex"},
	}
}

// parseDocuments converts a GraphQL response into documents, skipping
// malformed objects.
func parseDocuments(result *models.GraphQLResponse) []pipeline.Document {
	data, ok := result.Data["Get"].(map[string]interface{})
	if !ok {
		return []pipeline.Document{}
	}
	objects, ok := data[HandbookChunkClassName].([]interface{})
	if !ok {
		return []pipeline.Document{}
	}

	docs := make([]pipeline.Document, 0, len(objects))
	for _, obj := range objects {
		props, ok := obj.(map[string]interface{})
		if !ok {
			continue
		}
		docs = append(docs, pipeline.Document{
			Content:          getString(props, "content"),
			SourceCollection: getString(props, "sourceCollection"),
			Page:             getInt(props, "page"),
			ChunkIndex:       getInt(props, "chunkIndex"),
		})
	}
	return docs
}

func getString(props map[string]interface{}, key string) string {
	if v, ok := props[key].(string); ok {
		return v
	}
	return ""
}

func getInt(props map[string]interface{}, key string) int {
	// GraphQL numbers arrive as float64.
	if v, ok := props[key].(float64); ok {
		return int(v)
	}
	return 0
}

// EnsureSchema creates the HandbookChunk class if it does not exist.
func EnsureSchema(ctx context.Context, client *weaviate.Client) error {
	_, err := client.Schema().ClassGetter().WithClassName(HandbookChunkClassName).Do(ctx)
	if err == nil {
		slog.Info("Schema already exists", "class", HandbookChunkClassName)
		return nil
	}

	slog.Info("Schema not found, creating it", "class", HandbookChunkClassName)
	indexFilterable := new(bool)
	*indexFilterable = true

	class := &models.Class{
		Class:       HandbookChunkClassName,
		Description: "One chunk of handbook text with its source position.",
		Vectorizer:  "none",
		Properties: []*models.Property{
			{
				Name:        "content",
				DataType:    []string{"text"},
				Description: "The chunk text.",
			},
			{
				Name:            "sourceCollection",
				DataType:        []string{"text"},
				Description:     "The handbook this chunk belongs to.",
				IndexFilterable: indexFilterable,
				Tokenization:    "field",
			},
			{
				Name:            "page",
				DataType:        []string{"int"},
				Description:     "Page number within the source handbook.",
				IndexFilterable: indexFilterable,
			},
			{
				Name:            "chunkIndex",
				DataType:        []string{"int"},
				Description:     "Chunk position within the source page.",
				IndexFilterable: indexFilterable,
			},
		},
	}
	if err := client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
		return fmt.Errorf("creating schema for %s: %w", HandbookChunkClassName, err)
	}
	slog.Info("Successfully created schema", "class", HandbookChunkClassName)
	return nil
}
