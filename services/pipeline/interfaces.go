// Copyright (C) 2026 Harbor Labs (dev@harborlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"context"
	"math"
)

// Embedder computes vector embeddings for text.
//
// # Description
//
// The pipeline uses embeddings for intent classification, sentence scoring
// during compression, and grounding verification. Implementations wrap a
// model service (local embedding sidecar, OpenAI, Ollama).
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type Embedder interface {
	// Embed returns the embedding vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per input text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// RelevanceScorer scores query/document pairs with a pairwise relevance
// model (typically a cross-encoder). Higher scores mean more relevant.
//
// Implementations must be safe for concurrent use and must return exactly
// one score per input text, in input order.
type RelevanceScorer interface {
	Score(ctx context.Context, query string, texts []string) ([]float64, error)
}

// Generator produces text from a prompt. Implementations wrap an LLM
// backend (OpenAI, Ollama). Implementations must be safe for concurrent use.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// CorpusIndex is the similarity-search service over the handbook corpus.
//
// Search returns the k nearest documents to the query vector, best first.
// AllDocuments enumerates the full corpus snapshot for lexical indexing.
// Both are read-only; the pipeline never mutates the corpus.
type CorpusIndex interface {
	Search(ctx context.Context, vector []float32, k int) ([]Document, error)
	AllDocuments(ctx context.Context) ([]Document, error)
}

// cosineSimilarity computes the cosine similarity of two vectors.
// Returns 0 for mismatched lengths or zero-magnitude inputs.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
