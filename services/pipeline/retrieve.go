// Copyright (C) 2026 Harbor Labs (dev@harborlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// HybridRetriever merges dense similarity search with lexical BM25 search
// over the same corpus.
//
// # Description
//
// Dense retrieval embeds the query and asks the CorpusIndex for the k
// nearest chunks. Lexical retrieval fetches the full corpus snapshot,
// builds a BM25 index over it, and takes the k best keyword matches. The
// two lists are unioned (dense first, then lexical) and deduplicated by
// document identity; no joint scoring happens here, ranking is the
// Reranker's job.
//
// The lexical index is rebuilt from a fresh snapshot on every call unless
// Config.CacheLexicalIndex is set, in which case the first snapshot is
// reused for the process lifetime. Caching assumes the corpus changes
// rarely relative to the process.
//
// # Thread Safety
//
// Safe for concurrent use; the cached index is built once under a mutex.
type HybridRetriever struct {
	embedder Embedder
	corpus   CorpusIndex
	cfg      Config

	mu     sync.Mutex
	cached *lexicalIndex
}

// NewHybridRetriever creates a HybridRetriever.
func NewHybridRetriever(embedder Embedder, corpus CorpusIndex, cfg Config) *HybridRetriever {
	return &HybridRetriever{embedder: embedder, corpus: corpus, cfg: cfg}
}

// Retrieve returns the deduplicated union of dense and lexical results for
// the query. An empty corpus yields an empty result, not an error.
func (r *HybridRetriever) Retrieve(ctx context.Context, query string, kDense, kLexical int) ([]Document, error) {
	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	dense, err := r.corpus.Search(ctx, vector, kDense)
	if err != nil {
		return nil, fmt.Errorf("dense search: %w", err)
	}

	idx, err := r.lexical(ctx)
	if err != nil {
		return nil, fmt.Errorf("lexical index: %w", err)
	}
	lexical := idx.topK(query, kLexical)

	merged := mergeDocuments(dense, lexical)
	slog.Debug("Hybrid retrieval complete",
		"denseCount", len(dense),
		"lexicalCount", len(lexical),
		"mergedCount", len(merged))
	return merged, nil
}

// lexical returns the BM25 index for the current corpus snapshot,
// honoring the cache setting.
func (r *HybridRetriever) lexical(ctx context.Context) (*lexicalIndex, error) {
	if !r.cfg.CacheLexicalIndex {
		docs, err := r.corpus.AllDocuments(ctx)
		if err != nil {
			return nil, err
		}
		return buildLexicalIndex(docs), nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cached == nil {
		docs, err := r.corpus.AllDocuments(ctx)
		if err != nil {
			return nil, err
		}
		r.cached = buildLexicalIndex(docs)
		slog.Info("Cached lexical index", "documents", len(docs))
	}
	return r.cached, nil
}
