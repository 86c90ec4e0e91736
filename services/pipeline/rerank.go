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
	"sort"
)

// Reranker reorders candidates by pairwise query relevance.
//
// The reranking model is more expensive than the retrieval scorers, which
// is why retrieval returns an unranked union and only this stage orders it.
// The sort is stable: ties preserve input order, so output is deterministic
// for a fixed scorer and input.
type Reranker struct {
	scorer RelevanceScorer
}

// NewReranker creates a Reranker.
func NewReranker(scorer RelevanceScorer) *Reranker {
	return &Reranker{scorer: scorer}
}

// Rerank returns at most topN documents sorted by relevance score
// descending. Empty input returns an empty slice without a scoring call.
func (r *Reranker) Rerank(ctx context.Context, query string, docs []Document, topN int) ([]Document, error) {
	if len(docs) == 0 {
		return []Document{}, nil
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}
	scores, err := r.scorer.Score(ctx, query, texts)
	if err != nil {
		return nil, fmt.Errorf("relevance scoring: %w", err)
	}
	if len(scores) != len(docs) {
		return nil, fmt.Errorf("relevance scorer returned %d scores for %d documents", len(scores), len(docs))
	}

	order := make([]int, len(docs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	if topN > len(order) {
		topN = len(order)
	}
	ranked := make([]Document, 0, topN)
	for _, i := range order[:topN] {
		ranked = append(ranked, docs[i])
	}
	return ranked, nil
}
