// Copyright (C) 2026 Harbor Labs (dev@harborlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newExpander(docs []Document, cfg Config) *MultiHopExpander {
	retriever := NewHybridRetriever(&fakeEmbedder{}, &fakeCorpus{docs: docs}, cfg)
	return NewMultiHopExpander(retriever, cfg)
}

func TestExpansionTerms_FromFirstThreeDocsOnly(t *testing.T) {
	cfg := DefaultConfig()
	m := newExpander(nil, cfg)

	docs := []Document{
		{SourceCollection: "hr", Page: 1, ChunkIndex: 0, Content: "The probation period lasts six months."},
		{SourceCollection: "hr", Page: 1, ChunkIndex: 1, Content: "Unrelated filler text."},
		{SourceCollection: "hr", Page: 1, ChunkIndex: 2, Content: "More filler."},
		// Beyond the scan depth; must not contribute.
		{SourceCollection: "hr", Page: 2, ChunkIndex: 0, Content: "Termination requires a review."},
	}

	terms := m.expansionTerms(docs)
	assert.Equal(t, []string{"probation"}, terms)
}

func TestExpansionTerms_DeduplicatedInConfigOrder(t *testing.T) {
	cfg := DefaultConfig()
	m := newExpander(nil, cfg)

	docs := []Document{
		{SourceCollection: "hr", Page: 1, ChunkIndex: 0, Content: "notice period and termination and leave"},
		{SourceCollection: "hr", Page: 1, ChunkIndex: 1, Content: "leave during the notice period"},
	}

	terms := m.expansionTerms(docs)
	// Order follows the trigger configuration, not document order.
	assert.Equal(t, []string{"notice period", "termination", "leave policy"}, terms)
}

func TestExpand_MergesSecondPassAfterFirst(t *testing.T) {
	cfg := DefaultConfig()
	corpus := handbookDocs()
	m := newExpander(corpus, cfg)

	firstPass := corpus[:2]
	merged, err := m.Expand(context.Background(), "notice period buyout", firstPass)
	require.NoError(t, err)

	// First-pass docs keep their positions.
	require.GreaterOrEqual(t, len(merged), 2)
	assert.Equal(t, firstPass[0], merged[0])
	assert.Equal(t, firstPass[1], merged[1])

	seen := make(map[string]bool)
	for _, d := range merged {
		assert.False(t, seen[d.Key()])
		seen[d.Key()] = true
	}
}

func TestExpand_NoTriggersStillRetrieves(t *testing.T) {
	cfg := DefaultConfig()
	corpus := handbookDocs()
	m := newExpander(corpus, cfg)

	firstPass := []Document{
		{SourceCollection: "it", Page: 9, ChunkIndex: 0, Content: "Nothing matching any trigger."},
	}
	merged, err := m.Expand(context.Background(), "laptop return", firstPass)
	require.NoError(t, err)

	// Even with no expansion terms the second hop runs and contributes.
	assert.Greater(t, len(merged), 1)
}
