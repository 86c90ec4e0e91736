// Copyright (C) 2026 Harbor Labs (dev@harborlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRerank_OrdersByRelevanceAndCaps(t *testing.T) {
	r := NewReranker(&fakeScorer{})
	docs := []Document{
		{SourceCollection: "hr", Page: 1, ChunkIndex: 0, Content: "unrelated filler text"},
		{SourceCollection: "hr", Page: 1, ChunkIndex: 1, Content: "notice period buyout rules"},
		{SourceCollection: "hr", Page: 1, ChunkIndex: 2, Content: "notice period"},
	}

	ranked, err := r.Rerank(context.Background(), "notice period buyout", docs, 2)
	require.NoError(t, err)

	require.Len(t, ranked, 2)
	assert.Equal(t, docs[1], ranked[0])
	assert.Equal(t, docs[2], ranked[1])
}

func TestRerank_TopNLargerThanInput(t *testing.T) {
	r := NewReranker(&fakeScorer{})
	docs := handbookDocs()

	ranked, err := r.Rerank(context.Background(), "notice period", docs, 50)
	require.NoError(t, err)
	assert.Len(t, ranked, len(docs))
}

func TestRerank_EmptyInputSkipsScorer(t *testing.T) {
	scorer := &fakeScorer{}
	r := NewReranker(scorer)

	ranked, err := r.Rerank(context.Background(), "notice period", nil, 6)
	require.NoError(t, err)

	assert.Empty(t, ranked)
	assert.Zero(t, scorer.callCount())
}

func TestRerank_ScorerFailureIsHardError(t *testing.T) {
	r := NewReranker(&fakeScorer{err: errors.New("reranker down")})

	_, err := r.Rerank(context.Background(), "notice period", handbookDocs(), 6)
	assert.Error(t, err)
}

func TestRerank_TiesKeepInputOrder(t *testing.T) {
	r := NewReranker(&fakeScorer{})
	docs := []Document{
		{SourceCollection: "hr", Page: 1, ChunkIndex: 0, Content: "notice text one"},
		{SourceCollection: "hr", Page: 1, ChunkIndex: 1, Content: "notice text two"},
	}

	ranked, err := r.Rerank(context.Background(), "notice", docs, 2)
	require.NoError(t, err)
	assert.Equal(t, docs, ranked)
}
