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

func TestSimilarityVerify_EmptyContextVerdict(t *testing.T) {
	embedder := &fakeEmbedder{}
	v := NewSimilarityVerifier(embedder, DefaultConfig())

	got, err := v.Verify(context.Background(), "q", "some answer", "   ")
	require.NoError(t, err)

	assert.Equal(t, Verification{
		IsGrounded: false,
		Confidence: 10,
		Issues:     []string{IssueNoContext},
	}, got)
	assert.Zero(t, embedder.callCount(), "no model call on empty context")
}

func TestSimilarityVerify_GroundedAnswer(t *testing.T) {
	v := NewSimilarityVerifier(&fakeEmbedder{}, DefaultConfig())

	contextText := "The notice period for resigned employees is 60 days."
	answer := "The notice period for resigned employees is 60 days.\n\nSources:\n[1] hr"

	got, err := v.Verify(context.Background(), "notice period?", answer, contextText)
	require.NoError(t, err)

	assert.True(t, got.IsGrounded)
	assert.GreaterOrEqual(t, got.Confidence, 60)
	assert.Empty(t, got.Issues)
}

func TestSimilarityVerify_MissingSourcesBlocksGrounding(t *testing.T) {
	v := NewSimilarityVerifier(&fakeEmbedder{}, DefaultConfig())

	contextText := "The notice period for resigned employees is 60 days."
	answer := "The notice period for resigned employees is 60 days."

	got, err := v.Verify(context.Background(), "notice period?", answer, contextText)
	require.NoError(t, err)

	// High similarity, but the structural issue vetoes is_grounded.
	assert.False(t, got.IsGrounded)
	assert.Contains(t, got.Issues, IssueMissingSources)
	assert.GreaterOrEqual(t, got.Confidence, 60)
}

func TestSimilarityVerify_UnrelatedAnswerIsWeak(t *testing.T) {
	v := NewSimilarityVerifier(&fakeEmbedder{}, DefaultConfig())

	contextText := "The notice period for resigned employees is 60 days."
	answer := "Quarterly revenue grew strongly across all regions.\n\nSources:\n[1] hr"

	got, err := v.Verify(context.Background(), "notice period?", answer, contextText)
	require.NoError(t, err)

	assert.False(t, got.IsGrounded)
	assert.Less(t, got.Confidence, 60)
	assert.Contains(t, got.Issues, IssueWeakGrounding)
}

func TestSimilarityVerify_EmbedFailureIsHardError(t *testing.T) {
	v := NewSimilarityVerifier(&fakeEmbedder{err: errors.New("down")}, DefaultConfig())

	_, err := v.Verify(context.Background(), "q", "answer", "context")
	assert.Error(t, err)
}

func TestScaleConfidence_Clamps(t *testing.T) {
	assert.Equal(t, 0, scaleConfidence(-0.4))
	assert.Equal(t, 0, scaleConfidence(0))
	assert.Equal(t, 50, scaleConfidence(0.5))
	assert.Equal(t, 100, scaleConfidence(1.0))
	assert.Equal(t, 100, scaleConfidence(1.3))
}
