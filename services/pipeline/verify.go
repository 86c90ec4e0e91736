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
	"strings"
)

// Issue codes attached to a Verification.
const (
	IssueNoContext      = "no_context_found"
	IssueMissingSources = "missing_sources_section"
	IssueWeakGrounding  = "weak_grounding_similarity"
	IssueParseFailed    = "parse_failed"
)

// Verification is the groundedness judgment for one answer.
type Verification struct {
	IsGrounded bool     `json:"is_grounded"`
	Confidence int      `json:"confidence"`
	Issues     []string `json:"issues"`
}

// Verifier scores how well an answer is grounded in its context.
type Verifier interface {
	Verify(ctx context.Context, query, answer, contextText string) (Verification, error)
}

// SimilarityVerifier approximates groundedness by embedding similarity
// between the whole answer and the whole context.
//
// This is deliberately aggregate: it never checks individual claims against
// individual context sentences, only overall semantic proximity, plus a
// structural check that the answer carries a Sources section. Empty context
// short-circuits to a fixed low-confidence verdict without any model call.
type SimilarityVerifier struct {
	embedder Embedder
	cfg      Config
}

// NewSimilarityVerifier creates a SimilarityVerifier.
func NewSimilarityVerifier(embedder Embedder, cfg Config) *SimilarityVerifier {
	return &SimilarityVerifier{embedder: embedder, cfg: cfg}
}

// Verify implements Verifier.
func (v *SimilarityVerifier) Verify(ctx context.Context, query, answer, contextText string) (Verification, error) {
	if strings.TrimSpace(contextText) == "" {
		return Verification{
			IsGrounded: false,
			Confidence: 10,
			Issues:     []string{IssueNoContext},
		}, nil
	}

	var issues []string
	if !strings.Contains(answer, SourcesHeading) {
		issues = append(issues, IssueMissingSources)
	}

	answerVec, err := v.embedder.Embed(ctx, answer)
	if err != nil {
		return Verification{}, fmt.Errorf("embed answer: %w", err)
	}
	contextVec, err := v.embedder.Embed(ctx, contextText)
	if err != nil {
		return Verification{}, fmt.Errorf("embed context: %w", err)
	}

	confidence := scaleConfidence(cosineSimilarity(answerVec, contextVec))
	if confidence < v.cfg.WeakThreshold {
		issues = append(issues, IssueWeakGrounding)
	}

	return Verification{
		IsGrounded: confidence >= v.cfg.GroundedThreshold && len(issues) == 0,
		Confidence: confidence,
		Issues:     issues,
	}, nil
}

// scaleConfidence maps a similarity in [-1, 1] to an integer confidence
// clamped to [0, 100].
func scaleConfidence(similarity float64) int {
	confidence := int(similarity * 100)
	if confidence < 0 {
		return 0
	}
	if confidence > 100 {
		return 100
	}
	return confidence
}
