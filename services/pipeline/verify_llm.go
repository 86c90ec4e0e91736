// Copyright (C) 2026 Harbor Labs (dev@harborlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// LLMVerifier asks the generation service to judge groundedness and parse
// its structured verdict.
//
// A malformed verdict never aborts the request: it degrades to a fixed
// low-confidence Verification carrying the parse_failed issue, so the
// routing after verify still has something well-formed to act on. Only an
// unreachable generation service is a hard failure.
type LLMVerifier struct {
	generator Generator
	cfg       Config
}

// NewLLMVerifier creates an LLMVerifier.
func NewLLMVerifier(generator Generator, cfg Config) *LLMVerifier {
	return &LLMVerifier{generator: generator, cfg: cfg}
}

const verifyPromptTemplate = `You are a strict grounding auditor.

Given a question, an answer, and the context the answer must be grounded in,
judge whether every claim in the answer is supported by the context.

Question:
%s

Answer:
%s

Context:
%s

Respond with ONLY a JSON object of the form
{"is_grounded": true|false, "confidence": 0-100, "issues": ["..."]}.`

// parseFailedVerification is the degraded verdict for malformed output.
func parseFailedVerification() Verification {
	return Verification{
		IsGrounded: false,
		Confidence: 30,
		Issues:     []string{IssueParseFailed},
	}
}

// Verify implements Verifier.
func (v *LLMVerifier) Verify(ctx context.Context, query, answer, contextText string) (Verification, error) {
	if strings.TrimSpace(contextText) == "" {
		return Verification{
			IsGrounded: false,
			Confidence: 10,
			Issues:     []string{IssueNoContext},
		}, nil
	}

	raw, err := v.generator.Generate(ctx, fmt.Sprintf(verifyPromptTemplate, query, answer, contextText))
	if err != nil {
		return Verification{}, fmt.Errorf("verification generation: %w", err)
	}

	verdict, ok := parseVerdict(raw)
	if !ok {
		slog.Warn("Verifier returned malformed verdict, degrading", "raw_length", len(raw))
		return parseFailedVerification(), nil
	}
	return verdict, nil
}

// parseVerdict extracts the JSON object from the model output. Models often
// wrap JSON in prose or code fences, so it scans for the outermost braces.
func parseVerdict(raw string) (Verification, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return Verification{}, false
	}

	var verdict Verification
	if err := json.Unmarshal([]byte(raw[start:end+1]), &verdict); err != nil {
		return Verification{}, false
	}
	if verdict.Confidence < 0 || verdict.Confidence > 100 {
		return Verification{}, false
	}
	return verdict, true
}
