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

// NotFoundAnswer is the fail-closed sentinel returned when there is no
// context to ground an answer in.
const NotFoundAnswer = "Not found in handbook documents."

// SourcesHeading marks the citation section the answer must end with.
const SourcesHeading = "Sources:"

// AnswerGenerator produces a grounded, cited answer from compressed context.
//
// It fails closed: with empty context or no documents it returns
// NotFoundAnswer without invoking the generation service at all. This is a
// correctness rule, not an optimization: an ungrounded generation call
// here is exactly the hallucination path the verifier exists to catch.
type AnswerGenerator struct {
	generator Generator
}

// NewAnswerGenerator creates an AnswerGenerator.
func NewAnswerGenerator(generator Generator) *AnswerGenerator {
	return &AnswerGenerator{generator: generator}
}

const answerPromptTemplate = `You are an enterprise handbook assistant.

Answer the question ONLY using the provided context.
If the context does not contain the answer, say: "%s"
%s
User question:
%s

Compressed Context:
%s

Citations available:
%s

Rules:
- Use bullet points if possible
- Be precise
- Answer from the primary handbook only; never mix policies from different handbooks
- End your answer with a "Sources:" section listing citations you used.

Now write the final answer.`

// Answer generates the answer text for the query.
func (a *AnswerGenerator) Answer(ctx context.Context, query, compressedContext string, docs []Document, history []Turn) (string, error) {
	if strings.TrimSpace(compressedContext) == "" || len(docs) == 0 {
		return NotFoundAnswer, nil
	}

	prompt := fmt.Sprintf(answerPromptTemplate,
		NotFoundAnswer,
		historySection(history),
		query,
		compressedContext,
		CitationList(docs),
	)
	answer, err := a.generator.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("answer generation: %w", err)
	}
	return strings.TrimSpace(answer), nil
}

// CitationList enumerates the supplied documents for citation, 1-indexed in
// input order: "[i] collection (page P, chunk C)".
func CitationList(docs []Document) string {
	lines := make([]string, 0, len(docs))
	for i, d := range docs {
		lines = append(lines, fmt.Sprintf("[%d] %s (page %d, chunk %d)", i+1, d.Collection(), d.Page, d.ChunkIndex))
	}
	return strings.Join(lines, "\n")
}

// historySection renders recent conversation turns for the prompt, or an
// empty string when there is no history.
func historySection(history []Turn) string {
	if len(history) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\nRecent conversation:\n")
	for _, t := range history {
		fmt.Fprintf(&b, "User: %s\nAssistant: %s\n", t.User, t.Assistant)
	}
	return b.String()
}
