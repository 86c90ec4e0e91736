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
	"strings"
)

// QueryRewriter turns a conversational question into a short retrieval
// query via the generation service.
//
// Rewriting is an enrichment, not a requirement: a generation failure or a
// degenerate rewrite (under three characters) falls back to the original
// query so retrieval always has something to work with.
type QueryRewriter struct {
	generator Generator
}

// NewQueryRewriter creates a QueryRewriter.
func NewQueryRewriter(generator Generator) *QueryRewriter {
	return &QueryRewriter{generator: generator}
}

const rewritePromptTemplate = `Rewrite this employee handbook query into a short retrieval query.

Rules:
- keep it short
- include keywords
- include synonyms
- remove filler words
- do NOT answer

Intent: %s
Query: %s

Rewritten query:`

// Rewrite returns the retrieval form of the query. Never fails; falls back
// to the original query on any problem.
func (r *QueryRewriter) Rewrite(ctx context.Context, query, intent string) string {
	prompt := fmt.Sprintf(rewritePromptTemplate, intent, query)
	rewritten, err := r.generator.Generate(ctx, prompt)
	if err != nil {
		slog.Warn("Query rewrite failed, using original query", "error", err)
		return query
	}
	rewritten = strings.TrimSpace(rewritten)
	if len(rewritten) < 3 {
		slog.Warn("Query rewrite produced degenerate output, using original query", "rewritten", rewritten)
		return query
	}
	return rewritten
}
