// Copyright (C) 2026 Harbor Labs (dev@harborlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"context"
	"log/slog"
	"strings"
)

// multiHopScanDepth is how many first-pass documents are scanned for
// expansion triggers.
const multiHopScanDepth = 3

// MultiHopExpander issues a second retrieval hop driven by terms found in
// the first-pass results.
//
// The first three documents are scanned for the configured trigger
// substrings; each match contributes one expansion term. The second-hop
// query is the original query plus the space-joined deduplicated terms
// (just the original plus a trailing space when nothing matched, which
// retrieves at least as well as the first pass). Second-pass results are
// unioned after the first pass, preserving first-pass order.
type MultiHopExpander struct {
	retriever *HybridRetriever
	cfg       Config
}

// NewMultiHopExpander creates a MultiHopExpander.
func NewMultiHopExpander(retriever *HybridRetriever, cfg Config) *MultiHopExpander {
	return &MultiHopExpander{retriever: retriever, cfg: cfg}
}

// Expand runs the second hop and merges it into firstPass.
func (m *MultiHopExpander) Expand(ctx context.Context, query string, firstPass []Document) ([]Document, error) {
	terms := m.expansionTerms(firstPass)
	expandedQuery := query + " " + strings.Join(terms, " ")
	slog.Debug("Multi-hop expansion", "terms", terms, "expandedQuery", expandedQuery)

	secondPass, err := m.retriever.Retrieve(ctx, expandedQuery, m.cfg.MultiHopK, m.cfg.MultiHopK)
	if err != nil {
		return nil, err
	}
	return mergeDocuments(firstPass, secondPass), nil
}

// expansionTerms collects the deduplicated trigger terms found in the first
// few documents. Trigger order is fixed by configuration so the expanded
// query is deterministic for a given result set.
func (m *MultiHopExpander) expansionTerms(docs []Document) []string {
	depth := multiHopScanDepth
	if depth > len(docs) {
		depth = len(docs)
	}

	seen := make(map[string]bool)
	var terms []string
	for _, trigger := range m.cfg.ExpansionTriggers {
		if seen[trigger.Term] {
			continue
		}
		for _, d := range docs[:depth] {
			if strings.Contains(strings.ToLower(d.Content), trigger.Match) {
				seen[trigger.Term] = true
				terms = append(terms, trigger.Term)
				break
			}
		}
	}
	return terms
}
