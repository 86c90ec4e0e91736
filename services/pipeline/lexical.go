// Copyright (C) 2026 Harbor Labs (dev@harborlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

import (
	"math"
	"sort"
	"strings"
)

// BM25 free parameters. Standard Okapi values.
const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

// lexicalIndex is an inverted term-frequency ranking structure over one
// corpus snapshot. It is immutable after build and safe for concurrent
// scoring.
type lexicalIndex struct {
	docs      []Document
	docTokens [][]string
	docFreq   map[string]int
	avgDocLen float64
}

// tokenize lowercases and splits on whitespace.
func tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}

// buildLexicalIndex indexes a corpus snapshot for BM25 scoring.
func buildLexicalIndex(docs []Document) *lexicalIndex {
	idx := &lexicalIndex{
		docs:      docs,
		docTokens: make([][]string, len(docs)),
		docFreq:   make(map[string]int),
	}

	totalLen := 0
	for i, d := range docs {
		tokens := tokenize(d.Content)
		idx.docTokens[i] = tokens
		totalLen += len(tokens)

		seen := make(map[string]bool, len(tokens))
		for _, t := range tokens {
			if !seen[t] {
				seen[t] = true
				idx.docFreq[t]++
			}
		}
	}
	if len(docs) > 0 {
		idx.avgDocLen = float64(totalLen) / float64(len(docs))
	}
	return idx
}

// scores returns one BM25 score per indexed document for the query.
func (idx *lexicalIndex) scores(query string) []float64 {
	queryTokens := tokenize(query)
	result := make([]float64, len(idx.docs))
	n := float64(len(idx.docs))

	for _, qt := range queryTokens {
		df, ok := idx.docFreq[qt]
		if !ok {
			continue
		}
		// Okapi IDF with the +1 inside the log to keep it non-negative.
		idf := math.Log(1 + (n-float64(df)+0.5)/(float64(df)+0.5))

		for i, tokens := range idx.docTokens {
			tf := 0.0
			for _, t := range tokens {
				if t == qt {
					tf++
				}
			}
			if tf == 0 {
				continue
			}
			docLen := float64(len(tokens))
			denom := tf + bm25K1*(1-bm25B+bm25B*docLen/idx.avgDocLen)
			result[i] += idf * tf * (bm25K1 + 1) / denom
		}
	}
	return result
}

// topK returns the k highest-scoring documents, best first. Ties keep the
// lower document index first (stable ranking over the snapshot order).
func (idx *lexicalIndex) topK(query string, k int) []Document {
	if len(idx.docs) == 0 || k <= 0 {
		return nil
	}
	scores := idx.scores(query)

	order := make([]int, len(idx.docs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	if k > len(order) {
		k = len(order)
	}
	top := make([]Document, 0, k)
	for _, i := range order[:k] {
		top = append(top, idx.docs[i])
	}
	return top
}
