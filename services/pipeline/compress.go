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
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

var (
	whitespaceRun    = regexp.MustCompile(`\s+`)
	sentenceBoundary = regexp.MustCompile(`([.!?])\s+`)
)

// compressDocDepth is how many documents contribute candidate sentences.
const compressDocDepth = 6

// Compressor reduces reranked documents to the sentences most relevant to
// the original query, forming the bounded context the answer is grounded in.
//
// Sentences shorter than Config.MinSentenceLen are discarded as fragment
// noise. The selected sentences are joined newline-separated in
// descending-score order, not document order. If splitting yields nothing
// usable the compressor falls back to a raw truncated excerpt of the first
// few documents. Empty input compresses to the empty string, which is the
// downstream signal to short-circuit answer generation.
type Compressor struct {
	embedder Embedder
	cfg      Config
}

// NewCompressor creates a Compressor.
func NewCompressor(embedder Embedder, cfg Config) *Compressor {
	return &Compressor{embedder: embedder, cfg: cfg}
}

// Compress builds the context text for the query from docs.
func (c *Compressor) Compress(ctx context.Context, query string, docs []Document) (string, error) {
	if len(docs) == 0 {
		return "", nil
	}

	depth := compressDocDepth
	if depth > len(docs) {
		depth = len(docs)
	}
	var sentences []string
	for _, d := range docs[:depth] {
		sentences = append(sentences, c.splitSentences(d.Content)...)
	}

	if len(sentences) == 0 {
		return c.fallbackExcerpt(docs), nil
	}

	queryVec, err := c.embedder.Embed(ctx, query)
	if err != nil {
		return "", fmt.Errorf("embed query: %w", err)
	}
	sentenceVecs, err := c.embedder.EmbedBatch(ctx, sentences)
	if err != nil {
		return "", fmt.Errorf("embed sentences: %w", err)
	}
	if len(sentenceVecs) != len(sentences) {
		return "", fmt.Errorf("embedder returned %d vectors for %d sentences", len(sentenceVecs), len(sentences))
	}

	order := make([]int, len(sentences))
	for i := range order {
		order[i] = i
	}
	scores := make([]float64, len(sentences))
	for i, vec := range sentenceVecs {
		scores[i] = cosineSimilarity(queryVec, vec)
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	top := c.cfg.CompressTopSentences
	if top > len(order) {
		top = len(order)
	}
	selected := make([]string, 0, top)
	for _, i := range order[:top] {
		selected = append(selected, sentences[i])
	}
	return strings.Join(selected, "\n"), nil
}

// splitSentences normalizes whitespace and splits on sentence-ending
// punctuation followed by whitespace, dropping fragments below the minimum
// length.
func (c *Compressor) splitSentences(text string) []string {
	text = strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
	if text == "" {
		return nil
	}
	// Keep the terminating punctuation with its sentence.
	marked := sentenceBoundary.ReplaceAllString(text, "$1\x00")
	parts := strings.Split(marked, "\x00")

	sentences := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if len(p) > c.cfg.MinSentenceLen {
			sentences = append(sentences, p)
		}
	}
	return sentences
}

// truncateRuneSafe cuts s to at most limit bytes without splitting a
// multibyte rune at the cut point.
func truncateRuneSafe(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}

// fallbackExcerpt concatenates truncated raw content of the first few
// documents when no usable sentences exist.
func (c *Compressor) fallbackExcerpt(docs []Document) string {
	depth := c.cfg.FallbackDocCount
	if depth > len(docs) {
		depth = len(docs)
	}
	excerpts := make([]string, 0, depth)
	for _, d := range docs[:depth] {
		excerpts = append(excerpts, truncateRuneSafe(d.Content, c.cfg.FallbackExcerptLen))
	}
	return strings.Join(excerpts, "\n\n")
}
