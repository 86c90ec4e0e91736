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
	"hash/fnv"
	"sort"
	"strings"
	"sync"
)

// =============================================================================
// Deterministic test doubles for the capability interfaces
// =============================================================================

const fakeVectorDim = 64

// hashVector maps text to a bag-of-words vector by hashing each token into
// a fixed-size bucket array. Texts sharing tokens get similar vectors, so
// cosine similarity behaves sensibly for assertions without a real model.
func hashVector(text string) []float32 {
	vec := make([]float32, fakeVectorDim)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		tok = strings.Trim(tok, ".,!?:;\"'()[]")
		if tok == "" {
			continue
		}
		h := fnv.New32a()
		h.Write([]byte(tok))
		vec[h.Sum32()%fakeVectorDim]++
	}
	return vec
}

type fakeEmbedder struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (e *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	err := e.err
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return hashVector(text), nil
}

func (e *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	err := e.err
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}
	vecs := make([][]float32, len(texts))
	for i, t := range texts {
		vecs[i] = hashVector(t)
	}
	return vecs, nil
}

func (e *fakeEmbedder) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// fakeCorpus serves Search by cosine similarity over hash vectors of its
// documents, so dense retrieval in tests behaves like the real thing.
type fakeCorpus struct {
	docs      []Document
	searchErr error
	listErr   error
}

func (c *fakeCorpus) Search(ctx context.Context, vector []float32, k int) ([]Document, error) {
	if c.searchErr != nil {
		return nil, c.searchErr
	}
	order := make([]int, len(c.docs))
	scores := make([]float64, len(c.docs))
	for i := range c.docs {
		order[i] = i
		scores[i] = cosineSimilarity(vector, hashVector(c.docs[i].Content))
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})
	if k > len(order) {
		k = len(order)
	}
	result := make([]Document, 0, k)
	for _, i := range order[:k] {
		result = append(result, c.docs[i])
	}
	return result, nil
}

func (c *fakeCorpus) AllDocuments(ctx context.Context) ([]Document, error) {
	if c.listErr != nil {
		return nil, c.listErr
	}
	return append([]Document(nil), c.docs...), nil
}

// fakeScorer scores by distinct-token overlap between query and text.
type fakeScorer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *fakeScorer) Score(ctx context.Context, query string, texts []string) ([]float64, error) {
	s.mu.Lock()
	s.calls++
	err := s.err
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	queryTokens := make(map[string]bool)
	for _, t := range tokenize(query) {
		queryTokens[t] = true
	}
	scores := make([]float64, len(texts))
	for i, text := range texts {
		seen := make(map[string]bool)
		for _, t := range tokenize(text) {
			if queryTokens[t] && !seen[t] {
				seen[t] = true
				scores[i]++
			}
		}
	}
	return scores, nil
}

func (s *fakeScorer) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// fakeGenerator records every prompt and delegates to fn. A nil fn returns
// an error so tests that expect no generation call fail loudly if one
// happens anyway.
type fakeGenerator struct {
	mu      sync.Mutex
	prompts []string
	fn      func(prompt string) (string, error)
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	fn := g.fn
	g.mu.Unlock()
	if fn == nil {
		return "", errors.New("unexpected generation call")
	}
	return fn(prompt)
}

func (g *fakeGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

func (g *fakeGenerator) lastPrompt() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.prompts) == 0 {
		return ""
	}
	return g.prompts[len(g.prompts)-1]
}

// pipelineGenerator routes the prompts the full pipeline issues: rewrite
// prompts degrade (empty output, so the original query is used), answer
// prompts echo the compressed context back with a Sources section, and
// action prompts return a fixed deliverable.
func pipelineGenerator() *fakeGenerator {
	return &fakeGenerator{fn: func(prompt string) (string, error) {
		switch {
		case strings.HasPrefix(prompt, "Rewrite this employee handbook query"):
			return "", nil
		case strings.HasPrefix(prompt, "You are an enterprise handbook assistant."):
			return echoContext(prompt) + "\n\nSources:\n[1] handbook", nil
		case strings.HasPrefix(prompt, "You are an enterprise action agent."):
			return "Subject: Leave request\n\nDear HR team, ...", nil
		default:
			return "", errors.New("unrecognized prompt: " + prompt[:40])
		}
	}}
}

// echoContext extracts the compressed context section from an answer
// prompt, so the fake answer is maximally close to its own context.
func echoContext(prompt string) string {
	const heading = "Compressed Context:\n"
	start := strings.Index(prompt, heading)
	if start < 0 {
		return ""
	}
	rest := prompt[start+len(heading):]
	if end := strings.Index(rest, "\n\nCitations available:"); end >= 0 {
		rest = rest[:end]
	}
	return rest
}
