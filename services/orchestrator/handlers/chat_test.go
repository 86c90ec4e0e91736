// Copyright (C) 2026 Harbor Labs (dev@harborlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborlabs/handbookrag/services/orchestrator/datatypes"
	"github.com/harborlabs/handbookrag/services/orchestrator/memory"
	"github.com/harborlabs/handbookrag/services/pipeline"
)

// =============================================================================
// Test doubles for the pipeline capability interfaces
// =============================================================================

const testVectorDim = 64

// testVector maps text to a bag-of-words vector by hashing tokens into
// fixed buckets, so texts sharing tokens are cosine-similar.
func testVector(text string) []float32 {
	vec := make([]float32, testVectorDim)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		tok = strings.Trim(tok, ".,!?:;\"'()[]")
		if tok == "" {
			continue
		}
		h := fnv.New32a()
		h.Write([]byte(tok))
		vec[h.Sum32()%testVectorDim]++
	}
	return vec
}

type testEmbedder struct{}

func (testEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return testVector(text), nil
}

func (testEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i, t := range texts {
		vecs[i] = testVector(t)
	}
	return vecs, nil
}

type testScorer struct{}

func (testScorer) Score(ctx context.Context, query string, texts []string) ([]float64, error) {
	scores := make([]float64, len(texts))
	queryTokens := strings.Fields(strings.ToLower(query))
	for i, text := range texts {
		lower := strings.ToLower(text)
		for _, tok := range queryTokens {
			if strings.Contains(lower, tok) {
				scores[i]++
			}
		}
	}
	return scores, nil
}

type testCorpus struct {
	docs      []pipeline.Document
	searchErr error
}

func (c *testCorpus) Search(ctx context.Context, vector []float32, k int) ([]pipeline.Document, error) {
	if c.searchErr != nil {
		return nil, c.searchErr
	}
	type scored struct {
		doc   pipeline.Document
		score float64
	}
	ranked := make([]scored, 0, len(c.docs))
	for _, doc := range c.docs {
		dv := testVector(doc.Content)
		var dot, qn, dn float64
		qv := vector
		for i := range qv {
			dot += float64(qv[i]) * float64(dv[i])
			qn += float64(qv[i]) * float64(qv[i])
			dn += float64(dv[i]) * float64(dv[i])
		}
		score := 0.0
		if qn > 0 && dn > 0 {
			score = dot
		}
		ranked = append(ranked, scored{doc, score})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if k > len(ranked) {
		k = len(ranked)
	}
	out := make([]pipeline.Document, k)
	for i := 0; i < k; i++ {
		out[i] = ranked[i].doc
	}
	return out, nil
}

func (c *testCorpus) AllDocuments(ctx context.Context) ([]pipeline.Document, error) {
	return append([]pipeline.Document(nil), c.docs...), nil
}

// testGenerator routes by prompt prefix so one double serves the
// rewrite, answer, and action prompts.
type testGenerator struct{}

func (testGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	switch {
	case strings.HasPrefix(prompt, "Rewrite this employee handbook query"):
		return "", nil // degenerate rewrite, pipeline keeps the original query
	case strings.HasPrefix(prompt, "You are an enterprise handbook assistant."):
		return extractContext(prompt) + "\n\nSources:\n[1] hr_handbook (page 3, chunk 2)", nil
	case strings.HasPrefix(prompt, "You are an enterprise action agent."):
		return "Subject: Leave request\n\nDear HR team,\nPlease approve my leave.", nil
	}
	return "", fmt.Errorf("unexpected prompt: %.40s", prompt)
}

// extractContext pulls the compressed context back out of the answer
// prompt, so the generated answer is maximally similar to its context.
func extractContext(prompt string) string {
	const start = "Compressed Context:\n"
	const end = "\n\nCitations available:"
	i := strings.Index(prompt, start)
	j := strings.Index(prompt, end)
	if i < 0 || j < 0 || j < i {
		return ""
	}
	return prompt[i+len(start) : j]
}

// =============================================================================
// Harness
// =============================================================================

func handbookCorpus() *testCorpus {
	return &testCorpus{docs: []pipeline.Document{
		{Content: "Employees must serve a notice period of 30 days after resignation.", SourceCollection: "hr_handbook", Page: 3, ChunkIndex: 2},
		{Content: "The notice period may be waived by management in writing.", SourceCollection: "hr_handbook", Page: 3, ChunkIndex: 3},
		{Content: "Casual leave lapses at the end of the calendar year.", SourceCollection: "hr_handbook", Page: 7, ChunkIndex: 0},
	}}
}

func newTestStore(t *testing.T) *memory.FileHistoryStore {
	t.Helper()
	store, err := memory.NewFileHistoryStore(filepath.Join(t.TempDir(), "history.json"), 0)
	require.NoError(t, err)
	return store
}

func newChatRouter(t *testing.T, corpus *testCorpus, store memory.HistoryStore) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	pipe := pipeline.New(testEmbedder{}, testScorer{}, testGenerator{}, corpus, pipeline.DefaultConfig())
	router := gin.New()
	router.POST("/v1/chat", HandleChat(pipe, store))
	router.POST("/v1/chat/stream", HandleChatStream(pipe, store))
	return router
}

func postJSON(t *testing.T, router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// =============================================================================
// HandleChat
// =============================================================================

func TestHandleChat_GroundedAnswer(t *testing.T) {
	router := newChatRouter(t, handbookCorpus(), newTestStore(t))

	rec := postJSON(t, router, "/v1/chat", datatypes.ChatRequest{
		Query:    "What is the notice period after resignation?",
		ThreadID: "thread-1",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp datatypes.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "thread-1", resp.ThreadID)
	assert.True(t, resp.IsGrounded)
	assert.GreaterOrEqual(t, resp.Confidence, 60)
	assert.Contains(t, resp.Answer, "notice period")
	assert.Equal(t, "hr_handbook", resp.PrimaryHandbook)
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, 1, resp.Sources[0].ID)
	assert.Equal(t, "hr_handbook (page 3, chunk 2)", resp.Sources[0].Text)
	assert.NotEmpty(t, resp.StreamLog)
}

func TestHandleChat_GeneratesThreadID(t *testing.T) {
	router := newChatRouter(t, handbookCorpus(), newTestStore(t))

	rec := postJSON(t, router, "/v1/chat", datatypes.ChatRequest{Query: "What is the notice period?"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp datatypes.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.ThreadID)
}

func TestHandleChat_EmptyQueryRejected(t *testing.T) {
	router := newChatRouter(t, handbookCorpus(), newTestStore(t))

	rec := postJSON(t, router, "/v1/chat", map[string]string{"query": "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleChat_MissingQueryRejected(t *testing.T) {
	router := newChatRouter(t, handbookCorpus(), newTestStore(t))

	rec := postJSON(t, router, "/v1/chat", map[string]string{"thread_id": "t"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleChat_OversizedQueryRejected(t *testing.T) {
	router := newChatRouter(t, handbookCorpus(), newTestStore(t))

	rec := postJSON(t, router, "/v1/chat", datatypes.ChatRequest{
		Query: strings.Repeat("a", datatypes.MaxQueryBytes+1),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleChat_InvalidJSONRejected(t *testing.T) {
	router := newChatRouter(t, handbookCorpus(), newTestStore(t))

	req := httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// An infrastructure failure inside a stage is a gateway error, not a
// low-confidence answer.
func TestHandleChat_StageFailureIsBadGateway(t *testing.T) {
	corpus := handbookCorpus()
	corpus.searchErr = errors.New("weaviate unavailable")
	router := newChatRouter(t, corpus, newTestStore(t))

	rec := postJSON(t, router, "/v1/chat", datatypes.ChatRequest{Query: "What is the notice period?"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

// A corpus with nothing relevant still answers 200, fail-closed.
func TestHandleChat_NoMatchIsStillOK(t *testing.T) {
	router := newChatRouter(t, &testCorpus{}, newTestStore(t))

	rec := postJSON(t, router, "/v1/chat", datatypes.ChatRequest{Query: "What is the notice period?"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp datatypes.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.IsGrounded)
	assert.Equal(t, pipeline.NotFoundAnswer, resp.Answer)
	assert.Empty(t, resp.Sources)
}

func TestHandleChat_AppendsHistory(t *testing.T) {
	store := newTestStore(t)
	router := newChatRouter(t, handbookCorpus(), store)

	rec := postJSON(t, router, "/v1/chat", datatypes.ChatRequest{Query: "What is the notice period?"})
	require.Equal(t, http.StatusOK, rec.Code)

	turns, err := store.Recent(10)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "What is the notice period?", turns[0].User)
	assert.Contains(t, turns[0].Assistant, "Sources:")
}

// =============================================================================
// HandleChatStream
// =============================================================================

func TestHandleChatStream_EmitsEventSequence(t *testing.T) {
	router := newChatRouter(t, handbookCorpus(), newTestStore(t))

	rec := postJSON(t, router, "/v1/chat/stream", datatypes.ChatRequest{
		Query:    "What is the notice period?",
		ThreadID: "thread-9",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, "event: status")
	assert.Contains(t, body, "event: token")
	assert.Contains(t, body, "event: sources")
	assert.Contains(t, body, "event: done")
	assert.Contains(t, body, `"thread_id":"thread-9"`)

	// Status events precede tokens, and done is last.
	assert.Less(t, strings.Index(body, "event: status"), strings.Index(body, "event: token"))
	assert.Less(t, strings.Index(body, "event: sources"), strings.Index(body, "event: done"))
}

func TestHandleChatStream_StageFailureIsBadGateway(t *testing.T) {
	corpus := handbookCorpus()
	corpus.searchErr = errors.New("weaviate unavailable")
	router := newChatRouter(t, corpus, newTestStore(t))

	rec := postJSON(t, router, "/v1/chat/stream", datatypes.ChatRequest{Query: "What is the notice period?"})

	// Infrastructure failures surface before any SSE bytes are written,
	// so the client sees a real status code, not a 200 with an error event.
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	body := rec.Body.String()
	assert.NotContains(t, body, "event:")
	assert.Contains(t, body, "weaviate unavailable")
}

// =============================================================================
// ParseSources
// =============================================================================

func TestParseSources_ExtractsCitationLines(t *testing.T) {
	answer := "The notice period is 30 days.\n\nSources:\n[1] hr_handbook (page 3, chunk 2)\n[2] hr_handbook (page 3, chunk 3)"

	sources := ParseSources(answer)
	require.Len(t, sources, 2)
	assert.Equal(t, datatypes.SourceInfo{ID: 1, Text: "hr_handbook (page 3, chunk 2)"}, sources[0])
	assert.Equal(t, datatypes.SourceInfo{ID: 2, Text: "hr_handbook (page 3, chunk 3)"}, sources[1])
}

func TestParseSources_DropsNonMatchingLines(t *testing.T) {
	answer := "Answer.\n\nSources:\nsome preamble\n[1] hr_handbook (page 1, chunk 0)\n- not a citation"

	sources := ParseSources(answer)
	require.Len(t, sources, 1)
	assert.Equal(t, 1, sources[0].ID)
}

func TestParseSources_NoHeadingYieldsEmpty(t *testing.T) {
	assert.Empty(t, ParseSources("An answer with no citation section."))
}

func TestParseSources_UsesLastHeading(t *testing.T) {
	answer := "Sources: are discussed below.\n\nSources:\n[1] hr_handbook (page 2, chunk 1)"

	sources := ParseSources(answer)
	require.Len(t, sources, 1)
	assert.Equal(t, "hr_handbook (page 2, chunk 1)", sources[0].Text)
}
