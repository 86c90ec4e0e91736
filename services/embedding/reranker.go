// Copyright (C) 2026 Harbor Labs (dev@harborlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/harborlabs/handbookrag/services/pipeline"
)

// RerankerClient wraps calls to the cross-encoder reranking sidecar.
//
// The sidecar exposes POST /rerank accepting {"query": ..., "texts": [...]}
// and returning {"scores": [...]}, one score per text in input order.
// Higher scores mean more relevant.
type RerankerClient struct {
	baseURL    string
	httpClient *http.Client
}

// Compile-time interface implementation check.
var _ pipeline.RelevanceScorer = (*RerankerClient)(nil)

// NewRerankerClient creates a client for the reranking sidecar at baseURL.
func NewRerankerClient(baseURL string) *RerankerClient {
	return &RerankerClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
}

// WithTimeout sets a custom request timeout and returns the client.
func (c *RerankerClient) WithTimeout(timeout time.Duration) *RerankerClient {
	c.httpClient.Timeout = timeout
	return c
}

type rerankRequest struct {
	Query string   `json:"query"`
	Texts []string `json:"texts"`
}

type rerankResponse struct {
	Model  string    `json:"model"`
	Scores []float64 `json:"scores"`
}

// Score returns one relevance score per text for the query.
func (c *RerankerClient) Score(ctx context.Context, query string, texts []string) ([]float64, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: query is empty", ErrInvalidInput)
	}
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts is empty", ErrInvalidInput)
	}

	bodyBytes, err := json.Marshal(rerankRequest{Query: query, Texts: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rerank", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("reranking service returned status %d: %s", resp.StatusCode, string(body))
	}

	var rr rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(rr.Scores) != len(texts) {
		return nil, fmt.Errorf("reranking service returned %d scores for %d texts", len(rr.Scores), len(texts))
	}
	return rr.Scores, nil
}
