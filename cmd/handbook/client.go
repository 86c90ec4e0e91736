// Copyright (C) 2026 Harbor Labs (dev@harborlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/harborlabs/handbookrag/services/orchestrator/datatypes"
)

const (
	defaultOrchestratorHost = "localhost"
	defaultOrchestratorPort = 12210
)

var httpClient = &http.Client{
	Timeout: time.Minute * 4,
}

// getOrchestratorBaseURL returns the orchestrator address, honoring the
// environment override used by tests and container deployments.
func getOrchestratorBaseURL() string {
	if url := os.Getenv("HANDBOOK_ORCHESTRATOR_URL"); url != "" {
		return url
	}
	return fmt.Sprintf("http://%s:%d", defaultOrchestratorHost, defaultOrchestratorPort)
}

// sendChatRequest posts one question to the orchestrator.
func sendChatRequest(baseURL, question, threadID string) (*datatypes.ChatResponse, error) {
	body, err := json.Marshal(datatypes.ChatRequest{Query: question, ThreadID: threadID})
	if err != nil {
		return nil, fmt.Errorf("encoding chat request: %w", err)
	}

	resp, err := httpClient.Post(baseURL+"/v1/chat", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("contacting orchestrator: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("orchestrator returned status %d: %s", resp.StatusCode, string(data))
	}

	var chatResp datatypes.ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("decoding chat response: %w", err)
	}
	return &chatResp, nil
}

// sendIngestRequest posts one document to the orchestrator.
func sendIngestRequest(baseURL string, req datatypes.IngestDocumentRequest) (*datatypes.IngestDocumentResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding ingest request: %w", err)
	}

	resp, err := httpClient.Post(baseURL+"/v1/documents", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("contacting orchestrator: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("orchestrator returned status %d: %s", resp.StatusCode, string(data))
	}

	var ingestResp datatypes.IngestDocumentResponse
	if err := json.NewDecoder(resp.Body).Decode(&ingestResp); err != nil {
		return nil, fmt.Errorf("decoding ingest response: %w", err)
	}
	return &ingestResp, nil
}

// checkHealth hits the orchestrator liveness endpoint.
func checkHealth(baseURL string) error {
	resp, err := httpClient.Get(baseURL + "/health")
	if err != nil {
		return fmt.Errorf("contacting orchestrator: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("orchestrator returned status %d", resp.StatusCode)
	}
	return nil
}
