// Copyright (C) 2026 Harbor Labs (dev@harborlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package llm wraps the text-generation backends (OpenAI, Ollama) behind a
// common client interface and adapts them to the pipeline's Generator.
package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/harborlabs/handbookrag/services/pipeline"
)

// GenerationParams carries optional sampling parameters. Nil fields use the
// backend's defaults.
type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopK        *int     `json:"top_k"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// LLMClient is the standard interface for any generation backend.
type LLMClient interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
}

// Generator adapts an LLMClient to pipeline.Generator with fixed sampling
// parameters. The pipeline builds its own prompts and never varies
// per-call sampling, so the parameters are bound once here.
type Generator struct {
	client LLMClient
	params GenerationParams
}

// Compile-time interface implementation check.
var _ pipeline.Generator = (*Generator)(nil)

// NewGenerator binds an LLMClient and sampling parameters into a
// pipeline.Generator.
func NewGenerator(client LLMClient, params GenerationParams) *Generator {
	return &Generator{client: client, params: params}
}

// DefaultParams returns the sampling defaults used for handbook answers:
// low temperature to keep generation close to the provided context.
func DefaultParams() GenerationParams {
	temperature := float32(0.1)
	maxTokens := 1024
	return GenerationParams{
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	}
}

// Generate implements pipeline.Generator.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	return g.client.Generate(ctx, prompt, g.params)
}

// NewClientFromEnv builds the LLMClient selected by the LLM_BACKEND
// environment variable ("openai" or "ollama"; default "ollama").
func NewClientFromEnv() (LLMClient, error) {
	backend := os.Getenv("LLM_BACKEND")
	switch backend {
	case "openai":
		return NewOpenAIClient()
	case "ollama", "":
		return NewOllamaClient()
	default:
		return nil, fmt.Errorf("unknown LLM_BACKEND %q (want openai or ollama)", backend)
	}
}
