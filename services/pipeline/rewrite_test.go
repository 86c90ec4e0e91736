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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRewrite_UsesGeneratedQuery(t *testing.T) {
	gen := &fakeGenerator{fn: func(string) (string, error) {
		return "  notice period resignation rules  ", nil
	}}
	r := NewQueryRewriter(gen)

	got := r.Rewrite(context.Background(), "hey, what's my notice period again?", "notice_period")

	assert.Equal(t, "notice period resignation rules", got)
	assert.Contains(t, gen.lastPrompt(), "Intent: notice_period")
	assert.Contains(t, gen.lastPrompt(), "hey, what's my notice period again?")
}

func TestRewrite_GenerationErrorFallsBackToOriginal(t *testing.T) {
	gen := &fakeGenerator{fn: func(string) (string, error) {
		return "", errors.New("model unavailable")
	}}
	r := NewQueryRewriter(gen)

	got := r.Rewrite(context.Background(), "original query", "general_policy")

	assert.Equal(t, "original query", got)
}

func TestRewrite_DegenerateOutputFallsBackToOriginal(t *testing.T) {
	for _, degenerate := range []string{"", "  ", "ok"} {
		gen := &fakeGenerator{fn: func(string) (string, error) {
			return degenerate, nil
		}}
		r := NewQueryRewriter(gen)

		got := r.Rewrite(context.Background(), "original query", "general_policy")

		assert.Equalf(t, "original query", got, "output %q", degenerate)
	}
}
