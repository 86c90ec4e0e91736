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

// QueryUnderstander classifies a query's intent, retrieval strategy, and
// whether it requests an action deliverable.
//
// Intent classification embeds the query and every intent label description
// and picks the closest by cosine similarity. Strategy and action detection
// are keyword heuristics and need no model call, so they always succeed.
// An embedding failure degrades to the general_policy intent rather than
// failing the request.
type QueryUnderstander struct {
	embedder Embedder
	cfg      Config
}

// NewQueryUnderstander creates a QueryUnderstander.
func NewQueryUnderstander(embedder Embedder, cfg Config) *QueryUnderstander {
	return &QueryUnderstander{embedder: embedder, cfg: cfg}
}

// Understand classifies the query. It never returns an error: a failed or
// inconclusive classification falls back to general_policy with the
// heuristic strategy and action flags still applied.
func (u *QueryUnderstander) Understand(ctx context.Context, query string) Understanding {
	result := Understanding{
		Intent:      GeneralPolicyIntent,
		Strategy:    u.detectStrategy(query),
		NeedsAction: u.detectAction(query),
	}

	intent, err := u.classifyIntent(ctx, query)
	if err != nil {
		slog.Warn("Intent classification failed, using general_policy", "error", err)
		return result
	}
	result.Intent = intent
	return result
}

// classifyIntent picks the intent label whose description embeds closest
// to the query. Ties keep the earlier label.
func (u *QueryUnderstander) classifyIntent(ctx context.Context, query string) (string, error) {
	queryVec, err := u.embedder.Embed(ctx, query)
	if err != nil {
		return "", err
	}

	descriptions := make([]string, len(u.cfg.Intents))
	for i, label := range u.cfg.Intents {
		descriptions[i] = label.Description
	}
	labelVecs, err := u.embedder.EmbedBatch(ctx, descriptions)
	if err != nil {
		return "", err
	}

	best := GeneralPolicyIntent
	bestScore := -1.0
	for i, vec := range labelVecs {
		if i >= len(u.cfg.Intents) {
			break
		}
		if score := cosineSimilarity(queryVec, vec); score > bestScore {
			bestScore = score
			best = u.cfg.Intents[i].Name
		}
	}
	return best, nil
}

// detectStrategy returns MultiHop when the query contains any of the
// configured trigger phrases, otherwise SingleHop.
func (u *QueryUnderstander) detectStrategy(query string) RetrievalStrategy {
	q := strings.ToLower(query)
	for _, trigger := range u.cfg.MultiHopTriggers {
		if strings.Contains(q, trigger) {
			return MultiHop
		}
	}
	return SingleHop
}

// detectAction reports whether the query asks for a deliverable such as an
// email draft, checklist, or summary.
func (u *QueryUnderstander) detectAction(query string) bool {
	q := strings.ToLower(query)
	for _, hint := range u.cfg.ActionHints {
		if strings.Contains(q, hint) {
			return true
		}
	}
	return false
}
