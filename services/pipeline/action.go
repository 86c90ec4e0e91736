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
	"strings"
)

// ActionGenerator produces the deliverable a query asked for (an email
// draft, a checklist, a summary) from the compressed handbook context.
type ActionGenerator struct {
	generator Generator
}

// NewActionGenerator creates an ActionGenerator.
func NewActionGenerator(generator Generator) *ActionGenerator {
	return &ActionGenerator{generator: generator}
}

const actionPromptTemplate = `You are an enterprise action agent.

Based on the handbook context, generate the requested deliverable.
Examples: email draft, checklist, summary.

User request:
%s

Handbook Context:
%s

Return the deliverable.`

// Generate produces the deliverable text.
func (a *ActionGenerator) Generate(ctx context.Context, query, contextText string) (string, error) {
	output, err := a.generator.Generate(ctx, fmt.Sprintf(actionPromptTemplate, query, contextText))
	if err != nil {
		return "", fmt.Errorf("action generation: %w", err)
	}
	return strings.TrimSpace(output), nil
}
