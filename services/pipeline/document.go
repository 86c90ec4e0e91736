// Copyright (C) 2026 Harbor Labs (dev@harborlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package pipeline implements the retrieval-augmented answer pipeline for
// handbook question answering.
//
// The pipeline is a sequential state machine that understands query intent,
// rewrites the query for retrieval, performs hybrid (dense + lexical)
// retrieval, optionally expands retrieval with a second hop, filters to a
// single primary handbook, reranks candidates, compresses context, generates
// a grounded answer, verifies grounding, and retries once on weak
// verification. All model and index access goes through the capability
// interfaces in interfaces.go so the core has no dependency on any specific
// provider.
package pipeline

import "fmt"

// Document is an immutable unit of retrievable handbook text.
//
// Two documents with the same (SourceCollection, Page, ChunkIndex) key are
// considered duplicates and must never both survive a merge.
type Document struct {
	// Content is the chunk text.
	Content string `json:"content"`

	// SourceCollection identifies the owning handbook. The sentinel
	// "unknown" means no collection metadata was available.
	SourceCollection string `json:"source_collection"`

	// Page is the page number within the source handbook.
	Page int `json:"page"`

	// ChunkIndex is the chunk position within the source page.
	ChunkIndex int `json:"chunk_index"`
}

// UnknownCollection is the sentinel used when a document carries no
// collection metadata. Handbook filtering is a no-op for this value.
const UnknownCollection = "unknown"

// Key returns the identity key used for deduplication on merge.
func (d Document) Key() string {
	return fmt.Sprintf("%s|%d|%d", d.SourceCollection, d.Page, d.ChunkIndex)
}

// Collection returns the source collection, substituting the "unknown"
// sentinel for an empty value.
func (d Document) Collection() string {
	if d.SourceCollection == "" {
		return UnknownCollection
	}
	return d.SourceCollection
}

// mergeDocuments unions two document lists, keeping the first occurrence of
// each identity key. Relative order within each input is preserved, with
// all of first appearing before any addition from second.
func mergeDocuments(first, second []Document) []Document {
	seen := make(map[string]bool, len(first)+len(second))
	merged := make([]Document, 0, len(first)+len(second))
	for _, d := range first {
		if !seen[d.Key()] {
			seen[d.Key()] = true
			merged = append(merged, d)
		}
	}
	for _, d := range second {
		if !seen[d.Key()] {
			seen[d.Key()] = true
			merged = append(merged, d)
		}
	}
	return merged
}
