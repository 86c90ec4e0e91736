// Copyright (C) 2026 Harbor Labs (dev@harborlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package pipeline

// ResolvePrimaryHandbook returns the most frequent source collection among
// the documents, plus the full distribution. Ties break toward the
// collection encountered first in input order (stable most-common). An
// empty input resolves to the "unknown" sentinel.
func ResolvePrimaryHandbook(docs []Document) (string, map[string]int) {
	counts := make(map[string]int, 4)
	var order []string
	for _, d := range docs {
		name := d.Collection()
		if counts[name] == 0 {
			order = append(order, name)
		}
		counts[name]++
	}

	if len(order) == 0 {
		return UnknownCollection, counts
	}

	primary := order[0]
	for _, name := range order[1:] {
		if counts[name] > counts[primary] {
			primary = name
		}
	}
	return primary, counts
}

// FilterByHandbook keeps only documents from the given collection. A
// single answer must never blend policy text from two handbooks, so this
// runs between reranking and compression. Filtering by the "unknown"
// sentinel is a no-op: without collection metadata there is nothing to
// separate.
func FilterByHandbook(docs []Document, handbook string) []Document {
	if handbook == UnknownCollection {
		return docs
	}
	filtered := make([]Document, 0, len(docs))
	for _, d := range docs {
		if d.Collection() == handbook {
			filtered = append(filtered, d)
		}
	}
	return filtered
}
