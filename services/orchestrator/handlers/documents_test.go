// Copyright (C) 2026 Harbor Labs (dev@harborlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitterForFile_MarkdownSplitsOnHeadings(t *testing.T) {
	splitter := splitterForFile("hr_handbook.md")

	text := "# Leave Policy\n\n" + strings.Repeat("Employees accrue leave monthly. ", 40) +
		"\n## Notice Period\n\n" + strings.Repeat("Thirty days of notice are required. ", 40)
	chunks, err := splitter.SplitText(text)
	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), chunkSize+chunkOverlap)
	}
}

func TestSplitterForFile_DefaultForUnknownExtension(t *testing.T) {
	splitter := splitterForFile("hr_handbook.txt")

	chunks, err := splitter.SplitText("A short policy paragraph.")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "A short policy paragraph.", chunks[0])
}

func TestCollectionFromSource(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"docs/hr_handbook.md", "hr_handbook"},
		{"hr_handbook.pdf", "hr_handbook"},
		{"it_policy", "it_policy"},
		{"", "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, collectionFromSource(tt.source), "source %q", tt.source)
	}
}

func TestHandleIngestDocument_InvalidBodyRejected(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/v1/documents", HandleIngestDocument(nil, nil))

	req := httptest.NewRequest(http.MethodPost, "/v1/documents", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleIngestDocument_MissingContentRejected(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/v1/documents", HandleIngestDocument(nil, nil))

	req := httptest.NewRequest(http.MethodPost, "/v1/documents",
		strings.NewReader(`{"source":"hr_handbook.md"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
