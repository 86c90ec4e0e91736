// Copyright (C) 2026 Harbor Labs (dev@harborlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/harborlabs/handbookrag/services/orchestrator/datatypes"
)

// ingestExtensions lists the file types the CLI will send for ingestion.
var ingestExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
	".txt":      true,
}

func runIngestCommand(cmd *cobra.Command, args []string) {
	baseURL := getOrchestratorBaseURL()

	var files []string
	for _, path := range args {
		found, err := collectIngestibleFiles(path)
		if err != nil {
			log.Fatalf("Error scanning %s: %v", path, err)
		}
		files = append(files, found...)
	}
	if len(files) == 0 {
		log.Fatalf("No ingestible files found (expected %s)", strings.Join(sortedExtensions(), ", "))
	}

	totalChunks := 0
	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			log.Fatalf("Error reading %s: %v", file, err)
		}

		resp, err := sendIngestRequest(baseURL, datatypes.IngestDocumentRequest{
			Content:    string(content),
			Source:     filepath.Base(file),
			Collection: collection,
		})
		if err != nil {
			log.Fatalf("Error ingesting %s: %v", file, err)
		}
		fmt.Printf("Ingested %s: %d chunks\n", file, resp.ChunksCreated)
		totalChunks += resp.ChunksCreated
	}
	fmt.Printf("Done. %d files, %d chunks.\n", len(files), totalChunks)
}

// collectIngestibleFiles expands a path into the handbook files under it.
func collectIngestibleFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		if !ingestExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil, fmt.Errorf("unsupported file type: %s", path)
		}
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && ingestExtensions[strings.ToLower(filepath.Ext(p))] {
			files = append(files, p)
		}
		return nil
	})
	return files, err
}

func sortedExtensions() []string {
	exts := make([]string, 0, len(ingestExtensions))
	for ext := range ingestExtensions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
