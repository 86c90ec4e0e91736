// Copyright (C) 2026 Harbor Labs (dev@harborlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"github.com/spf13/cobra"

	"github.com/harborlabs/handbookrag/pkg/logging"
)

var logger = logging.Default()

// --- Global Command Variables ---
var (
	threadID   string
	collection string
	verbose    bool

	rootCmd = &cobra.Command{
		Use:   "handbook",
		Short: "A cli to query and manage the handbook question answering service",
		Long: `Handbook is a tool for asking grounded questions against your
company handbook corpus and for loading handbook documents into it.`,
	}

	// --- Ask ---
	askCmd = &cobra.Command{
		Use:   "ask [question]",
		Short: "Asks a question against the ingested handbook documents",
		Args:  cobra.MinimumNArgs(1),
		Run:   runAskCommand, // Defined in cmd_ask.go
	}

	// --- Ingest ---
	ingestCmd = &cobra.Command{
		Use:     "ingest [file or directory path]",
		Short:   "Loads handbook files into the corpus",
		Aliases: []string{"i"},
		Args:    cobra.MinimumNArgs(1),
		Run:     runIngestCommand, // Defined in cmd_ingest.go
	}

	// --- Health ---
	healthCmd = &cobra.Command{
		Use:   "health",
		Short: "Checks that the orchestrator service is reachable",
		Run:   runHealthCommand, // Defined in cmd_health.go
	}
)

func init() {
	askCmd.Flags().StringVar(&threadID, "thread", "", "Thread id to continue a conversation")
	askCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print the pipeline stage log")
	ingestCmd.Flags().StringVar(&collection, "collection", "", "Handbook name for the ingested chunks (defaults to the file name)")

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(healthCmd)
}
