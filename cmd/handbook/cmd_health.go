// Copyright (C) 2026 Harbor Labs (dev@harborlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func runHealthCommand(cmd *cobra.Command, args []string) {
	baseURL := getOrchestratorBaseURL()
	if err := checkHealth(baseURL); err != nil {
		fmt.Printf("Orchestrator at %s is NOT healthy: %v\n", baseURL, err)
		os.Exit(1)
	}
	fmt.Printf("Orchestrator at %s is healthy.\n", baseURL)
}
