// Copyright (C) 2026 Harbor Labs (dev@harborlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"
)

func runAskCommand(cmd *cobra.Command, args []string) {
	question := strings.Join(args, " ")
	fmt.Printf("Asking: %s\n", question)
	fmt.Println("---")

	chatResp, err := sendChatRequest(getOrchestratorBaseURL(), question, threadID)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	fmt.Printf("\nAnswer:\n%s\n", chatResp.Answer)
	fmt.Printf("\nConfidence: %d/100", chatResp.Confidence)
	if chatResp.IsGrounded {
		fmt.Println(" (grounded)")
	} else {
		fmt.Println(" (not grounded)")
		if len(chatResp.Issues) > 0 {
			fmt.Printf("Issues: %s\n", strings.Join(chatResp.Issues, ", "))
		}
	}

	if len(chatResp.Sources) > 0 {
		fmt.Println("\nSources Used:")
		for _, source := range chatResp.Sources {
			fmt.Printf("%d. %s\n", source.ID, source.Text)
		}
	} else {
		fmt.Println("\n(No sources cited)")
	}

	if chatResp.ActionOutput != "" {
		fmt.Printf("\nDraft:\n%s\n", chatResp.ActionOutput)
	}
	if verbose && len(chatResp.StreamLog) > 0 {
		fmt.Println("\nPipeline stages:")
		for _, entry := range chatResp.StreamLog {
			fmt.Printf("  %s\n", entry)
		}
	}

	fmt.Printf("\nThread: %s\n", chatResp.ThreadID)
	fmt.Println("---")
}
