// Copyright (C) 2026 Harbor Labs (dev@harborlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChatRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		request ChatRequest
		wantErr bool
	}{
		{"valid", ChatRequest{Query: "What is the notice period?"}, false},
		{"valid with thread", ChatRequest{Query: "And after probation?", ThreadID: "t-1"}, false},
		{"empty", ChatRequest{Query: ""}, true},
		{"whitespace only", ChatRequest{Query: "   \n\t"}, true},
		{"at size limit", ChatRequest{Query: strings.Repeat("a", MaxQueryBytes)}, false},
		{"over size limit", ChatRequest{Query: strings.Repeat("a", MaxQueryBytes+1)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.request.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
