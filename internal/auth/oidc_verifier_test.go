// Vantage - Brand Workspace Platform API
// Copyright 2026 Nadia Moreau (nmoreau)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nmoreau/vantage

package auth

import (
	"reflect"
	"testing"
)

func TestStringSliceClaim(t *testing.T) {
	tests := []struct {
		name   string
		claims map[string]any
		want   []string
	}{
		{"nil claims", nil, nil},
		{"missing claim", map[string]any{}, nil},
		{"json decoded slice", map[string]any{"roles": []any{"member", "editor"}}, []string{"member", "editor"}},
		{"string slice", map[string]any{"roles": []string{"admin"}}, []string{"admin"}},
		{"single string", map[string]any{"roles": "owner"}, []string{"owner"}},
		{"mixed slice drops non-strings", map[string]any{"roles": []any{"member", 42}}, []string{"member"}},
		{"wrong type", map[string]any{"roles": 7}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := stringSliceClaim(tt.claims, "roles")
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("stringSliceClaim = %v, want %v", got, tt.want)
			}
		})
	}
}
