// Copyright 2025 The PEAC Protocol Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidateFileExists(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "keys.json")
	if err := os.WriteFile(tmpFile, []byte("{}"), 0o600); err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}

	tests := []struct {
		name      string
		fieldName string
		path      string
		wantErr   bool
	}{
		{
			name:      "valid file",
			fieldName: "keys file",
			path:      tmpFile,
			wantErr:   false,
		},
		{
			name:      "empty path",
			fieldName: "keys file",
			path:      "",
			wantErr:   true,
		},
		{
			name:      "non-existent file",
			fieldName: "keys file",
			path:      "/nonexistent/keys.json",
			wantErr:   true,
		},
		{
			name:      "directory instead of file",
			fieldName: "keys file",
			path:      os.TempDir(),
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFileExists(tt.fieldName, tt.path)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFileExists() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateOptionalFile(t *testing.T) {
	if err := ValidateOptionalFile("config file", ""); err != nil {
		t.Errorf("ValidateOptionalFile() with empty path = %v, want nil", err)
	}
	if err := ValidateOptionalFile("config file", "/nonexistent/config.yaml"); err == nil {
		t.Error("ValidateOptionalFile() with missing path = nil, want error")
	}
}

func TestMaskToken(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  string
	}{
		{"empty", "", ""},
		{"short", "abc", "***"},
		{"eight chars", "12345678", "***"},
		{"long token", "sk-live-abcdef123456", "sk-l...3456"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MaskToken(tt.token); got != tt.want {
				t.Errorf("MaskToken(%q) = %q, want %q", tt.token, got, tt.want)
			}
		})
	}
}
