// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"strings"
	"testing"
)

const testSchema = `
#Recipe: {
	base:  string & !=""
	steps: [...string]
}
`

type testRecipe struct {
	Base  string   `json:"base"`
	Steps []string `json:"steps"`
}

func TestParseAndDecode_Valid(t *testing.T) {
	t.Parallel()

	data := []byte(`
base: "debian:jessie"
steps: ["apt-get update"]
`)

	result, err := ParseAndDecodeString[testRecipe](testSchema, data, "#Recipe",
		WithFilename("recipe.cue"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Value.Base != "debian:jessie" {
		t.Errorf("expected base debian:jessie, got %q", result.Value.Base)
	}
	if len(result.Value.Steps) != 1 || result.Value.Steps[0] != "apt-get update" {
		t.Errorf("unexpected steps: %v", result.Value.Steps)
	}
}

func TestParseAndDecode_SchemaViolation(t *testing.T) {
	t.Parallel()

	// base must be a string, not an int
	data := []byte(`base: 42`)

	_, err := ParseAndDecodeString[testRecipe](testSchema, data, "#Recipe",
		WithFilename("recipe.cue"))
	if err == nil {
		t.Fatal("expected schema violation error")
	}
	if !strings.Contains(err.Error(), "recipe.cue") {
		t.Errorf("error should mention the filename: %v", err)
	}
}

func TestParseAndDecode_SyntaxError(t *testing.T) {
	t.Parallel()

	data := []byte(`base: "unterminated`)

	_, err := ParseAndDecodeString[testRecipe](testSchema, data, "#Recipe")
	if err == nil {
		t.Fatal("expected syntax error")
	}
}

func TestParseAndDecode_UnknownSchemaPath(t *testing.T) {
	t.Parallel()

	_, err := ParseAndDecodeString[testRecipe](testSchema, []byte(`base: "x"`), "#Missing")
	if err == nil {
		t.Fatal("expected error for unknown schema path")
	}
	if !strings.Contains(err.Error(), "internal error") {
		t.Errorf("expected internal error message, got: %v", err)
	}
}

func TestParseAndDecode_FileSizeLimit(t *testing.T) {
	t.Parallel()

	data := []byte(`base: "debian:jessie"`)

	_, err := ParseAndDecodeString[testRecipe](testSchema, data, "#Recipe",
		WithMaxFileSize(4), WithFilename("big.cue"))
	if err == nil {
		t.Fatal("expected file size error")
	}
	if !strings.Contains(err.Error(), "exceeds maximum") {
		t.Errorf("expected size limit message, got: %v", err)
	}
}

func TestFormatPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		path []string
		want string
	}{
		{"empty", nil, ""},
		{"simple field", []string{"base"}, "base"},
		{"nested field", []string{"steps", "0", "command"}, "steps[0].command"},
		{"leading index stays plain", []string{"0", "name"}, "0.name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := formatPath(tt.path); got != tt.want {
				t.Errorf("formatPath(%v) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}
