package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wricardo/chess-rooms/game/engine"
)

func writePreset(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "preset.json")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write preset: %v", err)
	}
	return path
}

func hasMessage(result ValidationResult, substr string) bool {
	for _, msg := range result.Errors {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}

func TestValidatePreset_Valid(t *testing.T) {
	path := writePreset(t, `{"name": "Standard", "description": "Initial position", "fen": "`+engine.StartingFEN+`"}`)

	result := validatePreset(path)
	if !result.Valid {
		t.Fatalf("Expected valid preset, but got errors: %v", result.Errors)
	}
	if result.File != "preset.json" {
		t.Errorf("Expected file name preset.json, got %s", result.File)
	}
	for _, want := range []string{"To move: white", "Pieces: 32", "Legal moves: 20"} {
		if !hasMessage(result, want) {
			t.Errorf("Expected %q in %v", want, result.Errors)
		}
	}
}

func TestValidatePreset_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"invalid json", `{"name": "x", invalid json}`, "Invalid JSON"},
		{"missing fen", `{"name": "x"}`, "Missing fen"},
		{"missing name", `{"fen": "` + engine.StartingFEN + `"}`, "Missing name"},
		{"bad fen", `{"name": "x", "fen": "not a fen"}`, "Invalid FEN"},
		{"no black king", `{"name": "x", "fen": "8/8/8/8/8/8/8/4K3 w - - 0 1"}`, "black king"},
		{"pawn on back rank", `{"name": "x", "fen": "P3k3/8/8/8/8/8/8/4K3 w - - 0 1"}`, "pawn on back rank at a8"},
		{"already mated", `{"name": "x", "fen": "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3"}`, "already over: checkmate"},
		{"opponent in check", `{"name": "x", "fen": "4k3/8/8/8/8/8/8/4R1K1 w - - 0 1"}`, "black king is in check"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := validatePreset(writePreset(t, tt.content))
			if result.Valid {
				t.Fatal("Expected invalid preset")
			}
			if !hasMessage(result, tt.want) {
				t.Errorf("Expected %q in %v", tt.want, result.Errors)
			}
		})
	}
}

func TestValidatePreset_MissingFile(t *testing.T) {
	result := validatePreset("/non/existent/file.json")
	if result.Valid {
		t.Error("Expected invalid result for missing file")
	}
	if !hasMessage(result, "Failed to read file") {
		t.Errorf("Expected read error, got %v", result.Errors)
	}
}

func TestRepositoryPresets(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("..", "configs", "*.json"))
	if err != nil {
		t.Fatalf("Glob failed: %v", err)
	}
	if len(files) == 0 {
		t.Skip("Skipping test - configs directory not found")
	}

	for _, file := range files {
		t.Run(filepath.Base(file), func(t *testing.T) {
			if result := validatePreset(file); !result.Valid {
				t.Errorf("Expected shipped preset to be valid: %v", result.Errors)
			}
		})
	}
}
