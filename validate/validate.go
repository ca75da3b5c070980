// Command validate checks the start-position presets in the ../configs
// directory. For each *.json file it checks:
//   - JSON structure and required fields
//   - The FEN parses and has exactly one king per side
//   - No pawns stand on the first or last rank
//   - The side that just moved is not left in check
//   - The game is not already over
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wricardo/chess-rooms/game/engine"
)

// Preset mirrors the JSON schema of a start-position file.
type Preset struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	FEN         string `json:"fen"`
}

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// validatePreset loads and validates a single preset file.
func validatePreset(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	var preset Preset
	if err := json.Unmarshal(data, &preset); err != nil {
		result.fail("Invalid JSON: %v", err)
		return result
	}

	if preset.Name == "" {
		result.fail("Missing name")
	}
	if preset.FEN == "" {
		result.fail("Missing fen")
		return result
	}

	board, err := engine.BoardArray(preset.FEN)
	if err != nil {
		result.fail("Invalid FEN: %v", err)
		return result
	}

	problems, err := engine.CheckStartPosition(preset.FEN)
	if err != nil {
		result.fail("Invalid FEN: %v", err)
		return result
	}
	for _, problem := range problems {
		result.fail("%s", problem)
	}
	if !result.Valid {
		return result
	}

	rules := engine.NewChessRules()
	out, err := rules.Evaluate(preset.FEN)
	if err != nil {
		result.fail("Invalid FEN: %v", err)
		return result
	}
	moves := countLegalMoves(rules, preset.FEN, board, out.Turn)

	result.Errors = append(result.Errors, fmt.Sprintf("✓ Name: %s", preset.Name))
	result.Errors = append(result.Errors, fmt.Sprintf("✓ To move: %s (%s)", out.Turn, out.Terminal))
	result.Errors = append(result.Errors, fmt.Sprintf("✓ Pieces: %d", countPieces(board)))
	result.Errors = append(result.Errors, fmt.Sprintf("✓ Legal moves: %d", moves))
	return result
}

func countPieces(board []string) int {
	n := 0
	for _, piece := range board {
		if piece != "" {
			n++
		}
	}
	return n
}

// countLegalMoves sums the legal targets of every piece belonging to turn.
func countLegalMoves(rules engine.Rules, fen string, board []string, turn engine.Color) int {
	total := 0
	for idx, piece := range board {
		if piece == "" || isWhite(piece) != (turn == engine.White) {
			continue
		}
		targets, err := rules.LegalTargets(fen, idx)
		if err != nil {
			continue
		}
		total += len(targets)
	}
	return total
}

func isWhite(piece string) bool {
	return piece == strings.ToUpper(piece)
}

// main scans ../configs for *.json files and validates each one, printing a
// concise report and exiting with non-zero status if any are invalid.
func main() {
	configDir := "../configs"
	if len(os.Args) > 1 {
		configDir = os.Args[1]
	}
	files, err := filepath.Glob(filepath.Join(configDir, "*.json"))
	if err != nil {
		fmt.Printf("Error finding preset files: %v\n", err)
		os.Exit(1)
	}

	allValid := true
	for _, file := range files {
		result := validatePreset(file)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Errors {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				if !strings.HasPrefix(err, "✓") {
					fmt.Println("  ❌ " + err)
				}
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All presets are valid!")
	} else {
		fmt.Println("❌ Some presets have errors")
		os.Exit(1)
	}
}
