// Command analyze prints quick, human-readable heuristics about the
// start-position presets in the project's configs directory. It summarizes
// material for each side, the side to move and whether it is in check, and
// how many legal moves it has.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/wricardo/chess-rooms/game/config"
	"github.com/wricardo/chess-rooms/game/engine"
)

// pieceValues are conventional material values in pawns.
var pieceValues = map[string]int{"p": 1, "n": 3, "b": 3, "r": 5, "q": 9}

// Material counts pieces and pawn-value totals for one side.
type Material struct {
	Pieces map[string]int
	Points int
}

// Analysis summarizes one preset.
type Analysis struct {
	ConfigID   string
	Name       string
	Turn       engine.Color
	Terminal   engine.TerminalState
	White      Material
	Black      Material
	LegalMoves int
}

// Balance is white's material minus black's.
func (a Analysis) Balance() int {
	return a.White.Points - a.Black.Points
}

func main() {
	configDir := "configs"
	if len(os.Args) > 1 {
		configDir = os.Args[1]
	}

	manager, err := config.NewManager(configDir)
	if err != nil {
		fmt.Printf("Error opening presets: %v\n", err)
		os.Exit(1)
	}
	presets, err := manager.ListConfigs()
	if err != nil {
		fmt.Printf("Error listing presets: %v\n", err)
		os.Exit(1)
	}

	rules := engine.NewChessRules()
	for _, p := range presets {
		fmt.Printf("\n=== Analyzing %s ===\n", p.ConfigID)
		analysis, err := analyzePreset(rules, p)
		if err != nil {
			fmt.Printf("Error analyzing preset: %v\n", err)
			continue
		}
		fmt.Print(report(analysis))
	}
}

func analyzePreset(rules engine.Rules, p *config.PresetInfo) (Analysis, error) {
	board, err := engine.BoardArray(p.FEN)
	if err != nil {
		return Analysis{}, err
	}
	out, err := rules.Evaluate(p.FEN)
	if err != nil {
		return Analysis{}, err
	}

	a := Analysis{
		ConfigID: p.ConfigID,
		Name:     p.Name,
		Turn:     out.Turn,
		Terminal: out.Terminal,
		White:    Material{Pieces: map[string]int{}},
		Black:    Material{Pieces: map[string]int{}},
	}

	for idx, piece := range board {
		if piece == "" {
			continue
		}
		side := &a.Black
		white := piece == strings.ToUpper(piece)
		if white {
			side = &a.White
		}
		kind := strings.ToLower(piece)
		side.Pieces[kind]++
		side.Points += pieceValues[kind]

		if white == (out.Turn == engine.White) {
			targets, err := rules.LegalTargets(p.FEN, idx)
			if err == nil {
				a.LegalMoves += len(targets)
			}
		}
	}
	return a, nil
}

func report(a Analysis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", a.Name)
	fmt.Fprintf(&b, "White: %s (%d)\n", describeMaterial(a.White), a.White.Points)
	fmt.Fprintf(&b, "Black: %s (%d)\n", describeMaterial(a.Black), a.Black.Points)
	fmt.Fprintf(&b, "Balance: %+d\n", a.Balance())
	fmt.Fprintf(&b, "To move: %s, %d legal moves\n", a.Turn, a.LegalMoves)

	switch {
	case a.Terminal.IsOver():
		fmt.Fprintf(&b, "⚠️  WARNING: position is already over (%s)\n", a.Terminal)
	case a.Terminal == engine.Check:
		fmt.Fprintf(&b, "⚠️  Side to move starts in check\n")
	default:
		fmt.Fprintf(&b, "✅ Playable start position\n")
	}
	return b.String()
}

func describeMaterial(m Material) string {
	parts := []string{}
	for _, kind := range []string{"k", "q", "r", "b", "n", "p"} {
		if n := m.Pieces[kind]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d%s", n, strings.ToUpper(kind)))
		}
	}
	return strings.Join(parts, " ")
}
