package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/notnil/chess"
)

// Rules evaluates chess positions. Implementations must be pure: the result
// depends only on the arguments.
type Rules interface {
	// StartingPosition returns the FEN new games begin from.
	StartingPosition() string
	// Apply validates mv against the position line reaches and returns the
	// resulting position. The positions along line count toward repetition.
	Apply(line Line, mv Move) (Outcome, error)
	// Replay plays line and classifies the position it reaches.
	Replay(line Line) (Outcome, error)
	// Evaluate classifies fen without moving.
	Evaluate(fen string) (Outcome, error)
	// LegalTargets lists the destination indices reachable from the piece on from.
	LegalTargets(fen string, from int) ([]int, error)
}

// ChessRules implements Rules on top of github.com/notnil/chess.
type ChessRules struct {
	start string
}

// NewChessRules returns rules starting from the standard position.
func NewChessRules() *ChessRules {
	return &ChessRules{start: StartingFEN}
}

// NewChessRulesFrom returns rules whose new games start from fen.
func NewChessRulesFrom(fen string) (*ChessRules, error) {
	if err := ValidateStartPosition(fen); err != nil {
		return nil, err
	}
	return &ChessRules{start: fen}, nil
}

// ValidateStartPosition reports whether a game can be played from fen. It
// wraps ErrInvalidPosition when fen does not decode and ErrUnplayablePosition
// when CheckStartPosition finds problems.
func ValidateStartPosition(fen string) error {
	problems, err := CheckStartPosition(fen)
	if err != nil {
		return err
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrUnplayablePosition, strings.Join(problems, "; "))
	}
	return nil
}

// CheckStartPosition lists what makes fen unfit to start a game from. Each
// side needs exactly one king, pawns may not stand on the first or last rank
// and the side that just moved may not be in check. A position that is
// already over is reported only when the board itself is sound.
func CheckStartPosition(fen string) ([]string, error) {
	game, err := load(fen)
	if err != nil {
		return nil, err
	}
	pos := game.Position()
	squares := pos.Board().SquareMap()

	var problems []string
	kings := map[chess.Color]int{}
	for sq, piece := range squares {
		switch piece.Type() {
		case chess.King:
			kings[piece.Color()]++
		case chess.Pawn:
			if rank := sq.Rank(); rank == chess.Rank1 || rank == chess.Rank8 {
				problems = append(problems, "pawn on back rank at "+sq.String())
			}
		}
	}
	sort.Strings(problems)
	for _, c := range []chess.Color{chess.White, chess.Black} {
		if kings[c] != 1 {
			problems = append(problems, fmt.Sprintf("expected exactly 1 %s king, found %d", colorOf(c), kings[c]))
		}
	}
	if len(problems) > 0 {
		return problems, nil
	}

	if kingAttacked(squares, pos.Turn().Other()) {
		problems = append(problems, fmt.Sprintf("%s king is in check with %s to move", colorOf(pos.Turn().Other()), colorOf(pos.Turn())))
		return problems, nil
	}
	if out := describe(game); out.Terminal.IsOver() {
		problems = append(problems, fmt.Sprintf("position is already over: %s", out.Terminal))
	}
	return problems, nil
}

func (r *ChessRules) StartingPosition() string {
	return r.start
}

func (r *ChessRules) Apply(line Line, mv Move) (Outcome, error) {
	game, err := replay(line)
	if err != nil {
		return Outcome{}, err
	}

	from, err := toChessSquare(mv.From)
	if err != nil {
		return Outcome{}, err
	}
	to, err := toChessSquare(mv.To)
	if err != nil {
		return Outcome{}, err
	}
	promo, err := parsePromotion(mv.Promotion)
	if err != nil {
		return Outcome{}, err
	}

	var chosen *chess.Move
	for _, candidate := range game.ValidMoves() {
		if candidate.S1() != from || candidate.S2() != to {
			continue
		}
		if candidate.Promo() == chess.NoPieceType || candidate.Promo() == promo {
			chosen = candidate
			break
		}
	}
	if chosen == nil {
		return Outcome{}, fmt.Errorf("%w: %d to %d", ErrIllegalMove, mv.From, mv.To)
	}
	if err := game.Move(chosen); err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", ErrIllegalMove, err)
	}

	out := describe(game)
	out.UCI = uci(mv.From, mv.To, chosen.Promo())
	if chosen.Promo() != chess.NoPieceType {
		out.Promotion = promotionLetter(chosen.Promo())
	}
	return out, nil
}

func (r *ChessRules) Replay(line Line) (Outcome, error) {
	game, err := replay(line)
	if err != nil {
		return Outcome{}, err
	}
	return describe(game), nil
}

func (r *ChessRules) Evaluate(fen string) (Outcome, error) {
	game, err := load(fen)
	if err != nil {
		return Outcome{}, err
	}
	return describe(game), nil
}

func (r *ChessRules) LegalTargets(fen string, from int) ([]int, error) {
	game, err := load(fen)
	if err != nil {
		return nil, err
	}
	sq, err := toChessSquare(from)
	if err != nil {
		return nil, err
	}

	seen := make(map[int]bool)
	targets := []int{}
	for _, mv := range game.ValidMoves() {
		if mv.S1() != sq {
			continue
		}
		idx := fromChessSquare(mv.S2())
		if !seen[idx] {
			seen[idx] = true
			targets = append(targets, idx)
		}
	}
	sort.Ints(targets)
	return targets, nil
}

func load(fen string) (*chess.Game, error) {
	opt, err := chess.FEN(strings.TrimSpace(fen))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPosition, err)
	}
	return chess.NewGame(opt), nil
}

// replay loads line.Start and plays line.Moves on it, keeping the position
// history the library needs to detect repetition.
func replay(line Line) (*chess.Game, error) {
	game, err := load(line.Start)
	if err != nil {
		return nil, err
	}
	for i, m := range line.Moves {
		move, err := chess.UCINotation{}.Decode(game.Position(), m)
		if err != nil {
			return nil, fmt.Errorf("%w: move %d %q: %v", ErrInvalidPosition, i+1, m, err)
		}
		if err := game.Move(move); err != nil {
			return nil, fmt.Errorf("%w: move %d %q: %v", ErrInvalidPosition, i+1, m, err)
		}
	}
	return game, nil
}

// describe classifies the game's current position.
func describe(game *chess.Game) Outcome {
	pos := game.Position()
	out := Outcome{
		FEN:      pos.String(),
		Turn:     colorOf(pos.Turn()),
		Terminal: Ongoing,
	}

	checked := inCheck(pos)
	if len(game.ValidMoves()) == 0 {
		if checked {
			out.Terminal = Checkmate
			out.Method = "checkmate"
			out.Result = "1-0"
			if pos.Turn() == chess.White {
				out.Result = "0-1"
			}
		} else {
			out.Terminal = Stalemate
			out.Method = "stalemate"
			out.Result = "1/2-1/2"
		}
		return out
	}

	if game.Outcome() == chess.Draw {
		out.Terminal = Draw
		out.Method = methodName(game.Method())
		out.Result = "1/2-1/2"
		return out
	}

	if checked {
		out.Terminal = Check
	}
	return out
}

func colorOf(c chess.Color) Color {
	if c == chess.Black {
		return Black
	}
	return White
}

func methodName(m chess.Method) string {
	switch m {
	case chess.InsufficientMaterial:
		return "insufficient_material"
	case chess.FivefoldRepetition:
		return "fivefold_repetition"
	case chess.SeventyFiveMoveRule:
		return "seventy_five_move_rule"
	case chess.ThreefoldRepetition:
		return "threefold_repetition"
	case chess.FiftyMoveRule:
		return "fifty_move_rule"
	case chess.Stalemate:
		return "stalemate"
	}
	return "draw"
}

func parsePromotion(p string) (chess.PieceType, error) {
	switch strings.ToLower(strings.TrimSpace(p)) {
	case "", "q", "queen":
		return chess.Queen, nil
	case "r", "rook":
		return chess.Rook, nil
	case "b", "bishop":
		return chess.Bishop, nil
	case "n", "knight":
		return chess.Knight, nil
	}
	return chess.NoPieceType, fmt.Errorf("%w: %q", ErrInvalidPromotion, p)
}

func promotionLetter(pt chess.PieceType) string {
	switch pt {
	case chess.Queen:
		return "q"
	case chess.Rook:
		return "r"
	case chess.Bishop:
		return "b"
	case chess.Knight:
		return "n"
	}
	return ""
}

func uci(from, to int, promo chess.PieceType) string {
	a, _ := IndexToSquare(from)
	b, _ := IndexToSquare(to)
	return a + b + promotionLetter(promo)
}
