package engine

import (
	"errors"
	"reflect"
	"testing"

	"github.com/notnil/chess"
)

// Board indices used across the tests.
const (
	e2 = 52
	e4 = 36
	d2 = 51
	d4 = 35
	e7 = 12
	e5 = 28
	f2 = 53
	f3 = 45
	f7 = 13
	f6 = 21
	g2 = 54
	g4 = 38
	d8 = 3
	h4 = 39
	d1 = 59
	h5 = 31
)

func applyAll(t *testing.T, rules Rules, fen string, moves ...Move) Outcome {
	t.Helper()
	line := At(fen)
	out := Outcome{FEN: fen}
	for _, mv := range moves {
		var err error
		out, err = rules.Apply(line, mv)
		if err != nil {
			t.Fatalf("Apply(%+v) error: %v", mv, err)
		}
		line = line.Extend(out)
	}
	return out
}

func TestApplyOpeningMove(t *testing.T) {
	rules := NewChessRules()

	out, err := rules.Apply(At(rules.StartingPosition()), Move{From: e2, To: e4})
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	if out.Turn != Black {
		t.Errorf("Turn = %s, want black", out.Turn)
	}
	if out.Terminal != Ongoing {
		t.Errorf("Terminal = %s, want ongoing", out.Terminal)
	}
	if out.UCI != "e2e4" {
		t.Errorf("UCI = %q, want e2e4", out.UCI)
	}

	board, err := BoardArray(out.FEN)
	if err != nil {
		t.Fatalf("BoardArray error: %v", err)
	}
	if board[e2] != "" || board[e4] != "P" {
		t.Errorf("board e2=%q e4=%q, want empty and P", board[e2], board[e4])
	}
}

func TestApplyMatchesLibraryFold(t *testing.T) {
	rules := NewChessRules()
	moves := []Move{{From: e2, To: e4}, {From: e7, To: e5}, {From: g2, To: g4}, {From: d8, To: h4}}
	got := applyAll(t, rules, StartingFEN, moves...)

	game := chess.NewGame()
	for _, m := range []string{"e2e4", "e7e5", "g2g4", "d8h4"} {
		mv, err := chess.UCINotation{}.Decode(game.Position(), m)
		if err != nil {
			t.Fatalf("decode %s: %v", m, err)
		}
		if err := game.Move(mv); err != nil {
			t.Fatalf("move %s: %v", m, err)
		}
	}

	if got.FEN != game.Position().String() {
		t.Errorf("FEN = %q, want %q", got.FEN, game.Position().String())
	}
}

func TestApplyRejectsOutOfTurnMove(t *testing.T) {
	rules := NewChessRules()
	after := applyAll(t, rules, StartingFEN, Move{From: e2, To: e4})

	_, err := rules.Apply(At(after.FEN), Move{From: d2, To: d4})
	if !errors.Is(err, ErrIllegalMove) {
		t.Fatalf("error = %v, want ErrIllegalMove", err)
	}
}

func TestApplyRejectsBadInput(t *testing.T) {
	rules := NewChessRules()

	tests := []struct {
		name string
		fen  string
		move Move
		want error
	}{
		{"empty square", StartingFEN, Move{From: 36, To: 28}, ErrIllegalMove},
		{"blocked piece", StartingFEN, Move{From: 56, To: 40}, ErrIllegalMove},
		{"source off board", StartingFEN, Move{From: -1, To: 36}, ErrInvalidSquare},
		{"target off board", StartingFEN, Move{From: e2, To: 64}, ErrInvalidSquare},
		{"bad promotion", StartingFEN, Move{From: e2, To: e4, Promotion: "x"}, ErrInvalidPromotion},
		{"bad fen", "not a fen", Move{From: e2, To: e4}, ErrInvalidPosition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := rules.Apply(At(tt.fen), tt.move); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestFoolsMate(t *testing.T) {
	rules := NewChessRules()
	out := applyAll(t, rules, StartingFEN,
		Move{From: f2, To: f3},
		Move{From: e7, To: e5},
		Move{From: g2, To: g4},
		Move{From: d8, To: h4},
	)

	if out.Terminal != Checkmate {
		t.Fatalf("Terminal = %s, want checkmate", out.Terminal)
	}
	if !out.Terminal.IsOver() {
		t.Error("checkmate should end the game")
	}
	if out.Result != "0-1" || out.Winner() != Black {
		t.Errorf("Result = %q winner = %q, want 0-1 black", out.Result, out.Winner())
	}
}

func TestCheckIsReportedButNotTerminal(t *testing.T) {
	rules := NewChessRules()
	out := applyAll(t, rules, StartingFEN,
		Move{From: e2, To: e4},
		Move{From: f7, To: f6},
		Move{From: d1, To: h5},
	)

	if out.Terminal != Check {
		t.Fatalf("Terminal = %s, want check", out.Terminal)
	}
	if out.Terminal.IsOver() {
		t.Error("check should not end the game")
	}

	eval, err := rules.Evaluate(out.FEN)
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}
	if eval.Terminal != Check {
		t.Errorf("Evaluate terminal = %s, want check", eval.Terminal)
	}
}

func TestStalemate(t *testing.T) {
	rules := NewChessRules()

	// White queen f2 to f7 leaves the black king on h8 without a move.
	out, err := rules.Apply(At("7k/8/6K1/8/8/8/5Q2/8 w - - 0 1"), Move{From: f2, To: f7})
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	if out.Terminal != Stalemate {
		t.Errorf("Terminal = %s, want stalemate", out.Terminal)
	}
	if out.Result != "1/2-1/2" {
		t.Errorf("Result = %q, want 1/2-1/2", out.Result)
	}
}

func TestInsufficientMaterialDraw(t *testing.T) {
	rules := NewChessRules()

	// King on g1 takes the last rook on h1.
	out, err := rules.Apply(At("7k/8/8/8/8/8/8/6Kr w - - 0 1"), Move{From: 62, To: 63})
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	if out.Terminal != Draw {
		t.Errorf("Terminal = %s, want draw", out.Terminal)
	}
	if out.Method != "insufficient_material" {
		t.Errorf("Method = %q, want insufficient_material", out.Method)
	}
}

func TestPromotion(t *testing.T) {
	rules := NewChessRules()
	fen := "7k/P7/8/8/8/8/8/K7 w - - 0 1"
	a7, a8 := 8, 0

	t.Run("defaults to queen", func(t *testing.T) {
		out, err := rules.Apply(At(fen), Move{From: a7, To: a8})
		if err != nil {
			t.Fatalf("Apply error: %v", err)
		}
		board, _ := BoardArray(out.FEN)
		if board[a8] != "Q" {
			t.Errorf("a8 = %q, want Q", board[a8])
		}
		if out.UCI != "a7a8q" {
			t.Errorf("UCI = %q, want a7a8q", out.UCI)
		}
	})

	t.Run("underpromotion", func(t *testing.T) {
		out, err := rules.Apply(At(fen), Move{From: a7, To: a8, Promotion: "n"})
		if err != nil {
			t.Fatalf("Apply error: %v", err)
		}
		board, _ := BoardArray(out.FEN)
		if board[a8] != "N" {
			t.Errorf("a8 = %q, want N", board[a8])
		}
	})
}

func TestLegalTargets(t *testing.T) {
	rules := NewChessRules()

	targets, err := rules.LegalTargets(StartingFEN, e2)
	if err != nil {
		t.Fatalf("LegalTargets error: %v", err)
	}
	if want := []int{e4, 44}; !reflect.DeepEqual(targets, want) {
		t.Errorf("targets = %v, want %v", targets, want)
	}

	targets, err = rules.LegalTargets(StartingFEN, e7)
	if err != nil {
		t.Fatalf("LegalTargets error: %v", err)
	}
	if len(targets) != 0 {
		t.Errorf("black pawn on white's turn should have no targets, got %v", targets)
	}
}

func TestNewChessRulesFrom(t *testing.T) {
	if _, err := NewChessRulesFrom("garbage"); !errors.Is(err, ErrInvalidPosition) {
		t.Errorf("error = %v, want ErrInvalidPosition", err)
	}

	fen := "7k/8/6K1/8/8/8/5Q2/8 w - - 0 1"
	rules, err := NewChessRulesFrom(fen)
	if err != nil {
		t.Fatalf("NewChessRulesFrom error: %v", err)
	}
	if rules.StartingPosition() != fen {
		t.Errorf("StartingPosition = %q", rules.StartingPosition())
	}

	if _, err := NewChessRulesFrom("8/8/8/8/8/8/8/4K3 w - - 0 1"); !errors.Is(err, ErrUnplayablePosition) {
		t.Errorf("error = %v, want ErrUnplayablePosition", err)
	}
}

func TestFivefoldRepetitionDraw(t *testing.T) {
	rules := NewChessRules()
	g1, g8 := 62, 6
	cycle := []Move{{From: g1, To: f3}, {From: g8, To: f6}, {From: f3, To: g1}, {From: f6, To: g8}}

	line := At(StartingFEN)
	var out Outcome
	for round := 1; round <= 4; round++ {
		for i, mv := range cycle {
			var err error
			out, err = rules.Apply(line, mv)
			if err != nil {
				t.Fatalf("round %d move %d: %v", round, i, err)
			}
			line = line.Extend(out)
			last := round == 4 && i == len(cycle)-1
			if !last && out.Terminal.IsOver() {
				t.Fatalf("round %d move %d: game ended early with %s (%s)", round, i, out.Terminal, out.Method)
			}
		}
	}

	// the starting position has now occurred five times
	if out.Terminal != Draw {
		t.Fatalf("Terminal = %s, want draw", out.Terminal)
	}
	if out.Method != "fivefold_repetition" || out.Result != "1/2-1/2" {
		t.Errorf("Method = %q Result = %q, want fivefold_repetition 1/2-1/2", out.Method, out.Result)
	}
	if len(line.Moves) != 16 || line.Start != StartingFEN {
		t.Errorf("line = %d moves from %q, want 16 from the start", len(line.Moves), line.Start)
	}

	replayed, err := rules.Replay(line)
	if err != nil {
		t.Fatalf("Replay error: %v", err)
	}
	if replayed.Terminal != Draw || replayed.Method != "fivefold_repetition" {
		t.Errorf("Replay = %s (%s), want fivefold draw", replayed.Terminal, replayed.Method)
	}
	if eval, _ := rules.Evaluate(out.FEN); eval.Terminal.IsOver() {
		t.Errorf("the bare FEN has no history and should not be drawn, got %s", eval.Terminal)
	}
}

func TestSeventyFiveMoveRuleDraw(t *testing.T) {
	rules := NewChessRules()

	// King g1 to f1 is the 150th half move without a capture or pawn move.
	out, err := rules.Apply(At("7k/8/8/8/8/8/8/R5K1 w - - 149 100"), Move{From: 62, To: 61})
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	if out.Terminal != Draw {
		t.Fatalf("Terminal = %s, want draw", out.Terminal)
	}
	if out.Method != "seventy_five_move_rule" {
		t.Errorf("Method = %q, want seventy_five_move_rule", out.Method)
	}
}

func TestLineExtend(t *testing.T) {
	rules := NewChessRules()
	line := At(StartingFEN)

	knight, err := rules.Apply(line, Move{From: 62, To: f3})
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	extended := line.Extend(knight)
	if extended.Start != StartingFEN || !reflect.DeepEqual(extended.Moves, []string{"g1f3"}) {
		t.Errorf("after a knight move line = %+v", extended)
	}
	if len(line.Moves) != 0 {
		t.Error("Extend must not modify the receiver")
	}

	pawn, err := rules.Apply(extended, Move{From: e7, To: e5})
	if err != nil {
		t.Fatalf("Apply error: %v", err)
	}
	reset := extended.Extend(pawn)
	if reset.Start != pawn.FEN || len(reset.Moves) != 0 {
		t.Errorf("a pawn move should restart the line, got %+v", reset)
	}
}

func TestReplayRejectsBrokenLine(t *testing.T) {
	rules := NewChessRules()

	tests := []struct {
		name string
		line Line
	}{
		{"bad start", Line{Start: "garbage"}},
		{"illegal move", Line{Start: StartingFEN, Moves: []string{"e2e5"}}},
		{"unparsable move", Line{Start: StartingFEN, Moves: []string{"zz"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := rules.Replay(tt.line); !errors.Is(err, ErrInvalidPosition) {
				t.Errorf("error = %v, want ErrInvalidPosition", err)
			}
			if _, err := rules.Apply(tt.line, Move{From: e2, To: e4}); !errors.Is(err, ErrInvalidPosition) {
				t.Errorf("Apply error = %v, want ErrInvalidPosition", err)
			}
		})
	}
}

func TestCheckStartPosition(t *testing.T) {
	tests := []struct {
		name string
		fen  string
		want []string
	}{
		{"standard", StartingFEN, nil},
		{"no black king", "8/8/8/8/8/8/8/4K3 w - - 0 1", []string{"expected exactly 1 black king, found 0"}},
		{"pawn on back rank", "P3k3/8/8/8/8/8/8/4K3 w - - 0 1", []string{"pawn on back rank at a8"}},
		{"side not to move in check", "4k3/8/8/8/8/8/8/4R1K1 w - - 0 1", []string{"black king is in check with white to move"}},
		{"already mated", "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3", []string{"position is already over: checkmate"}},
		{"already stalemate", "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1", []string{"position is already over: stalemate"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CheckStartPosition(tt.fen)
			if err != nil {
				t.Fatalf("CheckStartPosition error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("problems = %q, want %q", got, tt.want)
			}

			err = ValidateStartPosition(tt.fen)
			if (err != nil) != (tt.want != nil) {
				t.Errorf("ValidateStartPosition error = %v", err)
			}
			if err != nil && !errors.Is(err, ErrUnplayablePosition) {
				t.Errorf("error = %v, want ErrUnplayablePosition", err)
			}
		})
	}

	if _, err := CheckStartPosition("not a fen"); !errors.Is(err, ErrInvalidPosition) {
		t.Errorf("error = %v, want ErrInvalidPosition", err)
	}
}
