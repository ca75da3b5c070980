// Package engine provides the chess rules used by every game room.
//
// The engine package wraps github.com/notnil/chess behind a small, pure
// interface. It covers:
//   - Move legality for a position given in Forsyth-Edwards Notation (FEN)
//   - Applying a move and producing the resulting position
//   - Classifying a position as ongoing, check, checkmate, stalemate or draw
//   - Conversion between flat board indices and algebraic squares
//
// Core Types:
//
// The Rules interface is the contract the session layer depends on, and
// ChessRules is its implementation. Rules never keeps state between calls:
// the same Line and Move always produce the same Outcome, so callers own the
// authoritative game and pass it in on every call. A Line is a start FEN plus
// the UCI moves played since; Line.Extend keeps it short by restarting it at
// every capture or pawn move.
//
// Board Indices:
//
// Clients address squares by a flat index in [0, 63]. Index 0 is a8, index 7
// is h8, index 56 is a1 and index 63 is h1. The file is index%8 and the rank
// is 8-index/8.
//
// Usage:
//
//	rules := engine.NewChessRules()
//	line := engine.At(engine.StartingFEN)
//	out, err := rules.Apply(line, engine.Move{From: 52, To: 36})
//	if err != nil {
//		// errors.Is(err, engine.ErrIllegalMove)
//	}
//	line = line.Extend(out)
//	fmt.Println(out.FEN, out.Turn, out.Terminal)
//
// Terminal States:
//
// Checkmate, stalemate and the automatic draws (insufficient material,
// fivefold repetition, the seventy-five move rule) end the game. Check is
// reported but does not end it. Repetition is only seen across the moves of
// the Line passed in.
//
// Start Positions:
//
// ValidateStartPosition rejects positions a game cannot be played from: a
// missing or extra king, pawns on the first or last rank, the side that just
// moved left in check, or a game that is already over.
package engine
