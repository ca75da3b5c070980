package engine

import (
	"errors"
	"strconv"
	"strings"
)

// StartingFEN is the standard chess starting position.
const StartingFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// BoardSquares is the number of addressable squares.
const BoardSquares = 64

var (
	// ErrIllegalMove is returned when a move is not legal in the given position.
	ErrIllegalMove = errors.New("illegal move")
	// ErrInvalidSquare is returned for indices or names outside the board.
	ErrInvalidSquare = errors.New("invalid square")
	// ErrInvalidPosition is returned when a FEN string cannot be decoded.
	ErrInvalidPosition = errors.New("invalid position")
	// ErrInvalidPromotion is returned for an unknown promotion piece.
	ErrInvalidPromotion = errors.New("invalid promotion piece")
	// ErrUnplayablePosition is returned for start positions a game cannot be played from.
	ErrUnplayablePosition = errors.New("unplayable position")
)

// Color identifies the side to move.
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

// TerminalState classifies a position.
type TerminalState string

const (
	Ongoing   TerminalState = "ongoing"
	Check     TerminalState = "check"
	Checkmate TerminalState = "checkmate"
	Stalemate TerminalState = "stalemate"
	Draw      TerminalState = "draw"
)

// IsOver reports whether the game accepts no further moves.
func (t TerminalState) IsOver() bool {
	return t == Checkmate || t == Stalemate || t == Draw
}

// Move is a proposed move in board indices.
type Move struct {
	From      int    `json:"from"`
	To        int    `json:"to"`
	Promotion string `json:"promotion,omitempty"` // q, r, b or n; empty means queen when promoting
}

// Outcome describes a position after the rules engine evaluated it.
type Outcome struct {
	FEN       string        `json:"fen"`
	Turn      Color         `json:"turn"`
	Terminal  TerminalState `json:"terminal"`
	Result    string        `json:"result,omitempty"` // 1-0, 0-1 or 1/2-1/2 once the game is over
	Method    string        `json:"method,omitempty"`
	UCI       string        `json:"uci,omitempty"` // the applied move, set by Apply
	Promotion string        `json:"promotion,omitempty"`
}

// Winner returns the winning color, or "" for draws and unfinished games.
func (o Outcome) Winner() Color {
	switch o.Result {
	case "1-0":
		return White
	case "0-1":
		return Black
	}
	return ""
}

// Line is a game recorded as the position it started from plus the UCI moves
// played since. Repetition is counted over the positions the line passes
// through, so a line must reach back to the last irreversible move.
type Line struct {
	Start string   `json:"start"`
	Moves []string `json:"moves,omitempty"`
}

// At returns the line with no moves played from fen.
func At(fen string) Line {
	return Line{Start: fen}
}

// Extend returns the line after out was applied to it. A capture or pawn move
// resets the halfmove clock; no earlier position can recur after it, so the
// line restarts at out.FEN.
func (l Line) Extend(out Outcome) Line {
	if halfmoveClock(out.FEN) == 0 {
		return At(out.FEN)
	}
	moves := make([]string, len(l.Moves), len(l.Moves)+1)
	copy(moves, l.Moves)
	return Line{Start: l.Start, Moves: append(moves, out.UCI)}
}

// halfmoveClock reads the fifth FEN field, or -1 when it is missing.
func halfmoveClock(fen string) int {
	fields := strings.Fields(fen)
	if len(fields) < 5 {
		return -1
	}
	n, err := strconv.Atoi(fields[4])
	if err != nil {
		return -1
	}
	return n
}
