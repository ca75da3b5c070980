package engine

import (
	"strings"

	"github.com/notnil/chess"
)

// BoardArray expands fen into 64 entries ordered by board index. Occupied
// squares hold the FEN piece letter (uppercase for white), empty squares "".
func BoardArray(fen string) ([]string, error) {
	game, err := load(fen)
	if err != nil {
		return nil, err
	}
	board := make([]string, BoardSquares)
	for sq, piece := range game.Position().Board().SquareMap() {
		board[fromChessSquare(sq)] = pieceLetter(piece)
	}
	return board, nil
}

func pieceLetter(p chess.Piece) string {
	var letter string
	switch p.Type() {
	case chess.King:
		letter = "k"
	case chess.Queen:
		letter = "q"
	case chess.Rook:
		letter = "r"
	case chess.Bishop:
		letter = "b"
	case chess.Knight:
		letter = "n"
	case chess.Pawn:
		letter = "p"
	default:
		return ""
	}
	if p.Color() == chess.White {
		return strings.ToUpper(letter)
	}
	return letter
}

// inCheck reports whether the side to move has its king attacked.
func inCheck(pos *chess.Position) bool {
	return kingAttacked(pos.Board().SquareMap(), pos.Turn())
}

// kingAttacked reports whether the king of color c stands on an attacked square.
func kingAttacked(squares map[chess.Square]chess.Piece, c chess.Color) bool {
	for sq, piece := range squares {
		if piece.Type() == chess.King && piece.Color() == c {
			return attacked(squares, int(sq)%8, int(sq)/8, c.Other())
		}
	}
	return false
}

var (
	knightJumps = [8][2]int{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
	kingSteps   = [8][2]int{{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1}}
	straight    = [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	diagonal    = [4][2]int{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
)

// attacked reports whether the square at file/rank (0-based, a1 origin) is
// attacked by any piece of color by.
func attacked(squares map[chess.Square]chess.Piece, file, rank int, by chess.Color) bool {
	at := func(f, r int) (chess.Piece, bool) {
		if f < 0 || f > 7 || r < 0 || r > 7 {
			return chess.NoPiece, false
		}
		p, ok := squares[chess.Square(r*8+f)]
		return p, ok && p != chess.NoPiece
	}
	is := func(f, r int, types ...chess.PieceType) bool {
		p, ok := at(f, r)
		if !ok || p.Color() != by {
			return false
		}
		for _, t := range types {
			if p.Type() == t {
				return true
			}
		}
		return false
	}

	pawnRank := rank - 1
	if by == chess.Black {
		pawnRank = rank + 1
	}
	if is(file-1, pawnRank, chess.Pawn) || is(file+1, pawnRank, chess.Pawn) {
		return true
	}
	for _, j := range knightJumps {
		if is(file+j[0], rank+j[1], chess.Knight) {
			return true
		}
	}
	for _, s := range kingSteps {
		if is(file+s[0], rank+s[1], chess.King) {
			return true
		}
	}

	ray := func(dirs [4][2]int, types ...chess.PieceType) bool {
		for _, d := range dirs {
			f, r := file+d[0], rank+d[1]
			for f >= 0 && f <= 7 && r >= 0 && r <= 7 {
				if _, ok := at(f, r); ok {
					if is(f, r, types...) {
						return true
					}
					break
				}
				f, r = f+d[0], r+d[1]
			}
		}
		return false
	}
	return ray(straight, chess.Rook, chess.Queen) || ray(diagonal, chess.Bishop, chess.Queen)
}
