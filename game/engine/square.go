package engine

import (
	"fmt"

	"github.com/notnil/chess"
)

// IndexToSquare converts a board index to an algebraic square name.
func IndexToSquare(index int) (string, error) {
	if index < 0 || index >= BoardSquares {
		return "", fmt.Errorf("%w: index %d", ErrInvalidSquare, index)
	}
	file := byte('a' + index%8)
	rank := byte('0' + 8 - index/8)
	return string([]byte{file, rank}), nil
}

// SquareToIndex converts an algebraic square name such as "e4" to a board index.
func SquareToIndex(square string) (int, error) {
	if len(square) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSquare, square)
	}
	file := int(square[0]) - 'a'
	rank := int(square[1]) - '1'
	if file < 0 || file > 7 || rank < 0 || rank > 7 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSquare, square)
	}
	return (7-rank)*8 + file, nil
}

// toChessSquare maps a board index onto the library's a1=0 numbering.
func toChessSquare(index int) (chess.Square, error) {
	if index < 0 || index >= BoardSquares {
		return chess.NoSquare, fmt.Errorf("%w: index %d", ErrInvalidSquare, index)
	}
	file := index % 8
	rank := 7 - index/8
	return chess.Square(rank*8 + file), nil
}

func fromChessSquare(sq chess.Square) int {
	file := int(sq) % 8
	rank := int(sq) / 8
	return (7-rank)*8 + file
}
