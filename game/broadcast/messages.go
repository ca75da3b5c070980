package broadcast

import (
	"strings"

	"github.com/wricardo/chess-rooms/game/engine"
	"github.com/wricardo/chess-rooms/game/session"
)

// Outbound event names.
const (
	EventGameState    = "gameState"
	EventMove         = "move"
	EventCheck        = "check"
	EventGameOver     = "gameOver"
	EventInvalidMove  = "invalidMove"
	EventPlayerJoined = "playerJoined"
	EventPlayerLeft   = "playerLeft"
	EventUserList     = "updateUserList"
	EventError        = "error"
)

// Message is the envelope written to clients.
type Message struct {
	Room  string `json:"room,omitempty"`
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// StatePayload is the full game state a client renders from.
type StatePayload struct {
	FEN       string               `json:"fen"`
	Turn      engine.Color         `json:"turn"`
	Terminal  engine.TerminalState `json:"terminal"`
	Board     []string             `json:"board"`
	MoveCount int                  `json:"moveCount"`
	LastMove  *session.AppliedMove `json:"lastMove,omitempty"`
	Result    string               `json:"result,omitempty"`
}

type CheckPayload struct {
	Turn    engine.Color `json:"turn"`
	Message string       `json:"message"`
}

type GameOverPayload struct {
	Result  string       `json:"result"`
	Method  string       `json:"method"`
	Winner  engine.Color `json:"winner,omitempty"`
	Message string       `json:"message"`
}

type RejectionPayload struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
	FEN     string `json:"fen,omitempty"`
}

type PlayerPayload struct {
	Name    string `json:"name,omitempty"`
	Players int    `json:"players"`
}

type UserListPayload struct {
	Users []string `json:"users"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// NewStatePayload builds the gameState body for state.
func NewStatePayload(state session.State) StatePayload {
	board, err := engine.BoardArray(state.FEN)
	if err != nil {
		board = make([]string, engine.BoardSquares)
	}
	return StatePayload{
		FEN:       state.FEN,
		Turn:      state.Turn,
		Terminal:  state.Terminal,
		Board:     board,
		MoveCount: state.MoveCount,
		LastMove:  state.LastMove,
		Result:    state.Result,
	}
}

func checkPayload(state session.State) CheckPayload {
	return CheckPayload{Turn: state.Turn, Message: "Check! " + title(string(state.Turn)) + " to move."}
}

func gameOverPayload(state session.State) GameOverPayload {
	p := GameOverPayload{Result: state.Result, Method: state.Method}
	switch state.Terminal {
	case engine.Checkmate:
		p.Winner = engine.Outcome{Result: state.Result}.Winner()
		p.Message = "Checkmate! " + title(string(p.Winner)) + " wins."
	case engine.Stalemate:
		p.Message = "Stalemate! The game is drawn."
	default:
		p.Message = "Draw by " + strings.ReplaceAll(state.Method, "_", " ") + "."
	}
	return p
}

func rejectionPayload(err error, fen string) RejectionPayload {
	reason := session.RejectionReason(err)
	p := RejectionPayload{Reason: reason, FEN: fen}
	switch reason {
	case "game_over":
		p.Message = "The game is already over."
	case "unknown_room":
		p.Message = "Join the room before moving."
	default:
		p.Reason = "invalid_move"
		p.Message = "Invalid move."
	}
	return p
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
