package session

import (
	"time"

	"github.com/wricardo/chess-rooms/game/engine"
)

// SessionPersistence stores snapshots of unfinished games so a room survives
// a restart.
type SessionPersistence interface {
	// Save persists a snapshot, replacing any previous one for the room
	Save(snap Snapshot) error

	// Load retrieves a snapshot by room ID
	Load(roomID string) (Snapshot, error)

	// Delete removes a room's snapshot
	Delete(roomID string) error

	// ListAll returns the room IDs that have a snapshot
	ListAll() ([]string, error)

	// Exists checks if a snapshot exists
	Exists(roomID string) bool
}

// Snapshot is the JSON structure written for a room. Line holds the moves
// since the last capture or pawn move so repetition survives a restart.
type Snapshot struct {
	RoomID    string       `json:"room_id"`
	FEN       string       `json:"fen"`
	Line      engine.Line  `json:"line"`
	MoveCount int          `json:"move_count"`
	LastMove  *AppliedMove `json:"last_move,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func snapshotOf(s *Session, state State, line engine.Line) Snapshot {
	return Snapshot{
		RoomID:    s.ID,
		FEN:       state.FEN,
		Line:      line,
		MoveCount: state.MoveCount,
		LastMove:  state.LastMove,
		CreatedAt: s.CreatedAt,
		UpdatedAt: state.UpdatedAt,
	}
}
